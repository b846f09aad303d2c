// Package rowgroup groups a lazily produced stream of flat rows into
// (key, rows) pairs by detecting key boundaries in a single pass.
package rowgroup

// Group is one contiguous run of rows sharing the same key.
type Group[K comparable, R any] struct {
	Key  K
	Rows []R
}

// Collect drains the row producer and groups consecutive rows whose key
// compares equal. next returns the following row, or ok=false when the stream
// is exhausted.
//
// Precondition: the stream must already be sorted, or at least grouped
// contiguously, by the extracted key. If rows with an equal key arrive
// non-contiguously they end up in separate groups, silently misassociating
// the result.
func Collect[K comparable, R any](key func(R) K, next func() (R, bool, error)) ([]Group[K, R], error) {
	var groups []Group[K, R]
	for {
		row, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return groups, nil
		}
		k := key(row)
		if n := len(groups); n > 0 && groups[n-1].Key == k {
			groups[n-1].Rows = append(groups[n-1].Rows, row)
			continue
		}
		groups = append(groups, Group[K, R]{Key: k, Rows: []R{row}})
	}
}
