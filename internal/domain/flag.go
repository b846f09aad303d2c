package domain

import "strings"

// ModifiedFlag is a bitset describing what the most recent order mutation
// changed. Several bits may be set on one event, e.g. FlagSupplied|FlagResolved
// when supplying the last remaining item auto-completes the order.
type ModifiedFlag uint8

const (
	// FlagOriginal is the initial value of the broadcast channel before any
	// mutation happened. It is never sent by a mutation.
	FlagOriginal ModifiedFlag = 1 << iota
	// FlagIncoming: a new order entered the incoming queue.
	FlagIncoming
	// FlagSupplied: an item's supplied_at was set.
	FlagSupplied
	// FlagResolved: an order left the incoming views (completed or canceled).
	FlagResolved
	// FlagPutBack: a resolved order was reset back to incoming.
	FlagPutBack
)

// Has reports whether any bit of mask is set in f.
func (f ModifiedFlag) Has(mask ModifiedFlag) bool {
	return f&mask != 0
}

func (f ModifiedFlag) String() string {
	if f == 0 {
		return "none"
	}
	names := []struct {
		bit  ModifiedFlag
		name string
	}{
		{FlagOriginal, "original"},
		{FlagIncoming, "incoming"},
		{FlagSupplied, "supplied"},
		{FlagResolved, "resolved"},
		{FlagPutBack, "put_back"},
	}
	var parts []string
	for _, n := range names {
		if f.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
