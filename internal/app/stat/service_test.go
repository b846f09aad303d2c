package stat

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exflikt/murchace/internal/adapter/postgres"
)

type fakeDB struct {
	results map[string][][]any
}

func (f *fakeDB) lookup(sql string) ([][]any, error) {
	for frag, rows := range f.results {
		if strings.Contains(sql, frag) {
			return rows, nil
		}
	}
	return nil, fmt.Errorf("no canned result for query: %s", sql)
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (postgres.Rows, error) {
	rows, err := f.lookup(sql)
	if err != nil {
		return nil, err
	}
	return &fakeRows{rows: rows}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) postgres.Row {
	rows, err := f.lookup(sql)
	if err != nil {
		return fakeRow{err: err}
	}
	return fakeRow{values: rows[0]}
}

func (f *fakeDB) Exec(context.Context, string, ...any) (postgres.CommandTag, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) Begin(context.Context) (postgres.Tx, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) Close() {}

type fakeRows struct {
	rows [][]any
	i    int
	cur  []any
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.cur = r.rows[r.i]
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return assign(dest, r.cur) }
func (r *fakeRows) Err() error             { return nil }
func (r *fakeRows) Close()                 {}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

func assign(dest, src []any) error {
	if len(dest) != len(src) {
		return fmt.Errorf("scan width mismatch: %d != %d", len(dest), len(src))
	}
	for i := range dest {
		switch d := dest[i].(type) {
		case *int:
			*d = src[i].(int)
		case *string:
			*d = src[i].(string)
		case *float64:
			*d = src[i].(float64)
		case *time.Time:
			*d = src[i].(time.Time)
		case **time.Time:
			if src[i] == nil {
				*d = nil
			} else {
				t := src[i].(time.Time)
				*d = &t
			}
		default:
			return fmt.Errorf("unsupported scan target %T", dest[i])
		}
	}
	return nil
}

func TestSummarize(t *testing.T) {
	db := &fakeDB{results: map[string][][]any{
		"GROUP BY i.product_id": {
			// product_id, name, price, total_count, today_count
			{10, "たこ焼き", 500, 12, 4},
			{20, "ラムネ", 200, 5, 5},
		},
		"AVG(EXTRACT":            {{150.9, 84.2}},
		"COUNT(order_id) FILTER": {{9, 2}},
	}}

	summary, err := NewService(db).Summarize(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Products, 2)
	assert.Equal(t, "¥6,000", summary.Products[0].TotalSales)
	assert.Equal(t, "¥2,000", summary.Products[0].TodaySales)
	assert.Equal(t, "¥1,000", summary.Products[1].TotalSales)

	assert.Equal(t, 17, summary.TotalCount)
	assert.Equal(t, 9, summary.TodayCount)
	assert.Equal(t, "¥7,000", summary.TotalSales)
	assert.Equal(t, "¥3,000", summary.TodaySales)

	assert.Equal(t, 9, summary.CompletedOrders)
	assert.Equal(t, 2, summary.CanceledOrders)
	assert.Equal(t, "2 分 30 秒", summary.AvgServiceTime)
	assert.Equal(t, "1 分 24 秒", summary.RecentAvgTime)
}

func TestSummarizeNoSales(t *testing.T) {
	db := &fakeDB{results: map[string][][]any{
		"GROUP BY i.product_id":  {},
		"AVG(EXTRACT":            {{0.0, 0.0}},
		"COUNT(order_id) FILTER": {{0, 0}},
	}}

	summary, err := NewService(db).Summarize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Products)
	assert.Equal(t, "¥0", summary.TotalSales)
	assert.Equal(t, "0 分 0 秒", summary.AvgServiceTime)
}

func TestExportOrdersCSV(t *testing.T) {
	ordered := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	completed := ordered.Add(3 * time.Minute)
	db := &fakeDB{results: map[string][][]any{
		"ORDER BY o.order_id ASC, i.item_no ASC": {
			// order_id, ordered_at, canceled_at, completed_at,
			// item_no, product_id, name, price, supplied_at
			{1, ordered, nil, completed, 0, 10, "たこ焼き", 500, completed},
			{1, ordered, nil, completed, 1, 20, "ラムネ", 200, completed},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, NewService(db).ExportOrdersCSV(context.Background(), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "2026-08-28T12:00:00Z", records[1][1])
	assert.Empty(t, records[1][2])
	assert.Equal(t, "2026-08-28T12:03:00Z", records[1][3])
	assert.Equal(t, "たこ焼き", records[1][6])
	assert.Equal(t, "1", records[2][4])
}

func TestExportOrdersFile(t *testing.T) {
	ordered := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{results: map[string][][]any{
		"ORDER BY o.order_id ASC, i.item_no ASC": {
			{1, ordered, nil, nil, 0, 10, "たこ焼き", 500, nil},
		},
	}}

	path := filepath.Join(t.TempDir(), "stat.csv")
	require.NoError(t, NewService(db).ExportOrdersFile(context.Background(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, "1", records[1][0])
}

func TestExportOrdersFileBadPath(t *testing.T) {
	db := &fakeDB{results: map[string][][]any{
		"ORDER BY o.order_id ASC, i.item_no ASC": {},
	}}
	err := NewService(db).ExportOrdersFile(context.Background(), filepath.Join(t.TempDir(), "missing", "stat.csv"))
	assert.Error(t, err)
}
