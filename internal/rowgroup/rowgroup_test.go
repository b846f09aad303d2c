package rowgroup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	orderID int
	name    string
}

func sliceProducer(rows []row) func() (row, bool, error) {
	i := 0
	return func() (row, bool, error) {
		if i >= len(rows) {
			return row{}, false, nil
		}
		r := rows[i]
		i++
		return r, true, nil
	}
}

func TestCollectEmpty(t *testing.T) {
	t.Parallel()

	groups, err := Collect(func(r row) int { return r.orderID }, sliceProducer(nil))
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestCollectGroupsContiguousRuns(t *testing.T) {
	t.Parallel()

	rows := []row{
		{1, "latte"},
		{1, "mocha"},
		{2, "latte"},
		{3, "cocoa"},
		{3, "cocoa"},
		{3, "latte"},
	}

	groups, err := Collect(func(r row) int { return r.orderID }, sliceProducer(rows))
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, 1, groups[0].Key)
	assert.Len(t, groups[0].Rows, 2)
	assert.Equal(t, 2, groups[1].Key)
	assert.Len(t, groups[1].Rows, 1)
	assert.Equal(t, 3, groups[2].Key)
	assert.Len(t, groups[2].Rows, 3)
	assert.Equal(t, "mocha", groups[0].Rows[1].name)
}

func TestCollectSingleGroup(t *testing.T) {
	t.Parallel()

	rows := []row{{5, "a"}, {5, "b"}}
	groups, err := Collect(func(r row) int { return r.orderID }, sliceProducer(rows))
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 5, groups[0].Key)
	assert.Len(t, groups[0].Rows, 2)
}

func TestCollectPropagatesProducerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("cursor broke")
	calls := 0
	next := func() (row, bool, error) {
		calls++
		if calls > 2 {
			return row{}, false, boom
		}
		return row{orderID: calls}, true, nil
	}

	groups, err := Collect(func(r row) int { return r.orderID }, next)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, groups)
}

// Documents the precondition: a non-contiguous key silently starts a new group.
func TestCollectNonContiguousKeySplits(t *testing.T) {
	t.Parallel()

	rows := []row{{1, "a"}, {2, "b"}, {1, "c"}}
	groups, err := Collect(func(r row) int { return r.orderID }, sliceProducer(rows))
	require.NoError(t, err)
	assert.Len(t, groups, 3)
}
