package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortable(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = New()
	}
	assert.True(t, sort.StringsAreSorted(ids))
	assert.Len(t, ids[0], 26)
}

func TestValidAndTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	s := New()
	assert.True(t, Valid(s))
	assert.False(t, Valid("not-an-id"))

	ts, err := Time(s)
	require.NoError(t, err)
	assert.True(t, ts.After(before))

	_, err = Time("nope")
	assert.Error(t, err)
}
