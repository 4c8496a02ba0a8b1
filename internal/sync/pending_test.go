package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingAddTake(t *testing.T) {
	p := NewPending(4, time.Minute, nil)
	p.Add("m1", []string{"U1"})
	p.Add("m1", []string{"U2", "U1"})

	seen, ok := p.Take("m1")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"U1", "U2"}, seen)
	assert.Equal(t, 0, p.Len())

	_, ok = p.Take("m1")
	assert.False(t, ok)
}

func TestPendingEvictsOldestWhenFull(t *testing.T) {
	p := NewPending(2, time.Minute, nil)
	p.Add("m1", []string{"U1"})
	p.Add("m2", []string{"U1"})
	p.Add("m3", []string{"U1"})

	assert.Equal(t, 2, p.Len())
	_, ok := p.Take("m1")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = p.Take("m3")
	assert.True(t, ok)
}

func TestPendingRetention(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPending(8, 30*time.Second, nil)
	p.now = func() time.Time { return now }

	p.Add("m1", []string{"U1"})
	now = now.Add(20 * time.Second)
	p.Add("m2", []string{"U1"})

	now = now.Add(15 * time.Second)
	assert.Equal(t, 1, p.Expire())
	_, ok := p.Take("m1")
	assert.False(t, ok)
	_, ok = p.Take("m2")
	assert.True(t, ok)
}
