package launch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueOrdering(t *testing.T) {
	tests := []struct {
		name       string
		priorities map[string]int // enqueue order follows the ids slice
		ids        []string
		expected   []string
	}{
		{
			name:       "higher priority first",
			ids:        []string{"low", "high"},
			priorities: map[string]int{"low": 1, "high": 100},
			expected:   []string{"high", "low"},
		},
		{
			name:       "equal priority is fifo",
			ids:        []string{"first", "second", "third"},
			priorities: map[string]int{"first": 5, "second": 5, "third": 5},
			expected:   []string{"first", "second", "third"},
		},
		{
			name:       "mixed",
			ids:        []string{"a", "b", "c", "d"},
			priorities: map[string]int{"a": 10, "b": 50, "c": 10, "d": 50},
			expected:   []string{"b", "d", "a", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newPendingQueue()
			for _, id := range tt.ids {
				q.push(newFakeProcess(id, tt.priorities[id]))
			}

			var got []string
			for {
				p, ok := q.pop()
				if !ok {
					break
				}
				got = append(got, p.Spec().ServiceID)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQueueRemove(t *testing.T) {
	q := newPendingQueue()
	keep := newFakeProcess("keep", 10)
	drop := newFakeProcess("drop", 20)
	q.push(keep)
	q.push(drop)

	require.True(t, q.remove(drop))
	assert.False(t, q.remove(drop), "second remove is a no-op")
	assert.False(t, q.remove(newFakeProcess("missing", 1)))

	p, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, "keep", p.Spec().ServiceID)
	assert.Equal(t, 0, q.len())
}

func TestQueueRemoveDuplicateService(t *testing.T) {
	q := newPendingQueue()
	first := newFakeProcess("svc", 10)
	second := newFakeProcess("svc", 10)
	q.push(first)
	q.push(second)

	// Removing one request for a service must leave the other pending.
	require.True(t, q.remove(second))
	assert.Equal(t, 1, q.len())

	p, ok := q.pop()
	require.True(t, ok)
	assert.Same(t, first, p)
}

func TestQueueDrain(t *testing.T) {
	q := newPendingQueue()
	for _, id := range []string{"x", "y", "z"} {
		q.push(newFakeProcess(id, 1))
	}

	dropped := q.drain()
	assert.Len(t, dropped, 3)
	assert.Equal(t, 0, q.len())

	_, ok := q.pop()
	assert.False(t, ok)
}
