package beam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueWithFrames(t *testing.T, store *snapshotStore, probSums ...float32) *frameQueue {
	t.Helper()
	m := abcdModel()
	q := &frameQueue{}
	for i, p := range probSums {
		snap, err := store.capture(m, 0)
		require.NoError(t, err)
		q.push(&frame{snap: snap, text: string(rune('a' + i)), depth: 1, probSum: p})
	}
	return q
}

func TestFrameQueue_FIFO(t *testing.T) {
	store := newSnapshotStore(SearchConfig{}, nil)
	q := queueWithFrames(t, store, 0.1, 0.2, 0.3)

	var got []string
	for q.Len() > 0 {
		f, ok := q.pop()
		require.True(t, ok)
		got = append(got, f.text)
		f.snap.Dispose()
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	if _, ok := q.pop(); ok {
		t.Error("pop() on empty queue returned a frame")
	}
	assert.Equal(t, 0, store.live)
}

func TestFrameQueue_Trim(t *testing.T) {
	store := newSnapshotStore(SearchConfig{}, nil)
	q := queueWithFrames(t, store, 0.2, 0.9, 0.5, 0.9, 0.1)

	dropped := q.trim(3)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 3, store.live, "dropped frames release their snapshots")

	var texts []string
	var minKept float32 = 1
	for q.Len() > 0 {
		f, _ := q.pop()
		texts = append(texts, f.text)
		minKept = min(minKept, f.probSum)
		f.snap.Dispose()
	}
	assert.Equal(t, []string{"b", "d", "c"}, texts)
	assert.GreaterOrEqual(t, minKept, float32(0.2), "every kept frame outranks every dropped one")
}

func TestFrameQueue_TrimWithinWidth(t *testing.T) {
	store := newSnapshotStore(SearchConfig{}, nil)
	q := queueWithFrames(t, store, 0.2, 0.9)

	if dropped := q.trim(2); dropped != 0 {
		t.Errorf("trim(2) on two frames dropped %d", dropped)
	}
	q.drain(nil)
	assert.Equal(t, 0, store.live)
}

func TestFrameQueue_Drain(t *testing.T) {
	store := newSnapshotStore(SearchConfig{}, nil)
	q := queueWithFrames(t, store, 0.3, 0.4)

	var seen []string
	q.drain(func(f *frame) {
		assert.False(t, f.snap.Released(), "drain hands over frames before disposing them")
		seen = append(seen, f.text)
	})

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, store.live)
}
