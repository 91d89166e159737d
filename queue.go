package beam

import "slices"

// frame is one in-flight unit of the breadth-first search. It owns its
// snapshot until the frame is dequeued or dropped.
type frame struct {
	snap    *Snapshot
	text    string
	depth   int
	probSum float32
}

// frameQueue is a FIFO of frames.
type frameQueue struct {
	frames []*frame
	head   int
}

func (q *frameQueue) Len() int {
	return len(q.frames) - q.head
}

func (q *frameQueue) push(f *frame) {
	q.frames = append(q.frames, f)
}

func (q *frameQueue) pop() (*frame, bool) {
	if q.Len() == 0 {
		return nil, false
	}
	f := q.frames[q.head]
	q.frames[q.head] = nil
	q.head++
	if q.head == len(q.frames) {
		q.frames = q.frames[:0]
		q.head = 0
	}
	return f, true
}

// trim keeps the maxWidth frames with the highest prob_sum, disposing the
// rest, and returns how many frames were dropped. Frames with equal prob_sum
// keep their queue order, and survivors are re-queued best first.
func (q *frameQueue) trim(maxWidth int) int {
	if maxWidth < 0 || q.Len() <= maxWidth {
		return 0
	}
	live := slices.Clone(q.frames[q.head:])
	slices.SortStableFunc(live, func(a, b *frame) int {
		switch {
		case a.probSum > b.probSum:
			return -1
		case a.probSum < b.probSum:
			return 1
		default:
			return 0
		}
	})

	for _, f := range live[maxWidth:] {
		f.snap.Dispose()
	}
	dropped := len(live) - maxWidth
	q.frames = live[:maxWidth]
	q.head = 0
	return dropped
}

// drain empties the queue, handing each frame to fn before disposing its
// snapshot.
func (q *frameQueue) drain(fn func(*frame)) {
	for {
		f, ok := q.pop()
		if !ok {
			return
		}
		if fn != nil {
			fn(f)
		}
		f.snap.Dispose()
	}
}
