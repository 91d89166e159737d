package beam

import (
	"encoding/binary"

	"github.com/pierrec/lz4/v4"
)

// packedHeaderSize prefixes compressed snapshots: raw length, then packed
// length (0 = stored raw).
const packedHeaderSize = 8

// Snapshot is a byte-exact copy of a model's state at one point in the search,
// paired with the position counter at capture time.
//
// A Snapshot has exactly one owner and is released exactly once, either by
// Restore or by Dispose. Dispose after Restore is a no-op, so owners can
// always defer Dispose right after a successful capture.
type Snapshot struct {
	store    *snapshotStore
	data     []byte
	size     int
	nPast    int
	packed   bool
	released bool
}

// NPast returns the number of tokens the model had processed at capture.
func (s *Snapshot) NPast() int {
	if s == nil {
		return -1
	}
	return s.nPast
}

// Size returns the model state size in bytes recorded at capture.
func (s *Snapshot) Size() int {
	if s == nil {
		return -1
	}
	return s.size
}

// Released reports whether the snapshot was restored or disposed.
func (s *Snapshot) Released() bool {
	if s == nil {
		return true
	}
	return s.released
}

// Restore writes the snapshot back into m, releases it and returns the
// recorded position counter. The snapshot is released even when restoring
// fails.
func (s *Snapshot) Restore(m Model) (int, error) {
	if s == nil || s.released {
		return 0, &SnapshotError{Op: "restore", Err: ErrSnapshotReleased}
	}
	defer s.Dispose()

	if m == nil {
		return 0, ErrModelIsNil
	}
	if got := m.StateSize(); got != s.size {
		return 0, &SnapshotError{Op: "restore", Want: s.size, Got: got, Err: ErrStateSizeMismatch}
	}

	raw, err := s.raw()
	if err != nil {
		return 0, &SnapshotError{Op: "restore", Want: s.size, Got: len(s.data), Err: err}
	}
	n, err := m.SetState(raw)
	if err != nil {
		return 0, &SnapshotError{Op: "restore", Want: s.size, Got: n, Err: err}
	}
	if n != s.size {
		return 0, &SnapshotError{Op: "restore", Want: s.size, Got: n, Err: ErrStateSizeMismatch}
	}
	return s.nPast, nil
}

// Dispose releases the snapshot without restoring it.
// It is safe to call Dispose multiple times.
func (s *Snapshot) Dispose() {
	if s == nil || s.released {
		return
	}
	s.released = true
	if s.store != nil {
		s.store.release(s)
	}
	s.data = nil
}

func (s *Snapshot) raw() ([]byte, error) {
	if !s.packed {
		return s.data, nil
	}
	if len(s.data) < packedHeaderSize {
		return nil, ErrStateSizeMismatch
	}
	rawLen := int(binary.LittleEndian.Uint32(s.data[0:]))
	packedLen := int(binary.LittleEndian.Uint32(s.data[4:]))
	body := s.data[packedHeaderSize:]
	if packedLen == 0 {
		return body[:rawLen], nil
	}

	raw := make([]byte, rawLen)
	n, err := lz4.UncompressBlock(body[:packedLen], raw)
	if err != nil {
		return nil, err
	}
	if n != rawLen {
		return nil, ErrStateSizeMismatch
	}
	return raw, nil
}

// snapshotStore allocates snapshots and accounts for the memory they hold.
type snapshotStore struct {
	limit    uint64
	compress bool
	metrics  *searchMetrics

	live      int
	liveBytes uint64
	peakBytes uint64
	captured  int64
}

func newSnapshotStore(cfg SearchConfig, metrics *searchMetrics) *snapshotStore {
	return &snapshotStore{
		limit:    cfg.MemoryLimit,
		compress: cfg.Compress,
		metrics:  metrics,
	}
}

// capture copies the model's current state into a new snapshot.
func (st *snapshotStore) capture(m Model, nPast int) (*Snapshot, error) {
	if m == nil {
		return nil, ErrModelIsNil
	}
	size := m.StateSize()
	if size < 0 {
		return nil, &SnapshotError{Op: "capture", Got: size, Err: ErrStateSizeMismatch}
	}
	if st.limit > 0 && st.liveBytes+uint64(size) > st.limit {
		return nil, &SnapshotError{Op: "capture", Want: int(st.limit - st.liveBytes), Got: size, Err: ErrAllocation}
	}

	buf := make([]byte, size)
	n, err := m.CopyState(buf)
	if err != nil {
		return nil, &SnapshotError{Op: "capture", Want: size, Got: n, Err: err}
	}
	if n != size {
		return nil, &SnapshotError{Op: "capture", Want: size, Got: n, Err: ErrStateSizeMismatch}
	}

	s := &Snapshot{store: st, data: buf, size: size, nPast: nPast}
	if st.compress {
		s.data = packBlock(buf)
		s.packed = true
	}

	st.live++
	st.liveBytes += uint64(len(s.data))
	st.peakBytes = max(st.peakBytes, st.liveBytes)
	st.captured++
	st.metrics.snapshotCaptured(len(s.data))
	return s, nil
}

func (st *snapshotStore) release(s *Snapshot) {
	st.live--
	st.liveBytes -= uint64(len(s.data))
	st.metrics.snapshotReleased(len(s.data))
}

// packBlock lz4-compresses data behind a header. Data that does not shrink
// below 90% is stored raw.
func packBlock(data []byte) []byte {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil || n == 0 || float64(n) > float64(len(data))*0.9 {
		result := make([]byte, packedHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0)
		copy(result[packedHeaderSize:], data)
		return result
	}

	result := make([]byte, packedHeaderSize+n)
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(n))
	copy(result[packedHeaderSize:], compressed[:n])
	return result
}
