package streamledger

import "sync"

const lockStripes = 64

// stripedLock serializes work per stream id. Streams hashing to different
// stripes proceed in parallel.
type stripedLock struct {
	stripes [lockStripes]sync.Mutex
}

func (s *stripedLock) lock(streamID uint64) func() {
	m := &s.stripes[streamID%lockStripes]
	m.Lock()
	return m.Unlock
}
