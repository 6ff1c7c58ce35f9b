package storage

import (
	"fmt"
	"sync"
)

// FrameID identifies a slot in the buffer pool's frame array.
type FrameID int32

// LRUKReplacer implements the LRU-K replacement policy.
//
// Backward k-distance for a frame is the difference between the current
// timestamp and the timestamp of its k-th most recent access. A frame with
// fewer than k recorded accesses has infinite backward k-distance and is
// always preferred for eviction over a frame that has seen k or more
// accesses; ties within a tier go to the frame whose oldest tracked access
// is earliest.
//
// Only frames marked evictable are eviction candidates. A frame becomes
// evictable when its pinning buffer pool releases its last pin.
type LRUKReplacer struct {
	mu sync.Mutex

	clock        uint64
	k            int
	replacerSize int
	currSize     int

	// history holds up to k timestamps per frame, oldest first. Once a
	// frame has k entries, history[0] is exactly its k-th most recent
	// access and doubles as the backward k-distance anchor.
	history   map[FrameID][]uint64
	evictable map[FrameID]bool
}

// NewLRUKReplacer creates a replacer over numFrames frames using a
// look-back window of k accesses.
func NewLRUKReplacer(numFrames int, k int) *LRUKReplacer {
	return &LRUKReplacer{
		k:            k,
		replacerSize: numFrames,
		history:      make(map[FrameID][]uint64),
		evictable:    make(map[FrameID]bool),
	}
}

// RecordAccess notes that frameID was accessed now. It creates a fresh
// history entry the first time a frame is seen.
//
// RecordAccess panics if frameID is outside the range the replacer was
// constructed for; that is a caller bug, not a recoverable condition.
func (r *LRUKReplacer) RecordAccess(frameID FrameID, accessType AccessType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkFrameID(frameID)

	ts := r.clock
	r.clock++

	hist := append(r.history[frameID], ts)
	if len(hist) > r.k {
		hist = hist[len(hist)-r.k:]
	}
	r.history[frameID] = hist

	if _, ok := r.evictable[frameID]; !ok {
		r.evictable[frameID] = false
	}
}

// Evict selects the frame with the largest backward k-distance among
// evictable frames, removes it from the replacer along with its access
// history, and returns it. It returns (0, false) if no frame is evictable.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currSize == 0 {
		return 0, false
	}

	victim, found := r.pickVictim(true)
	if !found {
		victim, found = r.pickVictim(false)
	}
	if !found {
		return 0, false
	}

	r.clearFrame(victim)
	return victim, true
}

// pickVictim scans evictable frames for the oldest-first-access candidate.
// When infiniteTier is true it only considers frames with fewer than k
// recorded accesses; otherwise only frames with a full k-entry history.
func (r *LRUKReplacer) pickVictim(infiniteTier bool) (FrameID, bool) {
	var victim FrameID
	var oldest uint64
	found := false

	for fid, evict := range r.evictable {
		if !evict {
			continue
		}
		hist := r.history[fid]
		inTier := len(hist) < r.k
		if inTier != infiniteTier {
			continue
		}
		if !found || hist[0] < oldest {
			victim, oldest, found = fid, hist[0], true
		}
	}
	return victim, found
}

// SetEvictable toggles whether a frame may be chosen by Evict. It also
// adjusts Size, which tracks the number of evictable frames rather than
// the number of tracked frames.
//
// SetEvictable panics if frameID is outside the replacer's range. It is a
// no-op if frameID has no recorded access.
func (r *LRUKReplacer) SetEvictable(frameID FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkFrameID(frameID)

	if _, ok := r.history[frameID]; !ok {
		return
	}

	switch {
	case evictable && !r.evictable[frameID]:
		r.currSize++
	case !evictable && r.evictable[frameID]:
		r.currSize--
	}
	r.evictable[frameID] = evictable
}

// Remove drops a specific evictable frame and its history, independent of
// its backward k-distance. It is a no-op if frameID has no recorded
// access, and panics if frameID names a frame that exists but is not
// evictable.
func (r *LRUKReplacer) Remove(frameID FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkFrameID(frameID)

	if _, ok := r.history[frameID]; !ok {
		return
	}
	if !r.evictable[frameID] {
		panic(fmt.Errorf("replacer: frame %d is not evictable, cannot remove", frameID))
	}

	r.clearFrame(frameID)
}

// Size returns the number of evictable frames tracked by the replacer.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currSize
}

func (r *LRUKReplacer) clearFrame(frameID FrameID) {
	delete(r.history, frameID)
	delete(r.evictable, frameID)
	r.currSize--
}

func (r *LRUKReplacer) checkFrameID(frameID FrameID) {
	if frameID < 0 || int(frameID) >= r.replacerSize {
		panic(fmt.Errorf("replacer: frame id %d exceeds replacer size %d", frameID, r.replacerSize))
	}
}
