package storage

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// EvictionListener is notified whenever the buffer pool evicts a frame to
// make room for another page. It is called while the pool's lock is held,
// so implementations must not call back into the BufferPoolManager.
type EvictionListener func(frameID FrameID, pageID PageID, wasDirty bool)

// FetchListener is notified after every FetchPage call that returns a page,
// with the time spent and whether the page was already resident. A fetch
// that fails (no frame could be freed, or the disk read failed) does not
// notify it. Called while the
// pool's lock is held; implementations must not call back into the
// BufferPoolManager.
type FetchListener func(duration time.Duration, hit bool)

// PageLifecycleListener is notified after a page is allocated (NewPage) or
// deleted (DeletePage). Called while the pool's lock is held.
type PageLifecycleListener func()

// DiskIOListener is notified after a page is read from or written to the
// disk backend, with the number of bytes transferred. Called while the
// pool's lock is held.
type DiskIOListener func(bytes uint64)

// DiskBackend is the disk-side collaborator a BufferPoolManager drives on
// cache miss and writeback. *DiskManager satisfies it directly; the
// compression and encryption packages each wrap a *DiskManager with a
// transparent page codec and satisfy it the same way, so either can be
// handed to NewBufferPoolManager in place of a raw DiskManager.
type DiskBackend interface {
	AllocatePage() (PageID, error)
	ReadPage(pageID PageID) (*Page, error)
	WritePage(page *Page) error
	DeallocatePage(pageID PageID) error
}

// frameSlot is the buffer pool's bookkeeping for one frame: the resident
// page and its pin count. Pin count lives here, not on Page, because it is
// a property of the frame leasing the page, not of the page's content.
type frameSlot struct {
	page     *Page
	pinCount int
}

// BufferPoolManager leases a fixed number of in-memory frames over a disk
// file, using an LRU-K replacer to choose victims when every frame is
// pinned or resident.
//
// Lock ordering is fixed to preclude deadlock: BufferPoolManager.mu, then
// the replacer's internal lock, then the disk manager's internal lock.
// Every exported method here acquires mu first and only then calls into
// the replacer or disk manager, so callers never need to think about
// ordering themselves.
type BufferPoolManager struct {
	mu sync.RWMutex

	poolSize int
	diskMgr  DiskBackend
	replacer *LRUKReplacer

	frames    []frameSlot
	freeList  *list.List // FrameID, FIFO: PushBack on free, pop from Front on allocate
	pageTable map[PageID]FrameID

	onEvict         EvictionListener
	onFetch         FetchListener
	onPageAllocated PageLifecycleListener
	onPageDeleted   PageLifecycleListener
	onDiskRead      DiskIOListener
	onDiskWrite     DiskIOListener

	hits      int
	misses    int
	evictions int
}

// NewBufferPoolManager creates a pool of poolSize frames backed by
// diskMgr, using a look-back window of k accesses for eviction decisions.
func NewBufferPoolManager(poolSize int, k int, diskMgr DiskBackend) *BufferPoolManager {
	bpm := &BufferPoolManager{
		poolSize:  poolSize,
		diskMgr:   diskMgr,
		replacer:  NewLRUKReplacer(poolSize, k),
		frames:    make([]frameSlot, poolSize),
		freeList:  list.New(),
		pageTable: make(map[PageID]FrameID, poolSize),
	}
	for i := 0; i < poolSize; i++ {
		bpm.freeList.PushBack(FrameID(i))
	}
	return bpm
}

// SetEvictionListener registers a callback fired after each eviction. Pass
// nil to stop notifications.
func (bpm *BufferPoolManager) SetEvictionListener(l EvictionListener) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	bpm.onEvict = l
}

// SetFetchListener registers a callback fired after each FetchPage call.
// Pass nil to stop notifications.
func (bpm *BufferPoolManager) SetFetchListener(l FetchListener) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	bpm.onFetch = l
}

// SetPageAllocatedListener registers a callback fired after each successful
// NewPage call. Pass nil to stop notifications.
func (bpm *BufferPoolManager) SetPageAllocatedListener(l PageLifecycleListener) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	bpm.onPageAllocated = l
}

// SetPageDeletedListener registers a callback fired after each successful
// DeletePage call. Pass nil to stop notifications.
func (bpm *BufferPoolManager) SetPageDeletedListener(l PageLifecycleListener) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	bpm.onPageDeleted = l
}

// SetDiskReadListener registers a callback fired after each page read from
// the disk backend. Pass nil to stop notifications.
func (bpm *BufferPoolManager) SetDiskReadListener(l DiskIOListener) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	bpm.onDiskRead = l
}

// SetDiskWriteListener registers a callback fired after each page written
// to the disk backend. Pass nil to stop notifications.
func (bpm *BufferPoolManager) SetDiskWriteListener(l DiskIOListener) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	bpm.onDiskWrite = l
}

// NewPage allocates a fresh page on disk and pins it into a frame. It
// returns (nil, false) if every frame is pinned and no frame is evictable.
func (bpm *BufferPoolManager) NewPage() (*Page, bool) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.allocateFrame()
	if !ok {
		return nil, false
	}

	pageID, err := bpm.diskMgr.AllocatePage()
	if err != nil {
		bpm.freeList.PushBack(frameID)
		return nil, false
	}

	page := NewPage(pageID, PageTypeData)
	page.MarkDirty()

	bpm.frames[frameID] = frameSlot{page: page, pinCount: 1}
	bpm.pageTable[pageID] = frameID
	bpm.replacer.RecordAccess(frameID, AccessLookup)
	bpm.replacer.SetEvictable(frameID, false)

	if bpm.onPageAllocated != nil {
		bpm.onPageAllocated()
	}

	return page, true
}

// FetchPage returns the page for pageID, reading it from disk and pinning
// it into a frame if it is not already resident. It returns (nil, false)
// if the page must be brought in but no frame can be freed for it.
func (bpm *BufferPoolManager) FetchPage(pageID PageID, accessType AccessType) (*Page, bool) {
	start := time.Now()
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	if frameID, exists := bpm.pageTable[pageID]; exists {
		slot := &bpm.frames[frameID]
		slot.pinCount++
		if slot.pinCount == 1 {
			bpm.replacer.SetEvictable(frameID, false)
		}
		bpm.replacer.RecordAccess(frameID, accessType)
		bpm.hits++
		if bpm.onFetch != nil {
			bpm.onFetch(time.Since(start), true)
		}
		return slot.page, true
	}

	bpm.misses++

	frameID, ok := bpm.allocateFrame()
	if !ok {
		return nil, false
	}

	page, err := bpm.diskMgr.ReadPage(pageID)
	if err != nil {
		bpm.freeList.PushBack(frameID)
		return nil, false
	}
	if bpm.onDiskRead != nil {
		bpm.onDiskRead(PageSize)
	}

	bpm.frames[frameID] = frameSlot{page: page, pinCount: 1}
	bpm.pageTable[pageID] = frameID
	bpm.replacer.RecordAccess(frameID, accessType)
	bpm.replacer.SetEvictable(frameID, false)

	if bpm.onFetch != nil {
		bpm.onFetch(time.Since(start), false)
	}

	return page, true
}

// UnpinPage releases one pin held on pageID. If isDirty is true the page's
// dirty flag is set; it is never cleared here, only by FlushPage. It
// returns false if pageID is not resident or already has no pins to
// release.
func (bpm *BufferPoolManager) UnpinPage(pageID PageID, isDirty bool) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, exists := bpm.pageTable[pageID]
	if !exists {
		return false
	}

	slot := &bpm.frames[frameID]
	if slot.pinCount <= 0 {
		return false
	}

	if isDirty {
		slot.page.MarkDirty()
	}
	slot.pinCount--
	if slot.pinCount == 0 {
		bpm.replacer.SetEvictable(frameID, true)
	}

	return true
}

// FlushPage writes pageID's content to disk, whether or not it is dirty, and
// clears the dirty flag. It returns false if pageID is not resident or the
// write fails.
func (bpm *BufferPoolManager) FlushPage(pageID PageID) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	return bpm.flushLocked(pageID)
}

func (bpm *BufferPoolManager) flushLocked(pageID PageID) bool {
	frameID, exists := bpm.pageTable[pageID]
	if !exists {
		return false
	}

	page := bpm.frames[frameID].page
	if err := bpm.diskMgr.WritePage(page); err != nil {
		return false
	}
	if bpm.onDiskWrite != nil {
		bpm.onDiskWrite(PageSize)
	}
	page.IsDirty = false
	return true
}

// FlushAllPages writes every dirty resident page to disk. It returns the
// first error encountered but still attempts every page.
func (bpm *BufferPoolManager) FlushAllPages() error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	var firstErr error
	for pageID := range bpm.pageTable {
		if !bpm.flushLocked(pageID) {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to flush page %d", pageID)
			}
		}
	}
	return firstErr
}

// DeletePage removes a resident, unpinned page from the pool and frees its
// page on disk. It returns false if pageID is not resident, is still
// pinned, or the disk deallocation fails; in the first two cases the pool
// is left untouched.
func (bpm *BufferPoolManager) DeletePage(pageID PageID) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, exists := bpm.pageTable[pageID]
	if !exists {
		return false
	}
	if bpm.frames[frameID].pinCount > 0 {
		return false
	}

	bpm.replacer.Remove(frameID)
	delete(bpm.pageTable, pageID)
	bpm.frames[frameID] = frameSlot{}
	bpm.freeList.PushBack(frameID)

	if err := bpm.diskMgr.DeallocatePage(pageID); err != nil {
		return false
	}

	if bpm.onPageDeleted != nil {
		bpm.onPageDeleted()
	}

	return true
}

// allocateFrame returns a free frame, evicting one via the replacer if the
// free list is empty. A dirty victim is flushed to disk before its frame
// is handed out. It returns (0, false) if no frame can be freed.
func (bpm *BufferPoolManager) allocateFrame() (FrameID, bool) {
	if front := bpm.freeList.Front(); front != nil {
		bpm.freeList.Remove(front)
		return front.Value.(FrameID), true
	}

	victim, ok := bpm.replacer.Evict()
	if !ok {
		return 0, false
	}

	evicted := bpm.frames[victim]
	wasDirty := evicted.page.IsDirty
	if wasDirty {
		if err := bpm.diskMgr.WritePage(evicted.page); err != nil {
			// Put the victim back rather than lose the frame entirely;
			// the caller sees allocation failure and may retry.
			bpm.replacer.RecordAccess(victim, AccessLookup)
			bpm.replacer.SetEvictable(victim, true)
			return 0, false
		}
		if bpm.onDiskWrite != nil {
			bpm.onDiskWrite(PageSize)
		}
	}

	delete(bpm.pageTable, evicted.page.ID)
	bpm.frames[victim] = frameSlot{}
	bpm.evictions++

	if bpm.onEvict != nil {
		bpm.onEvict(victim, evicted.page.ID, wasDirty)
	}

	return victim, true
}

// Size returns the number of pages currently resident in the pool.
func (bpm *BufferPoolManager) Size() int {
	bpm.mu.RLock()
	defer bpm.mu.RUnlock()
	return len(bpm.pageTable)
}

// FreeListLen returns the number of frames that are free without needing
// an eviction.
func (bpm *BufferPoolManager) FreeListLen() int {
	bpm.mu.RLock()
	defer bpm.mu.RUnlock()
	return bpm.freeList.Len()
}

// GetPinCount returns the pin count of a resident page.
func (bpm *BufferPoolManager) GetPinCount(pageID PageID) (int, bool) {
	bpm.mu.RLock()
	defer bpm.mu.RUnlock()
	frameID, exists := bpm.pageTable[pageID]
	if !exists {
		return 0, false
	}
	return bpm.frames[frameID].pinCount, true
}

// GetIsDirty reports whether a resident page has unflushed modifications.
func (bpm *BufferPoolManager) GetIsDirty(pageID PageID) (bool, bool) {
	bpm.mu.RLock()
	defer bpm.mu.RUnlock()
	frameID, exists := bpm.pageTable[pageID]
	if !exists {
		return false, false
	}
	return bpm.frames[frameID].page.IsDirty, true
}

// Stats returns a snapshot of buffer pool counters for introspection.
func (bpm *BufferPoolManager) Stats() map[string]interface{} {
	bpm.mu.RLock()
	defer bpm.mu.RUnlock()

	total := bpm.hits + bpm.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(bpm.hits) / float64(total) * 100
	}

	dirtyPages := 0
	for _, frameID := range bpm.pageTable {
		if bpm.frames[frameID].page.IsDirty {
			dirtyPages++
		}
	}

	return map[string]interface{}{
		"pool_size":   bpm.poolSize,
		"size":        len(bpm.pageTable),
		"free_frames": bpm.freeList.Len(),
		"dirty_pages": dirtyPages,
		"hits":        bpm.hits,
		"misses":      bpm.misses,
		"evictions":   bpm.evictions,
		"hit_rate":    hitRate,
	}
}
