package graphql

import "github.com/mnohosten/laura-db/pkg/storage"

// bufferPoolStats is the shape returned to the bufferPoolStats query.
type bufferPoolStats struct {
	PoolSize   int     `json:"poolSize"`
	Size       int     `json:"size"`
	FreeFrames int     `json:"freeFrames"`
	Hits       int     `json:"hits"`
	Misses     int     `json:"misses"`
	Evictions  int     `json:"evictions"`
	HitRate    float64 `json:"hitRate"`
}

func resolveBufferPoolStats(bpm *storage.BufferPoolManager) bufferPoolStats {
	stats := bpm.Stats()
	return bufferPoolStats{
		PoolSize:   stats["pool_size"].(int),
		Size:       stats["size"].(int),
		FreeFrames: stats["free_frames"].(int),
		Hits:       stats["hits"].(int),
		Misses:     stats["misses"].(int),
		Evictions:  stats["evictions"].(int),
		HitRate:    stats["hit_rate"].(float64),
	}
}

// pageInfo is the shape returned to the page query.
type pageInfo struct {
	PageID   int  `json:"pageId"`
	PinCount int  `json:"pinCount"`
	IsDirty  bool `json:"isDirty"`
	Resident bool `json:"resident"`
}

func resolvePageInfo(bpm *storage.BufferPoolManager, pageID storage.PageID) pageInfo {
	pinCount, resident := bpm.GetPinCount(pageID)
	isDirty, _ := bpm.GetIsDirty(pageID)
	return pageInfo{
		PageID:   int(pageID),
		PinCount: pinCount,
		IsDirty:  isDirty,
		Resident: resident,
	}
}
