package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mnohosten/laura-db/pkg/storage"
)

// Health returns a health check handler.
func (h *Handlers) Health(startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := time.Since(startTime)
		result := map[string]interface{}{
			"status": "healthy",
			"uptime": uptime.String(),
			"time":   time.Now().Format(time.RFC3339),
		}
		writeSuccess(w, result)
	}
}

// GetStats returns combined buffer pool and disk manager statistics: the
// §6 `/_stats` window onto the same counters `/graphql`'s bufferPoolStats
// query and `/_metrics`'s Prometheus exposition report.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	result := map[string]interface{}{
		"buffer_pool": h.bpm.Stats(),
	}
	if h.diskMgr != nil {
		result["disk"] = h.diskMgr.Stats()
	}
	if h.resourceTracker != nil {
		result["resource_trends"] = h.resourceTracker.GetTrends()
	}
	writeSuccess(w, result)
}

// GetPage reports a single page's residency, pin count, and dirty flag. It
// wraps the BufferPoolManager's GetPinCount/GetIsDirty test hooks for
// operational use rather than reaching past them at the pool's internals.
func (h *Handlers) GetPage(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil {
		writeError(w, &BadRequestError{Message: "invalid page id: " + idParam})
		return
	}

	pageID := storage.PageID(id)
	pinCount, resident := h.bpm.GetPinCount(pageID)
	if !resident {
		writeError(w, &PageNotFoundError{PageID: pageID})
		return
	}
	isDirty, _ := h.bpm.GetIsDirty(pageID)

	writeSuccess(w, map[string]interface{}{
		"page_id":   uint32(pageID),
		"resident":  resident,
		"pin_count": pinCount,
		"is_dirty":  isDirty,
	})
}
