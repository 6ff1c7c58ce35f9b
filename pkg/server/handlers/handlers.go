package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mnohosten/laura-db/pkg/metrics"
	"github.com/mnohosten/laura-db/pkg/storage"
)

// Handlers holds the buffer pool and disk manager instances fronted by the
// admin HTTP surface, plus the metrics collector the eviction listener
// reports into and the resource tracker backing the CPU/memory/IO trends in
// GetStats. None of these handlers bypass the buffer pool's locking or its
// pin/unpin protocol: every response here is read through the same public
// introspection methods the storage package's own tests use.
type Handlers struct {
	bpm             *storage.BufferPoolManager
	diskMgr         *storage.DiskManager
	metrics         *metrics.MetricsCollector
	resourceTracker *metrics.ResourceTracker
}

// New creates a new Handlers instance.
func New(bpm *storage.BufferPoolManager, diskMgr *storage.DiskManager, collector *metrics.MetricsCollector, resourceTracker *metrics.ResourceTracker) *Handlers {
	return &Handlers{bpm: bpm, diskMgr: diskMgr, metrics: collector, resourceTracker: resourceTracker}
}

// PageNotFoundError reports a page id with no resident frame.
type PageNotFoundError struct {
	PageID storage.PageID
}

func (e *PageNotFoundError) Error() string {
	return "page not resident"
}

// BadRequestError reports a malformed request.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// writeError writes an error response with appropriate HTTP status code.
func writeError(w http.ResponseWriter, err error) {
	var statusCode int
	var errorType string
	var message string

	switch e := err.(type) {
	case *BadRequestError:
		statusCode = http.StatusBadRequest
		errorType = "BadRequest"
		message = e.Message
	case *PageNotFoundError:
		statusCode = http.StatusNotFound
		errorType = "PageNotFound"
		message = e.Error()
	default:
		statusCode = http.StatusInternalServerError
		errorType = "InternalError"
		message = err.Error()
	}

	response := map[string]interface{}{
		"ok":      false,
		"error":   errorType,
		"message": message,
		"code":    statusCode,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// writeSuccess writes a success response.
func writeSuccess(w http.ResponseWriter, result interface{}) {
	response := map[string]interface{}{
		"ok":     true,
		"result": result,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
