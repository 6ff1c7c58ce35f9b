package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnohosten/laura-db/pkg/compression"
	"github.com/mnohosten/laura-db/pkg/encryption"
	gql "github.com/mnohosten/laura-db/pkg/graphql"
	"github.com/mnohosten/laura-db/pkg/metrics"
	"github.com/mnohosten/laura-db/pkg/server/handlers"
	"github.com/mnohosten/laura-db/pkg/storage"
)

// Server is the admin/observability HTTP surface in front of a buffer
// pool manager. It never drives the pool's pin/unpin protocol itself;
// every route is a read-only window onto state the pool already
// maintains (see SPEC_FULL.md §6).
type Server struct {
	config           *Config
	bpm              *storage.BufferPoolManager
	diskMgr          *storage.DiskManager
	closeBackend     func() error
	router           *chi.Mux
	httpSrv          *http.Server
	startTime        time.Time
	metricsCollector *metrics.MetricsCollector
	resourceTracker  *metrics.ResourceTracker
	promExporter     *metrics.PrometheusExporter
	evictionStream   *handlers.EvictionStreamManager
}

// New creates a new HTTP server instance fronting a freshly opened buffer
// pool.
func New(config *Config) (*Server, error) {
	if config.EnableTLS {
		if config.TLSCertFile == "" || config.TLSKeyFile == "" {
			return nil, fmt.Errorf("TLS enabled but certificate or key file not specified")
		}
		if _, err := os.Stat(config.TLSCertFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS certificate file not found: %s", config.TLSCertFile)
		}
		if _, err := os.Stat(config.TLSKeyFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS key file not found: %s", config.TLSKeyFile)
		}
	}

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	backend, rawDiskMgr, closeBackend, err := openDiskBackend(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open disk backend: %w", err)
	}

	bpm := storage.NewBufferPoolManager(config.BufferSize, config.ReplacerK, backend)

	metricsCollector := metrics.NewMetricsCollector()
	resourceTracker := metrics.NewResourceTracker(nil)
	promExporter := metrics.NewPrometheusExporter(metricsCollector, resourceTracker)

	bpm.SetFetchListener(metricsCollector.RecordFetch)
	bpm.SetPageAllocatedListener(metricsCollector.RecordPageAllocated)
	bpm.SetPageDeletedListener(metricsCollector.RecordPageDeleted)
	bpm.SetDiskReadListener(resourceTracker.RecordRead)
	bpm.SetDiskWriteListener(resourceTracker.RecordWrite)

	srv := &Server{
		config:           config,
		bpm:              bpm,
		diskMgr:          rawDiskMgr,
		closeBackend:     closeBackend,
		router:           chi.NewRouter(),
		startTime:        time.Now(),
		metricsCollector: metricsCollector,
		resourceTracker:  resourceTracker,
		promExporter:     promExporter,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	if config.EnableGraphQL {
		if err := srv.setupGraphQLRoutes(); err != nil {
			return nil, fmt.Errorf("failed to setup GraphQL routes: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return srv, nil
}

// openDiskBackend opens the disk-side collaborator selected by the page
// codec configuration. It returns the DiskBackend to hand the buffer pool,
// the underlying *storage.DiskManager for the admin stats endpoint (nil
// when a codec wrapper is in front of it, since the wrappers don't expose
// one directly), and a close function.
func openDiskBackend(config *Config) (storage.DiskBackend, *storage.DiskManager, func() error, error) {
	path := filepath.Join(config.DataDir, "pool.db")

	if config.EncryptionPassword != "" {
		encConfig, err := encryption.NewConfigFromPassword(config.EncryptionPassword, encryption.AlgorithmAES256GCM)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		edm, err := encryption.NewEncryptedDiskManager(path, encConfig)
		if err != nil {
			return nil, nil, nil, err
		}
		return edm, nil, edm.Close, nil
	}

	if algo, ok := compressionAlgorithm(config.CompressionAlgorithm); ok && algo != compression.AlgorithmNone {
		cdm, err := compression.NewCompressedDiskManager(path, &compression.Config{Algorithm: algo, Level: 3})
		if err != nil {
			return nil, nil, nil, err
		}
		return cdm, nil, cdm.Close, nil
	}

	dm, err := storage.NewDiskManager(path)
	if err != nil {
		return nil, nil, nil, err
	}
	return dm, dm, dm.Close, nil
}

func compressionAlgorithm(name string) (compression.Algorithm, bool) {
	switch name {
	case "snappy":
		return compression.AlgorithmSnappy, true
	case "zstd":
		return compression.AlgorithmZstd, true
	case "gzip":
		return compression.AlgorithmGzip, true
	case "zlib":
		return compression.AlgorithmZlib, true
	case "", "none":
		return compression.AlgorithmNone, true
	default:
		return compression.AlgorithmNone, false
	}
}

// setupMiddleware configures the HTTP middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableLogging {
		s.router.Use(middleware.Logger)
	}

	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}

	s.router.Use(s.requestSizeLimitMiddleware)
	s.router.Use(s.connectionMetricsMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

// connectionMetricsMiddleware records each in-flight HTTP request as a
// connection for the /_metrics surface.
func (s *Server) connectionMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metricsCollector.RecordConnectionStart()
		defer s.metricsCollector.RecordConnectionEnd()
		next.ServeHTTP(w, r)
	})
}

// setupRoutes configures the admin/observability HTTP routes named in
// SPEC_FULL.md §6.
func (s *Server) setupRoutes() {
	h := handlers.New(s.bpm, s.diskMgr, s.metricsCollector, s.resourceTracker)

	s.evictionStream = handlers.SetupEvictionStreamRoutes(s.router, h, s.bpm)

	s.router.Get("/_health", s.jsonContentType(h.Health(s.startTime)))
	s.router.Get("/_stats", s.jsonContentType(h.GetStats))
	s.router.Get("/_pages/{id}", s.jsonContentType(h.GetPage))
	s.router.Get("/_metrics", s.handlePrometheusMetrics)
}

// setupGraphQLRoutes configures GraphQL routes.
func (s *Server) setupGraphQLRoutes() error {
	graphqlHandler, err := gql.NewHandler(s.bpm)
	if err != nil {
		return fmt.Errorf("failed to create GraphQL handler: %w", err)
	}

	s.router.Post("/graphql", graphqlHandler.ServeHTTP)
	s.router.Get("/graphiql", gql.GraphiQLHandler())

	fmt.Println("GraphQL API enabled at /graphql (GraphiQL at /graphiql)")
	return nil
}

// jsonContentType wraps a handler to set the JSON content type.
func (s *Server) jsonContentType(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

// corsMiddleware handles CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.config.AllowedOrigins) > 0 {
			origin = s.config.AllowedOrigins[0]
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestSizeLimitMiddleware limits request body size.
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

// handlePrometheusMetrics handles the Prometheus metrics endpoint.
func (s *Server) handlePrometheusMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := s.promExporter.WriteMetrics(w); err != nil {
		http.Error(w, fmt.Sprintf("Error writing metrics: %v", err), http.StatusInternalServerError)
	}
}

// Start starts the HTTP server. It blocks until shutdown.
func (s *Server) Start() error {
	protocol := "http"
	if s.config.EnableTLS {
		protocol = "https"
		fmt.Printf("TLS/SSL enabled, certificate: %s\n", s.config.TLSCertFile)
	}
	fmt.Printf("laura-db buffer pool admin server starting on %s://%s:%d\n", protocol, s.config.Host, s.config.Port)
	fmt.Printf("data directory: %s\n", s.config.DataDir)
	fmt.Printf("buffer pool: %d frames, LRU-%d\n", s.config.BufferSize, s.config.ReplacerK)

	errChan := make(chan error, 1)
	go func() {
		var err error
		if s.config.EnableTLS {
			err = s.httpSrv.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		fmt.Printf("\nreceived signal: %v\n", sig)
		return s.Shutdown()
	}
}

// BufferPool returns the buffer pool manager fronted by this server.
func (s *Server) BufferPool() *storage.BufferPoolManager {
	return s.bpm
}

// GetMetricsCollector returns the metrics collector.
func (s *Server) GetMetricsCollector() *metrics.MetricsCollector {
	return s.metricsCollector
}

// GetResourceTracker returns the resource tracker.
func (s *Server) GetResourceTracker() *metrics.ResourceTracker {
	return s.resourceTracker
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	fmt.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		fmt.Printf("server shutdown error: %v\n", err)
	}

	if s.evictionStream != nil {
		if err := s.evictionStream.Close(); err != nil {
			fmt.Printf("warning: error closing eviction stream manager: %v\n", err)
		}
	}

	if s.resourceTracker != nil {
		s.resourceTracker.Disable()
	}

	if err := s.bpm.FlushAllPages(); err != nil {
		fmt.Printf("warning: error flushing pages on shutdown: %v\n", err)
	}

	if s.closeBackend != nil {
		if err := s.closeBackend(); err != nil {
			fmt.Printf("disk backend close error: %v\n", err)
			return err
		}
	}

	fmt.Println("server shutdown complete")
	return nil
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("error encoding JSON response: %v\n", err)
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	response := map[string]interface{}{
		"ok":      false,
		"error":   errorType,
		"message": message,
		"code":    statusCode,
	}
	WriteJSON(w, statusCode, response)
}

// WriteSuccess writes a success response.
func WriteSuccess(w http.ResponseWriter, result interface{}) {
	response := map[string]interface{}{
		"ok":     true,
		"result": result,
	}
	WriteJSON(w, http.StatusOK, response)
}
