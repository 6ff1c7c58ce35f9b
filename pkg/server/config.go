package server

import "time"

// Config holds server configuration settings.
type Config struct {
	Host           string        // Server host address
	Port           int           // Server port
	DataDir        string        // Directory holding the buffer pool's backing data file
	BufferSize     int           // Buffer pool size in frames (1 frame = 4KB). Default: 1000 (~4MB)
	ReplacerK      int           // LRU-K look-back window
	ReadTimeout    time.Duration // HTTP read timeout
	WriteTimeout   time.Duration // HTTP write timeout
	IdleTimeout    time.Duration // HTTP idle timeout
	MaxRequestSize int64         // Maximum request body size in bytes
	EnableCORS     bool          // Enable CORS middleware
	AllowedOrigins []string      // CORS allowed origins
	AllowedMethods []string      // CORS allowed methods
	AllowedHeaders []string      // CORS allowed headers
	EnableLogging  bool          // Enable request logging
	LogFormat      string        // Log format (text or json)

	// TLS/SSL configuration
	EnableTLS   bool   // Enable TLS/SSL
	TLSCertFile string // Path to TLS certificate file
	TLSKeyFile  string // Path to TLS private key file

	// GraphQL configuration
	EnableGraphQL bool // Enable GraphQL API endpoint

	// Page codec configuration. At most one of these takes effect; when
	// both are set, encryption wins (see Server.openDiskBackend). Chaining
	// both codecs would require the compression and encryption packages
	// to accept an arbitrary DiskBackend instead of opening their own data
	// file, which is out of scope for this repository's buffer pool.
	CompressionAlgorithm string // "", "none", "snappy", "zstd", "gzip", "zlib"
	EncryptionPassword   string // non-empty enables AES-256-GCM, key derived via PBKDF2
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           8080,
		DataDir:        "./data",
		BufferSize:     1000, // 1000 frames = ~4MB buffer pool
		ReplacerK:      2,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxRequestSize: 10 * 1024 * 1024, // 10MB
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		EnableLogging:  true,
		LogFormat:      "text",
		EnableTLS:      false,
		TLSCertFile:    "",
		TLSKeyFile:     "",
		EnableGraphQL:  false,
	}
}
