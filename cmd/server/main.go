package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mnohosten/laura-db/pkg/server"
)

func main() {
	host := flag.String("host", "localhost", "Server host address")
	port := flag.Int("port", 8080, "Server port")
	dataDir := flag.String("data-dir", "./data", "Data directory for the buffer pool's backing data file")
	bufferSize := flag.Int("buffer-size", 1000, "Buffer pool size in frames (1 frame = 4KB, default 1000 = ~4MB)")
	replacerK := flag.Int("replacer-k", 2, "LRU-K look-back window")
	corsOrigin := flag.String("cors-origin", "*", "CORS allowed origin")
	enableTLS := flag.Bool("tls", false, "Enable TLS/SSL")
	tlsCert := flag.String("tls-cert", "", "Path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "Path to TLS private key file")
	enableGraphQL := flag.Bool("graphql", false, "Enable GraphQL API endpoint (/graphql) and GraphiQL playground (/graphiql)")
	compressionAlgo := flag.String("compression", "", "Page compression algorithm: none, snappy, zstd, gzip, zlib")
	encryptionPassword := flag.String("encryption-password", "", "Enable AES-256-GCM page encryption derived from this password")
	flag.Parse()

	config := server.DefaultConfig()
	config.Host = *host
	config.Port = *port
	config.DataDir = *dataDir
	config.BufferSize = *bufferSize
	config.ReplacerK = *replacerK
	config.AllowedOrigins = []string{*corsOrigin}
	config.EnableTLS = *enableTLS
	config.TLSCertFile = *tlsCert
	config.TLSKeyFile = *tlsKey
	config.EnableGraphQL = *enableGraphQL
	config.CompressionAlgorithm = *compressionAlgo
	config.EncryptionPassword = *encryptionPassword

	srv, err := server.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
