package compression

import (
	"encoding/binary"
	"fmt"

	"github.com/mnohosten/laura-db/pkg/storage"
)

// CompressedPageHeaderSize is the size of the compressed page header:
// [1-byte algorithm][4-byte original size][4-byte compressed size]
const CompressedPageHeaderSize = 9

// CompressedDiskManager wraps a DiskManager with transparent page
// compression. Like EncryptedDiskManager, it must fit its encoded output
// plus header inside a page's fixed data capacity, because the underlying
// disk manager addresses pages at fixed pageID*PageSize offsets and cannot
// grow a page to hold a longer record.
type CompressedDiskManager struct {
	diskMgr    *storage.DiskManager
	compressor *Compressor
}

// NewCompressedDiskManager creates a new compressed disk manager.
func NewCompressedDiskManager(path string, config *Config) (*CompressedDiskManager, error) {
	diskMgr, err := storage.NewDiskManager(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk manager: %w", err)
	}

	compressor, err := NewCompressor(config)
	if err != nil {
		diskMgr.Close()
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}

	return &CompressedDiskManager{
		diskMgr:    diskMgr,
		compressor: compressor,
	}, nil
}

// ReadPage reads and decompresses a page from disk.
func (cdm *CompressedDiskManager) ReadPage(pageID storage.PageID) (*storage.Page, error) {
	page, err := cdm.diskMgr.ReadPage(pageID)
	if err != nil {
		return nil, err
	}

	if cdm.compressor.config.Algorithm == AlgorithmNone {
		return page, nil
	}

	if len(page.Data) < CompressedPageHeaderSize {
		return page, nil
	}

	algorithm := Algorithm(page.Data[0])
	if algorithm == AlgorithmNone {
		return page, nil
	}
	if algorithm != cdm.compressor.config.Algorithm {
		return nil, fmt.Errorf("compression algorithm mismatch: expected %v, got %v",
			cdm.compressor.config.Algorithm, algorithm)
	}

	originalSize := binary.LittleEndian.Uint32(page.Data[1:5])
	compressedSize := binary.LittleEndian.Uint32(page.Data[5:9])
	compressedData := page.Data[CompressedPageHeaderSize : CompressedPageHeaderSize+int(compressedSize)]

	decompressed, err := cdm.compressor.Decompress(compressedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress page %d: %w", pageID, err)
	}
	if len(decompressed) != int(originalSize) {
		return nil, fmt.Errorf("decompressed size mismatch for page %d: expected %d, got %d",
			pageID, originalSize, len(decompressed))
	}

	pageDataSize := storage.PageSize - storage.PageHeaderSize
	newPageData := make([]byte, pageDataSize)
	copy(newPageData, decompressed)
	page.Data = newPageData

	return page, nil
}

// WritePage compresses and writes a page to disk. It fails rather than
// silently storing a page whose compressed form (plus header) does not fit
// the fixed page data capacity.
func (cdm *CompressedDiskManager) WritePage(page *storage.Page) error {
	if cdm.compressor.config.Algorithm == AlgorithmNone {
		return cdm.diskMgr.WritePage(page)
	}

	compressedPage := &storage.Page{
		ID:      page.ID,
		Type:    page.Type,
		Flags:   page.Flags,
		LSN:     page.LSN,
		IsDirty: page.IsDirty,
	}

	compressedData, err := cdm.compressor.Compress(page.Data)
	if err != nil {
		return fmt.Errorf("failed to compress page %d: %w", page.ID, err)
	}

	totalSize := CompressedPageHeaderSize + len(compressedData)
	pageDataSize := storage.PageSize - storage.PageHeaderSize
	if totalSize > pageDataSize {
		return fmt.Errorf("compressed data too large: %d bytes (max %d)", totalSize, pageDataSize)
	}

	compressedPage.Data = make([]byte, pageDataSize)
	compressedPage.Data[0] = byte(cdm.compressor.config.Algorithm)
	binary.LittleEndian.PutUint32(compressedPage.Data[1:5], uint32(len(page.Data)))
	binary.LittleEndian.PutUint32(compressedPage.Data[5:9], uint32(len(compressedData)))
	copy(compressedPage.Data[CompressedPageHeaderSize:], compressedData)

	return cdm.diskMgr.WritePage(compressedPage)
}

// AllocatePage allocates a new page.
func (cdm *CompressedDiskManager) AllocatePage() (storage.PageID, error) {
	return cdm.diskMgr.AllocatePage()
}

// DeallocatePage marks a page as free.
func (cdm *CompressedDiskManager) DeallocatePage(pageID storage.PageID) error {
	return cdm.diskMgr.DeallocatePage(pageID)
}

// Sync flushes all data to disk.
func (cdm *CompressedDiskManager) Sync() error {
	return cdm.diskMgr.Sync()
}

// Close closes the disk manager.
func (cdm *CompressedDiskManager) Close() error {
	return cdm.diskMgr.Close()
}

// Stats returns disk manager statistics augmented with compression info.
func (cdm *CompressedDiskManager) Stats() map[string]interface{} {
	stats := cdm.diskMgr.Stats()
	stats["compression_algorithm"] = cdm.compressor.config.Algorithm.String()
	stats["compression_enabled"] = cdm.compressor.config.Algorithm != AlgorithmNone
	return stats
}
