package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
)

// MagicBytes identifies a valid .qbsg segment file.
const (
	MagicBytes    uint32 = 0x51425347
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
	Extension            = ".qbsg"
)

// SegmentHeader is the 64-byte header written at the start of every segment.
// The size of the stored-documents section lives in the footer.
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	CreatedAt  int64
	PostOffset int64
	PostSize   int64
	DictOffset int64
	DictSize   int64
	DocsOffset int64
}

// DictEntry maps a (field, term) pair to its postings offset, length, and
// document frequency in the segment file. Surface holds the unstemmed words
// that analyze to Term, for typo matching.
type DictEntry struct {
	Field      string   `json:"f"`
	Term       string   `json:"t"`
	PostOffset int64    `json:"o"`
	PostLen    int      `json:"l"`
	DocFreq    int      `json:"d"`
	Surface    []string `json:"s,omitempty"`
}

// Writer serialises one write batch into a new .qbsg segment file.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes segments into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// FileName returns the segment file name for a manifest generation.
func FileName(generation uint64) string {
	return fmt.Sprintf("seg_%d_%d%s", generation, time.Now().UnixNano(), Extension)
}

// Write creates the segment file name inside the data directory. The file is
// written to a .tmp sibling, synced and renamed; on failure the temp file is
// removed and nothing with the final name exists.
func (w *Writer) Write(name string, entries []index.TermEntry, docs []index.StoredDocument) (err error) {
	if len(docs) == 0 {
		return fmt.Errorf("cannot write empty segment")
	}
	finalPath := filepath.Join(w.dataDir, name)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return fmt.Errorf("creating segment directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp segment file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.Write(headerBytes); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	postingsStart := int64(HeaderSize)
	offset := postingsStart
	dict := make([]DictEntry, 0, len(entries))
	for _, entry := range entries {
		postingsData, err := json.Marshal(entry.Postings)
		if err != nil {
			return fmt.Errorf("marshaling postings for %s:%q: %w", entry.Field, entry.Term, err)
		}
		if _, err := f.Write(postingsData); err != nil {
			return fmt.Errorf("writing postings for %s:%q: %w", entry.Field, entry.Term, err)
		}
		dict = append(dict, DictEntry{
			Field:      entry.Field,
			Term:       entry.Term,
			PostOffset: offset - postingsStart,
			PostLen:    len(postingsData),
			DocFreq:    len(entry.Postings),
			Surface:    entry.Surfaces,
		})
		offset += int64(len(postingsData))
	}
	postingsSize := offset - postingsStart

	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}
	dictStart := offset
	offset += int64(len(dictData))

	docsData, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshaling stored documents: %w", err)
	}
	if _, err := f.Write(docsData); err != nil {
		return fmt.Errorf("writing stored documents: %w", err)
	}
	docsStart := offset

	crc := crc32.NewIEEE()
	crc.Write(dictData)
	crc.Write(docsData)
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc.Sum32())
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(docs)))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(docsStart))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(len(docsData)))
	binary.LittleEndian.PutUint32(footer[24:28], MagicBytes)
	if _, err := f.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}

	header := SegmentHeader{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		TermCount:  uint32(len(dict)),
		DocCount:   uint32(len(docs)),
		CreatedAt:  time.Now().Unix(),
		PostOffset: postingsStart,
		PostSize:   postingsSize,
		DictOffset: dictStart,
		DictSize:   int64(len(dictData)),
		DocsOffset: docsStart,
	}
	encodeHeader(headerBytes, header)
	if _, err := f.WriteAt(headerBytes, 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming segment file: %w", err)
	}
	return nil
}

func encodeHeader(b []byte, h SegmentHeader) {
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(b[56:64], uint64(h.DocsOffset))
}

func decodeHeader(b []byte) SegmentHeader {
	return SegmentHeader{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		TermCount:  binary.LittleEndian.Uint32(b[8:12]),
		DocCount:   binary.LittleEndian.Uint32(b[12:16]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(b[16:24])),
		PostOffset: int64(binary.LittleEndian.Uint64(b[24:32])),
		PostSize:   int64(binary.LittleEndian.Uint64(b[32:40])),
		DictOffset: int64(binary.LittleEndian.Uint64(b[40:48])),
		DictSize:   int64(binary.LittleEndian.Uint64(b[48:56])),
		DocsOffset: int64(binary.LittleEndian.Uint64(b[56:64])),
	}
}
