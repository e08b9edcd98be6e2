package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/pkg/symspell"
)

// Reader serves postings and stored documents from one immutable segment.
// Dictionary and stored documents are held in memory; postings are read from
// the file on demand.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	docs     map[string]index.StoredDocument
	docIDs   []string
	postBase int64

	fuzzyMu sync.Mutex
	fuzzy   map[string]*fuzzyDict
}

// fuzzyDict holds the words of one field searchable by edit distance and
// the terms each word is indexed under.
type fuzzyDict struct {
	words *symspell.SymSpell
	terms map[string][]string
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := load(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func load(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment file: %w", err)
	}
	if info.Size() < int64(HeaderSize+FooterSize) {
		return nil, fmt.Errorf("invalid segment file %s: truncated (%d bytes)", filepath.Base(path), info.Size())
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment file: bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported segment version %d", header.Version)
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, info.Size()-int64(FooterSize)); err != nil {
		return nil, fmt.Errorf("reading segment footer: %w", err)
	}
	checksum := binary.LittleEndian.Uint32(footer[0:4])
	docsStart := int64(binary.LittleEndian.Uint64(footer[8:16]))
	docsSize := int64(binary.LittleEndian.Uint64(footer[16:24]))
	if binary.LittleEndian.Uint32(footer[24:28]) != MagicBytes || docsStart != header.DocsOffset {
		return nil, fmt.Errorf("invalid segment file: footer does not match header")
	}
	if header.DictOffset+header.DictSize > info.Size() || docsStart+docsSize > info.Size() {
		return nil, fmt.Errorf("invalid segment file: section out of range")
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	docsBytes := make([]byte, docsSize)
	if _, err := f.ReadAt(docsBytes, docsStart); err != nil {
		return nil, fmt.Errorf("reading stored documents: %w", err)
	}
	crc := crc32.NewIEEE()
	crc.Write(dictBytes)
	crc.Write(docsBytes)
	if crc.Sum32() != checksum {
		return nil, fmt.Errorf("segment %s checksum mismatch", filepath.Base(path))
	}

	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	var stored []index.StoredDocument
	if err := json.Unmarshal(docsBytes, &stored); err != nil {
		return nil, fmt.Errorf("parsing stored documents: %w", err)
	}
	docs := make(map[string]index.StoredDocument, len(stored))
	docIDs := make([]string, 0, len(stored))
	for _, d := range stored {
		if _, dup := docs[d.ID]; !dup {
			docIDs = append(docIDs, d.ID)
		}
		docs[d.ID] = d
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		docs:     docs,
		docIDs:   docIDs,
		postBase: header.PostOffset,
		fuzzy:    make(map[string]*fuzzyDict),
	}, nil
}

func (r *Reader) lookup(field, term string) (DictEntry, bool) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		if r.dict[i].Field != field {
			return r.dict[i].Field >= field
		}
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Field != field || r.dict[idx].Term != term {
		return DictEntry{}, false
	}
	return r.dict[idx], true
}

// Search returns the postings of term within field, or nil if absent.
func (r *Reader) Search(field, term string) (index.PostingList, error) {
	entry, ok := r.lookup(field, term)
	if !ok {
		return nil, nil
	}
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.postBase+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings: %w", err)
	}
	return postings, nil
}

// FieldTerms returns every term of field in sorted order.
func (r *Reader) FieldTerms(field string) []string {
	start := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Field >= field
	})
	var out []string
	for i := start; i < len(r.dict) && r.dict[i].Field == field; i++ {
		out = append(out, r.dict[i].Term)
	}
	return out
}

// SimilarTerms returns the terms of field whose indexed form, or any
// unstemmed word indexed under them, is within maxDistance edits of word.
// The per-field dictionary is built on first use and never changes.
func (r *Reader) SimilarTerms(field, word string, maxDistance, maxReturn int) []string {
	r.fuzzyMu.Lock()
	dict, ok := r.fuzzy[field]
	if !ok {
		dict = r.buildFuzzy(field)
		r.fuzzy[field] = dict
	}
	r.fuzzyMu.Unlock()

	var out []string
	for _, w := range dict.words.Lookup(word, maxDistance, 0) {
		for _, t := range dict.terms[w] {
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	if maxReturn > 0 && len(out) > maxReturn {
		out = out[:maxReturn]
	}
	return out
}

func (r *Reader) buildFuzzy(field string) *fuzzyDict {
	dict := &fuzzyDict{words: symspell.New(), terms: make(map[string][]string)}
	add := func(word, term string) {
		if !slices.Contains(dict.terms[word], term) {
			dict.terms[word] = append(dict.terms[word], term)
		}
		dict.words.AddWord(word)
	}
	start := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Field >= field
	})
	for i := start; i < len(r.dict) && r.dict[i].Field == field; i++ {
		e := r.dict[i]
		add(e.Term, e.Term)
		for _, s := range e.Surface {
			add(s, e.Term)
		}
	}
	return dict
}

func (r *Reader) Document(id string) (index.StoredDocument, bool) {
	d, ok := r.docs[id]
	return d, ok
}

// DocIDs returns the ids stored in this segment in write order.
func (r *Reader) DocIDs() []string {
	return r.docIDs
}

func (r *Reader) Name() string {
	return filepath.Base(r.filePath)
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Close() error {
	return r.file.Close()
}
