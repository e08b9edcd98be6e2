package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
)

const schemaFile = "schema.json"

// Field kinds.
const (
	KindLiteral = "literal"
	KindText    = "text"
	KindKeyword = "keyword"
	KindStored  = "stored"
)

// FieldSpec describes how one document field is analyzed and kept.
type FieldSpec struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Unique   bool   `json:"unique,omitempty"`
	Searched bool   `json:"searched"`
	Stored   bool   `json:"stored"`
}

type Schema struct {
	Fields []FieldSpec `json:"fields"`
}

// QuestionSchema is the fixed schema of every question index.
func QuestionSchema() Schema {
	return Schema{Fields: []FieldSpec{
		{Name: index.FieldID, Kind: KindLiteral, Unique: true, Searched: false, Stored: true},
		{Name: index.FieldContent, Kind: KindText, Searched: true, Stored: true},
		{Name: index.FieldTags, Kind: KindKeyword, Searched: true, Stored: true},
		{Name: index.FieldYear, Kind: KindLiteral, Searched: true, Stored: true},
		{Name: index.FieldSubject, Kind: KindLiteral, Searched: true, Stored: true},
		{Name: index.FieldOptions, Kind: KindStored, Stored: true},
		{Name: index.FieldCorrectAnswer, Kind: KindStored, Stored: true},
		{Name: index.FieldExplanation, Kind: KindStored, Stored: true},
	}}
}

func (s Schema) Equal(other Schema) bool {
	return reflect.DeepEqual(s.Fields, other.Fields)
}

// readSchema returns the persisted schema, or ok=false if none exists.
func readSchema(dir string) (Schema, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, schemaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Schema{}, false, nil
		}
		return Schema{}, false, fmt.Errorf("reading schema: %w", err)
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return Schema{}, false, fmt.Errorf("parsing schema: %w", err)
	}
	return s, true, nil
}

func writeSchema(dir string, s Schema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, schemaFile), data)
}

// writeFileAtomic writes data to a temp sibling, syncs it and renames it over
// path.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(tmp), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", filepath.Base(tmp), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing %s: %w", filepath.Base(tmp), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}
