package sync

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// ExportRecords writes records to filename as an indented JSON array,
// replacing any existing file.
func ExportRecords(filename string, records []Record) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(r.Raw())
	}
	buf.WriteByte(']')
	out := pretty.PrettyOptions(buf.Bytes(), canonicalOptions)

	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("failed to write to file %s: %w", filename, err)
	}
	defer os.Remove(tmp.Name())
	_, err = tmp.Write(out)
	if err == nil {
		err = tmp.Chmod(0o644)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filename)
	}
	if err != nil {
		return fmt.Errorf("failed to write to file %s: %w", filename, err)
	}
	log.Printf("Exported %d records to %s", len(records), filename)
	return nil
}

// ImportRecords reads records previously written by ExportRecords.
// Any problem with the file is reported as a FormatError.
func ImportRecords(filename string) ([]Record, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, &FormatError{Path: filename, Err: err}
	}
	if !gjson.ValidBytes(b) {
		return nil, &FormatError{Path: filename, Err: errors.New("file is not valid json")}
	}
	parsed := gjson.ParseBytes(b)
	if !parsed.IsArray() {
		return nil, &FormatError{Path: filename, Err: errors.New("file does not hold a json array")}
	}
	var result []Record
	for i, element := range parsed.Array() {
		r, err := NewRecord(element.Raw)
		if err != nil {
			return nil, &FormatError{Path: filename, Err: fmt.Errorf("element %d: %w", i, err)}
		}
		result = append(result, r)
	}
	log.Printf("Loaded %d records from file %s", len(result), filename)
	return result, nil
}
