package sync

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

type RecordKind int

const (
	ConfigContextKind RecordKind = iota
	LocalContextKind
)

func (k RecordKind) String() string {
	switch k {
	case ConfigContextKind:
		return "config-context"
	case LocalContextKind:
		return "local-context"
	default:
		return fmt.Sprintf("RecordKind(%d)", int(k))
	}
}

// canonicalOptions sorts object keys so a record always serialises to the
// same bytes regardless of the order NetBox returned its fields in.
// Width 0 keeps every array and object on its own lines when exported.
var canonicalOptions = &pretty.Options{Width: 0, Prefix: "", Indent: "  ", SortKeys: true}

// Record is a single config context or local context as represented by
// the NetBox API. The raw JSON is kept in canonical form.
type Record struct {
	data gjson.Result
}

// NewRecord validates raw and returns it as a canonical Record.
func NewRecord(raw string) (Record, error) {
	var result Record
	if !gjson.Valid(raw) {
		return result, errors.New("record is not valid json")
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return result, errors.New("record is not a json object")
	}
	result.data = gjson.Parse(string(pretty.Ugly(pretty.PrettyOptions([]byte(raw), canonicalOptions))))
	if _, err := result.Kind(); err != nil {
		return Record{}, err
	}
	return result, nil
}

// NewLocalContextRecord reduces a device or virtual machine object to
// its local context record.
func NewLocalContextRecord(objectType LocalContextObjectType, object gjson.Result) (Record, error) {
	payload := NewPayload()
	payload.SetField("type", string(objectType))
	payload.SetRawField("id", object.Get("id").Raw)
	payload.SetRawField("name", object.Get("name").Raw)
	payload.SetRawField("local_context_data", object.Get("local_context_data").Raw)
	raw, err := payload.JSON()
	if err != nil {
		return Record{}, fmt.Errorf("failed to build local context record %w", err)
	}
	return NewRecord(raw)
}

// Kind decides the record kind from its shape.
func (r Record) Kind() (RecordKind, error) {
	if r.data.Get("local_context_data").Exists() && r.data.Get("type").Exists() {
		return LocalContextKind, nil
	}
	if r.data.Get("name").Exists() && r.data.Get("data").Exists() {
		return ConfigContextKind, nil
	}
	return 0, errors.New("record is neither a config context nor a local context")
}

func (r Record) Get(path string) gjson.Result {
	return r.data.Get(path)
}

func (r Record) StringForPath(path string) (string, bool) {
	result := r.data.Get(path)
	return result.String(), result.Exists() && (result.Value() != nil)
}

func (r Record) IntForPath(path string) (int64, bool) {
	result := r.data.Get(path)
	return result.Int(), result.Exists() && (result.Value() != nil)
}

func (r Record) BoolForPath(path string) (bool, bool) {
	result := r.data.Get(path)
	return result.Bool(), result.Exists() && (result.Value() != nil)
}

// Name is the record's name field.
func (r Record) Name() string {
	return r.data.Get("name").String()
}

// Label describes the record for logs and reports.
func (r Record) Label() string {
	kind, _ := r.Kind()
	if kind == LocalContextKind {
		return fmt.Sprintf("%s '%s' (ID %s)", r.data.Get("type").String(), r.Name(), r.data.Get("id").Raw)
	}
	return fmt.Sprintf("config context '%s'", r.Name())
}

// Raw returns the canonical JSON of the record.
func (r Record) Raw() string {
	return r.data.Raw
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.data.Raw == "" {
		return []byte("null"), nil
	}
	return []byte(r.data.Raw), nil
}

func (r *Record) UnmarshalJSON(b []byte) error {
	rec, err := NewRecord(string(b))
	if err != nil {
		return err
	}
	*r = rec
	return nil
}
