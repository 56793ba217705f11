package sync

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Mappable provides a common interface for types that can be mapped.
type Mappable interface {
	GetFields() map[string]interface{}
	SetField(key string, value interface{})
}

// Payload is a JSON request body built field by field.
// Keys are plain NetBox field names, never paths.
// The first failed write is kept and reported by JSON.
type Payload struct {
	json string
	err  error
}

func NewPayload() *Payload {
	return &Payload{json: "{}"}
}

func (p *Payload) GetFields() map[string]interface{} {
	if m, ok := gjson.Parse(p.json).Value().(map[string]interface{}); ok {
		return m
	}
	return nil
}

func (p *Payload) SetField(key string, value interface{}) {
	if p.err != nil {
		return
	}
	p.json, p.err = sjson.Set(p.json, key, value)
}

// SetRawField sets key to an already encoded JSON value.
func (p *Payload) SetRawField(key string, raw string) {
	if p.err != nil {
		return
	}
	if raw == "" {
		raw = "null"
	}
	p.json, p.err = sjson.SetRaw(p.json, key, raw)
}

func (p *Payload) Get(path string) gjson.Result {
	return gjson.Get(p.json, path)
}

func (p *Payload) JSON() (string, error) {
	return p.json, p.err
}
