package sync

import (
	"context"
	"fmt"
	"log"

	"github.com/iancoleman/strcase"
	"github.com/tidwall/gjson"
)

type LocalContextObjectType string

const (
	VirtualMachine LocalContextObjectType = "virtual_machine"
	Device         LocalContextObjectType = "device"
)

var localContextObjectApps = map[LocalContextObjectType]string{
	VirtualMachine: "virtualization",
	Device:         "dcim",
}

func (t LocalContextObjectType) Valid() bool {
	_, ok := localContextObjectApps[t]
	return ok
}

// Path returns the list path, e.g. "api/dcim/devices/".
func (t LocalContextObjectType) Path() string {
	return fmt.Sprintf("api/%s/%ss/", localContextObjectApps[t], strcase.ToKebab(string(t)))
}

// FetchScope selects which record kinds are fetched from the source.
type FetchScope struct {
	ConfigContexts  bool
	VirtualMachines bool
	Devices         bool
}

func (s FetchScope) IsEmpty() bool {
	return !s.ConfigContexts && !s.VirtualMachines && !s.Devices
}

// Fetch returns every record in scope: config contexts first, then
// virtual machine and device local contexts.
func (c *NetBoxClient) Fetch(ctx context.Context, scope FetchScope) ([]Record, error) {
	var result []Record
	if scope.ConfigContexts {
		records, err := c.FetchConfigContexts(ctx)
		if err != nil {
			return nil, err
		}
		result = append(result, records...)
	}
	for _, t := range []LocalContextObjectType{VirtualMachine, Device} {
		if (t == VirtualMachine && !scope.VirtualMachines) || (t == Device && !scope.Devices) {
			continue
		}
		records, err := c.FetchLocalContexts(ctx, t)
		if err != nil {
			return nil, err
		}
		result = append(result, records...)
	}
	return result, nil
}

// FetchConfigContexts returns all config contexts in API order.
func (c *NetBoxClient) FetchConfigContexts(ctx context.Context) ([]Record, error) {
	records, err := c.fetchRecords(ctx, ConfigContextsPath, func(object gjson.Result) (Record, bool, error) {
		r, err := NewRecord(object.Raw)
		return r, true, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve config contexts from %s: %w", c.Instance.URL, err)
	}
	log.Printf("Retrieved %d config contexts from %s", len(records), c.Instance.URL)
	return records, nil
}

// FetchLocalContexts returns a local context record for every object of
// type t that has local context data.
func (c *NetBoxClient) FetchLocalContexts(ctx context.Context, t LocalContextObjectType) ([]Record, error) {
	records, err := c.fetchRecords(ctx, t.Path(), func(object gjson.Result) (Record, bool, error) {
		if v := object.Get("local_context_data"); !v.Exists() || v.Type == gjson.Null {
			return Record{}, false, nil
		}
		r, err := NewLocalContextRecord(t, object)
		return r, true, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s local contexts from %s: %w", t, c.Instance.URL, err)
	}
	log.Printf("Retrieved %d %s local contexts from %s", len(records), t, c.Instance.URL)
	return records, nil
}

func (c *NetBoxClient) fetchRecords(ctx context.Context, path string, convert func(gjson.Result) (Record, bool, error)) ([]Record, error) {
	var result []Record
	seen := make(map[string]bool)
	err := c.List(ctx, path, nil, func(object gjson.Result) error {
		if id := object.Get("id").Raw; id != "" {
			if seen[id] {
				log.Printf("Warning: skipping duplicate object %s returned by %s", id, path)
				return nil
			}
			seen[id] = true
		}
		r, keep, err := convert(object)
		if err != nil {
			return &APIError{Method: "GET", URL: c.resolve(path), Err: fmt.Errorf("object %s: %w", object.Get("id").Raw, err)}
		}
		if keep {
			result = append(result, r)
		}
		return nil
	})
	return result, err
}
