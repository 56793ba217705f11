package sync

import (
	"context"
	"fmt"
	"log"
	"reflect"

	"github.com/tidwall/gjson"
)

// DefaultConfigContextWeight is the NetBox default used when a record has no weight.
const DefaultConfigContextWeight = 1000

var configContextCompareKeys = []string{"weight", "data", "is_active", "description"}

// Publisher creates or updates records on the destination instance.
type Publisher struct {
	Destination *NetBoxClient
	Assignments AssignmentMapper
}

func NewPublisher(destination *NetBoxClient) *Publisher {
	return &Publisher{
		Destination: destination,
		Assignments: AssignmentMapper{Destination: destination},
	}
}

// Publish applies every record to the destination in order. A record the
// destination rejects is logged and counted as failed; authentication and
// network errors abort the run.
func (p *Publisher) Publish(ctx context.Context, records []Record) (Report, error) {
	report := Report{RunID: p.Destination.RunID, DryRun: p.Destination.DryRun}
	if err := p.Destination.Ping(ctx); err != nil {
		return report, err
	}

	for _, record := range records {
		kind, err := record.Kind()
		var outcome Outcome
		if err == nil {
			switch kind {
			case ConfigContextKind:
				outcome, err = p.PublishConfigContext(ctx, record)
			case LocalContextKind:
				outcome, err = p.PublishLocalContext(ctx, record)
			}
		}
		if err != nil {
			if IsFatal(err) {
				return report, err
			}
			err = asValidationError(record.Name(), err)
			log.Printf("Failed to publish %s: %v", record.Label(), err)
			report.add(ItemResult{Kind: kind, Key: record.Name(), Outcome: Failed, Err: err})
			continue
		}
		report.add(ItemResult{Kind: kind, Key: record.Name(), Outcome: outcome})
	}

	log.Printf("Migration complete: %s", report.Summary())
	return report, nil
}

// PublishConfigContext creates the config context on the destination, or
// updates the one matching its natural key when it differs.
func (p *Publisher) PublishConfigContext(ctx context.Context, record Record) (Outcome, error) {
	dest := p.Destination
	name := record.Name()

	query, err := naturalKeyQuery(record, dest.Config.Matching.ConfigContexts)
	if err != nil {
		return Failed, err
	}
	payload, err := p.configContextPayload(ctx, record)
	if err != nil {
		return Failed, err
	}
	body, err := payload.JSON()
	if err != nil {
		return Failed, fmt.Errorf("failed to build payload %w", err)
	}

	existing, found, err := dest.FindFirst(ctx, ConfigContextsPath, query)
	if err != nil {
		return Failed, fmt.Errorf("failed to query config contexts on destination for '%s': %w", name, err)
	}

	if !found {
		log.Printf("Creating config context '%s'", name)
		if dest.DryRun {
			return Created, nil
		}
		if _, err = dest.Create(ctx, ConfigContextsPath, body); err != nil {
			log.Printf("Failed to CREATE context '%s', payload: %s", name, body)
			return Failed, err
		}
		return Created, nil
	}

	detailPath := DetailPath(ConfigContextsPath, existing.Get("id").Int())
	detail, found, err := dest.Get(ctx, detailPath)
	if err != nil {
		return Failed, fmt.Errorf("failed to read config context '%s' on destination: %w", name, err)
	}
	if found {
		existing = detail
	}

	if !configContextDiffers(payload, existing, dest.Config.AssignmentFields()) {
		log.Printf("No changes for config context '%s', skipping.", name)
		return Skipped, nil
	}
	log.Printf("Updating config context '%s'", name)
	if dest.DryRun {
		return Updated, nil
	}
	if _, err = dest.Update(ctx, detailPath, body); err != nil {
		return Failed, err
	}
	return Updated, nil
}

func (p *Publisher) configContextPayload(ctx context.Context, record Record) (*Payload, error) {
	payload := NewPayload()
	payload.SetField("name", record.Name())
	if weight := record.Get("weight"); weight.Exists() && weight.Type != gjson.Null {
		payload.SetRawField("weight", weight.Raw)
	} else {
		payload.SetField("weight", DefaultConfigContextWeight)
	}
	payload.SetRawField("data", record.Get("data").Raw)
	isActive, ok := record.BoolForPath("is_active")
	if !ok {
		isActive = true
	}
	payload.SetField("is_active", isActive)
	description, _ := record.StringForPath("description")
	payload.SetField("description", description)

	if err := p.Assignments.MapAssignments(ctx, record, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// configContextDiffers reports whether the destination object needs an update.
func configContextDiffers(payload *Payload, existing gjson.Result, assignmentFields []string) bool {
	for _, key := range configContextCompareKeys {
		if !reflect.DeepEqual(payload.Get(key).Value(), existing.Get(key).Value()) {
			return true
		}
	}
	for _, field := range assignmentFields {
		if assignmentIDs(payload.Get(field)) != assignmentIDs(existing.Get(field)) {
			return true
		}
	}
	return false
}

func assignmentIDs(list gjson.Result) string {
	raw := list.Raw
	if raw == "" {
		raw = "[]"
	}
	return gjson.Get(raw, "@ids").Raw
}

// PublishLocalContext applies the record's local context data to the
// matching device or virtual machine on the destination.
func (p *Publisher) PublishLocalContext(ctx context.Context, record Record) (Outcome, error) {
	dest := p.Destination
	objectType := LocalContextObjectType(record.Get("type").String())
	if !objectType.Valid() {
		return Failed, fmt.Errorf("unsupported object type %q", objectType)
	}
	path := objectType.Path()
	log.Printf("Applying context to %s", record.Label())

	var existing gjson.Result
	found := false
	query, err := naturalKeyQuery(record, dest.Config.Matching.LocalContexts)
	if err == nil {
		existing, found, err = dest.FindFirst(ctx, path, query)
		if err != nil && IsFatal(err) {
			return Failed, err
		}
	}
	if !found {
		if id, ok := record.IntForPath("id"); ok {
			existing, found, err = dest.Get(ctx, DetailPath(path, id))
			if err != nil {
				return Failed, err
			}
			if found {
				log.Printf("Warning: %s matched by ID only", record.Label())
			}
		}
	}
	if !found {
		log.Printf("%s not found on destination", record.Label())
		return Failed, ErrObjectNotFound
	}

	if reflect.DeepEqual(existing.Get("local_context_data").Value(), record.Get("local_context_data").Value()) {
		log.Printf("No changes for %s, skipping.", record.Label())
		return Skipped, nil
	}
	log.Printf("Updating %s", record.Label())
	if dest.DryRun {
		return Updated, nil
	}
	payload := NewPayload()
	payload.SetRawField("local_context_data", record.Get("local_context_data").Raw)
	body, err := payload.JSON()
	if err != nil {
		return Failed, fmt.Errorf("failed to build payload %w", err)
	}
	if _, err = dest.Update(ctx, DetailPath(path, existing.Get("id").Int()), body); err != nil {
		return Failed, err
	}
	return Updated, nil
}

// naturalKeyQuery builds the destination lookup for record from the
// configured key fields. Fields the record lacks or leaves empty are left out.
func naturalKeyQuery(record Record, fields []string) ([]QueryParam, error) {
	var result []QueryParam
	for _, field := range fields {
		v := record.Get(field)
		if !v.Exists() || v.Type == gjson.Null || v.IsObject() || v.IsArray() {
			continue
		}
		// NetBox ignores empty filters and would return every object
		if v.String() == "" {
			continue
		}
		result = append(result, QueryParam{Key: field, Value: v.String()})
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("record has none of the natural key fields %v", fields)
	}
	return result, nil
}
