package sync

import (
	"context"
	"log"

	"github.com/tidwall/gjson"
)

// AssignmentMapper remaps the assignment lists of a config context
// (regions, roles, tags...) to the ids of the equivalent objects on the
// destination.
type AssignmentMapper struct {
	Destination *NetBoxClient
}

// MapAssignments sets every configured assignment field on destination,
// using an empty list when the record has none. Objects that cannot be
// found on the destination are logged and left out.
func (m AssignmentMapper) MapAssignments(ctx context.Context, record Record, destination Mappable) error {
	config := m.Destination.Config
	for _, field := range config.AssignmentFields() {
		lookup := config.Assignments[field]
		ids := []int64{}
		for _, v := range record.Get(field).Array() {
			// bare tag ids are carried over as is
			if field == "tags" && v.Type == gjson.Number {
				ids = append(ids, v.Int())
				continue
			}
			// a bare id belongs to the source instance and cannot be resolved
			if v.Type == gjson.Number {
				log.Printf("Warning: %s entry %s is a bare ID, skipping", field, v.Raw)
				continue
			}
			term := v.Get("@term:" + lookup.Filter).String()
			if term == "" {
				log.Printf("Warning: %s entry %s has no %s, skipping", field, v.Raw, lookup.Filter)
				continue
			}
			query := []QueryParam{{Key: lookup.Filter, Value: term}}
			found, ok, err := m.Destination.FindFirst(ctx, lookup.Path(field), query)
			if err != nil && IsFatal(err) {
				return err
			}
			if err != nil || !ok {
				log.Printf("Warning: %s '%s' not found on destination, skipping", singular(field), query[0].Value)
				if err != nil {
					m.Destination.debugf("%s lookup failed: %v", field, err)
				}
				continue
			}
			ids = append(ids, found.Get("id").Int())
		}
		destination.SetField(field, ids)
	}
	return nil
}

func singular(field string) string {
	if n := len(field); n > 1 && field[n-1] == 's' {
		return field[:n-1]
	}
	return field
}
