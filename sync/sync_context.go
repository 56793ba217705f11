package sync

import "log"

// SyncContext holds shared run configuration.
// It is immutable after construction and shared by every client
// and the publisher for the lifetime of a single run.
type SyncContext struct {
	Config Config
	RunID  string

	// RecordRequests, when set, is the directory HTTP traffic is recorded to.
	RecordRequests string
	Verbose        bool
	DryRun         bool
}

func (sc *SyncContext) debugf(format string, v ...interface{}) {
	if sc != nil && sc.Verbose {
		log.Printf("Debug: "+format, v...)
	}
}
