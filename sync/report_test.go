package sync

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	report := Report{RunID: "run-1"}
	report.add(ItemResult{Kind: ConfigContextKind, Key: "a", Outcome: Created})
	report.add(ItemResult{Kind: ConfigContextKind, Key: "b", Outcome: Updated})
	report.add(ItemResult{Kind: LocalContextKind, Key: "sw1", Outcome: Failed, Err: &ValidationError{Key: "sw1", Err: ErrObjectNotFound}})
	report.add(ItemResult{Kind: LocalContextKind, Key: "sw2", Outcome: Skipped})

	assert.Equal(t, "1 created, 1 updated, 1 skipped, 1 failed", report.Summary())
	require.Error(t, report.Err())
	assert.True(t, errors.Is(report.Err(), ErrObjectNotFound))

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf))
	expected := "Run,Kind,Record,Outcome,Error\n" +
		"run-1,config-context,a,created,\n" +
		"run-1,config-context,b,updated,\n" +
		"run-1,local-context,sw1,failed,\"record \"\"sw1\"\" rejected: object not found on destination\"\n" +
		"run-1,local-context,sw2,skipped,\n"
	assert.Equal(t, expected, buf.String())
}

func TestReport_NoFailures(t *testing.T) {
	report := Report{DryRun: true}
	report.add(ItemResult{Outcome: Created})
	assert.NoError(t, report.Err())
	assert.Equal(t, "1 created, 0 updated, 0 skipped, 0 failed (dry run)", report.Summary())
}
