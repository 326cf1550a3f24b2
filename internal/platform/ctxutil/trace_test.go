package ctxutil

import (
	"context"
	"testing"
)

func TestTraceDataLogFields(t *testing.T) {
	var nilTD *TraceData
	if fields := nilTD.LogFields(); fields != nil {
		t.Fatalf("nil trace data produced fields: %v", fields)
	}

	td := &TraceData{TraceID: "trace-1"}
	fields := td.LogFields()
	if len(fields) != 2 || fields[0] != "trace_id" || fields[1] != "trace-1" {
		t.Fatalf("fields = %v", fields)
	}

	td = &TraceData{TraceID: "trace-1", RequestID: "req-1"}
	if fields := td.LogFields(); len(fields) != 4 {
		t.Fatalf("fields = %v", fields)
	}
}

func TestTraceDataRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := GetTraceData(ctx); got != nil {
		t.Fatalf("empty context returned %+v", got)
	}
	td := &TraceData{TraceID: "trace-1", RequestID: "req-1"}
	if got := GetTraceData(WithTraceData(ctx, td)); got != td {
		t.Fatalf("got %+v, want the stored value", got)
	}
}
