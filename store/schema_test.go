package store

import (
	"strings"
	"testing"
)

func TestRunPK(t *testing.T) {
	tests := []struct {
		name  string
		runID string
		want  string
	}{
		{
			name:  "generated run ID",
			runID: "run_01JC4Z3A9GQ6W9XHTB1M2N3P4Q",
			want:  "RUN#run_01JC4Z3A9GQ6W9XHTB1M2N3P4Q",
		},
		{
			name:  "simple run ID",
			runID: "test-run-1",
			want:  "RUN#test-run-1",
		},
		{
			name:  "empty run ID",
			runID: "",
			want:  "RUN#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runPK(tt.runID)
			if got != tt.want {
				t.Errorf("runPK(%s) = %s, want %s", tt.runID, got, tt.want)
			}
		})
	}
}

func TestRunSK(t *testing.T) {
	got := runSK()
	want := "RUN#METADATA"
	if got != want {
		t.Errorf("runSK() = %s, want %s", got, want)
	}
}

func TestDiscriminatorKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"step", stepSK("step_abc"), "STEP#step_abc"},
		{"hook", hookSK("h1"), "HOOK#h1"},
		{"event", eventSK("evt_abc"), "EVENT#evt_abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestDiscriminatorPrefixes(t *testing.T) {
	if !strings.HasPrefix(stepSK("x"), stepPrefix()) {
		t.Error("stepSK does not share stepPrefix")
	}
	if !strings.HasPrefix(hookSK("x"), hookPrefix()) {
		t.Error("hookSK does not share hookPrefix")
	}
	if !strings.HasPrefix(eventSK("x"), eventPrefix()) {
		t.Error("eventSK does not share eventPrefix")
	}
}

func TestGSIPartitionKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"workflow name", workflowNameGSI1PK("demo"), "WF#demo"},
		{"status", statusGSI2PK("running"), "STATUS#running"},
		{"hook id", hookIDGSI4PK("h1"), "HOOKID#h1"},
		{"token", tokenGSI5PK("t1"), "TOKEN#t1"},
		{"correlation", correlationGSI6PK("corr-1"), "CORR#corr-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

// In-group ordering depends on the lexicographic relation of the
// discriminator prefixes: events sort before hooks, hooks before run
// metadata, run metadata before steps.
func TestDiscriminatorOrdering(t *testing.T) {
	if !(eventPrefix() < hookPrefix() && hookPrefix() < runSK() && runSK() < stepPrefix()) {
		t.Errorf("discriminator prefixes out of order: %s %s %s %s",
			eventPrefix(), hookPrefix(), runSK(), stepPrefix())
	}
}
