package quality

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func failedReport() *Report {
	r := NewReport()
	r.Add(CheckResult{CheckName: "a", Stage: StageRaw, Passed: false, Timestamp: time.Now()})
	r.Add(CheckResult{CheckName: "b", Stage: StageRaw, Passed: true, Timestamp: time.Now()})
	return r
}

func TestGate_WarnModeNeverErrors(t *testing.T) {
	g := NewGate(GateWarn, zerolog.Nop())
	if err := g.Enforce(failedReport()); err != nil {
		t.Fatalf("warn mode returned error: %v", err)
	}
}

func TestGate_FailModeReturnsGateError(t *testing.T) {
	g := NewGate(GateFail, zerolog.Nop())
	err := g.Enforce(failedReport())
	if err == nil {
		t.Fatalf("fail mode should error on a failed report")
	}
	var ge *GateError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GateError, got %T", err)
	}
	if ge.Failed != 1 || ge.Total != 2 {
		t.Fatalf("gate error counts: %+v", ge)
	}
}

func TestGate_FailModePassesCleanReport(t *testing.T) {
	g := NewGate(GateFail, zerolog.Nop())
	if err := g.Enforce(NewReport()); err != nil {
		t.Fatalf("clean report should pass the gate: %v", err)
	}
}

func TestGate_UnknownModeFallsBackToWarn(t *testing.T) {
	g := NewGate("strict", zerolog.Nop())
	if err := g.Enforce(failedReport()); err != nil {
		t.Fatalf("unknown mode should warn, not fail: %v", err)
	}
}
