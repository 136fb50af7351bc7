package quality

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Gate modes. Warn logs failures and lets the pipeline finish; Fail turns
// a failed report into an error the caller propagates.
const (
	GateWarn = "warn"
	GateFail = "fail"
)

// GateError is returned only in fail mode when the report did not pass.
type GateError struct {
	RunID  string
	Failed int
	Total  int
}

func (e *GateError) Error() string {
	return fmt.Sprintf("quality gate failed: %d of %d checks failed (run %s)", e.Failed, e.Total, e.RunID)
}

// Gate enforces a report according to its mode.
type Gate struct {
	mode string
	log  zerolog.Logger
}

// NewGate returns a Gate. Unknown modes fall back to warn so a config typo
// never blocks a pipeline run.
func NewGate(mode string, log zerolog.Logger) *Gate {
	if mode != GateFail {
		mode = GateWarn
	}
	return &Gate{mode: mode, log: log}
}

// Enforce inspects the report. In warn mode failures are logged and nil is
// returned; in fail mode a failed report returns a GateError.
func (g *Gate) Enforce(r *Report) error {
	if r.Passed() {
		g.log.Info().Str("run_id", r.RunID).Msg("quality gate passed")
		return nil
	}
	s := r.Summarize()
	if g.mode == GateFail {
		return &GateError{RunID: r.RunID, Failed: s.Failed, Total: s.TotalChecks}
	}
	g.log.Warn().Str("run_id", r.RunID).
		Int("failed", s.Failed).Int("total", s.TotalChecks).Str("pass_rate", s.PassRate).
		Msg("quality gate failures (warn mode, continuing)")
	return nil
}
