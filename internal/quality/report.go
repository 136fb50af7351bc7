package quality

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Report accumulates check results for one pipeline run, in execution
// order. Results are appended and never removed.
type Report struct {
	RunID   string
	results []CheckResult
}

// NewReport returns an empty report with a fresh run ID.
func NewReport() *Report {
	return &Report{RunID: uuid.NewString()}
}

// Add appends a result.
func (r *Report) Add(res CheckResult) {
	r.results = append(r.results, res)
}

// Results returns the accumulated results in execution order.
func (r *Report) Results() []CheckResult {
	return r.results
}

// Passed reports whether every accumulated check passed.
func (r *Report) Passed() bool {
	for _, res := range r.results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// StageCounts aggregates pass/fail per pipeline stage.
type StageCounts struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// FailedCheck identifies one failed check for the summary.
type FailedCheck struct {
	CheckName string `json:"check_name"`
	Stage     string `json:"stage"`
	Table     string `json:"table"`
	Message   string `json:"message"`
}

// Summary is the aggregate view of a report.
type Summary struct {
	TotalChecks  int                    `json:"total_checks"`
	Passed       int                    `json:"passed"`
	Failed       int                    `json:"failed"`
	PassRate     string                 `json:"pass_rate"`
	ByStage      map[string]StageCounts `json:"by_stage"`
	FailedChecks []FailedCheck          `json:"failed_checks"`
}

// Summarize aggregates the accumulated results: global and per-stage
// counts, a formatted pass rate, and the list of failed checks.
func (r *Report) Summarize() Summary {
	s := Summary{
		ByStage:      map[string]StageCounts{},
		FailedChecks: []FailedCheck{},
	}
	for _, res := range r.results {
		s.TotalChecks++
		sc := s.ByStage[res.Stage]
		sc.Total++
		if res.Passed {
			s.Passed++
			sc.Passed++
		} else {
			s.Failed++
			sc.Failed++
			s.FailedChecks = append(s.FailedChecks, FailedCheck{
				CheckName: res.CheckName,
				Stage:     res.Stage,
				Table:     res.Table,
				Message:   res.Message,
			})
		}
		s.ByStage[res.Stage] = sc
	}
	rate := 0.0
	if s.TotalChecks > 0 {
		rate = float64(s.Passed) / float64(s.TotalChecks) * 100
	}
	s.PassRate = fmt.Sprintf("%.1f%%", rate)
	return s
}

type reportDocument struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Summary     Summary       `json:"summary"`
	Details     []CheckResult `json:"details"`
}

// WriteJSON serializes the report to path, replacing any previous file.
func (r *Report) WriteJSON(path string) error {
	doc := reportDocument{
		RunID:       r.RunID,
		GeneratedAt: time.Now().UTC(),
		Summary:     r.Summarize(),
		Details:     r.results,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal quality report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return fmt.Errorf("create report temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}
