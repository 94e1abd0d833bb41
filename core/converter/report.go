package converter

import (
	"encoding/json"
	"io"
	"time"
)

// Report 机器可读的运行报告
type Report struct {
	Root        string        `json:"root"`
	SessionID   string        `json:"session_id,omitempty"`
	DryRun      bool          `json:"dry_run"`
	Interrupted bool          `json:"interrupted"`
	Stats       StatsSnapshot `json:"stats"`
	Reduction   float64       `json:"reduction_percent"`
	HealthRate  float64       `json:"health_rate_percent"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// NewReport 由运行结果生成报告
func NewReport(s *Summary) Report {
	return Report{
		Root:        s.Root,
		SessionID:   s.SessionID,
		DryRun:      s.DryRun,
		Interrupted: s.Interrupted,
		Stats:       s.Stats,
		Reduction:   s.Stats.Reduction(),
		HealthRate:  s.Stats.HealthRate(),
		GeneratedAt: time.Now(),
	}
}

// WriteJSON 输出单行JSON
func (r Report) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}
