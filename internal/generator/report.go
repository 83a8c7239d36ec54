package generator

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

type ReportSignal struct {
	Code     string  `json:"code"`
	Stage    string  `json:"stage"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value,omitempty"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type ReportSummary struct {
	StageCount        int            `json:"stage_count"`
	FailedStages      int            `json:"failed_stages"`
	Pages             int            `json:"pages"`
	Citations         int            `json:"citations"`
	Namespaces        int            `json:"namespaces"`
	Symbols           int            `json:"symbols"`
	SignalsBySeverity map[string]int `json:"signals_by_severity"`
}

// PipelineReport records stage timings and counters of one run.
type PipelineReport struct {
	Version     string         `json:"version"`
	Mode        string         `json:"mode"`
	GeneratedAt string         `json:"generated_at"`
	Stages      []StageMetric  `json:"stages"`
	Signals     []ReportSignal `json:"signals,omitempty"`
	Summary     ReportSummary  `json:"summary"`
}

type StageHandle struct {
	name    string
	started time.Time
}

func NewPipelineReport(mode string) *PipelineReport {
	return &PipelineReport{
		Version:     "v1",
		Mode:        mode,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Stages:      []StageMetric{},
		Signals:     []ReportSignal{},
	}
}

func (r *PipelineReport) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

func (r *PipelineReport) EndStage(h StageHandle, counters map[string]float64, err error) {
	if r == nil || h.name == "" {
		return
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     "ok",
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
	}
	if err != nil {
		m.Status = "error"
		m.Error = err.Error()
	}
	r.Stages = append(r.Stages, m)
}

// AddNote attaches a note to the most recent stage.
func (r *PipelineReport) AddNote(note string) {
	if r == nil || len(r.Stages) == 0 {
		return
	}
	if note = strings.TrimSpace(note); note != "" {
		last := &r.Stages[len(r.Stages)-1]
		last.Notes = append(last.Notes, note)
	}
}

func (r *PipelineReport) AddSignal(code, stage, severity, message string, value float64) {
	if r == nil {
		return
	}
	s := ReportSignal{
		Code:     strings.TrimSpace(code),
		Stage:    strings.TrimSpace(stage),
		Severity: strings.ToLower(strings.TrimSpace(severity)),
		Message:  strings.TrimSpace(message),
		Value:    value,
	}
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.Signals = append(r.Signals, s)
}

// Counter returns a counter recorded by the named stage.
func (r *PipelineReport) Counter(stage, name string) float64 {
	for _, st := range r.Stages {
		if st.Name == stage {
			return st.Counters[name]
		}
	}
	return 0
}

func (r *PipelineReport) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	severityCount := map[string]int{
		"critical": 0,
		"warning":  0,
		"info":     0,
	}
	sort.SliceStable(r.Signals, func(i, j int) bool {
		pi := signalPriority(r.Signals[i].Severity)
		pj := signalPriority(r.Signals[j].Severity)
		if pi == pj {
			if r.Signals[i].Stage == r.Signals[j].Stage {
				return r.Signals[i].Code < r.Signals[j].Code
			}
			return r.Signals[i].Stage < r.Signals[j].Stage
		}
		return pi > pj
	})
	for _, s := range r.Signals {
		severityCount[s.Severity]++
	}

	failed := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failed++
		}
	}

	r.Summary = ReportSummary{
		StageCount:        len(r.Stages),
		FailedStages:      failed,
		Pages:             int(r.Counter(StageLink, "pages")),
		Citations:         int(r.Counter(StageLink, "citations")),
		Namespaces:        int(r.Counter(StageIndex, "namespaces")),
		Symbols:           int(r.Counter(StageIndex, "symbols")),
		SignalsBySeverity: severityCount,
	}
}

// Log writes one line per stage.
func (r *PipelineReport) Log(log logrus.FieldLogger) {
	for _, st := range r.Stages {
		fields := logrus.Fields{"stage": st.Name, "status": st.Status, "duration_ms": st.DurationMS}
		for k, v := range st.Counters {
			fields[k] = v
		}
		log.WithFields(fields).Info("Pipeline stage")
	}
	for _, s := range r.Signals {
		log.WithFields(logrus.Fields{"code": s.Code, "stage": s.Stage}).Warn(s.Message)
	}
}

func (r *PipelineReport) Save(fs afero.Fs, path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return afero.WriteFile(fs, path, data, 0o644)
}

// Stage names used by the pipeline.
const (
	StageLoad   = "load_descriptors"
	StageIndex  = "index"
	StageLink   = "link_pages"
	StageAttach = "attach_backlinks"
	StageRender = "render_namespaces"
	StageWrite  = "write_output"
	StageExport = "export"
)

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func signalPriority(severity string) int {
	switch severity {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}
