package generator

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineReport_Save(t *testing.T) {
	r := NewPipelineReport("build")

	h := r.BeginStage(StageIndex)
	r.EndStage(h, map[string]float64{"namespaces": 2, "symbols": 11, " ": 1}, nil)
	h = r.BeginStage(StageLink)
	r.EndStage(h, map[string]float64{"pages": 3, "citations": 5}, nil)
	r.AddNote("  nest_under chapter missing ")
	h = r.BeginStage(StageRender)
	r.EndStage(h, nil, errors.New("boom"))
	r.AddSignal("nest_under_missing", StageLink, "Warning", "Chapter `API` not found.", 0)
	r.AddSignal("", StageLink, "info", "dropped", 0)

	fs := afero.NewMemMapFs()
	require.NoError(t, r.Save(fs, "/out/pipeline_report.json"))

	data, err := afero.ReadFile(fs, "/out/pipeline_report.json")
	require.NoError(t, err)
	var saved PipelineReport
	require.NoError(t, json.Unmarshal(data, &saved))

	assert.Equal(t, "build", saved.Mode)
	require.Len(t, saved.Stages, 3)
	assert.Equal(t, map[string]float64{"namespaces": 2, "symbols": 11}, saved.Stages[0].Counters)
	assert.Equal(t, []string{"nest_under chapter missing"}, saved.Stages[1].Notes)
	assert.Equal(t, "error", saved.Stages[2].Status)
	assert.Equal(t, "boom", saved.Stages[2].Error)
	require.Len(t, saved.Signals, 1)
	assert.Equal(t, "warning", saved.Signals[0].Severity)

	assert.Equal(t, ReportSummary{
		StageCount:        3,
		FailedStages:      1,
		Pages:             3,
		Citations:         5,
		Namespaces:        2,
		Symbols:           11,
		SignalsBySeverity: map[string]int{"critical": 0, "warning": 1, "info": 0},
	}, saved.Summary)
}
