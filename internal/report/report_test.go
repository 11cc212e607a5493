package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvidia/nim-usage-scanner/internal/model"
)

func sampleReport() model.ScanReport {
	sourceCode := model.Findings{
		LocalNIM: []model.LocalMatch{
			{Repository: "r1", FilePath: "Dockerfile", LineNumber: 1,
				ImagePath: "nvidia/llama-3.1-8b-instruct", Tag: "latest", MatchContext: "FROM ..."},
		},
		HostedNIM: []model.HostedMatch{
			{Repository: "r2", FilePath: "app.py", LineNumber: 3,
				ModelName: "meta/llama-3.1-8b-instruct", EndpointURL: "https://integrate.api.nvidia.com/v1"},
		},
	}
	actionsWorkflow := model.Findings{
		LocalNIM: []model.LocalMatch{
			{Repository: "r1", FilePath: ".github/workflows/ci.yml", LineNumber: 12,
				ImagePath: "nvidia/llama-3.1-8b-instruct", Tag: "latest"},
		},
	}
	agg := model.Aggregated{
		LocalNIM: []model.AggregatedLocal{
			{ImagePath: "nvidia/llama-3.1-8b-instruct", Tag: "latest", ResolvedTag: "1.3.0"},
		},
		HostedNIM: []model.AggregatedHosted{
			{ModelName: "meta/llama-3.1-8b-instruct", FunctionID: "f-123", Status: "ACTIVE"},
		},
	}
	return Assemble(sourceCode, actionsWorkflow, agg, 3)
}

func TestAssembleSummary(t *testing.T) {
	rep := sampleReport()

	assert.Equal(t, 3, rep.TotalRepos)
	assert.Equal(t, 2, rep.Summary.TotalLocalNIM)
	assert.Equal(t, 1, rep.Summary.TotalHostedNIM)
	assert.Equal(t, 2, rep.Summary.ReposWithNIM, "r1 and r2, counted once each")
	assert.Equal(t, model.CategorySummary{LocalNIM: 1, HostedNIM: 1}, rep.Summary.SourceCode)
	assert.Equal(t, model.CategorySummary{LocalNIM: 1, HostedNIM: 0}, rep.Summary.ActionsWorkflow)
	assert.NotEmpty(t, rep.ScanTime)
}

func TestWriteJSONRoundTrip(t *testing.T) {
	rep := sampleReport()
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSON(path, &rep))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back model.ScanReport
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rep.Summary, back.Summary)
	assert.Equal(t, rep.Aggregated, back.Aggregated)
}

func TestWriteCSV(t *testing.T) {
	rep := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, &rep))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus one row per finding")
	assert.Equal(t, csvHeader, rows[0])

	// Local finding carries the resolved tag from its aggregated entry.
	local := rows[1]
	assert.Equal(t, "source_code", local[0])
	assert.Equal(t, "local", local[1])
	assert.Equal(t, "nvidia/llama-3.1-8b-instruct", local[5])
	assert.Equal(t, "1.3.0", local[7])

	// Hosted finding carries the function metadata.
	hosted := rows[2]
	assert.Equal(t, "hosted", hosted[1])
	assert.Equal(t, "meta/llama-3.1-8b-instruct", hosted[9])
	assert.Equal(t, "f-123", hosted[10])
	assert.Equal(t, "ACTIVE", hosted[11])

	// Workflow occurrence of the same image shares the enrichment.
	workflow := rows[3]
	assert.Equal(t, "actions_workflow", workflow[0])
	assert.Equal(t, "1.3.0", workflow[7])
}

func TestPrintSummary(t *testing.T) {
	rep := sampleReport()

	var buf bytes.Buffer
	PrintSummary(&buf, &rep)
	out := buf.String()

	assert.Contains(t, out, "Repositories scanned: 3")
	assert.Contains(t, out, "nvidia/llama-3.1-8b-instruct:latest (latest: 1.3.0)")
	assert.Contains(t, out, "meta/llama-3.1-8b-instruct (function f-123, ACTIVE)")
}
