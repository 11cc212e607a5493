package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvidia/nim-usage-scanner/internal/model"
)

func localMatch(repo, file string, line int, image, tag string) model.LocalMatch {
	return model.LocalMatch{Repository: repo, FilePath: file, LineNumber: line, ImagePath: image, Tag: tag}
}

func TestBuildGroupsLocalByImagePath(t *testing.T) {
	sourceCode := model.Findings{
		LocalNIM: []model.LocalMatch{
			localMatch("r1", "Dockerfile", 1, "nvidia/llama-3.1-8b-instruct", "1.3.0"),
			localMatch("r2", "compose.yaml", 12, "nvidia/llama-3.1-8b-instruct", "latest"),
			localMatch("r1", "Dockerfile.gpu", 1, "nvidia/embedqa", "2.0"),
		},
	}
	actionsWorkflow := model.Findings{
		LocalNIM: []model.LocalMatch{
			localMatch("r1", ".github/workflows/ci.yml", 30, "nvidia/llama-3.1-8b-instruct", "1.2.0"),
		},
	}

	agg := Build(&sourceCode, &actionsWorkflow)

	require.Len(t, agg.LocalNIM, 2)
	llama := agg.LocalNIM[0]
	assert.Equal(t, "nvidia/llama-3.1-8b-instruct", llama.ImagePath)
	assert.Equal(t, "1.3.0", llama.Tag, "representative tag is the first seen")
	require.Len(t, llama.Locations, 3)
	assert.Equal(t, model.SourceCode, llama.Locations[0].SourceType)
	assert.Equal(t, model.ActionsWorkflow, llama.Locations[2].SourceType)
	assert.Equal(t, 30, llama.Locations[2].LineNumber)

	assert.Equal(t, "nvidia/embedqa", agg.LocalNIM[1].ImagePath)
}

func TestBuildGroupsHostedByModelName(t *testing.T) {
	sourceCode := model.Findings{
		HostedNIM: []model.HostedMatch{
			{Repository: "r1", FilePath: "app.py", LineNumber: 3, ModelName: "meta/llama-3.1-8b-instruct"},
			{Repository: "r2", FilePath: "llm.py", LineNumber: 9, ModelName: "meta/llama-3.1-8b-instruct",
				EndpointURL: "https://integrate.api.nvidia.com/v1"},
			{Repository: "r1", FilePath: "cfg.yaml", LineNumber: 5, EndpointURL: "https://build.api.nvidia.com/v1"},
		},
	}
	var actionsWorkflow model.Findings

	agg := Build(&sourceCode, &actionsWorkflow)

	require.Len(t, agg.HostedNIM, 2)
	assert.Equal(t, "meta/llama-3.1-8b-instruct", agg.HostedNIM[0].ModelName)
	assert.Equal(t, "https://integrate.api.nvidia.com/v1", agg.HostedNIM[0].EndpointURL,
		"endpoint backfilled from a later occurrence")
	assert.Len(t, agg.HostedNIM[0].Locations, 2)

	assert.Empty(t, agg.HostedNIM[1].ModelName)
	assert.Equal(t, "https://build.api.nvidia.com/v1", agg.HostedNIM[1].EndpointURL)
}

func TestBuildMembershipIgnoresInputOrder(t *testing.T) {
	a := localMatch("r1", "Dockerfile", 1, "nvidia/llama", "1.0")
	b := localMatch("r2", "compose.yaml", 2, "nvidia/llama", "2.0")
	c := localMatch("r3", "run.sh", 3, "nvidia/embedqa", "1.0")

	forward := model.Findings{LocalNIM: []model.LocalMatch{a, b, c}}
	reversed := model.Findings{LocalNIM: []model.LocalMatch{c, b, a}}
	var empty model.Findings

	aggF := Build(&forward, &empty)
	aggR := Build(&reversed, &empty)

	membership := func(agg model.Aggregated) map[string]int {
		out := make(map[string]int)
		for _, e := range agg.LocalNIM {
			out[e.ImagePath] = len(e.Locations)
		}
		return out
	}
	assert.Equal(t, membership(aggF), membership(aggR))
}

func TestBuildEmpty(t *testing.T) {
	var sourceCode, actionsWorkflow model.Findings
	agg := Build(&sourceCode, &actionsWorkflow)
	assert.Empty(t, agg.LocalNIM)
	assert.Empty(t, agg.HostedNIM)
}
