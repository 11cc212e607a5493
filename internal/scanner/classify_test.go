package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvidia/nim-usage-scanner/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want model.SourceType
	}{
		{".github/workflows/ci.yml", model.ActionsWorkflow},
		{".github/workflows/deploy.yaml", model.ActionsWorkflow},
		{`.github\workflows\ci.yml`, model.ActionsWorkflow},
		{".github/workflows/ci.sh", model.SourceCode},
		{".github/dependabot.yml", model.SourceCode},
		{"deploy/workflows/ci.yml", model.SourceCode},
		{"src/app.py", model.SourceCode},
		{"Dockerfile", model.SourceCode},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.path), "path %q", tc.path)
	}
}

func TestCategorize(t *testing.T) {
	local := []model.LocalMatch{
		{Repository: "r", FilePath: "Dockerfile", ImagePath: "nvidia/a", Tag: "1.0", LineNumber: 1},
		{Repository: "r", FilePath: ".github/workflows/ci.yml", ImagePath: "nvidia/a", Tag: "1.0", LineNumber: 7},
	}
	hosted := []model.HostedMatch{
		{Repository: "r", FilePath: "app.py", ModelName: "meta/llama", LineNumber: 3},
	}

	sourceCode, actionsWorkflow := Categorize(local, hosted)

	assert.Len(t, sourceCode.LocalNIM, 1)
	assert.Len(t, sourceCode.HostedNIM, 1)
	assert.Len(t, actionsWorkflow.LocalNIM, 1)
	assert.Empty(t, actionsWorkflow.HostedNIM)
	assert.Equal(t, 7, actionsWorkflow.LocalNIM[0].LineNumber)
}
