package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvidia/nim-usage-scanner/internal/model"
)

func TestDedupeFirstWins(t *testing.T) {
	f := model.Findings{
		LocalNIM: []model.LocalMatch{
			{Repository: "r", FilePath: "Dockerfile", LineNumber: 3, Tag: "1.0"},
			{Repository: "r", FilePath: "Dockerfile", LineNumber: 3, Tag: "2.0"},
			{Repository: "r", FilePath: "Dockerfile", LineNumber: 9, Tag: "1.0"},
			{Repository: "other", FilePath: "Dockerfile", LineNumber: 3, Tag: "1.0"},
		},
		HostedNIM: []model.HostedMatch{
			{Repository: "r", FilePath: "app.py", LineNumber: 5, ModelName: "meta/llama"},
			{Repository: "r", FilePath: "app.py", LineNumber: 5, ModelName: "meta/other"},
		},
	}

	Dedupe(&f)

	assert.Len(t, f.LocalNIM, 3)
	assert.Equal(t, "1.0", f.LocalNIM[0].Tag, "first occurrence wins")
	assert.Len(t, f.HostedNIM, 1)
	assert.Equal(t, "meta/llama", f.HostedNIM[0].ModelName)
}

func TestDedupeKindsAreIndependent(t *testing.T) {
	f := model.Findings{
		LocalNIM: []model.LocalMatch{
			{Repository: "r", FilePath: "config.yaml", LineNumber: 4},
		},
		HostedNIM: []model.HostedMatch{
			{Repository: "r", FilePath: "config.yaml", LineNumber: 4, ModelName: "meta/llama"},
		},
	}

	Dedupe(&f)

	assert.Len(t, f.LocalNIM, 1)
	assert.Len(t, f.HostedNIM, 1)
}

func TestDedupeIdempotent(t *testing.T) {
	f := model.Findings{
		LocalNIM: []model.LocalMatch{
			{Repository: "r", FilePath: "Dockerfile", LineNumber: 3},
			{Repository: "r", FilePath: "Dockerfile", LineNumber: 3},
		},
	}

	Dedupe(&f)
	first := append([]model.LocalMatch(nil), f.LocalNIM...)
	Dedupe(&f)

	assert.Equal(t, first, f.LocalNIM)
}
