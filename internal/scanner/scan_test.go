package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanRepos(t *testing.T) {
	root := t.TempDir()

	writeFile(t, root, "Dockerfile",
		"FROM nvcr.io/nim/nvidia/llama-3.1-8b-instruct:1.3.0\n")
	writeFile(t, root, "src/app.py",
		`client = ChatNVIDIA(model="meta/llama-3.1-8b-instruct", base_url="https://integrate.api.nvidia.com/v1")`+"\n")
	writeFile(t, root, ".github/workflows/ci.yml",
		"jobs:\n  test:\n    container: nvcr.io/nim/nvidia/llama-3.1-8b-instruct:1.3.0\n")
	// Ignored: skip dir and ineligible extension.
	writeFile(t, root, "node_modules/pkg/index.yaml",
		"image: nvcr.io/nim/nvidia/should-not-appear:1.0\n")
	writeFile(t, root, "weights.bin",
		"nvcr.io/nim/nvidia/should-not-appear:1.0\n")

	ext := NewExtractor([]string{"nvidia", "meta"})
	res, err := ScanRepos(context.Background(), []Repo{{Name: "acme/app", Root: root}}, ext, 2, zap.NewNop())
	require.NoError(t, err)

	require.Len(t, res.Local, 2)
	require.Len(t, res.Hosted, 1)

	for _, m := range res.Local {
		assert.Equal(t, "acme/app", m.Repository)
		assert.Equal(t, "nvidia/llama-3.1-8b-instruct", m.ImagePath)
		assert.Equal(t, "1.3.0", m.Tag)
	}
	assert.Equal(t, "meta/llama-3.1-8b-instruct", res.Hosted[0].ModelName)
	assert.Equal(t, "src/app.py", res.Hosted[0].FilePath)
}

func TestScanReposDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", `model = "meta/llama-a"`+"\n")
	writeFile(t, root, "b.py", `model = "meta/llama-b"`+"\n")
	writeFile(t, root, "c.py", `model = "meta/llama-c"`+"\n")

	ext := NewExtractor([]string{"meta"})
	repos := []Repo{{Name: "r", Root: root}}

	first, err := ScanRepos(context.Background(), repos, ext, 3, zap.NewNop())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ScanRepos(context.Background(), repos, ext, 3, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
