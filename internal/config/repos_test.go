package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeReposFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRepos(t *testing.T) {
	path := writeReposFile(t, `
version: 1
defaults:
  branch: develop
  depth: 2
repos:
  - name: acme/app
    url: https://github.com/acme/app.git
  - name: acme/infra
    url: git@github.com:acme/infra.git
    branch: main
    depth: 1
  - name: acme/old
    url: https://github.com/acme/old.git
    enabled: false
`)

	repos, err := LoadRepos(path)
	require.NoError(t, err)
	require.Len(t, repos, 2, "disabled repos are filtered out")

	assert.Equal(t, "acme/app", repos[0].Name)
	assert.Equal(t, "develop", repos[0].Branch, "default applied")
	assert.Equal(t, 2, repos[0].Depth)

	assert.Equal(t, "main", repos[1].Branch, "explicit value kept")
	assert.Equal(t, 1, repos[1].Depth)
}

func TestLoadReposDefaultsWhenOmitted(t *testing.T) {
	path := writeReposFile(t, `
repos:
  - name: acme/app
    url: https://github.com/acme/app.git
`)

	repos, err := LoadRepos(path)
	require.NoError(t, err)
	assert.Equal(t, "main", repos[0].Branch)
	assert.Equal(t, 1, repos[0].Depth)
}

func TestLoadReposValidation(t *testing.T) {
	cases := map[string]string{
		"empty list": `repos: []`,
		"missing name": `
repos:
  - url: https://github.com/acme/app.git`,
		"duplicate name": `
repos:
  - name: acme/app
    url: https://github.com/acme/app.git
  - name: acme/app
    url: https://github.com/acme/app2.git`,
		"missing url": `
repos:
  - name: acme/app`,
		"bad url scheme": `
repos:
  - name: acme/app
    url: ftp://example.com/app.git`,
		"all disabled": `
repos:
  - name: acme/app
    url: https://github.com/acme/app.git
    enabled: false`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRepos(writeReposFile(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadReposMissingFile(t *testing.T) {
	_, err := LoadRepos(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
