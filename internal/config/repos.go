package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RepoSpec is one repository to scan.
type RepoSpec struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Branch  string `yaml:"branch,omitempty"`
	Depth   int    `yaml:"depth,omitempty"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// ReposFile is the on-disk scan target list.
type ReposFile struct {
	Version  int `yaml:"version"`
	Defaults struct {
		Branch string `yaml:"branch"`
		Depth  int    `yaml:"depth"`
	} `yaml:"defaults"`
	Repos []RepoSpec `yaml:"repos"`
}

// LoadRepos parses and validates the repos file and returns the enabled
// entries with defaults applied.
func LoadRepos(path string) ([]RepoSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read repos file: %w", err)
	}

	var rf ReposFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rf.Repos) == 0 {
		return nil, fmt.Errorf("%s lists no repositories", path)
	}
	if rf.Defaults.Branch == "" {
		rf.Defaults.Branch = "main"
	}
	if rf.Defaults.Depth <= 0 {
		rf.Defaults.Depth = 1
	}

	seen := make(map[string]struct{}, len(rf.Repos))
	var repos []RepoSpec
	for i, r := range rf.Repos {
		if r.Name == "" {
			return nil, fmt.Errorf("%s: repo #%d has no name", path, i+1)
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate repo name %q", path, r.Name)
		}
		seen[r.Name] = struct{}{}
		if err := validateRepoURL(r.URL); err != nil {
			return nil, fmt.Errorf("%s: repo %q: %w", path, r.Name, err)
		}
		if r.Branch == "" {
			r.Branch = rf.Defaults.Branch
		}
		if r.Depth <= 0 {
			r.Depth = rf.Defaults.Depth
		}
		if r.Enabled != nil && !*r.Enabled {
			continue
		}
		repos = append(repos, r)
	}
	if len(repos) == 0 {
		return nil, fmt.Errorf("%s: every repository is disabled", path)
	}
	return repos, nil
}

func validateRepoURL(url string) error {
	if url == "" {
		return fmt.Errorf("missing url")
	}
	for _, prefix := range []string{"https://", "http://", "git@", "ssh://"} {
		if strings.HasPrefix(url, prefix) {
			return nil
		}
	}
	return fmt.Errorf("unsupported url %q", url)
}
