package scanner

import (
	"path/filepath"
	"strings"
)

// ContentType tags a file so the extractor can pick content-specific rules
// (YAML gets multi-line context searches, everything else is line-local).
type ContentType int

const (
	ContentOther ContentType = iota
	ContentDockerfile
	ContentYAML
	ContentShell
	ContentCode
)

// scanExtensions lists the file extensions worth scanning. Lowercase, no dot.
var scanExtensions = map[string]struct{}{
	"py": {}, "yaml": {}, "yml": {}, "sh": {}, "bash": {},
	"js": {}, "ts": {}, "jsx": {}, "tsx": {},
	"dockerfile": {}, "env": {}, "json": {}, "toml": {},
	"cfg": {}, "ini": {}, "conf": {}, "md": {},
}

// skipDirs are directory names excluded from the walk, matched as whole path
// components. .github is deliberately not here: workflows must be scanned.
var skipDirs = map[string]struct{}{
	".git": {}, "node_modules": {}, "vendor": {}, "__pycache__": {},
	".venv": {}, "venv": {}, "target": {}, "build": {}, "dist": {},
	".tox": {}, ".pytest_cache": {}, ".mypy_cache": {}, "eggs": {}, ".eggs": {},
}

// Eligible reports whether a file should be scanned based on its name.
func Eligible(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(name, "dockerfile") {
		return true
	}
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return false
	}
	_, ok := scanExtensions[ext]
	return ok
}

// DetectContentType derives the content type from the file name.
func DetectContentType(path string) ContentType {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(name, "dockerfile") {
		return ContentDockerfile
	}
	switch strings.TrimPrefix(filepath.Ext(name), ".") {
	case "yaml", "yml":
		return ContentYAML
	case "sh", "bash":
		return ContentShell
	case "py", "js", "ts", "jsx", "tsx":
		return ContentCode
	case "dockerfile":
		return ContentDockerfile
	default:
		return ContentOther
	}
}

func skippable(component string) bool {
	_, ok := skipDirs[component]
	return ok
}
