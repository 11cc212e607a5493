package scanner

import "github.com/nvidia/nim-usage-scanner/internal/model"

type lineKey struct {
	repository string
	filePath   string
	lineNumber int
}

// Dedupe drops matches that describe the same physical line, keeping the
// first occurrence in scan order. A line corresponds to at most one finding
// per artifact kind even when several sub-patterns matched overlapping
// spans. Idempotent.
func Dedupe(f *model.Findings) {
	seen := make(map[lineKey]struct{}, len(f.LocalNIM))
	local := f.LocalNIM[:0]
	for _, m := range f.LocalNIM {
		k := lineKey{m.Repository, m.FilePath, m.LineNumber}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		local = append(local, m)
	}
	f.LocalNIM = local

	seen = make(map[lineKey]struct{}, len(f.HostedNIM))
	hosted := f.HostedNIM[:0]
	for _, m := range f.HostedNIM {
		k := lineKey{m.Repository, m.FilePath, m.LineNumber}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		hosted = append(hosted, m)
	}
	f.HostedNIM = hosted
}
