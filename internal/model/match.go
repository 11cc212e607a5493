package model

// SourceType says where in a repository a match was found.
type SourceType string

const (
	// SourceCode covers everything outside .github/workflows/.
	SourceCode SourceType = "source_code"
	// ActionsWorkflow covers .github/workflows/*.yml and *.yaml.
	ActionsWorkflow SourceType = "actions_workflow"
)

// LocalMatch is a detected Local NIM reference: a container image pulled
// from nvcr.io/nim/<team>/<model>.
type LocalMatch struct {
	Repository string `json:"repository"`
	// ImagePath is the team/model identity, e.g. "nvidia/llama-3.2-nv-embedqa-1b-v2".
	ImagePath string `json:"image_path"`
	// Tag as written in the source, or "latest" when the reference carries none.
	Tag string `json:"tag"`
	// FilePath is relative to the repository root.
	FilePath     string `json:"file_path"`
	LineNumber   int    `json:"line_number"`
	MatchContext string `json:"match_context"`
}

// HostedMatch is a detected Hosted NIM reference: an NVIDIA API endpoint
// and/or a model name. At least one of EndpointURL and ModelName is set.
type HostedMatch struct {
	Repository   string `json:"repository"`
	EndpointURL  string `json:"endpoint_url,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	FilePath     string `json:"file_path"`
	LineNumber   int    `json:"line_number"`
	MatchContext string `json:"match_context"`
}

// Findings holds the matches of one source type.
type Findings struct {
	LocalNIM  []LocalMatch  `json:"local_nim"`
	HostedNIM []HostedMatch `json:"hosted_nim"`
}

// IsEmpty reports whether there are no findings of either kind.
func (f *Findings) IsEmpty() bool {
	return len(f.LocalNIM) == 0 && len(f.HostedNIM) == 0
}

// TotalCount returns the number of findings of both kinds.
func (f *Findings) TotalCount() int {
	return len(f.LocalNIM) + len(f.HostedNIM)
}
