package model

// Location is one place a NIM reference appeared, with its source type
// retained so category provenance survives aggregation.
type Location struct {
	SourceType   SourceType `json:"source_type"`
	Repository   string     `json:"repository"`
	FilePath     string     `json:"file_path"`
	LineNumber   int        `json:"line_number"`
	MatchContext string     `json:"match_context"`
}

// AggregatedLocal groups every occurrence of one image identity. The tag is
// the first one seen in merge order; ResolvedTag is filled by enrichment when
// the tag is "latest".
type AggregatedLocal struct {
	ImagePath   string     `json:"image_path"`
	Tag         string     `json:"tag"`
	ResolvedTag string     `json:"resolved_tag,omitempty"`
	Locations   []Location `json:"locations"`
}

// AggregatedHosted groups every occurrence of one hosted model identity.
// FunctionID, Status and ContainerImage are filled by enrichment.
type AggregatedHosted struct {
	EndpointURL    string     `json:"endpoint_url,omitempty"`
	ModelName      string     `json:"model_name,omitempty"`
	FunctionID     string     `json:"function_id,omitempty"`
	Status         string     `json:"status,omitempty"`
	ContainerImage string     `json:"container_image,omitempty"`
	Locations      []Location `json:"locations"`
}

// Aggregated is the identity-grouped view of all findings.
type Aggregated struct {
	LocalNIM  []AggregatedLocal  `json:"local_nim"`
	HostedNIM []AggregatedHosted `json:"hosted_nim"`
}

// CategorySummary counts findings within one source type.
type CategorySummary struct {
	LocalNIM  int `json:"local_nim"`
	HostedNIM int `json:"hosted_nim"`
}

// Summary holds the scan-wide counts.
type Summary struct {
	TotalLocalNIM   int             `json:"total_local_nim"`
	TotalHostedNIM  int             `json:"total_hosted_nim"`
	ReposWithNIM    int             `json:"repos_with_nim"`
	SourceCode      CategorySummary `json:"source_code"`
	ActionsWorkflow CategorySummary `json:"actions_workflow"`
}

// ScanReport is the complete result of one run. It is assembled once after
// enrichment and read-only afterwards.
type ScanReport struct {
	ScanTime        string     `json:"scan_time"`
	TotalRepos      int        `json:"total_repos"`
	SourceCode      Findings   `json:"source_code"`
	ActionsWorkflow Findings   `json:"actions_workflow"`
	Aggregated      Aggregated `json:"aggregated"`
	Summary         Summary    `json:"summary"`
}
