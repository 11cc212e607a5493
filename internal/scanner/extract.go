package scanner

import (
	"regexp"
	"strings"

	"github.com/nvidia/nim-usage-scanner/internal/model"
)

var (
	// Local NIM images: nvcr.io/nim/<team>/<model>[:tag]
	localWithTag = regexp.MustCompile(`nvcr\.io/nim/([a-zA-Z0-9._-]+/[a-zA-Z0-9._-]+):([a-zA-Z0-9._-]+)`)
	localNoTag   = regexp.MustCompile(`nvcr\.io/nim/([a-zA-Z0-9._-]+/[a-zA-Z0-9._-]+)(?:[^:a-zA-Z0-9._-]|$)`)

	// Hosted NIM endpoints on the fixed NVIDIA API domains.
	hostedEndpoint = regexp.MustCompile(`https://(?:integrate|ai|build)\.api\.nvidia\.com[^\s"')]*`)

	// model = "org/name" and model: "org/name" assignments.
	modelAssign = regexp.MustCompile(`model\s*[=:]\s*["']([a-zA-Z0-9._-]+/[^"']+)["']`)

	// LangChain NVIDIA client constructors carrying a model argument.
	clientCtor = regexp.MustCompile(`(?:ChatNVIDIA|NVIDIAEmbeddings|NVIDIARerank)\s*\([^)]*model\s*=\s*["']([^"']+)["']`)

	// Standalone YAML fields used for multi-line association.
	yamlTagField   = regexp.MustCompile(`^\s*tag:\s*["']?([a-zA-Z0-9._-]+)["']?\s*$`)
	yamlModelField = regexp.MustCompile(`model(?:_name)?\s*[:=]\s*["']?([a-zA-Z0-9_/-]+/[a-zA-Z0-9._-]+)["']?`)
)

const (
	// How far a YAML no-tag image may look ahead for a standalone tag: field.
	tagLookaheadLines = 3
	// How far a YAML endpoint may look around for a model/model_name field.
	modelContextLines = 10
)

// Extractor turns single lines into raw matches. It is a pure function of
// its inputs: the publisher allowlist is injected at construction, not read
// from globals.
type Extractor struct {
	publishers map[string]struct{}
}

// NewExtractor builds an Extractor accepting the given publisher org names.
func NewExtractor(publishers []string) *Extractor {
	set := make(map[string]struct{}, len(publishers))
	for _, p := range publishers {
		set[p] = struct{}{}
	}
	return &Extractor{publishers: set}
}

// ExtractLocal returns the Local NIM match on lines[idx], or nil. The
// with-tag pattern wins over the no-tag pattern; a missing tag becomes the
// "latest" sentinel. In YAML, a "latest" result additionally looks ahead up
// to three lines for a standalone tag: field carrying the pinned version.
func (e *Extractor) ExtractLocal(lines []string, idx int, ctype ContentType, repo, file string) *model.LocalMatch {
	line := lines[idx]

	var imagePath, tag string
	if m := localWithTag.FindStringSubmatch(line); m != nil {
		imagePath, tag = m[1], m[2]
	} else if m := localNoTag.FindStringSubmatch(line); m != nil {
		imagePath, tag = m[1], "latest"
	} else {
		return nil
	}

	if tag == "latest" && ctype == ContentYAML {
		if pinned, ok := lookaheadTag(lines, idx); ok {
			tag = pinned
		}
	}

	return &model.LocalMatch{
		Repository:   repo,
		ImagePath:    imagePath,
		Tag:          tag,
		FilePath:     file,
		LineNumber:   idx + 1,
		MatchContext: strings.TrimSpace(line),
	}
}

// ExtractHosted returns the Hosted NIM match on lines[idx], or nil. Endpoint
// and model name are extracted independently; a model name may be derived
// from the endpoint URL path or, in YAML, associated from surrounding lines.
// Any candidate model name must carry an allowlisted publisher org or it is
// discarded.
func (e *Extractor) ExtractHosted(lines []string, idx int, ctype ContentType, repo, file string) *model.HostedMatch {
	line := lines[idx]

	endpoint := hostedEndpoint.FindString(line)

	modelName := ""
	if m := modelAssign.FindStringSubmatch(line); m != nil {
		modelName = m[1]
	}
	if modelName == "" {
		if m := clientCtor.FindStringSubmatch(line); m != nil {
			modelName = m[1]
		}
	}
	if modelName == "" && endpoint != "" {
		modelName = modelFromURL(endpoint)
	}
	if modelName == "" && endpoint != "" && ctype == ContentYAML {
		modelName = modelFromContext(lines, idx)
	}

	if modelName != "" && !e.allowedPublisher(modelName) {
		modelName = ""
	}
	if endpoint == "" && modelName == "" {
		return nil
	}

	return &model.HostedMatch{
		Repository:   repo,
		EndpointURL:  endpoint,
		ModelName:    modelName,
		FilePath:     file,
		LineNumber:   idx + 1,
		MatchContext: strings.TrimSpace(line),
	}
}

func (e *Extractor) allowedPublisher(modelName string) bool {
	org, _, found := strings.Cut(modelName, "/")
	if !found {
		return false
	}
	_, ok := e.publishers[org]
	return ok
}

// lookaheadTag scans up to tagLookaheadLines lines after idx for a
// standalone tag: field. Bounded so a tag belonging to an unrelated key
// further down is never associated.
func lookaheadTag(lines []string, idx int) (string, bool) {
	end := idx + tagLookaheadLines
	if end > len(lines)-1 {
		end = len(lines) - 1
	}
	for i := idx + 1; i <= end; i++ {
		if m := yamlTagField.FindStringSubmatch(lines[i]); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// modelFromContext searches up to modelContextLines lines before and after
// idx for a model/model_name field. Backwards first: the model usually
// precedes the base_url in client configs.
func modelFromContext(lines []string, idx int) string {
	start := idx - modelContextLines
	if start < 0 {
		start = 0
	}
	for i := idx - 1; i >= start; i-- {
		if m := yamlModelField.FindStringSubmatch(lines[i]); m != nil {
			return m[1]
		}
	}
	end := idx + modelContextLines
	if end > len(lines)-1 {
		end = len(lines) - 1
	}
	for i := idx + 1; i <= end; i++ {
		if m := yamlModelField.FindStringSubmatch(lines[i]); m != nil {
			return m[1]
		}
	}
	return ""
}

// modelFromURL derives org/model from an NVIDIA API URL path, e.g.
// https://ai.api.nvidia.com/v1/cv/baidu/paddleocr -> baidu/paddleocr.
// Generic endpoints (bare /v1, chat/completions, embeddings) yield nothing.
func modelFromURL(url string) string {
	rest := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	_, path, found := strings.Cut(rest, "/")
	if !found {
		return ""
	}
	if path == "" || path == "v1" ||
		strings.HasSuffix(path, "/chat/completions") ||
		strings.HasSuffix(path, "/embeddings") ||
		strings.HasSuffix(path, "/completions") {
		return ""
	}

	parts := strings.Split(path, "/")
	if len(parts) < 4 {
		return ""
	}
	org := parts[len(parts)-2]
	name := parts[len(parts)-1]
	if org == "" || name == "" || org == "v1" || org == "chat" || org == "embeddings" {
		return ""
	}
	return org + "/" + name
}
