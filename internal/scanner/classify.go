package scanner

import (
	"strings"

	"github.com/nvidia/nim-usage-scanner/internal/model"
)

const workflowPrefix = ".github/workflows/"

// Classify maps a repo-relative file path to its source type. Total
// function: any path not under .github/workflows/ with a YAML suffix is
// source code.
func Classify(path string) model.SourceType {
	p := strings.ReplaceAll(path, `\`, "/")
	if strings.HasPrefix(p, workflowPrefix) &&
		(strings.HasSuffix(p, ".yml") || strings.HasSuffix(p, ".yaml")) {
		return model.ActionsWorkflow
	}
	return model.SourceCode
}

// Categorize splits raw matches into per-source-type findings. Input order
// is preserved within each category.
func Categorize(local []model.LocalMatch, hosted []model.HostedMatch) (sourceCode, actionsWorkflow model.Findings) {
	for _, m := range local {
		if Classify(m.FilePath) == model.ActionsWorkflow {
			actionsWorkflow.LocalNIM = append(actionsWorkflow.LocalNIM, m)
		} else {
			sourceCode.LocalNIM = append(sourceCode.LocalNIM, m)
		}
	}
	for _, m := range hosted {
		if Classify(m.FilePath) == model.ActionsWorkflow {
			actionsWorkflow.HostedNIM = append(actionsWorkflow.HostedNIM, m)
		} else {
			sourceCode.HostedNIM = append(sourceCode.HostedNIM, m)
		}
	}
	return sourceCode, actionsWorkflow
}
