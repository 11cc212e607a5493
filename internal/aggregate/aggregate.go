// Package aggregate groups deduplicated findings by artifact identity.
//
// Identity for a Local NIM is the image path alone; two references to the
// same image with different tags land in one entry and the representative
// tag is whichever was seen first in merge order. Identity for a Hosted NIM
// is the model name, falling back to the endpoint URL for endpoint-only
// matches. Group membership is order-independent; location order follows
// the merge order of the input stream.
package aggregate

import "github.com/nvidia/nim-usage-scanner/internal/model"

// Build produces the aggregated view from both findings categories. The
// merge order is source_code first, then actions_workflow, each in scan
// order; locations are appended first-seen-first.
func Build(sourceCode, actionsWorkflow *model.Findings) model.Aggregated {
	var agg model.Aggregated
	localIdx := make(map[string]int)
	hostedIdx := make(map[string]int)

	addLocal := func(st model.SourceType, matches []model.LocalMatch) {
		for _, m := range matches {
			i, ok := localIdx[m.ImagePath]
			if !ok {
				i = len(agg.LocalNIM)
				localIdx[m.ImagePath] = i
				agg.LocalNIM = append(agg.LocalNIM, model.AggregatedLocal{
					ImagePath: m.ImagePath,
					Tag:       m.Tag,
				})
			}
			agg.LocalNIM[i].Locations = append(agg.LocalNIM[i].Locations, location(st, m.Repository, m.FilePath, m.LineNumber, m.MatchContext))
		}
	}

	addHosted := func(st model.SourceType, matches []model.HostedMatch) {
		for _, m := range matches {
			key := m.ModelName
			if key == "" {
				key = m.EndpointURL
			}
			i, ok := hostedIdx[key]
			if !ok {
				i = len(agg.HostedNIM)
				hostedIdx[key] = i
				agg.HostedNIM = append(agg.HostedNIM, model.AggregatedHosted{
					EndpointURL: m.EndpointURL,
					ModelName:   m.ModelName,
				})
			}
			entry := &agg.HostedNIM[i]
			if entry.EndpointURL == "" {
				entry.EndpointURL = m.EndpointURL
			}
			entry.Locations = append(entry.Locations, location(st, m.Repository, m.FilePath, m.LineNumber, m.MatchContext))
		}
	}

	addLocal(model.SourceCode, sourceCode.LocalNIM)
	addLocal(model.ActionsWorkflow, actionsWorkflow.LocalNIM)
	addHosted(model.SourceCode, sourceCode.HostedNIM)
	addHosted(model.ActionsWorkflow, actionsWorkflow.HostedNIM)

	return agg
}

func location(st model.SourceType, repo, file string, line int, context string) model.Location {
	return model.Location{
		SourceType:   st,
		Repository:   repo,
		FilePath:     file,
		LineNumber:   line,
		MatchContext: context,
	}
}
