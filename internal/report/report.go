// Package report assembles the final scan report and renders it as JSON,
// CSV and a console summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/nvidia/nim-usage-scanner/internal/model"
)

// Assemble builds the complete report from the categorized findings and
// their aggregated view. totalRepos is the number of repositories scanned,
// not the number with findings.
func Assemble(sourceCode, actionsWorkflow model.Findings, agg model.Aggregated, totalRepos int) model.ScanReport {
	repos := make(map[string]struct{})
	for _, f := range []model.Findings{sourceCode, actionsWorkflow} {
		for _, m := range f.LocalNIM {
			repos[m.Repository] = struct{}{}
		}
		for _, m := range f.HostedNIM {
			repos[m.Repository] = struct{}{}
		}
	}

	return model.ScanReport{
		ScanTime:        time.Now().UTC().Format(time.RFC3339),
		TotalRepos:      totalRepos,
		SourceCode:      sourceCode,
		ActionsWorkflow: actionsWorkflow,
		Aggregated:      agg,
		Summary: model.Summary{
			TotalLocalNIM:  len(sourceCode.LocalNIM) + len(actionsWorkflow.LocalNIM),
			TotalHostedNIM: len(sourceCode.HostedNIM) + len(actionsWorkflow.HostedNIM),
			ReposWithNIM:   len(repos),
			SourceCode: model.CategorySummary{
				LocalNIM:  len(sourceCode.LocalNIM),
				HostedNIM: len(sourceCode.HostedNIM),
			},
			ActionsWorkflow: model.CategorySummary{
				LocalNIM:  len(actionsWorkflow.LocalNIM),
				HostedNIM: len(actionsWorkflow.HostedNIM),
			},
		},
	}
}

// WriteJSON writes the full report as indented JSON.
func WriteJSON(path string, rep *model.ScanReport) error {
	return writeJSONFile(path, rep)
}

// WriteAggregateJSON writes only the aggregated view as indented JSON.
func WriteAggregateJSON(path string, agg *model.Aggregated) error {
	return writeJSONFile(path, agg)
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

var csvHeader = []string{
	"source_type", "nim_type", "repository", "file_path", "line_number",
	"image_path", "tag", "resolved_tag",
	"endpoint_url", "model_name", "function_id", "status", "container_image",
	"match_context",
}

// WriteCSV writes one row per finding. Enrichment columns come from the
// aggregated entry the finding belongs to, so every occurrence of an
// identity carries the same resolved metadata.
func WriteCSV(path string, rep *model.ScanReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writeCSV(f, rep); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeCSV(w io.Writer, rep *model.ScanReport) error {
	localByImage := make(map[string]*model.AggregatedLocal, len(rep.Aggregated.LocalNIM))
	for i := range rep.Aggregated.LocalNIM {
		e := &rep.Aggregated.LocalNIM[i]
		localByImage[e.ImagePath] = e
	}
	hostedByKey := make(map[string]*model.AggregatedHosted, len(rep.Aggregated.HostedNIM))
	for i := range rep.Aggregated.HostedNIM {
		e := &rep.Aggregated.HostedNIM[i]
		key := e.ModelName
		if key == "" {
			key = e.EndpointURL
		}
		hostedByKey[key] = e
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	writeCat := func(st model.SourceType, f *model.Findings) error {
		for _, m := range f.LocalNIM {
			resolved := ""
			if e := localByImage[m.ImagePath]; e != nil {
				resolved = e.ResolvedTag
			}
			row := []string{
				string(st), "local", m.Repository, m.FilePath, strconv.Itoa(m.LineNumber),
				m.ImagePath, m.Tag, resolved,
				"", "", "", "", "",
				m.MatchContext,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		for _, m := range f.HostedNIM {
			key := m.ModelName
			if key == "" {
				key = m.EndpointURL
			}
			var funcID, status, image string
			if e := hostedByKey[key]; e != nil {
				funcID, status, image = e.FunctionID, e.Status, e.ContainerImage
			}
			row := []string{
				string(st), "hosted", m.Repository, m.FilePath, strconv.Itoa(m.LineNumber),
				"", "", "",
				m.EndpointURL, m.ModelName, funcID, status, image,
				m.MatchContext,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writeCat(model.SourceCode, &rep.SourceCode); err != nil {
		return err
	}
	if err := writeCat(model.ActionsWorkflow, &rep.ActionsWorkflow); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// PrintSummary writes the human-readable run summary.
func PrintSummary(w io.Writer, rep *model.ScanReport) {
	fmt.Fprintln(w, "=== NIM Usage Scan ===")
	fmt.Fprintf(w, "Scan time:            %s\n", rep.ScanTime)
	fmt.Fprintf(w, "Repositories scanned: %d\n", rep.TotalRepos)
	fmt.Fprintf(w, "Repositories with NIM usage: %d\n", rep.Summary.ReposWithNIM)
	fmt.Fprintln(w)
	if rep.SourceCode.IsEmpty() && rep.ActionsWorkflow.IsEmpty() {
		fmt.Fprintln(w, "No NIM usage found.")
		return
	}
	fmt.Fprintf(w, "Local NIM findings:  %d (source code %d, workflows %d)\n",
		rep.Summary.TotalLocalNIM, rep.Summary.SourceCode.LocalNIM, rep.Summary.ActionsWorkflow.LocalNIM)
	fmt.Fprintf(w, "Hosted NIM findings: %d (source code %d, workflows %d)\n",
		rep.Summary.TotalHostedNIM, rep.Summary.SourceCode.HostedNIM, rep.Summary.ActionsWorkflow.HostedNIM)

	if len(rep.Aggregated.LocalNIM) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Local NIM images:")
		for _, e := range rep.Aggregated.LocalNIM {
			line := fmt.Sprintf("  %s:%s", e.ImagePath, e.Tag)
			if e.ResolvedTag != "" {
				line += fmt.Sprintf(" (latest: %s)", e.ResolvedTag)
			}
			fmt.Fprintf(w, "%s  [%d location(s)]\n", line, len(e.Locations))
		}
	}
	if len(rep.Aggregated.HostedNIM) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Hosted NIM models:")
		for _, e := range rep.Aggregated.HostedNIM {
			name := e.ModelName
			if name == "" {
				name = e.EndpointURL
			}
			line := "  " + name
			if e.Status != "" {
				line += fmt.Sprintf(" (function %s, %s)", e.FunctionID, e.Status)
			}
			fmt.Fprintf(w, "%s  [%d location(s)]\n", line, len(e.Locations))
		}
	}
}
