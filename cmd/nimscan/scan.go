package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nvidia/nim-usage-scanner/internal/aggregate"
	"github.com/nvidia/nim-usage-scanner/internal/config"
	"github.com/nvidia/nim-usage-scanner/internal/gitops"
	"github.com/nvidia/nim-usage-scanner/internal/model"
	"github.com/nvidia/nim-usage-scanner/internal/ngc"
	"github.com/nvidia/nim-usage-scanner/internal/report"
	"github.com/nvidia/nim-usage-scanner/internal/s3"
	"github.com/nvidia/nim-usage-scanner/internal/scanner"
	"github.com/nvidia/nim-usage-scanner/internal/store"
)

type scanOptions struct {
	reposFile      string
	workDir        string
	outputDir      string
	workers        int
	keepRepos      bool
	skipEnrichment bool
}

func newScanCommand(verbose *bool) *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Clone and scan the configured repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runScan(cmd, &opts, log)
		},
	}

	cmd.Flags().StringVarP(&opts.reposFile, "repos", "r", "repos.yaml", "path to the repository list")
	cmd.Flags().StringVar(&opts.workDir, "workdir", "", "directory for clones (default: a temp dir, removed after the run)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", ".", "directory for report files")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "worker pool size (default: number of CPUs)")
	cmd.Flags().BoolVar(&opts.keepRepos, "keep-repos", false, "keep cloned repositories after the run")
	cmd.Flags().BoolVar(&opts.skipEnrichment, "skip-enrichment", false, "skip NGC registry and NVCF lookups")

	return cmd
}

func runScan(cmd *cobra.Command, opts *scanOptions, log *zap.Logger) error {
	ctx := cmd.Context()
	cfg := config.Load()
	if opts.workers == 0 {
		opts.workers = cfg.Workers
	}

	repos, err := config.LoadRepos(opts.reposFile)
	if err != nil {
		return err
	}
	log.Info("starting scan", zap.Int("repos", len(repos)))

	workDir := opts.workDir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "nimscan-*")
		if err != nil {
			return err
		}
		if !opts.keepRepos {
			defer os.RemoveAll(workDir)
		}
	} else if err := os.MkdirAll(workDir, 0o755); err != nil {
		return err
	}

	cloned := gitops.CloneAll(ctx, repos, workDir, cfg.GitHubToken, opts.workers, log)
	var targets []scanner.Repo
	for _, cr := range cloned {
		if cr.Err != nil {
			continue
		}
		targets = append(targets, scanner.Repo{Name: cr.Repo.Name, Root: cr.Path})
	}
	if len(targets) == 0 {
		return errors.New("no repository could be cloned")
	}

	publishers := ngc.FetchPublishers(ctx, cfg.PublishersURL, log)
	ext := scanner.NewExtractor(publishers)

	raw, err := scanner.ScanRepos(ctx, targets, ext, opts.workers, log)
	if err != nil {
		return err
	}

	sourceCode, actionsWorkflow := scanner.Categorize(raw.Local, raw.Hosted)
	scanner.Dedupe(&sourceCode)
	scanner.Dedupe(&actionsWorkflow)
	log.Info("findings categorized",
		zap.Int("source_code", sourceCode.TotalCount()),
		zap.Int("actions_workflow", actionsWorkflow.TotalCount()))

	agg := aggregate.Build(&sourceCode, &actionsWorkflow)

	switch {
	case opts.skipEnrichment:
		log.Info("enrichment skipped by flag")
	case cfg.NGCAPIKey == "":
		log.Info("no NVIDIA_API_KEY set, skipping enrichment")
	default:
		client := ngc.NewClient(cfg.NGCAPIKey, log,
			ngc.WithBaseURLs(cfg.RegistryBase, cfg.NVCFBase),
			ngc.WithOrgID(cfg.NGCOrgID))
		client.EnrichAggregated(ctx, &agg, opts.workers)
	}

	rep := report.Assemble(sourceCode, actionsWorkflow, agg, len(targets))

	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return err
	}
	jsonPath := filepath.Join(opts.outputDir, "report.json")
	csvPath := filepath.Join(opts.outputDir, "report.csv")
	aggPath := filepath.Join(opts.outputDir, "report_aggregate.json")
	if err := report.WriteJSON(jsonPath, &rep); err != nil {
		return err
	}
	if err := report.WriteCSV(csvPath, &rep); err != nil {
		return err
	}
	if err := report.WriteAggregateJSON(aggPath, &rep.Aggregated); err != nil {
		return err
	}
	report.PrintSummary(cmd.OutOrStdout(), &rep)

	runID := persistRun(cmd, cfg, &rep, log)
	uploadReports(cmd, cfg, runID, []string{jsonPath, csvPath, aggPath}, log)

	log.Info("scan complete",
		zap.Int("local_findings", rep.Summary.TotalLocalNIM),
		zap.Int("hosted_findings", rep.Summary.TotalHostedNIM),
		zap.String("output", opts.outputDir))
	return nil
}

// persistRun records the run in Postgres when DATABASE_URL is set. Failures
// are logged, not fatal; the on-disk report already exists.
func persistRun(cmd *cobra.Command, cfg config.Config, rep *model.ScanReport, log *zap.Logger) string {
	if cfg.DatabaseURL == "" {
		return ""
	}
	ctx := cmd.Context()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn("database unavailable, run not recorded", zap.Error(err))
		return ""
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		log.Warn("database unreachable, run not recorded", zap.Error(err))
		return ""
	}
	if err := st.EnsureSchema(ctx); err != nil {
		if isInsufficientPrivilege(err) {
			log.Warn("ensure schema skipped due insufficient privilege", zap.Error(err))
		} else {
			log.Warn("schema setup failed, run not recorded", zap.Error(err))
			return ""
		}
	}
	runID, err := st.RecordRun(ctx, rep)
	if err != nil {
		log.Warn("run not recorded", zap.Error(err))
		return ""
	}
	log.Info("run recorded", zap.String("run_id", runID))
	return runID
}

// uploadReports pushes the report files to object storage when an S3
// endpoint and bucket are configured.
func uploadReports(cmd *cobra.Command, cfg config.Config, runID string, paths []string, log *zap.Logger) {
	if cfg.S3Endpoint == "" || cfg.ReportsBucket == "" {
		return
	}
	ctx := cmd.Context()

	client, err := s3.New(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL)
	if err != nil {
		log.Warn("object storage unavailable, reports not uploaded", zap.Error(err))
		return
	}
	if runID == "" {
		runID = fmt.Sprintf("local-%d", os.Getpid())
	}
	for _, p := range paths {
		key := "reports/" + runID + "/" + filepath.Base(p)
		contentType := "application/json"
		if filepath.Ext(p) == ".csv" {
			contentType = "text/csv"
		}
		if err := client.UploadFile(ctx, cfg.ReportsBucket, key, p, contentType); err != nil {
			log.Warn("upload failed", zap.String("key", key), zap.Error(err))
			continue
		}
		log.Info("report uploaded", zap.String("bucket", cfg.ReportsBucket), zap.String("key", key))
	}
}

func isInsufficientPrivilege(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42501"
}
