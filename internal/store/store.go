// Package store persists scan runs in Postgres for trend queries across
// runs. It is an optional sink; a scan without DATABASE_URL never touches
// this package.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nvidia/nim-usage-scanner/internal/model"
)

type Store struct{ Pool *pgxpool.Pool }

func Open(ctx context.Context, url string) (*Store, error) {
	p, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: p}, nil
}

func (s *Store) Close() { s.Pool.Close() }

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS scan_runs (
  id UUID PRIMARY KEY,
  scan_time TIMESTAMPTZ NOT NULL,
  total_repos INTEGER NOT NULL,
  repos_with_nim INTEGER NOT NULL,
  total_local_nim INTEGER NOT NULL,
  total_hosted_nim INTEGER NOT NULL,
  summary_json JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_scan_time ON scan_runs (scan_time);

CREATE TABLE IF NOT EXISTS scan_findings (
  id BIGSERIAL PRIMARY KEY,
  run_id UUID NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
  nim_type TEXT NOT NULL CHECK (nim_type IN ('local','hosted')),
  image_path TEXT,
  tag TEXT,
  resolved_tag TEXT,
  endpoint_url TEXT,
  model_name TEXT,
  function_id TEXT,
  status TEXT,
  container_image TEXT,
  location_count INTEGER NOT NULL,
  locations JSONB NOT NULL DEFAULT '[]'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scan_findings_run ON scan_findings (run_id, nim_type);
CREATE INDEX IF NOT EXISTS idx_scan_findings_image ON scan_findings (image_path) WHERE image_path IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_scan_findings_model ON scan_findings (model_name) WHERE model_name IS NOT NULL;
`)
	return err
}

// RecordRun inserts the run row and one finding row per aggregated entry,
// all in one transaction. Returns the run id.
func (s *Store) RecordRun(ctx context.Context, rep *model.ScanReport) (string, error) {
	runID := uuid.NewString()

	scanTime, err := time.Parse(time.RFC3339, rep.ScanTime)
	if err != nil {
		scanTime = time.Now().UTC()
	}
	summaryJSON, err := json.Marshal(rep.Summary)
	if err != nil {
		return "", err
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO scan_runs (id, scan_time, total_repos, repos_with_nim, total_local_nim, total_hosted_nim, summary_json)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7::jsonb)
`, runID, scanTime, rep.TotalRepos, rep.Summary.ReposWithNIM,
		rep.Summary.TotalLocalNIM, rep.Summary.TotalHostedNIM, string(summaryJSON))
	if err != nil {
		return "", err
	}

	batch := &pgx.Batch{}
	for _, e := range rep.Aggregated.LocalNIM {
		locJSON, _ := json.Marshal(e.Locations)
		batch.Queue(`
INSERT INTO scan_findings (run_id, nim_type, image_path, tag, resolved_tag, location_count, locations)
VALUES ($1::uuid, 'local', $2, $3, $4, $5, $6::jsonb)`,
			runID, e.ImagePath, e.Tag, nullableString(e.ResolvedTag), len(e.Locations), string(locJSON))
	}
	for _, e := range rep.Aggregated.HostedNIM {
		locJSON, _ := json.Marshal(e.Locations)
		batch.Queue(`
INSERT INTO scan_findings (run_id, nim_type, endpoint_url, model_name, function_id, status, container_image, location_count, locations)
VALUES ($1::uuid, 'hosted', $2, $3, $4, $5, $6, $7, $8::jsonb)`,
			runID, nullableString(e.EndpointURL), nullableString(e.ModelName),
			nullableString(e.FunctionID), nullableString(e.Status), nullableString(e.ContainerImage),
			len(e.Locations), string(locJSON))
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return "", err
			}
		}
		if err := br.Close(); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return runID, nil
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
