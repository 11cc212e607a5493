package ngc

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvidia/nim-usage-scanner/internal/model"
)

// EnrichAggregated annotates aggregated entries in place: local images
// pinned to "latest" (or unpinned) get their resolved registry tag, and
// hosted models get the id, status and container image of the function
// serving them. Lookup failures leave the entry unannotated; they never
// fail the run. Fan-out is bounded by workers, and duplicate identities
// across entries collapse to one request through the client caches.
func (c *Client) EnrichAggregated(ctx context.Context, agg *model.Aggregated, workers int) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i := range agg.LocalNIM {
		entry := &agg.LocalNIM[i]
		if entry.Tag != "" && entry.Tag != "latest" {
			continue
		}
		g.Go(func() error {
			tag, err := c.ResolveLatestTag(ctx, entry.ImagePath)
			if err != nil {
				c.log.Debug("latest tag unresolved", zap.String("image", entry.ImagePath), zap.Error(err))
				return nil
			}
			entry.ResolvedTag = tag
			return nil
		})
	}

	for i := range agg.HostedNIM {
		entry := &agg.HostedNIM[i]
		if entry.ModelName == "" {
			continue
		}
		g.Go(func() error {
			det, err := c.GetFunctionDetails(ctx, entry.ModelName)
			if err != nil {
				c.log.Debug("function unresolved", zap.String("model", entry.ModelName), zap.Error(err))
				return nil
			}
			entry.FunctionID = det.ID
			entry.Status = det.Status
			entry.ContainerImage = det.ContainerImage
			return nil
		})
	}

	_ = g.Wait()
}
