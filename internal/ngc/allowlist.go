package ngc

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// defaultPublishers is the built-in allowlist used when the published list
// cannot be fetched.
var defaultPublishers = []string{
	"nvidia",
	"meta",
	"mistralai",
	"google",
	"deepseek-ai",
	"baidu",
	"microsoft",
	"qwen",
	"stg",
}

// FetchPublishers downloads the model publisher allowlist, one publisher
// per line, ignoring blanks and #-comments. Any failure falls back to the
// built-in list; the scan never blocks on this endpoint.
func FetchPublishers(ctx context.Context, url string, log *zap.Logger) []string {
	if url == "" {
		return defaultPublishers
	}

	httpc := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Warn("using built-in publisher list", zap.Error(err))
		return defaultPublishers
	}
	resp, err := httpc.Do(req)
	if err != nil {
		log.Warn("using built-in publisher list", zap.Error(err))
		return defaultPublishers
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Warn("using built-in publisher list", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return defaultPublishers
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("using built-in publisher list", zap.Error(err))
		return defaultPublishers
	}

	var publishers []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		publishers = append(publishers, line)
	}
	if len(publishers) == 0 {
		log.Warn("publisher list is empty, using built-in list", zap.String("url", url))
		return defaultPublishers
	}
	log.Debug("fetched publisher list", zap.String("url", url), zap.Int("count", len(publishers)))
	return publishers
}
