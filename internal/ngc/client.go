// Package ngc looks up NIM metadata in the NVIDIA registry and NVCF APIs:
// the latest published tag for a container image and the deployed cloud
// function behind a hosted model. All lookups are coalesced and cached per
// identity for the lifetime of a run.
package ngc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

const (
	defaultRegistryBase = "https://api.ngc.nvidia.com"
	defaultNVCFBase     = "https://api.nvcf.nvidia.com"

	// One initial request plus this many retries on 429.
	rateLimitRetries = 3

	imagePrefix = "nvcr.io/nim/"
)

var (
	// ErrNotFound marks an identity the APIs do not know about. Cached like
	// any other result so the identity is not asked about again this run.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized marks a rejected credential. The first occurrence
	// disables all further outbound lookups for the run.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedIdentity marks an image path that cannot name a registry
	// repository. No request is made for such identities.
	ErrMalformedIdentity = errors.New("malformed image path")

	errRateLimited = errors.New("rate limited")
)

// FunctionDetails is the deployment metadata for one hosted model.
type FunctionDetails struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	ContainerImage string `json:"containerImage,omitempty"`
}

// Client queries the NGC registry and NVCF control plane. Safe for
// concurrent use; every public lookup is single-flight per identity.
type Client struct {
	httpc         *http.Client
	apiKey        string
	registryBase  string
	nvcfBase      string
	orgID         string
	retryInterval time.Duration
	log           *zap.Logger

	tags  flightCache[string]
	funcs flightCache[FunctionDetails]
	list  flightCache[[]functionSummary]

	authFailed  atomic.Bool
	authLogOnce sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the registry and NVCF API roots.
func WithBaseURLs(registry, nvcf string) Option {
	return func(c *Client) {
		if registry != "" {
			c.registryBase = strings.TrimRight(registry, "/")
		}
		if nvcf != "" {
			c.nvcfBase = strings.TrimRight(nvcf, "/")
		}
	}
}

// WithOrgID sets the organization used by the endpoint-spec fallback.
func WithOrgID(orgID string) Option {
	return func(c *Client) { c.orgID = orgID }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithRetryInterval sets the initial backoff interval for rate-limited
// requests.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryInterval = d }
}

// NewClient builds a Client authenticating with the given API key.
func NewClient(apiKey string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpc:         &http.Client{Timeout: 30 * time.Second},
		apiKey:        apiKey,
		registryBase:  defaultRegistryBase,
		nvcfBase:      defaultNVCFBase,
		retryInterval: 500 * time.Millisecond,
		log:           log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveLatestTag returns the latest published tag for an image path of
// the form team/model (an optional nvcr.io/nim/ prefix is stripped).
func (c *Client) ResolveLatestTag(ctx context.Context, imagePath string) (string, error) {
	return c.tags.do("local:"+imagePath, func() (string, error) {
		team, name, ok := splitImagePath(imagePath)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrMalformedIdentity, imagePath)
		}
		body, err := c.doGet(ctx, fmt.Sprintf("%s/v2/org/nim/team/%s/repos/%s", c.registryBase, team, name))
		if err != nil {
			return "", err
		}
		var meta struct {
			LatestTag string `json:"latestTag"`
		}
		if err := json.Unmarshal(body, &meta); err != nil {
			return "", fmt.Errorf("decode registry metadata for %s: %w", imagePath, err)
		}
		if meta.LatestTag == "" {
			return "", fmt.Errorf("no latestTag for %s: %w", imagePath, ErrNotFound)
		}
		c.log.Debug("resolved latest tag", zap.String("image", imagePath), zap.String("tag", meta.LatestTag))
		return meta.LatestTag, nil
	})
}

// GetFunctionDetails returns the deployed NVCF function serving a hosted
// model, located by name match against the function list and, failing
// that, by the per-org endpoint spec.
func (c *Client) GetFunctionDetails(ctx context.Context, modelName string) (FunctionDetails, error) {
	return c.funcs.do("hosted:"+modelName, func() (FunctionDetails, error) {
		id, err := c.findFunctionID(ctx, modelName)
		if err != nil {
			return FunctionDetails{}, err
		}
		return c.fetchVersionDetails(ctx, id, modelName)
	})
}

type functionSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (c *Client) findFunctionID(ctx context.Context, modelName string) (string, error) {
	funcs, err := c.listFunctions(ctx)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return "", err
		}
		c.log.Debug("function list unavailable, trying endpoint spec",
			zap.String("model", modelName), zap.Error(err))
		return c.lookupEndpointSpec(ctx, modelName)
	}

	leaf := modelName
	if i := strings.LastIndexByte(modelName, '/'); i >= 0 {
		leaf = modelName[i+1:]
	}
	for _, f := range funcs {
		if strings.Contains(f.Name, leaf) {
			return f.ID, nil
		}
	}
	return c.lookupEndpointSpec(ctx, modelName)
}

// listFunctions fetches the org's function list once per run.
func (c *Client) listFunctions(ctx context.Context) ([]functionSummary, error) {
	return c.list.do("functions", func() ([]functionSummary, error) {
		body, err := c.doGet(ctx, c.nvcfBase+"/v2/nvcf/functions")
		if err != nil {
			return nil, err
		}
		var list struct {
			Functions []functionSummary `json:"functions"`
		}
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decode function list: %w", err)
		}
		return list.Functions, nil
	})
}

// lookupEndpointSpec resolves a function id from the per-org endpoint spec.
// The spec is keyed by a model identity with dots mapped to underscores.
func (c *Client) lookupEndpointSpec(ctx context.Context, modelName string) (string, error) {
	if c.orgID == "" {
		return "", fmt.Errorf("no function matches %s: %w", modelName, ErrNotFound)
	}
	ident := strings.ReplaceAll(modelName, ".", "_")
	body, err := c.doGet(ctx, fmt.Sprintf("%s/v2/nvcf/endpoint-spec/%s/%s", c.nvcfBase, c.orgID, ident))
	if err != nil {
		return "", err
	}
	var spec struct {
		NvcfFunctionID string `json:"nvcfFunctionId"`
	}
	if err := json.Unmarshal(body, &spec); err != nil {
		return "", fmt.Errorf("decode endpoint spec for %s: %w", modelName, err)
	}
	if spec.NvcfFunctionID == "" {
		return "", fmt.Errorf("endpoint spec for %s names no function: %w", modelName, ErrNotFound)
	}
	return spec.NvcfFunctionID, nil
}

func (c *Client) fetchVersionDetails(ctx context.Context, id, modelName string) (FunctionDetails, error) {
	body, err := c.doGet(ctx, fmt.Sprintf("%s/v2/nvcf/functions/%s/versions", c.nvcfBase, id))
	if err != nil {
		return FunctionDetails{}, err
	}
	var versions struct {
		Functions []struct {
			ID             string `json:"id"`
			Name           string `json:"name"`
			Status         string `json:"status"`
			ContainerImage string `json:"containerImage"`
			Models         []struct {
				Name string `json:"name"`
			} `json:"models"`
		} `json:"functions"`
	}
	if err := json.Unmarshal(body, &versions); err != nil {
		return FunctionDetails{}, fmt.Errorf("decode versions for function %s: %w", id, err)
	}
	if len(versions.Functions) == 0 {
		return FunctionDetails{}, fmt.Errorf("function %s has no versions: %w", id, ErrNotFound)
	}

	v := versions.Functions[0]
	det := FunctionDetails{
		ID:             v.ID,
		Name:           v.Name,
		Status:         v.Status,
		ContainerImage: v.ContainerImage,
	}
	if len(v.Models) > 0 && v.Models[0].Name != "" {
		det.Name = v.Models[0].Name
	}
	c.log.Debug("resolved function",
		zap.String("model", modelName), zap.String("function_id", det.ID), zap.String("status", det.Status))
	return det, nil
}

// doGet performs an authenticated GET, retrying only on 429. Any other
// failure is terminal for the request; 401 additionally disables the
// client for the rest of the run.
func (c *Client) doGet(ctx context.Context, url string) ([]byte, error) {
	if c.authFailed.Load() {
		return nil, ErrUnauthorized
	}

	var body []byte
	attempt := func() error {
		if c.authFailed.Load() {
			return backoff.Permanent(ErrUnauthorized)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			return backoff.Permanent(err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return backoff.Permanent(err)
			}
			return nil
		case http.StatusUnauthorized:
			c.authFailed.Store(true)
			c.authLogOnce.Do(func() {
				c.log.Error("NGC rejected the API key, disabling enrichment for this run")
			})
			return backoff.Permanent(ErrUnauthorized)
		case http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case http.StatusTooManyRequests:
			return errRateLimited
		default:
			c.log.Warn("unexpected NGC status", zap.String("url", url), zap.Int("status", resp.StatusCode))
			return backoff.Permanent(fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.MaxElapsedTime = 0
	if err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, rateLimitRetries), ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// splitImagePath yields the team and model segments of an image path,
// accepting either team/model or the full nvcr.io/nim/team/model form.
func splitImagePath(imagePath string) (team, name string, ok bool) {
	p := strings.TrimPrefix(imagePath, imagePrefix)
	team, name, ok = strings.Cut(p, "/")
	if !ok || team == "" || name == "" || strings.ContainsRune(name, '/') {
		return "", "", false
	}
	return team, name, true
}
