package drivers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stackmint/stackmint/domain/model"
)

// DiscoveryConfig holds the endpoints used to mint per-cluster discovery
// URLs. Zero fields disable their branch.
type DiscoveryConfig struct {
	// TokenURL is POSTed to; the response body is a bare token, formatted
	// as token://<token>.
	TokenURL string
	// EtcdURL is GET with ?size=<master_count>; the response body is the
	// etcd discovery URL itself.
	EtcdURL string
	// URLFormat is the fallback template, substituting %(cluster_id)s and
	// %(cluster_uuid)s.
	URLFormat string
	// HTTPTimeout bounds the outbound calls. Zero means 30s.
	HTTPTimeout time.Duration
}

func (c DiscoveryConfig) client() *http.Client {
	timeout := c.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// DeriveDiscoveryURL produces the discovery URL for a cluster, honoring one
// already set on the model. Failures report ErrDiscoveryURL so the caller can
// treat them as retryable.
func DeriveDiscoveryURL(ctx context.Context, cfg DiscoveryConfig, mode DiscoveryMode, cluster *model.Cluster, masterCount int) (string, error) {
	if cluster.DiscoveryURL != "" {
		return cluster.DiscoveryURL, nil
	}
	if mode == DiscoveryNone {
		return "", nil
	}

	if mode == DiscoveryToken && cfg.TokenURL != "" {
		token, err := fetchBody(ctx, cfg.client(), http.MethodPost, cfg.TokenURL)
		if err != nil {
			return "", fmt.Errorf("%w: token service: %v", model.ErrDiscoveryURL, err)
		}
		if token == "" {
			return "", fmt.Errorf("%w: token service returned an empty body", model.ErrDiscoveryURL)
		}
		return "token://" + token, nil
	}

	if cfg.EtcdURL != "" {
		u, err := url.Parse(cfg.EtcdURL)
		if err != nil {
			return "", fmt.Errorf("%w: etcd endpoint: %v", model.ErrDiscoveryURL, err)
		}
		q := u.Query()
		q.Set("size", strconv.Itoa(masterCount))
		u.RawQuery = q.Encode()
		body, err := fetchBody(ctx, cfg.client(), http.MethodGet, u.String())
		if err != nil {
			return "", fmt.Errorf("%w: etcd discovery: %v", model.ErrDiscoveryURL, err)
		}
		if body == "" {
			return "", fmt.Errorf("%w: etcd discovery returned an empty body", model.ErrDiscoveryURL)
		}
		return body, nil
	}

	if cfg.URLFormat != "" {
		out := strings.ReplaceAll(cfg.URLFormat, "%(cluster_id)s", strconv.FormatInt(cluster.ID, 10))
		out = strings.ReplaceAll(out, "%(cluster_uuid)s", cluster.UUID)
		return out, nil
	}

	return "", fmt.Errorf("%w: no discovery endpoint configured", model.ErrDiscoveryURL)
}

func fetchBody(ctx context.Context, client *http.Client, method, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
