package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmanzanog/service-catalog/internal/domain"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/metrics"
	"github.com/jmanzanog/service-catalog/internal/infrastructure/topology"
)

const (
	offeringsPath = "/service_offerings"
	iconsPath     = "/service_offering_icons"
	sourcesPath   = "/sources"
)

// Client implements the topology.Gateway interface against the
// topological inventory HTTP API.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewClient(baseURL, authToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewClientWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewClientWithHTTPClient(baseURL, authToken string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: httpClient,
	}
}

// errorResponse is the inventory error envelope.
type errorResponse struct {
	Errors []struct {
		Status string `json:"status"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (e errorResponse) detail() string {
	parts := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		parts = append(parts, item.Detail)
	}
	return strings.Join(parts, "; ")
}

// collectionResponse is the inventory paged-collection envelope.
type collectionResponse[T any] struct {
	Data []T `json:"data"`
}

func (c *Client) FetchOffering(ctx context.Context, ref string) (*topology.Offering, error) {
	var offering topology.Offering
	path := fmt.Sprintf("%s/%s", offeringsPath, url.PathEscape(ref))
	if err := c.get(ctx, "fetch_offering", path, &offering); err != nil {
		return nil, err
	}
	return &offering, nil
}

func (c *Client) FetchIcon(ctx context.Context, iconRef string) (*topology.Icon, error) {
	var icon topology.Icon
	path := fmt.Sprintf("%s/%s", iconsPath, url.PathEscape(iconRef))
	if err := c.get(ctx, "fetch_icon", path, &icon); err != nil {
		return nil, err
	}
	return &icon, nil
}

func (c *Client) FetchPlans(ctx context.Context, offeringRef string) ([]topology.ServicePlan, error) {
	var plans collectionResponse[topology.ServicePlan]
	path := fmt.Sprintf("%s/%s/service_plans", offeringsPath, url.PathEscape(offeringRef))
	if err := c.get(ctx, "fetch_plans", path, &plans); err != nil {
		return nil, err
	}
	return plans.Data, nil
}

func (c *Client) FetchControlParameters(ctx context.Context, sourceRef string) (map[string]any, error) {
	params := make(map[string]any)
	path := fmt.Sprintf("%s/%s/control_parameters", sourcesPath, url.PathEscape(sourceRef))
	if err := c.get(ctx, "fetch_control_parameters", path, &params); err != nil {
		return nil, err
	}
	return params, nil
}

// get performs one upstream call and classifies the outcome. Transport
// failures and 5xx map to domain.ErrTopologyUnavailable, 404 to
// domain.ErrOfferingNotFound, any other upstream-reported error to
// *domain.TopologyInconsistency.
func (c *Client) get(ctx context.Context, operation, path string, out any) error {
	err := c.doGet(ctx, path, out)
	metrics.TopologyRequestsTotal.WithLabelValues(operation, classify(err)).Inc()
	return err
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	reqURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("topology request failed: %w: %s", domain.ErrTopologyUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr, "url", reqURL)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, domain.ErrOfferingNotFound)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("topology returned status %d: %w", resp.StatusCode, domain.ErrTopologyUnavailable)
	default:
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || len(errResp.Errors) == 0 {
			return fmt.Errorf("topology returned status %d: %w", resp.StatusCode, domain.ErrTopologyUnavailable)
		}
		detail := errResp.detail()
		return &domain.TopologyInconsistency{
			Message:    detail,
			MissingRef: strings.Contains(detail, "service_offering_ref"),
		}
	}
}

func classify(err error) string {
	var inconsistency *domain.TopologyInconsistency
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrOfferingNotFound):
		return "not_found"
	case errors.As(err, &inconsistency):
		return "inconsistency"
	case errors.Is(err, domain.ErrTopologyUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
