// internal/services/healthfood_client.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/suppleit/suppleit-backend/internal/config"
)

var (
	ErrUpstreamStatus = errors.New("upstream returned non-2xx status")
	ErrEmptyBody      = errors.New("upstream returned an empty body")
)

// TransportError is returned for every failed upstream call: network errors,
// non-2xx responses and blank bodies.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream request failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProductSource fetches the raw search response for a keyword.
type ProductSource interface {
	Fetch(ctx context.Context, keyword string) ([]byte, error)
}

// HealthFoodClient queries the public data health functional food API.
// It issues exactly one GET per call and never retries.
type HealthFoodClient struct {
	baseURL     string
	serviceKey  string
	searchParam string
	pageSize    int
	client      *http.Client
	logger      logrus.FieldLogger
}

func NewHealthFoodClient(cfg config.HealthFoodAPIConfig, logger logrus.FieldLogger) (*HealthFoodClient, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("health food API url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid health food API url: %w", err)
	}

	searchParam := cfg.SearchParam
	if searchParam == "" {
		searchParam = "Prduct"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if cfg.ServiceKey == "" {
		logger.Warn("Health food API key is empty; upstream calls will likely be rejected")
	}

	return &HealthFoodClient{
		baseURL:     base,
		serviceKey:  cfg.ServiceKey,
		searchParam: searchParam,
		pageSize:    config.ClampPageSize(cfg.PageSize),
		client:      &http.Client{Timeout: timeout},
		logger:      logger.WithField("component", "healthfood_client"),
	}, nil
}

func (c *HealthFoodClient) Fetch(ctx context.Context, keyword string) ([]byte, error) {
	u, err := c.searchURL(keyword)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	c.logger.WithField("url", redactedURL(u)).Debug("Requesting upstream product search")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: ErrUpstreamStatus}
	}
	if readErr != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", readErr)}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: ErrEmptyBody}
	}

	return body, nil
}

func (c *HealthFoodClient) searchURL(keyword string) (*url.URL, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	q := u.Query()
	q.Set("serviceKey", c.serviceKey)
	q.Set(c.searchParam, keyword)
	q.Set("pageNo", "1")
	q.Set("numOfRows", strconv.Itoa(c.pageSize))
	q.Set("type", "json")
	u.RawQuery = q.Encode()

	return u, nil
}

func redactedURL(u *url.URL) string {
	clone := *u
	q := clone.Query()
	if q.Has("serviceKey") {
		q.Set("serviceKey", "REDACTED")
	}
	clone.RawQuery = q.Encode()
	return clone.String()
}
