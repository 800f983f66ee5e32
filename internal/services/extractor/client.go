// Package extractor is the HTTP client for the remote metadata/extraction
// service. The base address comes from the endpoint resolver; every call goes
// through the resilient requester.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ygrab/ygrab/internal/config"
	"github.com/ygrab/ygrab/internal/models"
	"github.com/ygrab/ygrab/internal/requester"
	"github.com/ygrab/ygrab/internal/resolver"
)

// Client handles communication with the extraction backend
type Client struct {
	resolver  *resolver.Resolver
	requester *requester.Requester
	// No global timeout on the client: metadata calls are bounded by the
	// per-attempt context, download bodies must outlive any fixed bound
	httpClient *http.Client
	cfg        *config.Config
	logger     *logrus.Logger
}

// NewClient creates a new extraction service client
func NewClient(cfg *config.Config, res *resolver.Resolver, req *requester.Requester, logger *logrus.Logger) *Client {
	return &Client{
		resolver:   res,
		requester:  req,
		httpClient: &http.Client{},
		cfg:        cfg,
		logger:     logger,
	}
}

// base returns the pinned base address or ErrDisconnected
func (c *Client) base() (string, error) {
	base, ok := c.resolver.Base()
	if !ok {
		return "", models.ErrDisconnected
	}
	return base, nil
}

// postJSON performs one POST against the active base and decodes the response
// into result. Non-2xx responses are turned into ServiceError, using the
// decodable {error} body when present.
func (c *Client) postJSON(ctx context.Context, path string, body interface{}, result interface{}) error {
	base, err := c.base()
	if err != nil {
		return err
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	fullURL := base + path
	c.logger.WithFields(logrus.Fields{
		"url": fullURL,
	}).Debug("Making extraction service request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return serviceErrorFromResponse(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &models.MalformedDataError{Reason: fmt.Sprintf("undecodable body: %v", err)}
		}
	}

	return nil
}

// serviceErrorFromResponse builds a ServiceError from a non-2xx response,
// preferring the {error} message when the body decodes
func serviceErrorFromResponse(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error string `json:"error"`
	}
	message := http.StatusText(resp.StatusCode)
	if err := json.Unmarshal(bodyBytes, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	return &models.ServiceError{StatusCode: resp.StatusCode, Message: message}
}

// ThumbnailURL derives the thumbnail address for a video id. Without a pinned
// base it falls back to the public default-thumbnail convention.
func (c *Client) ThumbnailURL(id string) string {
	if base, ok := c.resolver.Base(); ok {
		return base + "/thumbnail/" + id
	}
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}
