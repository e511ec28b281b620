package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sanjeevkumarraob/drive-search-service/pkg/stream"
)

// DefaultBaseURL is the Drive v3 REST endpoint
const DefaultBaseURL = "https://www.googleapis.com/drive/v3"

// APIError is a non-2xx answer from the remote store
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the remote store
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Config contains configuration for the Drive client
type Config struct {
	BaseURL string
	// DriveID scopes listings to one shared drive; empty searches all drives
	DriveID string
	// MaxDownloadSize caps file bodies read from the store
	MaxDownloadSize int64
	Timeout         time.Duration
}

// Client is a Drive v3 client. Every call takes explicit credentials.
type Client struct {
	baseURL     string
	driveID     string
	maxDownload int64
	httpClient  *http.Client
	logger      *log.Logger
}

// NewClient creates a new Drive client
func NewClient(config Config, logger *log.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     config.BaseURL,
		driveID:     config.DriveID,
		maxDownload: config.MaxDownloadSize,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// getJSON performs a GET and decodes the JSON answer into result
func (c *Client) getJSON(ctx context.Context, creds *Credentials, path string, query url.Values, result interface{}) error {
	return creds.Do(ctx, func(token string) error {
		resp, err := c.do(ctx, token, path, query)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
}

// getBytes performs a GET and returns the size-capped body
func (c *Client) getBytes(ctx context.Context, creds *Credentials, path string, query url.Values) ([]byte, error) {
	var body []byte
	err := creds.Do(ctx, func(token string) error {
		resp, err := c.do(ctx, token, path, query)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = stream.ReadLimited(resp.Body, c.maxDownload)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return nil
	})
	return body, err
}

// do sends one authorized GET. Non-2xx answers are turned into errors and
// the body is closed; on success the caller owns the body.
func (c *Client) do(ctx context.Context, token, path string, query url.Values) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Printf("Drive rejected token for %s", path)
		return nil, ErrUnauthorized
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
}

// listQuery adds the corpus parameters every listing needs
func (c *Client) listQuery() url.Values {
	query := url.Values{}
	query.Set("supportsAllDrives", "true")
	query.Set("includeItemsFromAllDrives", "true")
	if c.driveID != "" {
		query.Set("corpora", "drive")
		query.Set("driveId", c.driveID)
	} else {
		query.Set("corpora", "allDrives")
	}
	return query
}
