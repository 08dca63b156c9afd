package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"vkdump/pkg/logger"
)

// Client is a VK API client bound to one access token
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	version    string
	logger     logger.Logger
}

// NewClient creates a new VK API client
func NewClient(token string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: BaseURL,
		token:   token,
		version: DefaultAPIVersion,
		logger:  log,
	}
}

// SetAPIVersion overrides the API version sent with every request
func (c *Client) SetAPIVersion(version string) {
	c.version = version
}

// SetBaseURL overrides the API base URL, used by tests
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// callMethod performs a VK API method call, unwraps the response envelope and
// decodes the payload into target. A VK error envelope becomes a typed *Error.
func (c *Client) callMethod(ctx context.Context, method string, params url.Values, target interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.token)
	params.Set("v", c.version)

	endpoint := MethodURL(c.baseURL, method, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("API request failed", map[string]interface{}{
			"method":   method,
			"error":    err.Error(),
			"duration": duration,
		})
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("API request completed", map[string]interface{}{
		"method":   method,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := checkStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse API response", map[string]interface{}{
			"method":       method,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse response: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if env.Error != nil {
		apiErr := classifyAPIError(env.Error.Code, env.Error.Message)
		c.logger.WarnWithFields("API returned error", map[string]interface{}{
			"method":     method,
			"error_code": env.Error.Code,
			"error_msg":  env.Error.Message,
		})
		return apiErr
	}

	if target != nil {
		if err := json.Unmarshal(env.Response, target); err != nil {
			return &Error{
				Type:    ErrorTypeParsing,
				Message: fmt.Sprintf("failed to parse response payload: %v", err),
			}
		}
	}

	return nil
}

// checkStatus maps non-200 HTTP statuses onto the error taxonomy
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &Error{
			Type:    ErrorTypeAuth,
			Message: "authentication required",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &Error{
			Type:    ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return &Error{
			Type:    ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

// FetchHistoryAttachments fetches one page of photo attachments for a
// conversation. startFrom is passed only when non-empty; an empty item list
// signals natural end-of-stream, an empty nextFrom that this is the last page.
func (c *Client) FetchHistoryAttachments(ctx context.Context, peerID int64, count int, startFrom string) ([]Item, string, error) {
	params := url.Values{}
	params.Set("peer_id", strconv.FormatInt(peerID, 10))
	params.Set("media_type", MediaTypePhoto)
	params.Set("count", strconv.Itoa(count))
	if startFrom != "" {
		params.Set("start_from", startFrom)
	}

	c.logger.DebugWithFields("fetching attachments page", map[string]interface{}{
		"peer_id":    peerID,
		"count":      count,
		"start_from": startFrom,
	})

	var page HistoryAttachments
	if err := c.callMethod(ctx, MethodHistoryAttachments, params, &page); err != nil {
		return nil, "", err
	}

	c.logger.DebugWithFields("attachments page fetched", map[string]interface{}{
		"peer_id":   peerID,
		"items":     len(page.Items),
		"next_from": page.NextFrom,
	})

	return page.Items, page.NextFrom, nil
}

// ValidateToken probes the API with users.get to check that the access token
// is usable. Any error means the token is not valid.
func (c *Client) ValidateToken(ctx context.Context) error {
	return c.callMethod(ctx, MethodUsersGet, nil, nil)
}

// OpenPhoto performs a streamed GET for a photo URL and returns the body
// reader. The caller owns closing it.
func (c *Client) OpenPhoto(ctx context.Context, photoURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}
