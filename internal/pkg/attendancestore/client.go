package attendancestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
)

const maxResponseBody = 1 << 20

// Client is the remote attendance store. It implements attendance.Store and
// attendance.HealthChecker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	strategies []SubmissionStrategy
	healthPath string
}

type Option func(*Client)

// WithHTTPClient replaces the transport, e.g. with an OAuth2 client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithStrategies(strategies ...SubmissionStrategy) Option {
	return func(c *Client) {
		c.strategies = strategies
	}
}

func WithHealthPath(path string) Option {
	return func(c *Client) {
		c.healthPath = path
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		strategies: DefaultStrategies(),
		healthPath: "/health",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// BulkWrite tries each strategy in order until one is not unsupported.
func (c *Client) BulkWrite(ctx context.Context, req attendance.BulkWriteRequest) (attendance.BulkWriteResult, error) {
	res := c.Submit(ctx, req)
	switch res.Kind {
	case ResultAccepted:
		return res.Result, nil
	case ResultRejected:
		return attendance.BulkWriteResult{}, res.Err
	default:
		return attendance.BulkWriteResult{}, fmt.Errorf("%w: %v", attendance.ErrNoStrategy, res.Err)
	}
}

// Submit runs the strategy chain and returns the deciding result.
func (c *Client) Submit(ctx context.Context, req attendance.BulkWriteRequest) SubmitResult {
	last := SubmitResult{Kind: ResultUnsupported, Err: attendance.ErrNoStrategy}
	for _, strategy := range c.strategies {
		res := c.try(ctx, strategy, req)
		if res.Kind != ResultUnsupported {
			return res
		}
		slog.Debug("Attendance store does not support request shape", "strategy", strategy.Name, "date", req.AttendanceDate, "error", res.Err)
		last = res
	}
	return last
}

func (c *Client) try(ctx context.Context, strategy SubmissionStrategy, req attendance.BulkWriteRequest) SubmitResult {
	result := SubmitResult{Strategy: strategy.Name}

	httpReq, err := strategy.Build(ctx, c.baseURL, req)
	if err != nil {
		result.Kind = ResultRejected
		result.Err = fmt.Errorf("build %s request: %w", strategy.Name, err)
		return result
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		result.Kind = ResultRejected
		result.Err = fmt.Errorf("%w: %v", attendance.ErrStoreUnavailable, err)
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		result.Kind = ResultRejected
		result.Err = fmt.Errorf("read store response: %w", err)
		return result
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// The batch is written once the store answers 2xx. An unreadable
		// summary only loses the count.
		summary, err := decodeSummary(body)
		if err != nil {
			slog.Debug("Attendance store summary not understood", "strategy", strategy.Name, "date", req.AttendanceDate, "error", err)
			summary = attendance.BulkWriteResult{}
		}
		result.Kind = ResultAccepted
		result.Result = summary
	case unsupportedStatus(resp.StatusCode):
		result.Kind = ResultUnsupported
		result.Err = &attendance.StoreError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	default:
		result.Kind = ResultRejected
		result.Err = &attendance.StoreError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}
	return result
}

// Ping checks that the store answers on its health path.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", attendance.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: health check not authorized (%d), check store client credentials", attendance.ErrStoreUnavailable, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: health check returned %d", attendance.ErrStoreUnavailable, resp.StatusCode)
	}
	return nil
}

func unsupportedStatus(code int) bool {
	switch code {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusUnsupportedMediaType, http.StatusNotImplemented:
		return true
	default:
		return false
	}
}

// responseBody covers the shapes stores answer with: a bare summary, a
// {success, data} envelope, or a list of written records.
type responseBody struct {
	Count   *int                          `json:"count"`
	Records []attendance.AttendanceRecord `json:"records"`
	Data    json.RawMessage               `json:"data"`
	Message string                        `json:"message"`
	Error   json.RawMessage               `json:"error"`
}

func decodeSummary(body []byte) (attendance.BulkWriteResult, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return attendance.BulkWriteResult{}, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var records []attendance.AttendanceRecord
		if err := json.Unmarshal(body, &records); err != nil {
			return attendance.BulkWriteResult{}, err
		}
		return attendance.BulkWriteResult{Count: len(records), Records: records}, nil
	}

	var rb responseBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return attendance.BulkWriteResult{}, err
	}
	if len(rb.Data) > 0 && string(rb.Data) != "null" {
		return decodeSummary(rb.Data)
	}

	res := attendance.BulkWriteResult{Records: rb.Records}
	if rb.Count != nil {
		res.Count = *rb.Count
	}
	return res, nil
}

func errorMessage(status int, body []byte) string {
	var rb responseBody
	if err := json.Unmarshal(body, &rb); err == nil {
		if len(rb.Error) > 0 {
			var detail struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(rb.Error, &detail) == nil && detail.Message != "" {
				return detail.Message
			}
			var text string
			if json.Unmarshal(rb.Error, &text) == nil && text != "" {
				return text
			}
		}
		if rb.Message != "" {
			return rb.Message
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") && len(text) <= 200 {
		return text
	}
	return fmt.Sprintf("attendance store returned %d %s", status, http.StatusText(status))
}

// IsUnavailable reports whether err means the store could not be reached at all.
func IsUnavailable(err error) bool {
	return errors.Is(err, attendance.ErrStoreUnavailable)
}
