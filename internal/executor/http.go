// Package executor ships HTTPExecutor, the one concrete engine.Job
// implementation this repo provides out of the box.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minisource/jobengine/internal/models"
)

// maxResponseBody caps how much of a response body is read back.
const maxResponseBody = 1 << 20

// HTTPJobData is the shape HTTPExecutor decodes from JobDetail.JobData.
type HTTPJobData struct {
	Endpoint   string            `json:"endpoint"`
	Method     string            `json:"method,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Payload    json.RawMessage   `json:"payload,omitempty"`
	Timeout    int               `json:"timeout,omitempty"` // seconds
	MaxRetries int               `json:"max_retries,omitempty"`
	RetryDelay int               `json:"retry_delay,omitempty"` // seconds
}

// ExecutionResult captures one HTTP call's outcome.
type ExecutionResult struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
	DurationMS int64
	Err        error
}

// HTTPExecutor implements engine.Job by issuing an HTTP call per the
// JobDetail's HTTPJobData: builds the request, runs it through
// *http.Client, limits the response body, classifies 5xx/429 as retryable.
type HTTPExecutor struct {
	client *http.Client
}

// NewHTTPExecutor builds an HTTPExecutor with the given base client
// timeout (overridden per-job by HTTPJobData.Timeout when set).
func NewHTTPExecutor(defaultTimeout time.Duration) *HTTPExecutor {
	return &HTTPExecutor{client: &http.Client{Timeout: defaultTimeout}}
}

// Execute implements engine.Job. It runs ExecuteWithRetry and records the
// final result on the execution context's result slot.
func (e *HTTPExecutor) Execute(ctx context.Context, jec *models.JobExecutionContext) error {
	var data HTTPJobData
	if len(jec.JobDetail.JobData) > 0 {
		if err := json.Unmarshal(jec.JobDetail.JobData, &data); err != nil {
			return fmt.Errorf("decode job data: %w", err)
		}
	}

	result := e.ExecuteWithRetry(ctx, jec.JobDetail, data)
	jec.SetResult(result)
	if result.Err != nil {
		return result.Err
	}
	return nil
}

// buildRequest constructs the *http.Request, setting the identifying
// scheduler headers plus Content-Type when a payload is present, then
// merging any custom headers from the job data.
func (e *HTTPExecutor) buildRequest(ctx context.Context, job *models.JobDetail, data HTTPJobData) (*http.Request, error) {
	method := data.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if len(data.Payload) > 0 {
		body = bytes.NewReader(data.Payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, data.Endpoint, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "jobengine-scheduler/1.0")
	req.Header.Set("X-Scheduler-Job-Id", job.Name)
	req.Header.Set("X-Scheduler-Job-Group", job.Group)
	if len(data.Payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range data.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// executeOnce runs a single attempt, no retry.
func (e *HTTPExecutor) executeOnce(ctx context.Context, job *models.JobDetail, data HTTPJobData) ExecutionResult {
	start := time.Now()

	client := e.client
	if data.Timeout > 0 {
		c := *e.client
		c.Timeout = time.Duration(data.Timeout) * time.Second
		client = &c
	}

	req, err := e.buildRequest(ctx, job, data)
	if err != nil {
		return ExecutionResult{Err: err, DurationMS: time.Since(start).Milliseconds()}
	}

	resp, err := client.Do(req)
	if err != nil {
		return ExecutionResult{Err: err, DurationMS: time.Since(start).Milliseconds()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return ExecutionResult{StatusCode: resp.StatusCode, Err: err, DurationMS: time.Since(start).Milliseconds()}
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	result := ExecutionResult{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    headers,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if resp.StatusCode >= 400 {
		result.Err = fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return result
}

// ExecuteWithRetry retries the call up to data.MaxRetries times, waiting
// data.RetryDelay seconds between attempts, stopping early on a
// non-retryable failure.
func (e *HTTPExecutor) ExecuteWithRetry(ctx context.Context, job *models.JobDetail, data HTTPJobData) ExecutionResult {
	var result ExecutionResult
	attempts := data.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(data.RetryDelay) * time.Second

	for attempt := 0; attempt < attempts; attempt++ {
		result = e.executeOnce(ctx, job, data)
		if result.Err == nil || !isRetryable(result) {
			return result
		}
		if attempt < attempts-1 && delay > 0 {
			select {
			case <-ctx.Done():
				return result
			case <-time.After(delay):
			}
		}
	}
	return result
}

// isRetryable classifies 5xx and 429 responses, plus transport-level
// failures (StatusCode==0), as retryable.
func isRetryable(result ExecutionResult) bool {
	if result.StatusCode == 0 {
		return true
	}
	if result.StatusCode >= 500 {
		return true
	}
	if result.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return false
}
