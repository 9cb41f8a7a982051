package nanobanana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pixelmint/pixelmint/internal/config"
)

// ErrNotConfigured is returned when the client is constructed without an API key.
var ErrNotConfigured = errors.New("generation provider API key is not configured")

// ErrTaskTimeout is returned when the poll attempt budget is exhausted.
var ErrTaskTimeout = errors.New("task timeout: maximum polling attempts reached")

// TaskFailedError carries the provider's failure message for a terminal failed task.
type TaskFailedError struct {
	TaskID  string
	Message string
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("task %s failed: %s", e.TaskID, e.Message)
}

// Response is one provider response envelope. The shape varies across models
// and API versions, so it stays dynamic until normalization.
type Response map[string]any

// Result is the outcome of one generation request: the raw terminal response
// plus the task identity when the provider answered asynchronously.
type Result struct {
	TaskID   string
	Status   string
	Response Response
}

type GenerateRequest struct {
	Model     string   `json:"model"`
	Prompt    string   `json:"prompt"`
	Size      string   `json:"size"`
	N         int      `json:"n"`
	ImageURLs []string `json:"image_urls,omitempty"`
}

type Client struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	log         *slog.Logger
	maxAttempts int
	backoff     Backoff
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiKey:  cfg.NanoBananaAPIKey,
		baseURL: strings.TrimRight(cfg.NanoBananaBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:         log,
		maxAttempts: cfg.PollMaxAttempts,
		backoff:     FixedBackoff{Interval: cfg.PollInterval},
	}
}

// Generate submits one generation request and, when the provider answers with
// a task id, polls the task until a terminal state.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	initial, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	taskID := findTaskID(initial)
	if taskID == "" {
		// Some models answer synchronously: no task id, the result is
		// already in the submit response.
		if _, extractErr := ExtractImageURLs(initial); extractErr == nil {
			return &Result{Status: stringField(initial, "status"), Response: initial}, nil
		}
		return nil, fmt.Errorf("no task id in provider response")
	}

	c.log.Info("generation task submitted", "task_id", taskID, "model", req.Model)

	final, status, err := c.poll(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &Result{TaskID: taskID, Status: status, Response: final}, nil
}

func (c *Client) submit(ctx context.Context, genReq GenerateRequest) (Response, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post generation: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		c.log.Error("generation submit failed", "status", resp.StatusCode, "body", truncateBody(rawBody))
		return nil, fmt.Errorf("provider error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
	}

	var parsed Response
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode submit response: %w (body=%s)", err, truncateBody(rawBody))
	}
	return parsed, nil
}

// poll checks the task status at fixed intervals until a terminal state or
// the attempt budget runs out. A transient error on a single attempt is
// logged and retried: a flaky poll must not abort an otherwise-succeeding
// long-running job.
func (c *Client) poll(ctx context.Context, taskID string) (Response, string, error) {
	taskURL := c.baseURL + "/v1/tasks/" + taskID

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff.Wait(ctx, attempt); err != nil {
				return nil, "", err
			}
		}

		parsed, err := c.checkStatus(ctx, taskURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			c.log.Warn("task status check failed", "task_id", taskID, "attempt", attempt+1, "err", err)
			continue
		}

		status := taskStatus(parsed)
		switch status {
		case "succeeded", "completed", "success":
			c.log.Info("generation task completed", "task_id", taskID, "attempt", attempt+1)
			return parsed, status, nil

		case "failed", "error":
			return nil, "", &TaskFailedError{TaskID: taskID, Message: failureMessage(parsed)}

		case "processing", "pending", "queued", "submitted":
			if attempt%10 == 0 {
				c.log.Info("generation task in flight", "task_id", taskID, "status", status, "attempt", attempt+1, "max_attempts", c.maxAttempts)
			}

		default:
			// Unknown terminal state: hand the raw response to the caller
			// for inspection instead of guessing.
			c.log.Warn("unknown task status", "task_id", taskID, "status", status)
			return parsed, status, nil
		}
	}

	return nil, "", ErrTaskTimeout
}

func (c *Client) checkStatus(ctx context.Context, taskURL string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, taskURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get task status: %w", err)
	}

	rawBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
	}

	var parsed Response
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode status response: %w (body=%s)", err, truncateBody(rawBody))
	}
	return parsed, nil
}

// findTaskID looks for the task identifier under the shapes observed across
// provider versions: top-level task_id/id/taskId, task.id, or inside the
// first element of a data array.
func findTaskID(resp Response) string {
	for _, key := range []string{"task_id", "id", "taskId"} {
		if id := stringField(resp, key); id != "" {
			return id
		}
	}
	if task, ok := asMap(resp["task"]); ok {
		if id := stringField(task, "id"); id != "" {
			return id
		}
	}
	if items, ok := asSlice(resp["data"]); ok && len(items) > 0 {
		if first, ok := asMap(items[0]); ok {
			for _, key := range []string{"task_id", "id"} {
				if id := stringField(first, key); id != "" {
					return id
				}
			}
		}
	}
	return ""
}

// taskStatus reads the task state from data.status, falling back to the
// top-level status and finally the provider's code field. The code fallback
// lands in the unknown-status branch rather than being mistaken for success.
func taskStatus(resp Response) string {
	if data, ok := asMap(resp["data"]); ok {
		if status := stringField(data, "status"); status != "" {
			return status
		}
	}
	if status := stringField(resp, "status"); status != "" {
		return status
	}
	return stringField(resp, "code")
}

func failureMessage(resp Response) string {
	if msg := stringField(resp, "error"); msg != "" {
		return msg
	}
	if msg := stringField(resp, "message"); msg != "" {
		return msg
	}
	if items, ok := asSlice(resp["data"]); ok && len(items) > 0 {
		if first, ok := asMap(items[0]); ok {
			if msg := stringField(first, "error"); msg != "" {
				return msg
			}
		}
	}
	return "task failed"
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	// Never cut a multi-byte rune in half.
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
