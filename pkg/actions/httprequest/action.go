// Package httprequest provides the HTTP request action, the default work of agent and tool
// nodes.
package httprequest

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

	"github.com/ryxhub/flowengine/pkg/protocol"
	"github.com/ryxhub/flowengine/pkg/template"
)

const defaultTimeoutSeconds = 30

var (
	// ErrHTTPRequestURLInvalid is returned when the URL is missing.
	ErrHTTPRequestURLInvalid = errors.New("invalid HTTP request url")
	// ErrHTTPMethodInvalid is returned when the HTTP method is not supported.
	ErrHTTPMethodInvalid = errors.New("invalid HTTP method")
	// ErrHTTPStatus is returned for responses outside the 2xx range.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

var supportedMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true, http.MethodDelete: true,
	http.MethodPatch: true, http.MethodHead: true, http.MethodOptions: true,
}

// Action performs one HTTP request. URL, body and header values are templates rendered
// against the node's upstream outputs.
type Action struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration
}

func NewAction(config map[string]any) (*Action, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("missing or invalid 'url' in configuration: %w", ErrHTTPRequestURLInvalid)
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	method = strings.ToUpper(method)
	if !supportedMethods[method] {
		return nil, fmt.Errorf("%w: %s", ErrHTTPMethodInvalid, method)
	}

	headers := make(map[string]string)

	if headersMap, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersMap {
			if strVal, ok := v.(string); ok {
				headers[k] = strVal
			}
		}
	}

	body, _ := config["body"].(string)

	timeout := defaultTimeoutSeconds * time.Second

	switch v := config["timeout"].(type) {
	case float64:
		timeout = time.Duration(v * float64(time.Second))
	case int:
		timeout = time.Duration(v) * time.Second
	}

	return &Action{
		URL:     url,
		Method:  method,
		Headers: headers,
		Body:    body,
		Timeout: timeout,
	}, nil
}

// Execute sends the request. The run context bounds it; Cancel on a run does not.
func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (protocol.ActionResult, error) {
	logger = logger.With("module", "http_request_action")

	req, err := a.buildRequest(ctx, input)
	if err != nil {
		return protocol.ActionResult{}, err
	}

	logger.DebugContext(ctx, "Sending HTTP request", "method", a.Method, "url", req.URL.String())

	client := &http.Client{Timeout: a.Timeout}

	resp, err := client.Do(req)
	if err != nil {
		return protocol.ActionResult{}, fmt.Errorf("http request failed: %w", err)
	}

	return a.processResponse(ctx, req, resp, logger)
}

func (a *Action) buildRequest(ctx context.Context, input protocol.ActionInput) (*http.Request, error) {
	url, err := template.RenderString(a.URL, input)
	if err != nil {
		return nil, fmt.Errorf("failed to render url template: %w", err)
	}

	var body io.Reader

	if a.Body != "" {
		rendered, err := template.RenderString(a.Body, input)
		if err != nil {
			return nil, fmt.Errorf("failed to render body template: %w", err)
		}

		body = strings.NewReader(rendered)
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	for key, value := range a.Headers {
		rendered, err := template.RenderString(value, input)
		if err != nil {
			return nil, fmt.Errorf("failed to render header '%s' template: %w", key, err)
		}

		req.Header.Set(key, rendered)
	}

	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (a *Action) processResponse(
	ctx context.Context,
	req *http.Request,
	resp *http.Response,
	logger *slog.Logger,
) (protocol.ActionResult, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocol.ActionResult{}, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any

	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		body = string(bodyBytes)
	}

	line := fmt.Sprintf("%s %s -> %d (%d bytes)", a.Method, req.URL.Redacted(), resp.StatusCode, len(bodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.WarnContext(ctx, "HTTP request returned non-success status", "status", resp.StatusCode)

		return protocol.ActionResult{Logs: []string{line}},
			fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return protocol.ActionResult{
		Output: map[string]any{
			"status_code": resp.StatusCode,
			"body":        body,
		},
		Logs: []string{line},
	}, nil
}
