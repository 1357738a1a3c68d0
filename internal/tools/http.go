package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/util"
)

const httpMaxRetries = 3

// httpSleepFunc is the sleep function used between retries (injectable for tests)
var httpSleepFunc = time.Sleep

// StatusError is a non-2xx response from a tool endpoint
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// HTTPTool calls one endpoint of the device-management API
type HTTPTool struct {
	endpoint   model.ToolEndpoint
	baseURL    string
	userAgent  string
	maxBytes   int64
	httpClient *http.Client
}

// NewHTTPTool creates a tool for an endpoint using the shared tools settings
func NewHTTPTool(endpoint model.ToolEndpoint, cfg model.ToolsConfig) *HTTPTool {
	if endpoint.Method == "" {
		endpoint.Method = http.MethodGet
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	return &HTTPTool{
		endpoint:  endpoint,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
	}
}

// Name returns the tool name
func (t *HTTPTool) Name() string { return t.endpoint.Name }

// Definition describes the endpoint parameters as a JSON schema object
func (t *HTTPTool) Definition() Definition {
	props := map[string]any{}
	for name, desc := range t.endpoint.Parameters {
		props[name] = map[string]any{"type": "string", "description": desc}
	}
	return Definition{
		Name:        t.endpoint.Name,
		Description: t.endpoint.Description,
		Parameters:  map[string]any{"type": "object", "properties": props},
	}
}

// Call performs the request, retrying transient failures
func (t *HTTPTool) Call(ctx context.Context, args map[string]any) (string, error) {
	var lastErr error
	for attempt := 0; attempt < httpMaxRetries; attempt++ {
		body, err := t.do(ctx, args)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryableError(err) || ctx.Err() != nil {
			return "", err
		}
		if attempt < httpMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			httpSleepFunc(backoff)
		}
	}
	return "", lastErr
}

func (t *HTTPTool) do(ctx context.Context, args map[string]any) (string, error) {
	req, err := t.newRequest(ctx, args)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	// Read body with size limit
	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		text, err := HTMLToText(string(data))
		if err != nil {
			return "", fmt.Errorf("parse html: %w", err)
		}
		return text, nil
	}
	return string(data), nil
}

// newRequest fills {name} path placeholders from args; remaining args go to
// the query string for GET and to a JSON body otherwise
func (t *HTTPTool) newRequest(ctx context.Context, args map[string]any) (*http.Request, error) {
	path := t.endpoint.Path
	rest := map[string]any{}
	for k, v := range args {
		placeholder := "{" + k + "}"
		if strings.Contains(path, placeholder) {
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(argString(v)))
			continue
		}
		rest[k] = v
	}
	if strings.Contains(path, "{") {
		return nil, fmt.Errorf("missing path argument in %s", path)
	}

	target := t.baseURL + path
	method := strings.ToUpper(t.endpoint.Method)

	var body io.Reader
	if method == http.MethodGet {
		if len(rest) > 0 {
			keys := make([]string, 0, len(rest))
			for k := range rest {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			q := url.Values{}
			for _, k := range keys {
				q.Set(k, argString(rest[k]))
			}
			target += "?" + q.Encode()
		}
	} else {
		data, err := json.Marshal(rest)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func argString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// isRetryableError returns true for 5xx, 429 and transient network failures
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
