package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pario-ai/fastroute/pkg/models"
)

const answerPath = "/v1/answer"

// HTTP posts the query as JSON to an upstream answer service.
type HTTP struct {
	ID     models.BackendID
	URL    string
	APIKey string
	Client *http.Client
}

type answerRequest struct {
	Query     string         `json:"query"`
	Mode      string         `json:"mode,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	TimeoutMs int64          `json:"timeout_ms,omitempty"`
}

// Invoke implements Backend.
func (h *HTTP) Invoke(ctx context.Context, q models.Query, opts InvokeOptions) (*models.BackendResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(answerRequest{
		Query:     q.Text,
		Mode:      opts.Mode,
		Options:   q.Options,
		TimeoutMs: opts.Timeout.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	headers := map[string]string{}
	if h.APIKey != "" {
		headers["Authorization"] = "Bearer " + h.APIKey
	}

	res, err := h.doUpstreamRequest(ctx, body, headers)
	if err != nil {
		return nil, err
	}
	if res.statusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %d: %s", h.ID, res.statusCode, bytes.TrimSpace(res.body))
	}

	var out models.BackendResult
	if err := json.Unmarshal(res.body, &out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", h.ID, err)
	}
	return &out, nil
}

type upstreamResult struct {
	statusCode int
	body       []byte
}

func (h *HTTP) doUpstreamRequest(ctx context.Context, body []byte, headers map[string]string) (*upstreamResult, error) {
	target, err := url.Parse(h.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.JoinPath(answerPath).String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &upstreamResult{statusCode: resp.StatusCode, body: respBody}, nil
}
