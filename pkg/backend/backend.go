// Package backend defines the answer-generation backends and the executor
// that calls them under a deadline.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pario-ai/fastroute/pkg/config"
	"github.com/pario-ai/fastroute/pkg/models"
)

var (
	// ErrBackendTimeout means the backend did not answer before its deadline.
	ErrBackendTimeout = errors.New("backend timeout")
	// ErrBackendFailed means the backend returned an error or no result.
	ErrBackendFailed = errors.New("backend failed")
	// ErrUnknownBackend means no backend is registered under the id.
	ErrUnknownBackend = errors.New("unknown backend")
)

// InvokeOptions are passed to every backend call.
type InvokeOptions struct {
	Timeout time.Duration
	Mode    string
}

// Backend answers a query. Implementations must return once ctx is done.
type Backend interface {
	Invoke(ctx context.Context, q models.Query, opts InvokeOptions) (*models.BackendResult, error)
}

// Func adapts a function to Backend.
type Func func(ctx context.Context, q models.Query, opts InvokeOptions) (*models.BackendResult, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, q models.Query, opts InvokeOptions) (*models.BackendResult, error) {
	return f(ctx, q, opts)
}

// FromConfig builds one backend per configured entry.
func FromConfig(cfgs []config.BackendConfig, client *http.Client) (map[models.BackendID]Backend, error) {
	out := make(map[models.BackendID]Backend, len(cfgs))
	for _, c := range cfgs {
		if _, dup := out[c.ID]; dup {
			return nil, fmt.Errorf("backend %q: configured twice", c.ID)
		}
		switch c.Kind {
		case "", config.KindHTTP:
			out[c.ID] = &HTTP{ID: c.ID, URL: c.URL, APIKey: c.APIKey, Client: client}
		case config.KindSimulated:
			out[c.ID] = &Simulated{ID: c.ID, Latency: c.Latency, FailureRate: c.FailureRate}
		default:
			return nil, fmt.Errorf("backend %q: unknown kind %q", c.ID, c.Kind)
		}
	}
	return out, nil
}

// DefaultSimulated returns in-process stand-ins for all three backends.
func DefaultSimulated() map[models.BackendID]Backend {
	return map[models.BackendID]Backend{
		models.BackendLocal:       &Simulated{ID: models.BackendLocal, Latency: 40 * time.Millisecond},
		models.BackendHeavy:       &Simulated{ID: models.BackendHeavy, Latency: 120 * time.Millisecond},
		models.BackendPerformance: &Simulated{ID: models.BackendPerformance, Latency: 25 * time.Millisecond},
	}
}
