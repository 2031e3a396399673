package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Router tries providers in order until one succeeds.
// The request's PreferredProvider is moved to the front when registered;
// unknown preferences are ignored.
type Router struct {
	providers map[string]Provider
	order     []string
	debugLog  func(format string, args ...interface{})
}

// NewRouter creates a router over providers, tried in the given order.
// Nil providers are skipped.
func NewRouter(providers ...Provider) *Router {
	r := &Router{
		providers: make(map[string]Provider),
		debugLog:  func(format string, args ...interface{}) {},
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, dup := r.providers[p.Name()]; dup {
			continue
		}
		r.providers[p.Name()] = p
		r.order = append(r.order, p.Name())
	}
	return r
}

// SetDebugLog sets the debug logging function.
func (r *Router) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		r.debugLog = fn
	}
}

// Providers returns provider names in fallback order.
func (r *Router) Providers() []string {
	return append([]string(nil), r.order...)
}

// Generate sends req to the first provider that succeeds.
// The request model is only passed to the first provider tried, since model
// names are provider specific; later providers use their defaults.
func (r *Router) Generate(ctx context.Context, req Request) (*Response, error) {
	order := r.attemptOrder(req.Params.PreferredProvider)
	if len(order) == 0 {
		return nil, ErrNoProvider
	}

	var errs []error
	for i, name := range order {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		attempt := req
		if i > 0 {
			attempt.Model = ""
		}

		start := time.Now()
		resp, err := r.providers[name].Generate(ctx, attempt)
		if err != nil {
			r.debugLog("[llm.Router] provider %s failed after %v: %v", name, time.Since(start), err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if resp == nil {
			r.debugLog("[llm.Router] provider %s returned no response", name)
			errs = append(errs, fmt.Errorf("%s: %w", name, ErrEmptyResponse))
			continue
		}

		if resp.Provider == "" {
			resp.Provider = name
		}
		if resp.ProcessingTimeMs == 0 {
			resp.ProcessingTimeMs = time.Since(start).Milliseconds()
		}
		r.debugLog("[llm.Router] provider %s ok: %d+%d tokens, finish=%s",
			name, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.FinishReason)
		return resp, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrNoProvider, errors.Join(errs...))
}

func (r *Router) attemptOrder(preferred string) []string {
	if _, ok := r.providers[preferred]; !ok {
		return r.order
	}
	order := make([]string, 0, len(r.order))
	order = append(order, preferred)
	for _, name := range r.order {
		if name != preferred {
			order = append(order, name)
		}
	}
	return order
}
