package provider

import (
	"context"
	"log/slog"

	"github.com/swarmruntime/core/pkg/admission"
	"github.com/swarmruntime/core/pkg/errs"
)

// RouterConfig configures a Router.
type RouterConfig struct {
	// FallbackChain lists provider IDs in priority order; Complete and
	// StreamComplete walk it in order, advancing to the next provider
	// on a retryable error or an admission denial.
	FallbackChain []string
	CacheEnabled  bool
}

// Router implements spec.md §4.4's Complete/StreamComplete with
// fallback-chain walking, admission checks, response caching, and
// spend logging.
type Router struct {
	cfg      RouterConfig
	adapters map[string]Adapter
	admit    *admission.Controller
	cache    *Cache
	spend    *SpendLog
}

// NewRouter creates a Router. admit may be nil to skip admission
// checks (e.g. in tests exercising only the fallback logic).
func NewRouter(cfg RouterConfig, admit *admission.Controller, cache *Cache, spend *SpendLog) *Router {
	return &Router{
		cfg:      cfg,
		adapters: make(map[string]Adapter),
		admit:    admit,
		cache:    cache,
		spend:    spend,
	}
}

// Register adds an adapter, keyed by its ProviderID.
func (r *Router) Register(a Adapter) {
	r.adapters[a.ProviderID()] = a
}

// chain returns the provider IDs to try for one request: req.ProviderID
// first if set and registered, then the configured fallback chain,
// deduplicated.
func (r *Router) chain(req Request) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		if _, ok := r.adapters[id]; !ok {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	add(req.ProviderID)
	for _, id := range r.cfg.FallbackChain {
		add(id)
	}
	return out
}

// Complete walks the fallback chain, returning the first successful
// response (or cache hit), or the last error if every provider in the
// chain failed.
func (r *Router) Complete(ctx context.Context, req Request) (Response, error) {
	chain := r.chain(req)
	if len(chain) == 0 {
		return Response{}, errs.New(errs.KindInvalidArgument, "no provider available for request")
	}

	var cacheKey string
	if r.cfg.CacheEnabled && r.cache != nil {
		cacheKey = CacheKey(chain[0], req)
		if resp, ok := r.cache.Get(cacheKey); ok {
			resp.Cached = true
			return resp, nil
		}
	}

	var lastErr error
	for _, providerID := range chain {
		adapter := r.adapters[providerID]

		if r.admit != nil {
			d := r.admit.AdmitRequest(providerID, req.AgentID, req.EstTokens, req.EstCostUSD, 2)
			if !d.Allowed {
				lastErr = d.ToError()
				slog.Debug("provider denied by admission, trying next", "provider", providerID, "reason", d.Reason)
				continue
			}
			if !r.acquireSlots(providerID) {
				lastErr = errs.New(errs.KindConcurrency, string(admission.DimConcurrent))
				slog.Debug("provider at concurrency limit, trying next", "provider", providerID)
				continue
			}
		}

		resp, err := adapter.Complete(ctx, req)
		if r.admit != nil {
			r.releaseSlots(providerID)
		}
		if err != nil {
			classified := adapter.ClassifyError(err)
			lastErr = classified
			if !isRetryable(classified) {
				return Response{}, classified
			}
			slog.Warn("provider failed, trying next", "provider", providerID, "err", classified)
			continue
		}

		if r.spend != nil {
			r.spend.Record(providerID, req.AgentID, req.Model, resp.CostUSD, resp.TotalTokens)
		}
		if r.cfg.CacheEnabled && r.cache != nil {
			r.cache.Set(cacheKey, resp)
		}
		return resp, nil
	}

	if lastErr == nil {
		lastErr = errs.New(errs.KindProviderServer, "all providers in fallback chain exhausted")
	}
	return Response{}, lastErr
}

// StreamComplete walks the fallback chain as Complete does, returning
// the stream of the first provider that accepts the request. Once a
// stream has started, mid-stream errors are NOT retried against the
// next provider in the chain (the caller has already seen partial
// output); they surface as a terminal ErrorChunk.
func (r *Router) StreamComplete(ctx context.Context, req Request) (<-chan Chunk, error) {
	chain := r.chain(req)
	if len(chain) == 0 {
		return nil, errs.New(errs.KindInvalidArgument, "no provider available for request")
	}

	var lastErr error
	for _, providerID := range chain {
		adapter := r.adapters[providerID]
		if !adapter.Capabilities().SupportsStreaming {
			continue
		}

		if r.admit != nil {
			d := r.admit.AdmitRequest(providerID, req.AgentID, req.EstTokens, req.EstCostUSD, 2)
			if !d.Allowed {
				lastErr = d.ToError()
				continue
			}
			if !r.acquireSlots(providerID) {
				lastErr = errs.New(errs.KindConcurrency, string(admission.DimConcurrent))
				continue
			}
		}

		stream, err := adapter.StreamComplete(ctx, req)
		if err != nil {
			if r.admit != nil {
				r.releaseSlots(providerID)
			}
			lastErr = adapter.ClassifyError(err)
			continue
		}
		return r.wrapStream(providerID, req, stream), nil
	}

	if lastErr == nil {
		lastErr = errs.New(errs.KindProviderServer, "no streaming-capable provider available")
	}
	return nil, lastErr
}

// acquireSlots takes both the provider's and the global concurrency
// slot for one dispatch, releasing the provider slot again if the
// global slot isn't available, so a partial acquire never leaks.
func (r *Router) acquireSlots(providerID string) bool {
	if !r.admit.AcquireProviderSlot(providerID) {
		return false
	}
	if !r.admit.AcquireGlobalSlot() {
		r.admit.ReleaseProviderSlot(providerID)
		return false
	}
	return true
}

// releaseSlots releases both slots taken by acquireSlots, in reverse
// order.
func (r *Router) releaseSlots(providerID string) {
	r.admit.ReleaseGlobalSlot()
	r.admit.ReleaseProviderSlot(providerID)
}

// wrapStream records spend once the stream's UsageChunk arrives and
// releases the provider's and global concurrency slots once the
// stream is fully drained, matching the unconditional-release
// requirement applied to the whole dispatch rather than just its
// initial call.
func (r *Router) wrapStream(providerID string, req Request, in <-chan Chunk) <-chan Chunk {
	if r.spend == nil && r.admit == nil {
		return in
	}
	out := make(chan Chunk)
	go func() {
		defer close(out)
		if r.admit != nil {
			defer r.releaseSlots(providerID)
		}
		for c := range in {
			if u, ok := c.(*UsageChunk); ok && r.spend != nil {
				r.spend.Record(providerID, req.AgentID, req.Model, u.CostUSD, u.TotalTokens)
			}
			out <- c
		}
	}()
	return out
}

func isRetryable(err error) bool {
	if e, ok := err.(*errs.Error); ok {
		return e.Retryable
	}
	return false
}
