package proxy

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/seritalien/vauban-rpc/internal/cache"
	"github.com/seritalien/vauban-rpc/internal/config"
	"github.com/seritalien/vauban-rpc/internal/jsonrpc"
	"github.com/seritalien/vauban-rpc/internal/upstream"
)

// proxyErrorBody is returned with HTTP 500 whenever a request could not
// be completed at all (upstream transport failure, unparseable body)
const proxyErrorBody = `{"error":"RPC request failed"}`

// Handler handles HTTP JSON-RPC requests with transparent caching of
// read-only chain queries. Write methods and error responses are never
// served from cache.
type Handler struct {
	client      *upstream.Client
	cache       cache.Cache
	maxBodySize int64
	logger      zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(client *upstream.Client, rpcCache cache.Cache, cfg *config.Config, logger zerolog.Logger) *Handler {
	return &Handler{
		client:      client,
		cache:       rpcCache,
		maxBodySize: cfg.MaxBodySize,
		logger:      logger.With().Str("component", "proxy").Logger(),
	}
}

// HandleRPC handles POST /rpc
func (h *Handler) HandleRPC(w http.ResponseWriter, r *http.Request) {
	var body []byte
	var err error
	if h.maxBodySize > 0 {
		body, err = io.ReadAll(io.LimitReader(r.Body, h.maxBodySize+1))
		if err == nil && int64(len(body)) > h.maxBodySize {
			h.writeJSONRPCError(w, jsonrpc.NewIDNull(), jsonrpc.NewError(jsonrpc.CodeInvalidRequest, "request body too large"))
			return
		}
	} else {
		body, err = io.ReadAll(r.Body)
	}
	if err != nil {
		h.writeProxyError(w)
		return
	}

	// The gateway does not pre-validate envelopes: a request without a
	// method field is legal and simply forwards uncached
	requests, isBatch, err := jsonrpc.ParseBatchRequest(body)
	if err != nil {
		h.logger.Debug().Err(err).Msg("unparseable request body")
		h.writeProxyError(w)
		return
	}

	ctx := r.Context()

	if isBatch {
		responses, err := h.executeBatchWithCache(ctx, requests)
		if err != nil {
			h.logger.Error().Err(err).Int("requests", len(requests)).Msg("batch request failed")
			h.writeProxyError(w)
			return
		}
		h.writeBatchResponse(w, responses)
		return
	}

	req := requests[0]
	resp, err := h.executeWithCache(ctx, req)
	if err != nil {
		h.logger.Error().Err(err).Str("method", req.Method).Msg("request failed")
		h.writeProxyError(w)
		return
	}
	h.writeResponse(w, resp)
}

// HandleClearCache handles DELETE /rpc
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	h.logger.Info().Msg("cache cleared")

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"cleared":true}`))
}

// HandleHealth handles GET /healthz
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// executeWithCache executes a single request with caching support
func (h *Handler) executeWithCache(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	cacheable := cache.IsCacheable(req.Method)

	if cacheable {
		cacheKey := cache.GenerateCacheKey(req.Method, req.Params)
		if cachedData, found := h.cache.Get(cacheKey); found {
			resp, err := jsonrpc.ParseResponse(cachedData)
			if err == nil {
				// Update response ID to match request ID
				resp.ID = req.ID
				h.logger.Debug().
					Str("method", req.Method).
					Str("cacheKey", cacheKey).
					Msg("cache hit")
				return resp, nil
			}
		}
	}

	resp, err := h.client.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	// Cache successful responses only: upstream JSON-RPC errors pass
	// through verbatim and never poison the cache
	if cacheable && resp.IsSuccess() {
		cacheKey := cache.GenerateCacheKey(req.Method, req.Params)
		if respBytes, err := resp.Bytes(); err == nil {
			h.cache.Set(cacheKey, respBytes)
			h.logger.Debug().
				Str("method", req.Method).
				Str("cacheKey", cacheKey).
				Msg("cached response")
		}
	}

	return resp, nil
}

// executeBatchWithCache executes a batch of requests with caching support.
// Cached entries are served directly; the uncached remainder is forwarded
// upstream as a single batch call.
func (h *Handler) executeBatchWithCache(ctx context.Context, requests []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
	responses := make([]*jsonrpc.Response, len(requests))
	uncachedIndices := make([]int, 0, len(requests))
	uncachedRequests := make([]*jsonrpc.Request, 0, len(requests))

	for i, req := range requests {
		if cache.IsCacheable(req.Method) {
			cacheKey := cache.GenerateCacheKey(req.Method, req.Params)
			if cachedData, found := h.cache.Get(cacheKey); found {
				resp, err := jsonrpc.ParseResponse(cachedData)
				if err == nil {
					resp.ID = req.ID
					responses[i] = resp
					h.logger.Debug().
						Str("method", req.Method).
						Str("cacheKey", cacheKey).
						Msg("cache hit (batch)")
					continue
				}
			}
		}
		uncachedIndices = append(uncachedIndices, i)
		uncachedRequests = append(uncachedRequests, req)
	}

	if len(uncachedRequests) > 0 {
		upstreamResponses, err := h.client.ExecuteBatch(ctx, uncachedRequests)
		if err != nil {
			return nil, err
		}
		if len(upstreamResponses) != len(uncachedRequests) {
			h.logger.Warn().
				Int("requests", len(uncachedRequests)).
				Int("responses", len(upstreamResponses)).
				Msg("upstream batch response count mismatch")
		}

		for j, resp := range upstreamResponses {
			if j >= len(uncachedIndices) {
				break
			}
			idx := uncachedIndices[j]
			responses[idx] = resp
			req := requests[idx]

			if resp.IsSuccess() && cache.IsCacheable(req.Method) {
				cacheKey := cache.GenerateCacheKey(req.Method, req.Params)
				if respBytes, err := resp.Bytes(); err == nil {
					h.cache.Set(cacheKey, respBytes)
					h.logger.Debug().
						Str("method", req.Method).
						Str("cacheKey", cacheKey).
						Msg("cached response (batch)")
				}
			}
		}
	}

	// Fill any slots the upstream left unanswered
	for i, resp := range responses {
		if resp == nil {
			responses[i] = jsonrpc.NewErrorResponse(requests[i].ID, jsonrpc.ErrInternal)
		}
	}

	return responses, nil
}

// writeResponse writes a JSON-RPC response
func (h *Handler) writeResponse(w http.ResponseWriter, resp *jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	data, err := resp.Bytes()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal response")
		h.writeProxyError(w)
		return
	}
	w.Write(data)
}

// writeBatchResponse writes a batch of JSON-RPC responses
func (h *Handler) writeBatchResponse(w http.ResponseWriter, responses []*jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	data, err := jsonrpc.MarshalBatchResponse(responses)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal batch response")
		h.writeProxyError(w)
		return
	}
	w.Write(data)
}

// writeJSONRPCError writes a JSON-RPC error response
func (h *Handler) writeJSONRPCError(w http.ResponseWriter, id jsonrpc.ID, rpcErr *jsonrpc.Error) {
	h.writeResponse(w, jsonrpc.NewErrorResponse(id, rpcErr))
}

// writeProxyError writes the generic proxy failure body with HTTP 500
func (h *Handler) writeProxyError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(proxyErrorBody))
}
