package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seritalien/vauban-rpc/internal/jsonrpc"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		Name:           "test",
		RPCURL:         url,
		RequestTimeout: 5 * time.Second,
		Logger:         zerolog.Nop(),
	})
}

func TestClient_Execute(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}

		body, _ := io.ReadAll(r.Body)
		req, err := jsonrpc.ParseRequest(body)
		if err != nil {
			t.Errorf("ParseRequest: %v", err)
		}
		if req.Method != "starknet_chainId" {
			t.Errorf("method = %s, want starknet_chainId", req.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x534e5f4d41494e"}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	defer c.Close()

	req, _ := jsonrpc.NewRequest("starknet_chainId", []interface{}{}, jsonrpc.NewIDInt(1))
	resp, err := c.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !resp.IsSuccess() {
		t.Fatalf("unexpected error response: %v", resp.Error)
	}

	var result string
	if err := resp.GetResultAs(&result); err != nil || result != "0x534e5f4d41494e" {
		t.Errorf("result = %q (%v)", result, err)
	}
}

func TestClient_Execute_Non2xxUnparseableBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	defer c.Close()

	req, _ := jsonrpc.NewRequest("starknet_chainId", nil, jsonrpc.NewIDInt(1))
	if _, err := c.Execute(context.Background(), req); err == nil {
		t.Fatal("Execute on non-200 with unparseable body: want error")
	}
}

func TestClient_Execute_Non2xxJSONRPCError(t *testing.T) {
	// Nodes report errors like rate limiting as a JSON-RPC error envelope
	// on a non-2xx status; the body is parsed regardless of status
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"rate limited"}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	defer c.Close()

	req, _ := jsonrpc.NewRequest("starknet_chainId", nil, jsonrpc.NewIDInt(1))
	resp, err := c.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !resp.HasError() {
		t.Fatal("error envelope lost")
	}
	if resp.Error.Message != "rate limited" {
		t.Errorf("error message = %q, want rate limited", resp.Error.Message)
	}
}

func TestClient_Execute_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	defer c.Close()

	req, _ := jsonrpc.NewRequest("starknet_chainId", nil, jsonrpc.NewIDInt(1))
	if _, err := c.Execute(context.Background(), req); err == nil {
		t.Fatal("Execute on unparseable body: want error")
	}
}

func TestClient_Execute_ContextCancelled(t *testing.T) {
	started := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read and can
		// observe the client disconnect, cancelling r.Context().
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	req, _ := jsonrpc.NewRequest("starknet_getBlockNumber", nil, jsonrpc.NewIDInt(1))
	if _, err := c.Execute(ctx, req); err == nil {
		t.Fatal("Execute with cancelled context: want error")
	}
}

func TestClient_ExecuteBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests, isBatch, err := jsonrpc.ParseBatchRequest(body)
		if err != nil || !isBatch {
			t.Errorf("ParseBatchRequest: %v (isBatch=%v)", err, isBatch)
		}

		responses := make([]*jsonrpc.Response, len(requests))
		for i, req := range requests {
			responses[i] = jsonrpc.NewResponseRaw(req.ID, json.RawMessage(`"ok"`))
		}
		data, _ := jsonrpc.MarshalBatchResponse(responses)
		w.Write(data)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	defer c.Close()

	req1, _ := jsonrpc.NewRequest("starknet_chainId", nil, jsonrpc.NewIDInt(1))
	req2, _ := jsonrpc.NewRequest("starknet_getBlockNumber", nil, jsonrpc.NewIDInt(2))

	responses, err := c.ExecuteBatch(context.Background(), []*jsonrpc.Request{req1, req2})
	if err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("responses = %d, want 2", len(responses))
	}
}
