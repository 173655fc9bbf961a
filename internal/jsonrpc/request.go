package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Request represents a JSON-RPC request.
// Method is optional on the wire: the gateway forwards envelopes without
// a method as-is instead of rejecting them.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id"`
}

// HasMethod returns true if the request carries a method name
func (r *Request) HasMethod() bool {
	return r.Method != ""
}

// ParseRequest parses a single JSON-RPC request from bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// ParseBatchRequest parses a batch of JSON-RPC requests
// Returns a slice of requests, or a single request if not a batch
func ParseBatchRequest(data []byte) ([]*Request, bool, error) {
	// Check if it's an array (batch) or object (single)
	data = trimWhitespace(data)
	if len(data) == 0 {
		return nil, false, ErrInvalidRequest
	}

	if data[0] == '[' {
		// Batch request
		var requests []*Request
		if err := json.Unmarshal(data, &requests); err != nil {
			return nil, true, fmt.Errorf("failed to parse batch request: %w", err)
		}
		if len(requests) == 0 {
			return nil, true, ErrInvalidRequest
		}
		return requests, true, nil
	}

	// Single request
	req, err := ParseRequest(data)
	if err != nil {
		return nil, false, err
	}
	return []*Request{req}, false, nil
}

// NewRequest creates a new JSON-RPC request
func NewRequest(method string, params interface{}, id ID) (*Request, error) {
	req := &Request{
		JSONRPC: Version,
		Method:  method,
		ID:      id,
	}

	if params != nil {
		paramsBytes, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		req.Params = paramsBytes
	}

	return req, nil
}

// Bytes returns the request as JSON bytes
func (r *Request) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

// trimWhitespace removes leading whitespace from byte slice
func trimWhitespace(data []byte) []byte {
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return data[i:]
		}
	}
	return data
}
