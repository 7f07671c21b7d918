package gql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"unicode/utf8"
)

// Request is a single GraphQL operation in the protocol's JSON envelope
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// BatchRequest is either a single Request or a JSON array of them
type BatchRequest struct {
	Requests []Request
	Batch    bool
}

// UnmarshalJSON accepts both the single-object and the array form
func (b *BatchRequest) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalidBody)
	}

	if trimmed[0] == '[' {
		var reqs []Request
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		if len(reqs) == 0 {
			return fmt.Errorf("%w: empty batch", ErrInvalidBody)
		}
		b.Requests = reqs
		b.Batch = true
		return nil
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	b.Requests = []Request{req}
	b.Batch = false
	return nil
}

// MarshalJSON writes the same shape that was received
func (b BatchRequest) MarshalJSON() ([]byte, error) {
	if b.Batch {
		return json.Marshal(b.Requests)
	}
	if len(b.Requests) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(b.Requests[0])
}

// ParseQueryParams builds a Request from GET query parameters.
// query is required; operation_name and variables are optional.
func ParseQueryParams(values url.Values) (*Request, error) {
	query, ok := values["query"]
	if !ok || len(query) == 0 {
		return nil, ErrMissingQuery
	}

	req := &Request{
		Query:         query[0],
		OperationName: values.Get("operation_name"),
	}

	if raw := values.Get("variables"); raw != "" {
		var vars map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &vars); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVariables, err)
		}
		req.Variables = vars
	}

	return req, nil
}

// ParseRaw interprets a request body directly as a query string
func ParseRaw(body []byte) (*Request, error) {
	if !utf8.Valid(body) {
		return nil, fmt.Errorf("%w: request body query is not a valid UTF-8 string", ErrInvalidBody)
	}
	return &Request{Query: string(body)}, nil
}
