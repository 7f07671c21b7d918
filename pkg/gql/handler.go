package gql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/platinummonkey/plughost/pkg/dataset"
)

// Result is a serialized GraphQL response plus whether execution succeeded
type Result struct {
	Body []byte
	OK   bool
}

// Handler executes GraphQL requests against a fixed schema. Generated
// plugins return one from their entry point.
type Handler struct {
	id     string
	schema graphql.Schema
}

// NewHandler creates a handler serving schema under the given identifier
func NewHandler(id string, schema graphql.Schema) *Handler {
	return &Handler{
		id:     id,
		schema: schema,
	}
}

// ID returns the plugin identifier this handler answers for
func (h *Handler) ID() string {
	return h.id
}

// HandleQuery executes a request built from query parameters
func (h *Handler) HandleQuery(ctx context.Context, dc *dataset.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, ErrMissingQuery
	}
	resp := h.execute(ctx, dc, *req)
	return encode(resp, !resp.HasErrors())
}

// HandleBatch executes a structured (possibly batched) request
func (h *Handler) HandleBatch(ctx context.Context, dc *dataset.Context, req *BatchRequest) (*Result, error) {
	if req == nil || len(req.Requests) == 0 {
		return nil, fmt.Errorf("%w: no operations", ErrInvalidBody)
	}

	if !req.Batch {
		resp := h.execute(ctx, dc, req.Requests[0])
		return encode(resp, !resp.HasErrors())
	}

	ok := true
	responses := make([]*graphql.Result, 0, len(req.Requests))
	for _, r := range req.Requests {
		resp := h.execute(ctx, dc, r)
		if resp.HasErrors() {
			ok = false
		}
		responses = append(responses, resp)
	}
	return encode(responses, ok)
}

// HandleRaw executes a body that is the query text itself
func (h *Handler) HandleRaw(ctx context.Context, dc *dataset.Context, body []byte) (*Result, error) {
	req, err := ParseRaw(body)
	if err != nil {
		return nil, err
	}
	resp := h.execute(ctx, dc, *req)
	return encode(resp, !resp.HasErrors())
}

func (h *Handler) execute(ctx context.Context, dc *dataset.Context, req Request) *graphql.Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if dc == nil {
		dc = dataset.New(false)
	}

	return graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        dataset.WithContext(ctx, dc),
	})
}

func encode(v interface{}, ok bool) (*Result, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return &Result{Body: body, OK: ok}, nil
}
