package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/platinummonkey/plughost/pkg/dataset"
	"github.com/platinummonkey/plughost/pkg/gql"
	"github.com/platinummonkey/plughost/pkg/observability"
	"github.com/platinummonkey/plughost/pkg/plugins"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrCapability marks a failure inside a capability. It is answered with an
// empty 500.
var ErrCapability = errors.New("capability failed")

// unresolvedID labels dispatches whose id never resolved to a capability,
// keeping the metric bounded by what is actually loaded.
const unresolvedID = "unknown"

// call invokes one entry point of a capability
type call func(ctx context.Context, c plugins.Capability, dc *dataset.Context) (*gql.Result, error)

// Dispatcher routes GraphQL requests to capabilities. Every request shape
// is validated before the registry is touched, so a malformed request never
// triggers a load.
type Dispatcher struct {
	registry Registry
	metrics  *observability.Metrics
}

// NewDispatcher creates a dispatcher over registry
func NewDispatcher(registry Registry, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{registry: registry, metrics: metrics}
}

// DispatchQuery serves the query-parameter shape
func (d *Dispatcher) DispatchQuery(ctx context.Context, id string, flag bool, values url.Values) (*gql.Result, error) {
	req, err := gql.ParseQueryParams(values)
	if err != nil {
		d.metrics.RecordDispatch(unresolvedID, "rejected")
		return nil, err
	}
	return d.dispatch(ctx, id, flag, func(ctx context.Context, c plugins.Capability, dc *dataset.Context) (*gql.Result, error) {
		return c.HandleQuery(ctx, dc, req)
	})
}

// DispatchStructured serves a JSON body holding one request or a batch
func (d *Dispatcher) DispatchStructured(ctx context.Context, id string, flag bool, body []byte) (*gql.Result, error) {
	var req gql.BatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		d.metrics.RecordDispatch(unresolvedID, "rejected")
		if errors.Is(err, gql.ErrInvalidBody) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", gql.ErrInvalidBody, err)
	}
	return d.dispatch(ctx, id, flag, func(ctx context.Context, c plugins.Capability, dc *dataset.Context) (*gql.Result, error) {
		return c.HandleBatch(ctx, dc, &req)
	})
}

// DispatchRaw serves a body that is the query text
func (d *Dispatcher) DispatchRaw(ctx context.Context, id string, flag bool, body []byte) (*gql.Result, error) {
	if _, err := gql.ParseRaw(body); err != nil {
		d.metrics.RecordDispatch(unresolvedID, "rejected")
		return nil, err
	}
	return d.dispatch(ctx, id, flag, func(ctx context.Context, c plugins.Capability, dc *dataset.Context) (*gql.Result, error) {
		return c.HandleRaw(ctx, dc, body)
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, id string, flag bool, fn call) (*gql.Result, error) {
	ctx, span := otel.Tracer("plughost/api").Start(ctx, "api.Dispatch")
	span.SetAttributes(attribute.String("plugin.id", id), attribute.Bool("request.flag", flag))
	defer span.End()

	capability, err := d.registry.Acquire(ctx, id)
	if err != nil {
		d.metrics.RecordDispatch(unresolvedID, "rejected")
		span.RecordError(err)
		return nil, err
	}

	// No registry lock is held while the capability runs.
	result, err := fn(ctx, capability, dataset.New(flag))
	if err == nil && result == nil {
		err = errors.New("capability returned no result")
	}
	if err != nil {
		d.metrics.RecordDispatch(id, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %s: %v", ErrCapability, id, err)
	}

	outcome := "ok"
	if !result.OK {
		outcome = "query_error"
	}
	d.metrics.RecordDispatch(id, outcome)
	return result, nil
}
