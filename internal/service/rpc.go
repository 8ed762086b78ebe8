// Package service exposes the planner over Connect RPC.
//
// Messages are google.protobuf.Struct values, so every procedure accepts
// and returns a JSON object. Procedures are mounted at
// /<service>/<method>, e.g. /planner.v1.StoreService/List.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/planner/internal/currency"
	"github.com/mmynk/planner/internal/store"
)

// Service names.
const (
	StoreServiceName    = "planner.v1.StoreService"
	CurrencyServiceName = "planner.v1.CurrencyService"
	HabitServiceName    = "planner.v1.HabitService"
)

type unaryFunc func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// newHandler mounts methods under /<service>/ and returns the path prefix
// and handler, the same shape as generated Connect constructors.
func newHandler(service string, methods map[string]unaryFunc, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	for method, fn := range methods {
		fn := fn
		procedure := Procedure(service, method)
		mux.Handle(procedure, connect.NewUnaryHandler(procedure,
			func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
				res, err := fn(ctx, req.Msg)
				if err != nil {
					return nil, err
				}
				return connect.NewResponse(res), nil
			},
			opts...,
		))
	}
	return "/" + service + "/", mux
}

// Procedure returns the full procedure path of a method.
func Procedure(service, method string) string {
	return "/" + service + "/" + method
}

// NewClient returns a Connect client for one procedure.
func NewClient(httpClient connect.HTTPClient, baseURL, service, method string, opts ...connect.ClientOption) *connect.Client[structpb.Struct, structpb.Struct] {
	return connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+Procedure(service, method), opts...)
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func numberField(req *structpb.Struct, name string) (float64, bool) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, false
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	return n.NumberValue, true
}

func requireString(req *structpb.Struct, name string) (string, error) {
	s := stringField(req, name)
	if s == "" {
		return "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s is required", name))
	}
	return s, nil
}

func requireNumber(req *structpb.Struct, name string) (float64, error) {
	n, ok := numberField(req, name)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s must be a finite number", name))
	}
	return n, nil
}

// objectField returns a nested object field encoded as JSON.
func objectField(req *structpb.Struct, name string) ([]byte, error) {
	obj := req.GetFields()[name].GetStructValue()
	if obj == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s must be an object", name))
	}
	data, err := protojson.Marshal(obj)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("failed to encode %s: %w", name, err))
	}
	return data, nil
}

// jsonValue converts encoded JSON into a Struct value.
func jsonValue(data []byte) (*structpb.Value, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return structpb.NewValue(v)
}

// toValue converts any JSON-encodable value into a Struct value.
func toValue(v any) (*structpb.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return jsonValue(data)
}

// response builds a reply from JSON-encodable fields.
func response(fields map[string]any) (*structpb.Struct, error) {
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(fields))}
	for name, v := range fields {
		val, err := toValue(v)
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		out.Fields[name] = val
	}
	return out, nil
}

// rawResponse builds a reply with a single field holding encoded JSON.
func rawResponse(name string, data []byte) (*structpb.Struct, error) {
	val, err := jsonValue(data)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{name: val}}, nil
}

// codeOf maps domain errors to Connect codes.
func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, store.ErrUnknownCollection),
		errors.Is(err, currency.ErrInvalidRate),
		errors.Is(err, currency.ErrUnknownCurrency),
		errors.Is(err, currency.ErrInvalidPayload):
		return connect.CodeInvalidArgument
	default:
		return connect.CodeInternal
	}
}
