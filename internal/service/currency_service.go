package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/planner/internal/currency"
)

// CurrencyService implements planner.v1.CurrencyService.
type CurrencyService struct {
	currency *currency.Service
	logger   *slog.Logger
}

// NewCurrencyService creates a CurrencyService. A nil logger uses slog.Default().
func NewCurrencyService(c *currency.Service, logger *slog.Logger) *CurrencyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CurrencyService{currency: c, logger: logger}
}

// NewCurrencyServiceHandler returns the path prefix and handler of svc.
func NewCurrencyServiceHandler(svc *CurrencyService, opts ...connect.HandlerOption) (string, http.Handler) {
	return newHandler(CurrencyServiceName, map[string]unaryFunc{
		"GetConfig":       svc.GetConfig,
		"SetBaseCurrency": svc.SetBaseCurrency,
		"SetRate":         svc.SetRate,
		"Convert":         svc.Convert,
		"Format":          svc.Format,
		"ApplyRates":      svc.ApplyRates,
	}, opts...)
}

// GetConfig returns the base currency, the rate table and the known codes.
func (s *CurrencyService) GetConfig(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cfg := s.currency.Config()
	return response(map[string]any{
		"baseCurrency": cfg.BaseCurrency,
		"rates":        cfg.Rates,
		"currencies":   s.currency.Currencies(),
	})
}

// SetBaseCurrency switches the pivot currency.
func (s *CurrencyService) SetBaseCurrency(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	code, err := requireString(req, "code")
	if err != nil {
		return nil, err
	}
	if err := s.currency.SetBaseCurrency(ctx, code); err != nil {
		return nil, connect.NewError(codeOf(err), err)
	}
	s.logger.Info("Base currency changed", "currency", s.currency.BaseCurrency())
	return s.GetConfig(ctx, req)
}

// SetRate stores one rate to the base currency.
func (s *CurrencyService) SetRate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	code, err := requireString(req, "code")
	if err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	rate, err := requireNumber(req, "rate")
	if err != nil {
		return nil, err
	}
	if err := s.currency.SetRate(ctx, code, rate); err != nil {
		return nil, connect.NewError(codeOf(err), err)
	}
	s.logger.Info("Rate set", "currency", code, "rate", rate)
	return response(map[string]any{"rate": s.currency.Rate(code)})
}

// Convert converts an amount between two currencies.
func (s *CurrencyService) Convert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	amount, err := requireNumber(req, "amount")
	if err != nil {
		return nil, err
	}
	from, err := requireString(req, "from")
	if err != nil {
		return nil, err
	}
	to, err := requireString(req, "to")
	if err != nil {
		return nil, err
	}
	return response(map[string]any{"amount": s.currency.Convert(amount, from, to)})
}

// Format renders an amount for display.
func (s *CurrencyService) Format(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	amount, err := requireNumber(req, "amount")
	if err != nil {
		return nil, err
	}
	code, err := requireString(req, "code")
	if err != nil {
		return nil, err
	}
	return response(map[string]any{"text": s.currency.Format(amount, code)})
}

// ApplyRates merges suggested rates; the request is {"rates": {...}}.
func (s *CurrencyService) ApplyRates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	payload, err := protojson.Marshal(req)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	applied, err := s.currency.ApplyRates(ctx, payload)
	if err != nil {
		return nil, connect.NewError(codeOf(err), err)
	}
	return response(map[string]any{"applied": applied})
}
