package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/planner/internal/budget"
	"github.com/mmynk/planner/internal/models"
	"github.com/mmynk/planner/internal/store"
)

// StoreService implements planner.v1.StoreService over the domain store.
type StoreService struct {
	store  *store.Store
	conv   budget.Converter
	now    func() time.Time
	logger *slog.Logger
}

// StoreServiceOption configures a StoreService.
type StoreServiceOption func(*StoreService)

// WithClock sets the clock used for budget reports.
func WithClock(now func() time.Time) StoreServiceOption {
	return func(s *StoreService) { s.now = now }
}

// WithLogger sets the logger of a StoreService.
func WithLogger(logger *slog.Logger) StoreServiceOption {
	return func(s *StoreService) { s.logger = logger }
}

// NewStoreService creates a StoreService. conv converts transaction
// amounts into the budget currency and may be nil.
func NewStoreService(st *store.Store, conv budget.Converter, opts ...StoreServiceOption) *StoreService {
	s := &StoreService{store: st, conv: conv, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStoreServiceHandler returns the path prefix and handler of svc.
func NewStoreServiceHandler(svc *StoreService, opts ...connect.HandlerOption) (string, http.Handler) {
	return newHandler(StoreServiceName, map[string]unaryFunc{
		"Collections":  svc.Collections,
		"List":         svc.List,
		"Get":          svc.Get,
		"Add":          svc.Add,
		"Update":       svc.Update,
		"Delete":       svc.Delete,
		"Clear":        svc.Clear,
		"GetBudget":    svc.GetBudget,
		"UpdateBudget": svc.UpdateBudget,
		"BudgetStatus": svc.BudgetStatus,
	}, opts...)
}

func (s *StoreService) collection(req *structpb.Struct) (store.Entities, error) {
	name, err := requireString(req, "collection")
	if err != nil {
		return nil, err
	}
	ents, err := s.store.Collection(name)
	if err != nil {
		return nil, connect.NewError(codeOf(err), err)
	}
	return ents, nil
}

// Collections lists the collection names and their sizes.
func (s *StoreService) Collections(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sizes := make(map[string]int)
	for _, name := range s.store.CollectionNames() {
		ents, err := s.store.Collection(name)
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		sizes[name] = ents.Len()
	}
	return response(map[string]any{"collections": sizes})
}

// List returns every entity of a collection.
func (s *StoreService) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ents, err := s.collection(req)
	if err != nil {
		return nil, err
	}
	data, err := ents.ListJSON()
	if err != nil {
		s.logger.Error("List failed", "collection", ents.Key(), "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return rawResponse("items", data)
}

// Get returns a single entity.
func (s *StoreService) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ents, err := s.collection(req)
	if err != nil {
		return nil, err
	}
	id, err := requireString(req, "id")
	if err != nil {
		return nil, err
	}
	data, ok, err := ents.GetJSON(id)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("%s not found in %s", id, ents.Key()))
	}
	return rawResponse("entity", data)
}

// Add creates an entity. Any id or creation time in the request is replaced.
func (s *StoreService) Add(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ents, err := s.collection(req)
	if err != nil {
		return nil, err
	}
	payload, err := objectField(req, "entity")
	if err != nil {
		return nil, err
	}
	data, err := ents.AddJSON(ctx, payload)
	if err != nil {
		s.logger.Warn("Add rejected", "collection", ents.Key(), "error", err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	s.logger.Info("Entity added", "collection", ents.Key())
	return rawResponse("entity", data)
}

// Update merges a partial object into an entity.
func (s *StoreService) Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ents, err := s.collection(req)
	if err != nil {
		return nil, err
	}
	id, err := requireString(req, "id")
	if err != nil {
		return nil, err
	}
	patch, err := objectField(req, "patch")
	if err != nil {
		return nil, err
	}
	found, err := ents.Patch(ctx, id, patch)
	if !found {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("%s not found in %s", id, ents.Key()))
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	data, _, err := ents.GetJSON(id)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.logger.Info("Entity updated", "collection", ents.Key(), "id", id)
	return rawResponse("entity", data)
}

// Delete removes an entity. Missing ids are not an error.
func (s *StoreService) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ents, err := s.collection(req)
	if err != nil {
		return nil, err
	}
	id, err := requireString(req, "id")
	if err != nil {
		return nil, err
	}
	deleted := ents.Delete(ctx, id)
	s.logger.Info("Delete request handled", "collection", ents.Key(), "id", id, "deleted", deleted)
	return response(map[string]any{"deleted": deleted})
}

// Clear wipes every collection and resets the budget settings.
func (s *StoreService) Clear(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s.store.Clear(ctx)
	s.logger.Info("Store cleared")
	return &structpb.Struct{}, nil
}

// GetBudget returns the budget settings.
func (s *StoreService) GetBudget(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return response(map[string]any{"budget": s.store.Budget()})
}

// UpdateBudget merges a partial object into the budget settings.
func (s *StoreService) UpdateBudget(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	patch, err := objectField(req, "patch")
	if err != nil {
		return nil, err
	}
	// Decode against the current settings under the store lock so
	// concurrent patches to different fields both survive.
	var patchErr error
	updated := s.store.UpdateBudget(ctx, func(b *models.BudgetSettings) {
		next := *b
		if patchErr = json.Unmarshal(patch, &next); patchErr == nil {
			*b = next
		}
	})
	if patchErr != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("failed to apply budget patch: %w", patchErr))
	}
	s.logger.Info("Budget updated", "monthly_budget", updated.MonthlyBudget, "currency", updated.Currency)
	return response(map[string]any{"budget": updated})
}

// BudgetStatus reports this month's spending and the subscriptions due
// within withinDays (default 7).
func (s *StoreService) BudgetStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	within := 7 * 24 * time.Hour
	if days, ok := numberField(req, "withinDays"); ok {
		if days < 0 {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("withinDays must not be negative"))
		}
		within = time.Duration(days * float64(24*time.Hour))
	}
	now := s.now()
	report := budget.Status(s.store.Budget(), s.store.Transactions().List(), s.conv, now)
	upcoming := budget.Upcoming(s.store.Subscriptions().List(), now, within)
	if upcoming == nil {
		upcoming = []models.Subscription{}
	}
	return response(map[string]any{"report": report, "upcoming": upcoming})
}
