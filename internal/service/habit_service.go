package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/planner/internal/habit"
	"github.com/mmynk/planner/internal/models"
)

// HabitService implements planner.v1.HabitService.
type HabitService struct {
	tracker *habit.Tracker
	logger  *slog.Logger
}

// NewHabitService creates a HabitService. A nil logger uses slog.Default().
func NewHabitService(t *habit.Tracker, logger *slog.Logger) *HabitService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HabitService{tracker: t, logger: logger}
}

// NewHabitServiceHandler returns the path prefix and handler of svc.
func NewHabitServiceHandler(svc *HabitService, opts ...connect.HandlerOption) (string, http.Handler) {
	return newHandler(HabitServiceName, map[string]unaryFunc{
		"Overview":      svc.Overview,
		"Add":           svc.Add,
		"Rename":        svc.Rename,
		"ToggleCheckin": svc.ToggleCheckin,
		"SetMastery":    svc.SetMastery,
		"Remove":        svc.Remove,
	}, opts...)
}

// Overview scores every habit as of today.
func (s *HabitService) Overview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	o := s.tracker.Overview()
	if o.Computed == nil {
		o.Computed = []habit.Scored{}
	}
	return response(map[string]any{
		"habits":          o.Computed,
		"overallStrength": o.OverallStrength,
		"masteredCount":   o.MasteredCount,
	})
}

// Add creates a habit.
func (s *HabitService) Add(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	payload, err := objectField(req, "habit")
	if err != nil {
		return nil, err
	}
	var h models.Habit
	if err := json.Unmarshal(payload, &h); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("failed to decode habit: %w", err))
	}
	if h.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("habit name is required"))
	}
	created := s.tracker.Add(ctx, h)
	s.logger.Info("Habit added", "habit_id", created.ID, "name", created.Name)
	return response(map[string]any{"habit": created})
}

// Rename changes a habit's name.
func (s *HabitService) Rename(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireString(req, "id")
	if err != nil {
		return nil, err
	}
	name, err := requireString(req, "name")
	if err != nil {
		return nil, err
	}
	if !s.tracker.Rename(ctx, id, name) {
		return nil, notFound(id)
	}
	return s.habitResponse(id)
}

// ToggleCheckin flips today's check-in, or the one of "date" when given.
func (s *HabitService) ToggleCheckin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireString(req, "id")
	if err != nil {
		return nil, err
	}
	var found bool
	if date := stringField(req, "date"); date != "" {
		found, err = s.tracker.ToggleCheckinOn(ctx, id, date)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
	} else {
		found = s.tracker.ToggleCheckin(ctx, id)
	}
	if !found {
		return nil, notFound(id)
	}
	return s.habitResponse(id)
}

// SetMastery stores a self-reported mastery in [0, 100].
func (s *HabitService) SetMastery(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireString(req, "id")
	if err != nil {
		return nil, err
	}
	mastery, err := requireNumber(req, "mastery")
	if err != nil {
		return nil, err
	}
	// Converting an out-of-range float to int is implementation-defined.
	mastery = math.Max(0, math.Min(100, mastery))
	if !s.tracker.SetMastery(ctx, id, int(mastery)) {
		return nil, notFound(id)
	}
	return s.habitResponse(id)
}

// Remove deletes a habit.
func (s *HabitService) Remove(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireString(req, "id")
	if err != nil {
		return nil, err
	}
	removed := s.tracker.Remove(ctx, id)
	s.logger.Info("Remove habit request handled", "habit_id", id, "removed", removed)
	return response(map[string]any{"removed": removed})
}

func (s *HabitService) habitResponse(id string) (*structpb.Struct, error) {
	h, ok := s.tracker.Get(id)
	if !ok {
		return nil, notFound(id)
	}
	return response(map[string]any{"habit": h})
}

func notFound(id string) error {
	return connect.NewError(connect.CodeNotFound, fmt.Errorf("habit %s not found", id))
}
