package zoneevents

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"family-locator/internal/domain/families"
	"family-locator/internal/domain/geofences"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

// Directory resuelve al usuario que consulta el historial.
type Directory interface {
	Resolve(ctx context.Context, userID string) (families.Identity, error)
	ChildOfFamily(ctx context.Context, childID, familyID string) (bool, error)
}

// GeofenceLister permite descartar eventos cuya geocerca ya no existe.
type GeofenceLister interface {
	ListByFamily(ctx context.Context, familyID string, activeOnly bool) ([]geofences.Geofence, error)
}

type Service struct {
	repo      Repository
	dir       Directory
	geofences GeofenceLister
	now       func() time.Time
}

func NewService(repo Repository, dir Directory, gl GeofenceLister) *Service {
	return &Service{
		repo:      repo,
		dir:       dir,
		geofences: gl,
		now:       time.Now,
	}
}

type AppendInput struct {
	GeofenceID string
	ChildID    string
	EventType  EventType
	Latitude   float64
	Longitude  float64
}

// Append persiste un evento nuevo con la hora actual del servidor.
func (s *Service) Append(ctx context.Context, in AppendInput) (GeofenceEvent, error) {
	geofenceID := strings.TrimSpace(in.GeofenceID)
	childID := strings.TrimSpace(in.ChildID)
	if geofenceID == "" || childID == "" {
		return GeofenceEvent{}, fmt.Errorf("%w: geofence and child required", ErrInvalidInput)
	}
	if !in.EventType.Valid() {
		return GeofenceEvent{}, fmt.Errorf("%w: event type %q", ErrInvalidInput, in.EventType)
	}
	if math.IsNaN(in.Latitude) || math.IsNaN(in.Longitude) {
		return GeofenceEvent{}, fmt.Errorf("%w: coordinates", ErrInvalidInput)
	}

	e := GeofenceEvent{
		ID:         uuid.NewString(),
		GeofenceID: geofenceID,
		ChildID:    childID,
		EventType:  in.EventType,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return GeofenceEvent{}, err
	}
	return e, nil
}

// Membership reconstruye el estado por geocerca a partir del último enter/exit.
// Toda geocerca pedida aparece en el resultado (StateUnknown si no hay historial).
func (s *Service) Membership(ctx context.Context, childID string, geofenceIDs []string) (map[string]State, error) {
	out := make(map[string]State, len(geofenceIDs))
	if len(geofenceIDs) == 0 {
		return out, nil
	}
	latest, err := s.repo.LatestByGeofence(ctx, childID, geofenceIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range geofenceIDs {
		out[id] = StateOf(latest[id])
	}
	return out, nil
}

func (s *Service) DeleteByGeofence(ctx context.Context, geofenceID string) error {
	geofenceID = strings.TrimSpace(geofenceID)
	if geofenceID == "" {
		return ErrInvalidInput
	}
	return s.repo.DeleteByGeofence(ctx, geofenceID)
}

// HistoryEntry es un evento con el nombre actual de su geocerca.
type HistoryEntry struct {
	GeofenceEvent
	GeofenceName string
}

// History lista los eventos de un hijo. Pueden consultarlo el propio hijo
// o un parent de su familia.
func (s *Service) History(ctx context.Context, callerID, childID string, limit int) ([]HistoryEntry, error) {
	childID = strings.TrimSpace(childID)
	if childID == "" {
		return nil, ErrInvalidInput
	}

	caller, err := s.dir.Resolve(ctx, callerID)
	if err != nil {
		if errors.Is(err, families.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if !caller.HasFamily() {
		return nil, ErrForbidden
	}
	if caller.ID != childID {
		if !caller.IsParent() {
			return nil, ErrForbidden
		}
		ok, err := s.dir.ChildOfFamily(ctx, childID, caller.FamilyID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrForbidden
		}
	}

	items, err := s.repo.ListByChild(ctx, childID, clampLimit(limit))
	if err != nil {
		return nil, err
	}

	gs, err := s.geofences.ListByFamily(ctx, caller.FamilyID, false)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(gs))
	for _, g := range gs {
		names[g.ID] = g.Name
	}

	out := make([]HistoryEntry, 0, len(items))
	for _, e := range items {
		name, ok := names[e.GeofenceID]
		if !ok {
			// geocerca borrada o ajena: se omite
			continue
		}
		out = append(out, HistoryEntry{GeofenceEvent: e, GeofenceName: name})
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
