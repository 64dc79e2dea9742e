package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"family-locator/internal/domain/geofences"
)

type geofenceRepo struct {
	mu   sync.RWMutex
	byID map[string]geofences.Geofence
}

func NewGeofenceRepo() geofences.Repository {
	return &geofenceRepo{
		byID: make(map[string]geofences.Geofence),
	}
}

func (r *geofenceRepo) Create(ctx context.Context, g geofences.Geofence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(g.ID) == "" {
		return errors.New("geofence id required")
	}
	if _, exists := r.byID[g.ID]; exists {
		return errors.New("geofence already exists")
	}
	r.byID[g.ID] = cloneGeofence(g)
	return nil
}

func (r *geofenceRepo) Update(ctx context.Context, g geofences.Geofence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[g.ID]; !ok {
		return geofences.ErrNotFound
	}
	r.byID[g.ID] = cloneGeofence(g)
	return nil
}

func (r *geofenceRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return geofences.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *geofenceRepo) GetByID(ctx context.Context, id string) (geofences.Geofence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byID[id]
	if !ok {
		return geofences.Geofence{}, geofences.ErrNotFound
	}
	return cloneGeofence(g), nil
}

func (r *geofenceRepo) ListByFamily(ctx context.Context, familyID string, activeOnly bool) ([]geofences.Geofence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]geofences.Geofence, 0)
	for _, g := range r.byID {
		if g.FamilyID != familyID {
			continue
		}
		if activeOnly && !g.IsActive {
			continue
		}
		out = append(out, cloneGeofence(g))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// cloneGeofence evita compartir punteros (ChildID, Schedule) con el llamador.
func cloneGeofence(g geofences.Geofence) geofences.Geofence {
	if g.ChildID != nil {
		c := *g.ChildID
		g.ChildID = &c
	}
	if g.Schedule != nil {
		s := *g.Schedule
		s.Days = append([]int(nil), g.Schedule.Days...)
		g.Schedule = &s
	}
	return g
}
