package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"family-locator/internal/domain/zoneevents"
)

type storedEvent struct {
	zoneevents.GeofenceEvent
	seq uint64
}

type zoneEventRepo struct {
	mu     sync.RWMutex
	seq    uint64
	events []storedEvent
}

func NewZoneEventRepo() zoneevents.Repository {
	return &zoneEventRepo{}
}

func (r *zoneEventRepo) Append(ctx context.Context, e zoneevents.GeofenceEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		return errors.New("event id required")
	}
	r.seq++
	r.events = append(r.events, storedEvent{GeofenceEvent: e, seq: r.seq})
	return nil
}

func (r *zoneEventRepo) LatestByGeofence(ctx context.Context, childID string, geofenceIDs []string) (map[string]zoneevents.EventType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]struct{}, len(geofenceIDs))
	for _, id := range geofenceIDs {
		wanted[id] = struct{}{}
	}

	latest := make(map[string]storedEvent)
	for _, e := range r.events {
		if e.ChildID != childID {
			continue
		}
		if e.EventType != zoneevents.EventEnter && e.EventType != zoneevents.EventExit {
			continue
		}
		if _, ok := wanted[e.GeofenceID]; !ok {
			continue
		}
		cur, ok := latest[e.GeofenceID]
		if !ok || newer(e, cur) {
			latest[e.GeofenceID] = e
		}
	}

	out := make(map[string]zoneevents.EventType, len(latest))
	for id, e := range latest {
		out[id] = e.EventType
	}
	return out, nil
}

func (r *zoneEventRepo) ListByChild(ctx context.Context, childID string, limit int) ([]zoneevents.GeofenceEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = zoneevents.DefaultLimit
	}

	matched := make([]storedEvent, 0)
	for _, e := range r.events {
		if e.ChildID == childID {
			matched = append(matched, e)
		}
	}

	// Orden por created_at desc (más reciente primero)
	sort.Slice(matched, func(i, j int) bool { return newer(matched[i], matched[j]) })

	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]zoneevents.GeofenceEvent, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.GeofenceEvent)
	}
	return out, nil
}

func (r *zoneEventRepo) DeleteByGeofence(ctx context.Context, geofenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	for _, e := range r.events {
		if e.GeofenceID != geofenceID {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}

// newer: created_at desc y, a igual timestamp, orden de inserción desc.
func newer(a, b storedEvent) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.seq > b.seq
}
