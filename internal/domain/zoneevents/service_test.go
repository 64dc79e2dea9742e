package zoneevents

import (
	"context"
	"testing"
	"time"

	"family-locator/internal/domain/families"
	"family-locator/internal/domain/geofences"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	events []GeofenceEvent
	limit  int
}

func (r *testRepo) Append(_ context.Context, e GeofenceEvent) error {
	r.events = append(r.events, e)
	return nil
}

// Los eventos de prueba se insertan en orden cronológico; el último gana.
func (r *testRepo) LatestByGeofence(_ context.Context, childID string, ids []string) (map[string]EventType, error) {
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	out := map[string]EventType{}
	for _, e := range r.events {
		if e.ChildID == childID && wanted[e.GeofenceID] && (e.EventType == EventEnter || e.EventType == EventExit) {
			out[e.GeofenceID] = e.EventType
		}
	}
	return out, nil
}

func (r *testRepo) ListByChild(_ context.Context, childID string, limit int) ([]GeofenceEvent, error) {
	r.limit = limit
	out := []GeofenceEvent{}
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].ChildID == childID {
			out = append(out, r.events[i])
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *testRepo) DeleteByGeofence(_ context.Context, geofenceID string) error {
	kept := []GeofenceEvent{}
	for _, e := range r.events {
		if e.GeofenceID != geofenceID {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}

type testDir map[string]families.Identity

func (d testDir) Resolve(_ context.Context, userID string) (families.Identity, error) {
	id, ok := d[userID]
	if !ok {
		return families.Identity{}, families.ErrNotFound
	}
	return id, nil
}

func (d testDir) ChildOfFamily(_ context.Context, childID, familyID string) (bool, error) {
	id, ok := d[childID]
	return ok && id.Role == families.RoleChild && id.FamilyID == familyID, nil
}

type testGeofences []geofences.Geofence

func (g testGeofences) ListByFamily(_ context.Context, familyID string, _ bool) ([]geofences.Geofence, error) {
	out := []geofences.Geofence{}
	for _, x := range g {
		if x.FamilyID == familyID {
			out = append(out, x)
		}
	}
	return out, nil
}

func newTestService(repo *testRepo) *Service {
	dir := testDir{
		"mom":      {ID: "mom", FamilyID: "fam", Role: families.RoleParent},
		"kid":      {ID: "kid", FamilyID: "fam", Role: families.RoleChild},
		"sis":      {ID: "sis", FamilyID: "fam", Role: families.RoleChild},
		"stranger": {ID: "stranger", FamilyID: "fam-2", Role: families.RoleParent},
		"loner":    {ID: "loner"},
	}
	gs := testGeofences{
		{ID: "home", FamilyID: "fam", Name: "Home"},
		{ID: "school", FamilyID: "fam", Name: "School"},
	}
	return NewService(repo, dir, gs)
}

func TestService_Append_StampsServerTime(t *testing.T) {
	repo := &testRepo{}
	svc := newTestService(repo)
	now := time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	e, err := svc.Append(context.Background(), AppendInput{
		GeofenceID: "home", ChildID: "kid", EventType: EventEnter, Latitude: 40, Longitude: -74,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, now, e.CreatedAt)
	require.Len(t, repo.events, 1)

	_, err = svc.Append(context.Background(), AppendInput{GeofenceID: "home", ChildID: "kid", EventType: "teleport"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Append(context.Background(), AppendInput{ChildID: "kid", EventType: EventExit})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_Membership(t *testing.T) {
	repo := &testRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	for _, in := range []AppendInput{
		{GeofenceID: "home", ChildID: "kid", EventType: EventEnter},
		{GeofenceID: "school", ChildID: "kid", EventType: EventEnter},
		{GeofenceID: "school", ChildID: "kid", EventType: EventExit},
		{GeofenceID: "school", ChildID: "kid", EventType: EventDwell},
		{GeofenceID: "park", ChildID: "sis", EventType: EventEnter},
	} {
		_, err := svc.Append(ctx, in)
		require.NoError(t, err)
	}

	states, err := svc.Membership(ctx, "kid", []string{"home", "school", "park"})
	require.NoError(t, err)
	assert.Equal(t, map[string]State{
		"home":   StateInside,
		"school": StateOutside,
		"park":   StateUnknown,
	}, states)

	states, err = svc.Membership(ctx, "kid", nil)
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestService_History_AccessAndFiltering(t *testing.T) {
	repo := &testRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	for _, in := range []AppendInput{
		{GeofenceID: "home", ChildID: "kid", EventType: EventEnter},
		{GeofenceID: "deleted", ChildID: "kid", EventType: EventEnter},
		{GeofenceID: "school", ChildID: "kid", EventType: EventExit},
	} {
		_, err := svc.Append(ctx, in)
		require.NoError(t, err)
	}

	items, err := svc.History(ctx, "mom", "kid", 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "School", items[0].GeofenceName)
	assert.Equal(t, "Home", items[1].GeofenceName)
	assert.Equal(t, DefaultLimit, repo.limit)

	_, err = svc.History(ctx, "kid", "kid", 500)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, repo.limit)

	for _, caller := range []string{"sis", "stranger", "loner", "ghost"} {
		_, err := svc.History(ctx, caller, "kid", 10)
		assert.ErrorIs(t, err, ErrForbidden, caller)
	}

	_, err = svc.History(ctx, "mom", "mom", 10)
	require.NoError(t, err, "a parent may read its own (empty) history")
}
