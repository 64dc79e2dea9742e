package memory

import (
	"context"
	"testing"
	"time"

	"family-locator/internal/domain/families"
	"family-locator/internal/domain/geofences"
	"family-locator/internal/domain/zoneevents"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyRepo_MembersAndNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewFamilyRepo()

	_, err := repo.GetUser(ctx, "nobody")
	require.ErrorIs(t, err, families.ErrNotFound)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateFamily(ctx, families.Family{ID: "fam", Name: "Smith", CreatedBy: "mom", CreatedAt: base}))

	fam := "fam"
	require.NoError(t, repo.UpsertUser(ctx, families.User{ID: "kid", FamilyID: &fam, Role: families.RoleChild, CreatedAt: base}))
	require.NoError(t, repo.UpsertUser(ctx, families.User{ID: "mom", FamilyID: &fam, Role: families.RoleParent, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, repo.UpsertUser(ctx, families.User{ID: "loner", CreatedAt: base}))

	missing := "nope"
	require.Error(t, repo.UpsertUser(ctx, families.User{ID: "x", FamilyID: &missing}))

	members, err := repo.ListMembers(ctx, "fam")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "mom", members[0].ID)
	assert.Equal(t, "kid", members[1].ID)
}

func TestGeofenceRepo_ListByFamily_SortedAndFiltered(t *testing.T) {
	ctx := context.Background()
	repo := NewGeofenceRepo()

	for _, g := range []geofences.Geofence{
		{ID: "c", FamilyID: "fam", IsActive: true},
		{ID: "a", FamilyID: "fam", IsActive: true},
		{ID: "b", FamilyID: "fam", IsActive: false},
		{ID: "z", FamilyID: "other", IsActive: true},
	} {
		require.NoError(t, repo.Create(ctx, g))
	}

	all, err := repo.ListByFamily(ctx, "fam", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))

	active, err := repo.ListByFamily(ctx, "fam", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(active))

	require.ErrorIs(t, repo.Delete(ctx, "missing"), geofences.ErrNotFound)
	require.ErrorIs(t, repo.Update(ctx, geofences.Geofence{ID: "missing"}), geofences.ErrNotFound)
}

func TestGeofenceRepo_DoesNotShareSchedule(t *testing.T) {
	ctx := context.Background()
	repo := NewGeofenceRepo()

	sched := &geofences.Schedule{Days: []int{1, 2}, StartTime: "08:00", EndTime: "09:00"}
	require.NoError(t, repo.Create(ctx, geofences.Geofence{ID: "g", FamilyID: "fam", Schedule: sched}))
	sched.Days[0] = 6

	got, err := repo.GetByID(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got.Schedule.Days)
}

func TestZoneEventRepo_LatestIgnoresDwellAndBreaksTies(t *testing.T) {
	ctx := context.Background()
	repo := NewZoneEventRepo()
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	appendEvent := func(id, geofence, child string, typ zoneevents.EventType, ts time.Time) {
		t.Helper()
		require.NoError(t, repo.Append(ctx, zoneevents.GeofenceEvent{
			ID: id, GeofenceID: geofence, ChildID: child, EventType: typ, CreatedAt: ts,
		}))
	}

	appendEvent("1", "g1", "kid", zoneevents.EventEnter, at)
	appendEvent("2", "g1", "kid", zoneevents.EventExit, at) // mismo instante, insertado después
	appendEvent("3", "g1", "kid", zoneevents.EventDwell, at.Add(time.Minute))
	appendEvent("4", "g2", "kid", zoneevents.EventEnter, at)
	appendEvent("5", "g2", "other", zoneevents.EventExit, at.Add(time.Hour))
	appendEvent("6", "g3", "kid", zoneevents.EventEnter, at)

	latest, err := repo.LatestByGeofence(ctx, "kid", []string{"g1", "g2", "g9"})
	require.NoError(t, err)
	assert.Equal(t, map[string]zoneevents.EventType{
		"g1": zoneevents.EventExit,
		"g2": zoneevents.EventEnter,
	}, latest)

	history, err := repo.ListByChild(ctx, "kid", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "3", history[0].ID)
	assert.Equal(t, "6", history[1].ID)
	assert.Equal(t, "4", history[2].ID)

	require.NoError(t, repo.DeleteByGeofence(ctx, "g1"))
	latest, err = repo.LatestByGeofence(ctx, "kid", []string{"g1"})
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func ids(gs []geofences.Geofence) []string {
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.ID)
	}
	return out
}
