package geofences

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"family-locator/internal/domain/families"
	"family-locator/internal/platform/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Fakes
// -------------------------

type testRepo struct {
	byID      map[string]Geofence
	listCalls int
	deleteErr error

	// afterList corre una vez, después de leer y antes de devolver.
	afterList func()
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Geofence{}}
}

func (r *testRepo) Create(_ context.Context, g Geofence) error {
	if _, ok := r.byID[g.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[g.ID] = g
	return nil
}

func (r *testRepo) Update(_ context.Context, g Geofence) error {
	if _, ok := r.byID[g.ID]; !ok {
		return ErrNotFound
	}
	r.byID[g.ID] = g
	return nil
}

func (r *testRepo) Delete(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (Geofence, error) {
	g, ok := r.byID[id]
	if !ok {
		return Geofence{}, ErrNotFound
	}
	return g, nil
}

func (r *testRepo) ListByFamily(_ context.Context, familyID string, activeOnly bool) ([]Geofence, error) {
	r.listCalls++
	out := make([]Geofence, 0)
	for _, g := range r.byID {
		if g.FamilyID != familyID || (activeOnly && !g.IsActive) {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return out, nil
}

type testDir struct {
	users map[string]families.Identity
}

func (d testDir) Resolve(_ context.Context, userID string) (families.Identity, error) {
	id, ok := d.users[userID]
	if !ok {
		return families.Identity{}, families.ErrNotFound
	}
	return id, nil
}

func (d testDir) ChildOfFamily(_ context.Context, childID, familyID string) (bool, error) {
	id, ok := d.users[childID]
	return ok && id.Role == families.RoleChild && id.FamilyID == familyID, nil
}

type testPurger struct {
	purged []string
	err    error
}

func (p *testPurger) DeleteByGeofence(_ context.Context, geofenceID string) error {
	if p.err != nil {
		return p.err
	}
	p.purged = append(p.purged, geofenceID)
	return nil
}

type testObserver struct{ results []string }

func (o *testObserver) ObserveCacheLookup(result string) { o.results = append(o.results, result) }

func newTestDir() testDir {
	return testDir{users: map[string]families.Identity{
		"mom":      {ID: "mom", FamilyID: "fam-1", Role: families.RoleParent},
		"dad":      {ID: "dad", FamilyID: "fam-1", Role: families.RoleParent},
		"kid":      {ID: "kid", FamilyID: "fam-1", Role: families.RoleChild},
		"kid2":     {ID: "kid2", FamilyID: "fam-1", Role: families.RoleChild},
		"stranger": {ID: "stranger", FamilyID: "fam-2", Role: families.RoleParent},
		"other":    {ID: "other", FamilyID: "fam-2", Role: families.RoleChild},
		"loner":    {ID: "loner", Role: families.RoleParent},
	}}
}

func circleInput(name string) CreateInput {
	return CreateInput{Name: name, Latitude: 40.0, Longitude: -74.0, Radius: 100}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// -------------------------
// Tests
// -------------------------

func TestService_Create_Defaults(t *testing.T) {
	svc := NewService(newTestRepo(), newTestDir(), Options{})
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	g, err := svc.Create(context.Background(), "mom", circleInput("  Home "))
	require.NoError(t, err)

	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "fam-1", g.FamilyID)
	assert.Equal(t, "mom", g.UserID)
	assert.Equal(t, "Home", g.Name)
	assert.Equal(t, TypeCircle, g.Type)
	assert.Nil(t, g.ChildID)
	assert.True(t, g.IsActive)
	assert.True(t, g.NotifyEnter)
	assert.True(t, g.NotifyExit)
	assert.Equal(t, now, g.CreatedAt)
	assert.Equal(t, now, g.UpdatedAt)
}

func TestService_Create_Rejections(t *testing.T) {
	svc := NewService(newTestRepo(), newTestDir(), Options{})
	ctx := context.Background()

	cases := []struct {
		name   string
		caller string
		in     CreateInput
		want   error
	}{
		{"child caller", "kid", circleInput("x"), ErrForbidden},
		{"unknown caller", "ghost", circleInput("x"), ErrForbidden},
		{"no family", "loner", circleInput("x"), ErrForbidden},
		{"radius too small", "mom", CreateInput{Name: "x", Radius: 49.9}, ErrInvalidRadius},
		{"radius too big", "mom", CreateInput{Name: "x", Radius: 5000.1}, ErrInvalidRadius},
		{"polygon", "mom", CreateInput{Name: "x", Type: TypePolygon, Radius: 100}, ErrUnsupportedType},
		{"unknown type", "mom", CreateInput{Name: "x", Type: "hexagon", Radius: 100}, ErrInvalidInput},
		{"bad latitude", "mom", CreateInput{Name: "x", Latitude: 91, Radius: 100}, ErrInvalidInput},
		{"empty name", "mom", CreateInput{Name: "  ", Radius: 100}, ErrInvalidInput},
		{"child from other family", "mom", CreateInput{Name: "x", Radius: 100, ChildID: strPtr("other")}, ErrChildNotInFamily},
		{"parent as child", "mom", CreateInput{Name: "x", Radius: 100, ChildID: strPtr("dad")}, ErrChildNotInFamily},
		{"inverted window", "mom", CreateInput{Name: "x", Radius: 100, Schedule: &Schedule{Days: []int{1}, StartTime: "22:00", EndTime: "06:00"}}, ErrInvalidSchedule},
		{"bad weekday", "mom", CreateInput{Name: "x", Radius: 100, Schedule: &Schedule{Days: []int{7}, StartTime: "08:00", EndTime: "09:00"}}, ErrInvalidSchedule},
		{"no days", "mom", CreateInput{Name: "x", Radius: 100, Schedule: &Schedule{StartTime: "08:00", EndTime: "09:00"}}, ErrInvalidSchedule},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.caller, tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestService_Create_BoundaryRadiiAccepted(t *testing.T) {
	svc := NewService(newTestRepo(), newTestDir(), Options{})
	for _, r := range []float64{MinRadiusMeters, MaxRadiusMeters} {
		in := circleInput("edge")
		in.Radius = r
		_, err := svc.Create(context.Background(), "mom", in)
		require.NoError(t, err)
	}
}

func TestService_Create_NormalizesScheduleDays(t *testing.T) {
	svc := NewService(newTestRepo(), newTestDir(), Options{})
	in := circleInput("School")
	in.ChildID = strPtr("kid")
	in.Schedule = &Schedule{Days: []int{5, 1, 3, 1}, StartTime: "08:00", EndTime: "15:00"}

	g, err := svc.Create(context.Background(), "mom", in)
	require.NoError(t, err)
	require.NotNil(t, g.Schedule)
	assert.Equal(t, []int{1, 3, 5}, g.Schedule.Days)
	assert.Equal(t, []int{5, 1, 3, 1}, in.Schedule.Days, "input must not be mutated")
	require.NotNil(t, g.ChildID)
	assert.Equal(t, "kid", *g.ChildID)
}

func TestService_GetAndList_Scoping(t *testing.T) {
	svc := NewService(newTestRepo(), newTestDir(), Options{})
	ctx := context.Background()

	all, err := svc.Create(ctx, "mom", circleInput("Home"))
	require.NoError(t, err)
	onlyKid2 := circleInput("Piano")
	onlyKid2.ChildID = strPtr("kid2")
	piano, err := svc.Create(ctx, "mom", onlyKid2)
	require.NoError(t, err)

	items, err := svc.List(ctx, "dad")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = svc.List(ctx, "kid")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, all.ID, items[0].ID)

	_, err = svc.Get(ctx, "kid", piano.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, "stranger", all.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	items, err = svc.List(ctx, "loner")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestService_Update_OnlyCreator(t *testing.T) {
	svc := NewService(newTestRepo(), newTestDir(), Options{})
	ctx := context.Background()

	g, err := svc.Create(ctx, "mom", circleInput("Home"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, "dad", g.ID, UpdateInput{Name: strPtr("Casa")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, "stranger", g.ID, UpdateInput{Name: strPtr("Casa")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(ctx, "mom", "missing", UpdateInput{Name: strPtr("Casa")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Update_PartialAndClearing(t *testing.T) {
	svc := NewService(newTestRepo(), newTestDir(), Options{})
	ctx := context.Background()

	created := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return created }

	in := circleInput("School")
	in.ChildID = strPtr("kid")
	in.Schedule = &Schedule{Days: []int{1}, StartTime: "08:00", EndTime: "15:00"}
	g, err := svc.Create(ctx, "mom", in)
	require.NoError(t, err)

	later := created.Add(time.Hour)
	svc.now = func() time.Time { return later }

	updated, err := svc.Update(ctx, "mom", g.ID, UpdateInput{
		Radius:     func() *float64 { v := 250.0; return &v }(),
		NotifyExit: boolPtr(false),
		ChildID:    OptionalChild{Present: true},
		Schedule:   OptionalSchedule{Present: true},
	})
	require.NoError(t, err)

	assert.Equal(t, "School", updated.Name)
	assert.Equal(t, 250.0, updated.Radius)
	assert.False(t, updated.NotifyExit)
	assert.True(t, updated.NotifyEnter)
	assert.Nil(t, updated.ChildID)
	assert.Nil(t, updated.Schedule)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, later, updated.UpdatedAt)

	_, err = svc.Update(ctx, "mom", g.ID, UpdateInput{Radius: func() *float64 { v := 10.0; return &v }()})
	assert.ErrorIs(t, err, ErrInvalidRadius)
}

func TestService_Delete_PurgesEvents(t *testing.T) {
	purger := &testPurger{}
	repo := newTestRepo()
	svc := NewService(repo, newTestDir(), Options{Purger: purger})
	ctx := context.Background()

	g, err := svc.Create(ctx, "mom", circleInput("Home"))
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, "dad", g.ID), ErrForbidden)
	assert.Empty(t, purger.purged)

	require.NoError(t, svc.Delete(ctx, "mom", g.ID))
	assert.Equal(t, []string{g.ID}, purger.purged)
	assert.Empty(t, repo.byID)
}

func TestService_Delete_KeepsEventsWhenRowSurvives(t *testing.T) {
	purger := &testPurger{}
	repo := newTestRepo()
	svc := NewService(repo, newTestDir(), Options{Purger: purger})
	ctx := context.Background()

	g, err := svc.Create(ctx, "mom", circleInput("Home"))
	require.NoError(t, err)

	repo.deleteErr = errors.New("db down")
	require.Error(t, svc.Delete(ctx, "mom", g.ID))
	assert.Empty(t, purger.purged)
	assert.Contains(t, repo.byID, g.ID)
}

func TestService_Delete_PurgeFailureIsNotFatal(t *testing.T) {
	purger := &testPurger{err: errors.New("purge failed")}
	repo := newTestRepo()
	svc := NewService(repo, newTestDir(), Options{Purger: purger, Cache: cache.NewMemoryCache(0), CacheTTL: time.Minute})
	ctx := context.Background()

	g, err := svc.Create(ctx, "mom", circleInput("Home"))
	require.NoError(t, err)
	_, err = svc.ListActive(ctx, "fam-1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "mom", g.ID))
	assert.Empty(t, repo.byID)

	items, err := svc.ListActive(ctx, "fam-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestService_ListActive_CachedAndInvalidated(t *testing.T) {
	repo := newTestRepo()
	obs := &testObserver{}
	svc := NewService(repo, newTestDir(), Options{
		Cache:    cache.NewMemoryCache(0),
		CacheTTL: time.Minute,
		Observer: obs,
	})
	ctx := context.Background()

	g, err := svc.Create(ctx, "mom", circleInput("Home"))
	require.NoError(t, err)
	off := circleInput("Old")
	off.IsActive = boolPtr(false)
	_, err = svc.Create(ctx, "mom", off)
	require.NoError(t, err)

	items, err := svc.ListActive(ctx, "fam-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, g.ID, items[0].ID)

	_, err = svc.ListActive(ctx, "fam-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, []string{"miss", "hit"}, obs.results)

	_, err = svc.Update(ctx, "mom", g.ID, UpdateInput{IsActive: boolPtr(false)})
	require.NoError(t, err)

	items, err = svc.ListActive(ctx, "fam-1")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 2, repo.listCalls)
}

func TestService_ListActive_MutationDuringReadIsNotCached(t *testing.T) {
	cases := map[string]func(ctx context.Context, svc *Service, id string) error{
		"deactivate": func(ctx context.Context, svc *Service, id string) error {
			_, err := svc.Update(ctx, "mom", id, UpdateInput{IsActive: boolPtr(false)})
			return err
		},
		"delete": func(ctx context.Context, svc *Service, id string) error {
			return svc.Delete(ctx, "mom", id)
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			repo := newTestRepo()
			svc := NewService(repo, newTestDir(), Options{
				Cache:    cache.NewMemoryCache(0),
				CacheTTL: time.Minute,
				Purger:   &testPurger{},
			})
			ctx := context.Background()

			g, err := svc.Create(ctx, "mom", circleInput("Home"))
			require.NoError(t, err)

			// la mutación confirma entre la lectura del repo y la escritura en caché
			repo.afterList = func() { require.NoError(t, mutate(ctx, svc, g.ID)) }

			stale, err := svc.ListActive(ctx, "fam-1")
			require.NoError(t, err)
			require.Len(t, stale, 1)

			items, err := svc.ListActive(ctx, "fam-1")
			require.NoError(t, err)
			assert.Empty(t, items)
			assert.Equal(t, 2, repo.listCalls)
		})
	}
}

func TestService_ListActive_EmptyFamily(t *testing.T) {
	svc := NewService(newTestRepo(), newTestDir(), Options{})
	items, err := svc.ListActive(context.Background(), " ")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
