package geofences

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"family-locator/internal/domain/families"
	"family-locator/internal/platform/cache"
	"family-locator/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidSchedule  = errors.New("invalid schedule")
	ErrInvalidRadius    = fmt.Errorf("radius must be between %d and %d meters", MinRadiusMeters, MaxRadiusMeters)
	ErrUnsupportedType  = errors.New("unsupported geofence type")
	ErrChildNotInFamily = errors.New("child does not belong to the family")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
)

// Directory resuelve identidades contra el directorio de usuarios/familias.
type Directory interface {
	Resolve(ctx context.Context, userID string) (families.Identity, error)
	ChildOfFamily(ctx context.Context, childID, familyID string) (bool, error)
}

// EventPurger borra el historial de eventos de una geocerca (cascada al borrarla).
type EventPurger interface {
	DeleteByGeofence(ctx context.Context, geofenceID string) error
}

// CacheObserver registra hits/misses de la caché de geocercas activas.
type CacheObserver interface {
	ObserveCacheLookup(result string)
}

type Options struct {
	Cache    cache.Cacher
	CacheTTL time.Duration
	Purger   EventPurger
	Logger   logger.Logger
	Observer CacheObserver
}

type Service struct {
	repo   Repository
	dir    Directory
	cache  cache.Cacher
	ttl    time.Duration
	purger EventPurger
	log    logger.Logger
	obs    CacheObserver
	now    func() time.Time
}

func NewService(repo Repository, dir Directory, opts Options) *Service {
	lg := opts.Logger
	if lg == nil {
		lg = logger.Nop()
	}
	return &Service{
		repo:   repo,
		dir:    dir,
		cache:  opts.Cache,
		ttl:    opts.CacheTTL,
		purger: opts.Purger,
		log:    lg,
		obs:    opts.Observer,
		now:    time.Now,
	}
}

type CreateInput struct {
	Name        string
	Type        Type
	ChildID     *string
	Latitude    float64
	Longitude   float64
	Radius      float64
	IsActive    *bool // nil = true
	Schedule    *Schedule
	NotifyEnter *bool // nil = true
	NotifyExit  *bool // nil = true
}

func (s *Service) Create(ctx context.Context, callerID string, in CreateInput) (Geofence, error) {
	caller, err := s.parentOf(ctx, callerID)
	if err != nil {
		return Geofence{}, err
	}

	typ := in.Type
	if typ == "" {
		typ = TypeCircle
	}

	now := s.now()
	g := Geofence{
		ID:          uuid.NewString(),
		FamilyID:    caller.FamilyID,
		UserID:      caller.ID,
		ChildID:     trimmedOrNil(in.ChildID),
		Name:        strings.TrimSpace(in.Name),
		Type:        typ,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Radius:      in.Radius,
		IsActive:    boolOr(in.IsActive, true),
		Schedule:    cloneSchedule(in.Schedule),
		NotifyEnter: boolOr(in.NotifyEnter, true),
		NotifyExit:  boolOr(in.NotifyExit, true),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.validate(ctx, &g); err != nil {
		return Geofence{}, err
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return Geofence{}, err
	}
	s.invalidate(ctx, g.FamilyID)
	return g, nil
}

// Get devuelve la geocerca si pertenece a la familia del caller.
// Fuera de la familia se responde ErrNotFound para no filtrar existencia.
func (s *Service) Get(ctx context.Context, callerID, id string) (Geofence, error) {
	caller, err := s.dir.Resolve(ctx, callerID)
	if err != nil {
		return Geofence{}, err
	}
	g, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Geofence{}, err
	}
	if !caller.HasFamily() || g.FamilyID != caller.FamilyID {
		return Geofence{}, ErrNotFound
	}
	if !caller.IsParent() && !g.AppliesTo(caller.ID) {
		return Geofence{}, ErrNotFound
	}
	return g, nil
}

// List: los parents ven todas las geocercas de la familia; un hijo solo las que le aplican.
func (s *Service) List(ctx context.Context, callerID string) ([]Geofence, error) {
	caller, err := s.dir.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.HasFamily() {
		return []Geofence{}, nil
	}
	items, err := s.repo.ListByFamily(ctx, caller.FamilyID, false)
	if err != nil {
		return nil, err
	}
	if caller.IsParent() {
		return items, nil
	}
	out := make([]Geofence, 0, len(items))
	for _, g := range items {
		if g.AppliesTo(caller.ID) {
			out = append(out, g)
		}
	}
	return out, nil
}

// OptionalChild distingue "no enviado" de "enviado null" en un PATCH.
type OptionalChild struct {
	Present bool
	Value   *string
}

// OptionalSchedule idem para el horario (null = quitar horario).
type OptionalSchedule struct {
	Present bool
	Value   *Schedule
}

type UpdateInput struct {
	Name        *string
	ChildID     OptionalChild
	Latitude    *float64
	Longitude   *float64
	Radius      *float64
	IsActive    *bool
	Schedule    OptionalSchedule
	NotifyEnter *bool
	NotifyExit  *bool
}

// Update aplica un PATCH. Solo el creador puede modificar.
func (s *Service) Update(ctx context.Context, callerID, id string, in UpdateInput) (Geofence, error) {
	g, err := s.ownedBy(ctx, callerID, id)
	if err != nil {
		return Geofence{}, err
	}

	if in.Name != nil {
		g.Name = strings.TrimSpace(*in.Name)
	}
	if in.ChildID.Present {
		g.ChildID = trimmedOrNil(in.ChildID.Value)
	}
	if in.Latitude != nil {
		g.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		g.Longitude = *in.Longitude
	}
	if in.Radius != nil {
		g.Radius = *in.Radius
	}
	if in.IsActive != nil {
		g.IsActive = *in.IsActive
	}
	if in.Schedule.Present {
		g.Schedule = cloneSchedule(in.Schedule.Value)
	}
	if in.NotifyEnter != nil {
		g.NotifyEnter = *in.NotifyEnter
	}
	if in.NotifyExit != nil {
		g.NotifyExit = *in.NotifyExit
	}
	g.UpdatedAt = s.now()

	if err := s.validate(ctx, &g); err != nil {
		return Geofence{}, err
	}
	if err := s.repo.Update(ctx, g); err != nil {
		return Geofence{}, err
	}
	s.invalidate(ctx, g.FamilyID)
	return g, nil
}

// Delete borra la geocerca y su historial de eventos. Solo el creador.
// La fila se borra antes que los eventos: si la purga falla quedan eventos
// huérfanos, que historial y membresía ya ignoran.
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	g, err := s.ownedBy(ctx, callerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, g.ID); err != nil {
		return err
	}
	s.invalidate(ctx, g.FamilyID)

	if s.purger != nil {
		if err := s.purger.DeleteByGeofence(ctx, g.ID); err != nil {
			s.log.Warn("geofence events purge failed", map[string]any{"geofence_id": g.ID, "err": err})
		}
	}
	return nil
}

// ListActive es la lectura del directorio que usa el motor de evaluación:
// geocercas con IsActive = true de la familia, ordenadas por id.
//
// Cada entrada de caché lleva la generación de la familia leída antes del repo.
// Toda mutación escribe una generación nueva, así una lista leída antes de la
// mutación nunca vuelve a servirse aunque se escriba después de invalidar.
func (s *Service) ListActive(ctx context.Context, familyID string) ([]Geofence, error) {
	familyID = strings.TrimSpace(familyID)
	if familyID == "" {
		return []Geofence{}, nil
	}

	key := activeKey(familyID)
	var gen string
	if s.cache != nil {
		gen = s.generation(ctx, familyID)
		var cached activeEntry
		err := s.cache.Get(ctx, key, &cached)
		switch {
		case err == nil && gen != "" && cached.Gen == gen:
			s.observe("hit")
			if cached.Items == nil {
				cached.Items = []Geofence{}
			}
			return cached.Items, nil
		case err != nil && !errors.Is(err, cache.ErrMiss):
			s.log.Warn("geofence cache get failed", map[string]any{"family_id": familyID, "err": err})
		}
		s.observe("miss")
	}

	items, err := s.repo.ListByFamily(ctx, familyID, true)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	if s.cache != nil && gen != "" {
		if err := s.cache.Set(ctx, key, activeEntry{Gen: gen, Items: items}, s.ttl); err != nil {
			s.log.Warn("geofence cache set failed", map[string]any{"family_id": familyID, "err": err})
		}
	}
	return items, nil
}

type activeEntry struct {
	Gen   string
	Items []Geofence
}

// generation devuelve la generación vigente de la familia y la crea si no existe.
// "" significa caché no disponible: la lectura va directo al repo sin cachear.
func (s *Service) generation(ctx context.Context, familyID string) string {
	var gen string
	err := s.cache.Get(ctx, generationKey(familyID), &gen)
	if err == nil && gen != "" {
		return gen
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("geofence cache generation get failed", map[string]any{"family_id": familyID, "err": err})
		return ""
	}
	return s.bump(ctx, familyID)
}

func (s *Service) bump(ctx context.Context, familyID string) string {
	gen := uuid.NewString()
	if err := s.cache.Set(ctx, generationKey(familyID), gen, 0); err != nil {
		s.log.Warn("geofence cache generation set failed", map[string]any{"family_id": familyID, "err": err})
		return ""
	}
	return gen
}

func (s *Service) parentOf(ctx context.Context, callerID string) (families.Identity, error) {
	caller, err := s.dir.Resolve(ctx, callerID)
	if err != nil {
		if errors.Is(err, families.ErrNotFound) {
			return families.Identity{}, ErrForbidden
		}
		return families.Identity{}, err
	}
	if !caller.HasFamily() || !caller.IsParent() {
		return families.Identity{}, ErrForbidden
	}
	return caller, nil
}

func (s *Service) ownedBy(ctx context.Context, callerID, id string) (Geofence, error) {
	caller, err := s.dir.Resolve(ctx, callerID)
	if err != nil {
		if errors.Is(err, families.ErrNotFound) {
			return Geofence{}, ErrForbidden
		}
		return Geofence{}, err
	}
	g, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Geofence{}, err
	}
	if !caller.HasFamily() || g.FamilyID != caller.FamilyID {
		return Geofence{}, ErrNotFound
	}
	if g.UserID != caller.ID {
		return Geofence{}, ErrForbidden
	}
	return g, nil
}

func (s *Service) validate(ctx context.Context, g *Geofence) error {
	if g.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	switch g.Type {
	case TypeCircle:
	case TypePolygon:
		return ErrUnsupportedType
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, g.Type)
	}
	if !(Point{Latitude: g.Latitude, Longitude: g.Longitude}).Valid() {
		return fmt.Errorf("%w: latitude/longitude out of range", ErrInvalidInput)
	}
	if math.IsNaN(g.Radius) || g.Radius < MinRadiusMeters || g.Radius > MaxRadiusMeters {
		return ErrInvalidRadius
	}
	if err := g.Schedule.normalize(); err != nil {
		return err
	}
	if g.ChildID != nil {
		ok, err := s.dir.ChildOfFamily(ctx, *g.ChildID, g.FamilyID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrChildNotInFamily
		}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, familyID string) {
	if s.cache == nil {
		return
	}
	s.bump(ctx, familyID)
	if err := s.cache.Delete(ctx, activeKey(familyID)); err != nil {
		s.log.Warn("geofence cache invalidate failed", map[string]any{"family_id": familyID, "err": err})
	}
}

func (s *Service) observe(result string) {
	if s.obs != nil {
		s.obs.ObserveCacheLookup(result)
	}
}

func activeKey(familyID string) string {
	return cache.Key("geofences", "active", familyID)
}

func generationKey(familyID string) string {
	return cache.Key("geofences", "gen", familyID)
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func trimmedOrNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func cloneSchedule(s *Schedule) *Schedule {
	if s == nil {
		return nil
	}
	c := *s
	c.Days = append([]int(nil), s.Days...)
	return &c
}
