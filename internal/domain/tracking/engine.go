package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"family-locator/internal/domain/families"
	"family-locator/internal/domain/geofences"
	"family-locator/internal/domain/zoneevents"
	"family-locator/internal/platform/keylock"
	"family-locator/internal/platform/logger"
)

var (
	ErrInvalidLocation = errors.New("invalid location")
	ErrUnknownUser     = errors.New("unknown user")
)

type Directory interface {
	Resolve(ctx context.Context, userID string) (families.Identity, error)
}

// GeofenceSource entrega las geocercas activas de la familia, ordenadas por id.
type GeofenceSource interface {
	ListActive(ctx context.Context, familyID string) ([]geofences.Geofence, error)
}

type EventStore interface {
	Membership(ctx context.Context, childID string, geofenceIDs []string) (map[string]zoneevents.State, error)
	Append(ctx context.Context, in zoneevents.AppendInput) (zoneevents.GeofenceEvent, error)
}

// Recorder recibe las métricas de cada evaluación. Opcional.
type Recorder interface {
	ObserveEvaluation(outcome string, d time.Duration)
	ObserveTransition(eventType string)
}

type Options struct {
	Locker   keylock.Locker
	Logger   logger.Logger
	Recorder Recorder
	// Location para evaluar horarios. nil = time.Local.
	Location *time.Location
}

type TransitionEvent struct {
	GeofenceID   string
	GeofenceName string
	EventType    zoneevents.EventType
	Timestamp    time.Time
}

type Result struct {
	Events       []TransitionEvent
	CurrentZones []string
}

type Engine struct {
	dir    Directory
	source GeofenceSource
	events EventStore
	locker keylock.Locker
	log    logger.Logger
	rec    Recorder
	loc    *time.Location
	now    func() time.Time
}

func NewEngine(dir Directory, source GeofenceSource, events EventStore, opts Options) *Engine {
	e := &Engine{
		dir:    dir,
		source: source,
		events: events,
		locker: opts.Locker,
		log:    opts.Logger,
		rec:    opts.Recorder,
		loc:    opts.Location,
		now:    time.Now,
	}
	if e.locker == nil {
		e.locker = keylock.NewMemory()
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	return e
}

// Evaluate procesa un fix GPS del hijo childID y devuelve las transiciones emitidas
// y las zonas que contienen el punto. Cada transición se persiste antes de devolver.
// Las evaluaciones del mismo hijo se serializan.
func (e *Engine) Evaluate(ctx context.Context, childID string, p geofences.Point) (res Result, err error) {
	res = emptyResult()
	if !p.Valid() {
		return res, ErrInvalidLocation
	}

	started := e.now()
	defer func() { e.observe(outcome(res, err), e.now().Sub(started)) }()

	caller, err := e.dir.Resolve(ctx, childID)
	if err != nil {
		if errors.Is(err, families.ErrNotFound) {
			return res, ErrUnknownUser
		}
		return res, fmt.Errorf("resolve caller: %w", err)
	}
	if !caller.HasFamily() {
		return res, nil
	}

	unlock, err := e.locker.Lock(ctx, "evaluate:"+caller.ID)
	if err != nil {
		return res, fmt.Errorf("lock child: %w", err)
	}
	defer unlock()

	active, err := e.source.ListActive(ctx, caller.FamilyID)
	if err != nil {
		return res, fmt.Errorf("list geofences: %w", err)
	}

	now := e.now().In(e.loc)
	candidates := make([]geofences.Geofence, 0, len(active))
	ids := make([]string, 0, len(active))
	for _, g := range active {
		if !g.AppliesTo(caller.ID) || !g.ActiveAt(now) {
			continue
		}
		if g.Type != geofences.TypeCircle {
			continue
		}
		candidates = append(candidates, g)
		ids = append(ids, g.ID)
	}
	if len(candidates) == 0 {
		return res, nil
	}

	states, err := e.events.Membership(ctx, caller.ID, ids)
	if err != nil {
		return res, fmt.Errorf("load membership: %w", err)
	}

	for _, g := range candidates {
		inside := g.Contains(p)
		prev := states[g.ID]

		var typ zoneevents.EventType
		switch {
		case inside && prev != zoneevents.StateInside && g.NotifyEnter:
			typ = zoneevents.EventEnter
		case !inside && prev == zoneevents.StateInside && g.NotifyExit:
			typ = zoneevents.EventExit
		}

		if typ != "" {
			ev, err := e.events.Append(ctx, zoneevents.AppendInput{
				GeofenceID: g.ID,
				ChildID:    caller.ID,
				EventType:  typ,
				Latitude:   p.Latitude,
				Longitude:  p.Longitude,
			})
			if err != nil {
				// los eventos anteriores ya quedaron persistidos
				return res, fmt.Errorf("append %s event for geofence %s: %w", typ, g.ID, err)
			}
			res.Events = append(res.Events, TransitionEvent{
				GeofenceID:   g.ID,
				GeofenceName: g.Name,
				EventType:    typ,
				Timestamp:    ev.CreatedAt,
			})
			if e.rec != nil {
				e.rec.ObserveTransition(string(typ))
			}
			e.log.Info("geofence transition", map[string]any{
				"child_id":    caller.ID,
				"family_id":   caller.FamilyID,
				"geofence_id": g.ID,
				"event_type":  string(typ),
			})
		}

		if inside {
			res.CurrentZones = append(res.CurrentZones, g.Name)
		}
	}

	return res, nil
}

func (e *Engine) observe(outcome string, d time.Duration) {
	if e.rec != nil {
		e.rec.ObserveEvaluation(outcome, d)
	}
}

func outcome(res Result, err error) string {
	switch {
	case err != nil:
		return "error"
	case len(res.Events) > 0:
		return "transition"
	default:
		return "noop"
	}
}

func emptyResult() Result {
	return Result{
		Events:       []TransitionEvent{},
		CurrentZones: []string{},
	}
}
