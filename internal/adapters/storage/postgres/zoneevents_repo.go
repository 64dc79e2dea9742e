package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"family-locator/internal/domain/zoneevents"

	"github.com/lib/pq"
)

type ZoneEventsRepo struct {
	db *sql.DB
}

func NewZoneEventsRepo(db *sql.DB) *ZoneEventsRepo {
	return &ZoneEventsRepo{db: db}
}

// Append inserta el evento y, si es enter/exit, actualiza geofence_zone_states
// en la misma transacción.
func (r *ZoneEventsRepo) Append(ctx context.Context, e zoneevents.GeofenceEvent) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var seq int64
	if err = tx.QueryRowContext(ctx, `
		INSERT INTO geofence_events (
			id, geofence_id, child_id,
			event_type, latitude, longitude,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING seq
	`,
		e.ID,
		e.GeofenceID,
		e.ChildID,
		string(e.EventType),
		e.Latitude,
		e.Longitude,
		e.CreatedAt,
	).Scan(&seq); err != nil {
		return fmt.Errorf("insert geofence event: %w", err)
	}

	if e.EventType == zoneevents.EventEnter || e.EventType == zoneevents.EventExit {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO geofence_zone_states (child_id, geofence_id, event_type, event_seq, created_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (child_id, geofence_id) DO UPDATE SET
				event_type = EXCLUDED.event_type,
				event_seq = EXCLUDED.event_seq,
				created_at = EXCLUDED.created_at
			WHERE (EXCLUDED.created_at, EXCLUDED.event_seq) >= (geofence_zone_states.created_at, geofence_zone_states.event_seq)
		`, e.ChildID, e.GeofenceID, string(e.EventType), seq, e.CreatedAt); err != nil {
			return fmt.Errorf("upsert zone state: %w", err)
		}
	}

	return tx.Commit()
}

func (r *ZoneEventsRepo) LatestByGeofence(ctx context.Context, childID string, geofenceIDs []string) (map[string]zoneevents.EventType, error) {
	out := make(map[string]zoneevents.EventType, len(geofenceIDs))
	if len(geofenceIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT geofence_id, event_type
		FROM geofence_zone_states
		WHERE child_id = $1 AND geofence_id = ANY($2)
	`, childID, pq.Array(geofenceIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, typ string
		if err := rows.Scan(&id, &typ); err != nil {
			return nil, err
		}
		out[id] = zoneevents.EventType(typ)
	}
	return out, rows.Err()
}

func (r *ZoneEventsRepo) ListByChild(ctx context.Context, childID string, limit int) ([]zoneevents.GeofenceEvent, error) {
	if limit <= 0 {
		limit = zoneevents.DefaultLimit
	}
	if limit > zoneevents.MaxLimit {
		limit = zoneevents.MaxLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, geofence_id, child_id, event_type, latitude, longitude, created_at
		FROM geofence_events
		WHERE child_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`, childID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]zoneevents.GeofenceEvent, 0)
	for rows.Next() {
		var e zoneevents.GeofenceEvent
		var typ string
		if err := rows.Scan(&e.ID, &e.GeofenceID, &e.ChildID, &typ, &e.Latitude, &e.Longitude, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EventType = zoneevents.EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ZoneEventsRepo) DeleteByGeofence(ctx context.Context, geofenceID string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM geofence_zone_states WHERE geofence_id = $1`, geofenceID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM geofence_events WHERE geofence_id = $1`, geofenceID); err != nil {
		return err
	}
	return tx.Commit()
}
