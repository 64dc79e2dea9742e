package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"family-locator/internal/domain/geofences"
)

type GeofencesRepo struct {
	db *sql.DB
}

func NewGeofencesRepo(db *sql.DB) *GeofencesRepo {
	return &GeofencesRepo{db: db}
}

const geofenceColumns = `
	id, family_id, user_id, child_id,
	name, type,
	latitude, longitude, radius,
	is_active, schedule,
	notify_enter, notify_exit,
	created_at, updated_at`

// scheduleJSON es el formato de la columna schedule (JSONB).
type scheduleJSON struct {
	Days      []int  `json:"days"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func (r *GeofencesRepo) Create(ctx context.Context, g geofences.Geofence) error {
	sched, err := encodeSchedule(g.Schedule)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO geofences (`+geofenceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		g.ID,
		g.FamilyID,
		g.UserID,
		toNullString(g.ChildID),
		g.Name,
		string(g.Type),
		g.Latitude,
		g.Longitude,
		g.Radius,
		g.IsActive,
		sched,
		g.NotifyEnter,
		g.NotifyExit,
		g.CreatedAt,
		g.UpdatedAt,
	)
	return err
}

func (r *GeofencesRepo) Update(ctx context.Context, g geofences.Geofence) error {
	sched, err := encodeSchedule(g.Schedule)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE geofences
		SET
			child_id = $2,
			name = $3,
			latitude = $4,
			longitude = $5,
			radius = $6,
			is_active = $7,
			schedule = $8,
			notify_enter = $9,
			notify_exit = $10,
			updated_at = $11
		WHERE id = $1
	`,
		g.ID,
		toNullString(g.ChildID),
		g.Name,
		g.Latitude,
		g.Longitude,
		g.Radius,
		g.IsActive,
		sched,
		g.NotifyEnter,
		g.NotifyExit,
		g.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return geofences.ErrNotFound
	}
	return nil
}

func (r *GeofencesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM geofences WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return geofences.ErrNotFound
	}
	return nil
}

func (r *GeofencesRepo) GetByID(ctx context.Context, id string) (geofences.Geofence, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return geofences.Geofence{}, geofences.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+geofenceColumns+` FROM geofences WHERE id = $1`, id)
	g, err := scanGeofence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return geofences.Geofence{}, geofences.ErrNotFound
		}
		return geofences.Geofence{}, err
	}
	return g, nil
}

func (r *GeofencesRepo) ListByFamily(ctx context.Context, familyID string, activeOnly bool) ([]geofences.Geofence, error) {
	q := `SELECT ` + geofenceColumns + ` FROM geofences WHERE family_id = $1`
	if activeOnly {
		q += ` AND is_active = TRUE`
	}
	q += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, q, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]geofences.Geofence, 0)
	for rows.Next() {
		g, err := scanGeofence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGeofence(s rowScanner) (geofences.Geofence, error) {
	var g geofences.Geofence
	var childID sql.NullString
	var typ string
	var sched []byte

	if err := s.Scan(
		&g.ID,
		&g.FamilyID,
		&g.UserID,
		&childID,
		&g.Name,
		&typ,
		&g.Latitude,
		&g.Longitude,
		&g.Radius,
		&g.IsActive,
		&sched,
		&g.NotifyEnter,
		&g.NotifyExit,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		return geofences.Geofence{}, err
	}

	g.ChildID = fromNullString(childID)
	g.Type = geofences.Type(typ)

	if len(sched) > 0 {
		var sj scheduleJSON
		if err := json.Unmarshal(sched, &sj); err != nil {
			return geofences.Geofence{}, err
		}
		g.Schedule = &geofences.Schedule{Days: sj.Days, StartTime: sj.StartTime, EndTime: sj.EndTime}
	}
	return g, nil
}

// encodeSchedule devuelve nil (NULL) si no hay horario.
func encodeSchedule(s *geofences.Schedule) (any, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(scheduleJSON{Days: s.Days, StartTime: s.StartTime, EndTime: s.EndTime})
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
