package geofences

import "context"

type Repository interface {
	Create(ctx context.Context, g Geofence) error
	Update(ctx context.Context, g Geofence) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Geofence, error)

	// ListByFamily devuelve las geocercas de la familia ordenadas por id asc.
	// activeOnly filtra IsActive = true.
	ListByFamily(ctx context.Context, familyID string, activeOnly bool) ([]Geofence, error)
}
