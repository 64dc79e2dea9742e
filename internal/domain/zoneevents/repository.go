package zoneevents

import "context"

type Repository interface {
	Append(ctx context.Context, e GeofenceEvent) error

	// LatestByGeofence devuelve, por geocerca, el tipo del evento enter/exit más reciente
	// del hijo. Geocercas sin historial no aparecen en el map. dwell se ignora.
	LatestByGeofence(ctx context.Context, childID string, geofenceIDs []string) (map[string]EventType, error)

	// ListByChild ordena por CreatedAt desc (más reciente primero).
	ListByChild(ctx context.Context, childID string, limit int) ([]GeofenceEvent, error)

	DeleteByGeofence(ctx context.Context, geofenceID string) error
}
