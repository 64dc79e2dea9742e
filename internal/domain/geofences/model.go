package geofences

import "time"

// Type de geometría. Solo circle se evalúa; polygon está reservado.
type Type string

const (
	TypeCircle  Type = "circle"
	TypePolygon Type = "polygon"
)

const (
	MinRadiusMeters = 50
	MaxRadiusMeters = 5000
)

// Schedule es una ventana semanal recurrente.
// Days usa 0 = domingo ... 6 = sábado. StartTime/EndTime en "HH:MM" 24h, ambos inclusivos.
type Schedule struct {
	Days      []int
	StartTime string
	EndTime   string
}

type Geofence struct {
	ID       string
	FamilyID string
	UserID   string // creador, único que puede modificar/borrar

	// ChildID nil = aplica a todos los hijos de la familia.
	ChildID *string

	Name string
	Type Type

	Latitude  float64
	Longitude float64
	Radius    float64 // metros

	IsActive bool
	Schedule *Schedule

	NotifyEnter bool
	NotifyExit  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppliesTo indica si la geocerca alcanza al hijo dado.
func (g Geofence) AppliesTo(childID string) bool {
	return g.ChildID == nil || *g.ChildID == childID
}

// ActiveAt combina el flag IsActive con el horario (si existe).
// t debe venir ya en la zona horaria local de evaluación.
func (g Geofence) ActiveAt(t time.Time) bool {
	if !g.IsActive {
		return false
	}
	if g.Schedule == nil {
		return true
	}
	return g.Schedule.ActiveAt(t)
}

// Contains aplica el predicado espacial (disco cerrado: distancia == radio cuenta como dentro).
// Geometrías no soportadas nunca contienen puntos.
func (g Geofence) Contains(p Point) bool {
	if g.Type != TypeCircle {
		return false
	}
	return DistanceMeters(Point{Latitude: g.Latitude, Longitude: g.Longitude}, p) <= g.Radius
}
