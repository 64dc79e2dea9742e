package tracking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"family-locator/internal/domain/geofences"
	"family-locator/internal/middleware"
	"family-locator/internal/platform/validation"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, engine *Engine) {
	r.Post("/locations/evaluate", evaluateHandler(engine))
}

// evaluateRequest es un fix GPS del dispositivo del hijo.
type evaluateRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type transitionResponse struct {
	GeofenceID   string    `json:"geofenceId"`
	GeofenceName string    `json:"geofenceName"`
	EventType    string    `json:"eventType"`
	Timestamp    time.Time `json:"timestamp"`
}

type evaluateResponse struct {
	Events       []transitionResponse `json:"events"`
	CurrentZones []string             `json:"currentZones"`
}

// evaluateHandler godoc
// @Summary Evaluar ubicación
// @Description Evalúa un fix GPS del usuario autenticado contra las geocercas activas de su familia. Devuelve las transiciones enter/exit emitidas (ya persistidas) y las zonas que contienen el punto.
// @Tags locations
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body evaluateRequest true "Coordenadas"
// @Success 200 {object} evaluateResponse
// @Failure 400 {string} string "invalid json / coordenadas fuera de rango"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 429 {string} string "too many requests"
// @Failure 500 {string} string "internal error"
// @Router /locations/evaluate [post]
func evaluateHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req evaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validation.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := engine.Evaluate(r.Context(), claims.UserID, geofences.Point{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidLocation):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrUnknownUser):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		out := evaluateResponse{
			Events:       make([]transitionResponse, 0, len(res.Events)),
			CurrentZones: res.CurrentZones,
		}
		for _, ev := range res.Events {
			out.Events = append(out.Events, transitionResponse{
				GeofenceID:   ev.GeofenceID,
				GeofenceName: ev.GeofenceName,
				EventType:    string(ev.EventType),
				Timestamp:    ev.Timestamp,
			})
		}
		if out.CurrentZones == nil {
			out.CurrentZones = []string{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
