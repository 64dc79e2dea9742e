package zoneevents

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"family-locator/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/children/{childID}/geofence-events", listEventsHandler(svc))
}

type eventResponse struct {
	ID           string    `json:"id"`
	GeofenceID   string    `json:"geofenceId"`
	GeofenceName string    `json:"geofenceName"`
	ChildID      string    `json:"childId"`
	EventType    EventType `json:"eventType"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	CreatedAt    time.Time `json:"createdAt"`
}

// listEventsHandler godoc
// @Summary Historial de eventos de geocercas de un hijo
// @Description Más reciente primero. Accesible para el propio hijo o un parent de su familia.
// @Tags geofence-events
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param childID path string true "ID del hijo"
// @Param limit query int false "Máximo de eventos (1..200, default 50)"
// @Success 200 {array} eventResponse
// @Failure 400 {string} string "invalid limit"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /children/{childID}/geofence-events [get]
func listEventsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		limit := 0
		if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > MaxLimit {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		items, err := svc.History(r.Context(), claims.UserID, chi.URLParam(r, "childID"), limit)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		out := make([]eventResponse, 0, len(items))
		for _, e := range items {
			out = append(out, eventResponse{
				ID:           e.ID,
				GeofenceID:   e.GeofenceID,
				GeofenceName: e.GeofenceName,
				ChildID:      e.ChildID,
				EventType:    e.EventType,
				Latitude:     e.Latitude,
				Longitude:    e.Longitude,
				CreatedAt:    e.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
