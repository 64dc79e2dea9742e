package geofences

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"family-locator/internal/domain/families"
	"family-locator/internal/middleware"
	"family-locator/internal/platform/validation"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/geofences", func(gr chi.Router) {
		gr.Post("/", createGeofenceHandler(svc))
		gr.Get("/", listGeofencesHandler(svc))

		gr.Get("/{geofenceID}", getGeofenceHandler(svc))
		// Solo el creador puede modificar o borrar
		gr.Patch("/{geofenceID}", updateGeofenceHandler(svc))
		gr.Delete("/{geofenceID}", deleteGeofenceHandler(svc))
	})
}

// scheduleRequest: días 0 (domingo) a 6, horas "HH:MM" inclusivas.
type scheduleRequest struct {
	Days      []int  `json:"days" validate:"required,min=1,dive,gte=0,lte=6"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
	EndTime   string `json:"endTime" validate:"required,hhmm"`
}

// createGeofenceRequest es el cuerpo para crear una geocerca.
type createGeofenceRequest struct {
	Name        string           `json:"name" validate:"required,max=120"`
	Type        Type             `json:"type" validate:"omitempty,oneof=circle polygon" enums:"circle,polygon"`
	ChildID     *string          `json:"childId"`
	Latitude    *float64         `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude   *float64         `json:"longitude" validate:"required,gte=-180,lte=180"`
	Radius      *float64         `json:"radius" validate:"required,gte=50,lte=5000"`
	IsActive    *bool            `json:"isActive"`
	Schedule    *scheduleRequest `json:"schedule"`
	NotifyEnter *bool            `json:"notifyEnter"`
	NotifyExit  *bool            `json:"notifyExit"`
}

// updateGeofenceRequest: punteros para PATCH real, nil = no tocar.
// childId y schedule aceptan null explícito (ver decodeUpdate).
type updateGeofenceRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Radius      *float64 `json:"radius" validate:"omitempty,gte=50,lte=5000"`
	IsActive    *bool    `json:"isActive"`
	NotifyEnter *bool    `json:"notifyEnter"`
	NotifyExit  *bool    `json:"notifyExit"`
}

type scheduleResponse struct {
	Days      []int  `json:"days"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type geofenceResponse struct {
	ID          string            `json:"id"`
	FamilyID    string            `json:"familyId"`
	UserID      string            `json:"userId"`
	ChildID     *string           `json:"childId"`
	Name        string            `json:"name"`
	Type        Type              `json:"type"`
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	Radius      float64           `json:"radius"`
	IsActive    bool              `json:"isActive"`
	Schedule    *scheduleResponse `json:"schedule"`
	NotifyEnter bool              `json:"notifyEnter"`
	NotifyExit  bool              `json:"notifyExit"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// createGeofenceHandler godoc
// @Summary Crear geocerca
// @Description Crea una geocerca circular para la familia del parent autenticado. Radio entre 50 y 5000 m. childId opcional (null = todos los hijos).
// @Tags geofences
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body createGeofenceRequest true "Definición de la geocerca"
// @Success 201 {object} geofenceResponse
// @Failure 400 {string} string "invalid json / validación / tipo no soportado"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /geofences [post]
func createGeofenceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createGeofenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validation.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		g, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:        req.Name,
			Type:        req.Type,
			ChildID:     req.ChildID,
			Latitude:    *req.Latitude,
			Longitude:   *req.Longitude,
			Radius:      *req.Radius,
			IsActive:    req.IsActive,
			Schedule:    toSchedule(req.Schedule),
			NotifyEnter: req.NotifyEnter,
			NotifyExit:  req.NotifyExit,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toGeofenceResponse(g))
	}
}

// listGeofencesHandler godoc
// @Summary Listar geocercas
// @Description Parents ven todas las geocercas de su familia; un hijo solo las que le aplican.
// @Tags geofences
// @Produce json
// @Success 200 {array} geofenceResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /geofences [get]
func listGeofencesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.List(r.Context(), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]geofenceResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toGeofenceResponse(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getGeofenceHandler godoc
// @Summary Obtener geocerca
// @Tags geofences
// @Produce json
// @Param geofenceID path string true "ID de la geocerca"
// @Success 200 {object} geofenceResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "geofence not found"
// @Router /geofences/{geofenceID} [get]
func getGeofenceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		g, err := svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "geofenceID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toGeofenceResponse(g))
	}
}

// updateGeofenceHandler godoc
// @Summary Actualizar geocerca
// @Description PATCH parcial. Solo el creador. childId o schedule en null los limpian.
// @Tags geofences
// @Accept json
// @Produce json
// @Param geofenceID path string true "ID de la geocerca"
// @Param payload body updateGeofenceRequest true "Campos a modificar"
// @Success 200 {object} geofenceResponse
// @Failure 400 {string} string "invalid json / validación"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "geofence not found"
// @Router /geofences/{geofenceID} [patch]
func updateGeofenceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		in, err := decodeUpdate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		g, err := svc.Update(r.Context(), claims.UserID, chi.URLParam(r, "geofenceID"), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toGeofenceResponse(g))
	}
}

// deleteGeofenceHandler godoc
// @Summary Borrar geocerca
// @Description Borra la geocerca y su historial de eventos. Solo el creador.
// @Tags geofences
// @Param geofenceID path string true "ID de la geocerca"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "geofence not found"
// @Router /geofences/{geofenceID} [delete]
func deleteGeofenceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "geofenceID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// decodeUpdate decodifica primero a map para detectar presencia de childId/schedule
// (null explícito = limpiar) y luego reutiliza los tags del struct.
func decodeUpdate(r *http.Request) (UpdateInput, error) {
	dec := json.NewDecoder(r.Body)
	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return UpdateInput{}, errors.New("invalid json")
	}

	var req updateGeofenceRequest
	b, _ := json.Marshal(raw)
	if err := json.Unmarshal(b, &req); err != nil {
		return UpdateInput{}, errors.New("invalid json")
	}
	if err := validation.Struct(req); err != nil {
		return UpdateInput{}, err
	}

	in := UpdateInput{
		Name:        req.Name,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Radius:      req.Radius,
		IsActive:    req.IsActive,
		NotifyEnter: req.NotifyEnter,
		NotifyExit:  req.NotifyExit,
	}

	if v, exists := raw["childId"]; exists {
		in.ChildID.Present = true
		if string(v) != "null" {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return UpdateInput{}, errors.New("childId must be a string or null")
			}
			in.ChildID.Value = &s
		}
	}

	if v, exists := raw["schedule"]; exists {
		in.Schedule.Present = true
		if string(v) != "null" {
			var sr scheduleRequest
			if err := json.Unmarshal(v, &sr); err != nil {
				return UpdateInput{}, errors.New("invalid schedule")
			}
			if err := validation.Struct(sr); err != nil {
				return UpdateInput{}, err
			}
			in.Schedule.Value = toSchedule(&sr)
		}
	}

	return in, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidSchedule),
		errors.Is(err, ErrInvalidRadius),
		errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrChildNotInFamily):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden), errors.Is(err, families.ErrNotFound):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "geofence not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toSchedule(sr *scheduleRequest) *Schedule {
	if sr == nil {
		return nil
	}
	return &Schedule{
		Days:      append([]int(nil), sr.Days...),
		StartTime: sr.StartTime,
		EndTime:   sr.EndTime,
	}
}

func toGeofenceResponse(g Geofence) geofenceResponse {
	out := geofenceResponse{
		ID:          g.ID,
		FamilyID:    g.FamilyID,
		UserID:      g.UserID,
		ChildID:     g.ChildID,
		Name:        g.Name,
		Type:        g.Type,
		Latitude:    g.Latitude,
		Longitude:   g.Longitude,
		Radius:      g.Radius,
		IsActive:    g.IsActive,
		NotifyEnter: g.NotifyEnter,
		NotifyExit:  g.NotifyExit,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	if g.Schedule != nil {
		out.Schedule = &scheduleResponse{
			Days:      g.Schedule.Days,
			StartTime: g.Schedule.StartTime,
			EndTime:   g.Schedule.EndTime,
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
