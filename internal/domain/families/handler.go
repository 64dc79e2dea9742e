package families

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"family-locator/internal/middleware"
	"family-locator/internal/platform/validation"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/families", func(fr chi.Router) {
		fr.Post("/", createFamilyHandler(svc))
		fr.Post("/children", addChildHandler(svc))
		fr.Get("/members", listMembersHandler(svc))
	})

	r.Get("/me", meHandler(svc))
}

// createFamilyRequest es el cuerpo para crear una familia.
type createFamilyRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	ParentName string `json:"parentName" validate:"max=120"`
}

// addChildRequest es el cuerpo para registrar un hijo.
type addChildRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type familyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type userResponse struct {
	ID        string    `json:"id"`
	FamilyID  *string   `json:"familyId"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type createFamilyResponse struct {
	Family familyResponse `json:"family"`
	User   userResponse   `json:"user"`
}

// createFamilyHandler godoc
// @Summary Crear familia
// @Description Crea una familia y deja al usuario autenticado como parent. Falla si ya pertenece a una.
// @Tags families
// @Accept json
// @Produce json
// @Param payload body createFamilyRequest true "Datos de la familia"
// @Success 201 {object} createFamilyResponse
// @Failure 400 {string} string "invalid json / validación"
// @Failure 401 {string} string "unauthorized"
// @Failure 409 {string} string "already in a family"
// @Router /families [post]
func createFamilyHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createFamilyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validation.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f, u, err := svc.CreateFamily(r.Context(), claims.UserID, CreateFamilyInput{
			Name:       req.Name,
			ParentName: req.ParentName,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrAlreadyInFamily):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, createFamilyResponse{
			Family: toFamilyResponse(f),
			User:   toUserResponse(u),
		})
	}
}

// addChildHandler godoc
// @Summary Registrar hijo
// @Description Crea un usuario hijo dentro de la familia del parent autenticado.
// @Tags families
// @Accept json
// @Produce json
// @Param payload body addChildRequest true "Nombre del hijo"
// @Success 201 {object} userResponse
// @Failure 400 {string} string "invalid json / validación / sin familia"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /families/children [post]
func addChildHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req addChildRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validation.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		child, err := svc.AddChild(r.Context(), claims.UserID, req.Name)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoFamily):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toUserResponse(child))
	}
}

// listMembersHandler godoc
// @Summary Listar miembros de mi familia
// @Tags families
// @Produce json
// @Success 200 {array} userResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /families/members [get]
func listMembersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListMembers(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]userResponse, 0, len(items))
		for _, u := range items {
			out = append(out, toUserResponse(u))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// meHandler godoc
// @Summary Usuario autenticado
// @Tags families
// @Produce json
// @Success 200 {object} userResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "user not found"
// @Router /me [get]
func meHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		u, err := svc.GetUser(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

func toFamilyResponse(f Family) familyResponse {
	return familyResponse{
		ID:        f.ID,
		Name:      f.Name,
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
	}
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		FamilyID:  u.FamilyID,
		Role:      u.Role,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
