package families

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrAlreadyInFamily = errors.New("user already belongs to a family")
	ErrNoFamily        = errors.New("user has no family")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Resolve devuelve la identidad (familia + rol) del usuario.
func (s *Service) Resolve(ctx context.Context, userID string) (Identity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Identity{}, ErrInvalidInput
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{ID: u.ID, Role: u.Role}
	if u.FamilyID != nil {
		id.FamilyID = *u.FamilyID
	}
	return id, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	return s.repo.GetUser(ctx, strings.TrimSpace(userID))
}

type CreateFamilyInput struct {
	Name       string
	ParentName string
}

// CreateFamily crea la familia y deja al usuario como parent de ella.
// Si el usuario no existe en el directorio, se registra en este momento.
func (s *Service) CreateFamily(ctx context.Context, userID string, in CreateFamilyInput) (Family, User, error) {
	userID = strings.TrimSpace(userID)
	name := strings.TrimSpace(in.Name)
	if userID == "" || name == "" {
		return Family{}, User{}, ErrInvalidInput
	}

	u, err := s.repo.GetUser(ctx, userID)
	switch {
	case err == nil:
		if u.FamilyID != nil {
			return Family{}, User{}, ErrAlreadyInFamily
		}
	case errors.Is(err, ErrNotFound):
		u = User{ID: userID, CreatedAt: s.now()}
	default:
		return Family{}, User{}, err
	}

	now := s.now()
	f := Family{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedBy: userID,
		CreatedAt: now,
	}
	if err := s.repo.CreateFamily(ctx, f); err != nil {
		return Family{}, User{}, fmt.Errorf("create family: %w", err)
	}

	famID := f.ID
	u.FamilyID = &famID
	u.Role = RoleParent
	if n := strings.TrimSpace(in.ParentName); n != "" {
		u.Name = n
	}
	if err := s.repo.UpsertUser(ctx, u); err != nil {
		return Family{}, User{}, fmt.Errorf("attach parent: %w", err)
	}
	return f, u, nil
}

// AddChild registra un hijo en la familia del parent que llama.
func (s *Service) AddChild(ctx context.Context, parentID, name string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, ErrInvalidInput
	}
	parent, err := s.Resolve(ctx, parentID)
	if err != nil {
		return User{}, err
	}
	if !parent.HasFamily() {
		return User{}, ErrNoFamily
	}
	if !parent.IsParent() {
		return User{}, ErrForbidden
	}

	famID := parent.FamilyID
	child := User{
		ID:        uuid.NewString(),
		FamilyID:  &famID,
		Role:      RoleChild,
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := s.repo.UpsertUser(ctx, child); err != nil {
		return User{}, err
	}
	return child, nil
}

func (s *Service) ListMembers(ctx context.Context, userID string) ([]User, error) {
	id, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !id.HasFamily() {
		return []User{}, nil
	}
	return s.repo.ListMembers(ctx, id.FamilyID)
}

// ChildOfFamily verifica que childID sea un hijo de familyID.
func (s *Service) ChildOfFamily(ctx context.Context, childID, familyID string) (bool, error) {
	u, err := s.repo.GetUser(ctx, strings.TrimSpace(childID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.Role == RoleChild && u.FamilyID != nil && *u.FamilyID == familyID, nil
}
