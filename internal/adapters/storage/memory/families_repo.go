package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"family-locator/internal/domain/families"
)

type familyRepo struct {
	mu       sync.RWMutex
	families map[string]families.Family
	users    map[string]families.User
}

func NewFamilyRepo() families.Repository {
	return &familyRepo{
		families: make(map[string]families.Family),
		users:    make(map[string]families.User),
	}
}

func (r *familyRepo) CreateFamily(ctx context.Context, f families.Family) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(f.ID) == "" {
		return errors.New("family id required")
	}
	if _, exists := r.families[f.ID]; exists {
		return errors.New("family already exists")
	}
	r.families[f.ID] = f
	return nil
}

func (r *familyRepo) GetFamily(ctx context.Context, id string) (families.Family, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.families[id]
	if !ok {
		return families.Family{}, families.ErrNotFound
	}
	return f, nil
}

func (r *familyRepo) UpsertUser(ctx context.Context, u families.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id required")
	}
	if u.FamilyID != nil {
		if _, ok := r.families[*u.FamilyID]; !ok {
			return errors.New("family does not exist")
		}
		fam := *u.FamilyID
		u.FamilyID = &fam
	}
	r.users[u.ID] = u
	return nil
}

func (r *familyRepo) GetUser(ctx context.Context, id string) (families.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return families.User{}, families.ErrNotFound
	}
	return u, nil
}

func (r *familyRepo) ListMembers(ctx context.Context, familyID string) ([]families.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]families.User, 0)
	for _, u := range r.users {
		if u.FamilyID != nil && *u.FamilyID == familyID {
			out = append(out, u)
		}
	}

	// parents primero, luego por fecha de alta
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role == families.RoleParent
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
