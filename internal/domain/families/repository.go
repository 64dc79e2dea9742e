package families

import "context"

type Repository interface {
	CreateFamily(ctx context.Context, f Family) error
	GetFamily(ctx context.Context, id string) (Family, error)

	// UpsertUser crea o reemplaza la entrada del usuario.
	UpsertUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (User, error)
	ListMembers(ctx context.Context, familyID string) ([]User, error)
}
