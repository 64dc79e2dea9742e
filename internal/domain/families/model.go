package families

import "time"

// Role define el rol de un usuario dentro de su familia.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

type Family struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}

// User es la entrada del directorio. FamilyID nil = usuario sin familia.
type User struct {
	ID        string
	FamilyID  *string
	Role      Role
	Name      string
	CreatedAt time.Time
}

// Identity es lo que el resto de módulos necesita saber del usuario autenticado.
type Identity struct {
	ID       string
	FamilyID string // "" si no pertenece a ninguna familia
	Role     Role
}

func (i Identity) HasFamily() bool { return i.FamilyID != "" }
func (i Identity) IsParent() bool  { return i.Role == RoleParent }
