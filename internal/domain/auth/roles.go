package auth

// Role codes are flat tags; authorization checks are predicates over the
// actor's set, never a hierarchy.
const (
	RoleEmployee       = "ANGAJAT"
	RoleSecretariat    = "SECRETARIAT"
	RoleUnitHead       = "SEF_STRUCTURA"
	RoleDeputyDirector = "DIRECTOR_ADJUNCT"
	RoleDirector       = "DIRECTOR"
	RoleAdministrator  = "ADMINISTRATOR"
)

var AllRoles = map[string]string{
	RoleEmployee:       "Angajat",
	RoleSecretariat:    "Secretariat",
	RoleUnitHead:       "Sef structura",
	RoleDeputyDirector: "Director adjunct",
	RoleDirector:       "Director",
	RoleAdministrator:  "Administrator",
}

// Actor is the authenticated principal handed to domain operations.
type Actor struct {
	ID    int64
	Roles []string
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if a.HasRole(role) {
			return true
		}
	}
	return false
}
