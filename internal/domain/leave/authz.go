package leave

import (
	"context"
	"errors"

	"concedii/internal/domain/auth"
)

// SubstituteSource reports who currently holds the director's substitute
// designation. Implemented by the auth store.
type SubstituteSource interface {
	DirectorSubstituteID(ctx context.Context, directorUsername string) (*int64, error)
}

// Authz decides whether an actor may perform approval-type actions.
// Decisions are predicates over the actor's role set plus the single
// substitute edge; there is no role hierarchy.
type Authz struct {
	Users            SubstituteSource
	DirectorUsername string
}

func NewAuthz(users SubstituteSource, directorUsername string) *Authz {
	return &Authz{Users: users, DirectorUsername: directorUsername}
}

// CanApprove authorizes approve and reject. A deputy director qualifies
// only while they are the director's configured substitute; the edge is
// read on every call so revocation applies immediately.
func (a *Authz) CanApprove(ctx context.Context, actor auth.Actor) error {
	if actor.HasRole(auth.RoleDirector) {
		return nil
	}
	if actor.HasRole(auth.RoleDeputyDirector) {
		substituteID, err := a.Users.DirectorSubstituteID(ctx, a.DirectorUsername)
		if err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				return ErrForbidden
			}
			return err
		}
		if substituteID != nil && *substituteID == actor.ID {
			return nil
		}
	}
	return ErrForbidden
}

// CanInterrupt is the broader rule: unit heads and the secretariat may cut
// an approved leave short, and the deputy director needs no substitute
// designation for this action.
func (a *Authz) CanInterrupt(actor auth.Actor) error {
	if actor.HasAnyRole(auth.RoleDirector, auth.RoleDeputyDirector, auth.RoleUnitHead, auth.RoleSecretariat) {
		return nil
	}
	return ErrForbidden
}

// CanListAll reports whether the actor may see requests other than their
// own. Administration of accounts and balances is a separate concern;
// an administrator role on its own grants no view of the request list.
func CanListAll(actor auth.Actor) bool {
	return actor.HasAnyRole(auth.RoleDirector, auth.RoleDeputyDirector,
		auth.RoleUnitHead, auth.RoleSecretariat)
}
