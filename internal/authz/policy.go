// Package authz holds the single authorization policy evaluated before every
// guarded operation. Handlers never compare roles themselves.
package authz

import (
	"context"
	"errors"

	"github.com/gofrs/uuid"
)

var ErrForbidden = errors.New("forbidden")

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

func (r Role) String() string {
	return string(r)
}

type Capability string

const (
	ManageCatalog   Capability = "catalog:manage"
	ManageUsers     Capability = "users:manage"
	ModerateReviews Capability = "reviews:moderate"
	ManageOrders    Capability = "orders:manage"
	ViewAllOrders   Capability = "orders:view-all"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID  uuid.UUID
	Role    Role
	TokenID uuid.UUID
}

type Policy struct {
	grants map[Role]map[Capability]bool
}

func NewPolicy() *Policy {
	return &Policy{
		grants: map[Role]map[Capability]bool{
			RoleAdmin: {
				ManageCatalog:   true,
				ManageUsers:     true,
				ModerateReviews: true,
				ManageOrders:    true,
				ViewAllOrders:   true,
			},
			RoleUser: {},
		},
	}
}

func (p *Policy) Can(actor *Actor, capability Capability) bool {
	if actor == nil {
		return false
	}
	return p.grants[actor.Role][capability]
}

// CanAccessOrder reports whether actor may read or cancel an order owned by ownerID.
func (p *Policy) CanAccessOrder(actor *Actor, ownerID uuid.UUID) bool {
	if actor == nil {
		return false
	}
	return actor.UserID == ownerID || p.Can(actor, ViewAllOrders)
}

// CanModifyReview reports whether actor may delete a review written by authorID.
func (p *Policy) CanModifyReview(actor *Actor, authorID uuid.UUID) bool {
	if actor == nil {
		return false
	}
	return actor.UserID == authorID || p.Can(actor, ModerateReviews)
}

// CanEditReview reports whether actor may change the rating or comment of a review.
// Only the author may; moderators approve or reject instead.
func (p *Policy) CanEditReview(actor *Actor, authorID uuid.UUID) bool {
	return actor != nil && actor.UserID == authorID
}

type actorKey struct{}

func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(*Actor)
	return actor, ok && actor != nil
}
