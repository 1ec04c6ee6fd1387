package user

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         authz.Role `json:"role"`
	Phone        string     `json:"phone"`
	Address      string     `json:"address"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == authz.RoleAdmin
}

type ProfileUpdate struct {
	Name    string
	Phone   string
	Address string
}

// AdminUpdate carries the fields an administrator may change. Nil means unchanged.
type AdminUpdate struct {
	Role     *authz.Role
	IsActive *bool
}

type ListFilter struct {
	Search string
	Role   authz.Role
	Page   pagination.Params
}
