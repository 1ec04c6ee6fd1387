package review

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/pagination"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

var (
	ErrNotFound        = errors.New("review not found")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrAlreadyApproved = errors.New("you have already reviewed this product")
	ErrNotesRequired   = errors.New("notes are required when rejecting a review")
	ErrInvalidStatus   = errors.New("invalid review status")
)

type Review struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	UserName    string        `json:"user_name"`
	ProductID   uuid.UUID     `json:"product_id"`
	ProductName string        `json:"product_name"`
	Rating      int           `json:"rating"`
	Comment     string        `json:"comment"`
	Status      Status        `json:"status"`
	AdminNotes  string        `json:"admin_notes,omitempty"`
	ModeratedBy uuid.NullUUID `json:"moderated_by"`
	ModeratedAt *time.Time    `json:"moderated_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Input struct {
	Rating  int
	Comment string
}

func (in Input) Validate() error {
	if in.Rating < 1 || in.Rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

type ListFilter struct {
	ProductID *uuid.UUID
	UserID    *uuid.UUID
	Status    Status
	Page      pagination.Params
}
