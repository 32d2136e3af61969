package model

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleAdmin     UserRole = "ADMIN"
	UserRoleOrganizer UserRole = "EVENT_ORGANIZER"
	UserRoleCustomer  UserRole = "CUSTOMER"
)

// User 使用者模型
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	PhoneNumber  string    `json:"phone_number,omitempty" db:"phone_number"`
	Role         UserRole  `json:"role" db:"role"`
	Active       bool      `json:"active" db:"active"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

func NewUser(email, firstName, lastName, phone string, role UserRole, now time.Time) *User {
	if role == "" {
		role = UserRoleCustomer
	}
	return &User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PhoneNumber:  phone,
		Role:         role,
		Active:       true,
		RegisteredAt: now,
	}
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// CreateUserRequest 創建使用者請求
type CreateUserRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	FirstName   string   `json:"first_name" validate:"required,max=100"`
	LastName    string   `json:"last_name" validate:"required,max=100"`
	PhoneNumber string   `json:"phone_number" validate:"omitempty,max=32"`
	Role        UserRole `json:"role" validate:"omitempty,oneof=ADMIN EVENT_ORGANIZER CUSTOMER"`
}
