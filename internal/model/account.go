package model

import "time"

// Role is a credential role. Each role verifies tokens with its own secret.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleCustomer  Role = "customer"
	RoleDeliverer Role = "deliverer"
	RolePartner   Role = "partner"
	RoleAdmin     Role = "admin"
)

// Roles lists every role in the order secrets are configured.
var Roles = []Role{RoleAnonymous, RoleCustomer, RoleDeliverer, RolePartner, RoleAdmin}

func (r Role) String() string { return string(r) }

// DefaultCountryCode is used when a registration omits one.
const DefaultCountryCode = "221"

// Account represents a marketplace login identity
type Account struct {
	ID           string    `json:"id"`
	Email        *string   `json:"email,omitempty"`
	Username     *string   `json:"username,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	CountryCode  string    `json:"countryCode"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"` // Never serialized
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the verified subject of a request.
type Identity struct {
	Subject string
	Role    Role
}

// IsAdmin reports whether the identity verified under the admin secret.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// RegisterRequest is used for creating a new account
type RegisterRequest struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone" binding:"omitempty,phone"`
	Username    *string `json:"username" binding:"omitempty,min=3,max=32"`
	CountryCode string  `json:"countryCode" binding:"omitempty,numeric,max=4"`
	Password    string  `json:"password" binding:"required,min=8,max=24"`
	Role        Role    `json:"role" binding:"required,oneof=customer deliverer partner admin"`
}

// LoginRequest accepts either an email or a phone number as login.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register, login and anonymous token issuance.
type AuthResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account,omitempty"`
}
