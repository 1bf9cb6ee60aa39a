package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"categoryId,omitempty"`
}

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleDelivery Role = "Delivery"
	RoleStaff    Role = "Staff"
	RoleUnknown  Role = ""
)

// ParseRole maps a directory role name to a Role, ignoring case and surrounding space.
func ParseRole(name string) Role {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "admin":
		return RoleAdmin
	case "delivery":
		return RoleDelivery
	case "staff":
		return RoleStaff
	default:
		return RoleUnknown
	}
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

type DeliveryAgent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (u User) IsDeliveryAgent() bool { return u.Role == RoleDelivery }

func (u User) Agent() DeliveryAgent {
	return DeliveryAgent{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UnmarshalText normalises role names from directories that do not agree on case.
func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}
