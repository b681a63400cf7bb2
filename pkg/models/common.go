package models

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Role is the closed set of actor kinds. Free-form role strings from the
// outside world go through ParseRole before they reach any business logic.
type Role string

const (
	RoleManager  Role = `manager`
	RoleEmployee Role = `employee`
	RoleAdmin    Role = `admin`
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleManager, RoleEmployee, RoleAdmin:
		return r, nil
	default:
		return "", NewValidationError("unknown role %q", s)
	}
}

type Claims struct {
	jwt.RegisteredClaims
	UserID int  `json:"userID"`
	Role   Role `json:"role"`
}

// Actor is the pre-authenticated identity attached to every request.
type Actor struct {
	ID   int
	Role Role
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%d", a.Role, a.ID)
}
