package model

import "fmt"

// Role classifies a requester account.
type Role int

const (
	RoleStudent Role = iota
	RoleStaff
	RoleSecurity
	RoleAdmin
)

// User is a requester account. Credentials and profile management belong to
// the identity collaborator; the dispatch engine only reads the identity.
type User struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
	Username      string `json:"username"`
	PasswordHash  string `json:"-"`
	Role          Role   `json:"role"`
}

// String returns a human-readable representation of the role.
func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "STUDENT"
	case RoleStaff:
		return "STAFF"
	case RoleSecurity:
		return "SECURITY"
	case RoleAdmin:
		return "ADMIN"
	default:
		return "unknown"
	}
}

// ParseRole converts the wire representation back to a role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "STUDENT":
		return RoleStudent, nil
	case "STAFF":
		return RoleStaff, nil
	case "SECURITY":
		return RoleSecurity, nil
	case "ADMIN":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// MarshalJSON encodes the role as its string form.
func (r Role) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON decodes the string form, rejecting unknown values.
func (r *Role) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("role must be a string")
	}
	v, err := ParseRole(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
