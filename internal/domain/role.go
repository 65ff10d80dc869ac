package domain

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Role is the closed set of user roles. The zero value is not a valid role.
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleUser
)

var roleWire = map[Role]string{
	RoleAdmin: "admin",
	RoleUser:  "user",
}

// Roles returns every defined role
func Roles() []Role {
	return []Role{RoleAdmin, RoleUser}
}

// String returns the wire representation of the role
func (r Role) String() string {
	if s, ok := roleWire[r]; ok {
		return s
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Valid reports whether r is one of the defined roles
func (r Role) Valid() bool {
	_, ok := roleWire[r]
	return ok
}

// ParseRole maps a wire string back to a Role
func ParseRole(s string) (Role, error) {
	for role, wire := range roleWire {
		if wire == s {
			return role, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalBSONValue stores the role as its wire string
func (r Role) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !r.Valid() {
		return 0, nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}
	return bson.MarshalValue(r.String())
}

func (r *Role) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var s string
	if err := bson.UnmarshalValue(t, data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
