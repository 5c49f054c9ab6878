package model

// Well-known identifier types.
const (
	IdentifierID       = "$id"
	IdentifierUserID   = "$userId"
	IdentifierDeviceID = "$deviceId"
)

// User is the resolved subject of an evaluation.
// It must not be mutated while an evaluation is running.
type User struct {
	Identifiers map[string]string
	Properties  map[string]any
}

// Identifier returns the identifier value for identifierType.
func (u User) Identifier(identifierType string) (string, bool) {
	v, ok := u.Identifiers[identifierType]
	return v, ok
}
