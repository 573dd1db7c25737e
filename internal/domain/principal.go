package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Capability is what a request is allowed to do, resolved once from its
// session token.
type Capability int

const (
	CapabilityNone Capability = iota
	CapabilityUser
	CapabilityInstructor
)

func (c Capability) String() string {
	switch c {
	case CapabilityUser:
		return "user"
	case CapabilityInstructor:
		return "instructor"
	default:
		return "none"
	}
}

// Principal is the resolved identity behind a request.
type Principal struct {
	Capability   Capability
	UserID       primitive.ObjectID // set for CapabilityUser
	InstructorID string             // set for CapabilityInstructor
}

// Anonymous is the principal of a request without a valid session.
var Anonymous = Principal{Capability: CapabilityNone}

// Has reports whether the principal holds the given capability.
func (p Principal) Has(c Capability) bool {
	return c != CapabilityNone && p.Capability == c
}
