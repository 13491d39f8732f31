package models

import "fmt"

// Role is the application-level role a user acts under.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
	RoleRecipient Role = "recipient"
)

var validRoles = []Role{
	RoleDonor,
	RoleVolunteer,
	RoleRecipient,
}

// DefaultRole is assigned when sign-up metadata carries no usable role.
const DefaultRole = RoleRecipient

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// Roles returns every known role in display order.
func Roles() []Role {
	out := make([]Role, len(validRoles))
	copy(out, validRoles)
	return out
}

// Status is the lifecycle state of a donation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in-progress"
	StatusDelivered  Status = "delivered"
	StatusCompleted  Status = "completed"
)

var validStatuses = []Status{
	StatusPending,
	StatusAccepted,
	StatusInProgress,
	StatusDelivered,
	StatusCompleted,
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Status.
func (s Status) IsValid() bool {
	for _, candidate := range validStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStatus converts raw input into a Status.
func ParseStatus(value string) (Status, error) {
	for _, candidate := range validStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid status %q", value)
}

// Statuses returns every known status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(validStatuses))
	copy(out, validStatuses)
	return out
}

// CanTransition reports whether a donation may move from one status to another.
//
//	pending     -> accepted
//	accepted    -> in-progress | delivered
//	in-progress -> delivered
//	delivered   -> completed
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusAccepted
	case StatusAccepted:
		return to == StatusInProgress || to == StatusDelivered
	case StatusInProgress:
		return to == StatusDelivered
	case StatusDelivered:
		return to == StatusCompleted
	case StatusCompleted:
		return false
	default:
		return false
	}
}

// EventOp identifies the kind of change delivered by the donation feed.
type EventOp string

const (
	EventInsert EventOp = "INSERT"
	EventUpdate EventOp = "UPDATE"
	EventDelete EventOp = "DELETE"
	// EventResync tells subscribers that changes may have been missed and the
	// full list must be reloaded.
	EventResync EventOp = "RESYNC"
)

