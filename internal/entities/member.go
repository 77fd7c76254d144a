package entities

import "time"

// Member represents a registered library member.
type Member struct {
	ID             int64
	Name           string
	Email          string
	MembershipDate time.Time
}

// EntityType implements relate.Entity.
func (m *Member) EntityType() string { return TypeMember }

// EntityID implements relate.Entity.
func (m *Member) EntityID() string { return FormatID(m.ID) }
