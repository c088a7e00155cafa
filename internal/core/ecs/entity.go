package ecs

// ID is a registry-issued entity identity. Issued ids are always positive;
// 0 means "not registered".
type ID int

// IsZero reports whether the id is the unregistered sentinel.
func (id ID) IsZero() bool { return id == 0 }

// Identifiable is the minimum an entity handle must provide to be indexed by
// a Registry: equality, and a slot for the registry to store the issued id.
type Identifiable interface {
	comparable
	ID() ID
	SetID(id ID)
}
