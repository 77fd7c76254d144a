package entities

// Author represents a book author.
type Author struct {
	ID        int64
	FirstName string
	LastName  string
	Biography string
}

// EntityType implements relate.Entity.
func (a *Author) EntityType() string { return TypeAuthor }

// EntityID implements relate.Entity.
func (a *Author) EntityID() string { return FormatID(a.ID) }

// FullName returns the author's display name.
func (a *Author) FullName() string {
	return a.FirstName + " " + a.LastName
}
