package entities

// Genre values accepted for a book.
const (
	GenreFiction    = "fiction"
	GenreNonFiction = "nonfiction"
	GenreSciFi      = "sci-fi"
	GenreBiography  = "biography"
)

// ValidGenre reports whether the given genre is one of the accepted values.
func ValidGenre(genre string) bool {
	switch genre {
	case GenreFiction, GenreNonFiction, GenreSciFi, GenreBiography:
		return true
	default:
		return false
	}
}

// Book represents a book in the library inventory. AuthorID zero means the
// book has no author on record. Publisher and PageCount are filled in by the
// metadata-fetch job and may be empty until it has run.
type Book struct {
	ID              int64
	Title           string
	AuthorID        int64
	ISBN            string
	Genre           string
	TotalCopies     int
	AvailableCopies int
	Publisher       string
	PageCount       int
}

// EntityType implements relate.Entity.
func (b *Book) EntityType() string { return TypeBook }

// EntityID implements relate.Entity.
func (b *Book) EntityID() string { return FormatID(b.ID) }

// HasMetadata reports whether the metadata-fetch job has filled in the
// externally sourced fields.
func (b *Book) HasMetadata() bool {
	return b.Publisher != "" && b.PageCount > 0
}
