package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/repositories"
)

// PostgresBookRepository implements BookRepository using PostgreSQL.
type PostgresBookRepository struct {
	db *sql.DB
}

// NewPostgresBookRepository creates a new PostgreSQL book repository.
func NewPostgresBookRepository(db *sql.DB) repositories.BookRepository {
	return &PostgresBookRepository{db: db}
}

const bookColumns = `id, title, author_id, isbn, genre, total_copies, available_copies, publisher, page_count`

func scanBook(scanner interface{ Scan(dest ...any) error }) (*entities.Book, error) {
	var book entities.Book
	var authorID sql.NullInt64

	err := scanner.Scan(
		&book.ID, &book.Title, &authorID, &book.ISBN, &book.Genre,
		&book.TotalCopies, &book.AvailableCopies, &book.Publisher, &book.PageCount,
	)
	if err != nil {
		return nil, err
	}

	if authorID.Valid {
		book.AuthorID = authorID.Int64
	}

	return &book, nil
}

// nullableAuthorID maps the zero AuthorID to a SQL NULL foreign key.
func nullableAuthorID(book *entities.Book) sql.NullInt64 {
	return sql.NullInt64{Int64: book.AuthorID, Valid: book.AuthorID != 0}
}

// Create inserts a new book and fills in its generated id.
func (r *PostgresBookRepository) Create(ctx context.Context, book *entities.Book) error {
	query := `
		INSERT INTO books (title, author_id, isbn, genre, total_copies, available_copies, publisher, page_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		book.Title, nullableAuthorID(book), book.ISBN, book.Genre,
		book.TotalCopies, book.AvailableCopies, book.Publisher, book.PageCount,
	).Scan(&book.ID)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

// GetByID retrieves one book.
func (r *PostgresBookRepository) GetByID(ctx context.Context, id int64) (*entities.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	book, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return book, nil
}

// List retrieves books ordered by id.
func (r *PostgresBookRepository) List(ctx context.Context, opts repositories.ListOptions) ([]*entities.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY id LIMIT $1 OFFSET $2`

	return r.queryBooks(ctx, "failed to list books", query, opts.EffectiveLimit(), opts.Offset)
}

// Update overwrites an existing book.
func (r *PostgresBookRepository) Update(ctx context.Context, book *entities.Book) error {
	query := `
		UPDATE books
		SET title = $2, author_id = $3, isbn = $4, genre = $5,
			total_copies = $6, available_copies = $7, publisher = $8, page_count = $9
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		book.ID, book.Title, nullableAuthorID(book), book.ISBN, book.Genre,
		book.TotalCopies, book.AvailableCopies, book.Publisher, book.PageCount,
	)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	return requireOneAffected(result)
}

// Delete removes a book.
func (r *PostgresBookRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	return requireOneAffected(result)
}

// AdjustAvailableCopies adds delta to a book's available copies, clamped at zero.
func (r *PostgresBookRepository) AdjustAvailableCopies(ctx context.Context, id int64, delta int) error {
	query := `
		UPDATE books
		SET available_copies = GREATEST(available_copies + $2, 0)
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust available copies: %w", err)
	}

	return requireOneAffected(result)
}

// ListMissingMetadata retrieves books without externally sourced metadata.
func (r *PostgresBookRepository) ListMissingMetadata(ctx context.Context, opts repositories.ListOptions) ([]*entities.Book, error) {
	query := `
		SELECT ` + bookColumns + `
		FROM books
		WHERE publisher = '' OR page_count = 0
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	return r.queryBooks(ctx, "failed to list books missing metadata", query, opts.EffectiveLimit(), opts.Offset)
}

// SetMetadata stores externally fetched metadata for a book.
func (r *PostgresBookRepository) SetMetadata(ctx context.Context, id int64, publisher string, pageCount int) error {
	query := `UPDATE books SET publisher = $2, page_count = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, publisher, pageCount)
	if err != nil {
		return fmt.Errorf("failed to set book metadata: %w", err)
	}

	return requireOneAffected(result)
}

func (r *PostgresBookRepository) queryBooks(ctx context.Context, failMsg, query string, args ...any) ([]*entities.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", failMsg, err)
	}
	defer rows.Close()

	var books []*entities.Book
	for rows.Next() {
		book, scanErr := scanBook(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan book: %w", scanErr)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}
