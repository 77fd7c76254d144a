// Package postgres implements the repository interfaces on PostgreSQL using
// database/sql with hand-written queries.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/repositories"
)

// PostgresAuthorRepository implements AuthorRepository using PostgreSQL.
type PostgresAuthorRepository struct {
	db *sql.DB
}

// NewPostgresAuthorRepository creates a new PostgreSQL author repository.
func NewPostgresAuthorRepository(db *sql.DB) repositories.AuthorRepository {
	return &PostgresAuthorRepository{db: db}
}

// Create inserts a new author and fills in its generated id.
func (r *PostgresAuthorRepository) Create(ctx context.Context, author *entities.Author) error {
	query := `
		INSERT INTO authors (first_name, last_name, biography)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		author.FirstName, author.LastName, author.Biography,
	).Scan(&author.ID)
	if err != nil {
		return fmt.Errorf("failed to create author: %w", err)
	}

	return nil
}

// GetByID retrieves one author.
func (r *PostgresAuthorRepository) GetByID(ctx context.Context, id int64) (*entities.Author, error) {
	query := `
		SELECT id, first_name, last_name, biography
		FROM authors
		WHERE id = $1
	`
	var author entities.Author
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&author.ID, &author.FirstName, &author.LastName, &author.Biography,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get author: %w", err)
	}

	return &author, nil
}

// List retrieves authors ordered by id.
func (r *PostgresAuthorRepository) List(ctx context.Context, opts repositories.ListOptions) ([]*entities.Author, error) {
	query := `
		SELECT id, first_name, last_name, biography
		FROM authors
		ORDER BY id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, opts.EffectiveLimit(), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	defer rows.Close()

	var authors []*entities.Author
	for rows.Next() {
		var author entities.Author
		if err := rows.Scan(&author.ID, &author.FirstName, &author.LastName, &author.Biography); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, &author)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authors: %w", err)
	}

	return authors, nil
}

// Update overwrites an existing author.
func (r *PostgresAuthorRepository) Update(ctx context.Context, author *entities.Author) error {
	query := `
		UPDATE authors
		SET first_name = $2, last_name = $3, biography = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		author.ID, author.FirstName, author.LastName, author.Biography,
	)
	if err != nil {
		return fmt.Errorf("failed to update author: %w", err)
	}

	return requireOneAffected(result)
}

// Delete removes an author.
func (r *PostgresAuthorRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete author: %w", err)
	}

	return requireOneAffected(result)
}

// requireOneAffected maps "zero rows touched" to ErrNotFound for updates and deletes.
func requireOneAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}
