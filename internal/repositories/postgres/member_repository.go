package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pagekeep/pagekeep/internal/entities"
	"github.com/pagekeep/pagekeep/internal/repositories"
)

// PostgresMemberRepository implements MemberRepository using PostgreSQL.
type PostgresMemberRepository struct {
	db *sql.DB
}

// NewPostgresMemberRepository creates a new PostgreSQL member repository.
func NewPostgresMemberRepository(db *sql.DB) repositories.MemberRepository {
	return &PostgresMemberRepository{db: db}
}

// Create inserts a new member and fills in its generated id.
func (r *PostgresMemberRepository) Create(ctx context.Context, member *entities.Member) error {
	query := `
		INSERT INTO members (name, email, membership_date)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		member.Name, member.Email, member.MembershipDate,
	).Scan(&member.ID)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

// GetByID retrieves one member.
func (r *PostgresMemberRepository) GetByID(ctx context.Context, id int64) (*entities.Member, error) {
	query := `
		SELECT id, name, email, membership_date
		FROM members
		WHERE id = $1
	`
	var member entities.Member
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&member.ID, &member.Name, &member.Email, &member.MembershipDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return &member, nil
}

// List retrieves members ordered by id.
func (r *PostgresMemberRepository) List(ctx context.Context, opts repositories.ListOptions) ([]*entities.Member, error) {
	query := `
		SELECT id, name, email, membership_date
		FROM members
		ORDER BY id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, opts.EffectiveLimit(), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*entities.Member
	for rows.Next() {
		var member entities.Member
		if err := rows.Scan(&member.ID, &member.Name, &member.Email, &member.MembershipDate); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// Update overwrites an existing member.
func (r *PostgresMemberRepository) Update(ctx context.Context, member *entities.Member) error {
	query := `
		UPDATE members
		SET name = $2, email = $3, membership_date = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		member.ID, member.Name, member.Email, member.MembershipDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}

	return requireOneAffected(result)
}

// Delete removes a member.
func (r *PostgresMemberRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	return requireOneAffected(result)
}
