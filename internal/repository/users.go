package repository

import (
	"context"
	"database/sql"

	"tessera/internal/database"
	"tessera/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, first_name, surname, role, is_active, registered_at
		FROM users
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.Surname,
		&user.Role,
		&user.IsActive,
		&user.RegisteredAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, first_name, surname, role, is_active, registered_at
		FROM users
		WHERE email = $1`

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.Surname,
		&user.Role,
		&user.IsActive,
		&user.RegisteredAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, first_name, surname, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, registered_at`

	return r.db.QueryRowContext(ctx, query,
		user.Email,
		user.FirstName,
		user.Surname,
		user.Role,
		user.IsActive,
	).Scan(&user.ID, &user.RegisteredAt)
}
