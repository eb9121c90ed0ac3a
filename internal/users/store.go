package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists user profiles.
type Store interface {
	// Create inserts u and writes the generated ID and CreatedAt back.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByProvider(ctx context.Context, provider, subject string) (*User, error)
	UpdateProfile(ctx context.Context, id, name, phone, pictureURL string) (*User, error)
}

const userColumns = `id::text, name, email, phone, profile_picture_url, role, provider,
	COALESCE(provider_subject,''), COALESCE(password_hash,''), disabled, created_at`

// PostgresStore is the pgx implementation of Store.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (name,email,phone,profile_picture_url,role,provider,provider_subject,password_hash)
		 VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),NULLIF($8,''))
		 RETURNING id::text, created_at`,
		u.Name, u.Email, u.Phone, u.ProfilePictureURL, u.Role, u.Provider, u.ProviderSubject, u.PasswordHash).
		Scan(&u.ID, &u.CreatedAt)
	return mapWriteError(err)
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email))
}

func (s *PostgresStore) GetByProvider(ctx context.Context, provider, subject string) (*User, error) {
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider=$1 AND provider_subject=$2`, provider, subject))
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id, name, phone, pictureURL string) (*User, error) {
	return scanUser(s.db.QueryRow(ctx,
		`UPDATE users SET name=$2, phone=$3, profile_picture_url=$4 WHERE id=$1
		 RETURNING `+userColumns, id, name, phone, pictureURL))
}

// InsertTx creates a user inside an existing transaction. Driver
// onboarding uses it to create the account and the driver row atomically.
func InsertTx(ctx context.Context, tx pgx.Tx, u *User) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO users (name,email,phone,role,provider,password_hash)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING id::text, created_at`,
		u.Name, u.Email, u.Phone, u.Role, u.Provider, u.PasswordHash).
		Scan(&u.ID, &u.CreatedAt)
	return mapWriteError(err)
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.ProfilePictureURL, &u.Role,
		&u.Provider, &u.ProviderSubject, &u.PasswordHash, &u.Disabled, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &u, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
