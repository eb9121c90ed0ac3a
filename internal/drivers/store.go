package drivers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dispatch-service/internal/users"
	"dispatch-service/pkg/jwt"
)

// Store persists drivers.
type Store interface {
	// Register creates the user account and the driver row together and
	// writes the generated ID and CreatedAt back into d.
	Register(ctx context.Context, d *Driver, passwordHash string) error
	GetByID(ctx context.Context, id string) (*Driver, error)
	SetOnline(ctx context.Context, id string, online bool) error
}

// PostgresStore is the pgx implementation of Store.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) Register(ctx context.Context, d *Driver, passwordHash string) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		u := &users.User{
			Name:         d.Name,
			Email:        d.Email,
			Phone:        d.Phone,
			Role:         jwt.RoleDriver,
			Provider:     users.ProviderPassword,
			PasswordHash: passwordHash,
		}
		if err := users.InsertTx(ctx, tx, u); err != nil {
			return err
		}
		d.ID, d.CreatedAt = u.ID, u.CreatedAt

		_, err := tx.Exec(ctx,
			`INSERT INTO drivers (id,vehicle_make,vehicle_model,vehicle_year,vehicle_color,license_plate,
			                      licence_number,licence_expiry,vehicle_class,photo_url)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			d.ID, d.VehicleMake, d.VehicleModel, d.VehicleYear, d.VehicleColor, d.LicensePlate,
			d.LicenceNumber, d.LicenceExpiry, d.VehicleClass, d.PhotoURL)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrPlateTaken
		}
		if err != nil {
			return fmt.Errorf("%w: insert driver: %v", ErrUnavailable, err)
		}
		return nil
	})
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Driver, error) {
	var d Driver
	err := s.db.QueryRow(ctx,
		`SELECT d.id::text, u.name, u.email, u.phone, d.photo_url, d.vehicle_make, d.vehicle_model,
		        d.vehicle_year, d.vehicle_color, d.license_plate, d.licence_number,
		        to_char(d.licence_expiry,'YYYY-MM-DD'), d.vehicle_class, d.online, d.created_at
		 FROM drivers d JOIN users u ON u.id = d.id
		 WHERE d.id=$1`, id).
		Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.PhotoURL, &d.VehicleMake, &d.VehicleModel,
			&d.VehicleYear, &d.VehicleColor, &d.LicensePlate, &d.LicenceNumber,
			&d.LicenceExpiry, &d.VehicleClass, &d.Online, &d.CreatedAt)
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
	return &d, nil
}

func (s *PostgresStore) SetOnline(ctx context.Context, id string, online bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE drivers SET online=$2 WHERE id=$1`, id, online)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
