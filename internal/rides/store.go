package rides

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists ride records. Transition and SetFeedback are conditional
// writes: they return errConflict when the precondition no longer holds.
type Store interface {
	// Create inserts r with status requested. The store assigns ID,
	// Version, CreatedAt and UpdatedAt and writes them back into r.
	Create(ctx context.Context, r *Ride) error

	Get(ctx context.Context, id string) (*Ride, error)

	// ListByPassenger returns the passenger's rides, newest first.
	ListByPassenger(ctx context.Context, passengerID string) ([]Ride, error)

	// ActiveByDriver returns the driver's ride that is not yet completed or
	// cancelled, or ErrNotFound.
	ActiveByDriver(ctx context.Context, driverID string) (*Ride, error)

	// Transition moves the ride from -> to only if it is currently in from.
	// A non-nil driver is written alongside the status.
	Transition(ctx context.Context, id string, from, to Status, driver *DriverInfo) (*Ride, error)

	// SetFeedback writes rating and comment only if the ride is completed
	// and not yet rated.
	SetFeedback(ctx context.Context, id string, rating int, comment string) (*Ride, error)
}

const rideColumns = `id::text, passenger_id::text, pickup, destination, vehicle_class,
	vehicle_name, vehicle_image, fare, eta, status, driver_id::text, driver_name,
	driver_photo_url, license_plate, passenger_rating, passenger_feedback,
	feedback_at, version, created_at, updated_at`

// PostgresStore is the pgx implementation of Store.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) Create(ctx context.Context, r *Ride) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO rides (passenger_id,pickup,destination,vehicle_class,vehicle_name,vehicle_image,fare,eta,status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id::text, version, created_at, updated_at`,
		r.PassengerID, r.Pickup, r.Destination, r.VehicleClass,
		r.VehicleName, r.VehicleImage, r.Fare, r.ETA, StatusRequested).
		Scan(&r.ID, &r.Version, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert ride: %v", ErrUnavailable, err)
	}
	r.Status = StatusRequested
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Ride, error) {
	row := s.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id=$1`, id)
	return scanRide(row)
}

func (s *PostgresStore) ListByPassenger(ctx context.Context, passengerID string) ([]Ride, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE passenger_id=$1 ORDER BY created_at DESC`, passengerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list rides: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	out := []Ride{}
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list rides: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (s *PostgresStore) ActiveByDriver(ctx context.Context, driverID string) (*Ride, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+rideColumns+` FROM rides
		 WHERE driver_id=$1 AND status NOT IN ($2,$3)
		 ORDER BY created_at DESC LIMIT 1`,
		driverID, StatusCompleted, StatusCancelled)
	return scanRide(row)
}

func (s *PostgresStore) Transition(ctx context.Context, id string, from, to Status, driver *DriverInfo) (*Ride, error) {
	var driverID, driverName, driverPhoto, plate *string
	if driver != nil {
		driverID, driverName, driverPhoto, plate = &driver.ID, &driver.Name, &driver.PhotoURL, &driver.LicensePlate
	}

	row := s.db.QueryRow(ctx,
		`UPDATE rides SET
			status           = $3,
			driver_id        = COALESCE($4::uuid, driver_id),
			driver_name      = COALESCE($5::text, driver_name),
			driver_photo_url = COALESCE($6::text, driver_photo_url),
			license_plate    = COALESCE($7::text, license_plate),
			version          = version + 1,
			updated_at       = NOW()
		 WHERE id=$1 AND status=$2
		 RETURNING `+rideColumns,
		id, from, to, driverID, driverName, driverPhoto, plate)
	r, err := scanRide(row)
	if errors.Is(err, ErrNotFound) {
		return nil, errConflict
	}
	return r, err
}

func (s *PostgresStore) SetFeedback(ctx context.Context, id string, rating int, comment string) (*Ride, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE rides SET
			passenger_rating   = $2,
			passenger_feedback = $3,
			feedback_at        = NOW(),
			version            = version + 1,
			updated_at         = NOW()
		 WHERE id=$1 AND status=$4 AND passenger_rating IS NULL
		 RETURNING `+rideColumns,
		id, rating, comment, StatusCompleted)
	r, err := scanRide(row)
	if errors.Is(err, ErrNotFound) {
		return nil, errConflict
	}
	return r, err
}

func scanRide(row pgx.Row) (*Ride, error) {
	var r Ride
	err := row.Scan(
		&r.ID, &r.PassengerID, &r.Pickup, &r.Destination, &r.VehicleClass,
		&r.VehicleName, &r.VehicleImage, &r.Fare, &r.ETA, &r.Status, &r.DriverID, &r.DriverName,
		&r.DriverPhotoURL, &r.LicensePlate, &r.PassengerRating, &r.PassengerFeedback,
		&r.FeedbackAt, &r.Version, &r.CreatedAt, &r.UpdatedAt)
	if err == nil {
		return &r, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	// A malformed uuid can never name a stored ride.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
}
