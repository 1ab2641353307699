package postgres

import (
	"context"
	"time"

	"govdoc/pkg/domain"
	"govdoc/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AddressRepository stores the user's shared saved-address collection.
type AddressRepository struct {
	db *sqlx.DB
}

func NewAddressRepository(db *sqlx.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

func (r *AddressRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	query := `
		SELECT id, label, country, county, city, street, street_number,
		       building, staircase, floor, apartment, postal_code, is_default
		FROM customer_schema.addresses
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	var addrs []domain.Address
	if err := r.db.SelectContext(ctx, &addrs, query, userID); err != nil {
		return nil, errors.Wrap(err, "failed to list addresses")
	}

	return addrs, nil
}

func (r *AddressRepository) Insert(ctx context.Context, userID uuid.UUID, addr *domain.Address) error {
	query := `
		INSERT INTO customer_schema.addresses (
			id, user_id, label, country, county, city, street, street_number,
			building, staircase, floor, apartment, postal_code, is_default,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		addr.ID, userID, addr.Label, addr.Country, addr.County, addr.City,
		addr.Street, addr.Number, addr.Building, addr.Staircase, addr.Floor,
		addr.Apartment, addr.PostalCode, addr.IsDefault, time.Now(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert address")
	}

	return nil
}

func (r *AddressRepository) Update(ctx context.Context, userID uuid.UUID, addr *domain.Address) error {
	query := `
		UPDATE customer_schema.addresses
		SET label = $1, country = $2, county = $3, city = $4, street = $5,
		    street_number = $6, building = $7, staircase = $8, floor = $9,
		    apartment = $10, postal_code = $11, is_default = $12, updated_at = $13
		WHERE id = $14 AND user_id = $15
	`

	result, err := r.db.ExecContext(ctx, query,
		addr.Label, addr.Country, addr.County, addr.City, addr.Street,
		addr.Number, addr.Building, addr.Staircase, addr.Floor,
		addr.Apartment, addr.PostalCode, addr.IsDefault, time.Now(),
		addr.ID, userID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update address")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to update address")
	}
	if affected == 0 {
		return errors.ErrAddressNotFound
	}

	return nil
}
