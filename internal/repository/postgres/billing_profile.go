package postgres

import (
	"context"
	"encoding/json"
	"time"

	"govdoc/pkg/domain"
	"govdoc/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BillingProfileRepository stores the user's reusable billing identities.
// The optional address is embedded as JSON rather than joined; profiles are
// read whole and matched in memory.
type BillingProfileRepository struct {
	db *sqlx.DB
}

func NewBillingProfileRepository(db *sqlx.DB) *BillingProfileRepository {
	return &BillingProfileRepository{db: db}
}

type billingProfileRow struct {
	ID             uuid.UUID       `db:"id"`
	IsCompany      bool            `db:"is_company"`
	FirstName      string          `db:"first_name"`
	LastName       string          `db:"last_name"`
	NationalID     string          `db:"national_id"`
	CompanyName    string          `db:"company_name"`
	RegistrationID string          `db:"registration_id"`
	TaxID          string          `db:"tax_id"`
	BankName       string          `db:"bank_name"`
	IBAN           string          `db:"iban"`
	Address        json.RawMessage `db:"address"`
	IsDefault      bool            `db:"is_default"`
}

func (row *billingProfileRow) toDomain() (domain.BillingProfile, error) {
	profile := domain.BillingProfile{
		ID:             row.ID,
		IsCompany:      row.IsCompany,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		NationalID:     row.NationalID,
		CompanyName:    row.CompanyName,
		RegistrationID: row.RegistrationID,
		TaxID:          row.TaxID,
		BankName:       row.BankName,
		IBAN:           row.IBAN,
		IsDefault:      row.IsDefault,
	}
	if len(row.Address) > 0 && string(row.Address) != "null" {
		var addr domain.Address
		if err := json.Unmarshal(row.Address, &addr); err != nil {
			return profile, errors.Wrap(err, "failed to decode profile address")
		}
		profile.Address = &addr
	}
	return profile, nil
}

func (r *BillingProfileRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.BillingProfile, error) {
	query := `
		SELECT id, is_company, first_name, last_name, national_id,
		       company_name, registration_id, tax_id, bank_name, iban,
		       address, is_default
		FROM customer_schema.billing_profiles
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	var rows []billingProfileRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "failed to list billing profiles")
	}

	profiles := make([]domain.BillingProfile, 0, len(rows))
	for i := range rows {
		profile, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

func (r *BillingProfileRepository) Insert(ctx context.Context, userID uuid.UUID, profile *domain.BillingProfile) error {
	address, err := encodeProfileAddress(profile)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO customer_schema.billing_profiles (
			id, user_id, is_company, first_name, last_name, national_id,
			company_name, registration_id, tax_id, bank_name, iban,
			address, is_default, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		profile.ID, userID, profile.IsCompany, profile.FirstName, profile.LastName,
		profile.NationalID, profile.CompanyName, profile.RegistrationID,
		profile.TaxID, profile.BankName, profile.IBAN, address, profile.IsDefault,
		time.Now(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert billing profile")
	}

	return nil
}

func (r *BillingProfileRepository) Update(ctx context.Context, userID uuid.UUID, profile *domain.BillingProfile) error {
	address, err := encodeProfileAddress(profile)
	if err != nil {
		return err
	}

	query := `
		UPDATE customer_schema.billing_profiles
		SET is_company = $1, first_name = $2, last_name = $3, national_id = $4,
		    company_name = $5, registration_id = $6, tax_id = $7,
		    bank_name = $8, iban = $9, address = $10, is_default = $11,
		    updated_at = $12
		WHERE id = $13 AND user_id = $14
	`

	result, err := r.db.ExecContext(ctx, query,
		profile.IsCompany, profile.FirstName, profile.LastName, profile.NationalID,
		profile.CompanyName, profile.RegistrationID, profile.TaxID,
		profile.BankName, profile.IBAN, address, profile.IsDefault, time.Now(),
		profile.ID, userID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update billing profile")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to update billing profile")
	}
	if affected == 0 {
		return errors.ErrBillingProfileNotFound
	}

	return nil
}

func encodeProfileAddress(profile *domain.BillingProfile) ([]byte, error) {
	if profile.Address == nil {
		return nil, nil
	}
	data, err := json.Marshal(profile.Address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode profile address")
	}
	return data, nil
}
