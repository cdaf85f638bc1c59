package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/facility"
)

type facilityRepository struct {
	repository
}

var _ facility.Repository = (*facilityRepository)(nil) // interface compliance check

func NewFacilityRepository(exec core.DBExecutor) *facilityRepository {
	return &facilityRepository{repository{exec: exec}}
}

func (repo facilityRepository) GetFacility(ctx context.Context, id string, exec ...core.DBExecutor) (facility.Facility, error) {
	if !validID(id) {
		return facility.Facility{}, facility.ErrNotFound
	}
	var f facility.Facility
	query := `SELECT id, name, display_name, logo_url, address, phone, email, opening_hours, info_text
		FROM facilities WHERE id = $1`
	if err := repo.getExec(exec).QueryRowxContext(ctx, query, id).Scan(
		&f.ID, &f.Name, &f.DisplayName, &f.LogoURL, &f.Address, &f.Phone, &f.Email, &f.OpeningHours, &f.InfoText,
	); err != nil {
		return facility.Facility{}, trapNoRowsErr(err, facility.ErrNotFound, "finding facility")
	}
	return f, nil
}

func (repo facilityRepository) UpsertFacility(ctx context.Context, f facility.Facility, exec ...core.DBExecutor) (facility.Facility, error) {
	query := `INSERT INTO facilities (id, name, display_name, logo_url, address, phone, email, opening_hours, info_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, display_name = EXCLUDED.display_name, logo_url = EXCLUDED.logo_url,
			address = EXCLUDED.address, phone = EXCLUDED.phone, email = EXCLUDED.email,
			opening_hours = EXCLUDED.opening_hours, info_text = EXCLUDED.info_text, updated_at = now()`
	if _, err := repo.getExec(exec).ExecContext(ctx, query,
		f.ID, f.Name, f.DisplayName, f.LogoURL, f.Address, f.Phone, f.Email, f.OpeningHours, f.InfoText,
	); err != nil {
		return facility.Facility{}, errors.Wrap(err, "upserting facility")
	}
	return f, nil
}

func (repo facilityRepository) QueryCodes(ctx context.Context, facilityID string, exec ...core.DBExecutor) ([]facility.RegistrationCode, error) {
	codes := make([]facility.RegistrationCode, 0, 3)
	if !validID(facilityID) {
		return codes, nil
	}
	query := "SELECT facility_id, role, code FROM registration_codes WHERE facility_id = $1"
	rows, err := repo.getExec(exec).QueryxContext(ctx, query, facilityID)
	if err != nil {
		return nil, errors.Wrap(err, "querying registration codes")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var c facility.RegistrationCode
		if err = rows.Scan(&c.FacilityID, &c.Role, &c.Code); err != nil {
			return nil, errors.Wrap(err, "scanning registration code")
		}
		codes = append(codes, c)
	}
	return codes, errors.Wrap(rows.Err(), "querying registration codes")
}

func (repo facilityRepository) UpsertCodes(ctx context.Context, codes []facility.RegistrationCode, exec ...core.DBExecutor) error {
	query := `INSERT INTO registration_codes (facility_id, role, code) VALUES ($1, $2, $3)
		ON CONFLICT (facility_id, role) DO UPDATE SET code = EXCLUDED.code, updated_at = now()`
	exe := repo.getExec(exec)
	for _, c := range codes {
		if _, err := exe.ExecContext(ctx, query, c.FacilityID, c.Role, c.Code); err != nil {
			return errors.Wrapf(err, "upserting %s registration code", c.Role)
		}
	}
	return nil
}
