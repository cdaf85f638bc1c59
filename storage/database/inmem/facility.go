package inmemdb

import (
	"context"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/facility"
)

type facilityRepository struct {
	db *DB
}

var _ facility.Repository = (*facilityRepository)(nil) // interface compliance check

func NewFacilityRepository(db *DB) *facilityRepository {
	return &facilityRepository{db: db}
}

func (repo *facilityRepository) GetFacility(_ context.Context, id string, _ ...core.DBExecutor) (facility.Facility, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if f, ok := repo.db.facilities[id]; ok {
		return f, nil
	}
	return facility.Facility{}, facility.ErrNotFound
}

func (repo *facilityRepository) UpsertFacility(_ context.Context, f facility.Facility, _ ...core.DBExecutor) (facility.Facility, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.facilities[f.ID] = f
	return f, nil
}

func (repo *facilityRepository) QueryCodes(_ context.Context, facilityID string, _ ...core.DBExecutor) ([]facility.RegistrationCode, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	codes := make([]facility.RegistrationCode, 0, 3)
	for _, c := range repo.db.codes {
		if c.FacilityID == facilityID {
			codes = append(codes, c)
		}
	}
	return codes, nil
}

func (repo *facilityRepository) UpsertCodes(_ context.Context, codes []facility.RegistrationCode, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range codes {
		repo.db.codes[key(c.FacilityID, c.Role)] = c
	}
	return nil
}
