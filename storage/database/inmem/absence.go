package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/absence"
)

type absenceRepository struct {
	db *DB
}

var _ absence.Repository = (*absenceRepository)(nil) // interface compliance check

func NewAbsenceRepository(db *DB) *absenceRepository {
	return &absenceRepository{db: db}
}

func (repo *absenceRepository) CreateAbsence(_ context.Context, a absence.Absence, _ ...core.DBExecutor) (absence.Absence, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = uuid.New().String()
	repo.db.absences[a.ID] = a
	return a, nil
}

func (repo *absenceRepository) GetAbsence(_ context.Context, id string, _ ...core.DBExecutor) (absence.Absence, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.absences[id]; ok {
		return a, nil
	}
	return absence.Absence{}, absence.ErrNotFound
}

func (repo *absenceRepository) QueryAbsences(_ context.Context, facilityID string, filter absence.Filter, _ ...core.DBExecutor) ([]absence.Absence, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	absences := make([]absence.Absence, 0)
	for _, a := range repo.db.absences {
		if a.FacilityID != facilityID || (filter.ChildID != "" && a.ChildID != filter.ChildID) {
			continue
		}
		absences = append(absences, a)
	}
	sort.Slice(absences, func(i, j int) bool { return absences[i].CreatedAt.After(absences[j].CreatedAt) })
	return absences, nil
}

func (repo *absenceRepository) UpdateAbsence(_ context.Context, a absence.Absence, _ ...core.DBExecutor) (absence.Absence, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.absences[a.ID]; !ok {
		return absence.Absence{}, absence.ErrNotFound
	}
	repo.db.absences[a.ID] = a
	return a, nil
}

func (repo *absenceRepository) DeleteAbsence(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.absences[id]; !ok {
		return absence.ErrNotFound
	}
	delete(repo.db.absences, id)
	for k, rs := range repo.db.readStatus {
		if rs.AbsenceID == id {
			delete(repo.db.readStatus, k)
		}
	}
	return nil
}

func (repo *absenceRepository) QueryReadStatuses(_ context.Context, userID string, _ ...core.DBExecutor) ([]absence.ReadStatus, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	statuses := make([]absence.ReadStatus, 0)
	for _, rs := range repo.db.readStatus {
		if userID == "" || rs.UserID == userID {
			statuses = append(statuses, rs)
		}
	}
	return statuses, nil
}

func (repo *absenceRepository) UpsertReadStatus(_ context.Context, rs absence.ReadStatus, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.readStatus[key(rs.AbsenceID, rs.UserID)] = rs
	return nil
}
