package facility

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
)

var ErrNotFound = core.NewNotFoundError("facility")

type (
	Repository interface {
		GetFacility(ctx context.Context, id string, exec ...core.DBExecutor) (Facility, error)
		UpsertFacility(ctx context.Context, f Facility, exec ...core.DBExecutor) (Facility, error)
		QueryCodes(ctx context.Context, facilityID string, exec ...core.DBExecutor) ([]RegistrationCode, error)
		UpsertCodes(ctx context.Context, codes []RegistrationCode, exec ...core.DBExecutor) error
	}

	Service struct {
		facilityID string
		repo       Repository
	}
)

func NewService(conf *core.Config, repo Repository) *Service {
	return &Service{facilityID: conf.FacilityID, repo: repo}
}

// Get returns the configured Facility, or the defaults when it was never saved.
func (svc *Service) Get(ctx context.Context) (Facility, error) {
	f, err := svc.repo.GetFacility(ctx, svc.facilityID)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return Facility{}, errors.Wrap(err, "getting facility")
		}
		f = Facility{ID: svc.facilityID}
	}
	return f.withDefaults(), nil
}

func (svc *Service) Update(ctx context.Context, uf UpdateFacility) (Facility, error) {
	f, err := svc.repo.GetFacility(ctx, svc.facilityID)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return Facility{}, errors.Wrap(err, "getting facility")
		}
		f = Facility{ID: svc.facilityID, Name: DefaultName}
	}
	f, err = svc.repo.UpsertFacility(ctx, uf.apply(f))
	if err != nil {
		return Facility{}, errors.Wrap(err, "saving facility")
	}
	return f.withDefaults(), nil
}

// Codes returns the registration codes, stored codes override the defaults.
func (svc *Service) Codes(ctx context.Context) (Codes, error) {
	rows, err := svc.repo.QueryCodes(ctx, svc.facilityID)
	if err != nil {
		return Codes{}, errors.Wrap(err, "querying registration codes")
	}
	codes := DefaultCodes()
	for _, row := range rows {
		if row.Code != "" {
			codes.set(row.Role, row.Code)
		}
	}
	return codes, nil
}

func (svc *Service) UpdateCodes(ctx context.Context, codes Codes) (Codes, error) {
	if err := svc.repo.UpsertCodes(ctx, codes.rows(svc.facilityID)); err != nil {
		return Codes{}, errors.Wrap(err, "saving registration codes")
	}
	return codes, nil
}

// ValidateCode reports whether code is the registration code of role.
func (svc *Service) ValidateCode(ctx context.Context, code, role string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	codes, err := svc.Codes(ctx)
	if err != nil {
		return false, err
	}
	expected := codes.ForRole(role)
	return expected != "" && expected == code, nil
}
