package group

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("group")
	ErrDeleteEventGroup  = errors.New("the event group cannot be deleted")
	ErrReorderIncomplete = errors.New("every group must be listed exactly once")
)

type (
	Repository interface {
		QueryGroups(ctx context.Context, facilityID string, exec ...core.DBExecutor) ([]Group, error)
		GetGroup(ctx context.Context, id string, exec ...core.DBExecutor) (Group, error)
		CreateGroup(ctx context.Context, grp Group, exec ...core.DBExecutor) (Group, error)
		UpdateGroup(ctx context.Context, grp Group, exec ...core.DBExecutor) (Group, error)
		DeleteGroup(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		facilityID string
		repo       Repository
		tx         core.Transactor
	}
)

func NewService(conf *core.Config, repo Repository, tx core.Transactor) *Service {
	return &Service{facilityID: conf.FacilityID, repo: repo, tx: tx}
}

// List returns the groups of the facility in display order.
func (svc *Service) List(ctx context.Context) ([]Group, error) {
	groups, err := svc.repo.QueryGroups(ctx, svc.facilityID)
	if err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	Sort(groups)
	return groups, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroup(ctx, id)
}

// GroupExists reports whether id is a group of the facility.
func (svc *Service) GroupExists(ctx context.Context, id string) (bool, error) {
	grp, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return grp.FacilityID == svc.facilityID, nil
}

// DefaultGroupID returns the first regular group in display order, "" when there is none.
func (svc *Service) DefaultGroupID(ctx context.Context) (string, error) {
	groups, err := svc.List(ctx)
	if err != nil {
		return "", err
	}
	for _, g := range groups {
		if !g.IsEventGroup {
			return g.ID, nil
		}
	}
	return "", nil
}

// Create appends a new group after the existing ones.
func (svc *Service) Create(ctx context.Context, ng NewGroup) (Group, error) {
	groups, err := svc.repo.QueryGroups(ctx, svc.facilityID)
	if err != nil {
		return Group{}, errors.Wrap(err, "querying groups")
	}
	pos := len(groups)
	return svc.repo.CreateGroup(ctx, Group{
		FacilityID: svc.facilityID,
		Name:       ng.Name,
		Color:      ng.Color,
		Icon:       ng.Icon,
		Position:   &pos,
	})
}

func (svc *Service) Update(ctx context.Context, grp Group, ug UpdateGroup) (Group, error) {
	if ug.Name != "" {
		grp.Name = ug.Name
	}
	if ug.Color != nil {
		grp.Color = *ug.Color
	}
	if ug.Icon != nil {
		grp.Icon = *ug.Icon
	}
	return svc.repo.UpdateGroup(ctx, grp)
}

func (svc *Service) Delete(ctx context.Context, grp Group) error {
	if grp.IsEventGroup {
		return core.NewValidationError(ErrDeleteEventGroup)
	}
	return svc.repo.DeleteGroup(ctx, grp.ID)
}

// Reorder rewrites the positions of the facility groups to follow ids.
func (svc *Service) Reorder(ctx context.Context, ids []string) ([]Group, error) {
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		groups, err := svc.repo.QueryGroups(ctx, svc.facilityID, exec)
		if err != nil {
			return errors.Wrap(err, "querying groups")
		}
		if len(ids) != len(groups) {
			return core.NewValidationError(ErrReorderIncomplete)
		}
		byID := make(map[string]Group, len(groups))
		for _, g := range groups {
			byID[g.ID] = g
		}
		for i, id := range ids {
			grp, ok := byID[id]
			if !ok {
				return core.NewValidationError(ErrReorderIncomplete)
			}
			delete(byID, id)
			pos := i
			grp.Position = &pos
			if _, err = svc.repo.UpdateGroup(ctx, grp, exec); err != nil {
				return errors.Wrap(err, "updating group position")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return svc.List(ctx)
}

// EnsureEventGroup creates the event group of the facility when it does not exist yet.
func (svc *Service) EnsureEventGroup(ctx context.Context) (Group, error) {
	groups, err := svc.repo.QueryGroups(ctx, svc.facilityID)
	if err != nil {
		return Group{}, errors.Wrap(err, "querying groups")
	}
	for _, g := range groups {
		if g.IsEventGroup {
			return g, nil
		}
	}
	pos := 0
	return svc.repo.CreateGroup(ctx, Group{
		FacilityID:   svc.facilityID,
		Name:         EventGroupName,
		Color:        EventGroupColor,
		Icon:         EventGroupIcon,
		Position:     &pos,
		IsEventGroup: true,
	})
}
