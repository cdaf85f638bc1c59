package grouplist

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/group"
	"github.com/trezcool/kita/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("list")
	ErrItemNotFound    = core.NewNotFoundError("list item")
	ErrAlreadyAssigned = errors.New("this item has already been taken by someone else")
	ErrNotAPoll        = errors.New("this list is not a poll")
	ErrIsAPoll         = errors.New("poll options cannot be assigned")
)

type (
	Repository interface {
		CreateList(ctx context.Context, l List, exec ...core.DBExecutor) (List, error)
		// GetList locks the list row until the end of the transaction when forUpdate is set.
		GetList(ctx context.Context, id string, forUpdate bool, exec ...core.DBExecutor) (List, error)
		QueryLists(ctx context.Context, groupID string, exec ...core.DBExecutor) ([]List, error)
		UpdateListItems(ctx context.Context, id string, items []Item, exec ...core.DBExecutor) error
		DeleteList(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	GroupGetter interface {
		Get(ctx context.Context, id string) (group.Group, error)
	}

	Service struct {
		facilityID string
		repo       Repository
		tx         core.Transactor
		groups     GroupGetter
		pushSvc    core.PushService
		logger     core.Logger
	}
)

func NewService(conf *core.Config, repo Repository, tx core.Transactor, groups GroupGetter, pushSvc core.PushService, logger core.Logger) *Service {
	return &Service{
		facilityID: conf.FacilityID,
		repo:       repo,
		tx:         tx,
		groups:     groups,
		pushSvc:    pushSvc,
		logger:     logger,
	}
}

// canSee reports whether viewer may see the lists of a group: parents only see the groups of their children.
func canSee(viewer user.User, groupID string) bool {
	return !viewer.IsParent() || viewer.HasChildInGroup(groupID)
}

// ListByGroup returns the lists of a group, newest first.
func (svc *Service) ListByGroup(ctx context.Context, viewer user.User, groupID string) ([]List, error) {
	if !canSee(viewer, groupID) {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryLists(ctx, groupID)
}

func (svc *Service) Get(ctx context.Context, viewer user.User, id string) (List, error) {
	l, err := svc.repo.GetList(ctx, id, false)
	if err != nil {
		return List{}, err
	}
	if !canSee(viewer, l.GroupID) {
		return List{}, core.ErrPermissionDenied
	}
	return l, nil
}

// Create adds a List to a group and notifies the group.
func (svc *Service) Create(ctx context.Context, author user.User, groupID string, nl NewList) (List, error) {
	if !author.IsStaff() {
		return List{}, core.ErrPermissionDenied
	}
	grp, err := svc.groups.Get(ctx, groupID)
	if err != nil {
		return List{}, err
	}

	items := make([]Item, 0, len(nl.Items))
	for _, label := range nl.Items {
		it := Item{Label: label}
		if nl.Type == TypePoll {
			it.Votes = []string{}
		}
		items = append(items, it)
	}
	l, err := svc.repo.CreateList(ctx, List{
		FacilityID: svc.facilityID,
		GroupID:    grp.ID,
		Title:      nl.Title,
		Type:       nl.Type,
		Items:      items,
		CreatedBy:  author.ID,
		CreatedAt:  core.NowFunc().UTC(),
	})
	if err != nil {
		return List{}, errors.Wrap(err, "creating list")
	}

	core.NotifyPush(ctx, svc.pushSvc, svc.logger, core.PushMessage{
		Title:    "Neue " + TypeLabel(l.Type),
		Body:     fmt.Sprintf("%s (%s)", l.Title, grp.Name),
		Category: core.PushCategoryLists,
		GroupIDs: []string{grp.ID},
		Data:     map[string]string{"type": "list", "listId": l.ID},
	})
	return l, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if !actor.IsStaff() {
		return core.ErrPermissionDenied
	}
	if _, err := svc.repo.GetList(ctx, id, false); err != nil {
		return err
	}
	return svc.repo.DeleteList(ctx, id)
}

// mutateItems runs fn on the items of the list with the list row locked, then saves the items.
func (svc *Service) mutateItems(ctx context.Context, viewer user.User, listID string, fn func(l List) ([]Item, error)) (List, error) {
	var l List
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if l, err = svc.repo.GetList(ctx, listID, true, exec); err != nil {
			return err
		}
		if !canSee(viewer, l.GroupID) {
			return core.ErrPermissionDenied
		}
		if l.Items, err = fn(l); err != nil {
			return err
		}
		return svc.repo.UpdateListItems(ctx, l.ID, l.Items, exec)
	})
	if err != nil {
		return List{}, err
	}
	return l, nil
}

func itemAt(items []Item, index int) (Item, error) {
	if index < 0 || index >= len(items) {
		return Item{}, ErrItemNotFound
	}
	return items[index], nil
}

// ToggleAssign takes the item for viewer when it is free, or gives it back when viewer holds it.
// Staff cannot take items.
func (svc *Service) ToggleAssign(ctx context.Context, viewer user.User, listID string, index int) (List, error) {
	if viewer.IsStaff() {
		return List{}, core.ErrPermissionDenied
	}
	return svc.mutateItems(ctx, viewer, listID, func(l List) ([]Item, error) {
		if l.IsPoll() {
			return nil, core.NewValidationError(ErrIsAPoll)
		}
		it, err := itemAt(l.Items, index)
		if err != nil {
			return nil, err
		}
		switch {
		case it.isAssigned() && *it.AssignedTo == viewer.ID:
			it.AssignedTo, it.AssignedName = nil, nil
		case it.isAssigned():
			return nil, core.NewValidationError(ErrAlreadyAssigned)
		default:
			id, name := viewer.ID, viewer.DisplayName()
			it.AssignedTo, it.AssignedName = &id, &name
		}
		items := append([]Item(nil), l.Items...)
		items[index] = it
		return items, nil
	})
}

// AddItem appends an item created by viewer and assigned to them.
func (svc *Service) AddItem(ctx context.Context, viewer user.User, listID string, ni NewItem) (List, error) {
	if !viewer.IsParent() {
		return List{}, core.ErrPermissionDenied
	}
	return svc.mutateItems(ctx, viewer, listID, func(l List) ([]Item, error) {
		if l.IsPoll() {
			return nil, core.NewValidationError(ErrIsAPoll)
		}
		id, name := viewer.ID, viewer.DisplayName()
		return append(l.Items, Item{
			Label:        ni.Label,
			AssignedTo:   &id,
			AssignedName: &name,
			CreatedBy:    viewer.ID,
		}), nil
	})
}

// DeleteItem removes an item. Only its creator may remove it.
func (svc *Service) DeleteItem(ctx context.Context, viewer user.User, listID string, index int) (List, error) {
	return svc.mutateItems(ctx, viewer, listID, func(l List) ([]Item, error) {
		it, err := itemAt(l.Items, index)
		if err != nil {
			return nil, err
		}
		if it.CreatedBy == "" || it.CreatedBy != viewer.ID {
			return nil, core.ErrPermissionDenied
		}
		items := make([]Item, 0, len(l.Items)-1)
		items = append(items, l.Items[:index]...)
		return append(items, l.Items[index+1:]...), nil
	})
}

// ToggleVote casts the single vote of viewer for the option at index, or withdraws it when it was already there.
func (svc *Service) ToggleVote(ctx context.Context, viewer user.User, listID string, index int) (List, error) {
	if viewer.IsStaff() {
		return List{}, core.ErrPermissionDenied
	}
	return svc.mutateItems(ctx, viewer, listID, func(l List) ([]Item, error) {
		if !l.IsPoll() {
			return nil, core.NewValidationError(ErrNotAPoll)
		}
		target, err := itemAt(l.Items, index)
		if err != nil {
			return nil, err
		}
		hadVote := target.hasVote(viewer.ID)

		items := make([]Item, 0, len(l.Items))
		for i, it := range l.Items {
			votes := make([]string, 0, len(it.Votes)+1)
			for _, v := range it.Votes {
				if v != viewer.ID {
					votes = append(votes, v)
				}
			}
			if i == index && !hadVote {
				votes = append(votes, viewer.ID)
			}
			it.Votes = votes
			items = append(items, it)
		}
		return items, nil
	})
}
