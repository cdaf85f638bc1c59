package absence

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/group"
	"github.com/trezcool/kita/core/user"
)

var ErrNotFound = core.NewNotFoundError("absence")

type (
	Repository interface {
		CreateAbsence(ctx context.Context, a Absence, exec ...core.DBExecutor) (Absence, error)
		GetAbsence(ctx context.Context, id string, exec ...core.DBExecutor) (Absence, error)
		QueryAbsences(ctx context.Context, facilityID string, filter Filter, exec ...core.DBExecutor) ([]Absence, error)
		UpdateAbsence(ctx context.Context, a Absence, exec ...core.DBExecutor) (Absence, error)
		DeleteAbsence(ctx context.Context, id string, exec ...core.DBExecutor) error

		// QueryReadStatuses returns the read statuses of userID, or of every user when userID is empty.
		QueryReadStatuses(ctx context.Context, userID string, exec ...core.DBExecutor) ([]ReadStatus, error)
		UpsertReadStatus(ctx context.Context, rs ReadStatus, exec ...core.DBExecutor) error
	}

	ChildGetter interface {
		GetChild(ctx context.Context, id string) (user.Child, error)
	}

	GroupLister interface {
		List(ctx context.Context) ([]group.Group, error)
	}

	Service struct {
		facilityID string
		repo       Repository
		children   ChildGetter
		groups     GroupLister
		pushSvc    core.PushService
		logger     core.Logger
	}
)

func NewService(conf *core.Config, repo Repository, children ChildGetter, groups GroupLister, pushSvc core.PushService, logger core.Logger) *Service {
	return &Service{
		facilityID: conf.FacilityID,
		repo:       repo,
		children:   children,
		groups:     groups,
		pushSvc:    pushSvc,
		logger:     logger,
	}
}

func (svc *Service) ownChild(ctx context.Context, parent user.User, childID string) (user.Child, error) {
	child, err := svc.children.GetChild(ctx, childID)
	if err != nil {
		return user.Child{}, err
	}
	if child.UserID != parent.ID {
		return user.Child{}, user.ErrChildNotFound
	}
	return child, nil
}

// Report records the absence of a child and notifies the team of the child's group.
func (svc *Service) Report(ctx context.Context, parent user.User, na NewAbsence) (Absence, error) {
	if !parent.IsParent() {
		return Absence{}, core.ErrPermissionDenied
	}
	child, err := svc.ownChild(ctx, parent, na.ChildID)
	if err != nil {
		return Absence{}, err
	}

	now := core.NowFunc().UTC()
	a, err := svc.repo.CreateAbsence(ctx, Absence{
		FacilityID: svc.facilityID,
		ChildID:    child.ID,
		ChildName:  child.FirstName,
		GroupID:    child.GroupID,
		Type:       na.Type,
		DateFrom:   na.DateFrom,
		DateTo:     na.DateTo,
		Reason:     na.Reason,
		OtherText:  na.OtherText,
		Status:     StatusNew,
		CreatedBy:  parent.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Absence{}, errors.Wrap(err, "creating absence")
	}

	core.NotifyPush(ctx, svc.pushSvc, svc.logger, core.PushMessage{
		Title:    "Neue Abwesenheitsmeldung",
		Body:     fmt.Sprintf("%s: %s", a.ChildName, ReasonLabel(a.Reason)),
		Category: core.PushCategoryAbsences,
		GroupIDs: []string{a.GroupID},
		Data:     map[string]string{"type": "absence", "absenceId": a.ID},
	})
	return a, nil
}

func (svc *Service) getOwn(ctx context.Context, parent user.User, id string) (Absence, error) {
	a, err := svc.repo.GetAbsence(ctx, id)
	if err != nil {
		return Absence{}, err
	}
	if a.CreatedBy != parent.ID {
		return Absence{}, ErrNotFound
	}
	return a, nil
}

func (svc *Service) Update(ctx context.Context, parent user.User, id string, ua UpdateAbsence) (Absence, error) {
	a, err := svc.getOwn(ctx, parent, id)
	if err != nil {
		return Absence{}, err
	}
	a.Type = ua.Type
	a.DateFrom = ua.DateFrom
	a.DateTo = ua.DateTo
	a.Reason = ua.Reason
	a.OtherText = ua.OtherText
	a.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateAbsence(ctx, a)
}

func (svc *Service) Delete(ctx context.Context, parent user.User, id string) error {
	if _, err := svc.getOwn(ctx, parent, id); err != nil {
		return err
	}
	return svc.repo.DeleteAbsence(ctx, id)
}

// ListForChild returns the absences of a child, newest first.
// Parents may only list their own children.
func (svc *Service) ListForChild(ctx context.Context, viewer user.User, childID string) ([]Absence, error) {
	if !viewer.IsStaff() {
		if _, err := svc.ownChild(ctx, viewer, childID); err != nil {
			return nil, err
		}
	}
	absences, err := svc.repo.QueryAbsences(ctx, svc.facilityID, Filter{ChildID: childID})
	if err != nil {
		return nil, errors.Wrap(err, "querying absences")
	}
	sortNewestFirst(absences)
	return absences, nil
}

func sortNewestFirst(absences []Absence) {
	sort.SliceStable(absences, func(i, j int) bool {
		return absences[i].CreatedAt.After(absences[j].CreatedAt)
	})
}

// TeamView builds the absence board of a team member.
// Absences viewer has read and that are over are hidden for good on the way.
func (svc *Service) TeamView(ctx context.Context, viewer user.User, filter TeamFilter) (TeamView, error) {
	if !viewer.IsStaff() {
		return TeamView{}, core.ErrPermissionDenied
	}

	absences, err := svc.repo.QueryAbsences(ctx, svc.facilityID, Filter{})
	if err != nil {
		return TeamView{}, errors.Wrap(err, "querying absences")
	}
	statuses, err := svc.repo.QueryReadStatuses(ctx, viewer.ID)
	if err != nil {
		return TeamView{}, errors.Wrap(err, "querying read statuses")
	}
	groups, err := svc.groups.List(ctx)
	if err != nil {
		return TeamView{}, errors.Wrap(err, "querying groups")
	}
	eventGroups := group.EventGroupIDs(groups)

	byAbsence := make(map[string]ReadStatus, len(statuses))
	for _, rs := range statuses {
		byAbsence[rs.AbsenceID] = rs
	}

	today := core.Today().Format(core.DateLayout)
	view := TeamView{New: []Absence{}, Read: []Absence{}, UnreadByGroup: map[string]int{}}
	sortNewestFirst(absences)
	for _, a := range absences {
		rs, ok := byAbsence[a.ID]
		if !ok {
			rs = ReadStatus{AbsenceID: a.ID, UserID: viewer.ID, Status: StatusNew}
		}
		if !rs.Hidden && rs.Status == StatusRead && a.EndedBefore(today) {
			rs.Hidden = true
			rs.UpdatedAt = core.NowFunc().UTC()
			if err = svc.repo.UpsertReadStatus(ctx, rs); err != nil {
				return TeamView{}, errors.Wrap(err, "hiding absence")
			}
		}
		if rs.Hidden || eventGroups[a.GroupID] {
			continue
		}

		if rs.Status != StatusRead {
			gid := a.GroupID
			if gid == "" {
				gid = "unknown"
			}
			view.UnreadByGroup[gid]++
			view.TotalUnread++
		}
		if filter.GroupID != "" && filter.GroupID != group.AllGroups && a.GroupID != filter.GroupID {
			continue
		}
		if rs.Status == StatusRead {
			view.Read = append(view.Read, a)
		} else {
			view.New = append(view.New, a)
		}
	}
	return view, nil
}

func (svc *Service) upsertStatus(ctx context.Context, viewer user.User, id string, fn func(rs *ReadStatus)) error {
	if !viewer.IsStaff() {
		return core.ErrPermissionDenied
	}
	if _, err := svc.repo.GetAbsence(ctx, id); err != nil {
		return err
	}
	statuses, err := svc.repo.QueryReadStatuses(ctx, viewer.ID)
	if err != nil {
		return errors.Wrap(err, "querying read statuses")
	}
	rs := ReadStatus{AbsenceID: id, UserID: viewer.ID, Status: StatusNew}
	for _, s := range statuses {
		if s.AbsenceID == id {
			rs = s
			break
		}
	}
	fn(&rs)
	rs.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpsertReadStatus(ctx, rs)
}

func (svc *Service) MarkRead(ctx context.Context, viewer user.User, id string) error {
	return svc.upsertStatus(ctx, viewer, id, func(rs *ReadStatus) { rs.Status = StatusRead })
}

func (svc *Service) MarkUnread(ctx context.Context, viewer user.User, id string) error {
	return svc.upsertStatus(ctx, viewer, id, func(rs *ReadStatus) { rs.Status = StatusNew })
}

// Hide removes the absence from the board of viewer.
func (svc *Service) Hide(ctx context.Context, viewer user.User, id string) error {
	return svc.upsertStatus(ctx, viewer, id, func(rs *ReadStatus) { rs.Hidden = true })
}

// HideExpired hides, for every user, the absences they have read and that are over.
// It returns the number of statuses it hid.
func (svc *Service) HideExpired(ctx context.Context) (int, error) {
	absences, err := svc.repo.QueryAbsences(ctx, svc.facilityID, Filter{})
	if err != nil {
		return 0, errors.Wrap(err, "querying absences")
	}
	statuses, err := svc.repo.QueryReadStatuses(ctx, "")
	if err != nil {
		return 0, errors.Wrap(err, "querying read statuses")
	}

	byID := make(map[string]Absence, len(absences))
	for _, a := range absences {
		byID[a.ID] = a
	}
	today := core.Today().Format(core.DateLayout)
	hidden := 0
	for _, rs := range statuses {
		a, ok := byID[rs.AbsenceID]
		if !ok || rs.Hidden || rs.Status != StatusRead || !a.EndedBefore(today) {
			continue
		}
		rs.Hidden = true
		rs.UpdatedAt = core.NowFunc().UTC()
		if err = svc.repo.UpsertReadStatus(ctx, rs); err != nil {
			return hidden, errors.Wrap(err, "hiding absence")
		}
		hidden++
	}
	return hidden, nil
}
