package news

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/group"
	"github.com/trezcool/kita/core/user"
)

var ErrNotFound = core.NewNotFoundError("news")

type (
	Repository interface {
		CreateNews(ctx context.Context, n News, exec ...core.DBExecutor) (News, error)
		GetNews(ctx context.Context, id string, exec ...core.DBExecutor) (News, error)
		QueryNews(ctx context.Context, facilityID string, exec ...core.DBExecutor) ([]News, error)
		DeleteNews(ctx context.Context, id string, exec ...core.DBExecutor) error
		HideNews(ctx context.Context, newsID, userID string, exec ...core.DBExecutor) error
		QueryHiddenNewsIDs(ctx context.Context, userID string, exec ...core.DBExecutor) ([]string, error)
	}

	Service struct {
		facilityID string
		repo       Repository
		pushSvc    core.PushService
		logger     core.Logger
	}
)

func NewService(conf *core.Config, repo Repository, pushSvc core.PushService, logger core.Logger) *Service {
	return &Service{facilityID: conf.FacilityID, repo: repo, pushSvc: pushSvc, logger: logger}
}

// Create publishes News and notifies the parents of the group (or everyone).
func (svc *Service) Create(ctx context.Context, author user.User, nn NewNews) (News, error) {
	if !author.IsStaff() {
		return News{}, core.ErrPermissionDenied
	}

	n := News{
		FacilityID:  svc.facilityID,
		Title:       nn.Title,
		Text:        nn.Text,
		Target:      nn.Target,
		Attachments: nn.Attachments,
		CreatedBy:   author.ID,
		CreatedAt:   core.NowFunc().UTC(),
	}
	if n.Attachments == nil {
		n.Attachments = []Attachment{}
	}
	if nn.GroupID != "" {
		groupID := nn.GroupID
		n.GroupID = &groupID
	}

	n, err := svc.repo.CreateNews(ctx, n)
	if err != nil {
		return News{}, errors.Wrap(err, "creating news")
	}

	msg := core.PushMessage{
		Title:    n.PushTitle(),
		Body:     ExtractPreview(n.Text, previewMaxLen),
		Category: core.PushCategoryNews,
		Data:     map[string]string{"type": "news", "newsId": n.ID},
	}
	if n.InGroup() {
		msg.GroupIDs = []string{*n.GroupID}
	}
	core.NotifyPush(ctx, svc.pushSvc, svc.logger, msg)
	return n, nil
}

// Get returns the News with id if viewer may see it.
func (svc *Service) Get(ctx context.Context, viewer user.User, id string) (News, error) {
	n, err := svc.repo.GetNews(ctx, id)
	if err != nil {
		return News{}, err
	}
	if !visibleTo(viewer, n) {
		return News{}, ErrNotFound
	}
	return n, nil
}

// Feed returns the News visible to viewer, newest first, without the ones viewer has hidden.
// Parents see News for everyone and for their children's groups, the group filter is ignored for them.
// Staff see all News, optionally restricted to one group.
func (svc *Service) Feed(ctx context.Context, viewer user.User, filter FeedFilter) ([]News, error) {
	all, err := svc.repo.QueryNews(ctx, svc.facilityID)
	if err != nil {
		return nil, errors.Wrap(err, "querying news")
	}
	hiddenIDs, err := svc.repo.QueryHiddenNewsIDs(ctx, viewer.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying hidden news")
	}
	hidden := make(map[string]bool, len(hiddenIDs))
	for _, id := range hiddenIDs {
		hidden[id] = true
	}

	feed := make([]News, 0, len(all))
	for _, n := range all {
		if hidden[n.ID] || !visibleTo(viewer, n) {
			continue
		}
		if viewer.IsStaff() && filter.GroupID != "" && filter.GroupID != group.AllGroups {
			if !n.InGroup() || *n.GroupID != filter.GroupID {
				continue
			}
		}
		feed = append(feed, n)
	}
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})
	return feed, nil
}

func visibleTo(viewer user.User, n News) bool {
	if !viewer.IsParent() || !n.InGroup() {
		return true
	}
	return viewer.HasChildInGroup(*n.GroupID)
}

// Hide removes the News from the feed of viewer.
func (svc *Service) Hide(ctx context.Context, viewer user.User, id string) error {
	if _, err := svc.Get(ctx, viewer, id); err != nil {
		return err
	}
	return svc.repo.HideNews(ctx, id, viewer.ID)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if !actor.IsStaff() {
		return core.ErrPermissionDenied
	}
	if _, err := svc.repo.GetNews(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteNews(ctx, id)
}
