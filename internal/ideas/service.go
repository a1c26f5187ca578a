package ideas

import (
	"cmp"
	"context"
	"slices"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"ideas-go/internal/model"
)

// Service is the resilient façade over the remote backend. Every operation is
// served by the fallback dataset once failover is active; before that a
// failed remote call is recorded and retried against the fallback. Domain
// rejections are returned to the caller unchanged.
type Service struct {
	remote   Backend
	fallback Backend
	mode     *ModeStore
	tracker  *ErrorTracker
	probe    ConnectivityProbe
	policy   FailoverPolicy
	observer Observer
	logger   Logger
}

// NewService creates a façade. A nil probe is treated as always online and a
// nil observer as NopObserver.
func NewService(remote, fallback Backend, mode *ModeStore, tracker *ErrorTracker, probe ConnectivityProbe, policy FailoverPolicy, observer Observer, logger Logger) *Service {
	if probe == nil {
		probe = AlwaysOnline{}
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Service{
		remote:   remote,
		fallback: fallback,
		mode:     mode,
		tracker:  tracker,
		probe:    probe,
		policy:   policy,
		observer: observer,
		logger:   logger,
	}
}

// FailoverState is a point-in-time view of the façade's mode.
type FailoverState struct {
	Active                  bool
	RemoteMarkedUnavailable bool
	Count                   int
	Threshold               int
}

// CalendarDay groups the completions recorded on one date.
type CalendarDay struct {
	Date        string
	Completions []*model.DailyCompletion
}

// Start activates failover before any call is made when the remote was
// marked unavailable, the device is offline, or the session already
// recorded enough failures.
func (s *Service) Start(ctx context.Context) error {
	if s.mode.IsFailoverActive() {
		return nil
	}

	var reason string
	switch {
	case s.mode.IsRemoteMarkedUnavailable():
		reason = "remote marked unavailable"
	case !s.probe.Online(ctx):
		reason = "offline at startup"
	case s.tracker.Count() >= s.policy.threshold():
		reason = "error threshold reached in this session"
	default:
		return nil
	}
	return s.mode.Activate(reason)
}

// NotifyConnectivity is called when the device's connectivity changes.
// Going offline activates failover; coming back online does not deactivate it.
func (s *Service) NotifyConnectivity(online bool) error {
	if online {
		return nil
	}
	return s.mode.Activate("connectivity lost")
}

// IsDemoMode reports whether failover is active.
func (s *Service) IsDemoMode() bool {
	return s.mode.IsFailoverActive()
}

// ActivateFailover switches to the fallback dataset on request.
func (s *Service) ActivateFailover(reason string) error {
	return s.mode.Activate(reason)
}

// MarkRemoteUnavailable records that the remote is down and activates failover.
func (s *Service) MarkRemoteUnavailable() error {
	if err := s.mode.MarkRemoteUnavailable(); err != nil {
		return err
	}
	return s.mode.Activate("remote marked unavailable")
}

// DeactivateFailover returns to the remote backend and resets the counter.
func (s *Service) DeactivateFailover() error {
	if err := s.mode.Deactivate(); err != nil {
		return err
	}
	return s.tracker.Clear()
}

// Subscribe forwards to the mode store.
func (s *Service) Subscribe() (<-chan Event, func()) {
	return s.mode.Subscribe()
}

// SelectedGroup returns the group snapshot stored on activation, if any.
func (s *Service) SelectedGroup() (*model.GroupWithMembers, error) {
	return s.mode.SelectedGroup()
}

// State returns the current failover state.
func (s *Service) State() FailoverState {
	return FailoverState{
		Active:                  s.mode.IsFailoverActive(),
		RemoteMarkedUnavailable: s.mode.IsRemoteMarkedUnavailable(),
		Count:                   s.tracker.Count(),
		Threshold:               s.tracker.Threshold(),
	}
}

// GetGroupIdeas returns the group's ideas sorted ascending by order.
func (s *Service) GetGroupIdeas(ctx context.Context, groupID string) ([]*model.Idea, error) {
	list, err := call(ctx, s, "GetGroupIdeas", true, func(ctx context.Context, b Backend) ([]*model.Idea, error) {
		return b.GetGroupIdeas(ctx, groupID)
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(list, func(a, b *model.Idea) int { return cmp.Compare(a.Order, b.Order) })
	return list, nil
}

// GetPendingIdeas returns the group's ideas that are not completed.
func (s *Service) GetPendingIdeas(ctx context.Context, groupID string) ([]*model.Idea, error) {
	list, err := s.GetGroupIdeas(ctx, groupID)
	if err != nil {
		return nil, err
	}
	pending := list[:0]
	for _, idea := range list {
		if !idea.Completed {
			pending = append(pending, idea)
		}
	}
	return pending, nil
}

// SearchIdeas returns the group's ideas whose text fuzzily matches query,
// closest matches first.
func (s *Service) SearchIdeas(ctx context.Context, groupID, query string) ([]*model.Idea, error) {
	list, err := s.GetGroupIdeas(ctx, groupID)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(list))
	for i, idea := range list {
		texts[i] = idea.Text
	}
	ranks := fuzzy.RankFindNormalizedFold(query, texts)
	sort.Stable(ranks)

	found := make([]*model.Idea, 0, len(ranks))
	for _, r := range ranks {
		found = append(found, list[r.OriginalIndex])
	}
	return found, nil
}

// GetGroupCategories returns the group's categories sorted ascending by order.
func (s *Service) GetGroupCategories(ctx context.Context, groupID string) ([]*model.Category, error) {
	list, err := call(ctx, s, "GetGroupCategories", true, func(ctx context.Context, b Backend) ([]*model.Category, error) {
		return b.GetGroupCategories(ctx, groupID)
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(list, func(a, b *model.Category) int { return cmp.Compare(a.Order, b.Order) })
	return list, nil
}

func (s *Service) GetUserGroups(ctx context.Context, userID string) ([]*model.GroupWithMembers, error) {
	return call(ctx, s, "GetUserGroups", false, func(ctx context.Context, b Backend) ([]*model.GroupWithMembers, error) {
		return b.GetUserGroups(ctx, userID)
	})
}

func (s *Service) CreateIdea(ctx context.Context, in model.NewIdea) (string, error) {
	return call(ctx, s, "CreateIdea", false, func(ctx context.Context, b Backend) (string, error) {
		return b.CreateIdea(ctx, in)
	})
}

func (s *Service) UpdateIdea(ctx context.Context, ideaID string, patch model.IdeaPatch) error {
	return exec(ctx, s, "UpdateIdea", func(ctx context.Context, b Backend) error {
		return b.UpdateIdea(ctx, ideaID, patch)
	})
}

func (s *Service) DeleteIdea(ctx context.Context, ideaID string) error {
	return exec(ctx, s, "DeleteIdea", func(ctx context.Context, b Backend) error {
		return b.DeleteIdea(ctx, ideaID)
	})
}

func (s *Service) CompleteIdea(ctx context.Context, userID, ideaID, date string) error {
	return exec(ctx, s, "CompleteIdea", func(ctx context.Context, b Backend) error {
		return b.CompleteIdea(ctx, userID, ideaID, date)
	})
}

func (s *Service) CreateCategory(ctx context.Context, in model.NewCategory) (string, error) {
	return call(ctx, s, "CreateCategory", false, func(ctx context.Context, b Backend) (string, error) {
		return b.CreateCategory(ctx, in)
	})
}

func (s *Service) UpdateCategory(ctx context.Context, categoryID string, patch model.CategoryPatch) error {
	return exec(ctx, s, "UpdateCategory", func(ctx context.Context, b Backend) error {
		return b.UpdateCategory(ctx, categoryID, patch)
	})
}

func (s *Service) DeleteCategory(ctx context.Context, categoryID string) error {
	return exec(ctx, s, "DeleteCategory", func(ctx context.Context, b Backend) error {
		return b.DeleteCategory(ctx, categoryID)
	})
}

// ImportIdeas parses text and creates one idea per accepted line. Returns
// the number created, which is zero when nothing could be parsed.
func (s *Service) ImportIdeas(ctx context.Context, userID, groupID, text, categoryID string) (int, error) {
	return call(ctx, s, "ImportIdeas", false, func(ctx context.Context, b Backend) (int, error) {
		return b.ImportIdeas(ctx, userID, groupID, text, categoryID)
	})
}

func (s *Service) CreateGroup(ctx context.Context, in model.NewGroup) (string, error) {
	return call(ctx, s, "CreateGroup", false, func(ctx context.Context, b Backend) (string, error) {
		return b.CreateGroup(ctx, in)
	})
}

// JoinGroup joins by invite code. ErrInvalidInviteCode and ErrAlreadyMember
// reach the caller from either path.
func (s *Service) JoinGroup(ctx context.Context, userID, inviteCode string) error {
	return exec(ctx, s, "JoinGroup", func(ctx context.Context, b Backend) error {
		return b.JoinGroup(ctx, userID, inviteCode)
	})
}

func (s *Service) UpdateGroup(ctx context.Context, groupID string, patch model.GroupPatch) error {
	return exec(ctx, s, "UpdateGroup", func(ctx context.Context, b Backend) error {
		return b.UpdateGroup(ctx, groupID, patch)
	})
}

func (s *Service) LeaveGroup(ctx context.Context, groupID, userID string) error {
	return exec(ctx, s, "RemoveGroupMember", func(ctx context.Context, b Backend) error {
		return b.RemoveGroupMember(ctx, groupID, userID)
	})
}

func (s *Service) UpdateMemberRole(ctx context.Context, groupID, userID string, role model.Role) error {
	return exec(ctx, s, "UpdateGroupMemberRole", func(ctx context.Context, b Backend) error {
		return b.UpdateGroupMemberRole(ctx, groupID, userID, role)
	})
}

func (s *Service) GetDailyCompletions(ctx context.Context, groupID, date string) ([]*model.DailyCompletion, error) {
	return call(ctx, s, "GetDailyCompletions", false, func(ctx context.Context, b Backend) ([]*model.DailyCompletion, error) {
		return b.GetDailyCompletions(ctx, groupID, date)
	})
}

// GetCalendar returns the group's completion history bucketed by date,
// oldest date first.
func (s *Service) GetCalendar(ctx context.Context, groupID string) ([]CalendarDay, error) {
	history, err := call(ctx, s, "GetCompletionHistory", false, func(ctx context.Context, b Backend) ([]*model.DailyCompletion, error) {
		return b.GetCompletionHistory(ctx, groupID)
	})
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]*model.DailyCompletion)
	for _, c := range history {
		byDate[c.Date] = append(byDate[c.Date], c)
	}
	days := make([]CalendarDay, 0, len(byDate))
	for date, completions := range byDate {
		days = append(days, CalendarDay{Date: date, Completions: completions})
	}
	slices.SortFunc(days, func(a, b CalendarDay) int { return cmp.Compare(a.Date, b.Date) })
	return days, nil
}

func (s *Service) EnsureUser(ctx context.Context, user model.User) error {
	return exec(ctx, s, "EnsureUser", func(ctx context.Context, b Backend) error {
		return b.EnsureUser(ctx, user)
	})
}

func exec(ctx context.Context, s *Service, op string, fn func(context.Context, Backend) error) error {
	_, err := call(ctx, s, op, false, func(ctx context.Context, b Backend) (struct{}, error) {
		return struct{}{}, fn(ctx, b)
	})
	return err
}

// call routes one operation. singleStrike marks the read paths where one
// connectivity failure is enough to activate failover.
func call[T any](ctx context.Context, s *Service, op string, singleStrike bool, fn func(context.Context, Backend) (T, error)) (T, error) {
	if s.mode.IsFailoverActive() {
		s.observer.FallbackServed(op)
		return fn(ctx, s.fallback)
	}

	rctx, cancel := ctx, context.CancelFunc(func() {})
	if s.policy.RemoteTimeout > 0 {
		rctx, cancel = context.WithTimeout(ctx, s.policy.RemoteTimeout)
	}
	v, err := fn(rctx, s.remote)
	cancel()
	if err == nil {
		if s.policy.ResetOnSuccess {
			if err := s.tracker.Clear(); err != nil {
				s.logger.Error("clearing error count", "op", op, "error", err)
			}
		}
		return v, nil
	}

	class := Classify(err)
	if class == ClassDomain {
		return v, err
	}
	// The caller gave up; that says nothing about the remote.
	if ctx.Err() != nil {
		return v, err
	}
	if class == ClassUnknown && !s.probe.Online(ctx) {
		class = ClassConnectivity
	}

	s.logger.Warn("remote call failed, serving from fallback", "op", op, "class", class.String(), "error", err)
	s.observer.RemoteFailure(op, class, err)

	if _, terr := s.tracker.RecordFailure(); terr != nil {
		s.logger.Error("recording remote failure", "op", op, "error", terr)
	}
	if singleStrike && s.policy.SingleStrikeReads && class == ClassConnectivity {
		if merr := s.mode.Activate("connectivity failure on " + op); merr != nil {
			s.logger.Error("activating failover", "op", op, "error", merr)
		}
	}

	s.observer.FallbackServed(op)
	return fn(ctx, s.fallback)
}
