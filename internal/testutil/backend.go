package testutil

import (
	"context"
	"sync"

	"ideas-go/internal/ideas"
	"ideas-go/internal/model"
)

// FlakyBackend wraps a Backend and fails calls on demand. While a failure is
// set, every call returns it without reaching the wrapped backend.
type FlakyBackend struct {
	inner ideas.Backend

	mu    sync.Mutex
	err   error
	calls map[string]int
}

var _ ideas.Backend = (*FlakyBackend)(nil)

func NewFlakyBackend(inner ideas.Backend) *FlakyBackend {
	return &FlakyBackend{inner: inner, calls: make(map[string]int)}
}

// Fail makes every following call return err. A nil err restores the backend.
func (f *FlakyBackend) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns how many times op was invoked, failed or not.
func (f *FlakyBackend) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (f *FlakyBackend) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FlakyBackend) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.err
}

func (f *FlakyBackend) GetGroupIdeas(ctx context.Context, groupID string) ([]*model.Idea, error) {
	if err := f.enter("GetGroupIdeas"); err != nil {
		return nil, err
	}
	return f.inner.GetGroupIdeas(ctx, groupID)
}

func (f *FlakyBackend) GetGroupCategories(ctx context.Context, groupID string) ([]*model.Category, error) {
	if err := f.enter("GetGroupCategories"); err != nil {
		return nil, err
	}
	return f.inner.GetGroupCategories(ctx, groupID)
}

func (f *FlakyBackend) GetUserGroups(ctx context.Context, userID string) ([]*model.GroupWithMembers, error) {
	if err := f.enter("GetUserGroups"); err != nil {
		return nil, err
	}
	return f.inner.GetUserGroups(ctx, userID)
}

func (f *FlakyBackend) CreateIdea(ctx context.Context, in model.NewIdea) (string, error) {
	if err := f.enter("CreateIdea"); err != nil {
		return "", err
	}
	return f.inner.CreateIdea(ctx, in)
}

func (f *FlakyBackend) UpdateIdea(ctx context.Context, ideaID string, patch model.IdeaPatch) error {
	if err := f.enter("UpdateIdea"); err != nil {
		return err
	}
	return f.inner.UpdateIdea(ctx, ideaID, patch)
}

func (f *FlakyBackend) DeleteIdea(ctx context.Context, ideaID string) error {
	if err := f.enter("DeleteIdea"); err != nil {
		return err
	}
	return f.inner.DeleteIdea(ctx, ideaID)
}

func (f *FlakyBackend) CompleteIdea(ctx context.Context, userID, ideaID, date string) error {
	if err := f.enter("CompleteIdea"); err != nil {
		return err
	}
	return f.inner.CompleteIdea(ctx, userID, ideaID, date)
}

func (f *FlakyBackend) CreateCategory(ctx context.Context, in model.NewCategory) (string, error) {
	if err := f.enter("CreateCategory"); err != nil {
		return "", err
	}
	return f.inner.CreateCategory(ctx, in)
}

func (f *FlakyBackend) UpdateCategory(ctx context.Context, categoryID string, patch model.CategoryPatch) error {
	if err := f.enter("UpdateCategory"); err != nil {
		return err
	}
	return f.inner.UpdateCategory(ctx, categoryID, patch)
}

func (f *FlakyBackend) DeleteCategory(ctx context.Context, categoryID string) error {
	if err := f.enter("DeleteCategory"); err != nil {
		return err
	}
	return f.inner.DeleteCategory(ctx, categoryID)
}

func (f *FlakyBackend) ImportIdeas(ctx context.Context, userID, groupID, text, categoryID string) (int, error) {
	if err := f.enter("ImportIdeas"); err != nil {
		return 0, err
	}
	return f.inner.ImportIdeas(ctx, userID, groupID, text, categoryID)
}

func (f *FlakyBackend) CreateGroup(ctx context.Context, in model.NewGroup) (string, error) {
	if err := f.enter("CreateGroup"); err != nil {
		return "", err
	}
	return f.inner.CreateGroup(ctx, in)
}

func (f *FlakyBackend) JoinGroup(ctx context.Context, userID, inviteCode string) error {
	if err := f.enter("JoinGroup"); err != nil {
		return err
	}
	return f.inner.JoinGroup(ctx, userID, inviteCode)
}

func (f *FlakyBackend) UpdateGroup(ctx context.Context, groupID string, patch model.GroupPatch) error {
	if err := f.enter("UpdateGroup"); err != nil {
		return err
	}
	return f.inner.UpdateGroup(ctx, groupID, patch)
}

func (f *FlakyBackend) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	if err := f.enter("RemoveGroupMember"); err != nil {
		return err
	}
	return f.inner.RemoveGroupMember(ctx, groupID, userID)
}

func (f *FlakyBackend) UpdateGroupMemberRole(ctx context.Context, groupID, userID string, role model.Role) error {
	if err := f.enter("UpdateGroupMemberRole"); err != nil {
		return err
	}
	return f.inner.UpdateGroupMemberRole(ctx, groupID, userID, role)
}

func (f *FlakyBackend) GetDailyCompletions(ctx context.Context, groupID, date string) ([]*model.DailyCompletion, error) {
	if err := f.enter("GetDailyCompletions"); err != nil {
		return nil, err
	}
	return f.inner.GetDailyCompletions(ctx, groupID, date)
}

func (f *FlakyBackend) GetCompletionHistory(ctx context.Context, groupID string) ([]*model.DailyCompletion, error) {
	if err := f.enter("GetCompletionHistory"); err != nil {
		return nil, err
	}
	return f.inner.GetCompletionHistory(ctx, groupID)
}

func (f *FlakyBackend) EnsureUser(ctx context.Context, user model.User) error {
	if err := f.enter("EnsureUser"); err != nil {
		return err
	}
	return f.inner.EnsureUser(ctx, user)
}
