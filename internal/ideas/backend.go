package ideas

import (
	"context"

	"ideas-go/internal/model"
)

// Backend is the data contract shared by the remote stores and the fallback
// dataset. Implementations wrap failures with context but do not classify them;
// business-rule rejections are returned as *DomainError.
//
// Updates and deletes of unknown IDs are no-ops.
type Backend interface {
	// GetGroupIdeas returns every idea in the group, sorted ascending by Order.
	GetGroupIdeas(ctx context.Context, groupID string) ([]*model.Idea, error)

	// GetGroupCategories returns every category in the group, sorted ascending by Order.
	GetGroupCategories(ctx context.Context, groupID string) ([]*model.Category, error)

	// GetUserGroups returns the groups userID belongs to, with members.
	GetUserGroups(ctx context.Context, userID string) ([]*model.GroupWithMembers, error)

	// CreateIdea stores a new idea and returns its ID.
	CreateIdea(ctx context.Context, in model.NewIdea) (string, error)
	UpdateIdea(ctx context.Context, ideaID string, patch model.IdeaPatch) error
	DeleteIdea(ctx context.Context, ideaID string) error

	// CompleteIdea marks the idea completed and, where the store keeps one,
	// appends a DailyCompletion for date (YYYY-MM-DD).
	CompleteIdea(ctx context.Context, userID, ideaID, date string) error

	// CreateCategory stores a new category and returns its ID.
	CreateCategory(ctx context.Context, in model.NewCategory) (string, error)
	UpdateCategory(ctx context.Context, categoryID string, patch model.CategoryPatch) error

	// DeleteCategory removes a non-default category and clears CategoryID on
	// its ideas. Deleting the default category returns ErrDefaultCategory.
	DeleteCategory(ctx context.Context, categoryID string) error

	// ImportIdeas parses text into ideas and stores them. Returns the number
	// of ideas created.
	ImportIdeas(ctx context.Context, userID, groupID, text, categoryID string) (int, error)

	// CreateGroup creates a group owned by in.UserID, with the owner's
	// membership and the default category. Returns the group ID.
	CreateGroup(ctx context.Context, in model.NewGroup) (string, error)

	// JoinGroup adds userID to the group with the given invite code. The code
	// may be a full ".../join/<code>" link.
	JoinGroup(ctx context.Context, userID, inviteCode string) error

	UpdateGroup(ctx context.Context, groupID string, patch model.GroupPatch) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
	UpdateGroupMemberRole(ctx context.Context, groupID, userID string, role model.Role) error

	// GetDailyCompletions returns the completions in a group for one date.
	GetDailyCompletions(ctx context.Context, groupID, date string) ([]*model.DailyCompletion, error)

	// GetCompletionHistory returns every completion in a group, oldest first.
	GetCompletionHistory(ctx context.Context, groupID string) ([]*model.DailyCompletion, error)

	// EnsureUser creates or refreshes the user record.
	EnsureUser(ctx context.Context, user model.User) error
}
