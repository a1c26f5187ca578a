package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultColor        = "#3B82F6"
	DefaultCategoryName = "Ideas Generales"
	DefaultCategoryIcon = "📁"
)

// Role is a member's role within a group.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// User is a person referenced by ownership fields. Created on first sign-in.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"dateCreated"`
}

// Group is a set of users sharing ideas and categories, joined by invite code.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	InviteCode  string    `json:"inviteCode"`
	Color       string    `json:"color"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"dateCreated"`
}

// GroupMember links a user to a group. One per (group, user) pair.
type GroupMember struct {
	ID       string    `json:"id"`
	GroupID  string    `json:"groupId"`
	UserID   string    `json:"userId"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"dateJoined"`
	User     *User     `json:"user,omitempty"`
}

// GroupWithMembers is a group as seen by one user: its members plus that
// user's role.
type GroupWithMembers struct {
	Group
	Members  []GroupMember `json:"members"`
	IsOwner  bool          `json:"isOwner"`
	UserRole Role          `json:"userRole"`
}

// Validate checks the fields a caller relies on when a group snapshot is read
// back from durable storage.
func (g *GroupWithMembers) Validate() error {
	if g == nil {
		return fmt.Errorf("group is nil")
	}
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("group id is empty")
	}
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("group %s has no name", g.ID)
	}
	if g.InviteCode == "" {
		return fmt.Errorf("group %s has no invite code", g.ID)
	}
	if g.UserRole != "" && !g.UserRole.Valid() {
		return fmt.Errorf("group %s has invalid role %q", g.ID, g.UserRole)
	}
	if g.MemberCount < 0 {
		return fmt.Errorf("group %s has negative member count", g.ID)
	}
	return nil
}

// Category organizes ideas within a group.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon,omitempty"`
	Order     int64     `json:"order"`
	GroupID   string    `json:"groupId"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"dateCreated"`
	IsDefault bool      `json:"isDefault,omitempty"`
}

// Idea is a single thing to do. Completed is true exactly when CompletedAt is set.
type Idea struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	Description   string     `json:"description,omitempty"`
	CategoryID    string     `json:"categoryId,omitempty"`
	Priority      bool       `json:"priority"`
	Completed     bool       `json:"completed"`
	CreatedAt     time.Time  `json:"dateCreated"`
	CompletedAt   *time.Time `json:"dateCompleted"`
	Order         int64      `json:"order"`
	GroupID       string     `json:"groupId"`
	CreatedBy     string     `json:"createdBy"`
	CreatedByUser *User      `json:"createdByUser,omitempty"`
}

// DailyCompletion records that an idea was completed on a calendar date.
// It is kept even if the idea is later marked incomplete.
type DailyCompletion struct {
	ID          string    `json:"id"`
	IdeaID      string    `json:"ideaId"`
	Date        string    `json:"date"` // YYYY-MM-DD
	GroupID     string    `json:"groupId"`
	CompletedBy string    `json:"completedBy"`
	CompletedAt time.Time `json:"dateCompleted"`
	Idea        *Idea     `json:"idea,omitempty"`
}

// NewIdea holds the input for creating an idea.
type NewIdea struct {
	UserID      string
	GroupID     string
	Text        string
	Description string
	CategoryID  string
	Priority    bool
}

// NewCategory holds the input for creating a category.
type NewCategory struct {
	UserID  string
	GroupID string
	Name    string
	Color   string
	Icon    string
}

// NewGroup holds the input for creating a group.
type NewGroup struct {
	UserID      string
	Name        string
	Description string
	Color       string
}

// IdeaPatch is a partial update. Nil fields are left unchanged.
type IdeaPatch struct {
	Text        *string
	Description *string
	CategoryID  *string
	Priority    *bool
	Completed   *bool
}

// Apply writes the patch onto idea. Setting Completed keeps CompletedAt in
// step with it.
func (p IdeaPatch) Apply(idea *Idea, now time.Time) {
	if p.Text != nil {
		idea.Text = *p.Text
	}
	if p.Description != nil {
		idea.Description = *p.Description
	}
	if p.CategoryID != nil {
		idea.CategoryID = *p.CategoryID
	}
	if p.Priority != nil {
		idea.Priority = *p.Priority
	}
	if p.Completed != nil && *p.Completed != idea.Completed {
		idea.Completed = *p.Completed
		if idea.Completed {
			t := now
			idea.CompletedAt = &t
		} else {
			idea.CompletedAt = nil
		}
	}
}

// CategoryPatch is a partial update. Nil fields are left unchanged.
type CategoryPatch struct {
	Name  *string
	Color *string
	Icon  *string
	Order *int64
}

// Apply writes the patch onto c.
func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Order != nil {
		c.Order = *p.Order
	}
}

// GroupPatch is a partial update. Nil fields are left unchanged.
type GroupPatch struct {
	Name        *string
	Description *string
	Color       *string
}

// Apply writes the patch onto g.
func (p GroupPatch) Apply(g *Group) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Color != nil {
		g.Color = *p.Color
	}
}

// NextOrder returns an order key for a new record: the current time in
// milliseconds, bumped past last so keys keep increasing within a millisecond.
func NextOrder(now time.Time, last int64) int64 {
	ms := now.UnixMilli()
	if ms <= last {
		return last + 1
	}
	return ms
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
