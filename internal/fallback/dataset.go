// Package fallback provides the in-memory dataset served while failover is
// active. It implements the full ideas.Backend contract and never reports a
// connectivity failure.
package fallback

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"ideas-go/internal/bulkimport"
	"ideas-go/internal/ideas"
	"ideas-go/internal/model"
)

const (
	DemoUserID     = "demo-user"
	DemoGroupID    = "demo-group"
	DemoInviteCode = "DEMO123"
	DefaultCatID   = "demo-cat-1"
)

// Dataset is a mutable in-memory store seeded with demo data.
// It is safe for concurrent use.
type Dataset struct {
	clock   ideas.Clock
	ids     ideas.IDGenerator
	latency time.Duration

	mu         sync.RWMutex
	users      map[string]*model.User
	groups     []*model.Group
	members    []*model.GroupMember
	categories []*model.Category
	ideas      []*model.Idea
	lastOrder  int64
}

var _ ideas.Backend = (*Dataset)(nil)

// New creates a Dataset seeded with one demo user, one demo group, three
// categories and four ideas. latency, if positive, is slept before each read.
func New(clock ideas.Clock, ids ideas.IDGenerator, latency time.Duration) *Dataset {
	d := &Dataset{
		clock:   clock,
		ids:     ids,
		latency: latency,
		users:   make(map[string]*model.User),
	}
	d.seed()
	return d
}

func (d *Dataset) seed() {
	now := d.clock.Now()
	day := 24 * time.Hour

	user := &model.User{ID: DemoUserID, Email: "demo@ideas.com", Name: "Usuario Demo", CreatedAt: now}
	d.users[user.ID] = user

	d.groups = []*model.Group{{
		ID:          DemoGroupID,
		Name:        "Grupo Demo (Offline)",
		Description: "Grupo de demostración - modo offline",
		OwnerID:     DemoUserID,
		InviteCode:  DemoInviteCode,
		Color:       model.DefaultColor,
		MemberCount: 1,
		CreatedAt:   now,
	}}
	d.members = []*model.GroupMember{{
		ID:       "demo-member-1",
		GroupID:  DemoGroupID,
		UserID:   DemoUserID,
		Role:     model.RoleOwner,
		JoinedAt: now,
	}}

	d.categories = []*model.Category{
		{ID: DefaultCatID, Name: model.DefaultCategoryName, Color: "#3B82F6", Icon: model.DefaultCategoryIcon, Order: 0, IsDefault: true},
		{ID: "demo-cat-2", Name: "Trabajo", Color: "#10B981", Icon: "💼", Order: 1},
		{ID: "demo-cat-3", Name: "Personal", Color: "#F59E0B", Icon: "🏠", Order: 2},
	}
	for _, c := range d.categories {
		c.GroupID = DemoGroupID
		c.CreatedBy = DemoUserID
		c.CreatedAt = now
	}

	completedAt := now
	seeds := []struct {
		id, text, desc, cat string
		age                 time.Duration
		priority, completed bool
	}{
		{"demo-idea-1", "Leer un libro nuevo", "Elegir un libro interesante y dedicar 30 minutos diarios a la lectura", "demo-cat-3", 2 * day, false, false},
		{"demo-idea-2", "Organizar el escritorio", "Limpiar y organizar todos los papeles y materiales del escritorio", "demo-cat-2", day, true, false},
		{"demo-idea-3", "Hacer ejercicio", "Salir a caminar o hacer una rutina de ejercicios en casa", "demo-cat-3", 3 * day, false, true},
		{"demo-idea-4", "Llamar a un amigo", "Reconectar con alguien importante", "demo-cat-3", 0, false, false},
	}
	for _, s := range seeds {
		created := now.Add(-s.age)
		idea := &model.Idea{
			ID:          s.id,
			Text:        s.text,
			Description: s.desc,
			CategoryID:  s.cat,
			Priority:    s.priority,
			Completed:   s.completed,
			CreatedAt:   created,
			Order:       created.UnixMilli(),
			GroupID:     DemoGroupID,
			CreatedBy:   DemoUserID,
		}
		if s.completed {
			idea.CompletedAt = &completedAt
		}
		d.ideas = append(d.ideas, idea)
		d.lastOrder = max(d.lastOrder, idea.Order)
	}
}

// CanonicalGroup returns the demo group as its owner sees it. It is the
// snapshot persisted when failover activates.
func (d *Dataset) CanonicalGroup() *model.GroupWithMembers {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.groupView(d.groups[0], DemoUserID)
}

// GetGroupIdeas returns copies of the group's ideas sorted by order.
func (d *Dataset) GetGroupIdeas(ctx context.Context, groupID string) ([]*model.Idea, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*model.Idea
	for _, idea := range d.ideas {
		if idea.GroupID == groupID {
			out = append(out, d.copyIdea(idea))
		}
	}
	slices.SortStableFunc(out, func(a, b *model.Idea) int { return cmp.Compare(a.Order, b.Order) })
	return out, nil
}

// GetGroupCategories returns copies of the group's categories sorted by order.
func (d *Dataset) GetGroupCategories(ctx context.Context, groupID string) ([]*model.Category, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*model.Category
	for _, c := range d.categories {
		if c.GroupID == groupID {
			cp := *c
			out = append(out, &cp)
		}
	}
	slices.SortStableFunc(out, func(a, b *model.Category) int { return cmp.Compare(a.Order, b.Order) })
	return out, nil
}

// GetUserGroups returns the user's groups. A user with no groups here gets
// the demo group so navigation keeps working.
func (d *Dataset) GetUserGroups(ctx context.Context, userID string) ([]*model.GroupWithMembers, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*model.GroupWithMembers
	for _, g := range d.groups {
		if d.memberIndex(g.ID, userID) >= 0 {
			out = append(out, d.groupView(g, userID))
		}
	}
	if len(out) == 0 {
		out = append(out, d.groupView(d.groups[0], DemoUserID))
	}
	return out, nil
}

func (d *Dataset) CreateIdea(_ context.Context, in model.NewIdea) (string, error) {
	if strings.TrimSpace(in.Text) == "" {
		return "", ideas.ErrEmptyText
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	idea := &model.Idea{
		ID:          "demo-idea-" + d.ids.New(),
		Text:        in.Text,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Priority:    in.Priority,
		CreatedAt:   now,
		Order:       d.nextOrder(now),
		GroupID:     in.GroupID,
		CreatedBy:   in.UserID,
	}
	d.ideas = append(d.ideas, idea)
	return idea.ID, nil
}

func (d *Dataset) UpdateIdea(_ context.Context, ideaID string, patch model.IdeaPatch) error {
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return ideas.ErrEmptyText
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if i := d.ideaIndex(ideaID); i >= 0 {
		patch.Apply(d.ideas[i], d.clock.Now())
	}
	return nil
}

func (d *Dataset) DeleteIdea(_ context.Context, ideaID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i := d.ideaIndex(ideaID); i >= 0 {
		d.ideas = slices.Delete(d.ideas, i, i+1)
	}
	return nil
}

// CompleteIdea marks the idea completed now. No completion record is kept;
// history is derived from the ideas themselves.
func (d *Dataset) CompleteIdea(_ context.Context, _ string, ideaID, date string) error {
	if err := ideas.ValidateDate(date); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if i := d.ideaIndex(ideaID); i >= 0 {
		now := d.clock.Now()
		d.ideas[i].Completed = true
		d.ideas[i].CompletedAt = &now
	}
	return nil
}

func (d *Dataset) CreateCategory(_ context.Context, in model.NewCategory) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", ideas.ErrEmptyName
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	c := &model.Category{
		ID:        "demo-cat-" + d.ids.New(),
		Name:      in.Name,
		Color:     cmp.Or(in.Color, model.DefaultColor),
		Icon:      cmp.Or(in.Icon, model.DefaultCategoryIcon),
		Order:     d.nextOrder(now),
		GroupID:   in.GroupID,
		CreatedBy: in.UserID,
		CreatedAt: now,
	}
	d.categories = append(d.categories, c)
	return c.ID, nil
}

func (d *Dataset) UpdateCategory(_ context.Context, categoryID string, patch model.CategoryPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return ideas.ErrEmptyName
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if i := d.categoryIndex(categoryID); i >= 0 {
		patch.Apply(d.categories[i])
	}
	return nil
}

// DeleteCategory removes the category and clears it from its ideas.
func (d *Dataset) DeleteCategory(_ context.Context, categoryID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.categoryIndex(categoryID)
	if i < 0 {
		return nil
	}
	if d.categories[i].IsDefault {
		return ideas.ErrDefaultCategory
	}
	d.categories = slices.Delete(d.categories, i, i+1)
	for _, idea := range d.ideas {
		if idea.CategoryID == categoryID {
			idea.CategoryID = ""
		}
	}
	return nil
}

// ImportIdeas parses text and appends one idea per entry with strictly
// increasing order keys.
func (d *Dataset) ImportIdeas(_ context.Context, userID, groupID, text, categoryID string) (int, error) {
	entries := bulkimport.Parse(text)
	if len(entries) == 0 {
		return 0, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	keys := bulkimport.OrderKeys(d.nextOrder(now), len(entries))
	for i, e := range entries {
		d.ideas = append(d.ideas, &model.Idea{
			ID:          fmt.Sprintf("demo-idea-%s-%d", d.ids.New(), i),
			Text:        e.Title,
			Description: e.Description,
			CategoryID:  categoryID,
			CreatedAt:   now,
			Order:       keys[i],
			GroupID:     groupID,
			CreatedBy:   userID,
		})
	}
	d.lastOrder = keys[len(keys)-1]
	return len(entries), nil
}

func (d *Dataset) CreateGroup(_ context.Context, in model.NewGroup) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", ideas.ErrEmptyName
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	g := &model.Group{
		ID:          "demo-group-" + d.ids.New(),
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     in.UserID,
		InviteCode:  d.newInviteCode(),
		Color:       cmp.Or(in.Color, model.DefaultColor),
		MemberCount: 1,
		CreatedAt:   now,
	}
	d.groups = append(d.groups, g)
	d.members = append(d.members, &model.GroupMember{
		ID:       "demo-member-" + d.ids.New(),
		GroupID:  g.ID,
		UserID:   in.UserID,
		Role:     model.RoleOwner,
		JoinedAt: now,
	})
	d.categories = append(d.categories, &model.Category{
		ID:        "demo-cat-" + d.ids.New(),
		Name:      model.DefaultCategoryName,
		Color:     model.DefaultColor,
		Icon:      model.DefaultCategoryIcon,
		GroupID:   g.ID,
		CreatedBy: in.UserID,
		CreatedAt: now,
		IsDefault: true,
	})
	return g.ID, nil
}

// JoinGroup adds the user to the group with the invite code. Unknown codes
// and repeat joins are rejected with domain errors.
func (d *Dataset) JoinGroup(_ context.Context, userID, inviteCode string) error {
	code := ideas.ParseInviteCode(inviteCode)
	d.mu.Lock()
	defer d.mu.Unlock()

	var group *model.Group
	for _, g := range d.groups {
		if g.InviteCode == code {
			group = g
			break
		}
	}
	if group == nil {
		return ideas.ErrInvalidInviteCode
	}
	if d.memberIndex(group.ID, userID) >= 0 {
		return ideas.ErrAlreadyMember
	}

	d.members = append(d.members, &model.GroupMember{
		ID:       "demo-member-" + d.ids.New(),
		GroupID:  group.ID,
		UserID:   userID,
		Role:     model.RoleMember,
		JoinedAt: d.clock.Now(),
	})
	group.MemberCount = d.countMembers(group.ID)
	return nil
}

func (d *Dataset) UpdateGroup(_ context.Context, groupID string, patch model.GroupPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return ideas.ErrEmptyName
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, g := range d.groups {
		if g.ID == groupID {
			patch.Apply(g)
		}
	}
	return nil
}

func (d *Dataset) RemoveGroupMember(_ context.Context, groupID, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.memberIndex(groupID, userID)
	if i < 0 {
		return nil
	}
	d.members = slices.Delete(d.members, i, i+1)
	for _, g := range d.groups {
		if g.ID == groupID {
			g.MemberCount = d.countMembers(groupID)
		}
	}
	return nil
}

func (d *Dataset) UpdateGroupMemberRole(_ context.Context, groupID, userID string, role model.Role) error {
	if !role.Valid() {
		return ideas.ErrInvalidRole
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if i := d.memberIndex(groupID, userID); i >= 0 {
		d.members[i].Role = role
	}
	return nil
}

// GetDailyCompletions derives completions from ideas completed on date.
func (d *Dataset) GetDailyCompletions(ctx context.Context, groupID, date string) ([]*model.DailyCompletion, error) {
	if err := ideas.ValidateDate(date); err != nil {
		return nil, err
	}
	history, err := d.GetCompletionHistory(ctx, groupID)
	if err != nil {
		return nil, err
	}
	var out []*model.DailyCompletion
	for _, c := range history {
		if c.Date == date {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetCompletionHistory derives one completion per completed idea.
func (d *Dataset) GetCompletionHistory(ctx context.Context, groupID string) ([]*model.DailyCompletion, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*model.DailyCompletion
	for _, idea := range d.ideas {
		if idea.GroupID != groupID || !idea.Completed || idea.CompletedAt == nil {
			continue
		}
		out = append(out, &model.DailyCompletion{
			ID:          "demo-completion-" + idea.ID,
			IdeaID:      idea.ID,
			Date:        idea.CompletedAt.Format(time.DateOnly),
			GroupID:     groupID,
			CompletedBy: idea.CreatedBy,
			CompletedAt: *idea.CompletedAt,
			Idea:        d.copyIdea(idea),
		})
	}
	slices.SortStableFunc(out, func(a, b *model.DailyCompletion) int { return a.CompletedAt.Compare(b.CompletedAt) })
	return out, nil
}

func (d *Dataset) EnsureUser(_ context.Context, user model.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.users[user.ID]; ok {
		existing.Email = user.Email
		existing.Name = user.Name
		existing.Avatar = user.Avatar
		return nil
	}
	u := user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = d.clock.Now()
	}
	d.users[u.ID] = &u
	return nil
}

// wait simulates remote latency.
func (d *Dataset) wait(ctx context.Context) error {
	if d.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// nextOrder must be called with d.mu held.
func (d *Dataset) nextOrder(now time.Time) int64 {
	d.lastOrder = model.NextOrder(now, d.lastOrder)
	return d.lastOrder
}

func (d *Dataset) newInviteCode() string {
	for {
		code := strings.ToUpper(strings.ReplaceAll(d.ids.New(), "-", ""))
		if len(code) > 6 {
			code = code[len(code)-6:]
		}
		taken := false
		for _, g := range d.groups {
			if g.InviteCode == code {
				taken = true
				break
			}
		}
		if !taken {
			return code
		}
	}
}

func (d *Dataset) copyIdea(idea *model.Idea) *model.Idea {
	cp := *idea
	if idea.CompletedAt != nil {
		t := *idea.CompletedAt
		cp.CompletedAt = &t
	}
	if u, ok := d.users[idea.CreatedBy]; ok {
		uc := *u
		cp.CreatedByUser = &uc
	}
	return &cp
}

func (d *Dataset) groupView(g *model.Group, userID string) *model.GroupWithMembers {
	view := &model.GroupWithMembers{
		Group:   *g,
		Members: []model.GroupMember{},
		IsOwner: g.OwnerID == userID,
	}
	for _, m := range d.members {
		if m.GroupID != g.ID {
			continue
		}
		member := *m
		if u, ok := d.users[m.UserID]; ok {
			uc := *u
			member.User = &uc
		}
		view.Members = append(view.Members, member)
		if m.UserID == userID {
			view.UserRole = m.Role
		}
	}
	return view
}

func (d *Dataset) ideaIndex(id string) int {
	return slices.IndexFunc(d.ideas, func(i *model.Idea) bool { return i.ID == id })
}

func (d *Dataset) categoryIndex(id string) int {
	return slices.IndexFunc(d.categories, func(c *model.Category) bool { return c.ID == id })
}

func (d *Dataset) memberIndex(groupID, userID string) int {
	return slices.IndexFunc(d.members, func(m *model.GroupMember) bool {
		return m.GroupID == groupID && m.UserID == userID
	})
}

func (d *Dataset) countMembers(groupID string) int {
	n := 0
	for _, m := range d.members {
		if m.GroupID == groupID {
			n++
		}
	}
	return n
}
