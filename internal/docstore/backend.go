package docstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"ideas-go/internal/bulkimport"
	"ideas-go/internal/ideas"
	"ideas-go/internal/model"
)

// fetchLimit bounds concurrent document reads and writes.
const fetchLimit = 8

// Backend implements ideas.Backend on a document Store. Layout:
//
//	users/<userID>.json
//	groups/<groupID>.json
//	members/<groupID>/<userID>.json
//	memberships/<userID>/<groupID>.json
//	invites/<code>.json
//	categories/<groupID>/<categoryID>.json
//	ideas/<groupID>/<ideaID>.json
//	completions/<groupID>/<date>/<completionID>.json
//	index/<kind>/<id>.json
//
// The index documents map an idea or category ID to its group, since the
// Backend operations address them by ID alone.
//
// Writes are serialized within the process. Multi-document writes are not
// atomic: a failure part way leaves the documents already written.
type Backend struct {
	store Store
	clock ideas.Clock
	ids   ideas.IDGenerator

	mu     sync.Mutex
	orders map[string]int64 // last order key per "<kind>/<groupID>"
}

var _ ideas.Backend = (*Backend)(nil)

// NewBackend creates a Backend over store. A nil clock uses the real time and
// a nil id generator produces ULIDs.
func NewBackend(store Store, clock ideas.Clock, ids ideas.IDGenerator) *Backend {
	if clock == nil {
		clock = ideas.RealClock{}
	}
	if ids == nil {
		ids = ideas.ULIDGenerator{}
	}
	return &Backend{store: store, clock: clock, ids: ids, orders: make(map[string]int64)}
}

// Ping reports whether the underlying store answers.
func (b *Backend) Ping(ctx context.Context) error {
	return b.store.Ping(ctx)
}

type groupDoc struct {
	model.Group
	UpdatedAt time.Time `json:"dateUpdated"`
}

type locator struct {
	GroupID string `json:"groupId"`
}

func userKey(id string) string                { return "users/" + id + ".json" }
func groupKey(id string) string               { return "groups/" + id + ".json" }
func memberKey(groupID, userID string) string { return "members/" + groupID + "/" + userID + ".json" }
func membershipKey(userID, groupID string) string {
	return "memberships/" + userID + "/" + groupID + ".json"
}
func inviteKey(code string) string          { return "invites/" + code + ".json" }
func categoryKey(groupID, id string) string { return "categories/" + groupID + "/" + id + ".json" }
func ideaKey(groupID, id string) string     { return "ideas/" + groupID + "/" + id + ".json" }
func indexKey(kind, id string) string       { return "index/" + kind + "/" + id + ".json" }
func completionKey(c *model.DailyCompletion) string {
	return "completions/" + c.GroupID + "/" + c.Date + "/" + c.ID + ".json"
}

// getDoc decodes the document at key. A missing document is (nil, nil).
func getDoc[T any](ctx context.Context, s Store, key string) (*T, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return &v, nil
}

func putDoc(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}

// listDocs fetches every document under prefix. Documents deleted between the
// listing and the fetch are skipped.
func listDocs[T any](ctx context.Context, s Store, prefix string) ([]*T, error) {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	found := make([]*T, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for i, key := range keys {
		g.Go(func() error {
			v, err := getDoc[T](gctx, s, key)
			if err != nil {
				return err
			}
			found[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.DeleteFunc(found, func(v *T) bool { return v == nil }), nil
}

type pendingDoc struct {
	key string
	v   any
}

// putDocs writes docs concurrently.
func putDocs(ctx context.Context, s Store, docs []pendingDoc) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for _, d := range docs {
		g.Go(func() error { return putDoc(gctx, s, d.key, d.v) })
	}
	return g.Wait()
}

// nextOrders reserves n increasing order keys for kind in groupID. The caller
// holds b.mu. The first call per group scans the stored documents.
func (b *Backend) nextOrders(ctx context.Context, kind, groupID string, n int) ([]int64, error) {
	slot := kind + "/" + groupID
	last, ok := b.orders[slot]
	if !ok {
		var err error
		switch kind {
		case "ideas":
			last, err = maxOrder(ctx, b.store, kind+"/"+groupID+"/", func(i *model.Idea) int64 { return i.Order })
		case "categories":
			last, err = maxOrder(ctx, b.store, kind+"/"+groupID+"/", func(c *model.Category) int64 { return c.Order })
		}
		if err != nil {
			return nil, fmt.Errorf("reading last order in %s: %w", slot, err)
		}
	}
	keys := bulkimport.OrderKeys(model.NextOrder(b.clock.Now(), last), n)
	b.orders[slot] = keys[len(keys)-1]
	return keys, nil
}

func maxOrder[T any](ctx context.Context, s Store, prefix string, order func(*T) int64) (int64, error) {
	docs, err := listDocs[T](ctx, s, prefix)
	if err != nil {
		return 0, err
	}
	var last int64
	for _, d := range docs {
		last = max(last, order(d))
	}
	return last, nil
}

func (b *Backend) locate(ctx context.Context, kind, id string) (string, error) {
	loc, err := getDoc[locator](ctx, b.store, indexKey(kind, id))
	if err != nil {
		return "", fmt.Errorf("locating %s %s: %w", kind, id, err)
	}
	if loc == nil {
		return "", nil
	}
	return loc.GroupID, nil
}

// findIdea returns nil when the idea does not exist.
func (b *Backend) findIdea(ctx context.Context, ideaID string) (*model.Idea, error) {
	groupID, err := b.locate(ctx, "ideas", ideaID)
	if err != nil || groupID == "" {
		return nil, err
	}
	return getDoc[model.Idea](ctx, b.store, ideaKey(groupID, ideaID))
}

func (b *Backend) findCategory(ctx context.Context, categoryID string) (*model.Category, error) {
	groupID, err := b.locate(ctx, "categories", categoryID)
	if err != nil || groupID == "" {
		return nil, err
	}
	return getDoc[model.Category](ctx, b.store, categoryKey(groupID, categoryID))
}

// users loads the distinct users in ids. Unknown users are absent from the map.
func (b *Backend) users(ctx context.Context, ids []string) (map[string]*model.User, error) {
	slices.Sort(ids)
	ids = slices.Compact(ids)

	found := make([]*model.User, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for i, id := range ids {
		g.Go(func() error {
			u, err := getDoc[model.User](gctx, b.store, userKey(id))
			found[i] = u
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}

	out := make(map[string]*model.User, len(ids))
	for _, u := range found {
		if u != nil {
			out[u.ID] = u
		}
	}
	return out, nil
}

// Ideas

func (b *Backend) GetGroupIdeas(ctx context.Context, groupID string) ([]*model.Idea, error) {
	list, err := listDocs[model.Idea](ctx, b.store, "ideas/"+groupID+"/")
	if err != nil {
		return nil, fmt.Errorf("listing ideas for group %s: %w", groupID, err)
	}
	slices.SortFunc(list, func(x, y *model.Idea) int {
		return cmp.Or(cmp.Compare(x.Order, y.Order), strings.Compare(x.ID, y.ID))
	})

	creators := make([]string, 0, len(list))
	for _, idea := range list {
		creators = append(creators, idea.CreatedBy)
	}
	users, err := b.users(ctx, creators)
	if err != nil {
		return nil, err
	}
	for _, idea := range list {
		idea.CreatedByUser = users[idea.CreatedBy]
	}
	return list, nil
}

func (b *Backend) CreateIdea(ctx context.Context, in model.NewIdea) (string, error) {
	if strings.TrimSpace(in.Text) == "" {
		return "", ideas.ErrEmptyText
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	orders, err := b.nextOrders(ctx, "ideas", in.GroupID, 1)
	if err != nil {
		return "", err
	}
	idea := &model.Idea{
		ID:          b.ids.New(),
		Text:        in.Text,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Priority:    in.Priority,
		CreatedAt:   b.clock.Now(),
		Order:       orders[0],
		GroupID:     in.GroupID,
		CreatedBy:   in.UserID,
	}
	if err := b.putIdea(ctx, idea); err != nil {
		return "", err
	}
	return idea.ID, nil
}

// putIdea writes the idea and then its index entry, so an idea is never
// reachable by ID before its document exists.
func (b *Backend) putIdea(ctx context.Context, idea *model.Idea) error {
	idea.CreatedByUser = nil
	if err := putDoc(ctx, b.store, ideaKey(idea.GroupID, idea.ID), idea); err != nil {
		return fmt.Errorf("storing idea: %w", err)
	}
	if err := putDoc(ctx, b.store, indexKey("ideas", idea.ID), locator{GroupID: idea.GroupID}); err != nil {
		return fmt.Errorf("indexing idea: %w", err)
	}
	return nil
}

func (b *Backend) UpdateIdea(ctx context.Context, ideaID string, patch model.IdeaPatch) error {
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return ideas.ErrEmptyText
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idea, err := b.findIdea(ctx, ideaID)
	if err != nil {
		return fmt.Errorf("finding idea %s: %w", ideaID, err)
	}
	if idea == nil {
		return nil
	}
	patch.Apply(idea, b.clock.Now())
	if err := putDoc(ctx, b.store, ideaKey(idea.GroupID, idea.ID), idea); err != nil {
		return fmt.Errorf("updating idea %s: %w", ideaID, err)
	}
	return nil
}

func (b *Backend) DeleteIdea(ctx context.Context, ideaID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	groupID, err := b.locate(ctx, "ideas", ideaID)
	if err != nil {
		return err
	}
	if groupID == "" {
		return nil
	}
	if err := b.store.Delete(ctx, ideaKey(groupID, ideaID)); err != nil {
		return fmt.Errorf("deleting idea %s: %w", ideaID, err)
	}
	if err := b.store.Delete(ctx, indexKey("ideas", ideaID)); err != nil {
		return fmt.Errorf("unindexing idea %s: %w", ideaID, err)
	}
	return nil
}

func (b *Backend) CompleteIdea(ctx context.Context, userID, ideaID, date string) error {
	if err := ideas.ValidateDate(date); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idea, err := b.findIdea(ctx, ideaID)
	if err != nil {
		return fmt.Errorf("finding idea %s: %w", ideaID, err)
	}
	if idea == nil {
		return nil
	}

	now := b.clock.Now()
	idea.Completed = true
	idea.CompletedAt = &now
	if err := putDoc(ctx, b.store, ideaKey(idea.GroupID, idea.ID), idea); err != nil {
		return fmt.Errorf("completing idea %s: %w", ideaID, err)
	}

	c := &model.DailyCompletion{
		ID:          b.ids.New(),
		IdeaID:      ideaID,
		Date:        date,
		GroupID:     idea.GroupID,
		CompletedBy: userID,
		CompletedAt: now,
	}
	if err := putDoc(ctx, b.store, completionKey(c), c); err != nil {
		return fmt.Errorf("recording completion: %w", err)
	}
	return nil
}

func (b *Backend) ImportIdeas(ctx context.Context, userID, groupID, text, categoryID string) (int, error) {
	entries := bulkimport.Parse(text)
	if len(entries) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	orders, err := b.nextOrders(ctx, "ideas", groupID, len(entries))
	if err != nil {
		return 0, err
	}
	now := b.clock.Now()
	docs := make([]pendingDoc, 0, len(entries))
	index := make([]pendingDoc, 0, len(entries))
	for i, e := range entries {
		idea := &model.Idea{
			ID:          b.ids.New(),
			Text:        e.Title,
			Description: e.Description,
			CategoryID:  categoryID,
			CreatedAt:   now,
			Order:       orders[i],
			GroupID:     groupID,
			CreatedBy:   userID,
		}
		docs = append(docs, pendingDoc{key: ideaKey(groupID, idea.ID), v: idea})
		index = append(index, pendingDoc{key: indexKey("ideas", idea.ID), v: locator{GroupID: groupID}})
	}

	if err := putDocs(ctx, b.store, docs); err != nil {
		return 0, fmt.Errorf("storing imported ideas: %w", err)
	}
	if err := putDocs(ctx, b.store, index); err != nil {
		return 0, fmt.Errorf("indexing imported ideas: %w", err)
	}
	return len(entries), nil
}

// Categories

func (b *Backend) GetGroupCategories(ctx context.Context, groupID string) ([]*model.Category, error) {
	list, err := listDocs[model.Category](ctx, b.store, "categories/"+groupID+"/")
	if err != nil {
		return nil, fmt.Errorf("listing categories for group %s: %w", groupID, err)
	}
	slices.SortFunc(list, func(x, y *model.Category) int {
		return cmp.Or(cmp.Compare(x.Order, y.Order), strings.Compare(x.ID, y.ID))
	})
	return list, nil
}

func (b *Backend) CreateCategory(ctx context.Context, in model.NewCategory) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", ideas.ErrEmptyName
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	orders, err := b.nextOrders(ctx, "categories", in.GroupID, 1)
	if err != nil {
		return "", err
	}
	c := &model.Category{
		ID:        b.ids.New(),
		Name:      in.Name,
		Color:     cmp.Or(in.Color, model.DefaultColor),
		Icon:      cmp.Or(in.Icon, model.DefaultCategoryIcon),
		Order:     orders[0],
		GroupID:   in.GroupID,
		CreatedBy: in.UserID,
		CreatedAt: b.clock.Now(),
	}
	if err := b.putCategory(ctx, c); err != nil {
		return "", err
	}
	return c.ID, nil
}

func (b *Backend) putCategory(ctx context.Context, c *model.Category) error {
	if err := putDoc(ctx, b.store, categoryKey(c.GroupID, c.ID), c); err != nil {
		return fmt.Errorf("storing category: %w", err)
	}
	if err := putDoc(ctx, b.store, indexKey("categories", c.ID), locator{GroupID: c.GroupID}); err != nil {
		return fmt.Errorf("indexing category: %w", err)
	}
	return nil
}

func (b *Backend) UpdateCategory(ctx context.Context, categoryID string, patch model.CategoryPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return ideas.ErrEmptyName
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.findCategory(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("finding category %s: %w", categoryID, err)
	}
	if c == nil {
		return nil
	}
	patch.Apply(c)
	if err := putDoc(ctx, b.store, categoryKey(c.GroupID, c.ID), c); err != nil {
		return fmt.Errorf("updating category %s: %w", categoryID, err)
	}
	return nil
}

// DeleteCategory clears the category from its ideas before removing it.
func (b *Backend) DeleteCategory(ctx context.Context, categoryID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.findCategory(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("finding category %s: %w", categoryID, err)
	}
	if c == nil {
		return nil
	}
	if c.IsDefault {
		return ideas.ErrDefaultCategory
	}

	list, err := listDocs[model.Idea](ctx, b.store, "ideas/"+c.GroupID+"/")
	if err != nil {
		return fmt.Errorf("listing ideas for group %s: %w", c.GroupID, err)
	}
	var cleared []pendingDoc
	for _, idea := range list {
		if idea.CategoryID == categoryID {
			idea.CategoryID = ""
			cleared = append(cleared, pendingDoc{key: ideaKey(idea.GroupID, idea.ID), v: idea})
		}
	}
	if err := putDocs(ctx, b.store, cleared); err != nil {
		return fmt.Errorf("clearing category %s from ideas: %w", categoryID, err)
	}

	if err := b.store.Delete(ctx, categoryKey(c.GroupID, c.ID)); err != nil {
		return fmt.Errorf("deleting category %s: %w", categoryID, err)
	}
	if err := b.store.Delete(ctx, indexKey("categories", c.ID)); err != nil {
		return fmt.Errorf("unindexing category %s: %w", categoryID, err)
	}
	return nil
}

// Groups

func (b *Backend) GetUserGroups(ctx context.Context, userID string) ([]*model.GroupWithMembers, error) {
	memberships, err := listDocs[model.GroupMember](ctx, b.store, "memberships/"+userID+"/")
	if err != nil {
		return nil, fmt.Errorf("listing groups for user %s: %w", userID, err)
	}

	var out []*model.GroupWithMembers
	for _, ms := range memberships {
		g, err := getDoc[groupDoc](ctx, b.store, groupKey(ms.GroupID))
		if err != nil {
			return nil, fmt.Errorf("loading group %s: %w", ms.GroupID, err)
		}
		if g == nil {
			continue
		}
		members, err := b.groupMembers(ctx, ms.GroupID)
		if err != nil {
			return nil, err
		}

		group := g.Group
		group.MemberCount = len(members)
		role := ms.Role
		for _, m := range members {
			if m.UserID == userID {
				role = m.Role
			}
		}
		out = append(out, &model.GroupWithMembers{
			Group:    group,
			Members:  members,
			IsOwner:  group.OwnerID == userID,
			UserRole: role,
		})
	}
	slices.SortFunc(out, func(x, y *model.GroupWithMembers) int {
		return cmp.Or(x.CreatedAt.Compare(y.CreatedAt), strings.Compare(x.ID, y.ID))
	})
	return out, nil
}

func (b *Backend) groupMembers(ctx context.Context, groupID string) ([]model.GroupMember, error) {
	list, err := listDocs[model.GroupMember](ctx, b.store, "members/"+groupID+"/")
	if err != nil {
		return nil, fmt.Errorf("listing members of group %s: %w", groupID, err)
	}
	slices.SortFunc(list, func(x, y *model.GroupMember) int {
		return cmp.Or(x.JoinedAt.Compare(y.JoinedAt), strings.Compare(x.ID, y.ID))
	})

	ids := make([]string, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.UserID)
	}
	users, err := b.users(ctx, ids)
	if err != nil {
		return nil, err
	}

	members := make([]model.GroupMember, 0, len(list))
	for _, m := range list {
		m.User = users[m.UserID]
		members = append(members, *m)
	}
	return members, nil
}

func (b *Backend) putMember(ctx context.Context, m *model.GroupMember) error {
	if err := putDoc(ctx, b.store, memberKey(m.GroupID, m.UserID), m); err != nil {
		return fmt.Errorf("storing member: %w", err)
	}
	if err := putDoc(ctx, b.store, membershipKey(m.UserID, m.GroupID), m); err != nil {
		return fmt.Errorf("storing membership: %w", err)
	}
	return nil
}

func (b *Backend) CreateGroup(ctx context.Context, in model.NewGroup) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", ideas.ErrEmptyName
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	code, err := b.newInviteCode(ctx)
	if err != nil {
		return "", err
	}

	now := b.clock.Now()
	g := &groupDoc{
		Group: model.Group{
			ID:          b.ids.New(),
			Name:        in.Name,
			Description: in.Description,
			OwnerID:     in.UserID,
			InviteCode:  code,
			Color:       cmp.Or(in.Color, model.DefaultColor),
			CreatedAt:   now,
		},
		UpdatedAt: now,
	}
	if err := putDoc(ctx, b.store, groupKey(g.ID), g); err != nil {
		return "", fmt.Errorf("storing group: %w", err)
	}
	if err := putDoc(ctx, b.store, inviteKey(code), locator{GroupID: g.ID}); err != nil {
		return "", fmt.Errorf("storing invite code: %w", err)
	}
	if err := b.putMember(ctx, &model.GroupMember{
		ID:       b.ids.New(),
		GroupID:  g.ID,
		UserID:   in.UserID,
		Role:     model.RoleOwner,
		JoinedAt: now,
	}); err != nil {
		return "", err
	}
	if err := b.putCategory(ctx, &model.Category{
		ID:        b.ids.New(),
		Name:      model.DefaultCategoryName,
		Color:     model.DefaultColor,
		Icon:      model.DefaultCategoryIcon,
		GroupID:   g.ID,
		CreatedBy: in.UserID,
		CreatedAt: now,
		IsDefault: true,
	}); err != nil {
		return "", err
	}
	return g.ID, nil
}

// newInviteCode draws six uppercase characters until one is unused.
func (b *Backend) newInviteCode(ctx context.Context) (string, error) {
	for {
		code := strings.ToUpper(strings.ReplaceAll(b.ids.New(), "-", ""))
		if len(code) > 6 {
			code = code[len(code)-6:]
		}
		taken, err := getDoc[locator](ctx, b.store, inviteKey(code))
		if err != nil {
			return "", fmt.Errorf("checking invite code: %w", err)
		}
		if taken == nil {
			return code, nil
		}
	}
}

func (b *Backend) JoinGroup(ctx context.Context, userID, inviteCode string) error {
	code := ideas.ParseInviteCode(inviteCode)
	if code == "" {
		return ideas.ErrInvalidInviteCode
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	loc, err := getDoc[locator](ctx, b.store, inviteKey(code))
	if err != nil {
		return fmt.Errorf("finding group by invite code: %w", err)
	}
	if loc == nil {
		return ideas.ErrInvalidInviteCode
	}

	existing, err := getDoc[model.GroupMember](ctx, b.store, memberKey(loc.GroupID, userID))
	if err != nil {
		return fmt.Errorf("checking membership: %w", err)
	}
	if existing != nil {
		return ideas.ErrAlreadyMember
	}
	return b.putMember(ctx, &model.GroupMember{
		ID:       b.ids.New(),
		GroupID:  loc.GroupID,
		UserID:   userID,
		Role:     model.RoleMember,
		JoinedAt: b.clock.Now(),
	})
}

func (b *Backend) UpdateGroup(ctx context.Context, groupID string, patch model.GroupPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return ideas.ErrEmptyName
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	g, err := getDoc[groupDoc](ctx, b.store, groupKey(groupID))
	if err != nil {
		return fmt.Errorf("finding group %s: %w", groupID, err)
	}
	if g == nil {
		return nil
	}
	patch.Apply(&g.Group)
	g.UpdatedAt = b.clock.Now()
	if err := putDoc(ctx, b.store, groupKey(groupID), g); err != nil {
		return fmt.Errorf("updating group %s: %w", groupID, err)
	}
	return nil
}

func (b *Backend) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.store.Delete(ctx, memberKey(groupID, userID)); err != nil {
		return fmt.Errorf("removing %s from group %s: %w", userID, groupID, err)
	}
	if err := b.store.Delete(ctx, membershipKey(userID, groupID)); err != nil {
		return fmt.Errorf("removing membership of %s in group %s: %w", userID, groupID, err)
	}
	return nil
}

func (b *Backend) UpdateGroupMemberRole(ctx context.Context, groupID, userID string, role model.Role) error {
	if !role.Valid() {
		return ideas.ErrInvalidRole
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := getDoc[model.GroupMember](ctx, b.store, memberKey(groupID, userID))
	if err != nil {
		return fmt.Errorf("finding member %s of group %s: %w", userID, groupID, err)
	}
	if m == nil {
		return nil
	}
	m.Role = role
	return b.putMember(ctx, m)
}

// Completions

func (b *Backend) GetDailyCompletions(ctx context.Context, groupID, date string) ([]*model.DailyCompletion, error) {
	if err := ideas.ValidateDate(date); err != nil {
		return nil, err
	}
	return b.completions(ctx, "completions/"+groupID+"/"+date+"/")
}

func (b *Backend) GetCompletionHistory(ctx context.Context, groupID string) ([]*model.DailyCompletion, error) {
	return b.completions(ctx, "completions/"+groupID+"/")
}

// completions attaches each completion's idea when it still exists.
func (b *Backend) completions(ctx context.Context, prefix string) ([]*model.DailyCompletion, error) {
	list, err := listDocs[model.DailyCompletion](ctx, b.store, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing completions: %w", err)
	}
	slices.SortFunc(list, func(x, y *model.DailyCompletion) int {
		return cmp.Or(x.CompletedAt.Compare(y.CompletedAt), strings.Compare(x.ID, y.ID))
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for _, c := range list {
		g.Go(func() error {
			idea, err := getDoc[model.Idea](gctx, b.store, ideaKey(c.GroupID, c.IdeaID))
			c.Idea = idea
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading completed ideas: %w", err)
	}
	return list, nil
}

// Users

// EnsureUser stores the user, keeping CreatedAt from the first write.
func (b *Backend) EnsureUser(ctx context.Context, user model.User) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := getDoc[model.User](ctx, b.store, userKey(user.ID))
	if err != nil {
		return fmt.Errorf("loading user %s: %w", user.ID, err)
	}
	switch {
	case existing != nil:
		user.CreatedAt = existing.CreatedAt
	case user.CreatedAt.IsZero():
		user.CreatedAt = b.clock.Now()
	}
	if err := putDoc(ctx, b.store, userKey(user.ID), &user); err != nil {
		return fmt.Errorf("ensuring user %s: %w", user.ID, err)
	}
	return nil
}
