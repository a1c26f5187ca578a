package docstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ideas-go/internal/ideas"
	"ideas-go/internal/model"
	"ideas-go/internal/testutil"
)

var testStores = []struct {
	name string
	new  func(t *testing.T) Store
}{
	{name: "memory", new: func(t *testing.T) Store { return NewMemoryStore() }},
	{name: "s3", new: func(t *testing.T) Store { return NewS3Store(newFakeS3("ideas"), "ideas", "test") }},
	{name: "encrypted", new: func(t *testing.T) Store { return newEncryptedStore(t, NewMemoryStore()) }},
}

// eachStore runs fn against a fresh Backend on every Store implementation.
func eachStore(t *testing.T, fn func(t *testing.T, b *Backend, clock *testutil.StubClock)) {
	for _, s := range testStores {
		t.Run(s.name, func(t *testing.T) {
			clock := testutil.FixedClock()
			fn(t, NewBackend(s.new(t), clock, testutil.NewStubIDGenerator()), clock)
		})
	}
}

func newGroup(t *testing.T, b *Backend, userID, name string) *model.GroupWithMembers {
	t.Helper()
	ctx := context.Background()

	id, err := b.CreateGroup(ctx, model.NewGroup{UserID: userID, Name: name})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	groups, err := b.GetUserGroups(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserGroups() error = %v", err)
	}
	for _, g := range groups {
		if g.ID == id {
			return g
		}
	}
	t.Fatalf("group %s not listed for %s", id, userID)
	return nil
}

func TestBackend_CreateGroup(t *testing.T) {
	eachStore(t, func(t *testing.T, b *Backend, _ *testutil.StubClock) {
		ctx := context.Background()
		if err := b.EnsureUser(ctx, model.User{ID: "u-1", Email: "ana@example.com", Name: "Ana"}); err != nil {
			t.Fatalf("EnsureUser() error = %v", err)
		}
		g := newGroup(t, b, "u-1", "Casa")

		if !g.IsOwner || g.UserRole != model.RoleOwner {
			t.Errorf("owner view = IsOwner %v, role %q", g.IsOwner, g.UserRole)
		}
		if g.MemberCount != 1 || len(g.Members) != 1 {
			t.Fatalf("MemberCount = %d, members = %d, want 1", g.MemberCount, len(g.Members))
		}
		if g.Members[0].User == nil || g.Members[0].User.Name != "Ana" {
			t.Errorf("member user = %+v, want Ana", g.Members[0].User)
		}
		if g.Color != model.DefaultColor || g.InviteCode == "" {
			t.Errorf("group = %+v", g.Group)
		}

		cats, err := b.GetGroupCategories(ctx, g.ID)
		if err != nil {
			t.Fatalf("GetGroupCategories() error = %v", err)
		}
		if len(cats) != 1 || !cats[0].IsDefault || cats[0].Name != model.DefaultCategoryName {
			t.Errorf("categories = %+v, want the default category", cats)
		}

		if _, err := b.CreateGroup(ctx, model.NewGroup{UserID: "u-1", Name: "  "}); !errors.Is(err, ideas.ErrEmptyName) {
			t.Errorf("CreateGroup(blank) error = %v, want ErrEmptyName", err)
		}
	})
}

func TestBackend_JoinGroup(t *testing.T) {
	eachStore(t, func(t *testing.T, b *Backend, _ *testutil.StubClock) {
		ctx := context.Background()
		g := newGroup(t, b, "u-1", "Casa")

		tests := []struct {
			name    string
			userID  string
			code    string
			wantErr error
		}{
			{name: "bare code", userID: "u-2", code: g.InviteCode},
			{name: "join link", userID: "u-3", code: "https://ideas.example.com/join/" + g.InviteCode},
			{name: "lowercase", userID: "u-4", code: " " + strings.ToLower(g.InviteCode) + " "},
			{name: "already member", userID: "u-2", code: g.InviteCode, wantErr: ideas.ErrAlreadyMember},
			{name: "unknown code", userID: "u-5", code: "ZZZZZZ", wantErr: ideas.ErrInvalidInviteCode},
			{name: "empty code", userID: "u-5", code: "", wantErr: ideas.ErrInvalidInviteCode},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := b.JoinGroup(ctx, tt.userID, tt.code)
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("JoinGroup() error = %v, want %v", err, tt.wantErr)
				}
			})
		}

		groups, err := b.GetUserGroups(ctx, "u-2")
		if err != nil {
			t.Fatalf("GetUserGroups() error = %v", err)
		}
		if len(groups) != 1 || groups[0].UserRole != model.RoleMember || groups[0].IsOwner {
			t.Fatalf("u-2 groups = %+v", groups)
		}
		if groups[0].MemberCount != 4 {
			t.Errorf("MemberCount = %d, want 4", groups[0].MemberCount)
		}
	})
}

func TestBackend_Members(t *testing.T) {
	eachStore(t, func(t *testing.T, b *Backend, _ *testutil.StubClock) {
		ctx := context.Background()
		g := newGroup(t, b, "u-1", "Casa")
		if err := b.JoinGroup(ctx, "u-2", g.InviteCode); err != nil {
			t.Fatalf("JoinGroup() error = %v", err)
		}

		if err := b.UpdateGroupMemberRole(ctx, g.ID, "u-2", "guest"); !errors.Is(err, ideas.ErrInvalidRole) {
			t.Errorf("invalid role error = %v, want ErrInvalidRole", err)
		}
		if err := b.UpdateGroupMemberRole(ctx, g.ID, "u-2", model.RoleAdmin); err != nil {
			t.Fatalf("UpdateGroupMemberRole() error = %v", err)
		}
		if err := b.UpdateGroupMemberRole(ctx, g.ID, "nobody", model.RoleAdmin); err != nil {
			t.Errorf("UpdateGroupMemberRole(unknown) error = %v, want nil", err)
		}
		groups, _ := b.GetUserGroups(ctx, "u-2")
		if len(groups) != 1 || groups[0].UserRole != model.RoleAdmin {
			t.Fatalf("u-2 groups = %+v, want admin", groups)
		}

		if err := b.RemoveGroupMember(ctx, g.ID, "u-2"); err != nil {
			t.Fatalf("RemoveGroupMember() error = %v", err)
		}
		groups, _ = b.GetUserGroups(ctx, "u-2")
		if len(groups) != 0 {
			t.Errorf("u-2 groups after removal = %+v", groups)
		}
		owner, _ := b.GetUserGroups(ctx, "u-1")
		if owner[0].MemberCount != 1 {
			t.Errorf("MemberCount = %d, want 1", owner[0].MemberCount)
		}
	})
}

func TestBackend_UpdateGroup(t *testing.T) {
	eachStore(t, func(t *testing.T, b *Backend, _ *testutil.StubClock) {
		ctx := context.Background()
		g := newGroup(t, b, "u-1", "Casa")

		if err := b.UpdateGroup(ctx, g.ID, model.GroupPatch{Name: model.Ptr("Piso"), Color: model.Ptr("#10B981")}); err != nil {
			t.Fatalf("UpdateGroup() error = %v", err)
		}
		if err := b.UpdateGroup(ctx, g.ID, model.GroupPatch{Name: model.Ptr("")}); !errors.Is(err, ideas.ErrEmptyName) {
			t.Errorf("UpdateGroup(blank) error = %v, want ErrEmptyName", err)
		}
		if err := b.UpdateGroup(ctx, "missing", model.GroupPatch{Name: model.Ptr("x")}); err != nil {
			t.Errorf("UpdateGroup(unknown) error = %v, want nil", err)
		}

		groups, _ := b.GetUserGroups(ctx, "u-1")
		if groups[0].Name != "Piso" || groups[0].Color != "#10B981" || groups[0].InviteCode != g.InviteCode {
			t.Errorf("group = %+v", groups[0].Group)
		}
	})
}

func TestBackend_Ideas(t *testing.T) {
	eachStore(t, func(t *testing.T, b *Backend, clock *testutil.StubClock) {
		ctx := context.Background()
		if err := b.EnsureUser(ctx, model.User{ID: "u-1", Name: "Ana"}); err != nil {
			t.Fatalf("EnsureUser() error = %v", err)
		}
		g := newGroup(t, b, "u-1", "Casa")

		var ids []string
		for _, text := range []string{"Leer", "Correr", "Cocinar"} {
			id, err := b.CreateIdea(ctx, model.NewIdea{UserID: "u-1", GroupID: g.ID, Text: text})
			if err != nil {
				t.Fatalf("CreateIdea(%s) error = %v", text, err)
			}
			ids = append(ids, id)
		}
		if _, err := b.CreateIdea(ctx, model.NewIdea{UserID: "u-1", GroupID: g.ID, Text: " "}); !errors.Is(err, ideas.ErrEmptyText) {
			t.Errorf("CreateIdea(blank) error = %v, want ErrEmptyText", err)
		}

		list, err := b.GetGroupIdeas(ctx, g.ID)
		if err != nil {
			t.Fatalf("GetGroupIdeas() error = %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("got %d ideas, want 3", len(list))
		}
		for i, idea := range list {
			if idea.ID != ids[i] {
				t.Errorf("idea[%d] = %s, want %s", i, idea.ID, ids[i])
			}
			if i > 0 && idea.Order <= list[i-1].Order {
				t.Errorf("order not increasing: %d after %d", idea.Order, list[i-1].Order)
			}
			if idea.CreatedByUser == nil || idea.CreatedByUser.Name != "Ana" {
				t.Errorf("CreatedByUser = %+v", idea.CreatedByUser)
			}
		}

		clock.Advance(time.Hour)
		if err := b.UpdateIdea(ctx, ids[0], model.IdeaPatch{Completed: model.Ptr(true), Priority: model.Ptr(true)}); err != nil {
			t.Fatalf("UpdateIdea() error = %v", err)
		}
		list, _ = b.GetGroupIdeas(ctx, g.ID)
		if !list[0].Completed || list[0].CompletedAt == nil || !list[0].CompletedAt.Equal(clock.Now()) || !list[0].Priority {
			t.Errorf("completed idea = %+v", list[0])
		}

		if err := b.UpdateIdea(ctx, ids[0], model.IdeaPatch{Completed: model.Ptr(false)}); err != nil {
			t.Fatalf("UpdateIdea(reopen) error = %v", err)
		}
		list, _ = b.GetGroupIdeas(ctx, g.ID)
		if list[0].Completed || list[0].CompletedAt != nil {
			t.Errorf("reopened idea = %+v", list[0])
		}

		if err := b.UpdateIdea(ctx, "missing", model.IdeaPatch{Text: model.Ptr("x")}); err != nil {
			t.Errorf("UpdateIdea(unknown) error = %v, want nil", err)
		}
		if err := b.UpdateIdea(ctx, ids[0], model.IdeaPatch{Text: model.Ptr("")}); !errors.Is(err, ideas.ErrEmptyText) {
			t.Errorf("UpdateIdea(blank) error = %v, want ErrEmptyText", err)
		}

		if err := b.DeleteIdea(ctx, ids[1]); err != nil {
			t.Fatalf("DeleteIdea() error = %v", err)
		}
		if err := b.DeleteIdea(ctx, ids[1]); err != nil {
			t.Errorf("second DeleteIdea() error = %v, want nil", err)
		}
		list, _ = b.GetGroupIdeas(ctx, g.ID)
		if len(list) != 2 || list[0].ID != ids[0] || list[1].ID != ids[2] {
			t.Errorf("ideas after delete = %v", list)
		}
	})
}

func TestBackend_Categories(t *testing.T) {
	eachStore(t, func(t *testing.T, b *Backend, _ *testutil.StubClock) {
		ctx := context.Background()
		g := newGroup(t, b, "u-1", "Casa")

		catID, err := b.CreateCategory(ctx, model.NewCategory{UserID: "u-1", GroupID: g.ID, Name: "Trabajo"})
		if err != nil {
			t.Fatalf("CreateCategory() error = %v", err)
		}
		if _, err := b.CreateCategory(ctx, model.NewCategory{GroupID: g.ID}); !errors.Is(err, ideas.ErrEmptyName) {
			t.Errorf("CreateCategory(blank) error = %v, want ErrEmptyName", err)
		}
		if err := b.UpdateCategory(ctx, catID, model.CategoryPatch{Icon: model.Ptr("💼")}); err != nil {
			t.Fatalf("UpdateCategory() error = %v", err)
		}

		cats, _ := b.GetGroupCategories(ctx, g.ID)
		if len(cats) != 2 || cats[1].ID != catID {
			t.Fatalf("categories = %+v", cats)
		}
		if cats[1].Color != model.DefaultColor || cats[1].Icon != "💼" {
			t.Errorf("category = %+v", cats[1])
		}

		ideaID, _ := b.CreateIdea(ctx, model.NewIdea{UserID: "u-1", GroupID: g.ID, Text: "Informe", CategoryID: catID})
		other, _ := b.CreateIdea(ctx, model.NewIdea{UserID: "u-1", GroupID: g.ID, Text: "Paseo", CategoryID: cats[0].ID})

		if err := b.DeleteCategory(ctx, cats[0].ID); !errors.Is(err, ideas.ErrDefaultCategory) {
			t.Errorf("DeleteCategory(default) error = %v, want ErrDefaultCategory", err)
		}
		if err := b.DeleteCategory(ctx, catID); err != nil {
			t.Fatalf("DeleteCategory() error = %v", err)
		}
		if err := b.DeleteCategory(ctx, catID); err != nil {
			t.Errorf("second DeleteCategory() error = %v, want nil", err)
		}

		list, _ := b.GetGroupIdeas(ctx, g.ID)
		for _, idea := range list {
			switch idea.ID {
			case ideaID:
				if idea.CategoryID != "" {
					t.Errorf("idea kept deleted category %q", idea.CategoryID)
				}
			case other:
				if idea.CategoryID != cats[0].ID {
					t.Errorf("unrelated idea category = %q", idea.CategoryID)
				}
			}
		}
	})
}

func TestBackend_ImportIdeas(t *testing.T) {
	eachStore(t, func(t *testing.T, b *Backend, _ *testutil.StubClock) {
		ctx := context.Background()
		g := newGroup(t, b, "u-1", "Casa")

		n, err := b.ImportIdeas(ctx, "u-1", g.ID, "- Leer un libro\n- Correr 5km: por el parque\n\n", "")
		if err != nil {
			t.Fatalf("ImportIdeas() error = %v", err)
		}
		if n != 2 {
			t.Fatalf("ImportIdeas() = %d, want 2", n)
		}
		if n, err := b.ImportIdeas(ctx, "u-1", g.ID, "\n  \n", ""); err != nil || n != 0 {
			t.Errorf("ImportIdeas(blank) = %d, %v", n, err)
		}

		lastID, err := b.CreateIdea(ctx, model.NewIdea{UserID: "u-1", GroupID: g.ID, Text: "Después"})
		if err != nil {
			t.Fatalf("CreateIdea() error = %v", err)
		}

		list, _ := b.GetGroupIdeas(ctx, g.ID)
		if len(list) != 3 {
			t.Fatalf("got %d ideas, want 3", len(list))
		}
		if list[1].Order != list[0].Order+1 {
			t.Errorf("import orders = %d, %d, want consecutive", list[0].Order, list[1].Order)
		}
		if list[2].ID != lastID {
			t.Errorf("last idea = %s, want the later create %s", list[2].ID, lastID)
		}
	})
}

func TestBackend_OrderSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := testutil.FixedClock()
	ids := testutil.NewStubIDGenerator()

	first := NewBackend(store, clock, ids)
	g := newGroup(t, first, "u-1", "Casa")
	if _, err := first.ImportIdeas(ctx, "u-1", g.ID, "a\nb\nc", ""); err != nil {
		t.Fatalf("ImportIdeas() error = %v", err)
	}

	second := NewBackend(store, clock, ids)
	id, err := second.CreateIdea(ctx, model.NewIdea{UserID: "u-1", GroupID: g.ID, Text: "d"})
	if err != nil {
		t.Fatalf("CreateIdea() error = %v", err)
	}
	list, _ := second.GetGroupIdeas(ctx, g.ID)
	if len(list) != 4 || list[3].ID != id {
		t.Errorf("ideas = %v, want the new idea last", list)
	}
}

func TestBackend_Completions(t *testing.T) {
	eachStore(t, func(t *testing.T, b *Backend, clock *testutil.StubClock) {
		ctx := context.Background()
		g := newGroup(t, b, "u-1", "Casa")
		ideaID, _ := b.CreateIdea(ctx, model.NewIdea{UserID: "u-1", GroupID: g.ID, Text: "Leer"})

		if err := b.CompleteIdea(ctx, "u-1", ideaID, "15/01/2024"); !errors.Is(err, ideas.ErrInvalidDate) {
			t.Errorf("CompleteIdea(bad date) error = %v, want ErrInvalidDate", err)
		}
		if err := b.CompleteIdea(ctx, "u-1", "missing", clock.Today()); err != nil {
			t.Errorf("CompleteIdea(unknown) error = %v, want nil", err)
		}
		if err := b.CompleteIdea(ctx, "u-1", ideaID, clock.Today()); err != nil {
			t.Fatalf("CompleteIdea() error = %v", err)
		}
		clock.Advance(24 * time.Hour)
		if err := b.CompleteIdea(ctx, "u-2", ideaID, clock.Today()); err != nil {
			t.Fatalf("CompleteIdea() error = %v", err)
		}

		daily, err := b.GetDailyCompletions(ctx, g.ID, "2024-01-15")
		if err != nil {
			t.Fatalf("GetDailyCompletions() error = %v", err)
		}
		if len(daily) != 1 || daily[0].CompletedBy != "u-1" || daily[0].Idea == nil || daily[0].Idea.Text != "Leer" {
			t.Fatalf("daily completions = %+v", daily)
		}
		if _, err := b.GetDailyCompletions(ctx, g.ID, "yesterday"); !errors.Is(err, ideas.ErrInvalidDate) {
			t.Errorf("GetDailyCompletions(bad date) error = %v", err)
		}

		if err := b.UpdateIdea(ctx, ideaID, model.IdeaPatch{Completed: model.Ptr(false)}); err != nil {
			t.Fatalf("UpdateIdea() error = %v", err)
		}
		if err := b.DeleteIdea(ctx, ideaID); err != nil {
			t.Fatalf("DeleteIdea() error = %v", err)
		}

		history, err := b.GetCompletionHistory(ctx, g.ID)
		if err != nil {
			t.Fatalf("GetCompletionHistory() error = %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("history = %d entries, want 2", len(history))
		}
		if history[0].Date != "2024-01-15" || history[1].Date != "2024-01-16" {
			t.Errorf("history dates = %s, %s", history[0].Date, history[1].Date)
		}
		if history[0].Idea != nil {
			t.Errorf("deleted idea still attached: %+v", history[0].Idea)
		}
	})
}

func TestBackend_EnsureUser(t *testing.T) {
	eachStore(t, func(t *testing.T, b *Backend, clock *testutil.StubClock) {
		ctx := context.Background()
		created := clock.Now()

		if err := b.EnsureUser(ctx, model.User{ID: "u-1", Email: "ana@example.com", Name: "Ana"}); err != nil {
			t.Fatalf("EnsureUser() error = %v", err)
		}
		clock.Advance(time.Hour)
		if err := b.EnsureUser(ctx, model.User{ID: "u-1", Email: "ana@example.org", Name: "Ana María"}); err != nil {
			t.Fatalf("EnsureUser() error = %v", err)
		}

		u, err := getDoc[model.User](ctx, b.store, userKey("u-1"))
		if err != nil || u == nil {
			t.Fatalf("user doc = %v, %v", u, err)
		}
		if u.Name != "Ana María" || u.Email != "ana@example.org" {
			t.Errorf("user = %+v, want refreshed profile", u)
		}
		if !u.CreatedAt.Equal(created) {
			t.Errorf("CreatedAt = %v, want %v", u.CreatedAt, created)
		}
	})
}

func TestBackend_UnreachableStore(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3("ideas")
	b := NewBackend(NewS3Store(fake, "ideas", ""), testutil.FixedClock(), testutil.NewStubIDGenerator())
	fake.down = errors.New("dial tcp: lookup s3.example.com: no such host")

	_, err := b.GetGroupIdeas(ctx, "g-1")
	if err == nil {
		t.Fatal("GetGroupIdeas() error = nil")
	}
	if got := ideas.Classify(err); got != ideas.ClassConnectivity {
		t.Errorf("Classify() = %v, want connectivity", got)
	}
	if err := b.Ping(ctx); err == nil {
		t.Error("Ping() error = nil")
	}
}

func TestBackend_DefaultIDsAreULIDs(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(NewMemoryStore(), nil, nil)

	id, err := b.CreateGroup(ctx, model.NewGroup{UserID: "u-1", Name: "Casa"})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if len(id) != 26 {
		t.Errorf("id = %q, want a 26-character ULID", id)
	}
}
