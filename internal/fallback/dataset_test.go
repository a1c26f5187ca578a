package fallback_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ideas-go/internal/fallback"
	"ideas-go/internal/ideas"
	"ideas-go/internal/model"
	"ideas-go/internal/testutil"
)

func newDataset(t *testing.T) (*fallback.Dataset, *testutil.StubClock) {
	t.Helper()
	clock := testutil.FixedClock()
	return fallback.New(clock, testutil.NewStubIDGenerator(), 0), clock
}

func TestDataset_Seed(t *testing.T) {
	d, _ := newDataset(t)
	ctx := context.Background()

	list, err := d.GetGroupIdeas(ctx, fallback.DemoGroupID)
	if err != nil {
		t.Fatalf("GetGroupIdeas() error = %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("len(ideas) = %d, want 4", len(list))
	}
	// Oldest first: idea 3 was created three days ago.
	if list[0].ID != "demo-idea-3" {
		t.Errorf("first idea = %s, want demo-idea-3", list[0].ID)
	}
	for _, idea := range list {
		if idea.Completed != (idea.CompletedAt != nil) {
			t.Errorf("idea %s: Completed=%v but CompletedAt=%v", idea.ID, idea.Completed, idea.CompletedAt)
		}
		if idea.CreatedByUser == nil || idea.CreatedByUser.ID != fallback.DemoUserID {
			t.Errorf("idea %s: CreatedByUser not populated", idea.ID)
		}
	}

	cats, err := d.GetGroupCategories(ctx, fallback.DemoGroupID)
	if err != nil {
		t.Fatalf("GetGroupCategories() error = %v", err)
	}
	if len(cats) != 3 {
		t.Fatalf("len(categories) = %d, want 3", len(cats))
	}
	if !cats[0].IsDefault || cats[0].ID != fallback.DefaultCatID {
		t.Errorf("first category = %+v, want default %s", cats[0], fallback.DefaultCatID)
	}

	g := d.CanonicalGroup()
	if err := g.Validate(); err != nil {
		t.Errorf("CanonicalGroup().Validate() error = %v", err)
	}
	if g.InviteCode != fallback.DemoInviteCode || !g.IsOwner || g.UserRole != model.RoleOwner {
		t.Errorf("CanonicalGroup() = %+v", g)
	}
}

func TestDataset_ReadsReturnCopies(t *testing.T) {
	d, _ := newDataset(t)
	ctx := context.Background()

	list, _ := d.GetGroupIdeas(ctx, fallback.DemoGroupID)
	list[0].Text = "mutated"
	list[0].CompletedAt = nil

	again, _ := d.GetGroupIdeas(ctx, fallback.DemoGroupID)
	if again[0].Text == "mutated" {
		t.Error("mutating a returned idea changed the dataset")
	}
	if again[0].CompletedAt == nil {
		t.Error("clearing CompletedAt on a returned idea changed the dataset")
	}
}

func TestDataset_CreateIdea_Ordering(t *testing.T) {
	d, clock := newDataset(t)
	ctx := context.Background()

	var created []string
	for i, text := range []string{"a", "b", "c", "d"} {
		// Two ideas land in the same millisecond.
		if i == 2 {
			clock.Advance(time.Millisecond)
		}
		id, err := d.CreateIdea(ctx, model.NewIdea{UserID: "u1", GroupID: fallback.DemoGroupID, Text: text})
		if err != nil {
			t.Fatalf("CreateIdea(%q) error = %v", text, err)
		}
		created = append(created, id)
	}

	list, _ := d.GetGroupIdeas(ctx, fallback.DemoGroupID)
	for i := 1; i < len(list); i++ {
		if list[i].Order <= list[i-1].Order {
			t.Fatalf("orders not strictly increasing at %d: %d then %d", i, list[i-1].Order, list[i].Order)
		}
	}
	tail := list[len(list)-4:]
	for i, id := range created {
		if tail[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, tail[i].ID, id)
		}
	}

	again, _ := d.GetGroupIdeas(ctx, fallback.DemoGroupID)
	for i := range list {
		if list[i].ID != again[i].ID {
			t.Fatalf("repeated read changed order at %d", i)
		}
	}
}

func TestDataset_CreateIdea_EmptyText(t *testing.T) {
	d, _ := newDataset(t)
	_, err := d.CreateIdea(context.Background(), model.NewIdea{GroupID: fallback.DemoGroupID, Text: "   "})
	if !errors.Is(err, ideas.ErrEmptyText) {
		t.Errorf("CreateIdea() error = %v, want ErrEmptyText", err)
	}
}

func TestDataset_UpdateIdea(t *testing.T) {
	d, _ := newDataset(t)
	ctx := context.Background()

	t.Run("applies patch", func(t *testing.T) {
		err := d.UpdateIdea(ctx, "demo-idea-1", model.IdeaPatch{
			Text:      model.Ptr("Leer dos libros"),
			Completed: model.Ptr(true),
		})
		if err != nil {
			t.Fatalf("UpdateIdea() error = %v", err)
		}
		list, _ := d.GetGroupIdeas(ctx, fallback.DemoGroupID)
		for _, idea := range list {
			if idea.ID != "demo-idea-1" {
				continue
			}
			if idea.Text != "Leer dos libros" {
				t.Errorf("Text = %q", idea.Text)
			}
			if !idea.Completed || idea.CompletedAt == nil {
				t.Errorf("Completed = %v, CompletedAt = %v", idea.Completed, idea.CompletedAt)
			}
		}
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		if err := d.UpdateIdea(ctx, "missing", model.IdeaPatch{Text: model.Ptr("x")}); err != nil {
			t.Errorf("UpdateIdea() error = %v", err)
		}
	})
}

func TestDataset_DeleteIdea(t *testing.T) {
	d, _ := newDataset(t)
	ctx := context.Background()

	if err := d.DeleteIdea(ctx, "demo-idea-2"); err != nil {
		t.Fatalf("DeleteIdea() error = %v", err)
	}
	list, _ := d.GetGroupIdeas(ctx, fallback.DemoGroupID)
	for _, idea := range list {
		if idea.ID == "demo-idea-2" {
			t.Error("deleted idea still listed")
		}
	}
	if err := d.DeleteIdea(ctx, "demo-idea-2"); err != nil {
		t.Errorf("second DeleteIdea() error = %v", err)
	}
}

func TestDataset_DeleteCategory(t *testing.T) {
	t.Run("reassigns ideas to no category", func(t *testing.T) {
		d, _ := newDataset(t)
		ctx := context.Background()

		if err := d.DeleteCategory(ctx, "demo-cat-3"); err != nil {
			t.Fatalf("DeleteCategory() error = %v", err)
		}

		cats, _ := d.GetGroupCategories(ctx, fallback.DemoGroupID)
		for _, c := range cats {
			if c.ID == "demo-cat-3" {
				t.Error("deleted category still listed")
			}
		}
		list, _ := d.GetGroupIdeas(ctx, fallback.DemoGroupID)
		for _, idea := range list {
			if idea.CategoryID == "demo-cat-3" {
				t.Errorf("idea %s still in deleted category", idea.ID)
			}
		}
	})

	t.Run("default category is protected", func(t *testing.T) {
		d, _ := newDataset(t)
		err := d.DeleteCategory(context.Background(), fallback.DefaultCatID)
		if !errors.Is(err, ideas.ErrDefaultCategory) {
			t.Errorf("DeleteCategory() error = %v, want ErrDefaultCategory", err)
		}
	})
}

func TestDataset_CreateCategory_Defaults(t *testing.T) {
	d, _ := newDataset(t)
	ctx := context.Background()

	id, err := d.CreateCategory(ctx, model.NewCategory{UserID: "u1", GroupID: fallback.DemoGroupID, Name: "Casa"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	cats, _ := d.GetGroupCategories(ctx, fallback.DemoGroupID)
	last := cats[len(cats)-1]
	if last.ID != id {
		t.Fatalf("last category = %s, want %s", last.ID, id)
	}
	if last.Icon != model.DefaultCategoryIcon || last.Color != model.DefaultColor {
		t.Errorf("defaults not applied: %+v", last)
	}
}

func TestDataset_ImportIdeas(t *testing.T) {
	d, _ := newDataset(t)
	ctx := context.Background()
	groupID, err := d.CreateGroup(ctx, model.NewGroup{UserID: "u1", Name: "Empty"})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	text := "1. Buy milk - for breakfast\n2. Call mom\n• Clean house → deep clean kitchen"
	n, err := d.ImportIdeas(ctx, "u1", groupID, text, "")
	if err != nil {
		t.Fatalf("ImportIdeas() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("ImportIdeas() = %d, want 3", n)
	}

	list, _ := d.GetGroupIdeas(ctx, groupID)
	want := []struct{ text, desc string }{
		{"Buy milk", "for breakfast"},
		{"Call mom", ""},
		{"Clean house", "deep clean kitchen"},
	}
	if len(list) != len(want) {
		t.Fatalf("len(ideas) = %d, want %d", len(list), len(want))
	}
	for i, w := range want {
		if list[i].Text != w.text || list[i].Description != w.desc {
			t.Errorf("idea %d = (%q, %q), want (%q, %q)", i, list[i].Text, list[i].Description, w.text, w.desc)
		}
		if i > 0 && list[i].Order <= list[i-1].Order {
			t.Errorf("order %d not greater than %d", list[i].Order, list[i-1].Order)
		}
	}

	// A second import in the same millisecond still gets fresh keys.
	if _, err := d.ImportIdeas(ctx, "u1", groupID, "Another", ""); err != nil {
		t.Fatalf("second ImportIdeas() error = %v", err)
	}
	list, _ = d.GetGroupIdeas(ctx, groupID)
	if list[3].Order <= list[2].Order {
		t.Errorf("second import order %d not after %d", list[3].Order, list[2].Order)
	}

	n, err = d.ImportIdeas(ctx, "u1", groupID, "\n  \n-\n", "")
	if err != nil || n != 0 {
		t.Errorf("ImportIdeas(blank) = %d, %v, want 0, nil", n, err)
	}
}

func TestDataset_JoinGroup(t *testing.T) {
	d, _ := newDataset(t)
	ctx := context.Background()

	t.Run("bad code is a domain rejection", func(t *testing.T) {
		err := d.JoinGroup(ctx, "u2", "BADCODE")
		if !errors.Is(err, ideas.ErrInvalidInviteCode) {
			t.Errorf("JoinGroup() error = %v, want ErrInvalidInviteCode", err)
		}
		if ideas.Classify(err) != ideas.ClassDomain {
			t.Errorf("Classify() = %v, want domain", ideas.Classify(err))
		}
	})

	t.Run("join by link", func(t *testing.T) {
		if err := d.JoinGroup(ctx, "u2", "https://ideas.example/join/demo123"); err != nil {
			t.Fatalf("JoinGroup() error = %v", err)
		}
		groups, _ := d.GetUserGroups(ctx, "u2")
		if len(groups) != 1 || groups[0].ID != fallback.DemoGroupID {
			t.Fatalf("GetUserGroups() = %+v", groups)
		}
		if groups[0].MemberCount != 2 || len(groups[0].Members) != 2 {
			t.Errorf("MemberCount = %d, members = %d, want 2", groups[0].MemberCount, len(groups[0].Members))
		}
		if groups[0].UserRole != model.RoleMember || groups[0].IsOwner {
			t.Errorf("role = %s, isOwner = %v", groups[0].UserRole, groups[0].IsOwner)
		}
	})

	t.Run("second join is rejected", func(t *testing.T) {
		err := d.JoinGroup(ctx, "u2", fallback.DemoInviteCode)
		if !errors.Is(err, ideas.ErrAlreadyMember) {
			t.Errorf("JoinGroup() error = %v, want ErrAlreadyMember", err)
		}
	})

	t.Run("leaving updates the count", func(t *testing.T) {
		if err := d.RemoveGroupMember(ctx, fallback.DemoGroupID, "u2"); err != nil {
			t.Fatalf("RemoveGroupMember() error = %v", err)
		}
		g := d.CanonicalGroup()
		if g.MemberCount != 1 {
			t.Errorf("MemberCount = %d, want 1", g.MemberCount)
		}
	})
}

func TestDataset_GetUserGroups_NoMembership(t *testing.T) {
	d, _ := newDataset(t)
	groups, err := d.GetUserGroups(context.Background(), "stranger")
	if err != nil {
		t.Fatalf("GetUserGroups() error = %v", err)
	}
	if len(groups) != 1 || groups[0].ID != fallback.DemoGroupID {
		t.Errorf("GetUserGroups() = %+v, want the demo group", groups)
	}
}

func TestDataset_CompleteIdea_Concurrent(t *testing.T) {
	d, _ := newDataset(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = d.CompleteIdea(ctx, fallback.DemoUserID, "demo-idea-4", "2024-01-15")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("CompleteIdea #%d error = %v", i, err)
		}
	}
	list, _ := d.GetGroupIdeas(ctx, fallback.DemoGroupID)
	for _, idea := range list {
		if idea.ID == "demo-idea-4" && (!idea.Completed || idea.CompletedAt == nil) {
			t.Errorf("idea not completed: %+v", idea)
		}
	}
}

func TestDataset_Completions(t *testing.T) {
	d, _ := newDataset(t)
	ctx := context.Background()

	if err := d.CompleteIdea(ctx, fallback.DemoUserID, "demo-idea-1", "2024-01-15"); err != nil {
		t.Fatalf("CompleteIdea() error = %v", err)
	}

	day, err := d.GetDailyCompletions(ctx, fallback.DemoGroupID, "2024-01-15")
	if err != nil {
		t.Fatalf("GetDailyCompletions() error = %v", err)
	}
	// The seeded completed idea plus the one just completed.
	if len(day) != 2 {
		t.Errorf("len(completions) = %d, want 2", len(day))
	}

	if _, err := d.GetDailyCompletions(ctx, fallback.DemoGroupID, "15/01/2024"); !errors.Is(err, ideas.ErrInvalidDate) {
		t.Errorf("GetDailyCompletions(bad date) error = %v, want ErrInvalidDate", err)
	}
}

func TestDataset_Latency(t *testing.T) {
	d := fallback.New(testutil.FixedClock(), testutil.NewStubIDGenerator(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.GetGroupIdeas(ctx, fallback.DemoGroupID); !errors.Is(err, context.Canceled) {
		t.Errorf("GetGroupIdeas() error = %v, want context.Canceled", err)
	}
}
