package database

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ideas-go/internal/bulkimport"
	"ideas-go/internal/database/migrations"
	"ideas-go/internal/ideas"
	"ideas-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteBackend implements ideas.Backend on a SQLite database.
type SQLiteBackend struct {
	db    *sql.DB
	path  string
	clock ideas.Clock
	ids   ideas.IDGenerator
}

var _ ideas.Backend = (*SQLiteBackend)(nil)

// NewSQLiteBackend opens the database at path and brings its schema up to
// date. path can be a file path or ":memory:". A nil clock or id generator
// uses the real implementation.
func NewSQLiteBackend(path string, clock ideas.Clock, ids ideas.IDGenerator) (*SQLiteBackend, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	b := NewSQLiteBackendFromDB(db, clock, ids)
	b.path = path
	return b, nil
}

// NewSQLiteBackendFromDB wraps an existing connection. The caller is
// responsible for the schema.
func NewSQLiteBackendFromDB(db *sql.DB, clock ideas.Clock, ids ideas.IDGenerator) *SQLiteBackend {
	if clock == nil {
		clock = ideas.RealClock{}
	}
	if ids == nil {
		ids = ideas.UUIDGenerator{}
	}
	return &SQLiteBackend{db: db, clock: clock, ids: ids}
}

// OpenConnection opens and configures a SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: every ":memory:" connection is its own database, and
	// PRAGMAs are per connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Ideas

const ideaColumns = `i.id, i.text, i.description, i.category_id, i.priority, i.completed,
	i.created_at, i.completed_at, i.sort_order, i.group_id, i.created_by`

const userColumns = `u.id, u.email, u.name, u.avatar, u.created_at`

func scanIdea(row rowScanner, extra ...any) (*model.Idea, error) {
	var idea model.Idea
	var completedAt sql.NullTime
	dest := []any{
		&idea.ID, &idea.Text, &idea.Description, &idea.CategoryID, &idea.Priority, &idea.Completed,
		&idea.CreatedAt, &completedAt, &idea.Order, &idea.GroupID, &idea.CreatedBy,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		idea.CompletedAt = &t
	}
	return &idea, nil
}

// nullUser receives the columns of a LEFT JOINed users row.
type nullUser struct {
	id, email, name, avatar sql.NullString
	createdAt               sql.NullTime
}

func (u *nullUser) dest() []any {
	return []any{&u.id, &u.email, &u.name, &u.avatar, &u.createdAt}
}

func (u *nullUser) user() *model.User {
	if !u.id.Valid {
		return nil
	}
	return &model.User{
		ID:        u.id.String,
		Email:     u.email.String,
		Name:      u.name.String,
		Avatar:    u.avatar.String,
		CreatedAt: u.createdAt.Time,
	}
}

func (s *SQLiteBackend) GetGroupIdeas(ctx context.Context, groupID string) ([]*model.Idea, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ideaColumns+`, `+userColumns+`
		FROM ideas i LEFT JOIN users u ON u.id = i.created_by
		WHERE i.group_id = ?
		ORDER BY i.sort_order, i.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying ideas for group %s: %w", groupID, err)
	}
	defer rows.Close()

	var out []*model.Idea
	for rows.Next() {
		var u nullUser
		idea, err := scanIdea(rows, u.dest()...)
		if err != nil {
			return nil, fmt.Errorf("scanning idea: %w", err)
		}
		idea.CreatedByUser = u.user()
		out = append(out, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ideas: %w", err)
	}
	return out, nil
}

func (s *SQLiteBackend) CreateIdea(ctx context.Context, in model.NewIdea) (string, error) {
	if strings.TrimSpace(in.Text) == "" {
		return "", ideas.ErrEmptyText
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	last, err := maxOrder(ctx, tx, "ideas", in.GroupID)
	if err != nil {
		return "", err
	}
	now := s.clock.Now()
	id := s.ids.New()
	if err := insertIdea(ctx, tx, &model.Idea{
		ID:          id,
		Text:        in.Text,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Priority:    in.Priority,
		CreatedAt:   now,
		Order:       model.NextOrder(now, last),
		GroupID:     in.GroupID,
		CreatedBy:   in.UserID,
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing idea: %w", err)
	}
	return id, nil
}

func insertIdea(ctx context.Context, tx *sql.Tx, idea *model.Idea) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO ideas
		(id, text, description, category_id, priority, completed, created_at, completed_at, sort_order, group_id, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idea.ID, idea.Text, idea.Description, idea.CategoryID, idea.Priority, idea.Completed,
		idea.CreatedAt, nullTime(idea.CompletedAt), idea.Order, idea.GroupID, idea.CreatedBy)
	if err != nil {
		return fmt.Errorf("inserting idea: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) UpdateIdea(ctx context.Context, ideaID string, patch model.IdeaPatch) error {
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return ideas.ErrEmptyText
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	idea, err := scanIdea(tx.QueryRowContext(ctx, `SELECT `+ideaColumns+` FROM ideas i WHERE i.id = ?`, ideaID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("finding idea %s: %w", ideaID, err)
	}

	now := s.clock.Now()
	patch.Apply(idea, now)
	_, err = tx.ExecContext(ctx, `UPDATE ideas
		SET text = ?, description = ?, category_id = ?, priority = ?, completed = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		idea.Text, idea.Description, idea.CategoryID, idea.Priority, idea.Completed, nullTime(idea.CompletedAt), now, ideaID)
	if err != nil {
		return fmt.Errorf("updating idea %s: %w", ideaID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing idea update: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) DeleteIdea(ctx context.Context, ideaID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ideas WHERE id = ?`, ideaID); err != nil {
		return fmt.Errorf("deleting idea %s: %w", ideaID, err)
	}
	return nil
}

// CompleteIdea marks the idea completed and records a completion for date
// in the same transaction.
func (s *SQLiteBackend) CompleteIdea(ctx context.Context, userID, ideaID, date string) error {
	if err := ideas.ValidateDate(date); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID string
	err = tx.QueryRowContext(ctx, `SELECT group_id FROM ideas WHERE id = ?`, ideaID).Scan(&groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("finding idea %s: %w", ideaID, err)
	}

	now := s.clock.Now()
	if _, err := tx.ExecContext(ctx, `UPDATE ideas SET completed = 1, completed_at = ?, updated_at = ? WHERE id = ?`,
		now, now, ideaID); err != nil {
		return fmt.Errorf("completing idea %s: %w", ideaID, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO completions (id, idea_id, date, group_id, completed_by, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)`, s.ids.New(), ideaID, date, groupID, userID, now); err != nil {
		return fmt.Errorf("recording completion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing completion: %w", err)
	}
	return nil
}

// ImportIdeas inserts every parsed entry in one transaction, so a failure
// leaves no partial import behind.
func (s *SQLiteBackend) ImportIdeas(ctx context.Context, userID, groupID, text, categoryID string) (int, error) {
	entries := bulkimport.Parse(text)
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	last, err := maxOrder(ctx, tx, "ideas", groupID)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	keys := bulkimport.OrderKeys(model.NextOrder(now, last), len(entries))
	for i, e := range entries {
		if err := insertIdea(ctx, tx, &model.Idea{
			ID:          s.ids.New(),
			Text:        e.Title,
			Description: e.Description,
			CategoryID:  categoryID,
			CreatedAt:   now,
			Order:       keys[i],
			GroupID:     groupID,
			CreatedBy:   userID,
		}); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return len(entries), nil
}

// Categories

const categoryColumns = `id, name, color, icon, sort_order, group_id, created_by, created_at, is_default`

func scanCategory(row rowScanner) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.Order, &c.GroupID, &c.CreatedBy, &c.CreatedAt, &c.IsDefault); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteBackend) GetGroupCategories(ctx context.Context, groupID string) ([]*model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories
		WHERE group_id = ? ORDER BY sort_order, id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying categories for group %s: %w", groupID, err)
	}
	defer rows.Close()

	var out []*model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return out, nil
}

func (s *SQLiteBackend) CreateCategory(ctx context.Context, in model.NewCategory) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", ideas.ErrEmptyName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	last, err := maxOrder(ctx, tx, "categories", in.GroupID)
	if err != nil {
		return "", err
	}
	now := s.clock.Now()
	c := &model.Category{
		ID:        s.ids.New(),
		Name:      in.Name,
		Color:     cmp.Or(in.Color, model.DefaultColor),
		Icon:      cmp.Or(in.Icon, model.DefaultCategoryIcon),
		Order:     model.NextOrder(now, last),
		GroupID:   in.GroupID,
		CreatedBy: in.UserID,
		CreatedAt: now,
	}
	if err := insertCategory(ctx, tx, c); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing category: %w", err)
	}
	return c.ID, nil
}

func insertCategory(ctx context.Context, tx *sql.Tx, c *model.Category) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Color, c.Icon, c.Order, c.GroupID, c.CreatedBy, c.CreatedAt, c.IsDefault)
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) UpdateCategory(ctx context.Context, categoryID string, patch model.CategoryPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return ideas.ErrEmptyName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	c, err := scanCategory(tx.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, categoryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("finding category %s: %w", categoryID, err)
	}

	patch.Apply(c)
	if _, err := tx.ExecContext(ctx, `UPDATE categories SET name = ?, color = ?, icon = ?, sort_order = ? WHERE id = ?`,
		c.Name, c.Color, c.Icon, c.Order, categoryID); err != nil {
		return fmt.Errorf("updating category %s: %w", categoryID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing category update: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) DeleteCategory(ctx context.Context, categoryID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var isDefault bool
	err = tx.QueryRowContext(ctx, `SELECT is_default FROM categories WHERE id = ?`, categoryID).Scan(&isDefault)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("finding category %s: %w", categoryID, err)
	}
	if isDefault {
		return ideas.ErrDefaultCategory
	}

	if _, err := tx.ExecContext(ctx, `UPDATE ideas SET category_id = '' WHERE category_id = ?`, categoryID); err != nil {
		return fmt.Errorf("clearing category %s from ideas: %w", categoryID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, categoryID); err != nil {
		return fmt.Errorf("deleting category %s: %w", categoryID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing category delete: %w", err)
	}
	return nil
}

// Groups

type groupRow struct {
	group model.Group
	role  model.Role
}

func (s *SQLiteBackend) GetUserGroups(ctx context.Context, userID string) ([]*model.GroupWithMembers, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT g.id, g.name, g.description, g.owner_id, g.invite_code, g.color, g.created_at, m.role
		FROM group_members m JOIN idea_groups g ON g.id = m.group_id
		WHERE m.user_id = ?
		ORDER BY g.created_at, g.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying groups for user %s: %w", userID, err)
	}

	// Collect before issuing member queries; the pool holds one connection.
	var found []groupRow
	for rows.Next() {
		var r groupRow
		g := &r.group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.OwnerID, &g.InviteCode, &g.Color, &g.CreatedAt, &r.role); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating groups: %w", err)
	}
	rows.Close()

	out := make([]*model.GroupWithMembers, 0, len(found))
	for _, r := range found {
		members, err := s.groupMembers(ctx, r.group.ID)
		if err != nil {
			return nil, err
		}
		g := r.group
		g.MemberCount = len(members)
		out = append(out, &model.GroupWithMembers{
			Group:    g,
			Members:  members,
			IsOwner:  g.OwnerID == userID,
			UserRole: r.role,
		})
	}
	return out, nil
}

func (s *SQLiteBackend) groupMembers(ctx context.Context, groupID string) ([]model.GroupMember, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT m.id, m.group_id, m.user_id, m.role, m.joined_at, `+userColumns+`
		FROM group_members m LEFT JOIN users u ON u.id = m.user_id
		WHERE m.group_id = ?
		ORDER BY m.joined_at, m.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying members of group %s: %w", groupID, err)
	}
	defer rows.Close()

	members := []model.GroupMember{}
	for rows.Next() {
		var m model.GroupMember
		var u nullUser
		dest := append([]any{&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.JoinedAt}, u.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		m.User = u.user()
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}
	return members, nil
}

// CreateGroup inserts the group, the owner's membership and the default
// category together.
func (s *SQLiteBackend) CreateGroup(ctx context.Context, in model.NewGroup) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", ideas.ErrEmptyName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	code, err := s.newInviteCode(ctx, tx)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	groupID := s.ids.New()
	if _, err := tx.ExecContext(ctx, `INSERT INTO idea_groups (id, name, description, owner_id, invite_code, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		groupID, in.Name, in.Description, in.UserID, code, cmp.Or(in.Color, model.DefaultColor), now); err != nil {
		return "", fmt.Errorf("inserting group: %w", err)
	}
	if err := insertMember(ctx, tx, s.ids.New(), groupID, in.UserID, model.RoleOwner, now); err != nil {
		return "", err
	}
	if err := insertCategory(ctx, tx, &model.Category{
		ID:        s.ids.New(),
		Name:      model.DefaultCategoryName,
		Color:     model.DefaultColor,
		Icon:      model.DefaultCategoryIcon,
		GroupID:   groupID,
		CreatedBy: in.UserID,
		CreatedAt: now,
		IsDefault: true,
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing group: %w", err)
	}
	return groupID, nil
}

func insertMember(ctx context.Context, tx *sql.Tx, id, groupID, userID string, role model.Role, joined time.Time) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO group_members (id, group_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?, ?)`, id, groupID, userID, role, joined); err != nil {
		return fmt.Errorf("inserting member: %w", err)
	}
	return nil
}

// newInviteCode draws six uppercase characters until one is unused.
func (s *SQLiteBackend) newInviteCode(ctx context.Context, tx *sql.Tx) (string, error) {
	for {
		code := strings.ToUpper(strings.ReplaceAll(s.ids.New(), "-", ""))
		if len(code) > 6 {
			code = code[len(code)-6:]
		}
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM idea_groups WHERE invite_code = ?`, code).Scan(&n); err != nil {
			return "", fmt.Errorf("checking invite code: %w", err)
		}
		if n == 0 {
			return code, nil
		}
	}
}

func (s *SQLiteBackend) JoinGroup(ctx context.Context, userID, inviteCode string) error {
	code := ideas.ParseInviteCode(inviteCode)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM idea_groups WHERE invite_code = ?`, code).Scan(&groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ideas.ErrInvalidInviteCode
		}
		return fmt.Errorf("finding group by invite code: %w", err)
	}

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID).Scan(&n); err != nil {
		return fmt.Errorf("checking membership: %w", err)
	}
	if n > 0 {
		return ideas.ErrAlreadyMember
	}
	if err := insertMember(ctx, tx, s.ids.New(), groupID, userID, model.RoleMember, s.clock.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing join: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) UpdateGroup(ctx context.Context, groupID string, patch model.GroupPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return ideas.ErrEmptyName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var g model.Group
	err = tx.QueryRowContext(ctx, `SELECT name, description, color FROM idea_groups WHERE id = ?`, groupID).
		Scan(&g.Name, &g.Description, &g.Color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("finding group %s: %w", groupID, err)
	}

	patch.Apply(&g)
	if _, err := tx.ExecContext(ctx, `UPDATE idea_groups SET name = ?, description = ?, color = ?, updated_at = ? WHERE id = ?`,
		g.Name, g.Description, g.Color, s.clock.Now(), groupID); err != nil {
		return fmt.Errorf("updating group %s: %w", groupID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing group update: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID); err != nil {
		return fmt.Errorf("removing %s from group %s: %w", userID, groupID, err)
	}
	return nil
}

func (s *SQLiteBackend) UpdateGroupMemberRole(ctx context.Context, groupID, userID string, role model.Role) error {
	if !role.Valid() {
		return ideas.ErrInvalidRole
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE group_members SET role = ? WHERE group_id = ? AND user_id = ?`,
		role, groupID, userID); err != nil {
		return fmt.Errorf("updating role of %s in group %s: %w", userID, groupID, err)
	}
	return nil
}

// Completions

func (s *SQLiteBackend) GetDailyCompletions(ctx context.Context, groupID, date string) ([]*model.DailyCompletion, error) {
	if err := ideas.ValidateDate(date); err != nil {
		return nil, err
	}
	return s.completions(ctx, `c.group_id = ? AND c.date = ?`, groupID, date)
}

func (s *SQLiteBackend) GetCompletionHistory(ctx context.Context, groupID string) ([]*model.DailyCompletion, error) {
	return s.completions(ctx, `c.group_id = ?`, groupID)
}

func (s *SQLiteBackend) completions(ctx context.Context, where string, args ...any) ([]*model.DailyCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.idea_id, c.date, c.group_id, c.completed_by, c.completed_at,
		i.id, i.text, i.description, i.category_id, i.priority, i.completed, i.created_at, i.completed_at,
		i.sort_order, i.group_id, i.created_by
		FROM completions c LEFT JOIN ideas i ON i.id = c.idea_id
		WHERE `+where+`
		ORDER BY c.completed_at, c.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}
	defer rows.Close()

	var out []*model.DailyCompletion
	for rows.Next() {
		var c model.DailyCompletion
		var (
			id, text, desc, catID, groupID, createdBy sql.NullString
			priority, completed                       sql.NullBool
			createdAt, completedAt                    sql.NullTime
			order                                     sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.IdeaID, &c.Date, &c.GroupID, &c.CompletedBy, &c.CompletedAt,
			&id, &text, &desc, &catID, &priority, &completed, &createdAt, &completedAt,
			&order, &groupID, &createdBy); err != nil {
			return nil, fmt.Errorf("scanning completion: %w", err)
		}
		if id.Valid {
			c.Idea = &model.Idea{
				ID:          id.String,
				Text:        text.String,
				Description: desc.String,
				CategoryID:  catID.String,
				Priority:    priority.Bool,
				Completed:   completed.Bool,
				CreatedAt:   createdAt.Time,
				Order:       order.Int64,
				GroupID:     groupID.String,
				CreatedBy:   createdBy.String,
			}
			if completedAt.Valid {
				t := completedAt.Time
				c.Idea.CompletedAt = &t
			}
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating completions: %w", err)
	}
	return out, nil
}

// Users

// EnsureUser inserts the user or refreshes its profile fields. CreatedAt is
// kept from the first insert.
func (s *SQLiteBackend) EnsureUser(ctx context.Context, user model.User) error {
	created := user.CreatedAt
	if created.IsZero() {
		created = s.clock.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, email, name, avatar, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, name = excluded.name, avatar = excluded.avatar`,
		user.ID, user.Email, user.Name, user.Avatar, created)
	if err != nil {
		return fmt.Errorf("ensuring user %s: %w", user.ID, err)
	}
	return nil
}

// Maintenance

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteBackend) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteBackend) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Ping reports whether the database answers.
func (s *SQLiteBackend) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteBackend) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maxOrder returns the highest sort_order in table for the group, or zero.
func maxOrder(ctx context.Context, tx *sql.Tx, table, groupID string) (int64, error) {
	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) FROM `+table+` WHERE group_id = ?`,
		groupID).Scan(&last); err != nil {
		return 0, fmt.Errorf("reading last order in %s: %w", table, err)
	}
	return last, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
