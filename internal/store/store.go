package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/slatehq/slate/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ ClientStore   = (*Store)(nil)
	_ ItemReader    = (*Store)(nil)
	_ ItemWriter    = (*Store)(nil)
	_ BriefClaimer  = (*Store)(nil)
	_ FeedbackStore = (*Store)(nil)
)

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 2

func (s *Store) migrate() error {
	// Ensure the schema_version table exists.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		// Fresh database: initialize to version 0.
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: initial schema
		s.migrateV2, // v1 → v2: brief enrichment columns
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema (v0 → v1).
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		weekly_capacity INTEGER NOT NULL,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		id             TEXT PRIMARY KEY,
		client_id      TEXT NOT NULL REFERENCES clients(id),
		title          TEXT NOT NULL,
		kind           TEXT NOT NULL,
		pinned_date    TEXT,
		priority_index INTEGER NOT NULL DEFAULT 0,
		status         TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_client ON items(client_id, priority_index);
	CREATE INDEX IF NOT EXISTS idx_items_status ON items(status, updated_at);

	CREATE TABLE IF NOT EXISTS feedback (
		id         TEXT PRIMARY KEY,
		item_id    TEXT NOT NULL REFERENCES items(id),
		text       TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_item ON feedback(item_id, created_at ASC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds the brief enrichment columns (v1 → v2).
func (s *Store) migrateV2() error {
	stmts := []string{
		`ALTER TABLE items ADD COLUMN brief TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE items ADD COLUMN source_url TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE items ADD COLUMN brief_state TEXT NOT NULL DEFAULT 'NONE'`,
		`ALTER TABLE items ADD COLUMN brief_error TEXT`,
		`CREATE INDEX IF NOT EXISTS idx_items_brief_state ON items(brief_state, created_at ASC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// itemColumns is the canonical column order for scanning items.
var itemColumns = []string{
	"id", "client_id", "title", "brief", "kind", "pinned_date",
	"priority_index", "status", "source_url", "brief_state", "brief_error",
	"created_at", "updated_at",
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

// CreateClient inserts a new client.
func (s *Store) CreateClient(ctx context.Context, c model.Client) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, weekly_capacity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.WeeklyCapacity, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// GetClient returns a single client.
func (s *Store) GetClient(ctx context.Context, id string) (*model.Client, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, weekly_capacity, created_at, updated_at FROM clients WHERE id = ?`, id)
	var c model.Client
	if err := row.Scan(&c.ID, &c.Name, &c.WeeklyCapacity, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClients returns all clients ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, weekly_capacity, created_at, updated_at FROM clients ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.WeeklyCapacity, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// UpdateClient changes a client's name and weekly capacity.
func (s *Store) UpdateClient(ctx context.Context, id, name string, weeklyCapacity int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE clients SET name = ?, weekly_capacity = ?, updated_at = ? WHERE id = ?`,
		name, weeklyCapacity, now, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteClient removes a client together with its items and their feedback.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM feedback WHERE item_id IN (SELECT id FROM items WHERE client_id = ?)`, id); err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE client_id = ?`, id); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

// CreateItem inserts a new item.
func (s *Store) CreateItem(ctx context.Context, item model.Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, client_id, title, brief, kind, pinned_date, priority_index, status, source_url, brief_state, brief_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ClientID, item.Title, item.Brief, item.Kind, item.PinnedDate,
		item.PriorityIndex, item.Status, item.SourceURL, item.BriefState, item.BriefError,
		item.CreatedAt, item.UpdatedAt,
	)
	return err
}

// GetItem returns an item together with its rejection feedback history.
func (s *Store) GetItem(ctx context.Context, id string) (*model.ItemWithFeedback, error) {
	query, args, err := sq.Select(itemColumns...).From("items").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	item, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	feedback, err := s.ListFeedback(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.ItemWithFeedback{Item: *item, Feedback: feedback}, nil
}

// ListItems returns items matching the given filter. Pinned items come first
// ordered by pinned date, then flow items by priority index, which matches
// the engine's processing order.
func (s *Store) ListItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error) {
	q := sq.Select(itemColumns...).From("items")
	if f.ClientID != "" {
		q = q.Where(sq.Eq{"client_id": f.ClientID})
	}
	if len(f.Status) > 0 {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if len(f.Kind) > 0 {
		q = q.Where(sq.Eq{"kind": f.Kind})
	}
	q = q.OrderBy(
		"CASE kind WHEN 'pinned' THEN 0 ELSE 1 END",
		"COALESCE(pinned_date, '') ASC",
		"priority_index ASC",
		"created_at ASC",
	)

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem changes an item's editable fields (title, brief, kind, pinned
// date, source URL).
func (s *Store) UpdateItem(ctx context.Context, item model.Item) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET title = ?, brief = ?, kind = ?, pinned_date = ?, source_url = ?, updated_at = ?
		WHERE id = ?`,
		item.Title, item.Brief, item.Kind, item.PinnedDate, item.SourceURL, now, item.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateItemStatus changes the status of an item. When feedback is non-nil a
// feedback record is appended in the same transaction, so a rejection and its
// reason are never persisted separately.
func (s *Store) UpdateItemStatus(ctx context.Context, id, newStatus string, feedback *model.Feedback) error {
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = ? WHERE id = ?`, newStatus, now, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if feedback != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feedback (id, item_id, text, created_at) VALUES (?, ?, ?, ?)`,
			feedback.ID, feedback.ItemID, feedback.Text, feedback.CreatedAt); err != nil {
			return fmt.Errorf("insert feedback: %w", err)
		}
	}

	return tx.Commit()
}

// ReorderItems rewrites the priority index of a client's flow items to the
// position of each id in the given order. Ids not belonging to the client's
// flow backlog are ignored.
func (s *Store) ReorderItems(ctx context.Context, clientID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE items SET priority_index = ?, updated_at = ? WHERE id = ? AND client_id = ? AND kind = ?`)
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	for pos, id := range ids {
		if _, err := stmt.ExecContext(ctx, pos, now, id, clientID, model.KindFlow); err != nil {
			return fmt.Errorf("reorder %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// DeleteItem removes an item and its feedback.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM feedback WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	return tx.Commit()
}

// CountByStatus returns the number of items per status for one client.
func (s *Store) CountByStatus(ctx context.Context, clientID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM items WHERE client_id = ? GROUP BY status`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ---------------------------------------------------------------------------
// Brief enrichment
// ---------------------------------------------------------------------------

// ClaimNextBrief atomically picks the oldest item with a PENDING brief and
// sets it to FETCHING. Returns nil if no item is waiting.
func (s *Store) ClaimNextBrief(ctx context.Context) (*model.Item, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE items SET brief_state = ?, updated_at = ?
		WHERE id = (SELECT id FROM items WHERE brief_state = ? ORDER BY created_at ASC LIMIT 1)
		RETURNING %s`, columnList()),
		model.BriefFetching, now, model.BriefPending,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// SetBrief stores an extracted brief and marks it READY.
func (s *Store) SetBrief(ctx context.Context, id, brief string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE items SET brief = ?, brief_state = ?, brief_error = NULL, updated_at = ? WHERE id = ?`,
		brief, model.BriefReady, now, id)
	return err
}

// MarkBriefFailed records an extraction failure.
func (s *Store) MarkBriefFailed(ctx context.Context, id, reason string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE items SET brief_state = ?, brief_error = ?, updated_at = ? WHERE id = ?`,
		model.BriefFailed, reason, now, id)
	return err
}

// ResetStaleBriefs resets any FETCHING briefs back to PENDING (for server
// restart).
func (s *Store) ResetStaleBriefs(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET brief_state = ?, updated_at = ? WHERE brief_state = ?`,
		model.BriefPending, now, model.BriefFetching)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// Feedback
// ---------------------------------------------------------------------------

// ListFeedback returns all rejection feedback for an item, oldest first.
func (s *Store) ListFeedback(ctx context.Context, itemID string) ([]model.Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_id, text, created_at FROM feedback WHERE item_id = ? ORDER BY created_at ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feedback []model.Feedback
	for rows.Next() {
		var f model.Feedback
		if err := rows.Scan(&f.ID, &f.ItemID, &f.Text, &f.CreatedAt); err != nil {
			return nil, err
		}
		feedback = append(feedback, f)
	}
	return feedback, rows.Err()
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (*model.Item, error) {
	var item model.Item
	err := row.Scan(
		&item.ID, &item.ClientID, &item.Title, &item.Brief, &item.Kind,
		&item.PinnedDate, &item.PriorityIndex, &item.Status, &item.SourceURL,
		&item.BriefState, &item.BriefError, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func columnList() string {
	out := itemColumns[0]
	for _, c := range itemColumns[1:] {
		out += ", " + c
	}
	return out
}

// requireRow turns a zero-row update/delete into sql.ErrNoRows so handlers
// can answer 404 uniformly.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
