// Package storage persists the contribution ledger in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"kanisa/internal/core"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping reports whether the database is reachable. Used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const contributionColumns = `
	c.id, c.church_id, COALESCE(ch.name, ''), COALESCE(c.member_id, ''), COALESCE(m.full_name, ''),
	c.amount, c.currency, c.normalized_amount, c.payment_method, c.payment_date,
	c.reference, c.notes, c.created_at`

const contributionJoins = `
	FROM contributions c
	LEFT JOIN churches ch ON ch.id = c.church_id
	LEFT JOIN members m ON m.id = c.member_id`

func (r *SQLiteRepository) Insert(ctx context.Context, c core.Contribution) error {
	const query = `
		INSERT INTO contributions
			(id, church_id, member_id, amount, currency, normalized_amount,
			 payment_method, payment_date, reference, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.ScopeID, nullable(c.ContributorID),
		c.Amount.String(), string(c.Currency), c.NormalizedAmount.String(),
		c.PaymentMethod, c.PaymentDate.UTC(), c.Reference, c.Notes, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert contribution: %w", err)
	}

	slog.InfoContext(ctx, "Contribution saved to SQLite",
		"contribution_id", c.ID,
		"scope_id", c.ScopeID,
		"currency", c.Currency,
		"normalized_amount", c.NormalizedAmount.String())
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Contribution, error) {
	query := "SELECT" + contributionColumns + contributionJoins + " WHERE c.id = ?"

	row := r.db.QueryRowContext(ctx, query, id)
	c, err := scanContribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Contribution{}, core.ErrNotFound
	}
	if err != nil {
		return core.Contribution{}, fmt.Errorf("get contribution: %w", err)
	}
	return c, nil
}

// Replace overwrites the stored entry and marks it pending for the audit
// mirror again. Last write wins; there is no version compare.
func (r *SQLiteRepository) Replace(ctx context.Context, c core.Contribution) error {
	const query = `
		UPDATE contributions SET
			church_id = ?, member_id = ?, amount = ?, currency = ?,
			normalized_amount = ?, payment_method = ?, payment_date = ?,
			reference = ?, notes = ?, version = version + 1, mirror_state = 'pending'
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query,
		c.ScopeID, nullable(c.ContributorID),
		c.Amount.String(), string(c.Currency), c.NormalizedAmount.String(),
		c.PaymentMethod, c.PaymentDate.UTC(), c.Reference, c.Notes, c.ID)
	if err != nil {
		return fmt.Errorf("update contribution: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contributions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contribution: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) List(ctx context.Context, f core.Filter, p core.Page) (core.PagedResult, error) {
	where, args := filterClause(f)

	var total int
	countQuery := "SELECT COUNT(*)" + contributionJoins + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return core.PagedResult{}, fmt.Errorf("count contributions: %w", err)
	}

	query := "SELECT" + contributionColumns + contributionJoins + where +
		" ORDER BY c.payment_date DESC, c.created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, p.Size, p.Offset())...)
	if err != nil {
		return core.PagedResult{}, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	items := make([]core.Contribution, 0, p.Size)
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return core.PagedResult{}, fmt.Errorf("scan contribution: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return core.PagedResult{}, fmt.Errorf("list contributions: %w", err)
	}

	return core.PagedResult{Items: items, TotalMatching: total}, nil
}

// Total folds stored normalized amounts in Go. The column holds exact decimal
// strings, so summing in SQL would silently route through floating point.
func (r *SQLiteRepository) Total(ctx context.Context, scopeID string) (decimal.Decimal, error) {
	query := `SELECT normalized_amount FROM contributions`
	var args []any
	if scopeID != "" {
		query += ` WHERE church_id = ?`
		args = append(args, scopeID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan total: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse stored amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("query totals: %w", err)
	}
	return total, nil
}

// UpsertScope registers or renames a church. The church roster is managed by
// the surrounding console; the ledger only needs names for display.
func (r *SQLiteRepository) UpsertScope(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO churches (id, name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`, id, name)
	if err != nil {
		return fmt.Errorf("upsert church: %w", err)
	}
	return nil
}

// UpsertMember registers or renames a member.
func (r *SQLiteRepository) UpsertMember(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, full_name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET full_name = excluded.full_name`, id, name)
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

// PendingMirror returns ids of entries whose latest write has not reached the
// audit mirror yet, oldest first. Failed entries are included so the sweep
// retries them.
func (r *SQLiteRepository) PendingMirror(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM contributions WHERE mirror_state IN ('pending', 'error')
		 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending mirror entries: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkMirrored records that the entry's current version reached the mirror.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contributions SET mirror_state = 'done' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	return requireRow(res)
}

// MarkMirrorError flags the entry so the periodic sweep retries it.
func (r *SQLiteRepository) MarkMirrorError(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contributions SET mirror_state = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark mirror error: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContribution(row rowScanner) (core.Contribution, error) {
	var (
		c                       core.Contribution
		amount, normalized, cur string
	)
	err := row.Scan(
		&c.ID, &c.ScopeID, &c.ScopeName, &c.ContributorID, &c.ContributorName,
		&amount, &cur, &normalized, &c.PaymentMethod, &c.PaymentDate,
		&c.Reference, &c.Notes, &c.CreatedAt)
	if err != nil {
		return core.Contribution{}, err
	}

	c.Currency = core.CurrencyCode(cur)
	if c.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Contribution{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	if c.NormalizedAmount, err = decimal.NewFromString(normalized); err != nil {
		return core.Contribution{}, fmt.Errorf("parse stored normalized amount %q: %w", normalized, err)
	}
	return c, nil
}

func filterClause(f core.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.ScopeID != "" {
		conds = append(conds, "c.church_id = ?")
		args = append(args, f.ScopeID)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		conds = append(conds, `(
			LOWER(COALESCE(m.full_name, '')) LIKE ? ESCAPE '\'
			OR LOWER(c.payment_method) LIKE ? ESCAPE '\'
			OR LOWER(c.reference) LIKE ? ESCAPE '\'
			OR LOWER(c.notes) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
