// Package storage persists the household ledger, recurring plans and
// supporting records in SQLite. Snapshot reads are owner-scoped: list
// queries accept one or two owner ids so a linked couple shares one view.
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
	"time"

	"github.com/google/uuid"

	"contas/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an id no longer exists. Mutation services
// treat it as a stale-snapshot signal and no-op rather than failing.
var ErrNotFound = errors.New("record not found")

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

	// Installment deletes ride on the plan's ON DELETE CASCADE.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- Transactions ---

// CreateTransaction inserts a ledger entry and returns its storage-assigned
// id. CreatedAt is set here, never by the caller.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, owner_id, owner_name, label, amount_cents, type, category, method, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.OwnerName, t.Label, t.Amount.Cents, string(t.Type),
		t.Category, string(t.Method), encodeTime(t.Date), encodeTime(t.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"owner_id", t.OwnerID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents)
	return t.ID, nil
}

// UpdateTransaction patches the two mutable fields of a ledger entry. Nil
// arguments leave the stored value untouched.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, label *string, amountCents *int64) error {
	sets := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if label != nil {
		sets = append(sets, "label = ?")
		args = append(args, *label)
	}
	if amountCents != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, *amountCents)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return checkFound(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return checkFound(res)
}

// ListTransactions returns the full ledger for the given owners, newest
// event first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerIDs []string) ([]core.Transaction, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, owner_name, label, amount_cents, type, category, method, date, created_at
		FROM transactions
		WHERE owner_id IN (`+placeholders(len(ownerIDs))+`)
		ORDER BY date DESC, created_at DESC`, toAnySlice(ownerIDs)...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Plans ---

// CreatePlan inserts the plan and its whole installment schedule in one SQL
// transaction; a plan is never visible with a partial schedule.
func (r *SQLiteRepository) CreatePlan(ctx context.Context, p core.RecurringPlan) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin create plan: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO plans (id, owner_id, title, category, kind, total_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Title, p.Category, string(p.Kind), p.TotalAmount.Cents, encodeTime(p.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("insert plan: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO installments (plan_id, number, amount_cents, due_date, paid)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare installments: %w", err)
	}
	defer stmt.Close()
	for _, inst := range p.Installments {
		if _, err := stmt.ExecContext(ctx, p.ID, inst.Number, inst.Amount.Cents, encodeTime(inst.DueDate), inst.Paid); err != nil {
			return "", fmt.Errorf("insert installment %d: %w", inst.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit create plan: %w", err)
	}

	slog.InfoContext(ctx, "Plan saved",
		"id", p.ID,
		"owner_id", p.OwnerID,
		"kind", p.Kind,
		"installments", len(p.Installments))
	return p.ID, nil
}

// DeletePlan removes the plan and, via cascade, its installments. Ledger
// transactions created by past payments are deliberately left in place.
func (r *SQLiteRepository) DeletePlan(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM plans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return checkFound(res)
}

func (r *SQLiteRepository) GetPlan(ctx context.Context, id string) (core.RecurringPlan, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, category, kind, total_cents, created_at
		FROM plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.RecurringPlan{}, ErrNotFound
		}
		return core.RecurringPlan{}, fmt.Errorf("get plan: %w", err)
	}
	if err := r.loadInstallments(ctx, &p); err != nil {
		return core.RecurringPlan{}, err
	}
	return p, nil
}

// ListPlans returns the owners' plans, newest first, each with its complete
// ordered schedule.
func (r *SQLiteRepository) ListPlans(ctx context.Context, ownerIDs []string) ([]core.RecurringPlan, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, title, category, kind, total_cents, created_at
		FROM plans
		WHERE owner_id IN (`+placeholders(len(ownerIDs))+`)
		ORDER BY created_at DESC`, toAnySlice(ownerIDs)...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.loadInstallments(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MarkInstallmentPaid flips one installment's paid flag with a single
// conditional update. The WHERE paid = 0 guard makes double payment a no-op
// and keeps concurrent payments of different installments from clobbering
// each other: no read-modify-write of the whole schedule ever happens.
func (r *SQLiteRepository) MarkInstallmentPaid(ctx context.Context, planID string, number int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE installments SET paid = 1
		WHERE plan_id = ? AND number = ? AND paid = 0`, planID, number)
	if err != nil {
		return false, fmt.Errorf("mark installment paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark installment paid: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) loadInstallments(ctx context.Context, p *core.RecurringPlan) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT number, amount_cents, due_date, paid
		FROM installments WHERE plan_id = ? ORDER BY number`, p.ID)
	if err != nil {
		return fmt.Errorf("load installments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			inst  core.Installment
			cents int64
			due   string
		)
		if err := rows.Scan(&inst.Number, &cents, &due, &inst.Paid); err != nil {
			return fmt.Errorf("scan installment: %w", err)
		}
		inst.Amount = core.Money{Cents: cents}
		if inst.DueDate, err = decodeTime(due); err != nil {
			return err
		}
		p.Installments = append(p.Installments, inst)
	}
	return rows.Err()
}

// --- Categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, owner_id, label, color, icon_key)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Label, c.Color, c.IconKey)
	if err != nil {
		return "", fmt.Errorf("create category: %w", err)
	}
	return c.ID, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id string, c core.Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET label = ?, color = ?, icon_key = ? WHERE id = ?`,
		c.Label, c.Color, c.IconKey, id)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return checkFound(res)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return checkFound(res)
}

// ListCategories returns one owner's custom categories; built-ins live in
// core and are never stored.
func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, label, color, icon_key
		FROM categories WHERE owner_id = ? ORDER BY label`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Label, &c.Color, &c.IconKey); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Users ---

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, partner_id, admin FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.PartnerID, &u.Admin)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, partner_id, admin FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.PartnerID, &u.Admin)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UpsertUser mirrors an identity record from the auth proxy into the local
// users table, preserving an existing partner link.
func (r *SQLiteRepository) UpsertUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, partner_id, admin)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email, name = excluded.name`,
		u.ID, u.Email, u.Name, u.PartnerID, u.Admin)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// LinkPartner joins two users into one shared household view, both ways.
func (r *SQLiteRepository) LinkPartner(ctx context.Context, userID, partnerID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link partner: %w", err)
	}
	defer tx.Rollback()
	for _, pair := range [][2]string{{partnerID, userID}, {userID, partnerID}} {
		res, err := tx.ExecContext(ctx, "UPDATE users SET partner_id = ? WHERE id = ?", pair[0], pair[1])
		if err != nil {
			return fmt.Errorf("link partner: %w", err)
		}
		if err := checkFound(res); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- Notifications ---

func (r *SQLiteRepository) CreateNotification(ctx context.Context, n core.Notification) (string, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, title, message, type, author, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Message, string(n.Type), n.Author, encodeTime(n.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("create notification: %w", err)
	}
	return n.ID, nil
}

func (r *SQLiteRepository) DeleteNotification(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return checkFound(res)
}

func (r *SQLiteRepository) ListNotifications(ctx context.Context) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, message, type, author, created_at
		FROM notifications ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var (
			n       core.Notification
			typ     string
			created string
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &typ, &n.Author, &created); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = core.NotificationType(typ)
		if n.CreatedAt, err = decodeTime(created); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// --- System config ---

func (r *SQLiteRepository) MaintenanceMode(ctx context.Context) (bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM system_config WHERE key = 'maintenance_mode'").Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read maintenance mode: %w", err)
	}
	return value == "1", nil
}

func (r *SQLiteRepository) SetMaintenanceMode(ctx context.Context, on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO system_config (key, value) VALUES ('maintenance_mode', ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, value)
	if err != nil {
		return fmt.Errorf("set maintenance mode: %w", err)
	}
	slog.InfoContext(ctx, "Maintenance mode changed", "enabled", on)
	return nil
}

// --- Export sync bookkeeping ---

// ListUnsyncedTransactions returns ledger entries not yet appended to the
// export backend, oldest first.
func (r *SQLiteRepository) ListUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, owner_name, label, amount_cents, type, category, method, date, created_at
		FROM transactions WHERE synced = 0 AND sync_error = 0
		ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsynced transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE transactions SET synced = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkTransactionSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE transactions SET sync_error = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t               core.Transaction
		cents           int64
		typ, method     string
		date, createdAt string
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.OwnerName, &t.Label, &cents, &typ, &t.Category, &method, &date, &createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Amount = core.Money{Cents: cents}
	t.Type = core.TransactionType(typ)
	t.Method = core.PaymentMethod(method)
	var err error
	if t.Date, err = decodeTime(date); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = decodeTime(createdAt); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func scanPlan(row rowScanner) (core.RecurringPlan, error) {
	var (
		p       core.RecurringPlan
		cents   int64
		kind    string
		created string
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Category, &kind, &cents, &created); err != nil {
		return core.RecurringPlan{}, err
	}
	p.TotalAmount = core.Money{Cents: cents}
	p.Kind = core.PlanKind(kind)
	var err error
	if p.CreatedAt, err = decodeTime(created); err != nil {
		return core.RecurringPlan{}, err
	}
	return p, nil
}

func checkFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode time %q: %w", s, err)
	}
	return t, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
