// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/brokewise/internal/currency"
	"github.com/mmynk/brokewise/internal/models"
	"github.com/mmynk/brokewise/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

const (
	kindPayment    = "payment"
	kindObligation = "obligation"
)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateGroup persists a new group and its ledger.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	// Generate IDs if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = s.now().Unix()
	}
	if group.LastAccessedAt == 0 {
		group.LastAccessedAt = group.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, created_at, last_accessed_at) VALUES (?, ?, ?)",
		group.ID, group.CreatedAt, group.LastAccessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := writeLedger(ctx, tx, group.ID, group.Ledger); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID, including its ledger.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at, last_accessed_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.CreatedAt, &group.LastAccessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrGroupNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.Ledger, err = readLedger(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	return group, nil
}

// LoadLedger retrieves the ledger of a group.
func (s *SQLiteStore) LoadLedger(ctx context.Context, groupID string) (models.Ledger, error) {
	if err := groupExists(ctx, s.db, groupID); err != nil {
		return models.Ledger{}, err
	}
	return readLedger(ctx, s.db, groupID)
}

// SaveLedger replaces a group's participants and expenses.
func (s *SQLiteStore) SaveLedger(ctx context.Context, groupID string, ledger models.Ledger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := groupExists(ctx, tx, groupID); err != nil {
		return err
	}
	if err := replaceLedger(ctx, tx, groupID, ledger, s.now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateLedger applies fn to the stored ledger inside one transaction.
func (s *SQLiteStore) UpdateLedger(ctx context.Context, groupID string, fn func(models.Ledger) (models.Ledger, error)) (models.Ledger, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Ledger{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := groupExists(ctx, tx, groupID); err != nil {
		return models.Ledger{}, err
	}
	current, err := readLedger(ctx, tx, groupID)
	if err != nil {
		return models.Ledger{}, err
	}
	updated, err := fn(current)
	if err != nil {
		return models.Ledger{}, err
	}
	if err := replaceLedger(ctx, tx, groupID, updated, s.now()); err != nil {
		return models.Ledger{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Ledger{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updated, nil
}

// TouchGroup updates the last access time of a group.
func (s *SQLiteStore) TouchGroup(ctx context.Context, groupID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE groups SET last_accessed_at = ? WHERE id = ?",
		at.Unix(), groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch group: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrGroupNotFound, groupID)
	}
	return nil
}

// DeleteInactiveGroups removes groups last accessed before cutoff.
// Participants and expenses go with them through ON DELETE CASCADE.
func (s *SQLiteStore) DeleteInactiveGroups(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM groups WHERE last_accessed_at < ?",
		cutoff.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive groups: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func groupExists(ctx context.Context, q querier, groupID string) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", storage.ErrGroupNotFound, groupID)
	}
	if err != nil {
		return fmt.Errorf("failed to get group: %w", err)
	}
	return nil
}

func replaceLedger(ctx context.Context, tx *sql.Tx, groupID string, ledger models.Ledger, now time.Time) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM group_participants WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("failed to clear expenses: %w", err)
	}
	if err := writeLedger(ctx, tx, groupID, ledger); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE groups SET last_accessed_at = ? WHERE id = ?",
		now.Unix(), groupID,
	); err != nil {
		return fmt.Errorf("failed to touch group: %w", err)
	}
	return nil
}

func writeLedger(ctx context.Context, tx *sql.Tx, groupID string, ledger models.Ledger) error {
	// Insert participants
	for i, name := range ledger.Participants {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO group_participants (group_id, position, name) VALUES (?, ?, ?)",
			groupID, i, name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	// Insert expenses and their entries
	for i, e := range ledger.Expenses {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expenses (id, group_id, position, description, display_currency, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			e.ID, groupID, i, e.Description, string(e.DisplayCurrency), e.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}
		if err := writeEntries(ctx, tx, e.ID, kindPayment, e.Payments); err != nil {
			return err
		}
		if err := writeEntries(ctx, tx, e.ID, kindObligation, e.Obligations); err != nil {
			return err
		}
	}
	return nil
}

func writeEntries(ctx context.Context, tx *sql.Tx, expenseID, kind string, entries []models.Entry) error {
	for i, entry := range entries {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_entries (expense_id, kind, position, person, amount, currency) VALUES (?, ?, ?, ?, ?, ?)",
			expenseID, kind, i, entry.Person, entry.Money.Amount.String(), string(entry.Money.Currency),
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s entry: %w", kind, err)
		}
	}
	return nil
}

func readLedger(ctx context.Context, q querier, groupID string) (models.Ledger, error) {
	var ledger models.Ledger

	// Get participants
	rows, err := q.QueryContext(ctx,
		"SELECT name FROM group_participants WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return ledger, fmt.Errorf("failed to get participants: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return ledger, fmt.Errorf("failed to scan participant: %w", err)
		}
		ledger.Participants = append(ledger.Participants, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ledger, fmt.Errorf("failed to iterate participants: %w", err)
	}

	// Get expenses
	expenseRows, err := q.QueryContext(ctx,
		"SELECT id, description, display_currency, created_at FROM expenses WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return ledger, fmt.Errorf("failed to get expenses: %w", err)
	}
	index := make(map[string]int)
	for expenseRows.Next() {
		var (
			e         models.Expense
			display   string
			createdAt string
		)
		if err := expenseRows.Scan(&e.ID, &e.Description, &display, &createdAt); err != nil {
			expenseRows.Close()
			return ledger, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.DisplayCurrency = currency.Code(display)
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			expenseRows.Close()
			return ledger, fmt.Errorf("failed to parse expense timestamp: %w", err)
		}
		index[e.ID] = len(ledger.Expenses)
		ledger.Expenses = append(ledger.Expenses, e)
	}
	expenseRows.Close()
	if err := expenseRows.Err(); err != nil {
		return ledger, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	if len(ledger.Expenses) == 0 {
		return ledger, nil
	}

	// Get entries for every expense in one query
	entryRows, err := q.QueryContext(ctx, `
		SELECT ee.expense_id, ee.kind, ee.person, ee.amount, ee.currency
		FROM expense_entries ee
		JOIN expenses e ON e.id = ee.expense_id
		WHERE e.group_id = ?
		ORDER BY ee.expense_id, ee.kind, ee.position`,
		groupID,
	)
	if err != nil {
		return ledger, fmt.Errorf("failed to get expense entries: %w", err)
	}
	defer entryRows.Close()

	for entryRows.Next() {
		var expenseID, kind, person, amount, code string
		if err := entryRows.Scan(&expenseID, &kind, &person, &amount, &code); err != nil {
			return ledger, fmt.Errorf("failed to scan expense entry: %w", err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return ledger, fmt.Errorf("failed to parse amount %q: %w", amount, err)
		}
		entry := models.Entry{Person: person, Money: models.NewMoney(value, currency.Code(code))}

		e := &ledger.Expenses[index[expenseID]]
		switch kind {
		case kindPayment:
			e.Payments = append(e.Payments, entry)
		case kindObligation:
			e.Obligations = append(e.Obligations, entry)
		}
	}
	if err := entryRows.Err(); err != nil {
		return ledger, fmt.Errorf("failed to iterate expense entries: %w", err)
	}

	return ledger, nil
}
