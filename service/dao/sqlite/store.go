// Package sqlite implements dao.Repository on SQLite. Writes run inside
// BEGIN IMMEDIATE transactions so concurrent units of work are serialized by
// the database itself.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/viant/fingov/model/audit"
	"github.com/viant/fingov/model/exception"
	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/ledger/legacy"
	"github.com/viant/fingov/model/quorum"
	"github.com/viant/fingov/model/role"
	"github.com/viant/fingov/service/dao"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a SQLite backed dao.Repository.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating when needed) the database at dbPath and applies
// pending migrations.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite database path was empty")
	}
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("can not create database directory %s: %w", dbDir, err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("can not open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("can not connect with database: %w", err)
	}
	if err := runMigrations(db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// InTx runs fn inside one database transaction; it commits only when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx dao.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err = fn(ctx, newTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w, rb err: %v", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB, migrationsFS fs.FS) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to set up migrate driver: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to set up migrate instance: %w", err)
	}
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migration(up): %w", err)
	}
	return nil
}

type sqliteTx struct {
	transactions    *table[ledger.Transaction]
	approvals       *table[ledger.Approval]
	instruments     *table[ledger.Instrument]
	budgets         *table[ledger.Budget]
	members         *table[role.Member]
	exceptions      *table[exception.CapException]
	pointers        *table[exception.Pointer]
	families        *table[quorum.Family]
	acknowledgments *table[quorum.Acknowledgment]
	outbox          *table[audit.Entry]
}

func newTx(db DBTX) *sqliteTx {
	return &sqliteTx{
		transactions: &table[ledger.Transaction]{
			db:   db,
			name: "transactions",
			columns: map[string]string{
				"TeamID": "team_id", "Status": "status", "CreatorID": "creator_id",
				"Type": "type", "Dimension": "dimension",
			},
			key:    dao.TransactionKey,
			decode: normalizeTransaction,
			expand: expandStatus,
		},
		approvals: &table[ledger.Approval]{
			db:      db,
			name:    "approvals",
			columns: map[string]string{"TransactionID": "transaction_id", "ApproverID": "approver_id", "Status": "status"},
			key:     dao.ApprovalKey,
		},
		instruments: &table[ledger.Instrument]{db: db, name: "instruments", key: dao.InstrumentKey},
		budgets: &table[ledger.Budget]{
			db:      db,
			name:    "budgets",
			columns: map[string]string{"TeamID": "team_id", "Status": "status"},
			key:     dao.BudgetKey,
		},
		members: &table[role.Member]{
			db:      db,
			name:    "members",
			columns: map[string]string{"TeamID": "team_id", "UserID": "user_id", "Role": "role", "Active": "active"},
			key:     dao.MemberKey,
		},
		exceptions: &table[exception.CapException]{
			db:      db,
			name:    "cap_exceptions",
			columns: map[string]string{"ScopeKey": "scope_key", "Status": "status"},
			key:     dao.ExceptionKey,
		},
		pointers: &table[exception.Pointer]{db: db, name: "exception_pointers", key: dao.PointerKey},
		families: &table[quorum.Family]{
			db:      db,
			name:    "families",
			columns: map[string]string{"TeamID": "team_id", "Active": "active"},
			key:     dao.FamilyKey,
		},
		acknowledgments: &table[quorum.Acknowledgment]{
			db:      db,
			name:    "acknowledgments",
			columns: map[string]string{"BudgetID": "budget_id", "FamilyID": "family_id"},
			key:     dao.AcknowledgmentKey,
		},
		outbox: &table[audit.Entry]{
			db:      db,
			name:    "audit_outbox",
			columns: map[string]string{"EntityType": "entity_type", "EntityID": "entity_id", "Action": "action"},
			key:     dao.EntryKey,
		},
	}
}

// normalizeTransaction maps legacy status spellings onto canonical states.
func normalizeTransaction(t *ledger.Transaction) error {
	status, err := legacy.Normalize(string(t.Status))
	if err != nil {
		return fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.Status = status
	return nil
}

func expandStatus(field string, values []string) []string {
	if field != "Status" {
		return values
	}
	var ret []string
	for _, value := range values {
		ret = append(ret, legacy.Aliases(ledger.Status(value))...)
	}
	return ret
}

func (t *sqliteTx) Transactions() dao.Service[string, ledger.Transaction] { return t.transactions }
func (t *sqliteTx) Approvals() dao.Service[string, ledger.Approval]       { return t.approvals }
func (t *sqliteTx) Instruments() dao.Service[string, ledger.Instrument]   { return t.instruments }
func (t *sqliteTx) Budgets() dao.Service[string, ledger.Budget]           { return t.budgets }
func (t *sqliteTx) Members() dao.Service[string, role.Member]             { return t.members }
func (t *sqliteTx) Exceptions() dao.Service[string, exception.CapException] {
	return t.exceptions
}
func (t *sqliteTx) ExceptionPointers() dao.Service[string, exception.Pointer] { return t.pointers }
func (t *sqliteTx) Families() dao.Service[string, quorum.Family]              { return t.families }
func (t *sqliteTx) Acknowledgments() dao.Service[string, quorum.Acknowledgment] {
	return t.acknowledgments
}
func (t *sqliteTx) Outbox() dao.Service[string, audit.Entry] { return t.outbox }

var _ dao.Repository = (*Store)(nil)
