/*
Package sqlite provides a SQLite-backed implementation of inventory.TxStore.

PURPOSE:
  Production persistence for lots, movements, documents, and users. The
  legacy deployment persisted through a row-oriented spreadsheet backend;
  this store keeps the same row shapes so exported legacy data imports
  cleanly (see the flag coercion notes below).

APPEND-ONLY ENFORCEMENT:
  - No DELETE statements exist anywhere in this package.
  - Movements are never UPDATEd except to flip is_reversed, one way.
  - Lots are only UPDATEd on current_balance.

DECIMAL FIELDS:
  Quantities and monetary values are stored as TEXT and parsed with
  shopspring/decimal, avoiding float drift in balances.

FLAG COERCION:
  Legacy spreadsheet exports persisted booleans as the strings "TRUE" and
  "FALSE"; SQLite itself has no boolean type. parseFlag is the single
  place those representations are coerced - accepted forms are "TRUE",
  "FALSE", "true", "false", "1", "0". Anything else is a parse error
  surfaced as a storage failure, never guessed at per call site.

WAL MODE:
  The database is opened with WAL for better read concurrency; writes are
  additionally serialized with an in-process mutex, matching the engine's
  single-logical-writer model.

USAGE:
  st, err := sqlite.New("./data/warehouse.db")
  if err != nil { ... }
  defer st.Close()
  svc := inventory.NewService(st, logger)

SEE ALSO:
  - inventory/store.go: Interface contracts
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/inventory"
)

// Store implements inventory.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ExecRaw runs a raw statement against the database. Intended for
// maintenance and legacy data imports; application code goes through
// the Store interface.
func (s *Store) ExecRaw(ctx context.Context, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) migrate() error {
	schema := `
	-- Stock lots: created once per commitment document line, never deleted.
	CREATE TABLE IF NOT EXISTS lots (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		unit TEXT NOT NULL,
		qty_per_package TEXT NOT NULL DEFAULT '0',
		unit_value TEXT NOT NULL,
		initial_qty TEXT NOT NULL,
		current_balance TEXT NOT NULL,
		min_threshold TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lots_product ON lots(product_name);
	CREATE INDEX IF NOT EXISTS idx_lots_document ON lots(document_id);

	-- Movements: the append-only ledger.
	CREATE TABLE IF NOT EXISTS movements (
		id TEXT PRIMARY KEY,
		ts TEXT NOT NULL,
		kind TEXT NOT NULL,
		document_id TEXT NOT NULL,
		lot_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		quantity TEXT NOT NULL,
		total_value TEXT NOT NULL,
		actor_email TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		receipt_url TEXT NOT NULL DEFAULT '',
		is_reversed TEXT NOT NULL DEFAULT 'FALSE'
	);

	CREATE INDEX IF NOT EXISTS idx_movements_lot ON movements(lot_id);
	CREATE INDEX IF NOT EXISTS idx_movements_kind ON movements(kind);
	CREATE INDEX IF NOT EXISTS idx_movements_ts ON movements(ts);

	-- Commitment documents.
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		supplier TEXT NOT NULL,
		doc_date TEXT NOT NULL,
		status TEXT NOT NULL,
		total_value TEXT NOT NULL
	);

	-- Users: email is the immutable identity key.
	CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		active TEXT NOT NULL DEFAULT 'TRUE'
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// FLAG COERCION - The one place loose booleans become typed
// =============================================================================

// parseFlag coerces the legacy flag representations to bool. Strict: an
// unrecognized value is an error, not a false.
func parseFlag(raw string) (bool, error) {
	switch strings.TrimSpace(raw) {
	case "TRUE", "true", "1":
		return true, nil
	case "FALSE", "false", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized flag value %q", raw)
	}
}

func formatFlag(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// =============================================================================
// DBTX - Shared query surface for *sql.DB and *sql.Tx
// =============================================================================

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// =============================================================================
// STORE OPERATIONS (inventory.Store interface)
// =============================================================================

// LoadAll reads the full dataset in one snapshot.
func (s *Store) LoadAll(ctx context.Context) (*inventory.Snapshot, error) {
	snap := &inventory.Snapshot{}

	var err error
	if snap.Lots, err = loadLots(ctx, s.db); err != nil {
		return nil, err
	}
	if snap.Movements, err = loadMovements(ctx, s.db); err != nil {
		return nil, err
	}
	if snap.Documents, err = loadDocuments(ctx, s.db); err != nil {
		return nil, err
	}
	if snap.Users, err = loadUsers(ctx, s.db); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) AppendLot(ctx context.Context, lot inventory.StockLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendLot(ctx, s.db, lot)
}

func (s *Store) AppendMovement(ctx context.Context, rec inventory.MovementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendMovement(ctx, s.db, rec)
}

func (s *Store) AppendDocument(ctx context.Context, doc inventory.CommitmentDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendDocument(ctx, s.db, doc)
}

func (s *Store) SetLotBalance(ctx context.Context, id inventory.LotID, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setLotBalance(ctx, s.db, id, balance)
}

func (s *Store) SetMovementReversed(ctx context.Context, id inventory.MovementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setMovementReversed(ctx, s.db, id)
}

func (s *Store) SaveUser(ctx context.Context, user inventory.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveUser(ctx, s.db, user)
}

// WithTx executes fn within a database transaction. Any error rolls back
// every write fn performed.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&txView{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// txView adapts *sql.Tx to inventory.Store for use inside WithTx.
type txView struct {
	tx *sql.Tx
}

func (v *txView) LoadAll(ctx context.Context) (*inventory.Snapshot, error) {
	snap := &inventory.Snapshot{}
	var err error
	if snap.Lots, err = loadLots(ctx, v.tx); err != nil {
		return nil, err
	}
	if snap.Movements, err = loadMovements(ctx, v.tx); err != nil {
		return nil, err
	}
	if snap.Documents, err = loadDocuments(ctx, v.tx); err != nil {
		return nil, err
	}
	if snap.Users, err = loadUsers(ctx, v.tx); err != nil {
		return nil, err
	}
	return snap, nil
}

func (v *txView) AppendLot(ctx context.Context, lot inventory.StockLot) error {
	return appendLot(ctx, v.tx, lot)
}

func (v *txView) AppendMovement(ctx context.Context, rec inventory.MovementRecord) error {
	return appendMovement(ctx, v.tx, rec)
}

func (v *txView) AppendDocument(ctx context.Context, doc inventory.CommitmentDocument) error {
	return appendDocument(ctx, v.tx, doc)
}

func (v *txView) SetLotBalance(ctx context.Context, id inventory.LotID, balance decimal.Decimal) error {
	return setLotBalance(ctx, v.tx, id, balance)
}

func (v *txView) SetMovementReversed(ctx context.Context, id inventory.MovementID) error {
	return setMovementReversed(ctx, v.tx, id)
}

func (v *txView) SaveUser(ctx context.Context, user inventory.User) error {
	return saveUser(ctx, v.tx, user)
}

// =============================================================================
// ROW OPERATIONS
// =============================================================================

func appendLot(ctx context.Context, db dbtx, lot inventory.StockLot) error {
	query := `
		INSERT INTO lots
		(id, document_id, product_name, unit, qty_per_package, unit_value,
		 initial_qty, current_balance, min_threshold, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		lot.ID,
		lot.DocumentID,
		lot.ProductName,
		lot.Unit,
		lot.QtyPerPackage.String(),
		lot.UnitValue.String(),
		lot.InitialQuantity.String(),
		lot.CurrentBalance.String(),
		lot.MinimumThreshold.String(),
		lot.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append lot: %w", err)
	}
	return nil
}

func appendMovement(ctx context.Context, db dbtx, rec inventory.MovementRecord) error {
	query := `
		INSERT INTO movements
		(id, ts, kind, document_id, lot_id, product_name, quantity,
		 total_value, actor_email, note, receipt_url, is_reversed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		rec.ID,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Kind,
		rec.DocumentID,
		rec.LotID,
		rec.ProductName,
		rec.Quantity.String(),
		rec.TotalValue.String(),
		rec.ActorEmail,
		rec.Note,
		rec.ReceiptURL,
		formatFlag(rec.IsReversed),
	)
	if err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}
	return nil
}

func appendDocument(ctx context.Context, db dbtx, doc inventory.CommitmentDocument) error {
	query := `
		INSERT INTO documents (id, supplier, doc_date, status, total_value)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		doc.ID,
		doc.Supplier,
		doc.Date.UTC().Format(time.RFC3339Nano),
		doc.Status,
		doc.TotalValue.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to append document: %w", err)
	}
	return nil
}

func setLotBalance(ctx context.Context, db dbtx, id inventory.LotID, balance decimal.Decimal) error {
	res, err := db.ExecContext(ctx,
		`UPDATE lots SET current_balance = ? WHERE id = ?`,
		balance.String(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set lot balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("lot %s not found", id)
	}
	return nil
}

func setMovementReversed(ctx context.Context, db dbtx, id inventory.MovementID) error {
	res, err := db.ExecContext(ctx,
		`UPDATE movements SET is_reversed = 'TRUE' WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to flag movement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("movement %s not found", id)
	}
	return nil
}

func saveUser(ctx context.Context, db dbtx, user inventory.User) error {
	query := `
		INSERT INTO users (email, name, role, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET name = excluded.name,
			role = excluded.role, active = excluded.active
	`
	_, err := db.ExecContext(ctx, query,
		user.Email, user.Name, user.Role, formatFlag(user.Active),
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// =============================================================================
// ROW SCANNING
// =============================================================================

func loadLots(ctx context.Context, db dbtx) ([]inventory.StockLot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, document_id, product_name, unit, qty_per_package,
		       unit_value, initial_qty, current_balance, min_threshold, created_at
		FROM lots ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load lots: %w", err)
	}
	defer rows.Close()

	var lots []inventory.StockLot
	for rows.Next() {
		var lot inventory.StockLot
		var qtyPerPkg, unitValue, initialQty, balance, threshold, createdAt string
		if err := rows.Scan(&lot.ID, &lot.DocumentID, &lot.ProductName, &lot.Unit,
			&qtyPerPkg, &unitValue, &initialQty, &balance, &threshold, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		if lot.QtyPerPackage, err = decimal.NewFromString(qtyPerPkg); err != nil {
			return nil, fmt.Errorf("lot %s qty_per_package: %w", lot.ID, err)
		}
		if lot.UnitValue, err = decimal.NewFromString(unitValue); err != nil {
			return nil, fmt.Errorf("lot %s unit_value: %w", lot.ID, err)
		}
		if lot.InitialQuantity, err = decimal.NewFromString(initialQty); err != nil {
			return nil, fmt.Errorf("lot %s initial_qty: %w", lot.ID, err)
		}
		if lot.CurrentBalance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("lot %s current_balance: %w", lot.ID, err)
		}
		if lot.MinimumThreshold, err = decimal.NewFromString(threshold); err != nil {
			return nil, fmt.Errorf("lot %s min_threshold: %w", lot.ID, err)
		}
		if lot.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("lot %s created_at: %w", lot.ID, err)
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func loadMovements(ctx context.Context, db dbtx) ([]inventory.MovementRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, ts, kind, document_id, lot_id, product_name, quantity,
		       total_value, actor_email, note, receipt_url, is_reversed
		FROM movements ORDER BY ts, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load movements: %w", err)
	}
	defer rows.Close()

	var movements []inventory.MovementRecord
	for rows.Next() {
		var rec inventory.MovementRecord
		var ts, quantity, totalValue, reversed string
		if err := rows.Scan(&rec.ID, &ts, &rec.Kind, &rec.DocumentID, &rec.LotID,
			&rec.ProductName, &quantity, &totalValue, &rec.ActorEmail,
			&rec.Note, &rec.ReceiptURL, &reversed); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("movement %s ts: %w", rec.ID, err)
		}
		if rec.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("movement %s quantity: %w", rec.ID, err)
		}
		if rec.TotalValue, err = decimal.NewFromString(totalValue); err != nil {
			return nil, fmt.Errorf("movement %s total_value: %w", rec.ID, err)
		}
		if rec.IsReversed, err = parseFlag(reversed); err != nil {
			return nil, fmt.Errorf("movement %s is_reversed: %w", rec.ID, err)
		}
		movements = append(movements, rec)
	}
	return movements, rows.Err()
}

func loadDocuments(ctx context.Context, db dbtx) ([]inventory.CommitmentDocument, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, supplier, doc_date, status, total_value
		FROM documents ORDER BY doc_date, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	defer rows.Close()

	var docs []inventory.CommitmentDocument
	for rows.Next() {
		var doc inventory.CommitmentDocument
		var date, totalValue string
		if err := rows.Scan(&doc.ID, &doc.Supplier, &date, &doc.Status, &totalValue); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if doc.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, fmt.Errorf("document %s doc_date: %w", doc.ID, err)
		}
		if doc.TotalValue, err = decimal.NewFromString(totalValue); err != nil {
			return nil, fmt.Errorf("document %s total_value: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func loadUsers(ctx context.Context, db dbtx) ([]inventory.User, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT email, name, role, active FROM users ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	defer rows.Close()

	var users []inventory.User
	for rows.Next() {
		var user inventory.User
		var active string
		if err := rows.Scan(&user.Email, &user.Name, &user.Role, &active); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if user.Active, err = parseFlag(active); err != nil {
			return nil, fmt.Errorf("user %s active: %w", user.Email, err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
