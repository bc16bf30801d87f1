// Package manager implements the Table Manager: the coordinator owning the
// tables map, the WAL, and the snapshot store, and exposing the engine's
// public surface under a single reader-writer lock.
package manager

import (
	"fmt"
	"sort"
	"sync"

	"github.com/coleman-db/coleman/internal/aggregate"
	"github.com/coleman-db/coleman/internal/colerr"
	"github.com/coleman-db/coleman/internal/config"
	"github.com/coleman-db/coleman/internal/predicate"
	"github.com/coleman-db/coleman/internal/schema"
	"github.com/coleman-db/coleman/internal/snapshot"
	"github.com/coleman-db/coleman/internal/table"
	"github.com/coleman-db/coleman/internal/value"
	"github.com/coleman-db/coleman/internal/wal"
	"github.com/coleman-db/coleman/log"
	"github.com/rs/zerolog"
)

// Manager is the engine's coordinator: one reader-writer lock guards the
// tables map and every table's contents. Mutations go WAL-first, then
// in-memory; reads take the shared lock for the duration of the operation.
type Manager struct {
	mu sync.RWMutex

	cfg config.Config
	log zerolog.Logger

	tables map[string]*table.Table
	wal    *wal.WAL
	snap   *snapshot.Store

	recordsSinceSnapshot int
}

// Open opens (creating if needed) the WAL and snapshot store at the paths
// named in cfg, loads the latest snapshot if one exists, replays the WAL
// tail on top of it, and returns a ready-to-use Manager.
func Open(cfg config.Config) (*Manager, error) {
	lg := log.New("manager")

	w, err := wal.Open(cfg.WALPath, log.New("wal"))
	if err != nil {
		return nil, fmt.Errorf("manager: open wal: %w", err)
	}

	snap, err := snapshot.New(cfg.SnapshotDir, log.New("snapshot"))
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("manager: open snapshot store: %w", err)
	}

	m := &Manager{
		cfg:    cfg,
		log:    lg,
		tables: make(map[string]*table.Table),
		wal:    w,
		snap:   snap,
	}

	if err := m.recover(); err != nil {
		w.Close()
		return nil, fmt.Errorf("manager: recover: %w", err)
	}

	return m, nil
}

// recover implements the startup sequence: load the latest snapshot
// (if any) directly into the tables map, then replay the WAL's current
// contents on top of it in sequence order. A duplicate CreateTable or an
// AddRecord against a table that neither the snapshot nor an earlier record
// created is fatal — replay must reconstruct exactly the state that
// produced the log.
func (m *Manager) recover() error {
	if err := m.snap.Load(func(t *table.Table) error {
		m.tables[t.Name] = t
		return nil
	}); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	err := m.wal.Replay(func(seq uint64, e wal.Entry) error {
		switch e.Kind {
		case wal.CreateTableEntry:
			if _, exists := m.tables[e.TableName]; exists {
				return fmt.Errorf("replay: seq %d: table %q already exists: %w",
					seq, e.TableName, colerr.ErrTableAlreadyExists)
			}
			m.tables[e.TableName] = table.New(e.TableName, e.Schema)
		case wal.AddRecordEntry:
			t, ok := m.tables[e.TableName]
			if !ok {
				return fmt.Errorf("replay: seq %d: table %q: %w",
					seq, e.TableName, colerr.ErrTableNotFound)
			}
			// Mirror live add_record: a validation failure here is the same
			// outcome the original run produced after its own WAL append.
			if err := t.AppendRecord(e.Values); err != nil {
				m.log.Warn().Uint64("seq", seq).Str("table", e.TableName).Err(err).
					Msg("replay: add_record rejected, reproducing original outcome")
			}
		default:
			return fmt.Errorf("replay: seq %d: %w", seq, colerr.ErrInvalidEntryType)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay wal: %w", err)
	}

	m.recordsSinceSnapshot = 0
	m.log.Info().Int("tables", len(m.tables)).Msg("recovery complete")
	return nil
}

// CreateTable registers a new table under an exclusive lock: WAL-append
// first, then allocate the in-memory Table.
func (m *Manager) CreateTable(name string, s schema.Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tables[name]; exists {
		return fmt.Errorf("manager: create table %q: %w", name, colerr.ErrTableAlreadyExists)
	}

	if _, err := m.wal.Append(wal.NewCreateTable(name, s)); err != nil {
		return fmt.Errorf("manager: create table %q: wal append: %w", name, err)
	}

	m.tables[name] = table.New(name, s)
	m.log.Info().Str("table", name).Msg("table created")
	return m.afterMutation()
}

// DropTable removes a table under an exclusive lock. Not WAL-logged, so
// recovery does not reproduce the drop: a table whose CreateTable record is
// still in the WAL, or which is in the snapshot, is back after a restart.
func (m *Manager) DropTable(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tables[name]; !exists {
		return fmt.Errorf("manager: drop table %q: %w", name, colerr.ErrTableNotFound)
	}
	delete(m.tables, name)
	m.log.Info().Str("table", name).Msg("table dropped")
	return nil
}

// AddRecord appends one row to an existing table under an exclusive lock.
// The WAL record is written before the in-memory append; a validation
// failure in the in-memory append (TypeMismatch, ColumnCountMismatch) is
// returned to the caller even though the WAL record already exists —
// replay reproduces the identical rejection.
func (m *Manager) AddRecord(name string, values []value.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[name]
	if !ok {
		return fmt.Errorf("manager: add record to %q: %w", name, colerr.ErrTableNotFound)
	}

	if _, err := m.wal.Append(wal.NewAddRecord(name, values)); err != nil {
		return fmt.Errorf("manager: add record to %q: wal append: %w", name, err)
	}

	if err := t.AppendRecord(values); err != nil {
		return err
	}

	if err := m.afterMutation(); err != nil {
		return err
	}
	return nil
}

// afterMutation runs under the exclusive lock already held by the caller;
// it bumps the write counter and, once the configured threshold is
// crossed, checkpoints: snapshot every table, then truncate the WAL.
func (m *Manager) afterMutation() error {
	m.recordsSinceSnapshot++

	if !m.snapshotDue() {
		return nil
	}
	return m.checkpointLocked()
}

func (m *Manager) snapshotDue() bool {
	if m.recordsSinceSnapshot >= m.cfg.SnapshotRecordThreshold {
		return true
	}
	if size, err := m.wal.Size(); err == nil && size >= m.cfg.SnapshotWALSizeThreshold {
		return true
	}
	return false
}

// checkpointLocked saves every table to the snapshot store and, only on
// success, truncates the WAL back to its header. A failed save leaves the
// WAL untouched so no durable data is lost.
func (m *Manager) checkpointLocked() error {
	tables := make([]*table.Table, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	if err := m.snap.Save(tables); err != nil {
		return fmt.Errorf("manager: checkpoint: save snapshot: %w", err)
	}
	if err := m.wal.Truncate(); err != nil {
		return fmt.Errorf("manager: checkpoint: truncate wal: %w", err)
	}
	m.recordsSinceSnapshot = 0
	m.log.Info().Int("tables", len(tables)).Msg("checkpoint complete")
	return nil
}

// Scan returns every row of table name, in insertion order, under the
// shared lock. Rows are freshly materialized and independent of later
// mutation.
func (m *Manager) Scan(name string) ([][]value.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("manager: scan %q: %w", name, colerr.ErrTableNotFound)
	}
	return t.Scan()
}

// Filter returns the rows of table name matching every predicate in preds,
// under the shared lock.
func (m *Manager) Filter(name string, preds []predicate.Predicate) ([][]value.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("manager: filter %q: %w", name, colerr.ErrTableNotFound)
	}

	idx, err := predicate.Evaluate(t, preds)
	if err != nil {
		return nil, err
	}

	rows := make([][]value.Value, len(idx))
	for i, r := range idx {
		row, err := t.GetRow(r)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

// Aggregate reduces the rows of table name matching preds via fn, under
// the shared lock.
func (m *Manager) Aggregate(name, column string, fn aggregate.Function, preds []predicate.Predicate) (value.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[name]
	if !ok {
		return value.Value{}, fmt.Errorf("manager: aggregate %q: %w", name, colerr.ErrTableNotFound)
	}
	return aggregate.Aggregate(t, column, fn, preds)
}

// TableCount returns the number of tables currently registered.
func (m *Manager) TableCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables)
}

// TableNames returns every registered table name, sorted for determinism.
func (m *Manager) TableNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.tables))
	for n := range m.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close closes the WAL file; every record was already synced by its
// Append. The snapshot store holds no open handles between calls, so there
// is nothing further to release there.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wal.Close()
}
