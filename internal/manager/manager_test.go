package manager

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/coleman-db/coleman/internal/aggregate"
	"github.com/coleman-db/coleman/internal/colerr"
	"github.com/coleman-db/coleman/internal/config"
	"github.com/coleman-db/coleman/internal/predicate"
	"github.com/coleman-db/coleman/internal/schema"
	"github.com/coleman-db/coleman/internal/value"
	"golang.org/x/sync/errgroup"
)

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	c := config.Default()
	c.WALPath = filepath.Join(dir, "coleman.wal")
	c.SnapshotDir = filepath.Join(dir, "snapshots")
	return c
}

func usersSchema() schema.Schema {
	return schema.New([]schema.ColumnDef{
		{Name: "id", Type: value.Int64},
		{Name: "name", Type: value.String},
		{Name: "age", Type: value.Int64},
		{Name: "score", Type: value.Float64},
	})
}

func mustOpen(t *testing.T, cfg config.Config) *Manager {
	mgr, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestManager_CreateAndScan(t *testing.T) {
	cfg := testConfig(t)
	mgr := mustOpen(t, cfg)

	if err := mgr.CreateTable("users", usersSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	rows := [][]value.Value{
		{value.Int64Value(1), value.StringValue("Alice"), value.Int64Value(30), value.Float64Value(95.5)},
		{value.Int64Value(2), value.StringValue("Bob"), value.Int64Value(25), value.Float64Value(87.3)},
		{value.Int64Value(3), value.StringValue("Charlie"), value.Int64Value(35), value.Float64Value(92.1)},
	}
	for _, r := range rows {
		if err := mgr.AddRecord("users", r); err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}

	got, err := mgr.Scan("users")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Scan() returned %d rows, want 3", len(got))
	}
	for i, row := range got {
		for c := range row {
			if !row[c].Equal(rows[i][c]) {
				t.Fatalf("row %d col %d = %+v, want %+v", i, c, row[c], rows[i][c])
			}
		}
	}
}

func TestManager_CreateTableAlreadyExists(t *testing.T) {
	mgr := mustOpen(t, testConfig(t))
	if err := mgr.CreateTable("users", usersSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := mgr.CreateTable("users", usersSchema()); !errors.Is(err, colerr.ErrTableAlreadyExists) {
		t.Fatalf("err = %v, want ErrTableAlreadyExists", err)
	}
}

func TestManager_AddRecordTableNotFound(t *testing.T) {
	mgr := mustOpen(t, testConfig(t))
	err := mgr.AddRecord("ghost", []value.Value{value.Int64Value(1)})
	if !errors.Is(err, colerr.ErrTableNotFound) {
		t.Fatalf("err = %v, want ErrTableNotFound", err)
	}
}

func TestManager_FilterAndAggregate(t *testing.T) {
	mgr := mustOpen(t, testConfig(t))
	if err := mgr.CreateTable("users", usersSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	rows := [][]value.Value{
		{value.Int64Value(1), value.StringValue("Alice"), value.Int64Value(30), value.Float64Value(95.5)},
		{value.Int64Value(2), value.StringValue("Bob"), value.Int64Value(25), value.Float64Value(87.3)},
		{value.Int64Value(3), value.StringValue("Charlie"), value.Int64Value(35), value.Float64Value(92.1)},
	}
	for _, r := range rows {
		if err := mgr.AddRecord("users", r); err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}

	filtered, err := mgr.Filter("users", []predicate.Predicate{
		predicate.New("age", predicate.Gt, value.Int64Value(25)),
	})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("Filter() returned %d rows, want 2", len(filtered))
	}

	count, err := mgr.Aggregate("users", "score", aggregate.Count, []predicate.Predicate{
		predicate.New("age", predicate.Gt, value.Int64Value(25)),
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if count.I64 != 2 {
		t.Fatalf("count = %d, want 2", count.I64)
	}
}

func TestManager_FilterWithEmptyPredicatesEqualsScan(t *testing.T) {
	mgr := mustOpen(t, testConfig(t))
	if err := mgr.CreateTable("users", usersSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := mgr.AddRecord("users", []value.Value{
		value.Int64Value(1), value.StringValue("Alice"), value.Int64Value(30), value.Float64Value(95.5),
	}); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	scanned, err := mgr.Scan("users")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	filtered, err := mgr.Filter("users", nil)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(scanned) != len(filtered) {
		t.Fatalf("len mismatch: scan=%d filter=%d", len(scanned), len(filtered))
	}
	for i := range scanned {
		for c := range scanned[i] {
			if !scanned[i][c].Equal(filtered[i][c]) {
				t.Fatalf("row %d col %d differs: scan=%+v filter=%+v", i, c, scanned[i][c], filtered[i][c])
			}
		}
	}
}

func TestManager_CrashRecoveryFromWALOnly(t *testing.T) {
	cfg := testConfig(t)

	mgr := mustOpen(t, cfg)
	if err := mgr.CreateTable("users", usersSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	rows := [][]value.Value{
		{value.Int64Value(1), value.StringValue("Alice"), value.Int64Value(30), value.Float64Value(95.5)},
		{value.Int64Value(2), value.StringValue("Bob"), value.Int64Value(25), value.Float64Value(87.3)},
	}
	for _, r := range rows {
		if err := mgr.AddRecord("users", r); err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}
	// Simulate a crash: no clean shutdown, no snapshot taken.
	if err := mgr.wal.Close(); err != nil {
		t.Fatalf("wal.Close: %v", err)
	}

	reopened, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Scan("users")
	if err != nil {
		t.Fatalf("Scan after recovery: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("recovered %d rows, want 2", len(got))
	}
	for i, row := range got {
		for c := range row {
			if !row[c].Equal(rows[i][c]) {
				t.Fatalf("recovered row %d col %d = %+v, want %+v", i, c, row[c], rows[i][c])
			}
		}
	}
}

func TestManager_SnapshotThresholdTruncatesWAL(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnapshotRecordThreshold = 3

	mgr := mustOpen(t, cfg)
	if err := mgr.CreateTable("t", schema.New([]schema.ColumnDef{{Name: "x", Type: value.Int64}})); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	// CreateTable itself counts toward the threshold; two more records
	// crosses it.
	for i := 0; i < 2; i++ {
		if err := mgr.AddRecord("t", []value.Value{value.Int64Value(int64(i))}); err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}

	if !mgr.snap.Exists() {
		t.Fatalf("snapshot does not exist after crossing threshold")
	}
	size, err := mgr.wal.Size()
	if err != nil {
		t.Fatalf("wal.Size: %v", err)
	}
	// "COLEMAN_WAL\x00" (12 bytes) + 4-byte version == 16-byte header, and a
	// truncated WAL holds nothing else.
	if size != 16 {
		t.Fatalf("wal size after checkpoint = %d, want 16 (header only)", size)
	}

	reopened, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Scan("t")
	if err != nil {
		t.Fatalf("Scan after reopen: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("reopened rows = %d, want 2", len(got))
	}
}

func TestManager_RecoverySnapshotPlusWALTail(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnapshotRecordThreshold = 2

	mgr := mustOpen(t, cfg)
	if err := mgr.CreateTable("t", schema.New([]schema.ColumnDef{{Name: "x", Type: value.Int64}})); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	// One more record crosses the threshold (create + 1 == 2) and triggers
	// a checkpoint, landing row 0 in the snapshot.
	if err := mgr.AddRecord("t", []value.Value{value.Int64Value(0)}); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	if !mgr.snap.Exists() {
		t.Fatalf("expected snapshot after crossing threshold")
	}
	// This record lands only in the (post-checkpoint) WAL tail.
	if err := mgr.AddRecord("t", []value.Value{value.Int64Value(1)}); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	if err := mgr.wal.Close(); err != nil {
		t.Fatalf("wal.Close: %v", err)
	}

	reopened, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Scan("t")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("recovered %d rows, want 2 (1 from snapshot, 1 from WAL tail)", len(got))
	}
	if got[0][0].I64 != 0 || got[1][0].I64 != 1 {
		t.Fatalf("recovered rows = %v, want [0 1] in order", got)
	}
}

func TestManager_ConcurrentReaders(t *testing.T) {
	mgr := mustOpen(t, testConfig(t))
	if err := mgr.CreateTable("users", usersSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	for i := 0; i < 50; i++ {
		if err := mgr.AddRecord("users", []value.Value{
			value.Int64Value(int64(i)), value.StringValue("n"), value.Int64Value(int64(i)), value.Float64Value(1),
		}); err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			rows, err := mgr.Scan("users")
			if err != nil {
				return err
			}
			if len(rows) != 50 {
				return errors.New("unexpected row count during concurrent scan")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent scans: %v", err)
	}
}

func TestManager_DropTable(t *testing.T) {
	mgr := mustOpen(t, testConfig(t))
	if err := mgr.CreateTable("users", usersSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := mgr.DropTable("users"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if _, err := mgr.Scan("users"); !errors.Is(err, colerr.ErrTableNotFound) {
		t.Fatalf("Scan after drop err = %v, want ErrTableNotFound", err)
	}
	if err := mgr.DropTable("users"); !errors.Is(err, colerr.ErrTableNotFound) {
		t.Fatalf("DropTable twice err = %v, want ErrTableNotFound", err)
	}
}

func TestManager_TableNamesSorted(t *testing.T) {
	mgr := mustOpen(t, testConfig(t))
	for _, n := range []string{"zebra", "apple", "mango"} {
		if err := mgr.CreateTable(n, schema.New([]schema.ColumnDef{{Name: "x", Type: value.Int64}})); err != nil {
			t.Fatalf("CreateTable(%s): %v", n, err)
		}
	}
	names := mgr.TableNames()
	want := []string{"apple", "mango", "zebra"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("TableNames() = %v, want %v", names, want)
		}
	}
	if mgr.TableCount() != 3 {
		t.Fatalf("TableCount() = %d, want 3", mgr.TableCount())
	}
}
