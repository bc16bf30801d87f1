// Command colemand is a scripted demo binary: it opens the engine, creates
// a table, inserts a few rows, and runs a scan and an aggregate against it.
// It is not an RPC server; it exists only to exercise the manager end to
// end from a command line.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/coleman-db/coleman/internal/aggregate"
	"github.com/coleman-db/coleman/internal/config"
	"github.com/coleman-db/coleman/internal/manager"
	"github.com/coleman-db/coleman/internal/predicate"
	"github.com/coleman-db/coleman/internal/schema"
	"github.com/coleman-db/coleman/internal/value"
	"github.com/coleman-db/coleman/log"
)

func main() {
	var walPath, snapDir string
	flag.StringVar(&walPath, "wal", config.DefaultWALPath, "WAL file path")
	flag.StringVar(&snapDir, "snapshot-dir", config.DefaultSnapshotDir, "snapshot directory")
	flag.Parse()

	lg := log.New("colemand")

	cfg := config.FromEnv()
	cfg.WALPath = walPath
	cfg.SnapshotDir = snapDir

	mgr, err := manager.Open(cfg)
	if err != nil {
		lg.Error().Err(err).Msg("open manager")
		os.Exit(1)
	}
	defer mgr.Close()

	if mgr.TableCount() == 0 {
		if err := demo(mgr); err != nil {
			lg.Error().Err(err).Msg("demo sequence failed")
			os.Exit(1)
		}
	}

	rows, err := mgr.Scan("users")
	if err != nil {
		lg.Error().Err(err).Msg("scan")
		os.Exit(1)
	}
	fmt.Println("id | name | age | score")
	for _, row := range rows {
		fmt.Printf("%d | %s | %d | %.1f\n", row[0].I64, row[1].Str, row[2].I64, row[3].F64)
	}

	count, err := mgr.Aggregate("users", "score", aggregate.Count, []predicate.Predicate{
		predicate.New("age", predicate.Gt, value.Int64Value(25)),
	})
	if err != nil {
		lg.Error().Err(err).Msg("aggregate")
		os.Exit(1)
	}
	fmt.Printf("users with age > 25: %d\n", count.I64)
}

// demo creates users(id, name, age, score) and inserts three rows.
func demo(mgr *manager.Manager) error {
	s := schema.New([]schema.ColumnDef{
		{Name: "id", Type: value.Int64},
		{Name: "name", Type: value.String},
		{Name: "age", Type: value.Int64},
		{Name: "score", Type: value.Float64},
	})
	if err := mgr.CreateTable("users", s); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	rows := [][]value.Value{
		{value.Int64Value(1), value.StringValue("Alice"), value.Int64Value(30), value.Float64Value(95.5)},
		{value.Int64Value(2), value.StringValue("Bob"), value.Int64Value(25), value.Float64Value(87.3)},
		{value.Int64Value(3), value.StringValue("Charlie"), value.Int64Value(35), value.Float64Value(92.1)},
	}
	for _, r := range rows {
		if err := mgr.AddRecord("users", r); err != nil {
			return fmt.Errorf("add record: %w", err)
		}
	}
	return nil
}
