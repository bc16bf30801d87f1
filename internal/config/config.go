// Package config holds the Table Manager's configuration surface: WAL and
// snapshot paths, the snapshot trigger thresholds, and the host/port pair
// consumed only by the external RPC adapter (out of scope here).
package config

import (
	"os"
	"strconv"
)

const (
	DefaultWALPath                  = "data/coleman.wal"
	DefaultSnapshotDir              = "data/snapshots"
	DefaultSnapshotRecordThreshold  = 10_000
	DefaultSnapshotWALSizeThreshold = 10 * 1024 * 1024 // 10 MiB
	DefaultHost                     = "127.0.0.1"
	DefaultPort                     = 9512
)

// Config is the manager's configuration. Host and Port are consumed only
// by the external RPC adapter; the engine itself never dials or listens.
type Config struct {
	WALPath                  string
	SnapshotDir              string
	SnapshotRecordThreshold  int
	SnapshotWALSizeThreshold int64
	Host                     string
	Port                     int
}

// Default returns the manager's configuration defaults.
func Default() Config {
	return Config{
		WALPath:                  DefaultWALPath,
		SnapshotDir:              DefaultSnapshotDir,
		SnapshotRecordThreshold:  DefaultSnapshotRecordThreshold,
		SnapshotWALSizeThreshold: DefaultSnapshotWALSizeThreshold,
		Host:                     DefaultHost,
		Port:                     DefaultPort,
	}
}

// FromEnv starts from Default and overrides fields present in the
// environment: COLEMAN_WAL_PATH, COLEMAN_SNAPSHOT_DIR,
// COLEMAN_SNAPSHOT_RECORD_THRESHOLD, COLEMAN_SNAPSHOT_WAL_SIZE_THRESHOLD,
// COLEMAN_HOST, COLEMAN_PORT.
func FromEnv() Config {
	c := Default()

	if v := os.Getenv("COLEMAN_WAL_PATH"); v != "" {
		c.WALPath = v
	}
	if v := os.Getenv("COLEMAN_SNAPSHOT_DIR"); v != "" {
		c.SnapshotDir = v
	}
	if v := os.Getenv("COLEMAN_SNAPSHOT_RECORD_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SnapshotRecordThreshold = n
		}
	}
	if v := os.Getenv("COLEMAN_SNAPSHOT_WAL_SIZE_THRESHOLD"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.SnapshotWALSizeThreshold = n
		}
	}
	if v := os.Getenv("COLEMAN_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("COLEMAN_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	return c
}
