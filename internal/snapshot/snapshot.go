// Package snapshot implements the full-database checkpoint file: every
// table's schema and rows, written atomically via temp-file-then-rename.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/coleman-db/coleman/internal/codec"
	"github.com/coleman-db/coleman/internal/colerr"
	"github.com/coleman-db/coleman/internal/table"
	"github.com/coleman-db/coleman/internal/value"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// magic is 12 bytes: "COLEMAN_SNAP".
	magic          = "COLEMAN_SNAP"
	currentVersion uint32 = 1

	tmpName = "snapshot.tmp"
	datName = "snapshot.dat"
)

// Store owns the snapshot directory.
type Store struct {
	dir string
	log zerolog.Logger
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

func (s *Store) tmpPath() string { return filepath.Join(s.dir, tmpName) }
func (s *Store) datPath() string { return filepath.Join(s.dir, datName) }

// Exists reports whether a committed snapshot file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.datPath())
	return err == nil
}

// Save writes tables (in the given order) to a temp file in the snapshot
// directory, flushes it, then atomically renames it over snapshot.dat,
// replacing any prior snapshot in one step. Per-table row buffers are
// encoded concurrently before the single ordered write.
func (s *Store) Save(tables []*table.Table) error {
	bufs := make([][]byte, len(tables))

	g := new(errgroup.Group)
	for i, t := range tables {
		i, t := i, t
		g.Go(func() error {
			buf, err := encodeTable(t)
			if err != nil {
				return fmt.Errorf("snapshot: encode table %q: %w", t.Name, err)
			}
			bufs[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tmp := s.tmpPath()
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := writeHeader(w); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(tables))); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: write table count: %w", err)
	}
	for _, b := range bufs {
		if _, err := w.Write(b); err != nil {
			f.Close()
			return fmt.Errorf("snapshot: write table: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}

	if err := os.Rename(tmp, s.datPath()); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}

	s.log.Info().Int("tables", len(tables)).Msg("snapshot saved")
	return nil
}

// Load reads snapshot.dat, if present, and delivers each fully-materialized
// table to visit in file order. If no snapshot exists, Load returns nil
// without calling visit.
func (s *Store) Load(visit func(*table.Table) error) error {
	f, err := os.Open(s.datPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("snapshot: open: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if err := verifyHeader(r); err != nil {
		return err
	}

	var tableCount uint32
	if err := binary.Read(r, binary.LittleEndian, &tableCount); err != nil {
		return fmt.Errorf("snapshot: read table count: %w", err)
	}

	for i := uint32(0); i < tableCount; i++ {
		t, err := decodeTable(r)
		if err != nil {
			return fmt.Errorf("snapshot: decode table %d: %w", i, err)
		}
		if err := visit(t); err != nil {
			return err
		}
	}

	s.log.Info().Uint32("tables", tableCount).Msg("snapshot loaded")
	return nil
}

func writeHeader(w io.Writer) error {
	if _, err := w.Write([]byte(magic)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, currentVersion)
}

func verifyHeader(r io.Reader) error {
	buf := make([]byte, len(magic))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("snapshot: read magic: %w", err)
	}
	if !bytes.Equal(buf, []byte(magic)) {
		return colerr.ErrInvalidSnapshotMagic
	}
	var ver uint32
	if err := binary.Read(r, binary.LittleEndian, &ver); err != nil {
		return fmt.Errorf("snapshot: read version: %w", err)
	}
	if ver != currentVersion {
		return fmt.Errorf("snapshot: version %d: %w", ver, colerr.ErrInvalidSnapshotVersion)
	}
	return nil
}

// encodeTable writes table_name | schema | row_count | rows.
func encodeTable(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer

	nameBytes := []byte(t.Name)
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(nameBytes))); err != nil {
		return nil, err
	}
	buf.Write(nameBytes)

	if err := codec.WriteSchema(&buf, t.Schema); err != nil {
		return nil, err
	}

	rows, err := t.Scan()
	if err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint64(len(rows))); err != nil {
		return nil, err
	}
	for _, row := range rows {
		for _, v := range row {
			if err := codec.WriteValue(&buf, v); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func decodeTable(r io.Reader) (*table.Table, error) {
	var nameLen uint32
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, err
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return nil, err
	}

	s, err := codec.ReadSchema(r)
	if err != nil {
		return nil, err
	}

	var rowCount uint64
	if err := binary.Read(r, binary.LittleEndian, &rowCount); err != nil {
		return nil, err
	}

	t := table.New(string(nameBytes), s)
	colCount := s.ColumnCount()
	for i := uint64(0); i < rowCount; i++ {
		values := make([]value.Value, colCount)
		for c := 0; c < colCount; c++ {
			v, err := codec.ReadValue(r)
			if err != nil {
				return nil, err
			}
			values[c] = v
		}
		if err := t.AppendRecord(values); err != nil {
			return nil, err
		}
	}
	return t, nil
}
