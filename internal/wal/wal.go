// Package wal implements the append-only write-ahead log: sequenced,
// CRC-checked records of CreateTable/AddRecord mutations, replayed on
// startup to reconstruct in-memory state on top of the latest snapshot.
package wal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/coleman-db/coleman/internal/codec"
	"github.com/coleman-db/coleman/internal/colerr"
	"github.com/coleman-db/coleman/internal/value"
	"github.com/rs/zerolog"
)

const (
	// magic is 12 bytes: "COLEMAN_WAL" (11 bytes) + a trailing NUL.
	magic                 = "COLEMAN_WAL\x00"
	currentVersion uint32 = 1
	headerSize            = len(magic) + 4
)

// WAL is an append-only log guarded by its own mutex, independent of
// whatever lock the caller (the Table Manager) holds above it.
type WAL struct {
	mu  sync.Mutex
	f   *os.File
	log zerolog.Logger

	seq uint64 // highest committed sequence number
}

// Open creates the WAL file (writing the header) if it does not exist, or
// verifies the header and scans the file to recover the highest committed
// sequence number if it does.
func Open(path string, log zerolog.Logger) (*WAL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("wal: create dir: %w", err)
	}

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open: %w", err)
	}

	w := &WAL{f: f, log: log}

	if isNew {
		if err := w.writeHeader(); err != nil {
			f.Close()
			return nil, fmt.Errorf("wal: write header: %w", err)
		}
	} else {
		if err := w.verifyHeader(); err != nil {
			f.Close()
			return nil, err
		}
		seq, err := w.scanHighestSeq()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("wal: scan: %w", err)
		}
		w.seq = seq
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, fmt.Errorf("wal: seek end: %w", err)
	}

	log.Debug().Str("path", path).Uint64("seq", w.seq).Msg("wal opened")
	return w, nil
}

func (w *WAL) writeHeader() error {
	if _, err := w.f.WriteAt([]byte(magic), 0); err != nil {
		return err
	}
	var verBuf [4]byte
	binary.LittleEndian.PutUint32(verBuf[:], currentVersion)
	if _, err := w.f.WriteAt(verBuf[:], int64(len(magic))); err != nil {
		return err
	}
	return w.f.Sync()
}

func (w *WAL) verifyHeader() error {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(io.NewSectionReader(w.f, 0, int64(headerSize)), buf); err != nil {
		return fmt.Errorf("wal: read header: %w", err)
	}
	if !bytes.Equal(buf[:len(magic)], []byte(magic)) {
		return colerr.ErrInvalidWALMagic
	}
	ver := binary.LittleEndian.Uint32(buf[len(magic):])
	if ver != currentVersion {
		return fmt.Errorf("wal: version %d: %w", ver, colerr.ErrInvalidWALVersion)
	}
	return nil
}

// scanHighestSeq walks every record once to find the highest sequence
// number committed so far.
func (w *WAL) scanHighestSeq() (uint64, error) {
	var highest uint64
	err := w.replayFrom(int64(headerSize), func(seq uint64, _ Entry) error {
		highest = seq
		return nil
	})
	if err != nil {
		return 0, err
	}
	return highest, nil
}

// Append serializes entry under the WAL's mutex, writes
// seq|len|data|crc32, and flushes to durable storage before returning. A
// successful Append means the record is durable; the caller must append
// before mutating in-memory state.
func (w *WAL) Append(e Entry) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := encodeEntry(e)
	if err != nil {
		return 0, fmt.Errorf("wal: encode: %w", err)
	}

	seq := w.seq + 1
	var rec bytes.Buffer
	if err := binary.Write(&rec, binary.LittleEndian, seq); err != nil {
		return 0, err
	}
	if err := binary.Write(&rec, binary.LittleEndian, uint32(len(data))); err != nil {
		return 0, err
	}
	rec.Write(data)
	crc := crc32.ChecksumIEEE(data)
	if err := binary.Write(&rec, binary.LittleEndian, crc); err != nil {
		return 0, err
	}

	if _, err := w.f.Write(rec.Bytes()); err != nil {
		return 0, fmt.Errorf("wal: write record: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return 0, fmt.Errorf("wal: sync: %w", err)
	}

	w.seq = seq
	w.log.Debug().Uint64("seq", seq).Int("bytes", len(data)).Msg("wal record appended")
	return seq, nil
}

// Replay reads every record from the start of the log's data (after the
// header) and invokes visit with each decoded entry in sequence order. A
// CRC mismatch fails with ErrWALCorruption; an unknown tag fails with
// ErrInvalidEntryType; a record cut short by end-of-file is treated as
// the clean tail of the log.
func (w *WAL) Replay(visit func(seq uint64, e Entry) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.replayFrom(int64(headerSize), visit)
}

func (w *WAL) replayFrom(offset int64, visit func(seq uint64, e Entry) error) error {
	if _, err := w.f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("wal: seek: %w", err)
	}
	r := io.Reader(w.f)

	for {
		var seq uint64
		if err := binary.Read(r, binary.LittleEndian, &seq); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("wal: read seq: %w", err)
		}

		var dataLen uint32
		if err := binary.Read(r, binary.LittleEndian, &dataLen); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("wal: read length: %w", err)
		}

		data := make([]byte, dataLen)
		if _, err := io.ReadFull(r, data); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("wal: read data: %w", err)
		}

		var crc uint32
		if err := binary.Read(r, binary.LittleEndian, &crc); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("wal: read crc: %w", err)
		}

		if crc32.ChecksumIEEE(data) != crc {
			return fmt.Errorf("wal: record seq %d: %w", seq, colerr.ErrWALCorruption)
		}

		entry, err := decodeEntry(data)
		if err != nil {
			return err
		}

		if err := visit(seq, entry); err != nil {
			return err
		}
	}
}

// Truncate resets the file length back to the header and resets the
// in-memory sequence counter to 0.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.f.Truncate(int64(headerSize)); err != nil {
		return fmt.Errorf("wal: truncate: %w", err)
	}
	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("wal: seek end: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("wal: sync: %w", err)
	}
	w.seq = 0
	w.log.Debug().Msg("wal truncated")
	return nil
}

// Size returns the current on-disk size of the WAL file, used by the Table
// Manager to evaluate the WAL-size snapshot trigger.
func (w *WAL) Size() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	info, err := w.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

func encodeEntry(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	switch e.Kind {
	case CreateTableEntry:
		buf.WriteByte(tagCreateTable)
		if err := writeNamed(&buf, e.TableName); err != nil {
			return nil, err
		}
		if err := codec.WriteSchema(&buf, e.Schema); err != nil {
			return nil, err
		}
	case AddRecordEntry:
		buf.WriteByte(tagAddRecord)
		if err := writeNamed(&buf, e.TableName); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(e.Values))); err != nil {
			return nil, err
		}
		for _, v := range e.Values {
			if err := codec.WriteValue(&buf, v); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("wal: unknown entry kind %d", e.Kind)
	}
	return buf.Bytes(), nil
}

func decodeEntry(data []byte) (Entry, error) {
	r := bytes.NewReader(data)
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return Entry{}, fmt.Errorf("wal: read tag: %w", err)
	}

	switch tag[0] {
	case tagCreateTable:
		name, err := readNamed(r)
		if err != nil {
			return Entry{}, err
		}
		s, err := codec.ReadSchema(r)
		if err != nil {
			return Entry{}, err
		}
		return NewCreateTable(name, s), nil

	case tagAddRecord:
		name, err := readNamed(r)
		if err != nil {
			return Entry{}, err
		}
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return Entry{}, err
		}
		values := make([]value.Value, count)
		for i := range values {
			v, err := codec.ReadValue(r)
			if err != nil {
				return Entry{}, err
			}
			values[i] = v
		}
		return NewAddRecord(name, values), nil

	default:
		return Entry{}, fmt.Errorf("wal: tag %d: %w", tag[0], colerr.ErrInvalidEntryType)
	}
}

func writeNamed(w io.Writer, name string) error {
	b := []byte(name)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readNamed(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
