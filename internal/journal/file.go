package journal

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"main/internal/account"
	"main/internal/codec"
	"main/pkg/exception"
)

const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 28
	recordChecksumSize        = 4
	fileSuffix                = ".log"
)

var (
	recordMagic = [4]byte{'A', 'J', 'N', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

// FileConfig controls the file-backed journal.
type FileConfig struct {
	Dir        string
	FilePrefix string
}

func (c FileConfig) withDefaults() FileConfig {
	if c.FilePrefix == "" {
		c.FilePrefix = "journal"
	}
	return c
}

// Validate checks if the configuration is usable.
func (c FileConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("invalid journal config: Dir is empty")
	}
	if strings.ContainsAny(c.FilePrefix, "/\\") {
		return fmt.Errorf("invalid journal config: FilePrefix contains a path separator")
	}
	return nil
}

// FileLog keeps one append-only segment file per account identifier. Every
// append is flushed and fsynced before it returns, so a received reply is
// proof of durability.
type FileLog struct {
	cfg FileConfig

	mu     sync.Mutex
	files  map[string]*accountFile
	closed bool
}

type accountFile struct {
	mu   sync.Mutex
	file *os.File
	seq  uint64
}

// NewFileLog creates the journal directory and returns a file-backed log.
func NewFileLog(cfg FileConfig) (*FileLog, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &FileLog{
		cfg:   cfg,
		files: make(map[string]*accountFile),
	}, nil
}

// Append persists one event and fsyncs before returning.
func (l *FileLog) Append(ctx context.Context, accountID string, evt account.Event) error {
	if accountID == "" {
		return exception.ErrJournalEmptyAccount
	}
	if evt == nil {
		return exception.ErrJournalNilEvent
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	af, err := l.accountFile(accountID)
	if err != nil {
		return err
	}

	payload, err := codec.EncodeEvent(nil, evt)
	if err != nil {
		return err
	}

	af.mu.Lock()
	defer af.mu.Unlock()

	record := make([]byte, 0, recordHeaderSize+len(payload)+recordChecksumSize)
	record = appendRecordHeader(record, af.seq+1, len(payload))
	record = append(record, payload...)

	var checksumBuf [recordChecksumSize]byte
	binary.LittleEndian.PutUint32(checksumBuf[:], checksum(record))
	record = append(record, checksumBuf[:]...)

	if _, err := af.file.Write(record); err != nil {
		return err
	}
	if err := af.file.Sync(); err != nil {
		return err
	}
	af.seq++
	return nil
}

// ReadAll decodes every record for the identifier in append order.
func (l *FileLog) ReadAll(ctx context.Context, accountID string) ([]account.Event, error) {
	if accountID == "" {
		return nil, exception.ErrJournalEmptyAccount
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := l.path(accountID)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var (
		events  []account.Event
		lastSeq uint64
	)
	err = scanRecords(file, func(seq uint64, payload []byte) error {
		if seq != lastSeq+1 {
			return exception.ErrJournalSequenceGap
		}
		lastSeq = seq
		evt, err := codec.DecodeEvent(payload)
		if err != nil {
			return err
		}
		events = append(events, evt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Identifiers lists the accounts that have a journal file in the directory.
func (l *FileLog) Identifiers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.cfg.Dir)
	if err != nil {
		return nil, err
	}

	prefix := l.cfg.FilePrefix + "-"
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		escaped := strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileSuffix)
		id, err := url.PathUnescape(escaped)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close syncs and closes every open segment file.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var firstErr error
	for _, af := range l.files {
		af.mu.Lock()
		if err := af.file.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := af.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		af.mu.Unlock()
	}
	l.files = nil
	return firstErr
}

func (l *FileLog) path(accountID string) string {
	name := l.cfg.FilePrefix + "-" + url.PathEscape(accountID) + fileSuffix
	return filepath.Join(l.cfg.Dir, name)
}

func (l *FileLog) accountFile(accountID string) (*accountFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, exception.ErrJournalClosed
	}
	if af, ok := l.files[accountID]; ok {
		return af, nil
	}

	path := l.path(accountID)
	seq, err := lastSequence(path)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	af := &accountFile{file: file, seq: seq}
	l.files[accountID] = af
	return af, nil
}

func lastSequence(path string) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	defer file.Close()

	var last uint64
	err = scanRecords(file, func(seq uint64, payload []byte) error {
		last = seq
		return nil
	})
	if err != nil {
		return 0, err
	}
	return last, nil
}

func scanRecords(r io.Reader, fn func(seq uint64, payload []byte) error) error {
	headerBuf := make([]byte, recordHeaderSize)
	var payload []byte

	for {
		n, err := io.ReadFull(r, headerBuf)
		if err != nil {
			if err == io.EOF && n == 0 {
				return nil
			}
			if err == io.ErrUnexpectedEOF {
				return exception.ErrJournalCorruptRecord
			}
			return err
		}

		seq, payloadLen, err := decodeRecordHeader(headerBuf)
		if err != nil {
			return err
		}

		if cap(payload) < int(payloadLen) {
			payload = make([]byte, payloadLen)
		}
		payload = payload[:payloadLen]
		if _, err := io.ReadFull(r, payload); err != nil {
			return exception.ErrJournalCorruptRecord
		}

		var checksumBuf [recordChecksumSize]byte
		if _, err := io.ReadFull(r, checksumBuf[:]); err != nil {
			return exception.ErrJournalCorruptRecord
		}
		expected := binary.LittleEndian.Uint32(checksumBuf[:])
		crc := crc32.Update(0, crcTable, headerBuf)
		crc = crc32.Update(crc, crcTable, payload)
		if crc != expected {
			return exception.ErrJournalChecksum
		}

		if err := fn(seq, payload); err != nil {
			return err
		}
	}
}

func checksum(record []byte) uint32 {
	return crc32.Checksum(record, crcTable)
}

func appendRecordHeader(dst []byte, seq uint64, payloadLen int) []byte {
	var buf [recordHeaderSize]byte
	copy(buf[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(buf[4:6], recordVersion)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(recordHeaderSize))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(payloadLen))
	binary.LittleEndian.PutUint64(buf[12:20], seq)
	binary.LittleEndian.PutUint64(buf[20:28], uint64(time.Now().UTC().UnixNano()))
	return append(dst, buf[:]...)
}

func decodeRecordHeader(src []byte) (uint64, uint32, error) {
	if len(src) < recordHeaderSize {
		return 0, 0, exception.ErrJournalCorruptRecord
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return 0, 0, exception.ErrJournalCorruptRecord
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return 0, 0, exception.ErrJournalCorruptRecord
	}
	if size := binary.LittleEndian.Uint16(src[6:8]); size != recordHeaderSize {
		return 0, 0, exception.ErrJournalCorruptRecord
	}
	payloadLen := binary.LittleEndian.Uint32(src[8:12])
	seq := binary.LittleEndian.Uint64(src[12:20])
	return seq, payloadLen, nil
}
