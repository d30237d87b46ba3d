package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/hupe1980/activo/field"
	"github.com/hupe1980/activo/model"
)

const (
	recordsFileName  = "records.act"
	metadataFileName = "metadata.act"
	fieldsDirName    = "fields"

	recordsMagic = uint32(0x41435452) // "ACTR"
	recordSize   = 8
	headerSize   = 8
)

// FileFactory is the local-filesystem backend. The record store keeps
// the slot→uid array as a fixed-width file written positionally, so a
// flush only touches the slots it carries.
type FileFactory struct {
	dir string
	cfg Config
}

// NewFileFactory creates a backend rooted at dir.
func NewFileFactory(dir string, optFns ...func(*Config)) (*FileFactory, error) {
	cfg := DefaultConfig
	for _, fn := range optFns {
		fn(&cfg)
	}
	if err := os.MkdirAll(filepath.Join(dir, fieldsDirName), 0750); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &FileFactory{dir: dir, cfg: cfg}, nil
}

func (f *FileFactory) Config() Config { return f.cfg }

func (f *FileFactory) RecordStore() (RecordStore, error) {
	return openFileRecordStore(filepath.Join(f.dir, recordsFileName))
}

func (f *FileFactory) Metadata() (MetadataStore, error) {
	return &fileMetadata{path: filepath.Join(f.dir, metadataFileName)}, nil
}

func (f *FileFactory) FieldPersister() field.Persister {
	return &filePersister{dir: filepath.Join(f.dir, fieldsDirName)}
}

var _ Factory = (*FileFactory)(nil)

// fileRecordStore writes each record at offset headerSize + slot*8.
type fileRecordStore struct {
	mu   sync.Mutex
	file *os.File
}

func openFileRecordStore(path string) (*fileRecordStore, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600) //nolint:gosec // G304: Path is configurable
	if err != nil {
		return nil, fmt.Errorf("storage: open records: %w", err)
	}
	st, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("storage: stat records: %w", err)
	}
	if st.Size() == 0 {
		var header [headerSize]byte
		binary.LittleEndian.PutUint32(header[0:], recordsMagic)
		binary.LittleEndian.PutUint32(header[4:], 1)
		if _, err := file.WriteAt(header[:], 0); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("storage: write records header: %w", err)
		}
	} else {
		var header [headerSize]byte
		if _, err := file.ReadAt(header[:], 0); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("storage: read records header: %w", err)
		}
		if binary.LittleEndian.Uint32(header[0:]) != recordsMagic {
			_ = file.Close()
			return nil, fmt.Errorf("storage: %s is not a records file", path)
		}
	}
	return &fileRecordStore{file: file}, nil
}

func (s *fileRecordStore) Flush(records []model.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf [recordSize]byte
	for _, r := range records {
		binary.LittleEndian.PutUint64(buf[:], uint64(r.UID))
		off := int64(headerSize) + int64(r.Slot)*recordSize
		if _, err := s.file.WriteAt(buf[:], off); err != nil {
			return fmt.Errorf("storage: write record slot=%d: %w", r.Slot, err)
		}
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("storage: sync records: %w", err)
	}
	return nil
}

func (s *fileRecordStore) Restore() ([]model.UID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("storage: stat records: %w", err)
	}
	n := (st.Size() - headerSize) / recordSize
	if n <= 0 {
		return nil, ErrNotFound
	}
	uids := make([]model.UID, n)
	buf := make([]byte, n*recordSize)
	if _, err := s.file.ReadAt(buf, headerSize); err != nil && err != io.EOF {
		return nil, fmt.Errorf("storage: read records: %w", err)
	}
	for i := range uids {
		uids[i] = model.UID(binary.LittleEndian.Uint64(buf[i*recordSize:]))
	}
	return uids, nil
}

func (s *fileRecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// fileMetadata persists {version,count} as checksummed JSON, replaced
// atomically via rename.
type fileMetadata struct {
	mu      sync.Mutex
	path    string
	version string
	count   int
}

type metadataPayload struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

func (m *fileMetadata) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: read metadata: %w", err)
	}
	if len(data) < 8 {
		return fmt.Errorf("storage: metadata truncated")
	}
	sum := binary.LittleEndian.Uint64(data[:8])
	payload := data[8:]
	if xxhash.Sum64(payload) != sum {
		return fmt.Errorf("storage: metadata checksum mismatch")
	}
	var p metadataPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("storage: decode metadata: %w", err)
	}
	m.version = p.Version
	m.count = p.Count
	return nil
}

func (m *fileMetadata) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *fileMetadata) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *fileMetadata) Update(version string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, err := json.Marshal(metadataPayload{Version: version, Count: count})
	if err != nil {
		return fmt.Errorf("storage: encode metadata: %w", err)
	}
	data := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(data[:8], xxhash.Sum64(payload))
	copy(data[8:], payload)

	if err := writeFileAtomic(m.path, data); err != nil {
		return err
	}
	m.version = version
	m.count = count
	return nil
}

var _ MetadataStore = (*fileMetadata)(nil)

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600) //nolint:gosec // G304: Path is configurable
	if err != nil {
		return fmt.Errorf("storage: open temp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("storage: sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return syncDir(filepath.Dir(path))
}

func syncDir(dir string) error {
	f, err := os.OpenFile(dir, os.O_RDONLY, 0) //nolint:gosec // G304: Path is configurable
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// fieldFileName maps a field name to a file name. Window counters use
// "name:window" addressing, so ':' is escaped.
func fieldFileName(name string) string {
	return strings.ReplaceAll(name, ":", "__") + ".col"
}
