// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/devblok/korugs/utility/kar"
	"github.com/pelletier/go-toml/v2"
	"github.com/pierrec/lz4"
	"golang.org/x/exp/mmap"
)

// MemoryStore keeps bytecode in memory. It is safe for concurrent use.
type MemoryStore struct {
	mutex  sync.RWMutex
	code   map[string][]byte
	hashes map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		code:   make(map[string][]byte),
		hashes: make(map[string][]byte),
	}
}

// Get implements interface
func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	code, ok := m.code[key]
	if !ok {
		return nil, ErrNotCached
	}
	return code, nil
}

// Hash implements interface
func (m *MemoryStore) Hash(key string) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	hash, ok := m.hashes[key]
	if !ok {
		return nil, ErrNotCached
	}
	return hash, nil
}

// Put implements interface
func (m *MemoryStore) Put(key string, hash, code []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.code[key] = append([]byte(nil), code...)
	m.hashes[key] = append([]byte(nil), hash...)
	return nil
}

// LedgerName is the file holding source hashes, in a cache
// directory as well as in a bundle.
const LedgerName = "hashes.toml"

// Ledger maps shader keys to hex encoded source hashes.
type Ledger struct {
	Hashes map[string]string `toml:"hashes"`
}

// DecodeLedger reads a TOML ledger.
func DecodeLedger(data []byte) (Ledger, error) {
	ledger := Ledger{Hashes: make(map[string]string)}
	if err := toml.Unmarshal(data, &ledger); err != nil {
		return ledger, err
	}
	if ledger.Hashes == nil {
		ledger.Hashes = make(map[string]string)
	}
	return ledger, nil
}

// Encode writes the ledger as TOML.
func (l Ledger) Encode() ([]byte, error) {
	return toml.Marshal(l)
}

// Lookup returns the decoded hash of key.
func (l Ledger) Lookup(key string) ([]byte, error) {
	h, ok := l.Hashes[key]
	if !ok {
		return nil, ErrNotCached
	}
	return hex.DecodeString(h)
}

// DirStore keeps lz4 compressed bytecode files and a TOML hash
// ledger in a directory.
type DirStore struct {
	dir string

	mutex  sync.Mutex
	ledger Ledger
}

// OpenDirStore opens, creating if needed, a cache directory.
func OpenDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	store := &DirStore{
		dir:    dir,
		ledger: Ledger{Hashes: make(map[string]string)},
	}
	data, err := os.ReadFile(filepath.Join(dir, LedgerName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if store.ledger, err = DecodeLedger(data); err != nil {
			return nil, fmt.Errorf("%s: %w", LedgerName, err)
		}
	}
	return store, nil
}

// CodeName is the file name bytecode for key is stored under.
func CodeName(key string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key) + ".spv"
}

func (d *DirStore) path(key string) string {
	return filepath.Join(d.dir, CodeName(key)+".lz4")
}

// Get implements interface
func (d *DirStore) Get(key string) ([]byte, error) {
	f, err := os.Open(d.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotCached
	} else if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(lz4.NewReader(f))
}

// Hash implements interface
func (d *DirStore) Hash(key string) ([]byte, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.ledger.Lookup(key)
}

// Put implements interface
func (d *DirStore) Put(key string, hash, code []byte) error {
	var compressed bytes.Buffer
	w := lz4.NewWriter(&compressed)
	if _, err := w.Write(code); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := os.WriteFile(d.path(key), compressed.Bytes(), 0644); err != nil {
		return err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.ledger.Hashes[key] = hex.EncodeToString(hash)
	data, err := d.ledger.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.dir, LedgerName), data, 0644)
}

// Bundle is a read only store over a kar archive built by the kar tool.
type Bundle struct {
	archive *kar.Archive
	ledger  Ledger
	closer  io.Closer
}

// OpenBundle memory maps a kar bundle.
func OpenBundle(path string) (*Bundle, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	b, err := NewBundle(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b.closer = r
	return b, nil
}

// NewBundle reads a bundle from r.
func NewBundle(r io.ReaderAt) (*Bundle, error) {
	archive, err := kar.Open(r)
	if err != nil {
		return nil, err
	}
	data, err := archive.ReadAll(LedgerName)
	if err != nil {
		return nil, err
	}
	ledger, err := DecodeLedger(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LedgerName, err)
	}
	return &Bundle{
		archive: archive,
		ledger:  ledger,
	}, nil
}

// Get implements interface
func (b *Bundle) Get(key string) ([]byte, error) {
	code, err := b.archive.ReadAll(CodeName(key))
	if errors.Is(err, kar.ErrNotFound) {
		return nil, ErrNotCached
	}
	return code, err
}

// Hash implements interface
func (b *Bundle) Hash(key string) ([]byte, error) {
	return b.ledger.Lookup(key)
}

// Put implements interface
func (b *Bundle) Put(string, []byte, []byte) error {
	return ErrReadOnly
}

// Keys lists the shaders held by the bundle.
func (b *Bundle) Keys() []string {
	keys := make([]string, 0, len(b.ledger.Hashes))
	for k := range b.ledger.Hashes {
		keys = append(keys, k)
	}
	return keys
}

// Close unmaps the bundle
func (b *Bundle) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// WriteBundle writes the bytecode and hashes of keys held by src as a
// kar bundle.
func WriteBundle(w io.Writer, header kar.Header, keys []string, src Store) (int64, error) {
	builder, err := kar.NewBuilder(header)
	if err != nil {
		return 0, err
	}
	defer builder.Close()

	ledger := Ledger{Hashes: make(map[string]string, len(keys))}
	for _, key := range keys {
		hash, err := src.Hash(key)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		code, err := src.Get(key)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		if err := builder.Add(CodeName(key), bytes.NewReader(code)); err != nil {
			return 0, err
		}
		ledger.Hashes[key] = hex.EncodeToString(hash)
	}
	data, err := ledger.Encode()
	if err != nil {
		return 0, err
	}
	if err := builder.Add(LedgerName, bytes.NewReader(data)); err != nil {
		return 0, err
	}
	return builder.WriteTo(w)
}

// Layered reads from every store in order and writes to the first one.
type Layered []Store

// Get implements interface
func (l Layered) Get(key string) ([]byte, error) {
	for _, s := range l {
		if code, err := s.Get(key); err == nil {
			return code, nil
		}
	}
	return nil, ErrNotCached
}

// Hash implements interface
func (l Layered) Hash(key string) ([]byte, error) {
	for _, s := range l {
		if hash, err := s.Hash(key); err == nil {
			return hash, nil
		}
	}
	return nil, ErrNotCached
}

// Put implements interface
func (l Layered) Put(key string, hash, code []byte) error {
	if len(l) == 0 {
		return ErrReadOnly
	}
	return l[0].Put(key, hash, code)
}
