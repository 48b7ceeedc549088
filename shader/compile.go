// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/devblok/korugs/core"
	"github.com/gogpu/naga"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// Compiler turns translated source into SPIR-V.
type Compiler interface {
	Compile(source string) ([]byte, error)
}

// NagaCompiler compiles WGSL through naga.
type NagaCompiler struct{}

// Compile implements interface
func (NagaCompiler) Compile(source string) ([]byte, error) {
	code, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("naga.Compile(): SPIR-V size %d is not word aligned", len(code))
	}
	return code, nil
}

// CompileError carries the compiler diagnostic together with
// the translated source that failed.
type CompileError struct {
	File       string
	Diagnostic string
	Source     string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s: %s\n%s", e.File, core.ErrCompileFailed, e.Diagnostic, e.Source)
}

// Unwrap makes CompileError match core.ErrCompileFailed
func (e *CompileError) Unwrap() error {
	return core.ErrCompileFailed
}

// ErrNotCached is returned by a Store that holds nothing for a key.
var ErrNotCached = errors.New("not cached")

// ErrReadOnly is returned by stores that cannot be written to.
var ErrReadOnly = errors.New("store is read only")

// Store keeps compiled bytecode and the hash of the source
// it was compiled from, both keyed by source file.
type Store interface {
	Get(key string) ([]byte, error)
	Hash(key string) ([]byte, error)
	Put(key string, hash, code []byte) error
}

// Hash is the content hash of a shader source.
func Hash(source string) []byte {
	sum := blake2b.Sum256([]byte(source))
	return sum[:]
}

// Cache compiles through a Compiler unless the store holds bytecode for
// an identical source.
type Cache struct {
	store    Store
	compiler Compiler
	log      *log.Entry
}

// NewCache creates a cache over store. A nil store caches in memory.
func NewCache(store Store, compiler Compiler, logger *log.Entry) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	if compiler == nil {
		compiler = NagaCompiler{}
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Cache{
		store:    store,
		compiler: compiler,
		log:      logger,
	}
}

// Load returns bytecode for the stage. The hash of original is compared with
// the ledger entry of key, when equal the cached bytecode is returned without
// compiling. Otherwise translated is compiled and both records are replaced.
func (c *Cache) Load(key, original, translated string) ([]byte, error) {
	hash := Hash(original)
	if prev, err := c.store.Hash(key); err == nil && bytes.Equal(prev, hash) {
		code, err := c.store.Get(key)
		if err == nil {
			c.log.WithField("shader", key).Debug("bytecode cache hit")
			return code, nil
		}
		c.log.WithField("shader", key).WithError(err).Warn("bytecode cache entry unreadable")
	}

	code, err := c.compiler.Compile(translated)
	if err != nil {
		return nil, &CompileError{File: key, Diagnostic: err.Error(), Source: translated}
	}
	if err := c.store.Put(key, hash, code); err != nil && !errors.Is(err, ErrReadOnly) {
		c.log.WithField("shader", key).WithError(err).Warn("bytecode cache not updated")
	}
	return code, nil
}
