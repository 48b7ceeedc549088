// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"golang.org/x/exp/mmap"

	"github.com/devblok/korugs/utility/kar"
)

func TestOpenMmapConcurrent(t *testing.T) {
	c := qt.New(t)
	files := map[string]string{
		"test/test1.txt": "this is a test",
		"test/test2.txt": "this is another test",
		"test/test3.txt": testString2,
	}
	path := filepath.Join(t.TempDir(), "opentest.kar")
	c.Assert(os.WriteFile(path, buildArchive(c, files), 0644), qt.IsNil)

	r, err := mmap.Open(path)
	c.Assert(err, qt.IsNil)
	defer r.Close()

	ar, err := kar.Open(r)
	c.Assert(err, qt.IsNil)

	var wg sync.WaitGroup
	results := make(map[string]string)
	var mutex sync.Mutex
	for name := range files {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			data, err := ar.ReadAll(name)
			if err != nil {
				t.Error(err)
				return
			}
			mutex.Lock()
			results[name] = string(data)
			mutex.Unlock()
		}(name)
	}
	wg.Wait()
	c.Assert(results, qt.DeepEquals, files)
}

func BenchmarkReadAll(b *testing.B) {
	c := qt.New(b)
	path := filepath.Join(b.TempDir(), "bench.kar")
	c.Assert(os.WriteFile(path, buildArchive(c, map[string]string{"test": testString2}), 0644), qt.IsNil)

	r, err := mmap.Open(path)
	c.Assert(err, qt.IsNil)
	defer r.Close()
	ar, err := kar.Open(r)
	c.Assert(err, qt.IsNil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ar.ReadAll("test"); err != nil {
			b.Fatal(err)
		}
	}
}
