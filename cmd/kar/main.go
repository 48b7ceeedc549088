// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/devblok/korugs/core"
	"github.com/devblok/korugs/shader"
	"github.com/devblok/korugs/utility/kar"
	log "github.com/sirupsen/logrus"
)

func init() {
	currentUserName = "unknown"
	if u, err := user.Current(); err == nil && u.Name != "" {
		currentUserName = u.Name
	}
}

var (
	currentUserName string
	author          = flag.String("author", "", "Set the author of the package when compressing")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	extract         = flag.String("e", "", "Extract the file given")
	compress        = flag.String("c", "", "Compress the given file/folder")
	shaders         = flag.String("shaders", "", "Compile the WGSL shaders of a folder into a shader bundle")
	list            = flag.String("l", "", "List the contents of the file given")
	dstFile         = flag.String("f", "out.kar", "Destination file")
	dstDir          = flag.String("o", ".", "Destination folder when extracting")
	silent          = flag.Bool("s", false, "Silent")
)

var errExists = errors.New("destination file exists, will not overwrite")

func newHeader() kar.Header {
	name := *author
	if name == "" {
		name = currentUserName
	}
	return kar.Header{
		Author:      name,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	}
}

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	var ops int
	for _, op := range []string{*extract, *compress, *shaders, *list} {
		if op != "" {
			ops++
		}
	}
	if ops > 1 {
		log.Fatal("only one operation at a time")
	}

	var err error
	switch {
	case *extract != "":
		err = extractArchive(*extract, *dstDir)
	case *compress != "":
		err = createFile(*dstFile, func(w io.Writer) error {
			return compressFiles(*compress, w, newHeader())
		})
	case *shaders != "":
		err = createFile(*dstFile, func(w io.Writer) error {
			return compileShaders(*shaders, w, newHeader(), shader.NagaCompiler{})
		})
	case *list != "":
		err = listArchive(*list, os.Stdout)
	default:
		flag.PrintDefaults()
	}
	if err != nil {
		log.WithError(err).Fatal("kar failed")
	}
}

// createFile runs write on a new file at path, removing it again when
// write fails.
func createFile(path string, write func(io.Writer) error) error {
	if _, err := os.Stat(path); err == nil {
		return errExists
	}
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(dst); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// archiveName is the name a file below root is stored under.
func archiveName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		rel = filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func compressFiles(src string, w io.Writer, header kar.Header) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	root := src
	if !info.IsDir() {
		root = filepath.Dir(src)
	}

	var filesToCompress []string
	err = filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		filesToCompress = append(filesToCompress, path)
		return nil
	})
	if err != nil {
		return err
	}

	karBuilder, err := kar.NewBuilder(header)
	if err != nil {
		return err
	}
	defer karBuilder.Close()

	for _, ftc := range filesToCompress {
		f, err := os.Open(ftc)
		if err != nil {
			return err
		}
		err = karBuilder.Add(archiveName(root, ftc), f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", ftc, err)
		}
		log.WithField("file", ftc).Info("added")
	}

	_, err = karBuilder.WriteTo(w)
	return err
}

// compileShaders compiles every stage below dir into a shader bundle. Files
// without an entry point are only reachable through includes and are
// skipped.
func compileShaders(dir string, w io.Writer, header kar.Header, compiler shader.Compiler) error {
	pre := shader.WGSL{
		Include: func(name string) (string, error) {
			data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
			return string(data), err
		},
	}
	store := shader.NewMemoryStore()
	cache := shader.NewCache(store, compiler, log.WithField("tool", "kar"))

	var keys []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".wgsl") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		key := archiveName(dir, path)
		source := string(data)

		processed, err := pre.Process(source, key)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if processed.Stage == core.UnknownShaderType {
			log.WithField("shader", key).Debug("no entry point, skipped")
			return nil
		}
		st, err := shader.Prepare(pre, processed.Stage, source, key)
		if err != nil {
			return err
		}
		if _, err := cache.Load(key, source, st.Translated); err != nil {
			return err
		}
		keys = append(keys, key)
		log.WithFields(log.Fields{
			"shader": key,
			"stage":  processed.Stage,
		}).Info("compiled")
		return nil
	})
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("no shaders in %s", dir)
	}
	_, err = shader.WriteBundle(w, header, keys, store)
	return err
}

func openArchive(path string) (*kar.Archive, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	archive, err := kar.Open(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return archive, f, nil
}

func listArchive(path string, w io.Writer) error {
	archive, f, err := openArchive(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := archive.Header()
	fmt.Fprintf(w, "author: %s\nversion: %d\ncreated: %s\n", header.Author, header.Version,
		time.Unix(header.DateCreated, 0).UTC().Format(time.RFC3339))
	for _, name := range archive.Files() {
		entry, err := archive.Stat(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%10d %10d %s\n", entry.Size, entry.CompressedSize, name)
	}
	return nil
}

func extractArchive(path, dir string) error {
	archive, f, err := openArchive(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, name := range archive.Files() {
		local := filepath.FromSlash(name)
		if !filepath.IsLocal(local) {
			return fmt.Errorf("%w: %s escapes the destination", kar.ErrFileFormat, name)
		}
		if err := extractFile(archive, name, filepath.Join(dir, local)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		log.WithField("file", name).Info("extracted")
	}
	return nil
}

func extractFile(archive *kar.Archive, name, dst string) error {
	r, err := archive.Open(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
