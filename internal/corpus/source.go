package corpus

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MaxEntrySize caps the bytes read for one entry. The class file format
// cannot describe a class anywhere near this large.
const MaxEntrySize = 64 << 20

// Entry is one named item of a Source.
type Entry struct {
	// Name is slash-separated and relative to the source root.
	Name string

	// Read returns the complete entry contents. It is only valid until
	// the Walk callback that received the Entry returns.
	Read func() ([]byte, error)
}

// Source enumerates the entries of a class container.
type Source interface {
	// Walk calls fn for each entry in a deterministic order. It stops
	// early when fn returns an error or ctx is done.
	Walk(ctx context.Context, fn func(Entry) error) error

	fmt.Stringer
}

// Open returns an ArchiveSource for .jar, .zip, .war and .ear files, a
// FileSource for a single .class file, and a DirSource for directories.
func Open(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if info.IsDir() {
		return DirSource{Root: path}, nil
	}
	switch {
	case IsArchive(path):
		return ArchiveSource{Path: path}, nil
	case strings.HasSuffix(path, ClassSuffix):
		return FileSource{Path: path}, nil
	}
	return nil, fmt.Errorf("unsupported input %s: expected a directory, archive or .class file", path)
}

// IsArchive reports whether path names a .jar, .zip, .war or .ear file.
func IsArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jar", ".zip", ".war", ".ear":
		return true
	}
	return false
}

// DirSource walks a directory tree, skipping hidden directories.
type DirSource struct {
	Root string
}

func (s DirSource) String() string { return s.Root }

// Walk implements Source.
func (s DirSource) Walk(ctx context.Context, fn func(Entry) error) error {
	return filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == s.Root {
				return walkErr
			}
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != s.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		return fn(Entry{
			Name: filepath.ToSlash(rel),
			Read: func() ([]byte, error) { return readLimited(path) },
		})
	})
}

// FileSource is a single class file.
type FileSource struct {
	Path string
}

func (s FileSource) String() string { return s.Path }

// Walk implements Source.
func (s FileSource) Walk(ctx context.Context, fn func(Entry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(Entry{
		Name: filepath.Base(s.Path),
		Read: func() ([]byte, error) { return readLimited(s.Path) },
	})
}

// ArchiveSource reads the entries of a zip-format archive (jar, war,
// zip) in central directory order.
type ArchiveSource struct {
	Path string
}

func (s ArchiveSource) String() string { return s.Path }

// Walk implements Source.
func (s ArchiveSource) Walk(ctx context.Context, fn func(Entry) error) error {
	zr, err := zip.OpenReader(s.Path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", s.Path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		err := fn(Entry{
			Name: f.Name,
			Read: func() ([]byte, error) { return readZipEntry(f) },
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readAllLimited(f)
}

func readZipEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxEntrySize {
		return nil, fmt.Errorf("entry is %d bytes, limit %d", f.UncompressedSize64, MaxEntrySize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readAllLimited(rc)
}

func readAllLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxEntrySize {
		return nil, fmt.Errorf("entry exceeds %d bytes", MaxEntrySize)
	}
	return data, nil
}
