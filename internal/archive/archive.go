// Package archive unpacks the corpus archives and finds the protocol
// directories inside them.
package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"

	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/logger"
)

// UnpackedDir is the directory under the data dir that receives the
// contents of every inner .tar.gz archive.
const UnpackedDir = "unpacked_archives"

const dirPermissions = 0o755

// Stats counts the entries handled while unpacking.
type Stats struct {
	Written int // files extracted
	Skipped int // files already present with the same size
}

func (s *Stats) add(o Stats) {
	s.Written += o.Written
	s.Skipped += o.Skipped
}

func (s *Stats) count(written bool) {
	if written {
		s.Written++
	} else {
		s.Skipped++
	}
}

// Unpacker extracts archives onto a filesystem. Extraction is idempotent:
// files that already exist with the expected size are left alone.
type Unpacker struct {
	fs afero.Fs
}

// NewUnpacker returns an Unpacker writing to fs.
func NewUnpacker(fs afero.Fs) *Unpacker {
	return &Unpacker{fs: fs}
}

// Unpack extracts <dataDir>/<zipName> into dataDir and then every
// <dataDir>/*.tar.gz into <dataDir>/unpacked_archives. It returns the
// unpacked_archives path.
func (u *Unpacker) Unpack(ctx context.Context, dataDir, zipName string) (string, Stats, error) {
	start := time.Now()
	var total Stats

	stats, err := u.Unzip(ctx, filepath.Join(dataDir, zipName), dataDir)
	if err != nil {
		return "", total, err
	}
	total.add(stats)

	unpackedDir := filepath.Join(dataDir, UnpackedDir)
	if err := u.fs.MkdirAll(unpackedDir, dirPermissions); err != nil {
		return "", total, errors.New(fmt.Errorf("create %s: %w", unpackedDir, err)).
			Component("archive").
			Category(errors.CategoryFileIO).
			Build()
	}

	inner, err := afero.Glob(u.fs, filepath.Join(dataDir, "*.tar.gz"))
	if err != nil {
		return "", total, errors.New(err).
			Component("archive").
			Category(errors.CategoryFileIO).
			Context("operation", "glob_inner_archives").
			Build()
	}

	for _, path := range inner {
		stats, err := u.UntarGz(ctx, path, unpackedDir)
		if err != nil {
			return "", total, err
		}
		total.add(stats)
	}

	GetLogger().Info("corpus archives unpacked",
		logger.String("data_dir", dataDir),
		logger.Int("inner_archives", len(inner)),
		logger.Int("written", total.Written),
		logger.Int("skipped", total.Skipped),
		logger.Duration("elapsed", time.Since(start)))

	return unpackedDir, total, nil
}

// Unzip extracts a zip archive into destDir.
func (u *Unpacker) Unzip(ctx context.Context, zipPath, destDir string) (Stats, error) {
	var stats Stats

	f, err := u.fs.Open(zipPath)
	if err != nil {
		return stats, errors.New(fmt.Errorf("open corpus archive: %w", err)).
			Component("archive").
			Category(errors.CategoryMissingArtifact).
			Context("archive", zipPath).
			Build()
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return stats, errors.FileError(err, zipPath, 0)
	}

	// entry names are checked by entryPath
	r, err := zip.NewReader(f, info.Size())
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return stats, errors.New(fmt.Errorf("read zip archive: %w", err)).
			Component("archive").
			Category(errors.CategoryFileParsing).
			FileContext(zipPath, info.Size()).
			Build()
	}

	for _, entry := range r.File {
		if err := ctx.Err(); err != nil {
			return stats, cancelled(err, zipPath)
		}

		if entry.FileInfo().IsDir() {
			if _, err := u.mkdir(destDir, entry.Name); err != nil {
				return stats, err
			}
			continue
		}
		if !entry.Mode().IsRegular() {
			GetLogger().Debug("skipping non-regular zip entry", logger.String("entry", entry.Name))
			continue
		}

		written, err := u.extract(destDir, entry.Name, int64(entry.UncompressedSize64), entry.Open)
		if err != nil {
			return stats, fmt.Errorf("%s: %w", zipPath, err)
		}
		stats.count(written)
	}

	return stats, nil
}

// UntarGz extracts a gzip-compressed tar archive into destDir.
func (u *Unpacker) UntarGz(ctx context.Context, path, destDir string) (Stats, error) {
	var stats Stats

	f, err := u.fs.Open(path)
	if err != nil {
		return stats, errors.New(fmt.Errorf("open inner archive: %w", err)).
			Component("archive").
			Category(errors.CategoryMissingArtifact).
			Context("archive", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return stats, parsingError(err, path)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return stats, cancelled(err, path)
		}

		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return stats, parsingError(err, path)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if _, err := u.mkdir(destDir, header.Name); err != nil {
				return stats, err
			}
		case tar.TypeReg:
			open := func() (io.ReadCloser, error) { return io.NopCloser(tr), nil }
			written, err := u.extract(destDir, header.Name, header.Size, open)
			if err != nil {
				return stats, fmt.Errorf("%s: %w", path, err)
			}
			stats.count(written)
		default:
			GetLogger().Debug("skipping tar entry",
				logger.String("entry", header.Name),
				logger.String("type", string(header.Typeflag)))
		}
	}

	return stats, nil
}

// extract writes one archive entry below destDir unless a file of the same
// size is already there. It reports whether the file was written.
func (u *Unpacker) extract(destDir, name string, size int64, open func() (io.ReadCloser, error)) (bool, error) {
	target, err := entryPath(destDir, name)
	if err != nil {
		return false, err
	}

	if info, err := u.fs.Stat(target); err == nil && info.Mode().IsRegular() && info.Size() == size {
		return false, nil
	}

	rc, err := open()
	if err != nil {
		return false, parsingError(err, name)
	}
	defer func() { _ = rc.Close() }()

	if err := afero.WriteReader(u.fs, target, io.LimitReader(rc, size)); err != nil {
		return false, errors.New(fmt.Errorf("write %s: %w", target, err)).
			Component("archive").
			Category(errors.CategoryFileIO).
			FileContext(target, size).
			Build()
	}
	return true, nil
}

func (u *Unpacker) mkdir(destDir, name string) (string, error) {
	target, err := entryPath(destDir, name)
	if err != nil {
		return "", err
	}
	if err := u.fs.MkdirAll(target, dirPermissions); err != nil {
		return "", errors.New(fmt.Errorf("create %s: %w", target, err)).
			Component("archive").
			Category(errors.CategoryFileIO).
			Build()
	}
	return target, nil
}

// entryPath resolves an archive entry name below destDir, rejecting names
// that would land outside of it.
func entryPath(destDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSuffix(name, "/")))
	if !filepath.IsLocal(clean) {
		return "", errors.Newf("archive entry %q escapes the destination directory", name).
			Component("archive").
			Category(errors.CategoryValidation).
			Context("entry", name).
			Context("destination", destDir).
			Build()
	}
	return filepath.Join(destDir, clean), nil
}

func parsingError(err error, path string) error {
	return errors.New(fmt.Errorf("read archive %s: %w", path, err)).
		Component("archive").
		Category(errors.CategoryFileParsing).
		Context("archive", path).
		Build()
}

func cancelled(err error, path string) error {
	return errors.New(err).
		Component("archive").
		Category(errors.CategoryCancellation).
		Context("archive", path).
		Build()
}
