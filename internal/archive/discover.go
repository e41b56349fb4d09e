package archive

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/logger"
)

// annotationMarker names the entry whose presence makes a protocol directory valid.
const annotationMarker = "annotationcollections"

// maxInvalidExamples bounds how many directories without annotations are logged.
const maxInvalidExamples = 3

// Discovery classifies the protocol directories of an unpacked corpus.
type Discovery struct {
	Valid   []string // contain an annotationcollections entry
	Invalid []string
}

// Total returns the number of protocol directories seen.
func (d *Discovery) Total() int {
	return len(d.Valid) + len(d.Invalid)
}

// Discover lists the subdirectories of dir in name order and splits them into
// directories with and without annotations.
func Discover(fs afero.Fs, dir string) (*Discovery, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, errors.New(fmt.Errorf("list protocol directories: %w", err)).
			Component("archive").
			Category(errors.CategoryMissingArtifact).
			Context("directory", dir).
			Build()
	}

	d := &Discovery{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		protocolDir := filepath.Join(dir, e.Name())

		ok, err := afero.Exists(fs, filepath.Join(protocolDir, annotationMarker))
		if err != nil {
			return nil, errors.FileError(err, protocolDir, 0)
		}
		if ok {
			d.Valid = append(d.Valid, protocolDir)
		} else {
			d.Invalid = append(d.Invalid, protocolDir)
		}
	}

	d.log()
	return d, nil
}

func (d *Discovery) log() {
	log := GetLogger()
	log.Info(fmt.Sprintf("%d out of %d protocol dirs contain annotation", len(d.Valid), d.Total()),
		logger.Int("valid", len(d.Valid)),
		logger.Int("total", d.Total()))

	if len(d.Invalid) > 0 {
		examples := d.Invalid[:min(maxInvalidExamples, len(d.Invalid))]
		names := make([]string, 0, len(examples))
		for _, p := range examples {
			names = append(names, filepath.Base(p))
		}
		log.Warn("protocol dirs without annotation",
			logger.Int("count", len(d.Invalid)),
			logger.String("examples", strings.Join(names, ", ")))
	}
}
