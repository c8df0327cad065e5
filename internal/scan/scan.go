// Package scan turns an input root into an ordered list of cases: one per
// sub-folder, with each file classified by content.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/casebinder/internal/planner"
)

const (
	DefaultInlinePrefix = "NEWLINE"
	DefaultPagePrefix   = "NEWPAGE"
)

// Options configures break-image classification.
type Options struct {
	InlinePrefix string
	PagePrefix   string
}

func (o Options) withDefaults() Options {
	if o.InlinePrefix == "" {
		o.InlinePrefix = DefaultInlinePrefix
	}
	if o.PagePrefix == "" {
		o.PagePrefix = DefaultPagePrefix
	}
	return o
}

// Folders lists the immediate sub-folders of root in collation order.
func Folders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read input folder: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	SortNames(dirs)
	return dirs, nil
}

// Scan builds one case per sub-folder of root. A folder that cannot be read
// yields a case carrying the read error so it is skipped with that reason.
func Scan(root string, opts Options) ([]planner.Case, error) {
	opts = opts.withDefaults()
	dirs, err := Folders(root)
	if err != nil {
		return nil, err
	}

	cases := make([]planner.Case, 0, len(dirs))
	for _, dir := range dirs {
		c, err := Folder(dir, opts)
		if err != nil {
			log.Warn().Str("folder", dir).Err(err).Msg("unreadable case folder")
		}
		cases = append(cases, c)
	}
	log.Info().Str("root", root).Int("cases", len(cases)).Msg("scanned input folder")
	return cases, nil
}

// Folder classifies the files of a single case folder. On error the returned
// case still carries its ID and the error in ReadErr.
func Folder(dir string, opts Options) (planner.Case, error) {
	opts = opts.withDefaults()
	c := planner.Case{ID: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		c.ReadErr = fmt.Errorf("failed to list case folder: %w", err)
		return c, c.ReadErr
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	SortNames(files)

	for _, path := range files {
		name := filepath.Base(path)
		switch Detect(path) {
		case KindPrimary:
			c.Primaries = append(c.Primaries, path)
		case KindImage:
			switch {
			case strings.HasPrefix(name, opts.InlinePrefix):
				c.InlineBreaks = append(c.InlineBreaks, path)
			case strings.HasPrefix(name, opts.PagePrefix):
				c.PageBreaks = append(c.PageBreaks, path)
			default:
				c.Collage = append(c.Collage, path)
			}
		}
	}

	log.Debug().
		Str("case", dir).
		Int("primaries", len(c.Primaries)).
		Int("images", len(c.Collage)).
		Int("inline_breaks", len(c.InlineBreaks)).
		Int("page_breaks", len(c.PageBreaks)).
		Msg("classified case folder")
	return c, nil
}
