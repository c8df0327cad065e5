// Package pdfout persists an assembled document as a PDF file, locally or
// through a remote sink.
package pdfout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrExists is returned when the destination exists and the policy is fail.
var ErrExists = errors.New("output already exists")

// OnExists decides what happens when the destination is already taken.
type OnExists string

const (
	OnExistsFail      OnExists = "fail"
	OnExistsOverwrite OnExists = "overwrite"
	OnExistsRename    OnExists = "rename"
)

// ParseOnExists accepts "fail", "overwrite" or "rename" (case-insensitive).
// Empty means fail.
func ParseOnExists(s string) (OnExists, error) {
	switch p := OnExists(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return OnExistsFail, nil
	case OnExistsFail, OnExistsOverwrite, OnExistsRename:
		return p, nil
	}
	return "", fmt.Errorf("invalid on-exists policy %q (want fail, overwrite or rename)", s)
}

// maxRenameAttempts bounds the _N suffix search.
const maxRenameAttempts = 10000

// DefaultName builds "{parent}_casebinder_{count}_cases_{yyyyMMddHHmmss}.pdf"
// where parent is the base name of the input root.
func DefaultName(inputRoot string, count int, now time.Time) string {
	parent := inputRoot
	if abs, err := filepath.Abs(inputRoot); err == nil {
		parent = abs
	}
	return fmt.Sprintf("%s_casebinder_%d_cases_%s.pdf", filepath.Base(parent), count, now.Format("20060102150405"))
}

// IsRemote reports whether dest is an object-store URL.
func IsRemote(dest string) bool { return strings.HasPrefix(dest, "s3://") }

// ResolveOutput decides the destination path:
//   - empty: the default name in the working directory
//   - an existing directory, or a remote prefix ending in "/": the default name inside it
//   - anything else (normally a .pdf path): used as is
func ResolveOutput(output, inputRoot string, count int, now time.Time) string {
	name := DefaultName(inputRoot, count, now)
	switch {
	case output == "":
		return name
	case IsRemote(output):
		if strings.HasSuffix(output, "/") {
			return output + name
		}
		return output
	}
	if fi, err := os.Stat(output); err == nil && fi.IsDir() {
		return filepath.Join(output, name)
	}
	return output
}

// existsFunc reports whether a destination is taken.
type existsFunc func(ctx context.Context, dest string) (bool, error)

func localExists(_ context.Context, dest string) (bool, error) {
	_, err := os.Stat(dest)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat output: %w", err)
}

// claim applies policy to dest and returns the path to write.
func claim(ctx context.Context, dest string, policy OnExists, exists existsFunc) (string, error) {
	taken, err := exists(ctx, dest)
	if err != nil {
		return "", err
	}
	if !taken {
		return dest, nil
	}

	switch policy {
	case OnExistsOverwrite:
		return dest, nil
	case OnExistsRename:
		ext := filepath.Ext(dest)
		stem := strings.TrimSuffix(dest, ext)
		for i := 1; i <= maxRenameAttempts; i++ {
			candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
			taken, err := exists(ctx, candidate)
			if err != nil {
				return "", err
			}
			if !taken {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("no free name for %s after %d attempts", dest, maxRenameAttempts)
	default:
		return "", fmt.Errorf("%s: %w", dest, ErrExists)
	}
}
