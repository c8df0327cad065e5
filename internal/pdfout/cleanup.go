package pdfout

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Partial outputs are hidden and carry no .pdf suffix, so no finished
// output can match them.
const (
	tempPrefix  = ".casebinder-"
	tempSuffix  = ".part"
	tempPattern = tempPrefix + "*" + tempSuffix
)

// CleanupTemps removes partial outputs left behind by interrupted writes in
// dir (the system temp dir when empty) that are older than maxAge.
func CleanupTemps(dir string, maxAge time.Duration) int {
	if dir == "" {
		dir = os.TempDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	now := time.Now()
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !isTempName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) >= maxAge {
			if os.Remove(filepath.Join(dir, e.Name())) == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		log.Debug().Str("dir", dir).Int("removed", removed).Msg("cleaned stale temp outputs")
	}
	return removed
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, tempSuffix)
}
