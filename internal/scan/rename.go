package scan

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// RenameResult counts the outcome of RenamePrimaries.
type RenameResult struct {
	Renamed int
	Skipped int
}

// RenamePrimaries renames the only PDF of every case folder to
// "{folder}.pdf". Folders with zero or several PDFs are skipped, as are
// renames that fail.
func RenamePrimaries(root string) (RenameResult, error) {
	var res RenameResult
	dirs, err := Folders(root)
	if err != nil {
		return res, err
	}

	for _, dir := range dirs {
		c, err := Folder(dir, Options{})
		if err != nil || len(c.Primaries) != 1 {
			log.Debug().Str("folder", dir).Int("pdfs", len(c.Primaries)).Msg("rename skipped: need exactly one PDF")
			res.Skipped++
			continue
		}

		oldPath := c.Primaries[0]
		newPath := filepath.Join(dir, filepath.Base(dir)+".pdf")
		if oldPath == newPath {
			res.Renamed++
			continue
		}
		if _, err := os.Stat(newPath); err == nil {
			log.Warn().Str("from", oldPath).Str("to", newPath).Msg("rename skipped: target exists")
			res.Skipped++
			continue
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			log.Warn().Str("from", oldPath).Err(err).Msg("rename failed")
			res.Skipped++
			continue
		}
		log.Debug().Str("from", oldPath).Str("to", newPath).Msg("renamed primary document")
		res.Renamed++
	}
	return res, nil
}
