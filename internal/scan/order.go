package scan

import (
	"path/filepath"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortNames orders names the way a Chinese desktop file manager does: Han
// characters by pinyin, digit runs by numeric value, letters ignoring case.
// Only the base name of each entry is compared. The sort is stable.
func SortNames(names []string) {
	c := collate.New(language.Chinese, collate.Numeric, collate.IgnoreCase)
	sort.SliceStable(names, func(i, j int) bool {
		return c.CompareString(filepath.Base(names[i]), filepath.Base(names[j])) < 0
	})
}
