package scripts

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/mgutz/pgreset"
)

// DefaultExt is the extension of script files.
const DefaultExt = ".sql"

// DefaultGroups are the prefixes applied by a staged load, in order.
var DefaultGroups = []string{"1_", "2_", "3_", "4_"}

// Located is the result of resolving a list of prefixes.
type Located struct {
	// Scripts are the resolved files in prefix order.
	Scripts []pgreset.ResolvedScript
	// Missing are the prefixes no file matched.
	Missing []string
}

// Locator resolves group prefixes to files in one directory.
type Locator struct {
	// Dir is the scripts directory. "~" is expanded.
	Dir string
	// Ext is matched case-insensitively. Defaults to DefaultExt.
	Ext string
}

// NewLocator creates a Locator for dir.
func NewLocator(dir string) *Locator {
	return &Locator{Dir: dir, Ext: DefaultExt}
}

// Locate selects one file per prefix: a regular file whose name starts with
// the prefix and ends with Ext. When several match, the lexicographically
// first name wins. A prefix without a match is logged and reported in Missing.
func (l *Locator) Locate(prefixes []string) (Located, error) {
	var located Located

	dir, err := l.dir()
	if err != nil {
		return located, err
	}
	names, err := listFiles(dir)
	if err != nil {
		return located, err
	}

	ext := strings.ToLower(l.Ext)
	if ext == "" {
		ext = DefaultExt
	}

	for _, prefix := range prefixes {
		var match string
		for _, name := range names {
			if strings.HasPrefix(name, prefix) && strings.HasSuffix(strings.ToLower(name), ext) {
				match = name
				break
			}
		}

		if match == "" {
			logger.Warn("no script for prefix", "prefix", prefix, "dir", dir)
			located.Missing = append(located.Missing, prefix)
			continue
		}

		logger.Debug("located", "prefix", prefix, "script", match)
		located.Scripts = append(located.Scripts, pgreset.ResolvedScript{
			Prefix: prefix,
			Path:   filepath.Join(dir, match),
		})
	}
	return located, nil
}

func (l *Locator) dir() (string, error) {
	dir, err := homedir.Expand(l.Dir)
	if err != nil {
		return "", err
	}
	return filepath.Abs(dir)
}

// listFiles returns the sorted names of regular files in dir, following
// symlinks.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		mode := entry.Type()
		if mode&os.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}
			mode = info.Mode()
		}
		if mode.IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
