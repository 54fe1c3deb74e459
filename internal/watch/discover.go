package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter selects declaration files under a root by extension and ignore
// globs. Globs match slash-separated paths relative to the root.
type Filter struct {
	Root      string
	Extension string
	Ignore    []string
}

// Ignored reports whether path, which lies under Root, matches an ignore
// glob. The root itself is never ignored.
func (f Filter) Ignored(path string) bool {
	rel, err := filepath.Rel(f.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}
	return f.ignoredRel(filepath.ToSlash(rel))
}

func (f Filter) ignoredRel(rel string) bool {
	if rel == "." {
		return false
	}
	for _, pattern := range f.Ignore {
		if match, _ := doublestar.Match(pattern, rel); match {
			return true
		}
	}
	return false
}

// Wants reports whether path is a declaration file that is not ignored.
func (f Filter) Wants(path string) bool {
	return filepath.Ext(path) == f.Extension && !f.Ignored(path)
}

// Discover lists the wanted files under Root as sorted paths joined to Root.
func (f Filter) Discover() ([]string, error) {
	pattern := "**/*" + f.Extension
	matches, err := doublestar.Glob(os.DirFS(f.Root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", f.Root, err)
	}
	var out []string
	for _, m := range matches {
		if f.ignoredRel(m) {
			continue
		}
		out = append(out, filepath.Join(f.Root, filepath.FromSlash(m)))
	}
	sort.Strings(out)
	return out, nil
}
