// Package classifier groups the files of a folder tree by directory,
// filtered by file extension, and searches the result by name.
package classifier

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Filter selects files by name suffix. Empty Include keeps everything
// not excluded. Matching is case-insensitive.
type Filter struct {
	Include []string
	Exclude []string
}

// ParseExtensions splits a user list such as ".jpg, png;txt" into suffixes.
func ParseExtensions(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Keep reports whether a file name passes the filter.
func (f Filter) Keep(name string) bool {
	lower := strings.ToLower(name)
	if len(f.Include) > 0 && !hasAnySuffix(lower, f.Include) {
		return false
	}
	return !hasAnySuffix(lower, f.Exclude)
}

func hasAnySuffix(lower string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// Group is one directory and the matching files directly inside it.
type Group struct {
	Dir   string
	Files []string
}

// Result is the outcome of a scan, groups sorted by directory.
type Result struct {
	Root   string
	Groups []Group
}

// Scan walks root and groups the kept files by containing directory.
// Unreadable subdirectories are skipped.
func Scan(ctx context.Context, root string, f Filter) (Result, error) {
	if root == "" {
		return Result{}, fmt.Errorf("folder cannot be empty")
	}
	byDir := make(map[string][]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !f.Keep(d.Name()) {
			return nil
		}
		dir := filepath.Dir(path)
		byDir[dir] = append(byDir[dir], path)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("scan %s: %w", root, err)
	}

	res := Result{Root: root, Groups: make([]Group, 0, len(byDir))}
	for dir, files := range byDir {
		sort.Strings(files)
		res.Groups = append(res.Groups, Group{Dir: dir, Files: files})
	}
	sort.Slice(res.Groups, func(i, j int) bool { return res.Groups[i].Dir < res.Groups[j].Dir })
	return res, nil
}

// Search keeps files whose base name contains keyword, dropping groups
// left empty. An empty keyword returns r unchanged.
func (r Result) Search(keyword string) Result {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return r
	}
	out := Result{Root: r.Root}
	for _, g := range r.Groups {
		var files []string
		for _, f := range g.Files {
			if strings.Contains(strings.ToLower(filepath.Base(f)), keyword) {
				files = append(files, f)
			}
		}
		if len(files) > 0 {
			out.Groups = append(out.Groups, Group{Dir: g.Dir, Files: files})
		}
	}
	return out
}

// Count is the number of files across all groups.
func (r Result) Count() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Files)
	}
	return n
}

// Render lists every folder with its file count and files.
func (r Result) Render() string {
	var b strings.Builder
	for _, g := range r.Groups {
		fmt.Fprintf(&b, "Folder: %s\n", g.Dir)
		fmt.Fprintf(&b, "Count: %d\n", len(g.Files))
		for _, f := range g.Files {
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}
	return b.String()
}
