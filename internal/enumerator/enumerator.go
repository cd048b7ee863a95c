// Package enumerator walks the configured include roots and reconciles
// what it finds into the catalog store, the same shape as the reference
// stack's library scan loop (filepath.Walk over extension-set membership)
// generalized to this engine's symlink/read-only/blacklist/depth policy.
package enumerator

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipscan/clipscan/internal/catalog"
	"github.com/clipscan/clipscan/internal/logging"
)

// Options controls one enumeration pass.
type Options struct {
	IncludeRoots          []string
	Blacklist             []string
	IncludeSubdirectories bool
	IgnoreReadOnlyFolders bool
	IgnoreReparsePoints   bool
	IncludeImages         bool

	// ScanAgainstEntireDatabase, when true, tells the compare phase to
	// compare against every catalog record instead of only those under
	// IncludeRoots. It has no effect on enumeration itself.
	ScanAgainstEntireDatabase bool
}

// Result summarizes one Run.
type Result struct {
	FilesSeen    int
	FilesSkipped int
	Errors       int
}

// Run walks every root in opts.IncludeRoots and reconciles each eligible
// file into store. File-access failures are logged and skip the file; they
// are never fatal to the walk, matching the enumerator's error policy.
func Run(store *catalog.Store, opts Options) Result {
	var res Result
	for _, root := range opts.IncludeRoots {
		walkRoot(store, root, opts, &res)
	}
	return res
}

func walkRoot(store *catalog.Store, root string, opts Options, res *Result) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Print(logging.Enumerator("access error at %s: %v", path, err))
			res.Errors++
			return nil
		}

		if d.IsDir() {
			if path != root {
				if isBlacklisted(path, opts.Blacklist) {
					return filepath.SkipDir
				}
				if opts.IgnoreReparsePoints && isReparsePoint(path, d) {
					return filepath.SkipDir
				}
				if opts.IgnoreReadOnlyFolders && isReadOnly(path) {
					return filepath.SkipDir
				}
				if !opts.IncludeSubdirectories {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if isBlacklisted(path, opts.Blacklist) {
			res.FilesSkipped++
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		isVideo := catalog.IsVideoExt(ext)
		isImage := catalog.IsImageExt(ext)
		if !isVideo && !(opts.IncludeImages && isImage) {
			res.FilesSkipped++
			return nil
		}

		if opts.IgnoreReparsePoints && isReparsePoint(path, d) {
			res.FilesSkipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.Print(logging.Enumerator("stat failed for %s: %v", path, err))
			res.Errors++
			return nil
		}

		dev, ino := fileIdentity(info)
		candidate := catalog.NewFileRecord(path, info.Size(), createdTime(info), info.ModTime(), dev, ino)
		store.InsertOrReconcile(candidate)
		res.FilesSeen++
		return nil
	})
	if err != nil {
		log.Print(logging.Enumerator("walk of %s aborted: %v", root, err))
	}
}

// isBlacklisted reports whether path is exactly one of the blacklist entries
// or a proper sub-path of one — never an accidental prefix match on sibling
// directory names ("/media/movie" must not blacklist "/media/movies").
func isBlacklisted(path string, blacklist []string) bool {
	for _, entry := range blacklist {
		if entry == "" {
			continue
		}
		if matched, _ := filepath.Match(entry, path); matched {
			return true
		}
		if path == entry {
			return true
		}
		rel, err := filepath.Rel(entry, path)
		if err != nil {
			continue
		}
		if rel == "." {
			return true
		}
		if !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel) {
			return true
		}
	}
	return false
}

func isReadOnly(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().Perm()&0o200 == 0
}

func isReparsePoint(path string, d fs.DirEntry) bool {
	if d.Type()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(path)
		return err != nil || resolved != path
	}
	return false
}
