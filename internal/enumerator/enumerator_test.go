package enumerator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/clipscan/clipscan/internal/catalog"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunFiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mp4"))
	writeFile(t, filepath.Join(root, "b.png"))
	writeFile(t, filepath.Join(root, "c.txt"))

	store := catalog.New(filepath.Join(root, "catalog.gob"))

	res := Run(store, Options{IncludeRoots: []string{root}, IncludeSubdirectories: true, IncludeImages: false})
	if res.FilesSeen != 1 {
		t.Fatalf("expected only the video file without IncludeImages, got %d", res.FilesSeen)
	}

	store2 := catalog.New(filepath.Join(root, "catalog2.gob"))
	res2 := Run(store2, Options{IncludeRoots: []string{root}, IncludeSubdirectories: true, IncludeImages: true})
	if res2.FilesSeen != 2 {
		t.Fatalf("expected video + image with IncludeImages, got %d", res2.FilesSeen)
	}
}

func TestRunRespectsIncludeSubdirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.mp4"))
	writeFile(t, filepath.Join(root, "nested", "deep.mp4"))

	store := catalog.New(filepath.Join(root, "catalog.gob"))
	res := Run(store, Options{IncludeRoots: []string{root}, IncludeSubdirectories: false})
	if res.FilesSeen != 1 {
		t.Fatalf("expected only the top-level file with IncludeSubdirectories=false, got %d", res.FilesSeen)
	}

	store2 := catalog.New(filepath.Join(root, "catalog2.gob"))
	res2 := Run(store2, Options{IncludeRoots: []string{root}, IncludeSubdirectories: true})
	if res2.FilesSeen != 2 {
		t.Fatalf("expected both files with IncludeSubdirectories=true, got %d", res2.FilesSeen)
	}
}

func TestIsBlacklistedBoundary(t *testing.T) {
	cases := []struct {
		path      string
		blacklist []string
		want      bool
	}{
		{"/media/movie", []string{"/media/movie"}, true},
		{"/media/movie/sub/file.mp4", []string{"/media/movie"}, true},
		{"/media/movies/file.mp4", []string{"/media/movie"}, false}, // sibling prefix must not match
		{"/other/file.mp4", []string{"/media/movie"}, false},
	}
	for _, c := range cases {
		got := isBlacklisted(c.path, c.blacklist)
		if got != c.want {
			t.Errorf("isBlacklisted(%q, %v) = %v, want %v", c.path, c.blacklist, got, c.want)
		}
	}
}

func TestRunSkipsBlacklistedDirectory(t *testing.T) {
	root := t.TempDir()
	excluded := filepath.Join(root, "excluded")
	writeFile(t, filepath.Join(excluded, "a.mp4"))
	writeFile(t, filepath.Join(root, "kept.mp4"))

	store := catalog.New(filepath.Join(root, "catalog.gob"))
	res := Run(store, Options{
		IncludeRoots:          []string{root},
		IncludeSubdirectories: true,
		Blacklist:             []string{excluded},
	})
	if res.FilesSeen != 1 {
		t.Fatalf("expected blacklisted directory's file excluded, got %d files seen", res.FilesSeen)
	}
	if _, ok := store.Get(filepath.Join(excluded, "a.mp4")); ok {
		t.Error("expected blacklisted file absent from catalog")
	}
}
