package sandbox

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsPathTraversal(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"../etc/passwd", true},
		{"foo/../bar", false},
		{"..", true},
		{"safe/path", false},
		{"./ok", false},
	}
	for _, c := range cases {
		if got := isPathTraversal(c.in); got != c.want {
			t.Fatalf("isPathTraversal(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsAbsoluteOrDrive(t *testing.T) {
	// absolute paths test
	if !isAbsoluteOrDrive("/usr/bin") {
		t.Fatalf("expected absolute to be true")
	}
	// windows drive (simulate)
	if !isAbsoluteOrDrive("C:foo") && os.PathSeparator == '\\' {
		t.Skip("skipping windows-specific test on non-windows platform")
	}
}

func TestSanitizeArg(t *testing.T) {
	wd := filepath.Clean(t.TempDir())
	// normal file
	r, err := SanitizeArg(wd, "file.txt")
	if err != nil || r != "file.txt" {
		t.Fatalf("expected file.txt, got %q err=%v", r, err)
	}
	// traversal
	if _, err := SanitizeArg(wd, "../escape"); err == nil {
		t.Fatalf("expected traversal to error")
	}
	// absolute outside the workdir
	if _, err := SanitizeArg(wd, "/etc/passwd"); err == nil {
		t.Fatalf("expected absolute outside workdir to error")
	}
	// absolute inside the workdir is rewritten relative
	r, err = SanitizeArg(wd, filepath.Join(wd, "clip.mp4"))
	if err != nil || r != "clip.mp4" {
		t.Fatalf("expected clip.mp4, got %q err=%v", r, err)
	}
	// a normal subdir should be allowed
	if _, err := SanitizeArg(wd, "otherdir/file"); err != nil {
		t.Fatalf("expected subpath to be allowed, got err=%v", err)
	}
}
