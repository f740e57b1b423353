package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

func isPathTraversal(p string) bool {
	clean := filepath.Clean(p)
	return strings.HasPrefix(clean, "../") || strings.Contains(clean, "/../") || clean == ".."
}

func isAbsoluteOrDrive(p string) bool {
	if filepath.IsAbs(p) {
		return true
	}
	if runtime.GOOS == "windows" {
		if len(p) >= 2 && p[1] == ':' {
			return true
		}
	}
	return false
}

// SanitizeArg returns a safe, cleaned argument if it looks like a path.
// Absolute paths are rewritten relative to workdir when they fall inside
// it and rejected otherwise; traversal is rejected; the final path must
// remain under workdir when joined.
func SanitizeArg(workdir, arg string) (string, error) {
	if !looksPathLike(arg) {
		return arg, nil
	}
	if workdir == "" {
		return "", errors.New("workdir is required")
	}
	if isAbsoluteOrDrive(arg) {
		rel, err := filepath.Rel(workdir, arg)
		if err != nil || !filepath.IsLocal(rel) {
			return "", fmt.Errorf("absolute path outside workdir not allowed in args: %q", arg)
		}
		arg = rel
	}
	if isPathTraversal(arg) {
		return "", fmt.Errorf("path traversal not allowed in args: %q", arg)
	}

	rel := filepath.Clean(arg)
	if rel == "." {
		return rel, nil
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("argument must stay inside workdir: %q", arg)
	}
	if err := ensureWithinRoot(workdir, rel); err != nil {
		return "", err
	}
	return rel, nil
}

func ensureWithinRoot(workdir, rel string) error {
	root, err := os.OpenRoot(workdir)
	if err != nil {
		return fmt.Errorf("open root %q: %w", workdir, err)
	}
	defer root.Close()

	candidate := rel
	for candidate != "" && candidate != "." {
		f, err := root.Open(candidate)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				candidate = filepath.Dir(candidate)
				continue
			}
			return fmt.Errorf("path %q escapes workdir: %w", rel, err)
		}
		f.Close()
		break
	}
	return nil
}

func looksPathLike(arg string) bool {
	if arg == "" {
		return false
	}
	if strings.HasPrefix(arg, ".") {
		return true
	}
	if strings.ContainsRune(arg, os.PathSeparator) {
		return true
	}
	return strings.ContainsRune(arg, '/') || strings.ContainsRune(arg, '\\')
}
