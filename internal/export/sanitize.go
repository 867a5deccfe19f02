package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

// SanitizeName drops control characters, replaces anything outside a
// filename-safe set with '_' and truncates to maxLen runes.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// ClipFileName is the per-clip output name: NN_<title>.mp4.
func ClipFileName(index int, title string) string {
	name := SanitizeName(title, 80)
	if name == "" {
		name = "clip"
	}
	return fmt.Sprintf("%02d_%s.mp4", index, name)
}

// ProjectName derives the export project name from the uploaded file name.
func ProjectName(sourceName string) string {
	base := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	name := SanitizeName(base, 120)
	if name == "" || name == "." {
		return "clipforge_export"
	}
	return name + "_clips"
}

// ErrInvalidOutputDir is wrapped by every ValidateOutputDir failure.
var ErrInvalidOutputDir = errors.New("invalid output dir")

// ValidateOutputDir accepts only clean, existing directories without ".."
// segments.
func ValidateOutputDir(dir string) error {
	switch {
	case strings.TrimSpace(dir) == "":
		return fmt.Errorf("%w: path is required", ErrInvalidOutputDir)
	case slices.Contains(strings.Split(filepath.ToSlash(dir), "/"), ".."):
		return fmt.Errorf("%w: path traversal is not allowed", ErrInvalidOutputDir)
	case filepath.Clean(dir) != dir:
		return fmt.Errorf("%w: %q is not a clean path", ErrInvalidOutputDir, dir)
	}

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q does not exist", ErrInvalidOutputDir, dir)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOutputDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %q is not a directory", ErrInvalidOutputDir, dir)
	}
	return nil
}
