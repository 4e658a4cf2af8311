package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"mdpilot/model"
)

// ErrNoFolder is returned when a save is requested without an output folder.
var ErrNoFolder = errors.New("no output folder")

const maxFilenameLength = 120

// ReadMarkdownFiles reads paths concurrently and returns the files in the
// order given. The first failure cancels the rest and is returned.
func ReadMarkdownFiles(ctx context.Context, paths []string) ([]model.MarkdownFile, error) {
	files := make([]model.MarkdownFile, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			name := filepath.Base(path)
			if name == "." || name == string(filepath.Separator) {
				name = path
			}
			files[i] = model.MarkdownFile{Name: name, Path: path, Content: string(data)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// SaveMarkdownFile writes content to folder/name and returns the final path.
// The name is reduced to a safe base name so the file always lands inside
// folder.
func SaveMarkdownFile(folder, name, content string) (string, error) {
	if strings.TrimSpace(folder) == "" {
		return "", ErrNoFolder
	}

	clean := SanitizeFilename(name)
	if clean == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}

	path := filepath.Join(folder, clean)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// SanitizeFilename turns a model-declared file name into a safe base name.
// Directory components are dropped and characters that are invalid on common
// filesystems become hyphens. It returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`:*?"<>|`, r):
			return '-'
		case unicode.IsControl(r):
			return '-'
		}
		return r
	}, name)

	name = strings.TrimSpace(name)
	name = strings.Trim(name, "-. ")
	if name == "" {
		return ""
	}

	if len(name) > maxFilenameLength {
		ext := filepath.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = strings.TrimRight(truncateBytes(name[:len(name)-len(ext)], maxFilenameLength-len(ext)), "-. ") + ext
	}
	return name
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
