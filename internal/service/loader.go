package service

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/askdocs/ragd/internal/chunk"
	"github.com/askdocs/ragd/internal/ragerr"
)

// loadableExtensions lists the plain-text formats the corpus loader accepts.
// Anything else in the corpus directory is skipped, not rejected.
var loadableExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// loadCorpus walks dir recursively and loads every plain-text document.
// Sources are recorded relative to dir so snapshots stay stable when the
// corpus directory moves. Hidden files and directories are skipped.
func loadCorpus(dir string) ([]chunk.Document, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, ragerr.New(ragerr.CodeConfigInvalid,
			fmt.Sprintf("corpus directory not found: %s", dir), err)
	}

	var docs []chunk.Document
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !loadableExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		source, err := filepath.Rel(dir, path)
		if err != nil {
			source = path
		}
		docs = append(docs, chunk.Document{
			Source: filepath.ToSlash(source),
			Text:   string(data),
		})
		return nil
	})
	if walkErr != nil {
		return nil, ragerr.New(ragerr.CodeStoreIO,
			fmt.Sprintf("failed to read corpus directory %s", dir), walkErr)
	}
	return docs, nil
}

// loadDocument loads a single file. The source is the file's base name,
// matching how single-file additions are labeled in query results.
func loadDocument(path string) (chunk.Document, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return chunk.Document{}, ragerr.New(ragerr.CodeConfigInvalid,
			fmt.Sprintf("file not found: %s", path), err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return chunk.Document{}, ragerr.New(ragerr.CodeStoreIO,
			fmt.Sprintf("failed to read %s", path), err)
	}
	return chunk.Document{Source: filepath.Base(path), Text: string(data)}, nil
}
