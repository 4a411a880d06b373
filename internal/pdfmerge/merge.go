// Package pdfmerge combines downloaded invoice PDFs into a single document
package pdfmerge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	ErrNoFolder = errors.New("pdfmerge: no downloaded invoice folder found")
	ErrNoPDFs   = errors.New("pdfmerge: folder contains no PDF files")
)

// Result describes a merged document
type Result struct {
	Folder string   `json:"folder"`
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
	Pages  int      `json:"pages"`
}

// LatestFolder returns the most recent folder in dir whose name starts with prefix.
// Folder names carry an ISO date, so the lexically greatest is the newest.
func LatestFolder(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("pdfmerge: failed to read %s: %w", dir, err)
	}

	var folders []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			folders = append(folders, e.Name())
		}
	}
	if len(folders) == 0 {
		return "", ErrNoFolder
	}
	sort.Strings(folders)
	return filepath.Join(dir, folders[len(folders)-1]), nil
}

// Inputs lists the invoice PDFs of folder sorted by name. Earlier merge outputs are excluded.
func Inputs(folder, filePrefix string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("pdfmerge: failed to read %s: %w", folder, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		if filePrefix != "" && !strings.HasPrefix(name, filePrefix) {
			continue
		}
		if filePrefix != "" && strings.Contains(strings.TrimPrefix(name, filePrefix), "-") {
			continue
		}
		files = append(files, filepath.Join(folder, name))
	}
	if len(files) == 0 {
		return nil, ErrNoPDFs
	}
	sort.Strings(files)
	return files, nil
}

// OutputName is "<first stem>-<last stem>.pdf"
func OutputName(inputs []string) string {
	stem := func(p string) string {
		base := filepath.Base(p)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return stem(inputs[0]) + "-" + stem(inputs[len(inputs)-1]) + ".pdf"
}

// Folder merges the invoice PDFs of folder into one file inside it
func Folder(folder, filePrefix string) (*Result, error) {
	inputs, err := Inputs(folder, filePrefix)
	if err != nil {
		return nil, err
	}
	output := filepath.Join(folder, OutputName(inputs))

	if err := api.MergeCreateFile(inputs, output, false, nil); err != nil {
		return nil, fmt.Errorf("pdfmerge: failed to merge %d files: %w", len(inputs), err)
	}

	pages, err := api.PageCountFile(output)
	if err != nil {
		return nil, fmt.Errorf("pdfmerge: failed to read merged file: %w", err)
	}

	return &Result{
		Folder: folder,
		Inputs: inputs,
		Output: output,
		Pages:  pages,
	}, nil
}
