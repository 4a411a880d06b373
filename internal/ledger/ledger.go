// Package ledger persists append-only JSON logs of issued invoices, skipped orders and downloads.
//
// Each log is a single JSON array file. Appends are read-modify-write under a mutex and replace
// the file atomically, so a crash leaves either the old or the new array on disk.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rezonia/trendyol-invoicer/internal/fileutil"
	"github.com/rezonia/trendyol-invoicer/internal/model"
)

// Default file names inside the data directory
const (
	InvoiceLinksFile    = "invoice_links.json"
	CancelledOrdersFile = "cancelled_orders.json"
	DownloadsFile       = "downloaded_invoices_log.json"
)

var ErrCorrupt = errors.New("ledger: file is not a JSON array")

// Log is an append-only list of entries, unique by key
type Log[T any] struct {
	path string
	key  func(T) string

	mu sync.Mutex
}

// New creates a log stored at path, deduplicating entries by key
func New[T any](path string, key func(T) string) *Log[T] {
	return &Log[T]{path: path, key: key}
}

// Path returns the backing file
func (l *Log[T]) Path() string {
	return l.path
}

// Entries returns all entries in insertion order; a missing file is an empty log
func (l *Log[T]) Entries() ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Contains reports whether an entry with key exists
func (l *Log[T]) Contains(key string) (bool, error) {
	entries, err := l.Entries()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if l.key(e) == key {
			return true, nil
		}
	}
	return false, nil
}

// Find returns the entry stored under key
func (l *Log[T]) Find(key string) (T, bool, error) {
	var zero T
	entries, err := l.Entries()
	if err != nil {
		return zero, false, err
	}
	for _, e := range entries {
		if l.key(e) == key {
			return e, true, nil
		}
	}
	return zero, false, nil
}

// Keys returns the set of keys in the log
func (l *Log[T]) Keys() (map[string]struct{}, error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		keys[l.key(e)] = struct{}{}
	}
	return keys, nil
}

// Append adds entry unless its key is already present. added is false for duplicates.
func (l *Log[T]) Append(entry T) (added bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return false, err
	}
	key := l.key(entry)
	for _, e := range entries {
		if l.key(e) == key {
			return false, nil
		}
	}

	entries = append(entries, entry)
	if err := fileutil.WriteJSON(l.path, entries); err != nil {
		return false, fmt.Errorf("ledger: %w", err)
	}
	return true, nil
}

func (l *Log[T]) load() ([]T, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to read %s: %w", l.path, err)
	}
	if len(data) == 0 {
		return []T{}, nil
	}

	var entries []T
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, l.path, err)
	}
	if entries == nil {
		entries = []T{}
	}
	return entries, nil
}

// NewInvoiceLinks opens the issued invoice log, keyed by order id
func NewInvoiceLinks(path string) *Log[model.InvoiceLinkEntry] {
	return New(path, model.LinkKey)
}

// NewCancelledOrders opens the cancelled order log, keyed by order id
func NewCancelledOrders(path string) *Log[model.CancelledOrderEntry] {
	return New(path, model.CancelledKey)
}

// NewDownloads opens the download log, keyed by invoice number
func NewDownloads(path string) *Log[model.DownloadEntry] {
	return New(path, model.DownloadKey)
}
