package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/rezonia/trendyol-invoicer/internal/fileutil"
	"github.com/rezonia/trendyol-invoicer/internal/ledger"
	"github.com/rezonia/trendyol-invoicer/internal/model"
	"github.com/rezonia/trendyol-invoicer/internal/transport"
)

const (
	// FolderPrefix starts the name of every dated download folder
	FolderPrefix = "downloaded_invoices_"
	// DefaultDelay is the pause between two downloads
	DefaultDelay = time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

var errNotPDF = errors.New("response is not a PDF document")

// Summary reports what a download run did
type Summary struct {
	Folder         string `json:"folder"`
	TotalLinks     int    `json:"total_links"`
	Unique         int    `json:"unique"`
	LastDownloaded int64  `json:"last_downloaded"`
	Candidates     int    `json:"candidates"`
	Downloaded     int    `json:"downloaded"`
	Skipped        int    `json:"skipped"`
	Failed         int    `json:"failed"`
}

// Downloader saves invoice PDFs into a dated folder and records them in the download log
type Downloader struct {
	links  *ledger.Log[model.InvoiceLinkEntry]
	log    *ledger.Log[model.DownloadEntry]
	http   *transport.Client
	dir    string
	clock  clockwork.Clock
	delay  time.Duration
	logger *zap.Logger
}

// Option configures a Downloader
type Option func(*Downloader)

// WithClock sets the clock for the folder date, timestamps and delays
func WithClock(clock clockwork.Clock) Option {
	return func(d *Downloader) {
		d.clock = clock
	}
}

// WithDelay sets the pause between downloads
func WithDelay(delay time.Duration) Option {
	return func(d *Downloader) {
		d.delay = delay
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// NewDownloader creates a downloader writing folders under dir
func NewDownloader(links *ledger.Log[model.InvoiceLinkEntry], log *ledger.Log[model.DownloadEntry],
	httpClient *transport.Client, dir string, opts ...Option) *Downloader {
	d := &Downloader{
		links:  links,
		log:    log,
		http:   httpClient,
		dir:    dir,
		clock:  clockwork.NewRealClock(),
		delay:  DefaultDelay,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Folder returns today's download folder
func (d *Downloader) Folder() string {
	return filepath.Join(d.dir, FolderPrefix+d.clock.Now().Format("2006-01-02"))
}

// Run downloads every invoice not yet on disk. A failed download is counted and logged;
// the run continues with the next invoice.
func (d *Downloader) Run(ctx context.Context) (*Summary, error) {
	links, err := d.links.Entries()
	if err != nil {
		return nil, err
	}
	summary := &Summary{Folder: d.Folder(), TotalLinks: len(links)}

	latest := FilterLatest(links)
	summary.Unique = len(latest)

	downloaded, err := d.log.Entries()
	if err != nil {
		return nil, err
	}
	summary.LastDownloaded = LastDownloadedNumber(downloaded)
	candidates := FilterNew(latest, summary.LastDownloaded)
	summary.Candidates = len(candidates)

	if len(candidates) == 0 {
		d.logger.Info("all invoices already downloaded")
		return summary, nil
	}
	if err := os.MkdirAll(summary.Folder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download folder: %w", err)
	}

	done, err := d.log.Keys()
	if err != nil {
		return nil, err
	}

	for i, entry := range candidates {
		logger := d.logger.With(
			zap.Int64("order_id", entry.OrderID),
			zap.String("invoice_number", entry.InvoiceNumber),
		)

		if _, ok := done[entry.InvoiceNumber]; ok {
			logger.Debug("invoice already downloaded")
			summary.Skipped++
			continue
		}

		filename := FileName(entry.InvoiceNumber)
		path := filepath.Join(summary.Folder, filename)
		if fileutil.Exists(path) {
			logger.Info("file already exists", zap.String("filename", filename))
			if _, err := d.log.Append(d.entry(entry, filename, model.DownloadStatusAlreadyExists)); err != nil {
				return summary, err
			}
			done[entry.InvoiceNumber] = struct{}{}
			summary.Skipped++
			continue
		}

		if err := d.fetch(ctx, entry.InvoiceLink, path); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			logger.Warn("download failed", zap.Error(err))
			summary.Failed++
		} else {
			if _, err := d.log.Append(d.entry(entry, filename, model.DownloadStatusDownloaded)); err != nil {
				return summary, err
			}
			done[entry.InvoiceNumber] = struct{}{}
			summary.Downloaded++
			logger.Info("invoice downloaded", zap.String("filename", filename))
		}

		if i < len(candidates)-1 {
			if err := transport.Sleep(ctx, d.clock, d.delay); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

func (d *Downloader) fetch(ctx context.Context, link, path string) error {
	resp, err := d.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		return req, nil
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return model.NewSubmissionError("oblio", "download invoice", resp.StatusCode, "")
	}
	if !bytes.HasPrefix(resp.Body, []byte("%PDF-")) {
		return errNotPDF
	}
	return fileutil.WriteFile(path, resp.Body)
}

func (d *Downloader) entry(link model.InvoiceLinkEntry, filename, status string) model.DownloadEntry {
	return model.DownloadEntry{
		Timestamp:     d.clock.Now(),
		OrderID:       link.OrderID,
		InvoiceNumber: link.InvoiceNumber,
		InvoiceLink:   link.InvoiceLink,
		Filename:      filename,
		Status:        status,
	}
}
