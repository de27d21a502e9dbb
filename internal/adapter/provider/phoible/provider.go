// Package phoible fetches reference phoneme inventories from a PHOIBLE CSV
// export over HTTP.
package phoible

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/heartmarshall/prondict/internal/domain"
)

const (
	// DefaultURL is the CSV published with the PHOIBLE 2.0 release.
	DefaultURL = "https://raw.githubusercontent.com/phoible/dev/master/data/phoible.csv"

	defaultTimeout = 30 * time.Second
	retryDelay     = 500 * time.Millisecond
)

// Columns read from the CSV header. Other columns are ignored.
const (
	colInventoryID  = "InventoryID"
	colISO6393      = "ISO6393"
	colLanguageName = "LanguageName"
	colPhoneme      = "Phoneme"
	colSource       = "Source"
)

// Provider serves phoneme inventories from one PHOIBLE CSV. The CSV is
// downloaded on first use and indexed in memory; a failed download is
// retried on the next call.
type Provider struct {
	url        string
	httpClient *http.Client
	log        *slog.Logger

	mu    sync.Mutex
	index map[string]*domain.PhoneticInventory
}

// NewProvider creates a Provider for the default PHOIBLE URL.
func NewProvider(logger *slog.Logger) *Provider {
	return NewProviderWithURL(DefaultURL, defaultTimeout, logger)
}

// NewProviderWithURL creates a Provider for a custom CSV URL.
func NewProviderWithURL(url string, timeout time.Duration, logger *slog.Logger) *Provider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Provider{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("adapter", "phoible"),
	}
}

// Inventory returns the first PHOIBLE inventory recorded for lang, matched
// by ISO 639-3 code. Returns nil, nil when PHOIBLE has no inventory.
func (p *Provider) Inventory(ctx context.Context, lang domain.Language) (*domain.PhoneticInventory, error) {
	iso3, ok := iso6393(lang)
	if !ok {
		return nil, nil
	}

	index, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	inv, ok := index[iso3]
	if !ok {
		return nil, nil
	}
	out := *inv
	out.Language = lang
	out.Phonemes = append([]string(nil), inv.Phonemes...)
	return &out, nil
}

// iso6393 maps a language code to its ISO 639-3 form.
func iso6393(lang domain.Language) (string, bool) {
	tag, err := language.Parse(string(lang))
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	return base.ISO3(), true
}

func (p *Provider) load(ctx context.Context) (map[string]*domain.PhoneticInventory, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.index != nil {
		return p.index, nil
	}

	p.log.InfoContext(ctx, "downloading phoible inventories", slog.String("url", p.url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("phoible: create request: %w", err)
	}

	resp, err := p.doWithRetry(ctx, req)
	if err != nil {
		p.log.ErrorContext(ctx, "phoible request failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("phoible: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("phoible: unexpected status %d", resp.StatusCode)
	}

	index, rows, err := parseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("phoible: %w", err)
	}

	p.log.InfoContext(ctx, "phoible inventories indexed",
		slog.Int("rows", rows),
		slog.Int("languages", len(index)),
	)
	p.index = index
	return index, nil
}

// doWithRetry executes the request with a single retry on 5xx or network errors.
func (p *Provider) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := p.httpClient.Do(req)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry {
		return resp, err
	}

	// Don't retry if context is already cancelled.
	if ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	p.log.WarnContext(ctx, "phoible retry", slog.String("reason", reason))

	// Close body from the failed attempt before retrying.
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(retryDelay):
	}

	return p.httpClient.Do(req)
}

// parseCSV indexes the first inventory of every ISO 639-3 code. Rows are
// grouped by InventoryID and keep file order.
func parseCSV(r io.Reader) (map[string]*domain.PhoneticInventory, int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("empty csv")
		}
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{colInventoryID, colISO6393, colPhoneme} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("missing column %q", required)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	index := make(map[string]*domain.PhoneticInventory)
	owner := make(map[string]string) // iso3 -> inventory id kept
	rows := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rows, fmt.Errorf("read row %d: %w", rows+1, err)
		}
		rows++

		iso3 := field(rec, colISO6393)
		id := field(rec, colInventoryID)
		phoneme := field(rec, colPhoneme)
		if iso3 == "" || id == "" || phoneme == "" {
			continue
		}

		kept, seen := owner[iso3]
		if seen && kept != id {
			continue
		}
		if !seen {
			owner[iso3] = id
			index[iso3] = &domain.PhoneticInventory{
				Name:   field(rec, colLanguageName),
				Source: "phoible:" + id + sourceSuffix(field(rec, colSource)),
			}
		}
		index[iso3].Phonemes = append(index[iso3].Phonemes, phoneme)
	}
	return index, rows, nil
}

func sourceSuffix(s string) string {
	if s == "" {
		return ""
	}
	return " (" + s + ")"
}
