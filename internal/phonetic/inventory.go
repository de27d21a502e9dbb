package phonetic

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/heartmarshall/prondict/internal/domain"
)

// DefaultCacheSize comfortably exceeds the number of languages built in a
// single run, so entries are never evicted in practice.
const DefaultCacheSize = 1024

//go:embed inventories.yaml
var embeddedInventories []byte

// Source looks up the reference inventory of a language.
// It returns nil, nil when the source has no entry for the language.
type Source interface {
	Inventory(ctx context.Context, lang domain.Language) (*domain.PhoneticInventory, error)
}

// StaticSource serves inventories from an in-memory table.
type StaticSource struct {
	entries map[domain.Language]domain.PhoneticInventory
}

// NewStaticSource builds a StaticSource from the given inventories.
// Later entries for the same language win.
func NewStaticSource(inventories []domain.PhoneticInventory) *StaticSource {
	entries := make(map[domain.Language]domain.PhoneticInventory, len(inventories))
	for _, inv := range inventories {
		entries[inv.Language] = inv
	}
	return &StaticSource{entries: entries}
}

type inventoryFile struct {
	Inventories []struct {
		Language string   `yaml:"language"`
		Name     string   `yaml:"name"`
		Source   string   `yaml:"source"`
		Phonemes []string `yaml:"phonemes"`
	} `yaml:"inventories"`
}

// LoadStaticSource reads a YAML inventory file.
func LoadStaticSource(r io.Reader) (*StaticSource, error) {
	var f inventoryFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode inventories: %w", err)
	}

	inventories := make([]domain.PhoneticInventory, 0, len(f.Inventories))
	for i, inv := range f.Inventories {
		if inv.Language == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("inventories[%d].language", i), "required")
		}
		inventories = append(inventories, domain.PhoneticInventory{
			Language: domain.Language(inv.Language),
			Name:     inv.Name,
			Source:   inv.Source,
			Phonemes: inv.Phonemes,
		})
	}
	return NewStaticSource(inventories), nil
}

// DefaultStaticSource returns the inventories bundled with the binary.
func DefaultStaticSource() *StaticSource {
	src, err := LoadStaticSource(bytes.NewReader(embeddedInventories))
	if err != nil {
		panic(fmt.Sprintf("phonetic: embedded inventories: %v", err))
	}
	return src
}

// Inventory implements Source.
func (s *StaticSource) Inventory(_ context.Context, lang domain.Language) (*domain.PhoneticInventory, error) {
	inv, ok := s.entries[lang]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

// Cache memoizes Source lookups per language. Concurrent lookups for the
// same language share a single fetch. Failed fetches are not cached.
type Cache struct {
	src     Source
	log     *slog.Logger
	group   singleflight.Group
	entries *lru.Cache[domain.Language, *domain.PhoneticInventory]
}

// NewCache wraps src. size <= 0 selects DefaultCacheSize.
func NewCache(logger *slog.Logger, src Source, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[domain.Language, *domain.PhoneticInventory](size)
	if err != nil {
		return nil, fmt.Errorf("create inventory cache: %w", err)
	}
	return &Cache{
		src:     src,
		log:     logger.With("component", "phonetic_cache"),
		entries: entries,
	}, nil
}

// Get returns the inventory for lang, fetching it at most once.
// A nil inventory with a nil error means the source has no entry.
func (c *Cache) Get(ctx context.Context, lang domain.Language) (*domain.PhoneticInventory, error) {
	if inv, ok := c.entries.Get(lang); ok {
		return inv, nil
	}

	v, err, shared := c.group.Do(string(lang), func() (any, error) {
		// Another caller may have filled the entry while we waited.
		if inv, ok := c.entries.Get(lang); ok {
			return inv, nil
		}
		inv, err := c.src.Inventory(ctx, lang)
		if err != nil {
			return nil, err
		}
		c.entries.Add(lang, inv)
		return inv, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reference inventory %s: %w", lang, err)
	}

	c.log.DebugContext(ctx, "reference inventory resolved",
		slog.String("language", string(lang)),
		slog.Bool("found", v.(*domain.PhoneticInventory) != nil),
		slog.Bool("shared", shared),
	)

	return v.(*domain.PhoneticInventory), nil
}
