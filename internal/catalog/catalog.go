// Package catalog is the read-only product lookup backing the storefront.
// Products are loaded from one CSV file per league and replaced as a whole
// snapshot on every reload.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/pagboka/cis485-patfutbol/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

type Product struct {
	ID       string
	Name     string
	League   string
	Price    domain.Money
	MaxPrice decimal.NullDecimal
	OldPrice decimal.NullDecimal
	Image    string
	Rating   float64
}

// CartItem builds a cart line for qty units of the product at its listed price.
func (p Product) CartItem(qty int) domain.CartItem {
	return domain.CartItem{
		ItemID:    p.ID,
		Quantity:  qty,
		UnitPrice: p.Price,
		League:    p.League,
		ImageRef:  p.Image,
	}
}

type Source struct {
	File   string
	League string
}

var DefaultSources = []Source{
	{File: "bundesligaProducts.csv", League: "bundesliga"},
	{File: "laligaProducts.csv", League: "laliga"},
	{File: "premProducts.csv", League: "prem"},
	{File: "serieaProducts.csv", League: "seriea"},
	{File: "homeProducts.csv", League: "home"},
}

type snapshot struct {
	byID     map[string]Product
	byLeague map[string][]Product
}

type Catalog struct {
	dir     string
	sources []Source
	unit    currency.Unit
	logger  *zap.Logger

	snap atomic.Pointer[snapshot]
}

func New(dir string, sources []Source, unit currency.Unit, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sources == nil {
		sources = DefaultSources
	}

	c := &Catalog{
		dir:     dir,
		sources: sources,
		unit:    unit,
		logger:  logger,
	}
	c.snap.Store(&snapshot{
		byID:     map[string]Product{},
		byLeague: map[string][]Product{},
	})
	return c
}

// Reload reads every source and swaps in the new snapshot. Missing files are
// skipped with a warning. Files that fail to parse are skipped too and their
// errors are returned joined; products from the other files are still served.
func (c *Catalog) Reload() (int, error) {
	next := &snapshot{
		byID:     make(map[string]Product),
		byLeague: make(map[string][]Product),
	}

	var errs []error
	for _, src := range c.sources {
		path := filepath.Join(c.dir, src.File)

		products, err := c.loadFile(path, src.League)
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("catalog file not found, skipping", zap.String("path", path))
			continue
		}
		if err != nil {
			c.logger.Error("catalog file failed to load, skipping", zap.String("path", path), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", src.File, err))
			continue
		}

		for _, p := range products {
			if _, dup := next.byID[p.ID]; dup {
				c.logger.Warn("duplicate product id, keeping first",
					zap.String("id", p.ID), zap.String("path", path))
				continue
			}
			next.byID[p.ID] = p
			next.byLeague[p.League] = append(next.byLeague[p.League], p)
		}

		c.logger.Debug("catalog file loaded", zap.String("path", path), zap.Int("products", len(products)))
	}

	c.snap.Store(next)
	c.logger.Info("catalog loaded", zap.Int("products", len(next.byID)))

	return len(next.byID), errors.Join(errs...)
}

func (c *Catalog) loadFile(path, league string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f, league, c.unit)
}

func (c *Catalog) Lookup(itemID string) (Product, bool) {
	p, ok := c.snap.Load().byID[itemID]
	return p, ok
}

// ByLeague returns the league's products ordered by name.
func (c *Catalog) ByLeague(league string) []Product {
	products := c.snap.Load().byLeague[league]

	out := make([]Product, len(products))
	copy(out, products)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Leagues lists the configured leagues in source order.
func (c *Catalog) Leagues() []string {
	var leagues []string
	seen := make(map[string]bool, len(c.sources))
	for _, src := range c.sources {
		if !seen[src.League] {
			seen[src.League] = true
			leagues = append(leagues, src.League)
		}
	}
	return leagues
}

func (c *Catalog) Len() int {
	return len(c.snap.Load().byID)
}
