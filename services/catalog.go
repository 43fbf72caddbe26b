package services

import (
	"context"
	"sort"
	"time"

	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
	"gorm.io/gorm"
)

type catalogSnapshot struct {
	products []models.Product
	byID     map[uint]models.Product
	loadedAt time.Time
}

func newCatalogSnapshot(products []models.Product, at time.Time) *catalogSnapshot {
	snap := &catalogSnapshot{
		products: make([]models.Product, len(products)),
		byID:     make(map[uint]models.Product, len(products)),
		loadedAt: at,
	}
	copy(snap.products, products)
	sort.SliceStable(snap.products, func(i, j int) bool {
		a, b := snap.products[i], snap.products[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Name < b.Name
	})
	for _, p := range products {
		snap.byID[p.ID] = p
	}
	return snap
}

func (l *Ledger) loadCatalog(ctx context.Context) error {
	var products []models.Product
	if err := l.db.WithContext(ctx).Order("category ASC, name ASC").Find(&products).Error; err != nil {
		return err
	}
	l.catalog.Store(newCatalogSnapshot(products, l.clock.Now()))
	return nil
}

// ReplaceCatalog swaps the whole local catalog for products. Readers keep
// seeing the previous snapshot until the new one is committed and published.
func (l *Ledger) ReplaceCatalog(ctx context.Context, products []models.Product) error {
	seen := make(map[uint]bool, len(products))
	for _, p := range products {
		if p.ID == 0 {
			return validationErrorf("product %q has no id", p.Name)
		}
		if seen[p.ID] {
			return validationErrorf("duplicate product id %d", p.ID)
		}
		seen[p.ID] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		if len(products) == 0 {
			return nil
		}
		return tx.CreateInBatches(products, 100).Error
	})
	if err != nil {
		return err
	}

	l.catalog.Store(newCatalogSnapshot(products, l.clock.Now()))
	utils.InfoLogger.Infof("catalog replaced with %d products", len(products))
	return nil
}

// Catalog returns the current catalog snapshot.
func (l *Ledger) Catalog() []models.Product {
	snap := l.catalog.Load()
	out := make([]models.Product, len(snap.products))
	copy(out, snap.products)
	return out
}

func (l *Ledger) Product(id uint) (models.Product, bool) {
	p, ok := l.catalog.Load().byID[id]
	return p, ok
}

// CatalogLoadedAt is when the current snapshot was published.
func (l *Ledger) CatalogLoadedAt() time.Time {
	return l.catalog.Load().loadedAt
}
