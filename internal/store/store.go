// Package store is the relational collaborator behind the catalog pipeline.
package store

import (
	"context"

	"github.com/pkg/errors"

	"traking-shop/internal/models"
)

// ErrNotFound is returned when a lookup by id or key matches no row
var ErrNotFound = errors.New("record not found")

// SkinFilter narrows ListSkins. Zero values mean "any".
type SkinFilter struct {
	Weapon            string
	Rarity            string
	Collection        string
	ExcludeCollection string
	Search            string
	Limit             int
	Offset            int
}

// Facets lists the distinct values the skin picker can filter on
type Facets struct {
	Weapons     []string `json:"weapons"`
	Rarities    []string `json:"rarities"`
	Collections []string `json:"collections"`
}

// Store is every query the catalog pipeline issues against the durable store.
type Store interface {
	// FindSkinsBySkinExternalIDs is the "in-list" lookup; callers chunk the ids.
	FindSkinsBySkinExternalIDs(ctx context.Context, ids []string) ([]models.Skin, error)
	FindSkinsByIDs(ctx context.Context, ids []string) ([]models.Skin, error)
	CreateSkins(ctx context.Context, skins []models.Skin) error
	UpdateSkinByKey(ctx context.Context, skin models.Skin) error
	ListSkins(ctx context.Context, f SkinFilter) ([]models.Skin, int64, error)
	Facets(ctx context.Context) (Facets, error)

	GetProduct(ctx context.Context, id string) (models.Product, error)
	LinkedSkins(ctx context.Context, productID string) ([]models.AccountSkinLink, error)
	CreateLinks(ctx context.Context, productID string, skinIDs []string) ([]models.AccountSkinLink, error)
	DeleteLink(ctx context.Context, productID, linkID string) error
}
