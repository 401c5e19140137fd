package catalog

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"traking-shop/internal/models"
	"traking-shop/internal/store"
)

// Bounds of a random assignment
const (
	MinRandomSkins = 15
	MaxRandomSkins = 295
)

// Implementer runs the account assignment flows offered to admins
type Implementer struct {
	source   CatalogSource
	store    store.Store
	sampler  *Sampler
	assigner *Assigner
}

func NewImplementer(src CatalogSource, st store.Store, sampler *Sampler, assigner *Assigner) *Implementer {
	return &Implementer{source: src, store: st, sampler: sampler, assigner: assigner}
}

// ImplementRandom assigns a random number of skins in [MinRandomSkins, MaxRandomSkins],
// capped to what the account does not already own.
func (im *Implementer) ImplementRandom(ctx context.Context, productID string) (AssignResult, error) {
	pool, err := im.availablePool(ctx, productID)
	if err != nil {
		return AssignResult{}, err
	}
	target := im.sampler.Between(MinRandomSkins, MaxRandomSkins)
	return im.assigner.Assign(ctx, productID, im.sampler.Sample(pool, target))
}

// ImplementCount assigns exactly n balanced skins, or fewer when the catalog runs out.
func (im *Implementer) ImplementCount(ctx context.Context, productID string, n int) (AssignResult, error) {
	if n < 1 {
		return AssignResult{}, ErrInvalidCount
	}
	pool, err := im.availablePool(ctx, productID)
	if err != nil {
		return AssignResult{}, err
	}
	return im.assigner.Assign(ctx, productID, im.sampler.Sample(pool, n))
}

// ImplementCollection assigns every unowned stored skin of a collection plus extra
// random skins from other collections. It reads the stored catalog, so it works while
// the upstream API is down and sees collections edited after import.
func (im *Implementer) ImplementCollection(ctx context.Context, productID, collection string, extra int) (AssignResult, error) {
	if _, err := im.product(ctx, productID); err != nil {
		return AssignResult{}, err
	}
	owned, err := im.ownedSkinIDs(ctx, productID)
	if err != nil {
		return AssignResult{}, err
	}

	inCollection, _, err := im.store.ListSkins(ctx, store.SkinFilter{Collection: collection})
	if err != nil {
		return AssignResult{}, err
	}
	candidates := withoutOwned(inCollection, owned)
	if len(candidates) == 0 {
		return AssignResult{}, ErrNothingToAssign
	}

	if extra > 0 {
		others, _, err := im.store.ListSkins(ctx, store.SkinFilter{ExcludeCollection: collection})
		if err != nil {
			return AssignResult{}, err
		}
		candidates = append(candidates, im.sampler.Pick(withoutOwned(others, owned), extra)...)
	}
	return im.assigner.Assign(ctx, productID, candidates)
}

// ImplementSelection links catalog skins picked by id. Unknown ids count as failed.
func (im *Implementer) ImplementSelection(ctx context.Context, productID string, skinIDs []string) (AssignResult, error) {
	if _, err := im.product(ctx, productID); err != nil {
		return AssignResult{}, err
	}
	if len(skinIDs) == 0 {
		return AssignResult{}, ErrNothingToAssign
	}

	skins, err := im.store.FindSkinsByIDs(ctx, skinIDs)
	if err != nil {
		return AssignResult{}, err
	}
	known := make(map[string]bool, len(skins))
	for _, s := range skins {
		known[s.ID] = true
	}
	var unknown []string
	for _, id := range skinIDs {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}

	res, err := im.assigner.Assign(ctx, productID, skins)
	res.Failed += len(unknown)
	for _, id := range unknown {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: not in catalog", id))
	}
	return res, err
}

// RemoveLink unlinks one skin from a product
func (im *Implementer) RemoveLink(ctx context.Context, productID, linkID string) error {
	if _, err := im.product(ctx, productID); err != nil {
		return err
	}
	return im.store.DeleteLink(ctx, productID, linkID)
}

// AccountSkins lists the product's links with their skins
func (im *Implementer) AccountSkins(ctx context.Context, productID string) (models.Product, []models.AccountSkinLink, error) {
	p, err := im.product(ctx, productID)
	if err != nil {
		return p, nil, err
	}
	links, err := im.store.LinkedSkins(ctx, productID)
	return p, links, err
}

func (im *Implementer) product(ctx context.Context, productID string) (models.Product, error) {
	p, err := im.store.GetProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return p, ErrProductNotFound
	}
	return p, err
}

func (im *Implementer) ownedSkinIDs(ctx context.Context, productID string) (map[string]bool, error) {
	links, err := im.store.LinkedSkins(ctx, productID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(links))
	for _, l := range links {
		owned[l.SkinID] = true
	}
	return owned, nil
}

func withoutOwned(skins []models.Skin, owned map[string]bool) []models.Skin {
	out := make([]models.Skin, 0, len(skins))
	for _, s := range skins {
		if !owned[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// availablePool classifies the live catalog and drops skins the product already owns.
func (im *Implementer) availablePool(ctx context.Context, productID string) ([]models.Skin, error) {
	if _, err := im.product(ctx, productID); err != nil {
		return nil, err
	}
	skins, _, err := loadCatalog(ctx, im.source)
	if err != nil {
		return nil, err
	}
	links, err := im.store.LinkedSkins(ctx, productID)
	if err != nil {
		return nil, err
	}
	owned := make(map[models.NaturalKey]bool, len(links))
	for _, l := range links {
		if l.Skin != nil {
			owned[l.Skin.Key()] = true
		}
	}

	pool := make([]models.Skin, 0, len(skins))
	for _, s := range skins {
		if !owned[s.Key()] {
			pool = append(pool, s)
		}
	}
	if len(pool) == 0 {
		return nil, ErrNothingToAssign
	}
	return pool, nil
}
