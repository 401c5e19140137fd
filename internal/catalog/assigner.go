package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"traking-shop/internal/models"
	"traking-shop/internal/store"
)

// AssignResult is the scorecard of one assignment
type AssignResult struct {
	Linked               int            `json:"linked"`
	Skipped              int            `json:"skipped"`
	Failed               int            `json:"failed"`
	DistributionByWeapon map[string]int `json:"distribution_by_weapon"`
	Errors               []string       `json:"errors"`
}

// Assigner links catalog skins to a product without ever linking one twice
type Assigner struct {
	store   store.Store
	gateway *Gateway
}

func NewAssigner(st store.Store, gw *Gateway) *Assigner {
	return &Assigner{store: st, gateway: gw}
}

// Assign links candidates to productID. Already-linked or repeated candidates are
// skipped, unknown ones get one insert attempt, and all new links go in one insert.
// Running it twice with the same candidates links nothing the second time.
func (a *Assigner) Assign(ctx context.Context, productID string, candidates []models.Skin) (AssignResult, error) {
	res := AssignResult{DistributionByWeapon: map[string]int{}, Errors: []string{}}

	links, err := a.store.LinkedSkins(ctx, productID)
	if err != nil {
		return res, err
	}
	linkedIDs := make(map[string]bool, len(links))
	linkedKeys := make(map[models.NaturalKey]bool, len(links))
	for _, l := range links {
		linkedIDs[l.SkinID] = true
		if l.Skin != nil {
			linkedKeys[l.Skin.Key()] = true
		}
	}

	seen := make(map[models.NaturalKey]bool, len(candidates))
	var pending []models.Skin
	for _, c := range candidates {
		k := c.Key()
		if linkedKeys[k] || seen[k] || (c.ID != "" && linkedIDs[c.ID]) {
			res.Skipped++
			continue
		}
		seen[k] = true
		pending = append(pending, c)
	}

	resolved, err := a.resolve(ctx, pending, &res)
	if err != nil {
		return res, err
	}

	var skinIDs []string
	var toLink []models.Skin
	for _, s := range resolved {
		if linkedIDs[s.ID] {
			res.Skipped++
			continue
		}
		linkedIDs[s.ID] = true
		skinIDs = append(skinIDs, s.ID)
		toLink = append(toLink, s)
	}
	if len(skinIDs) == 0 {
		return res, nil
	}

	if _, err := a.store.CreateLinks(ctx, productID, skinIDs); err != nil {
		res.Failed += len(skinIDs)
		res.Errors = append(res.Errors, err.Error())
		return res, &PersistenceError{Op: "insert account skins", Count: len(skinIDs), Err: err}
	}
	res.Linked = len(skinIDs)
	for _, s := range toLink {
		res.DistributionByWeapon[s.Weapon]++
	}

	log.Ctx(ctx).Info().
		Str("product_id", productID).
		Int("linked", res.Linked).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("skins assigned")
	return res, nil
}

// resolve maps candidates to stored rows, inserting unknown keys once.
func (a *Assigner) resolve(ctx context.Context, pending []models.Skin, res *AssignResult) ([]models.Skin, error) {
	if len(pending) == 0 {
		return nil, nil
	}
	keys := make([]models.NaturalKey, 0, len(pending))
	for _, c := range pending {
		keys = append(keys, c.Key())
	}

	found, err := a.gateway.Resolve(ctx, keys)
	if err != nil {
		return nil, err
	}

	var missing []models.Skin
	for _, c := range pending {
		if _, ok := found[c.Key()]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		// pending is unique by key and Resolve just missed these, so no lookup is needed
		up := a.gateway.BulkInsert(ctx, missing)
		log.Ctx(ctx).Info().Int("missing", len(missing)).Int("created", up.Created).Msg("inserted unknown skins before linking")

		retry := make([]models.NaturalKey, 0, len(missing))
		for _, m := range missing {
			retry = append(retry, m.Key())
		}
		again, err := a.gateway.Resolve(ctx, retry)
		if err != nil {
			return nil, err
		}
		for k, v := range again {
			found[k] = v
		}
	}

	out := make([]models.Skin, 0, len(pending))
	for _, c := range pending {
		s, ok := found[c.Key()]
		if !ok {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: not in catalog", c.Name))
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
