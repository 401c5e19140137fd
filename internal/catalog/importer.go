package catalog

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"traking-shop/internal/models"
)

// CatalogSource is the remote catalog the importer reads
type CatalogSource interface {
	FetchWeapons(ctx context.Context) ([]models.CatalogWeapon, error)
	FetchContentTiers(ctx context.Context) (map[string]models.ContentTier, error)
}

const (
	StageFetch    = "fetch"
	StageClassify = "classify"
	StagePersist  = "persist"
	StageDone     = "done"

	progressEvery = 10
)

// ProgressEvent describes how far an import run has come
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

// Importer runs fetch, classify and persist in order
type Importer struct {
	source  CatalogSource
	gateway *Gateway
}

func NewImporter(src CatalogSource, gw *Gateway) *Importer {
	return &Importer{source: src, gateway: gw}
}

// Run imports the whole catalog. Fetch and classification failures abort the run;
// per-skin persistence failures only show up in the result.
func (im *Importer) Run(ctx context.Context, observer func(ProgressEvent)) (ImportResult, error) {
	emit := func(e ProgressEvent) {
		if observer != nil {
			observer(e)
		}
	}

	emit(ProgressEvent{Stage: StageFetch, Message: "fetching catalog"})
	skins, stats, err := loadCatalog(ctx, im.source)
	if err != nil {
		return ImportResult{}, err
	}
	emit(ProgressEvent{Stage: StageClassify, Done: stats.Classified, Total: stats.Classified + stats.Skipped + stats.Errors})

	res := im.gateway.UpsertWithProgress(ctx, skins, func(done, total int) {
		if done%progressEvery == 0 || done == total {
			emit(ProgressEvent{Stage: StagePersist, Done: done, Total: total})
		}
	})

	log.Ctx(ctx).Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("failed", res.Failed).
		Int("total", res.Total).
		Msg("catalog import finished")
	emit(ProgressEvent{Stage: StageDone, Done: res.Total, Total: res.Total})
	return res, nil
}

// loadCatalog fetches and classifies the live catalog. Missing tiers only degrade rarity.
func loadCatalog(ctx context.Context, src CatalogSource) ([]models.Skin, ClassifyStats, error) {
	weapons, err := src.FetchWeapons(ctx)
	if err != nil {
		return nil, ClassifyStats{}, errors.Wrap(err, "fetch weapons")
	}

	tiers, err := src.FetchContentTiers(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("content tiers unavailable, using default rarity")
		tiers = map[string]models.ContentTier{}
	}

	skins, stats, err := Classify(weapons, tiers)
	if err != nil {
		return nil, stats, err
	}
	log.Ctx(ctx).Info().
		Int("classified", stats.Classified).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Msg("catalog classified")
	return skins, stats, nil
}
