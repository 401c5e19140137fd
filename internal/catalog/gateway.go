package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"traking-shop/internal/models"
	"traking-shop/internal/store"
)

const (
	InsertChunkSize = 50
	LookupChunkSize = 20

	DefaultPause      = 200 * time.Millisecond
	DefaultPauseEvery = 50
)

// ImportResult is the scorecard of an upsert or bulk insert
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Total   int      `json:"total"`
	Errors  []string `json:"errors"`
}

func (r *ImportResult) fail(name string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", name, err))
}

// ProgressFunc receives the number of processed items out of total
type ProgressFunc func(done, total int)

// Gateway writes classified skins into the store keyed by their natural key
type Gateway struct {
	store      store.Store
	pause      time.Duration
	pauseEvery int
	sleep      func(ctx context.Context, d time.Duration) error
}

type GatewayOption func(*Gateway)

// WithPause sets the courtesy delay inserted every n items
func WithPause(d time.Duration, every int) GatewayOption {
	return func(g *Gateway) {
		g.pause = d
		g.pauseEvery = every
	}
}

func NewGateway(st store.Store, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:      st,
		pause:      DefaultPause,
		pauseEvery: DefaultPauseEvery,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Upsert creates or updates every skin by natural key
func (g *Gateway) Upsert(ctx context.Context, skins []models.Skin) ImportResult {
	return g.UpsertWithProgress(ctx, skins, nil)
}

// UpsertWithProgress looks existing rows up in chunks, updates them one by one and
// bulk-inserts the rest. Duplicate keys collapse onto the last occurrence.
func (g *Gateway) UpsertWithProgress(ctx context.Context, skins []models.Skin, progress ProgressFunc) ImportResult {
	res := ImportResult{Total: len(skins), Errors: []string{}}
	done := 0
	report := func(n int) {
		done += n
		if progress != nil {
			progress(done, res.Total)
		}
	}

	// last occurrence wins; occurrences remembers how many inputs fold into each key
	latest := make(map[models.NaturalKey]models.Skin)
	occurrences := make(map[models.NaturalKey]int)
	var order []models.NaturalKey
	for _, s := range skins {
		if err := validateSkin(s); err != nil {
			res.fail(s.Name, err)
			report(1)
			continue
		}
		k := s.Key()
		if _, seen := latest[k]; !seen {
			order = append(order, k)
		}
		latest[k] = s
		occurrences[k]++
	}
	if len(order) == 0 {
		return res
	}

	existing, err := g.Resolve(ctx, order)
	if err != nil {
		for _, k := range order {
			for i := 0; i < occurrences[k]; i++ {
				res.fail(latest[k].Name, err)
			}
		}
		report(len(skins) - done)
		return res
	}

	var toInsert []models.Skin
	i := 0
	for _, k := range order {
		s := latest[k]
		if _, ok := existing[k]; !ok {
			toInsert = append(toInsert, s)
			continue
		}
		if err := g.maybePause(ctx, i); err != nil {
			res.fail(s.Name, err)
			report(occurrences[k])
			continue
		}
		i++
		if err := g.store.UpdateSkinByKey(ctx, s); err != nil {
			for n := 0; n < occurrences[k]; n++ {
				res.fail(s.Name, err)
			}
		} else {
			res.Updated += occurrences[k]
		}
		report(occurrences[k])
	}

	for c, chunk := range chunkSkins(toInsert, InsertChunkSize) {
		if c > 0 {
			if err := g.sleep(ctx, g.pause); err != nil {
				g.failChunk(&res, chunk, occurrences, err)
				report(countOccurrences(chunk, occurrences))
				continue
			}
		}
		if err := g.store.CreateSkins(ctx, chunk); err != nil {
			log.Ctx(ctx).Warn().Err(err).Int("chunk", c).Int("size", len(chunk)).Msg("skin insert chunk failed")
			g.failChunk(&res, chunk, occurrences, err)
		} else {
			for _, s := range chunk {
				res.Created++
				res.Updated += occurrences[s.Key()] - 1
			}
		}
		report(countOccurrences(chunk, occurrences))
	}
	return res
}

// BulkInsert writes skins in chunks of InsertChunkSize without looking them up first.
// A failed chunk counts all its members as failed and later chunks still run.
func (g *Gateway) BulkInsert(ctx context.Context, skins []models.Skin) ImportResult {
	res := ImportResult{Total: len(skins), Errors: []string{}}
	for c, chunk := range chunkSkins(skins, InsertChunkSize) {
		if c > 0 {
			if err := g.sleep(ctx, g.pause); err != nil {
				g.failChunk(&res, chunk, nil, err)
				continue
			}
		}
		if err := g.store.CreateSkins(ctx, chunk); err != nil {
			g.failChunk(&res, chunk, nil, err)
			continue
		}
		res.Created += len(chunk)
	}
	return res
}

// FindByExternalIDs queries the store LookupChunkSize ids at a time
func (g *Gateway) FindByExternalIDs(ctx context.Context, ids []string) ([]models.Skin, error) {
	var out []models.Skin
	for start := 0; start < len(ids); start += LookupChunkSize {
		end := start + LookupChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		found, err := g.store.FindSkinsBySkinExternalIDs(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

// Resolve maps natural keys to stored skins; unknown keys are absent from the result.
func (g *Gateway) Resolve(ctx context.Context, keys []models.NaturalKey) (map[models.NaturalKey]models.Skin, error) {
	wanted := make(map[models.NaturalKey]bool, len(keys))
	seenID := make(map[string]bool, len(keys))
	var ids []string
	for _, k := range keys {
		wanted[k] = true
		if !seenID[k.SkinExternalID] {
			seenID[k.SkinExternalID] = true
			ids = append(ids, k.SkinExternalID)
		}
	}

	found, err := g.FindByExternalIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[models.NaturalKey]models.Skin, len(found))
	for _, s := range found {
		if wanted[s.Key()] {
			out[s.Key()] = s
		}
	}
	return out, nil
}

func (g *Gateway) maybePause(ctx context.Context, i int) error {
	if g.pauseEvery > 0 && i > 0 && i%g.pauseEvery == 0 {
		return g.sleep(ctx, g.pause)
	}
	return ctx.Err()
}

func (g *Gateway) failChunk(res *ImportResult, chunk []models.Skin, occurrences map[models.NaturalKey]int, err error) {
	for _, s := range chunk {
		n := 1
		if occurrences != nil {
			n = occurrences[s.Key()]
		}
		for i := 0; i < n; i++ {
			res.fail(s.Name, err)
		}
	}
}

func countOccurrences(chunk []models.Skin, occurrences map[models.NaturalKey]int) int {
	n := 0
	for _, s := range chunk {
		n += occurrences[s.Key()]
	}
	return n
}

func chunkSkins(skins []models.Skin, size int) [][]models.Skin {
	var chunks [][]models.Skin
	for start := 0; start < len(skins); start += size {
		end := start + size
		if end > len(skins) {
			end = len(skins)
		}
		chunks = append(chunks, skins[start:end])
	}
	return chunks
}

func validateSkin(s models.Skin) error {
	switch {
	case s.WeaponExternalID == "":
		return errors.New("missing weapon external id")
	case s.SkinExternalID == "":
		return errors.New("missing skin external id")
	case s.Weapon == "":
		return errors.New("missing weapon")
	case s.Name == "":
		return errors.New("missing name")
	}
	return nil
}
