package valorant

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"traking-shop/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type weaponPayload struct {
	UUID        string            `json:"uuid" validate:"required"`
	DisplayName string            `json:"displayName" validate:"required"`
	Skins       []json.RawMessage `json:"skins" validate:"required"`
}

type skinPayload struct {
	UUID            string          `json:"uuid" validate:"required"`
	DisplayName     string          `json:"displayName" validate:"required"`
	DisplayIcon     *string         `json:"displayIcon"`
	Chromas         []chromaPayload `json:"chromas"`
	ContentTierUUID *string         `json:"contentTierUuid"`
	ThemeUUID       *string         `json:"themeUuid"`
}

type chromaPayload struct {
	UUID        string  `json:"uuid"`
	DisplayName string  `json:"displayName"`
	DisplayIcon *string `json:"displayIcon"`
	FullRender  *string `json:"fullRender"`
}

type tierPayload struct {
	UUID        string `json:"uuid" validate:"required"`
	DisplayName string `json:"displayName" validate:"required"`
	DevName     string `json:"devName"`
	Rank        *int   `json:"rank"`
}

// parseEnvelope checks the {status, data} envelope and returns the data elements.
func parseEnvelope(endpoint string, body []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, &InvalidResponseError{Endpoint: endpoint, Reason: "malformed JSON"}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, &InvalidResponseError{Endpoint: endpoint, Reason: "body is not an object"}
	}
	status := root.Get("status")
	if status.Type != gjson.Number || status.Int() != 200 {
		return nil, &InvalidResponseError{Endpoint: endpoint, Reason: "unexpected status " + status.Raw}
	}
	data := root.Get("data")
	if !data.IsArray() {
		return nil, &InvalidResponseError{Endpoint: endpoint, Reason: "data is not an array"}
	}
	items := data.Array()
	if len(items) == 0 {
		return nil, &InvalidResponseError{Endpoint: endpoint, Reason: "data is empty"}
	}
	return items, nil
}

func decodeWeapon(index int, raw string) (weaponPayload, error) {
	var p weaponPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, &ValidationError{Kind: "weapon", Index: index, Err: err}
	}
	if err := getValidator().Struct(p); err != nil {
		return p, &ValidationError{Kind: "weapon", Index: index, ID: p.UUID, Err: err}
	}
	return p, nil
}

func decodeSkin(index int, raw json.RawMessage) (models.CatalogSkinVariant, error) {
	var p skinPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.CatalogSkinVariant{}, &ValidationError{Kind: "skin", Index: index, Err: err}
	}
	if err := getValidator().Struct(p); err != nil {
		return models.CatalogSkinVariant{}, &ValidationError{Kind: "skin", Index: index, ID: p.UUID, Err: err}
	}

	v := models.CatalogSkinVariant{
		ID:              p.UUID,
		DisplayName:     p.DisplayName,
		PrimaryImageURL: deref(p.DisplayIcon),
		TierID:          deref(p.ContentTierUUID),
		ThemeID:         deref(p.ThemeUUID),
		Chromas:         make([]models.ChromaVariant, 0, len(p.Chromas)),
	}
	for _, c := range p.Chromas {
		v.Chromas = append(v.Chromas, models.ChromaVariant{
			ID:            c.UUID,
			DisplayName:   c.DisplayName,
			FullRenderURL: deref(c.FullRender),
			IconURL:       deref(c.DisplayIcon),
		})
	}
	return v, nil
}

func decodeTier(index int, raw string) (models.ContentTier, error) {
	var p tierPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return models.ContentTier{}, &ValidationError{Kind: "content tier", Index: index, Err: err}
	}
	if err := getValidator().Struct(p); err != nil {
		return models.ContentTier{}, &ValidationError{Kind: "content tier", Index: index, ID: p.UUID, Err: err}
	}
	rank := -1
	if p.Rank != nil {
		rank = *p.Rank
	}
	return models.ContentTier{ID: p.UUID, DisplayName: p.DisplayName, DevName: p.DevName, Rank: rank}, nil
}

// parseWeapons validates every weapon and skin individually; rejects are logged and dropped.
func parseWeapons(ctx context.Context, items []gjson.Result) []models.CatalogWeapon {
	weapons := make([]models.CatalogWeapon, 0, len(items))
	for i, item := range items {
		p, err := decodeWeapon(i, item.Raw)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("dropping weapon")
			continue
		}

		w := models.CatalogWeapon{
			ID:          p.UUID,
			DisplayName: p.DisplayName,
			Skins:       make([]models.CatalogSkinVariant, 0, len(p.Skins)),
		}
		for j, rs := range p.Skins {
			s, err := decodeSkin(j, rs)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("weapon", w.DisplayName).Msg("dropping skin")
				continue
			}
			w.Skins = append(w.Skins, s)
		}
		weapons = append(weapons, w)
	}
	return weapons
}

func parseTiers(ctx context.Context, items []gjson.Result) map[string]models.ContentTier {
	tiers := make(map[string]models.ContentTier, len(items))
	for i, item := range items {
		t, err := decodeTier(i, item.Raw)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("dropping content tier")
			continue
		}
		tiers[t.ID] = t
	}
	return tiers
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
