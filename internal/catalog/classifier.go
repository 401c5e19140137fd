// Package catalog turns the remote Valorant catalog into stored skins and
// distributes them across sellable accounts.
package catalog

import (
	"fmt"
	"strings"

	"traking-shop/internal/models"
)

var rankRarity = map[int]string{
	0: models.RarityCommon,
	1: models.RarityRare,
	2: models.RarityEpic,
	3: models.RarityLegendary,
	4: models.RarityUltra,
}

// collectionMarkers is checked in order; the first substring found in the lower-cased name wins.
var collectionMarkers = []struct {
	marker string
	label  string
}{
	{"prime", "Prime"},
	{"elderflame", "Elderflame"},
	{"reaver", "Reaver"},
	{"glitchpop", "Glitchpop"},
	{"ion", "Ion"},
	{"sovereign", "Sovereign"},
	{"dragon", "Dragon"},
	{"oni", "Oni"},
	{"singularity", "Singularity"},
	{"spectrum", "Spectrum"},
	{"rgx", "RGX 11z Pro"},
	{"champions", "Champions"},
	{"forsaken", "Forsaken"},
	{"phantom", "Phantom"},
	{"vandal", "Vandal"},
	{"operator", "Operator"},
	{"sheriff", "Sheriff"},
	{"orion", "Orion"},
	{"nebula", "Nebula"},
	{"avalanche", "Avalanche"},
	{"magepunk", "Magepunk"},
	{"wasteland", "Wasteland"},
	{"luxe", "Luxe"},
	{"sakura", "Sakura"},
	{"convex", "Convex"},
	{"artisan", "Artisan"},
	{"sentinels", "Sentinels of Light"},
	{"ruination", "Ruination"},
	{"protocol", "Protocol 781-A"},
	{"infantry", "Infantry"},
	{"tethered", "Tethered Realms"},
}

// ClassifyStats summarises one classification pass
type ClassifyStats struct {
	Classified int            `json:"classified"`
	Skipped    int            `json:"skipped"`
	Errors     int            `json:"errors"`
	PerWeapon  map[string]int `json:"per_weapon"`
}

// Classify converts raw weapons into skin drafts. Standard and default-melee variants
// and variants without any image are skipped; a failing variant never stops its siblings.
func Classify(weapons []models.CatalogWeapon, tiers map[string]models.ContentTier) ([]models.Skin, ClassifyStats, error) {
	stats := ClassifyStats{PerWeapon: make(map[string]int)}
	var skins []models.Skin

	for _, w := range weapons {
		for _, v := range w.Skins {
			skin, ok, err := classifyVariant(w, v, tiers)
			switch {
			case err != nil:
				stats.Errors++
			case !ok:
				stats.Skipped++
			default:
				skins = append(skins, skin)
				stats.Classified++
				stats.PerWeapon[w.DisplayName]++
			}
		}
	}

	if len(skins) == 0 {
		return nil, stats, &EmptyResultError{Stage: "classification"}
	}
	return skins, stats, nil
}

func classifyVariant(w models.CatalogWeapon, v models.CatalogSkinVariant, tiers map[string]models.ContentTier) (skin models.Skin, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classify %q: %v", v.DisplayName, r)
		}
	}()

	if w.ID == "" || v.ID == "" || strings.TrimSpace(v.DisplayName) == "" {
		return skin, false, fmt.Errorf("variant of %q is missing identifiers", w.DisplayName)
	}
	if IsStandard(w.DisplayName, v.DisplayName) {
		return skin, false, nil
	}
	image := resolveImage(v)
	if image == "" {
		return skin, false, nil
	}

	return models.Skin{
		Weapon:           w.DisplayName,
		Name:             v.DisplayName,
		ImageURL:         image,
		Rarity:           resolveRarity(v.TierID, tiers),
		Collection:       CollectionOf(v.DisplayName),
		WeaponExternalID: w.ID,
		SkinExternalID:   v.ID,
	}, true, nil
}

// IsStandard reports whether a variant is the weapon's default skin
func IsStandard(weaponName, skinName string) bool {
	weapon := strings.ToLower(strings.TrimSpace(weaponName))
	name := strings.ToLower(strings.TrimSpace(skinName))
	if name == weapon || strings.Contains(name, "standard") {
		return true
	}
	return strings.Contains(name, "melee") && strings.Contains(weapon, "melee")
}

func resolveImage(v models.CatalogSkinVariant) string {
	for _, c := range v.Chromas {
		if c.FullRenderURL != "" {
			return c.FullRenderURL
		}
	}
	for _, c := range v.Chromas {
		if c.IconURL != "" {
			return c.IconURL
		}
	}
	return v.PrimaryImageURL
}

func resolveRarity(tierID string, tiers map[string]models.ContentTier) string {
	if tierID == "" {
		return models.RarityCommon
	}
	tier, ok := tiers[tierID]
	if !ok {
		return models.RarityCommon
	}
	if r, ok := rankRarity[tier.Rank]; ok {
		return r
	}
	if tier.DisplayName != "" {
		return tier.DisplayName
	}
	return models.RarityCommon
}

// CollectionOf infers a skin's collection from its display name
func CollectionOf(name string) string {
	lower := strings.ToLower(name)
	for _, m := range collectionMarkers {
		if strings.Contains(lower, m.marker) {
			return m.label
		}
	}
	return models.DefaultCollection
}

// RarityType maps a rarity to the storefront badge code
func RarityType(rarity string) string {
	switch strings.ToLower(rarity) {
	case "legendary", "ultra":
		return "LIT"
	case "epic":
		return "Exc"
	case "rare":
		return "Pro"
	default:
		return "Del"
	}
}
