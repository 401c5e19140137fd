package models

// CatalogWeapon is a weapon entry from the external game-data catalog.
// Catalog types are transient and never persisted directly.
type CatalogWeapon struct {
	ID          string
	DisplayName string
	Skins       []CatalogSkinVariant
}

// CatalogSkinVariant is one skin offered for a weapon
type CatalogSkinVariant struct {
	ID              string
	DisplayName     string
	PrimaryImageURL string
	Chromas         []ChromaVariant
	TierID          string
	ThemeID         string
}

// ChromaVariant is a color variant of a skin
type ChromaVariant struct {
	ID            string
	DisplayName   string
	FullRenderURL string
	IconURL       string
}

// ContentTier classifies a skin's rarity. Rank is -1 when the catalog omits it.
type ContentTier struct {
	ID          string
	DisplayName string
	DevName     string
	Rank        int
}
