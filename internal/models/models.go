package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rarity labels derived from a content tier rank
const (
	RarityCommon    = "Common"
	RarityRare      = "Rare"
	RarityEpic      = "Epic"
	RarityLegendary = "Legendary"
	RarityUltra     = "Ultra"

	DefaultCollection = "Standard"
)

// NaturalKey identifies a skin across re-imports
type NaturalKey struct {
	WeaponExternalID string `json:"weapon_external_id"`
	SkinExternalID   string `json:"skin_external_id"`
}

// Skin represents a classified catalog skin
type Skin struct {
	ID               string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Weapon           string    `json:"weapon" gorm:"not null;index"`
	Name             string    `json:"name" gorm:"not null"`
	ImageURL         string    `json:"image_url" gorm:"type:text"`
	Rarity           string    `json:"rarity" gorm:"index"`
	Collection       string    `json:"collection" gorm:"index;default:'Standard'"`
	WeaponExternalID string    `json:"weapon_external_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_skins_natural_key"`
	SkinExternalID   string    `json:"skin_external_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_skins_natural_key"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (s *Skin) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Key returns the skin's natural key
func (s Skin) Key() NaturalKey {
	return NaturalKey{WeaponExternalID: s.WeaponExternalID, SkinExternalID: s.SkinExternalID}
}

// AccountSkinLink associates a catalog skin with a sellable account
type AccountSkinLink struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_account_skins_product_skin"`
	SkinID    string    `json:"skin_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_account_skins_product_skin"`
	Skin      *Skin     `json:"skin,omitempty" gorm:"foreignKey:SkinID"`
	CreatedAt time.Time `json:"created_at"`
}

func (AccountSkinLink) TableName() string {
	return "account_skins"
}

func (l *AccountSkinLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// Product represents a sellable game account listing
type Product struct {
	ID         string            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CategoryID *string           `json:"category_id" gorm:"type:varchar(36);index"`
	Name       string            `json:"name" gorm:"not null"`
	Price      float64           `json:"price"`
	SkinsCount int               `json:"skins_count" gorm:"default:0"`
	Links      []AccountSkinLink `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
