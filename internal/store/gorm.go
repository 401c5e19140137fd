package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"traking-shop/internal/models"
)

// GormStore implements Store on top of gorm
type GormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindSkinsBySkinExternalIDs(ctx context.Context, ids []string) ([]models.Skin, error) {
	var skins []models.Skin
	if len(ids) == 0 {
		return skins, nil
	}
	if err := s.db.WithContext(ctx).Where("skin_external_id IN ?", ids).Find(&skins).Error; err != nil {
		return nil, errors.Wrap(err, "find skins by external id")
	}
	return skins, nil
}

func (s *GormStore) FindSkinsByIDs(ctx context.Context, ids []string) ([]models.Skin, error) {
	var skins []models.Skin
	if len(ids) == 0 {
		return skins, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&skins).Error; err != nil {
		return nil, errors.Wrap(err, "find skins by id")
	}
	return skins, nil
}

// CreateSkins inserts the batch in a single statement
func (s *GormStore) CreateSkins(ctx context.Context, skins []models.Skin) error {
	if len(skins) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&skins).Error; err != nil {
		return errors.Wrapf(err, "insert %d skins", len(skins))
	}
	return nil
}

// UpdateSkinByKey rewrites the mutable columns of the row matching the skin's natural key
func (s *GormStore) UpdateSkinByKey(ctx context.Context, skin models.Skin) error {
	res := s.db.WithContext(ctx).Model(&models.Skin{}).
		Where("weapon_external_id = ? AND skin_external_id = ?", skin.WeaponExternalID, skin.SkinExternalID).
		Updates(map[string]interface{}{
			"weapon":     skin.Weapon,
			"name":       skin.Name,
			"image_url":  skin.ImageURL,
			"rarity":     skin.Rarity,
			"collection": skin.Collection,
		})
	return errors.Wrap(res.Error, "update skin")
}

func (s *GormStore) ListSkins(ctx context.Context, f SkinFilter) ([]models.Skin, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Skin{})
	if f.Weapon != "" {
		q = q.Where("weapon = ?", f.Weapon)
	}
	if f.Rarity != "" {
		q = q.Where("rarity = ?", f.Rarity)
	}
	if f.Collection != "" {
		q = q.Where("collection = ?", f.Collection)
	}
	if f.ExcludeCollection != "" {
		q = q.Where("collection <> ?", f.ExcludeCollection)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		q = q.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count skins")
	}

	q = q.Order("weapon").Order("name")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var skins []models.Skin
	if err := q.Find(&skins).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list skins")
	}
	return skins, total, nil
}

func (s *GormStore) Facets(ctx context.Context) (Facets, error) {
	var f Facets
	db := s.db.WithContext(ctx)
	for column, dst := range map[string]*[]string{
		"weapon":     &f.Weapons,
		"rarity":     &f.Rarities,
		"collection": &f.Collections,
	} {
		if err := db.Model(&models.Skin{}).Distinct(column).Order(column).Pluck(column, dst).Error; err != nil {
			return Facets{}, errors.Wrapf(err, "distinct %s", column)
		}
	}
	return f, nil
}

func (s *GormStore) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, errors.Wrap(err, "get product")
	}
	return p, nil
}

// LinkedSkins returns the product's links with their catalog skin preloaded
func (s *GormStore) LinkedSkins(ctx context.Context, productID string) ([]models.AccountSkinLink, error) {
	var links []models.AccountSkinLink
	err := s.db.WithContext(ctx).Preload("Skin").
		Where("product_id = ?", productID).
		Order("created_at").
		Find(&links).Error
	if err != nil {
		return nil, errors.Wrap(err, "find linked skins")
	}
	return links, nil
}

// CreateLinks inserts all links in one statement and refreshes the product's skins_count.
func (s *GormStore) CreateLinks(ctx context.Context, productID string, skinIDs []string) ([]models.AccountSkinLink, error) {
	links := make([]models.AccountSkinLink, 0, len(skinIDs))
	for _, id := range skinIDs {
		links = append(links, models.AccountSkinLink{ProductID: productID, SkinID: id})
	}
	if len(links) == 0 {
		return links, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&links).Error; err != nil {
			return errors.Wrapf(err, "insert %d links", len(links))
		}
		return refreshSkinsCount(tx, productID)
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (s *GormStore) DeleteLink(ctx context.Context, productID, linkID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND product_id = ?", linkID, productID).Delete(&models.AccountSkinLink{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete link")
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return refreshSkinsCount(tx, productID)
	})
}

func refreshSkinsCount(tx *gorm.DB, productID string) error {
	var n int64
	if err := tx.Model(&models.AccountSkinLink{}).Where("product_id = ?", productID).Count(&n).Error; err != nil {
		return errors.Wrap(err, "count links")
	}
	err := tx.Model(&models.Product{}).Where("id = ?", productID).Update("skins_count", n).Error
	return errors.Wrap(err, "update skins_count")
}
