package database

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"traking-shop/internal/models"
)

// Initialize opens the MySQL catalog database and runs migrations
func Initialize(databaseURL string) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MySQL database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying sql.DB")
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Msg("database initialized")
	return db, nil
}

// Migrate creates or updates the catalog tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Skin{}, &models.Product{}, &models.AccountSkinLink{}); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	for _, idx := range []struct {
		model interface{}
		name  string
	}{
		{&models.Skin{}, "idx_skins_natural_key"},
		{&models.AccountSkinLink{}, "idx_account_skins_product_skin"},
	} {
		if err := ensureIndex(db, idx.model, idx.name); err != nil {
			log.Warn().Err(err).Str("index", idx.name).Msg("migration warning")
		}
	}
	return nil
}

// ensureIndex adds a unique index to tables created before it was declared
func ensureIndex(db *gorm.DB, model interface{}, name string) error {
	if db.Migrator().HasIndex(model, name) {
		return nil
	}
	if err := db.Migrator().CreateIndex(model, name); err != nil {
		return errors.Wrapf(err, "create index %s", name)
	}
	log.Info().Str("index", name).Msg("added missing index")
	return nil
}
