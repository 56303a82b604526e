package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fruitbox_backend/pkg/config"
)

var DB *gorm.DB

func InitDB(cfg config.DatabaseConfig) error {
	// PgBouncer no modo transaction não suporta prepared statements
	pgConfig := postgres.Config{
		DSN:                  cfg.URL,
		PreferSimpleProtocol: true,
	}

	gormConfig := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Error),
		PrepareStmt: false,
	}

	db, err := gorm.Open(postgres.New(pgConfig), gormConfig)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	DB = db
	log.Info().Msg("Database connected")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

// MigrateDatabase cria as tabelas que faltam e atualiza as existentes
func MigrateDatabase(db *gorm.DB, models ...interface{}) error {
	for _, model := range models {
		if !db.Migrator().HasTable(model) {
			if err := db.Migrator().CreateTable(model); err != nil {
				return fmt.Errorf("create table for %T: %w", model, err)
			}
			log.Info().Str("model", fmt.Sprintf("%T", model)).Msg("Created table")
			continue
		}
		if err := db.Migrator().AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
		log.Debug().Str("model", fmt.Sprintf("%T", model)).Msg("Updated table")
	}
	return nil
}
