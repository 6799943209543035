/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists the channel configuration: per-club movie catalogs
// and cached display metadata. Loaded at startup, written on every mutation.
package store

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gorm.io/gorm/clause"
)

// CatalogEntry is one source file in a club's catalog. Position preserves the
// user-controlled order until the daily shuffle replaces it.
type CatalogEntry struct {
	ID       uint   `gorm:"primaryKey"`
	Club     string `gorm:"index:idx_catalog_club_position,priority:1"`
	Path     string
	Position int `gorm:"index:idx_catalog_club_position,priority:2"`
}

// MovieMetadata is a cached display record for a source path.
type MovieMetadata struct {
	Path      string `gorm:"primaryKey"`
	Title     string
	Plot      string
	PosterURL string
}

// Store wraps the sqlite-backed configuration database.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to the sqlite store and migrates the schema.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(&CatalogEntry{}, &MovieMetadata{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LoadCatalogs returns every club's catalog in stored order.
func (s *Store) LoadCatalogs() (map[string][]string, error) {
	var entries []CatalogEntry
	if err := s.db.Order("club ASC, position ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}

	catalogs := make(map[string][]string)
	for _, entry := range entries {
		catalogs[entry.Club] = append(catalogs[entry.Club], entry.Path)
	}
	return catalogs, nil
}

// ReplaceCatalog rewrites a club's catalog atomically.
func (s *Store) ReplaceCatalog(club string, paths []string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("club = ?", club).Delete(&CatalogEntry{}).Error; err != nil {
			return err
		}
		if len(paths) == 0 {
			return nil
		}
		entries := make([]CatalogEntry, len(paths))
		for i, path := range paths {
			entries[i] = CatalogEntry{Club: club, Path: path, Position: i}
		}
		return tx.Create(&entries).Error
	})
	if err != nil {
		return fmt.Errorf("replace catalog for %s: %w", club, err)
	}

	s.logger.Debug().Str("club", club).Int("entries", len(paths)).Msg("catalog persisted")
	return nil
}

// LoadMetadata returns all cached display records keyed by path.
func (s *Store) LoadMetadata() (map[string]MovieMetadata, error) {
	var records []MovieMetadata
	if err := s.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	meta := make(map[string]MovieMetadata, len(records))
	for _, record := range records {
		meta[record.Path] = record
	}
	return meta, nil
}

// SaveMetadata upserts a display record.
func (s *Store) SaveMetadata(record MovieMetadata) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		UpdateAll: true,
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("save metadata for %s: %w", record.Path, err)
	}
	return nil
}
