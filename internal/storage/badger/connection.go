package badger

import (
	"fmt"
	"os"
	"path/filepath"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
)

// BadgerDB manages the Badger database connection shared by the task and
// capture stores.
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config common.BadgerConfig
}

// NewBadgerDB opens (and if needed creates) the Badger database.
func NewBadgerDB(cfg *common.Config, logger arbor.ILogger) (*BadgerDB, error) {
	badgerCfg := cfg.Storage.Badger

	if badgerCfg.ResetOnStartup {
		if _, err := os.Stat(badgerCfg.Path); err == nil {
			logger.Debug().Str("path", badgerCfg.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(badgerCfg.Path); err != nil {
				logger.Warn().Err(err).Str("path", badgerCfg.Path).Msg("Failed to delete database directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(badgerCfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = badgerCfg.Path
	options.ValueDir = badgerCfg.Path
	options.Logger = nil // silence badger's own logger, arbor handles logging

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", badgerCfg.Path).Msg("Badger database initialized")

	return &BadgerDB{
		store:  store,
		logger: logger,
		config: badgerCfg,
	}, nil
}

// Store returns the underlying badgerhold store.
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Ping verifies the database is reachable by running an empty read
// transaction. Used by the health endpoint.
func (b *BadgerDB) Ping() error {
	if b.store == nil {
		return fmt.Errorf("database not open")
	}
	return b.store.Badger().View(func(tx *badgerdb.Txn) error { return nil })
}

// Close closes the database connection.
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
