// Package store is the persistent storage of manglr, backed by bbolt.
//
// It keeps the bearer tokens of authentication controllers, so that a user
// stays logged in across runs, and the last items fetched by each remote
// store, which are shown while the next fetch is in flight.
package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"src.manglr.sh/pkg/logutil"
	"src.manglr.sh/pkg/store/storedefs"
)

var logger = logutil.GetLogger("[store] ")

const (
	bucketToken = "token"
	bucketCache = "cache"
)

// Functions run in one transaction when the database is opened, keyed by
// description.
var initDB = map[string]func(*bolt.Tx) error{}

// DBStore is the permanent storage backend of manglr.
type DBStore interface {
	storedefs.Store
	Close() error
}

type dbStore struct {
	db *bolt.DB
}

// NewStore opens the database at dbname, creating it if needed.
func NewStore(dbname string) (DBStore, error) {
	db, err := bolt.Open(dbname, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return NewStoreFromDB(db)
}

// NewStoreFromDB creates a new Store from a bolt DB.
func NewStoreFromDB(db *bolt.DB) (DBStore, error) {
	logger.Println("initializing store")
	defer logger.Println("initialized store")
	st := &dbStore{db: db}
	err := db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return fmt.Errorf("failed to %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

// Close closes the database.
func (s *dbStore) Close() error {
	return s.db.Close()
}
