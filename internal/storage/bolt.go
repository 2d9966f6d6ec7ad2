package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

var progressBucket = []byte("progress")

// BoltStore keeps values in a single-file bolt database.
type BoltStore struct {
	DB *bolt.DB
}

// NewBoltStore opens (creating if needed) the bolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating bolt directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(progressBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStore{DB: db}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.DB.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(progressBucket).Get([]byte(key))
		if v == nil {
			return notFound(key)
		}
		// Bolt values are only valid inside the transaction.
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *BoltStore) Put(_ context.Context, key string, value []byte) error {
	return s.DB.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(progressBucket).Put([]byte(key), value)
	})
}

func (s *BoltStore) Delete(_ context.Context, key string) error {
	return s.DB.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(progressBucket).Delete([]byte(key))
	})
}

func (s *BoltStore) HealthCheck(context.Context) error {
	return s.DB.View(func(tx *bolt.Tx) error {
		if tx.Bucket(progressBucket) == nil {
			return fmt.Errorf("bucket %s missing", progressBucket)
		}
		return nil
	})
}

// Close the bolt database and release the file lock.
func (s *BoltStore) Close() error {
	return s.DB.Close()
}
