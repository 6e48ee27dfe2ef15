package localcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Collection slot keys. Every caller goes through Get/Set/Delete with one of
// these (or a blob URL key); nothing else touches the underlying file.
const (
	KeyCart               = "cart"
	KeyWishlist           = "wishlist"
	KeyProducts           = "products"
	KeyOrders             = "orders"
	KeyCustomers          = "customers"
	KeyAdminNotifications = "adminNotifications"
	KeyCurrentUser        = "currentUser"
)

const bucketName = "collections"

// Store is the on-device mirror of the remote collections. Accessors treat
// each Get/mutate/Set round trip as their atomic step; bbolt serializes the
// underlying transactions.
type Store struct {
	db *bolt.DB
}

// Open initializes the bbolt file and ensures the bucket exists.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache file: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying file.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the raw value stored under key, with found=false when absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, bolt.ErrDatabaseNotOpen
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if raw != nil {
			value = append([]byte(nil), raw...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, value != nil, nil
}

// Set stores value under key, replacing any previous snapshot. A canceled
// context aborts before the write commits.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), value)
	})
}

// Delete removes the slot for key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// GetJSON decodes the slot for key into T. Absent slots return the zero value
// with found=false.
func GetJSON[T any](ctx context.Context, s *Store, key string) (T, bool, error) {
	var value T
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return value, false, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("decoding cached %s: %w", key, err)
	}
	return value, true, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON[T any](ctx context.Context, s *Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cached %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
