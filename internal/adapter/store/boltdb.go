// Package store checkpoints coding task results in a bbolt database so an
// interrupted run can resume without repeating provider calls.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
	"thematic/internal/domain"
	"thematic/internal/port"
)

// ErrNotFound is returned when no result is stored under a key.
var ErrNotFound = errors.New("result not found")

var (
	bucketResults = []byte("results")
	bucketMeta    = []byte("meta")
)

var _ port.ResultStore = (*BoltStore)(nil)

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketResults, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

// Get returns the result stored under key, or ErrNotFound.
func (s *BoltStore) Get(key string) (domain.CoderResult, error) {
	var res domain.CoderResult
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketResults).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		if err := json.Unmarshal(data, &res); err != nil {
			return fmt.Errorf("decode result %s: %w", key, err)
		}
		return nil
	})
	if res.Codes == nil {
		res.Codes = []domain.Code{}
	}
	return res, err
}

// GetResult implements port.ResultStore.
func (s *BoltStore) GetResult(key string) (domain.CoderResult, bool, error) {
	res, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return domain.CoderResult{}, false, nil
	}
	if err != nil {
		return domain.CoderResult{}, false, err
	}
	return res, true, nil
}

// PutResult implements port.ResultStore.
func (s *BoltStore) PutResult(key string, result domain.CoderResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", key, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketResults).Put([]byte(key), data)
	})
}

func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketResults).Delete([]byte(key))
	})
}

// Count returns the number of stored results.
func (s *BoltStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketResults).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
