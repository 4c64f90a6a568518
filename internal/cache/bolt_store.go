package cache

import (
	"fmt"

	"go.etcd.io/bbolt"
)

var bucketName = []byte("bytecode")

// BoltStore is the default embedded Store, one bbolt file per host
// process: a single file, one bucket, byte-slice keys.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens (creating if absent) a bbolt-backed Store at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: opening bolt store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: creating bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(key Key) ([]byte, bool, error) {
	var found []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key[:])
		if v != nil {
			found = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache: bolt get: %w", err)
	}
	return found, found != nil, nil
}

func (s *BoltStore) Put(key Key, bytecode []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(key[:], bytecode)
	})
	if err != nil {
		return fmt.Errorf("cache: bolt put: %w", err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
