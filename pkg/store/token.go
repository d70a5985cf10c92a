package store

import (
	bolt "go.etcd.io/bbolt"

	. "src.manglr.sh/pkg/store/storedefs"
)

func init() {
	initDB["initialize token table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketToken))
		return err
	}
}

// Token gets the stored token of an authentication controller.
func (s *dbStore) Token(authID string) (string, error) {
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketToken))
		v := b.Get([]byte(authID))
		if v == nil {
			return ErrNoToken
		}
		token = string(v)
		return nil
	})
	return token, err
}

// SetToken stores the token of an authentication controller.
func (s *dbStore) SetToken(authID, token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketToken))
		return b.Put([]byte(authID), []byte(token))
	})
}

// DelToken deletes the token of an authentication controller.
func (s *dbStore) DelToken(authID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketToken))
		return b.Delete([]byte(authID))
	})
}
