package store

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"

	. "src.manglr.sh/pkg/store/storedefs"
)

func init() {
	initDB["initialize item cache table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCache))
		return err
	}
}

// CachedItems returns the last items cached for a remote store.
func (s *dbStore) CachedItems(storeID string) (Cache, error) {
	var c Cache
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCache))
		v := b.Get([]byte(storeID))
		if len(v) < 8 {
			return ErrNoCache
		}
		c.Seq = int(unmarshalSeq(v[:8]))
		c.Items = append([]byte(nil), v[8:]...)
		return nil
	})
	return c, err
}

// SetCachedItems caches the items of a remote store, replacing what was
// cached before. It returns the sequence number of the new entry.
func (s *dbStore) SetCachedItems(storeID string, items []byte) (int, error) {
	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCache))
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put([]byte(storeID), append(marshalSeq(seq), items...))
	})
	return int(seq), err
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
