package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var (
	ranksBucket    = []byte("ranks")
	variantsBucket = []byte("variants")
	metaBucket     = []byte("meta")

	vocabularyKey = []byte("vocabulary_version")
)

// BoltStore keeps snapshots in a bbolt file, one bucket per table. Values
// are JSON encoded.
type BoltStore struct {
	db     *bolt.DB
	path   string
	logger logrus.FieldLogger
}

// NewBoltStore opens (or creates) the bbolt file at path
func NewBoltStore(path string, logger logrus.FieldLogger) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, storageErr(err, "bolt", "create database directory")
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, storageErr(err, "bolt", "open "+path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{ranksBucket, variantsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, storageErr(err, "bolt", "create buckets")
	}

	return &BoltStore{db: db, path: path, logger: logger}, nil
}

func (s *BoltStore) LoadRanks(ctx context.Context) (map[string]int, error) {
	ranks := map[string]int{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(ranksBucket).ForEach(func(k, v []byte) error {
			var rank int
			if err := json.Unmarshal(v, &rank); err != nil {
				s.logger.WithField("key", string(k)).Warn("Skipping undecodable rank entry")
				return nil
			}
			ranks[string(k)] = rank
			return nil
		})
	})
	if err != nil {
		return nil, storageErr(err, "bolt", "load ranks")
	}
	return ranks, nil
}

func (s *BoltStore) SaveRanks(ctx context.Context, ranks map[string]int) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(ranksBucket)
		for k, rank := range ranks {
			data, err := json.Marshal(rank)
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(k), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr(err, "bolt", "save ranks")
	}
	return nil
}

func (s *BoltStore) LoadVariants(ctx context.Context) (map[string][]string, error) {
	variants := map[string][]string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(variantsBucket).ForEach(func(k, v []byte) error {
			var forms []string
			if err := json.Unmarshal(v, &forms); err != nil {
				s.logger.WithField("key", string(k)).Warn("Skipping undecodable variant entry")
				return nil
			}
			variants[string(k)] = forms
			return nil
		})
	})
	if err != nil {
		return nil, storageErr(err, "bolt", "load variants")
	}
	return variants, nil
}

func (s *BoltStore) SaveVariants(ctx context.Context, variants map[string][]string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(variantsBucket)
		for k, forms := range variants {
			if forms == nil {
				forms = []string{}
			}
			data, err := json.Marshal(forms)
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(k), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr(err, "bolt", "save variants")
	}
	return nil
}

func (s *BoltStore) VocabularyVersion(ctx context.Context) (string, error) {
	var version string
	err := s.db.View(func(tx *bolt.Tx) error {
		version = string(tx.Bucket(metaBucket).Get(vocabularyKey))
		return nil
	})
	if err != nil {
		return "", storageErr(err, "bolt", "read vocabulary version")
	}
	return version, nil
}

func (s *BoltStore) SetVocabularyVersion(ctx context.Context, version string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(vocabularyKey, []byte(version))
	})
	if err != nil {
		return storageErr(err, "bolt", "save vocabulary version")
	}
	return nil
}

func (s *BoltStore) Clear(ctx context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{ranksBucket, variantsBucket, metaBucket} {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr(err, "bolt", "clear")
	}
	return nil
}

func (s *BoltStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Backend: "bolt", Location: s.path}
	err := s.db.View(func(tx *bolt.Tx) error {
		stats.Ranks = tx.Bucket(ranksBucket).Stats().KeyN
		stats.Variants = tx.Bucket(variantsBucket).Stats().KeyN
		stats.Vocabulary = string(tx.Bucket(metaBucket).Get(vocabularyKey))
		return nil
	})
	if err != nil {
		return Stats{}, storageErr(err, "bolt", "stats")
	}
	return stats, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
