package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// MetaFile holds store metadata next to the JSON snapshots
const MetaFile = "cache_meta.json"

// JSONStore keeps each snapshot in its own JSON object file
type JSONStore struct {
	rankPath    string
	variantPath string
	metaPath    string
	logger      logrus.FieldLogger
}

type jsonMeta struct {
	VocabularyVersion string `json:"vocabulary_version"`
}

// NewJSONStore creates a JSON file store under dir
func NewJSONStore(dir, rankFile, variantFile string, logger logrus.FieldLogger) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storageErr(err, "json", "create cache directory")
	}
	return &JSONStore{
		rankPath:    filepath.Join(dir, rankFile),
		variantPath: filepath.Join(dir, variantFile),
		metaPath:    filepath.Join(dir, MetaFile),
		logger:      logger,
	}, nil
}

func (s *JSONStore) LoadRanks(ctx context.Context) (map[string]int, error) {
	ranks := map[string]int{}
	if err := s.read(s.rankPath, &ranks); err != nil {
		return nil, err
	}
	return ranks, nil
}

// SaveRanks merges ranks into the file; entries already on disk are kept
// unless ranks carries the same key
func (s *JSONStore) SaveRanks(ctx context.Context, ranks map[string]int) error {
	merged, err := s.LoadRanks(ctx)
	if err != nil {
		return err
	}
	for k, v := range ranks {
		merged[k] = v
	}
	return s.write(s.rankPath, merged)
}

func (s *JSONStore) LoadVariants(ctx context.Context) (map[string][]string, error) {
	variants := map[string][]string{}
	if err := s.read(s.variantPath, &variants); err != nil {
		return nil, err
	}
	return variants, nil
}

func (s *JSONStore) SaveVariants(ctx context.Context, variants map[string][]string) error {
	merged, err := s.LoadVariants(ctx)
	if err != nil {
		return err
	}
	for k, v := range variants {
		merged[k] = v
	}
	return s.write(s.variantPath, merged)
}

func (s *JSONStore) VocabularyVersion(ctx context.Context) (string, error) {
	var meta jsonMeta
	if err := s.read(s.metaPath, &meta); err != nil {
		return "", err
	}
	return meta.VocabularyVersion, nil
}

func (s *JSONStore) SetVocabularyVersion(ctx context.Context, version string) error {
	return s.write(s.metaPath, jsonMeta{VocabularyVersion: version})
}

func (s *JSONStore) Clear(ctx context.Context) error {
	for _, path := range []string{s.rankPath, s.variantPath, s.metaPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return storageErr(err, "json", "remove "+path)
		}
	}
	return nil
}

func (s *JSONStore) Stats(ctx context.Context) (Stats, error) {
	ranks, err := s.LoadRanks(ctx)
	if err != nil {
		return Stats{}, err
	}
	variants, err := s.LoadVariants(ctx)
	if err != nil {
		return Stats{}, err
	}
	version, err := s.VocabularyVersion(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Backend:    "json",
		Location:   filepath.Dir(s.rankPath),
		Ranks:      len(ranks),
		Variants:   len(variants),
		Vocabulary: version,
	}, nil
}

func (s *JSONStore) Close() error {
	return nil
}

// read decodes path into v. A missing file leaves v untouched; a corrupt one
// is logged and treated as empty.
func (s *JSONStore) read(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return storageErr(err, "json", "read "+path)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("Cache file is corrupt, starting empty")
		return nil
	}
	return nil
}

// write replaces path atomically
func (s *JSONStore) write(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return storageErr(err, "json", "marshal "+filepath.Base(path))
	}

	tmp := fmt.Sprintf("%s.tmp", path)
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return storageErr(err, "json", "write "+tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return storageErr(err, "json", "rename "+tmp)
	}
	return nil
}
