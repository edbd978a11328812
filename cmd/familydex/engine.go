package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/familydex/internal/config"
	"github.com/rohankatakam/familydex/internal/display"
	"github.com/rohankatakam/familydex/internal/family"
	"github.com/rohankatakam/familydex/internal/pokeapi"
	"github.com/rohankatakam/familydex/internal/ranking"
	"github.com/rohankatakam/familydex/internal/storage"
	"github.com/rohankatakam/familydex/internal/vocab"
)

// engine is everything one build run needs, wired from config
type engine struct {
	vocab     *vocab.Vocabulary
	client    *pokeapi.Client
	store     storage.Store
	ranks     *ranking.RankTable
	variants  *ranking.VariantCache
	resolver  *ranking.Resolver
	merger    *ranking.Merger
	assembler *family.Assembler
	renderer  *display.Formatter
	logger    logrus.FieldLogger
}

// loadVocabulary returns the vocabulary named by path, or the built-in one
func loadVocabulary(path string) (*vocab.Vocabulary, error) {
	if path == "" {
		return vocab.Default(), nil
	}
	return vocab.Load(path)
}

func clientConfig(c config.PokeAPIConfig) pokeapi.Config {
	return pokeapi.Config{
		BaseURL:          c.BaseURL,
		RequestInterval:  c.RequestInterval,
		Timeout:          c.Timeout,
		MaxRetries:       c.MaxRetries,
		UserAgent:        c.UserAgent,
		PayloadCacheSize: c.PayloadCacheSize,
	}
}

func newEngine(ctx context.Context, c *config.Config, logger logrus.FieldLogger) (*engine, error) {
	v, err := loadVocabulary(c.Vocabulary.Path)
	if err != nil {
		return nil, err
	}

	client, err := pokeapi.NewClient(clientConfig(c.PokeAPI), logger)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(c.Cache, logger)
	if err != nil {
		return nil, err
	}

	e := &engine{
		vocab:    v,
		client:   client,
		store:    store,
		ranks:    ranking.NewRankTable(),
		variants: ranking.NewVariantCache(),
		renderer: display.NewFormatter(v),
		logger:   logger,
	}
	if err := e.loadCaches(ctx); err != nil {
		store.Close()
		return nil, err
	}

	e.resolver = ranking.NewResolver(e.ranks, v, client, logger)
	e.merger = ranking.NewMerger(e.variants, v, client, logger)
	e.assembler = family.NewAssembler(v, e.merger, e.resolver)
	return e, nil
}

// loadCaches seeds the tables from the store. Variant lists depend on the
// vocabulary's exclusions, so a store written under another vocabulary
// version has them dropped. A store with no recorded version predates
// versioning and is read as the built-in vocabulary.
func (e *engine) loadCaches(ctx context.Context) error {
	ranks, err := e.store.LoadRanks(ctx)
	if err != nil {
		return err
	}
	variants, err := e.store.LoadVariants(ctx)
	if err != nil {
		return err
	}

	stored, err := e.store.VocabularyVersion(ctx)
	if err != nil {
		return err
	}
	if stored == "" {
		stored = vocab.DefaultVersion
	}
	if current := e.vocab.Version(); stored != current {
		e.logger.WithFields(logrus.Fields{
			"stored":   stored,
			"current":  current,
			"variants": len(variants),
		}).Info("Vocabulary changed, discarding cached variants")

		// ranks stay in memory and are written back by saveCaches
		if err := e.store.Clear(ctx); err != nil {
			return err
		}
		variants = nil
	}

	e.logger.WithFields(logrus.Fields{
		"ranks":    e.ranks.Load(ranks),
		"variants": e.variants.Load(variants),
	}).Info("Loaded caches")
	return nil
}

// saveCaches persists everything memoized this run
func (e *engine) saveCaches(ctx context.Context) error {
	if err := e.store.SaveRanks(ctx, e.ranks.Snapshot()); err != nil {
		return err
	}
	if err := e.store.SaveVariants(ctx, e.variants.Snapshot()); err != nil {
		return err
	}
	if err := e.store.SetVocabularyVersion(ctx, e.vocab.Version()); err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"ranks":    e.ranks.Len(),
		"variants": e.variants.Len(),
	}).Info("Saved caches")
	return nil
}

func (e *engine) Close() error {
	return e.store.Close()
}
