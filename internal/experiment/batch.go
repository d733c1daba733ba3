package experiment

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwbudde/mobench/internal/problem"
	"github.com/cwbudde/mobench/internal/solver"
	"github.com/cwbudde/mobench/internal/store"
)

// Flush describes one completed batch flush.
type Flush struct {
	Batch      int
	Size       int
	Completed  int
	Total      int
	Collisions []string
}

// BatchRunner runs experiment instances sequentially and persists their
// results in fixed-size batches.
type BatchRunner struct {
	Runner    *Runner
	Store     store.Store
	BatchSize int

	// Journal, if set, receives one entry per flush.
	Journal *store.JournalWriter

	// OnResult is called after each instance with its input index.
	OnResult func(index int, res *Result)
	// OnFlush is called after each successful flush.
	OnFlush func(Flush)
}

// Run executes configs in order and returns every result in input order.
//
// When all configs fit in one batch they are run first and written in a
// single flush. Otherwise results are flushed every BatchSize instances
// and once more for the final partial batch. A flush failure stops the run
// and is returned together with the results produced so far; results in the
// failed batch are not persisted.
func (b *BatchRunner) Run(configs []Config) ([]*Result, error) {
	if b.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", b.BatchSize)
	}
	if b.Runner == nil || b.Store == nil {
		return nil, fmt.Errorf("batch runner needs a runner and a store")
	}

	results := make([]*Result, 0, len(configs))
	if len(configs) == 0 {
		return results, nil
	}

	if len(configs) <= b.BatchSize {
		for i, cfg := range configs {
			results = append(results, b.run(i, cfg))
		}
		if err := b.flush(1, results, len(results), len(configs)); err != nil {
			return results, err
		}
		return results, nil
	}

	batch := make([]*Result, 0, b.BatchSize)
	flushes := 0
	for i, cfg := range configs {
		res := b.run(i, cfg)
		results = append(results, res)
		batch = append(batch, res)

		if len(batch) == b.BatchSize || i == len(configs)-1 {
			flushes++
			if err := b.flush(flushes, batch, len(results), len(configs)); err != nil {
				return results, err
			}
			batch = batch[:0]
		}
	}
	return results, nil
}

func (b *BatchRunner) run(i int, cfg Config) *Result {
	res := b.Runner.Run(cfg)
	if b.OnResult != nil {
		b.OnResult(i, res)
	}
	return res
}

func (b *BatchRunner) flush(n int, batch []*Result, completed, total int) error {
	entry := store.JournalEntry{
		Batch: n,
		Size:  len(batch),
		First: strings.Join(batch[0].Key(), "/"),
		Last:  strings.Join(batch[len(batch)-1].Key(), "/"),
	}

	tree, err := resultTree(batch)
	if err == nil {
		entry.Collisions, err = b.Store.Append(tree)
	}
	if err != nil {
		entry.Error = err.Error()
		b.journal(entry)
		slog.Error("Batch flush failed", "batch", n, "size", len(batch), "error", err)
		return fmt.Errorf("failed to flush batch %d: %w", n, err)
	}
	b.journal(entry)

	slog.Info("Batch flushed",
		"batch", n,
		"size", len(batch),
		"completed", completed,
		"total", total,
		"collisions", len(entry.Collisions),
	)
	if b.OnFlush != nil {
		b.OnFlush(Flush{Batch: n, Size: len(batch), Completed: completed, Total: total, Collisions: entry.Collisions})
	}
	return nil
}

func (b *BatchRunner) journal(entry store.JournalEntry) {
	if b.Journal == nil {
		return
	}
	if err := b.Journal.Write(entry); err != nil {
		slog.Warn("Failed to write journal entry", "batch", entry.Batch, "error", err)
	}
}

// resultTree places each result at its four-level key.
func resultTree(results []*Result) (*store.Tree, error) {
	tree := store.NewTree()
	for _, res := range results {
		data, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize result %s: %w", strings.Join(res.Key(), "/"), err)
		}
		if err := tree.Set(res.Key(), data); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// RunWithBatchSaving runs configs against the built-in registries and
// merges results into the store file at storePath every batchSize
// instances. Flushes are journaled next to the store.
func RunWithBatchSaving(configs []Config, batchSize int, storePath string) ([]*Result, error) {
	fs, err := store.NewFileStore(storePath)
	if err != nil {
		return nil, err
	}

	journal, err := store.NewJournalWriter(store.JournalPath(storePath), true)
	if err != nil {
		return nil, err
	}
	defer journal.Close()

	br := &BatchRunner{
		Runner:    NewRunner(problem.Builtin(), solver.Builtin()),
		Store:     fs,
		BatchSize: batchSize,
		Journal:   journal,
	}
	return br.Run(configs)
}
