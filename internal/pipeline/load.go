package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/trailmesh/traceflow/internal/document"
	"github.com/trailmesh/traceflow/internal/domain"
	"github.com/trailmesh/traceflow/internal/index"
	"github.com/trailmesh/traceflow/internal/logger"
	"github.com/trailmesh/traceflow/internal/storage"
)

// Loader is the dedup-and-load engine. Per event it computes the
// canonical content hash, claims it atomically on the hash store,
// enriches survivors with the document context, and bulk-indexes them.
//
// Compensation ordering is fixed: claim, then index, then either keep
// the claim (index success) or release it (index failure). Claiming
// after indexing would reopen the duplicate race; keeping a claim whose
// index write failed would silently drop the event forever.
type Loader struct {
	hashes  HashStore
	indexer index.Indexer
	archive storage.ObjectStorage
	log     *logger.Logger
	workers int
}

// LoaderConfig holds configuration for the load engine.
type LoaderConfig struct {
	Workers int
}

// NewLoader creates a Loader. archive may be nil when no object storage
// is configured; normalized content is then not archived.
func NewLoader(hashes HashStore, indexer index.Indexer, archive storage.ObjectStorage, log *logger.Logger, cfg *LoaderConfig) *Loader {
	workers := 4
	if cfg != nil && cfg.Workers > 0 {
		workers = cfg.Workers
	}
	return &Loader{
		hashes:  hashes,
		indexer: indexer,
		archive: archive,
		log:     log,
		workers: workers,
	}
}

// claimedEvent is one event that won its hash claim during this run.
type claimedEvent struct {
	hash    string
	payload map[string]interface{}
}

// Load deduplicates and indexes the events of the normalized content.
// Duplicates are dropped silently; per-event index failures release
// their claims and are reported in aggregate without failing the stage;
// a batch-level index error releases every claim made during this
// attempt and fails with FailureIndexingFailed.
func (l *Loader) Load(ctx context.Context, doc *domain.Document, normalized []byte) (*LoadStats, error) {
	parsed, err := document.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to decode normalized content: %w", err)
	}

	stats := &LoadStats{TotalEvents: len(parsed.Events)}
	if stats.TotalEvents == 0 {
		return stats, nil
	}

	enrichment := enrichmentContext(doc)

	// Hash and claim events concurrently. claimed is indexed by event
	// position so batch order stays deterministic without a lock.
	claimed := make([]*claimedEvent, len(parsed.Events))
	var duplicates int64
	var firstErr error
	var errOnce sync.Once

	jobs := make(chan int, l.workers*2)
	var wg sync.WaitGroup
	for w := 0; w < l.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				ev := parsed.Events[i]

				hash, err := document.CanonicalHash(ev.Raw)
				if err != nil {
					errOnce.Do(func() { firstErr = fmt.Errorf("failed to hash event %d: %w", i, err) })
					continue
				}

				won, err := l.hashes.Claim(ctx, hash, doc.ID)
				if err != nil {
					errOnce.Do(func() { firstErr = fmt.Errorf("failed to claim event %d: %w", i, err) })
					continue
				}
				if !won {
					atomic.AddInt64(&duplicates, 1)
					continue
				}

				claimed[i] = &claimedEvent{hash: hash, payload: enrich(ev, enrichment)}
			}
		}()
	}

	for i := range parsed.Events {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	stats.DuplicatesDropped = int(duplicates)

	batch := make([]claimedEvent, 0, len(parsed.Events))
	hashes := make([]string, 0, len(parsed.Events))
	for _, ce := range claimed {
		if ce != nil {
			batch = append(batch, *ce)
			hashes = append(hashes, ce.hash)
		}
	}

	// Cancellation or claim failure mid-load: hand back every claim this
	// attempt made so a retry can re-process the document from scratch.
	if ctx.Err() != nil {
		l.releaseClaims(hashes)
		return nil, fmt.Errorf("load aborted: %w", ctx.Err())
	}
	if firstErr != nil {
		l.releaseClaims(hashes)
		return nil, firstErr
	}

	if len(batch) == 0 {
		// Nothing new: every event was a duplicate. That is a success.
		return stats, nil
	}

	payloads := make([]map[string]interface{}, len(batch))
	for i, ce := range batch {
		payloads[i] = ce.payload
	}

	results, err := l.indexer.BulkIndex(ctx, payloads)
	if err != nil {
		l.releaseClaims(hashes)
		return nil, domain.WrapStageError(domain.FailureIndexingFailed, err, "bulk index of %d events failed", len(batch))
	}

	var failedHashes []string
	for i, res := range results {
		if res.Failed {
			stats.IndexFailures++
			failedHashes = append(failedHashes, batch[i].hash)
			l.log.WithFields(logger.Fields{
				logger.FieldDocumentID: doc.ID,
				"hash":                 batch[i].hash,
			}).Warn("Event index write failed, claim released: " + res.Detail)
		} else {
			stats.EventsIndexed++
		}
	}
	l.releaseClaims(failedHashes)

	l.archiveNormalized(doc, normalized)

	return stats, nil
}

// releaseClaims hands claims back with a fresh context so compensation
// still runs when the stage context is already cancelled.
func (l *Loader) releaseClaims(hashes []string) {
	if len(hashes) == 0 {
		return
	}
	if err := l.hashes.ReleaseAll(context.Background(), hashes); err != nil {
		l.log.WithError(err).WithField(logger.FieldCount, len(hashes)).Error("Failed to release event hash claims")
	}
}

// archiveNormalized stores the normalized content next to the raw
// document. Best effort: archiving is observability, not pipeline state.
func (l *Loader) archiveNormalized(doc *domain.Document, normalized []byte) {
	if l.archive == nil || doc.StorageKey == "" {
		return
	}
	key := storage.NormalizedKey(doc.StorageKey)
	err := l.archive.Upload(context.Background(), key, bytes.NewReader(normalized), int64(len(normalized)), "application/json")
	if err != nil {
		l.log.WithError(err).WithField("storage_key", key).Warn("Failed to archive normalized content")
	}
}

// enrichmentContext derives the static fields stamped onto every
// surviving event before indexing.
func enrichmentContext(doc *domain.Document) map[string]interface{} {
	return map[string]interface{}{
		"documentId":      doc.ID,
		"documentName":    doc.Name,
		"source":          doc.Metadata.Source,
		"destination":     doc.Metadata.Destination,
		"billingParty":    doc.Metadata.Destination,
		"primaryProduct":  doc.Metadata.PrimaryProduct,
	}
}

// enrich merges the enrichment context into a copy of the event fields.
// Event fields win on collision; the original event is never mutated.
func enrich(ev document.Event, context map[string]interface{}) map[string]interface{} {
	payload := make(map[string]interface{}, len(ev.Fields)+len(context))
	for k, v := range context {
		payload[k] = v
	}
	for k, v := range ev.Fields {
		payload[k] = v
	}
	return payload
}
