package sweep

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/moazrovne/harvest-cli/internal/dataset"
	"github.com/moazrovne/harvest-cli/internal/model"
)

// Backfill harvests the paged archive listing instead of probing IDs: pages
// firstPage..lastPage are resolved through the same write-through cache, each
// page yields many questions, and the batch flows through the same merge and
// persist path as a sweep. A page that fails to fetch is skipped; an empty
// page means the listing has ended.
func (e *Engine) Backfill(ctx context.Context, firstPage, lastPage int) (*Summary, error) {
	if e.listing == nil {
		return nil, eris.New("sweep: backfill needs a listing extractor")
	}

	existing, err := dataset.Load(e.cfg.DatasetPath)
	if err != nil {
		return nil, err
	}

	log := e.log.With(zap.String("mode", "backfill"))
	log.Info("backfill starting",
		zap.Int("first_page", firstPage),
		zap.Int("last_page", lastPage),
		zap.Int("existing_records", len(existing)),
	)

	start := time.Now()
	initial := len(existing)
	var batch []model.Question
	probed, skipped := 0, 0

	for page := firstPage; page <= lastPage; page++ {
		if ctx.Err() != nil {
			log.Info("backfill interrupted", zap.Int("page", page))
			break
		}

		doc, origin, err := e.source.ArchivePage(ctx, page)
		if err != nil {
			log.Warn("skipping page: fetch failed", zap.Int("page", page), zap.Error(err))
			skipped++
			continue
		}

		questions, err := e.listing.ExtractListing(doc)
		if err != nil {
			log.Warn("skipping page: extract failed", zap.Int("page", page), zap.Error(err))
			skipped++
			continue
		}
		probed++

		if len(questions) == 0 {
			log.Info("empty listing page, stopping", zap.Int("page", page))
			break
		}

		log.Debug("page extracted",
			zap.Int("page", page),
			zap.Int("questions", len(questions)),
			zap.Stringer("origin", origin),
		)
		batch = append(batch, questions...)

		if len(batch) >= e.cfg.CheckpointInterval {
			existing, err = e.persist(existing, &batch)
			if err != nil {
				return nil, err
			}
		}
	}

	merged := dataset.Merge(existing, batch)
	if len(batch) > 0 {
		if err := dataset.Save(e.cfg.DatasetPath, merged); err != nil {
			return nil, err
		}
	}

	sum := &Summary{
		NewRecords: len(merged) - initial,
		LastID:     dataset.NextID(merged) - 1,
		Probed:     probed,
		Skipped:    skipped,
		Elapsed:    time.Since(start),
	}
	log.Info("backfill complete",
		zap.Int("new_records", sum.NewRecords),
		zap.Int("pages", probed),
		zap.Int("skipped", skipped),
		zap.Duration("elapsed", sum.Elapsed),
	)
	return sum, nil
}
