package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/moazrovne/harvest-cli/internal/dataset"
	"github.com/moazrovne/harvest-cli/internal/extract"
	"github.com/moazrovne/harvest-cli/internal/fetcher"
	"github.com/moazrovne/harvest-cli/internal/model"
)

// DocumentSource supplies raw documents for the sweep. *fetcher.Client is
// the production implementation; tests substitute an in-memory one.
type DocumentSource interface {
	Question(ctx context.Context, id int) ([]byte, fetcher.Origin, error)
	ArchivePage(ctx context.Context, page int) ([]byte, fetcher.Origin, error)
	Media(ctx context.Context, id int, url string) error
}

// Config tunes one engine. All knobs come from configuration, since the right
// buffer and streak values depend on the archive's actual gap structure.
type Config struct {
	DatasetPath        string
	Policy             Policy
	CheckpointInterval int // persist after this many newly harvested records
	ProgressEvery      int // log progress every N probed IDs
}

// Summary is the outcome of a completed run.
type Summary struct {
	NewRecords int
	LastID     int
	Probed     int
	Skipped    int
	Elapsed    time.Duration
}

// Engine runs sweeps against one dataset.
type Engine struct {
	source  DocumentSource
	extract extract.Extractor
	listing extract.ListingExtractor
	cfg     Config
	log     *zap.Logger
}

// New creates an Engine. listing may be nil when only ID sweeps are run.
func New(source DocumentSource, ex extract.Extractor, listing extract.ListingExtractor, cfg Config) *Engine {
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 25
	}
	return &Engine{
		source:  source,
		extract: ex,
		listing: listing,
		cfg:     cfg,
		log:     zap.L().With(zap.String("component", "sweep.engine")),
	}
}

// Run executes one sweep: resolve the cursor from the persisted dataset,
// probe IDs upward one at a time, and stop when the termination policy fires
// or the context is cancelled. Per-ID failures are skipped, never fatal; a
// persist failure is the only error that aborts the run.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	existing, err := dataset.Load(e.cfg.DatasetPath)
	if err != nil {
		return nil, err
	}

	st := NewState(dataset.NextID(existing))
	e.log.Info("sweep starting",
		zap.Int("start_id", st.CurrentID),
		zap.Int("existing_records", len(existing)),
		zap.Int("buffer_threshold", e.cfg.Policy.BufferThreshold),
		zap.Int("max_missing_streak", e.cfg.Policy.MaxMissingStreak),
	)

	var batch []model.Question
	sinceCheckpoint := 0

	for {
		if ctx.Err() != nil {
			e.log.Info("sweep interrupted", zap.Int("question_id", st.CurrentID))
			break
		}

		id := st.CurrentID
		switch e.probe(ctx, id, &st, &batch) {
		case outcomeFound:
			e.cfg.Policy.Observe(&st, id, true)
			sinceCheckpoint++
		case outcomeMissing:
			e.cfg.Policy.Observe(&st, id, false)
		case outcomeSkipped:
			// Neither found nor missing: the ID stays retryable and the
			// streak is untouched.
		}
		st.Probed++

		if sinceCheckpoint >= e.cfg.CheckpointInterval {
			existing, err = e.persist(existing, &batch)
			if err != nil {
				return nil, err
			}
			sinceCheckpoint = 0
		}

		if e.cfg.ProgressEvery > 0 && st.Probed%e.cfg.ProgressEvery == 0 {
			e.log.Info("sweep progress",
				zap.Int("question_id", id),
				zap.Int("harvested", st.Harvested),
				zap.Int("miss_streak", st.MissStreak),
				zap.Float64("ids_per_sec", st.Rate()),
			)
		}

		if e.cfg.Policy.ShouldStop(&st, id) {
			e.log.Info("live frontier passed, stopping",
				zap.Int("question_id", id),
				zap.Int("miss_streak", st.MissStreak),
			)
			break
		}
		st.CurrentID++
	}

	if _, err := e.persist(existing, &batch); err != nil {
		return nil, err
	}

	sum := &Summary{
		NewRecords: st.Harvested,
		LastID:     st.CurrentID,
		Probed:     st.Probed,
		Skipped:    st.Skipped,
		Elapsed:    time.Since(st.StartedAt),
	}
	e.log.Info("sweep complete",
		zap.Int("new_records", sum.NewRecords),
		zap.Int("last_id", sum.LastID),
		zap.Int("skipped", sum.Skipped),
		zap.Duration("elapsed", sum.Elapsed),
	)
	return sum, nil
}

type probeOutcome int

const (
	outcomeFound probeOutcome = iota
	outcomeMissing
	outcomeSkipped
)

// probe resolves and extracts a single ID. A fetch or parse failure counts
// as neither found nor missing: the ID was never cached or merged, so a
// later run retries it.
func (e *Engine) probe(ctx context.Context, id int, st *State, batch *[]model.Question) probeOutcome {
	doc, origin, err := e.source.Question(ctx, id)
	if err != nil {
		e.log.Warn("skipping question: fetch failed", zap.Int("question_id", id), zap.Error(err))
		st.Skipped++
		return outcomeSkipped
	}

	res, err := e.extract.Extract(doc)
	if err != nil {
		e.log.Warn("skipping question: extract failed", zap.Int("question_id", id), zap.Error(err))
		st.Skipped++
		return outcomeSkipped
	}
	if res.NotFound {
		e.log.Debug("question not found", zap.Int("question_id", id), zap.Stringer("origin", origin))
		return outcomeMissing
	}

	q := res.Question
	q.QuestionID = id
	*batch = append(*batch, q)
	st.Harvested++

	if q.HasImage() {
		if err := e.source.Media(ctx, id, q.ImageURL); err != nil {
			// The record stands; only the cached image is missing.
			e.log.Warn("media fetch failed", zap.Int("question_id", id), zap.Error(err))
		}
	}
	return outcomeFound
}

// persist merges the accumulated batch into the dataset and rewrites it.
// Returns the new merged dataset and empties the batch.
func (e *Engine) persist(existing []model.Question, batch *[]model.Question) ([]model.Question, error) {
	if len(*batch) == 0 {
		return existing, nil
	}
	merged := dataset.Merge(existing, *batch)
	if err := dataset.Save(e.cfg.DatasetPath, merged); err != nil {
		return nil, err
	}
	e.log.Debug("checkpoint persisted",
		zap.Int("batch", len(*batch)),
		zap.Int("total", len(merged)),
	)
	*batch = (*batch)[:0]
	return merged, nil
}
