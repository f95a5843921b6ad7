// Package dataset owns the persisted CSV dataset: loading it tolerantly,
// merging harvested batches into it, and rewriting it atomically.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/moazrovne/harvest-cli/internal/model"
)

// Load reads the dataset CSV at path. A missing or unparsable file is a cold
// start, not an error: the sweep proceeds from scratch. Rows whose fields do
// not convert are skipped individually.
func Load(path string) ([]model.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		zap.L().Warn("dataset unreadable, starting cold", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		zap.L().Warn("dataset header unparsable, starting cold", zap.String("path", path), zap.Error(err))
		return nil, nil
	}

	var questions []model.Question
	for {
		var q model.Question
		if err := dec.Decode(&q); err == io.EOF {
			break
		} else if err != nil {
			zap.L().Warn("skipping malformed dataset row", zap.Error(err))
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// NextID resolves the cursor: the next ID to probe is one past the maximum
// known ID. An empty dataset resolves to 1. Gaps below the maximum are
// irrelevant to the cursor.
func NextID(questions []model.Question) int {
	maxID := 0
	for _, q := range questions {
		if q.QuestionID > maxID {
			maxID = q.QuestionID
		}
	}
	return maxID + 1
}

// Merge unions existing and batch, deduplicated by question ID with the
// existing record winning, and returns the result sorted ascending by ID.
func Merge(existing, batch []model.Question) []model.Question {
	seen := make(map[int]struct{}, len(existing))
	merged := make([]model.Question, 0, len(existing)+len(batch))
	for _, q := range existing {
		if _, dup := seen[q.QuestionID]; dup {
			continue
		}
		seen[q.QuestionID] = struct{}{}
		merged = append(merged, q)
	}
	for _, q := range batch {
		if _, dup := seen[q.QuestionID]; dup {
			continue
		}
		seen[q.QuestionID] = struct{}{}
		merged = append(merged, q)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].QuestionID < merged[j].QuestionID
	})
	return merged
}

// Save rewrites the dataset wholesale: the CSV is written to a temp file in
// the same directory, fsynced, and renamed over the previous dataset. A
// failed write never replaces a previously good file; callers treat an error
// here as fatal for the run.
func Save(path string, questions []model.Question) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir %s", dir)
	}

	if questions == nil {
		questions = []model.Question{}
	}
	data, err := csvutil.Marshal(questions)
	if err != nil {
		return eris.Wrap(err, "dataset: marshal csv")
	}

	tmp, err := os.CreateTemp(dir, ".dataset-*.csv")
	if err != nil {
		return eris.Wrap(err, "dataset: create temp file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "dataset: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "dataset: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "dataset: close temp file")
	}
	_ = os.Chmod(tmpPath, 0o644)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrapf(err, "dataset: replace %s", path)
	}
	return nil
}
