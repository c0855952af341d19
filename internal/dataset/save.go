package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"liepavoice/internal/clipindex"
	"liepavoice/internal/fileutil"
	"liepavoice/internal/logging"
	"liepavoice/internal/media/audio"
	"liepavoice/internal/services"
)

// Split names in the order they are written.
const (
	SplitTrain = "train"
	SplitTest  = "test"
)

// File names written at the dataset root and in each split.
const (
	DictFileName = "dataset_dict.json"
	InfoFileName = "dataset_info.json"
	CardFileName = "README.md"
)

// Resampler converts a clip into a WAV file at the target format.
type Resampler interface {
	Resample(ctx context.Context, src, dst string, target audio.Format) (audio.WAVInfo, error)
}

// SaveOptions describes the dataset being written.
type SaveOptions struct {
	PrettyName string
	TestSize   float64
	Groups     []string
}

// SplitSummary describes one written split.
type SplitSummary struct {
	Name            string
	Records         int
	DurationSeconds float64
}

// SaveResult summarizes a saved dataset.
type SaveResult struct {
	Dir    string
	Seed   uint64
	Splits []SplitSummary
}

// Records totals the records across splits.
func (r SaveResult) Records() int {
	total := 0
	for _, s := range r.Splits {
		total += s.Records
	}
	return total
}

// Save materializes the split under dir, replacing any dataset already there.
// The new dataset is staged beside dir and swapped in only once complete.
func (s Split) Save(ctx context.Context, dir string, resampler Resampler, opts SaveOptions, logger *slog.Logger) (SaveResult, error) {
	logger = logging.NewComponentLogger(logger, "assembler")
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return SaveResult{}, services.Wrap(services.ErrConfiguration, stageName, "save", "create dataset parent", err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".staging-*")
	if err != nil {
		return SaveResult{}, services.Wrap(services.ErrConfiguration, stageName, "save", "create staging directory", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	result := SaveResult{Dir: dir, Seed: s.Seed}
	var format *audio.Format
	for _, part := range []struct {
		name string
		ds   *Dataset
	}{{SplitTrain, s.Train}, {SplitTest, s.Test}} {
		summary, err := writeSplit(ctx, filepath.Join(staging, part.name), part.name, part.ds, resampler)
		if err != nil {
			return SaveResult{}, err
		}
		if part.ds.Format != nil {
			format = part.ds.Format
		}
		result.Splits = append(result.Splits, summary)
		logger.Info("split written",
			logging.Args(
				logging.String("split", summary.Name),
				logging.Int("records", summary.Records),
				logging.Float64("duration_s", summary.DurationSeconds),
			)...,
		)
	}

	if err := writeDict(staging, result, opts); err != nil {
		return SaveResult{}, err
	}
	card, err := renderCard(result, format, s.languages(), opts)
	if err != nil {
		return SaveResult{}, services.Wrap(services.ErrValidation, stageName, "save", "render dataset card", err)
	}
	if err := os.WriteFile(filepath.Join(staging, CardFileName), card, 0o644); err != nil {
		return SaveResult{}, services.Wrap(services.ErrConfiguration, stageName, "save", "write dataset card", err)
	}

	if err := swapInto(staging, dir, logger); err != nil {
		return SaveResult{}, err
	}
	committed = true
	return result, nil
}

// renameDir is replaced in tests to simulate a failed swap.
var renameDir = os.Rename

// swapInto moves staging to dir. An existing dir is renamed aside first and
// restored if the move fails; it is removed only after the move succeeds.
func swapInto(staging, dir string, logger *slog.Logger) error {
	previous := ""
	if _, err := os.Lstat(dir); err == nil {
		previous = staging + ".previous"
		if err := renameDir(dir, previous); err != nil {
			return services.Wrap(services.ErrConfiguration, stageName, "save", "move previous dataset aside", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrConfiguration, stageName, "save", "inspect previous dataset", err)
	}
	if err := renameDir(staging, dir); err != nil {
		if previous != "" {
			if restoreErr := renameDir(previous, dir); restoreErr != nil {
				logging.ErrorWithContext(logger, "previous dataset not restored", "dataset_restore_failed",
					logging.String("path", previous),
					logging.Error(restoreErr),
					logging.String(logging.FieldImpact, "previous dataset left at the logged path"),
				)
			}
		}
		return services.Wrap(services.ErrConfiguration, stageName, "save", "move dataset into place", err)
	}
	if previous != "" {
		if err := os.RemoveAll(previous); err != nil {
			logging.WarnWithContext(logger, "previous dataset not removed", "dataset_cleanup_failed",
				logging.String("path", previous),
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale copy consumes disk space"),
			)
		}
	}
	return nil
}

func writeSplit(ctx context.Context, splitDir, name string, ds *Dataset, resampler Resampler) (SplitSummary, error) {
	summary := SplitSummary{Name: name}
	rows := make([]clipindex.Row, 0, ds.Len())
	seen := make(map[string]Record, ds.Len())
	for _, rec := range ds.Records {
		if err := ctx.Err(); err != nil {
			return SplitSummary{}, err
		}
		rel := clipPath(rec, ds.Format)
		if owner, dup := seen[rel]; dup {
			return SplitSummary{}, services.Wrap(services.ErrValidation, stageName, "save "+name,
				fmt.Sprintf("%s/%s and %s/%s map to the same clip %s", owner.Group, owner.FileName, rec.Group, rec.FileName, rel), nil)
		}
		seen[rel] = rec
		if err := materialize(ctx, splitDir, rel, rec, ds.Format, resampler, &summary); err != nil {
			return SplitSummary{}, services.Wrap(services.ErrExternalTool, stageName, "save "+name, "materialize "+rec.Group+"/"+rec.FileName, err)
		}
		rows = append(rows, clipindex.Row{FileName: rel, Sentence: rec.Sentence, Language: rec.Language})
		summary.Records++
	}
	if err := os.MkdirAll(splitDir, 0o755); err != nil {
		return SplitSummary{}, services.Wrap(services.ErrConfiguration, stageName, "save "+name, "create split directory", err)
	}
	if err := clipindex.Write(filepath.Join(splitDir, clipindex.FileName), rows); err != nil {
		return SplitSummary{}, services.Wrap(services.ErrConfiguration, stageName, "save "+name, "write index", err)
	}
	info := newSplitInfo(name, summary, ds.Format)
	if err := writeJSON(filepath.Join(splitDir, InfoFileName), info); err != nil {
		return SplitSummary{}, services.Wrap(services.ErrConfiguration, stageName, "save "+name, "write split info", err)
	}
	return summary, nil
}

// clipPath returns the slash-separated path of rec relative to its split
// directory: <group>/<file_name>, with a .wav extension once resampled.
func clipPath(rec Record, format *audio.Format) string {
	name := path.Clean(filepath.ToSlash(rec.FileName))
	if format != nil {
		name = strings.TrimSuffix(name, path.Ext(name)) + ".wav"
	}
	return path.Join(rec.Group, name)
}

// materialize writes rec to splitDir/rel.
func materialize(ctx context.Context, splitDir, rel string, rec Record, format *audio.Format, resampler Resampler, summary *SplitSummary) error {
	dst := filepath.Join(splitDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if format == nil {
		return fileutil.CopyFile(rec.AudioPath, dst)
	}
	info, err := resampler.Resample(ctx, rec.AudioPath, dst, *format)
	if err != nil {
		return err
	}
	if info.Format.SampleRate > 0 {
		summary.DurationSeconds += float64(info.Frames) / float64(info.Format.SampleRate)
	}
	return nil
}

func (s Split) languages() []string {
	seen := map[string]struct{}{}
	var langs []string
	for _, ds := range []*Dataset{s.Train, s.Test} {
		if ds == nil {
			continue
		}
		for _, rec := range ds.Records {
			if rec.Language == "" {
				continue
			}
			if _, ok := seen[rec.Language]; ok {
				continue
			}
			seen[rec.Language] = struct{}{}
			langs = append(langs, rec.Language)
		}
	}
	return langs
}

func writeJSON(file string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, append(data, '\n'), 0o644)
}

type dictFile struct {
	Splits   []string `json:"splits"`
	Seed     uint64   `json:"seed"`
	TestSize float64  `json:"test_size,omitempty"`
	Groups   []string `json:"groups,omitempty"`
}

func writeDict(dir string, result SaveResult, opts SaveOptions) error {
	dict := dictFile{Seed: result.Seed, TestSize: opts.TestSize, Groups: opts.Groups}
	for _, split := range result.Splits {
		dict.Splits = append(dict.Splits, split.Name)
	}
	if err := writeJSON(filepath.Join(dir, DictFileName), dict); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "save", "write dataset dict", err)
	}
	return nil
}

type featureInfo struct {
	Type         string `json:"_type"`
	Dtype        string `json:"dtype,omitempty"`
	SamplingRate int    `json:"sampling_rate,omitempty"`
	Mono         *bool  `json:"mono,omitempty"`
}

type splitInfo struct {
	Features    map[string]featureInfo `json:"features"`
	Split       string                 `json:"split"`
	NumExamples int                    `json:"num_examples"`
	Duration    float64                `json:"duration_seconds,omitempty"`
}

func newSplitInfo(name string, summary SplitSummary, format *audio.Format) splitInfo {
	audioFeature := featureInfo{Type: "Audio"}
	if format != nil {
		mono := format.Channels == 1
		audioFeature.SamplingRate = format.SampleRate
		audioFeature.Mono = &mono
	}
	return splitInfo{
		Features: map[string]featureInfo{
			"audio":    audioFeature,
			"sentence": {Type: "Value", Dtype: "string"},
			"language": {Type: "Value", Dtype: "string"},
		},
		Split:       name,
		NumExamples: summary.Records,
		Duration:    summary.DurationSeconds,
	}
}

// LoadDict reads dataset_dict.json from a saved dataset, which also serves to
// confirm the directory holds one.
func LoadDict(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, DictFileName))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", DictFileName, err)
	}
	var dict dictFile
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse %s: %w", DictFileName, err)
	}
	if len(dict.Splits) == 0 {
		return nil, fmt.Errorf("%s lists no splits", DictFileName)
	}
	return dict.Splits, nil
}
