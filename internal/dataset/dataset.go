package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"liepavoice/internal/clipindex"
	"liepavoice/internal/logging"
	"liepavoice/internal/media/audio"
	"liepavoice/internal/services"
)

const stageName = "assemble"

// ErrEmptyGroup indicates a group index that lists no clips.
var ErrEmptyGroup = errors.New("group has no clips")

// Record is one labeled clip.
type Record struct {
	Group     string
	FileName  string
	AudioPath string
	Sentence  string
	Language  string
}

// Dataset is an ordered collection of records.
type Dataset struct {
	Records []Record
	// Format is the target audio format set by Cast; nil keeps clips as-is.
	Format *audio.Format
}

// Len reports the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// LoadGroup loads one clip folder by joining its metadata.csv rows with the
// audio files they name.
func LoadGroup(dir string) (*Dataset, error) {
	group := filepath.Base(dir)
	rows, err := clipindex.Read(filepath.Join(dir, clipindex.FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stageName, "group "+group, "missing "+clipindex.FileName, err)
		}
		return nil, services.Wrap(services.ErrValidation, stageName, "group "+group, "malformed "+clipindex.FileName, err)
	}
	if len(rows) == 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "group "+group, "", ErrEmptyGroup)
	}

	ds := &Dataset{Records: make([]Record, 0, len(rows))}
	for _, row := range rows {
		path := filepath.Join(dir, filepath.FromSlash(row.FileName))
		if !strings.HasPrefix(path, filepath.Clean(dir)+string(filepath.Separator)) {
			return nil, services.Wrap(services.ErrValidation, stageName, "group "+group, fmt.Sprintf("file_name %q escapes the group directory", row.FileName), nil)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, services.Wrap(services.ErrNotFound, stageName, "group "+group, "audio for "+row.FileName, err)
		}
		if info.IsDir() {
			return nil, services.Wrap(services.ErrValidation, stageName, "group "+group, row.FileName+" is a directory", nil)
		}
		ds.Records = append(ds.Records, Record{
			Group:     group,
			FileName:  row.FileName,
			AudioPath: path,
			Sentence:  row.Sentence,
			Language:  row.Language,
		})
	}
	return ds, nil
}

// LoadFailure records a group excluded from the assembled dataset.
type LoadFailure struct {
	Group string
	Err   error
}

// LoadResult is the outcome of LoadAll.
type LoadResult struct {
	Dataset  *Dataset
	Groups   []string
	Failures []LoadFailure
}

// LoadAll loads every immediate subdirectory of outputDir in name order and
// concatenates the groups that load. Groups that fail are logged and returned
// as failures; it is an error only when no group loads.
func LoadAll(ctx context.Context, outputDir string, logger *slog.Logger) (LoadResult, error) {
	logger = logging.NewComponentLogger(logger, "assembler")
	// os.ReadDir returns entries sorted by filename, which fixes record order.
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return LoadResult{}, services.Wrap(services.ErrConfiguration, stageName, "scan", "read output directory", err)
	}

	var (
		result LoadResult
		parts  []*Dataset
	)
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		group := entry.Name()
		ds, err := LoadGroup(filepath.Join(outputDir, group))
		if err != nil {
			result.Failures = append(result.Failures, LoadFailure{Group: group, Err: err})
			logging.WarnWithContext(logging.WithContext(services.WithGroup(ctx, group), logger), "group skipped", "group_load_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "group excluded from dataset"),
			)
			continue
		}
		logging.WithContext(services.WithGroup(ctx, group), logger).Debug("group loaded",
			logging.Args(logging.Int("records", ds.Len()))...,
		)
		parts = append(parts, ds)
		result.Groups = append(result.Groups, group)
	}
	if len(parts) == 0 {
		return result, services.Wrap(services.ErrValidation, stageName, "scan", fmt.Sprintf("no loadable groups in %s", outputDir), nil)
	}
	result.Dataset = Concatenate(parts...)
	return result, nil
}

// Concatenate joins datasets in argument order.
func Concatenate(parts ...*Dataset) *Dataset {
	total := 0
	for _, part := range parts {
		total += part.Len()
	}
	out := &Dataset{Records: make([]Record, 0, total)}
	for _, part := range parts {
		if part == nil {
			continue
		}
		out.Records = append(out.Records, part.Records...)
	}
	return out
}

// Cast returns a dataset tagged with the target audio format.
func (d *Dataset) Cast(format audio.Format) *Dataset {
	f := format
	return &Dataset{Records: d.Records, Format: &f}
}

// Split is a train/test partition.
type Split struct {
	Train *Dataset
	Test  *Dataset
	// Seed is the shuffle seed actually used.
	Seed uint64
}

// TrainTestSplit shuffles the records and partitions them with
// ceil(testSize*n) records in test. A zero seed draws a random one. Either
// partition ending up empty is an error.
func (d *Dataset) TrainTestSplit(testSize float64, seed uint64) (Split, error) {
	if testSize <= 0 || testSize >= 1 {
		return Split{}, services.Wrap(services.ErrValidation, stageName, "split", fmt.Sprintf("test size %v must be between 0 and 1", testSize), nil)
	}
	n := d.Len()
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain == 0 {
		return Split{}, services.Wrap(services.ErrValidation, stageName, "split",
			fmt.Sprintf("%d records with test size %v leaves train=%d test=%d", n, testSize, nTrain, nTest), nil)
	}
	if seed == 0 {
		seed = rand.Uint64() | 1
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

	pick := func(idx []int) *Dataset {
		out := &Dataset{Records: make([]Record, 0, len(idx)), Format: d.Format}
		for _, i := range idx {
			out.Records = append(out.Records, d.Records[i])
		}
		return out
	}
	return Split{
		Train: pick(order[:nTrain]),
		Test:  pick(order[nTrain:]),
		Seed:  seed,
	}, nil
}
