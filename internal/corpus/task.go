package corpus

import (
	"path/filepath"
	"sort"
	"strings"

	"liepavoice/internal/textutil"
)

// Task is the unit of extraction work: one media file, one output group.
type Task struct {
	RecordingKey string
	MediaPath    string
	Group        string
	Segments     []Segment
}

// Tasks flattens the manifest into extraction tasks. Recordings without tiers
// yield one task named after the media base name; recordings with tiers yield
// one task per declared tier. Tasks are ordered by recording key, then by
// declared tier order.
func (m Manifest) Tasks(inputDir string) []Task {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var tasks []Task
	for _, key := range keys {
		rec := m[key]
		mediaPath := rec.MediaPath
		if !filepath.IsAbs(mediaPath) {
			mediaPath = filepath.Join(inputDir, filepath.FromSlash(mediaPath))
		}
		if rec.Tiers == nil {
			tasks = append(tasks, Task{
				RecordingKey: key,
				MediaPath:    mediaPath,
				Group:        GroupName(mediaPath),
				Segments:     rec.Speech,
			})
			continue
		}
		for _, tier := range rec.Tiers {
			tasks = append(tasks, Task{
				RecordingKey: key,
				MediaPath:    mediaPath,
				Group:        textutil.SanitizeGroupName(tier),
				Segments:     rec.TierSpeech[tier],
			})
		}
	}
	return tasks
}

// GroupName derives the output group for a recording without tiers.
func GroupName(mediaPath string) string {
	base := filepath.Base(mediaPath)
	return textutil.SanitizeGroupName(strings.TrimSuffix(base, filepath.Ext(base)))
}

// DuplicateGroups reports group names produced by more than one task. Such
// tasks would write into the same output directory.
func DuplicateGroups(tasks []Task) []string {
	counts := make(map[string]int, len(tasks))
	for _, task := range tasks {
		counts[task.Group]++
	}
	var dups []string
	for group, n := range counts {
		if n > 1 {
			dups = append(dups, group)
		}
	}
	sort.Strings(dups)
	return dups
}

// SegmentCount totals the segments across tasks.
func SegmentCount(tasks []Task) int {
	total := 0
	for _, task := range tasks {
		total += len(task.Segments)
	}
	return total
}
