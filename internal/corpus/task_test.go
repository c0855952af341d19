package corpus

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestTasksWithoutTiersUseMediaBaseName(t *testing.T) {
	manifest := Manifest{
		"b": {Key: "b", MediaPath: "audio/S002.wav", Speech: []Segment{{Beg: 0, End: 1500, Len: 1500, Val: "a"}}},
		"a": {Key: "a", MediaPath: "audio/S001.flac", Speech: []Segment{{Beg: 0, End: 1500, Len: 1500, Val: "b"}}},
	}
	tasks := manifest.Tasks("/corpus")
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Group != "S001" || tasks[1].Group != "S002" {
		t.Fatalf("expected tasks ordered by key, got %q then %q", tasks[0].Group, tasks[1].Group)
	}
	if tasks[0].MediaPath != filepath.Join("/corpus", "audio", "S001.flac") {
		t.Fatalf("unexpected media path: %q", tasks[0].MediaPath)
	}
}

func TestTasksWithTiers(t *testing.T) {
	manifest := Manifest{
		"dialog": {
			Key:       "dialog",
			MediaPath: "audio/dialog.wav",
			Tiers:     []string{"spk2", "spk1", "silent"},
			TierSpeech: map[string][]Segment{
				"spk1": {{Beg: 0, End: 1200, Len: 1200, Val: "labas"}},
				"spk2": {{Beg: 1200, End: 2400, Len: 1200, Val: "sveikas"}},
			},
		},
	}
	tasks := manifest.Tasks("/corpus")
	var groups []string
	for _, task := range tasks {
		groups = append(groups, task.Group)
		if task.MediaPath != filepath.Join("/corpus", "audio", "dialog.wav") {
			t.Fatalf("tier task should share recording media, got %q", task.MediaPath)
		}
	}
	if !reflect.DeepEqual(groups, []string{"spk2", "spk1", "silent"}) {
		t.Fatalf("expected declared tier order, got %v", groups)
	}
	if len(tasks[2].Segments) != 0 {
		t.Fatalf("expected empty task for tier without speech, got %v", tasks[2].Segments)
	}
}

func TestTasksEmptyTierListYieldsNothing(t *testing.T) {
	manifest := Manifest{
		"r": {Key: "r", MediaPath: "a.wav", Tiers: []string{}},
	}
	if tasks := manifest.Tasks("/corpus"); len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %v", tasks)
	}
}

func TestTasksSanitizeGroupNames(t *testing.T) {
	manifest := Manifest{
		"r": {Key: "r", MediaPath: "a.wav", Tiers: []string{"../escape"}},
	}
	tasks := manifest.Tasks("/corpus")
	if tasks[0].Group != "..-escape" {
		t.Fatalf("expected sanitized group, got %q", tasks[0].Group)
	}
}

func TestDuplicateGroups(t *testing.T) {
	tasks := []Task{{Group: "A"}, {Group: "B"}, {Group: "A"}, {Group: "C"}, {Group: "B"}}
	if got := DuplicateGroups(tasks); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("unexpected duplicates: %v", got)
	}
	if got := DuplicateGroups(tasks[3:4]); got != nil {
		t.Fatalf("expected no duplicates, got %v", got)
	}
}

func TestSegmentCount(t *testing.T) {
	tasks := []Task{{Segments: make([]Segment, 3)}, {}, {Segments: make([]Segment, 2)}}
	if SegmentCount(tasks) != 5 {
		t.Fatalf("unexpected count: %d", SegmentCount(tasks))
	}
}
