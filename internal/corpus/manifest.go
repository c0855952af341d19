package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

// Segment is a time-aligned transcript span. Offsets are milliseconds.
type Segment struct {
	Beg int64
	End int64
	Len int64
	Val string
}

// UnmarshalJSON accepts integral or fractional millisecond values. A missing
// len is derived from the offsets.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw struct {
		Beg *float64 `json:"beg"`
		End *float64 `json:"end"`
		Len *float64 `json:"len"`
		Val *string  `json:"val"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Beg == nil || raw.End == nil {
		return errors.New("segment requires beg and end")
	}
	s.Beg = roundMS(*raw.Beg)
	s.End = roundMS(*raw.End)
	if raw.Len != nil {
		s.Len = roundMS(*raw.Len)
	} else {
		s.Len = s.End - s.Beg
	}
	s.Val = ""
	if raw.Val != nil {
		s.Val = *raw.Val
	}
	return nil
}

func roundMS(v float64) int64 {
	return int64(math.Round(v))
}

// Recording is one manifest entry.
type Recording struct {
	Key       string
	MediaPath string
	// Tiers is nil when the descriptor declares none, which is distinct from an
	// explicitly empty list.
	Tiers []string
	// Speech holds the flat segment list for recordings without tiers.
	Speech []Segment
	// TierSpeech holds per-tier segments for recordings with tiers. A tier
	// named in Tiers but absent here has no segments.
	TierSpeech map[string][]Segment
}

// Manifest is the parsed corpus manifest keyed by recording key.
type Manifest map[string]Recording

type descriptor struct {
	Media *struct {
		Path string `json:"path"`
	} `json:"media"`
	Tiers  []string        `json:"tiers"`
	Speech json.RawMessage `json:"speech"`
}

// Load parses the manifest at path.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest JSON.
func Parse(data []byte) (Manifest, error) {
	var entries map[string]descriptor
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	manifest := make(Manifest, len(entries))
	for key, entry := range entries {
		rec, err := entry.recording(key)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %q: %w", key, err)
		}
		manifest[key] = rec
	}
	return manifest, nil
}

func (d descriptor) recording(key string) (Recording, error) {
	if d.Media == nil || strings.TrimSpace(d.Media.Path) == "" {
		return Recording{}, errors.New("media.path is required")
	}
	rec := Recording{
		Key:       key,
		MediaPath: strings.TrimSpace(d.Media.Path),
		Tiers:     d.Tiers,
	}
	speech := bytes.TrimSpace(d.Speech)
	if len(speech) == 0 || bytes.Equal(speech, []byte("null")) {
		return rec, nil
	}

	if rec.Tiers == nil {
		if err := json.Unmarshal(speech, &rec.Speech); err != nil {
			return Recording{}, fmt.Errorf("speech must be a segment list when no tiers are declared: %w", err)
		}
		return rec, nil
	}

	var byTier map[string]json.RawMessage
	if err := json.Unmarshal(speech, &byTier); err != nil {
		return Recording{}, fmt.Errorf("speech must be an object keyed by tier: %w", err)
	}
	rec.TierSpeech = make(map[string][]Segment, len(byTier))
	for tier, raw := range byTier {
		segments, err := decodeTierSegments(raw)
		if err != nil {
			return Recording{}, fmt.Errorf("tier %q: %w", tier, err)
		}
		rec.TierSpeech[tier] = segments
	}
	return rec, nil
}

// decodeTierSegments accepts either a single segment object or a list.
func decodeTierSegments(raw json.RawMessage) ([]Segment, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return nil, nil
	case raw[0] == '{':
		var single Segment
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, err
		}
		return []Segment{single}, nil
	default:
		var list []Segment
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
}
