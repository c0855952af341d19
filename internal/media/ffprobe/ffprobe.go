package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Result is the subset of ffprobe output used to decode corpus recordings.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one audio stream.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`
}

// Format holds container metadata.
type Format struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Inspect runs ffprobe on path and decodes its audio stream report.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if path = strings.TrimSpace(path); path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	args := []string{
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index,codec_name,sample_rate,channels,duration:format=format_name,duration",
		"-of", "json",
		"--", path,
	}
	output, err := commandContext(ctx, binary, args...).Output() //nolint:gosec
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if stderr := strings.TrimSpace(string(exitErr.Stderr)); stderr != "" {
				return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, stderr)
			}
		}
		return Result{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: parse output: %w", path, err)
	}
	return result, nil
}

// PrimaryAudio returns the first audio stream, which ffmpeg maps by default.
func (r Result) PrimaryAudio() (Stream, bool) {
	if len(r.Streams) == 0 {
		return Stream{}, false
	}
	return r.Streams[0], true
}

// DurationMS returns the container duration in whole milliseconds, falling
// back to the primary stream.
func (r Result) DurationMS() int64 {
	if ms := parseMS(r.Format.Duration); ms > 0 {
		return ms
	}
	if s, ok := r.PrimaryAudio(); ok {
		return parseMS(s.Duration)
	}
	return 0
}

// SampleRateHz returns the stream sample rate.
func (s Stream) SampleRateHz() int {
	rate, err := strconv.Atoi(strings.TrimSpace(s.SampleRate))
	if err != nil || rate < 0 {
		return 0
	}
	return rate
}

func parseMS(seconds string) int64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(seconds), 64)
	if err != nil || v <= 0 {
		return 0
	}
	return int64(v*1000 + 0.5)
}
