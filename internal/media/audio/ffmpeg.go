package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-audio/wav"

	"liepavoice/internal/media/ffprobe"
)

var (
	commandContext = exec.CommandContext
	inspect        = ffprobe.Inspect
)

// ErrNoAudioStream indicates the media file carries no decodable audio.
var ErrNoAudioStream = errors.New("no audio stream")

// Tool runs ffmpeg and ffprobe.
type Tool struct {
	ffmpeg  string
	ffprobe string
}

// NewTool returns a Tool using the given binaries, defaulting to PATH lookups.
func NewTool(ffmpegBinary, ffprobeBinary string) *Tool {
	t := &Tool{ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
	if v := strings.TrimSpace(ffmpegBinary); v != "" {
		t.ffmpeg = v
	}
	if v := strings.TrimSpace(ffprobeBinary); v != "" {
		t.ffprobe = v
	}
	return t
}

// Decode reads the whole primary audio stream of path into memory at its native
// sample rate and channel count.
func (t *Tool) Decode(ctx context.Context, path string) (*Buffer, error) {
	probe, err := inspect(ctx, t.ffprobe, path)
	if err != nil {
		return nil, err
	}
	stream, ok := probe.PrimaryAudio()
	if !ok {
		return nil, fmt.Errorf("decode %s: %w", path, ErrNoAudioStream)
	}
	format := Format{SampleRate: stream.SampleRateHz(), Channels: stream.Channels}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("decode %s: unusable stream layout %q/%d", path, stream.SampleRate, stream.Channels)
	}

	args := []string{
		"-v", "error", "-nostdin",
		"-i", path,
		"-map", "0:a:0", "-vn",
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", strconv.Itoa(format.Channels),
		"pipe:1",
	}
	var stdout, stderr bytes.Buffer
	cmd := commandContext(ctx, t.ffmpeg, args...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	data := stdout.Bytes()
	if rem := len(data) % format.frameSize(); rem != 0 {
		data = data[:len(data)-rem]
	}
	return &Buffer{Format: format, Data: data}, nil
}

// EncodeOptions selects the codec used for exported clips.
type EncodeOptions struct {
	Codec   string
	Bitrate string
}

// Export encodes buf into a compressed clip at dst, overwriting any existing file.
func (t *Tool) Export(ctx context.Context, buf *Buffer, dst string, opts EncodeOptions) error {
	if buf == nil || buf.Empty() {
		return errors.New("export: empty buffer")
	}
	codec := opts.Codec
	if codec == "" {
		codec = "libmp3lame"
	}
	args := []string{
		"-v", "error", "-nostdin", "-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(buf.Format.SampleRate),
		"-ac", strconv.Itoa(buf.Format.Channels),
		"-i", "pipe:0",
		"-codec:a", codec,
	}
	if opts.Bitrate != "" {
		args = append(args, "-b:a", opts.Bitrate)
	}
	args = append(args, "-f", "mp3", dst)

	var stderr bytes.Buffer
	cmd := commandContext(ctx, t.ffmpeg, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(buf.Data)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("ffmpeg export %s: %w: %s", dst, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// WAVInfo summarizes a verified WAV file.
type WAVInfo struct {
	Format   Format
	BitDepth int
	Frames   int64
}

// Resample converts src to a 16-bit PCM WAV at the target format and verifies
// the written header matches it.
func (t *Tool) Resample(ctx context.Context, src, dst string, target Format) (WAVInfo, error) {
	args := []string{
		"-v", "error", "-nostdin", "-y",
		"-i", src,
		"-vn",
		"-ar", strconv.Itoa(target.SampleRate),
		"-ac", strconv.Itoa(target.Channels),
		"-c:a", "pcm_s16le",
		"-f", "wav", dst,
	}
	var stderr bytes.Buffer
	cmd := commandContext(ctx, t.ffmpeg, args...) //nolint:gosec
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(dst)
		return WAVInfo{}, fmt.Errorf("ffmpeg resample %s: %w: %s", src, err, strings.TrimSpace(stderr.String()))
	}
	info, err := VerifyWAV(dst)
	if err != nil {
		return WAVInfo{}, err
	}
	if info.Format != target {
		return WAVInfo{}, fmt.Errorf("resample %s: wrote %s, want %s", src, info.Format, target)
	}
	return info, nil
}

// VerifyWAV parses the header of a WAV file.
func VerifyWAV(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return WAVInfo{}, fmt.Errorf("%s is not a valid wav file", path)
	}
	if err := decoder.FwdToPCM(); err != nil {
		return WAVInfo{}, fmt.Errorf("read wav %s: %w", path, err)
	}
	info := WAVInfo{
		Format:   Format{SampleRate: int(decoder.SampleRate), Channels: int(decoder.NumChans)},
		BitDepth: int(decoder.BitDepth),
	}
	if frame := int64(decoder.NumChans) * int64(decoder.BitDepth/8); frame > 0 {
		info.Frames = int64(decoder.PCMSize) / frame
	}
	return info, nil
}
