// Package audio wraps the ffmpeg invocations the pipeline needs: decoding a
// recording into an in-memory PCM buffer, exporting slices of that buffer as
// compressed clips, and resampling clips into verified WAV files.
//
// Buffers hold interleaved signed 16-bit little-endian samples at the
// recording's native rate and channel count, so slicing never resamples.
//
// Key types:
//   - Buffer: decoded PCM samples plus their Format
//   - Tool: ffmpeg/ffprobe binaries used for decode, export, and resample
package audio
