package audio

import "fmt"

const bytesPerSample = 2

// Format describes a PCM sample layout.
type Format struct {
	SampleRate int
	Channels   int
}

// String renders the format the way ffmpeg logs it.
func (f Format) String() string {
	var layout string
	switch f.Channels {
	case 1:
		layout = "mono"
	case 2:
		layout = "stereo"
	default:
		layout = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%d Hz, %s", f.SampleRate, layout)
}

func (f Format) frameSize() int {
	return f.Channels * bytesPerSample
}

// Buffer holds decoded audio as interleaved s16le PCM.
type Buffer struct {
	Format Format
	Data   []byte
}

// Frames reports the number of sample frames in the buffer.
func (b *Buffer) Frames() int {
	if b == nil || b.Format.frameSize() <= 0 {
		return 0
	}
	return len(b.Data) / b.Format.frameSize()
}

// DurationMS reports the buffer length in milliseconds.
func (b *Buffer) DurationMS() int64 {
	if b == nil || b.Format.SampleRate <= 0 {
		return 0
	}
	return int64(b.Frames()) * 1000 / int64(b.Format.SampleRate)
}

// Empty reports whether the buffer holds no frames.
func (b *Buffer) Empty() bool {
	return b.Frames() == 0
}

// Slice returns the [begMS, endMS) range of the buffer. Offsets are clamped to
// the buffer bounds and an inverted range yields an empty buffer. The returned
// buffer shares memory with b.
func (b *Buffer) Slice(begMS, endMS int64) *Buffer {
	out := &Buffer{Format: b.Format}
	frames := int64(b.Frames())
	if frames == 0 {
		return out
	}
	start := b.frameAt(begMS, frames)
	end := b.frameAt(endMS, frames)
	if end <= start {
		return out
	}
	size := int64(b.Format.frameSize())
	out.Data = b.Data[start*size : end*size]
	return out
}

func (b *Buffer) frameAt(ms, frames int64) int64 {
	if ms <= 0 {
		return 0
	}
	frame := ms * int64(b.Format.SampleRate) / 1000
	if frame > frames {
		return frames
	}
	return frame
}
