package deps

import "strings"

// MediaTools lists the FFmpeg binaries used for decoding recordings,
// encoding clips and resampling.
func MediaTools(ffmpegBinary, ffprobeBinary string) []Tool {
	return []Tool{
		{Name: "FFmpeg", Command: orDefault(ffmpegBinary, "ffmpeg"), Purpose: "decodes recordings, encodes clips and resamples"},
		{Name: "FFprobe", Command: orDefault(ffprobeBinary, "ffprobe"), Purpose: "reads recording stream layout"},
	}
}

func orDefault(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
