package logs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const defaultPoll = 250 * time.Millisecond

// Options controls Tail.
type Options struct {
	// Lines is how many trailing lines to print before following.
	Lines int
	// Follow keeps reading appended lines until ctx is cancelled.
	Follow bool
	// Poll is the follow interval; zero uses 250ms.
	Poll time.Duration
	// Match filters lines; nil keeps every line.
	Match func(string) bool
}

// Tail emits the last opts.Lines matching lines of path and, in follow mode,
// every matching line appended afterwards. A file that shrinks is treated as
// rotated and read again from the start. Cancelling ctx ends a follow cleanly.
func Tail(ctx context.Context, path string, opts Options, emit func(string) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("log path %q is a directory", path)
	}

	lines, offset, err := readLast(path, opts.Lines, opts.Match)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := emit(line); err != nil {
			return err
		}
	}
	if !opts.Follow {
		return nil
	}

	poll := opts.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				// Mid-rotation; the new file appears shortly.
				continue
			}
			return fmt.Errorf("stat log file: %w", err)
		}
		if info.Size() < offset {
			offset = 0
		}
		if info.Size() == offset {
			continue
		}
		offset, err = readFrom(path, offset, opts.Match, emit)
		if err != nil {
			return err
		}
	}
}

// readLast returns the trailing limit matching lines and the end offset.
func readLast(path string, limit int, match func(string) bool) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	reader := bufio.NewReader(file)
	var offset int64
	for {
		line, err := reader.ReadString('\n')
		if strings.HasSuffix(line, "\n") {
			offset += int64(len(line))
			line = strings.TrimRight(line, "\r\n")
			if match == nil || match(line) {
				ring[next] = line
				next = (next + 1) % limit
				if count < limit {
					count++
				}
			}
		}
		// A trailing partial line is left for the follow loop.
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
	}

	lines := make([]string, 0, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := range count {
		lines = append(lines, ring[(start+i)%limit])
	}
	return lines, offset, nil
}

// readFrom emits complete matching lines after offset and returns the offset
// of the first byte not consumed.
func readFrom(path string, offset int64, match func(string) bool, emit func(string) error) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if !strings.HasSuffix(line, "\n") {
			if err != nil && err != io.EOF {
				return offset, fmt.Errorf("read log file: %w", err)
			}
			return offset, nil
		}
		offset += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if match == nil || match(line) {
			if err := emit(line); err != nil {
				return offset, err
			}
		}
	}
}

// RunFilter matches lines logged for runID in the console or JSON format.
func RunFilter(runID string) func(string) bool {
	console := "run_id=" + runID
	structured := `"run_id":"` + runID + `"`
	return func(line string) bool {
		return strings.Contains(line, console) || strings.Contains(line, structured)
	}
}
