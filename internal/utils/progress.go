package utils

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const progressInterval = 200 * time.Millisecond

// ProgressReader wraps an io.Reader and draws a transfer bar on out
type ProgressReader struct {
	reader      io.Reader
	out         io.Writer
	total       int64
	read        int64
	description string
	startTime   time.Time
	lastPrint   time.Time
	finished    bool
	lastLineLen int
}

// NewProgressReader creates a progress reader. total <= 0 means unknown size,
// in which case only the byte count is shown.
func NewProgressReader(reader io.Reader, out io.Writer, total int64, description string) *ProgressReader {
	now := time.Now()
	return &ProgressReader{
		reader:      reader,
		out:         out,
		total:       total,
		description: description,
		startTime:   now,
		lastPrint:   now,
	}
}

func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)

	if n > 0 {
		pr.read += int64(n)
		now := time.Now()
		if now.Sub(pr.lastPrint) > progressInterval {
			pr.printProgress()
			pr.lastPrint = now
		}
	}

	if err == io.EOF && !pr.finished {
		pr.finished = true
		pr.printProgress()
		fmt.Fprintln(pr.out)
	}

	return n, err
}

// Seek lets the S3 signer rewind the body on retry
func (pr *ProgressReader) Seek(offset int64, whence int) (int64, error) {
	seeker, ok := pr.reader.(io.Seeker)
	if !ok {
		return 0, fmt.Errorf("underlying reader does not support seeking")
	}
	pos, err := seeker.Seek(offset, whence)
	if err == nil {
		pr.read = pos
	}
	return pos, err
}

// BytesRead returns the number of bytes consumed so far
func (pr *ProgressReader) BytesRead() int64 {
	return pr.read
}

func (pr *ProgressReader) printProgress() {
	line := pr.line()

	if pr.lastLineLen > len(line) {
		fmt.Fprintf(pr.out, "\r%s\r", strings.Repeat(" ", pr.lastLineLen))
	}
	fmt.Fprintf(pr.out, "\r%s", line)
	pr.lastLineLen = len(line)
}

func (pr *ProgressReader) line() string {
	var speed string
	if elapsed := time.Since(pr.startTime); elapsed.Seconds() > 0.1 {
		speed = fmt.Sprintf(" %s/s", humanize.Bytes(uint64(float64(pr.read)/elapsed.Seconds())))
	}

	if pr.total <= 0 {
		return fmt.Sprintf("%s %s%s", pr.description, humanize.Bytes(uint64(pr.read)), speed)
	}

	percentage := float64(pr.read) / float64(pr.total) * 100
	const barWidth = 40
	filled := min(int(percentage*barWidth/100), barWidth)
	bar := "[" + strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled) + "]"

	return fmt.Sprintf("%s %s %.1f%% (%s/%s)%s",
		pr.description,
		bar,
		percentage,
		humanize.Bytes(uint64(pr.read)),
		humanize.Bytes(uint64(pr.total)),
		speed)
}

// Close finishes the progress line if EOF was never reached
func (pr *ProgressReader) Close() error {
	if !pr.finished {
		pr.finished = true
		pr.printProgress()
		fmt.Fprintln(pr.out)
	}
	return nil
}
