package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
)

// Spinner animates a message while a step without measurable progress runs.
type Spinner struct {
	message string
	frames  []string
	index   int
	done    chan struct{}
	wg      sync.WaitGroup
	active  bool
	mu      sync.Mutex
}

var (
	defaultFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	simpleFrames  = []string{"|", "/", "-", "\\"}
)

// NewSpinner creates a spinner with a message.
func NewSpinner(message string) *Spinner {
	frames := defaultFrames
	if NoColor {
		frames = simpleFrames
	}
	return &Spinner{message: message, frames: frames}
}

// Start begins the animation. It is a no-op in quiet or JSON mode.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active || silent() {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.mu.Lock()
				frame := s.frames[s.index]
				s.index = (s.index + 1) % len(s.frames)
				msg := s.message
				s.mu.Unlock()

				fmt.Fprintf(stderr, "\r%s %s", frame, msg)
			}
		}
	}()
}

// Stop stops the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	fmt.Fprint(stderr, "\r\033[K")
}

// StopWithSuccess stops the spinner and prints a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	if silent() {
		return
	}
	mark := "✓"
	if NoColor {
		mark = "[OK]"
	}
	fmt.Fprintf(stderr, "%s %s\n", Success(mark), message)
}

// StopWithError stops the spinner and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	cross := "✗"
	if NoColor {
		cross = "[ERROR]"
	}
	fmt.Fprintf(stderr, "%s %s\n", Error(cross), message)
}

// Progress draws a bar for a step with a known number of items, such as
// the files written into an archive.
type Progress struct {
	message string
	total   int
	bar     progress.Model
	mu      sync.Mutex
}

// NewProgress creates a progress bar for total items.
func NewProgress(message string, total int) *Progress {
	opts := []progress.Option{progress.WithWidth(30), progress.WithoutPercentage()}
	if !NoColor {
		opts = append(opts, progress.WithDefaultGradient())
	}
	return &Progress{message: message, total: total, bar: progress.New(opts...)}
}

// Update redraws the bar. It matches archive.ProgressFunc.
func (p *Progress) Update(done, total int) {
	if silent() || total == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	pct := float64(done) / float64(total)
	fmt.Fprintf(stderr, "\r\033[K%s %s %d/%d", p.message, p.bar.ViewAs(pct), done, total)
}

// Done draws the full bar and ends the line.
func (p *Progress) Done() {
	if silent() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(stderr, "\r\033[K%s %s %d files\n", p.message, p.bar.ViewAs(1.0), p.total)
}

// FormatBytes formats a size in human-readable form.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
