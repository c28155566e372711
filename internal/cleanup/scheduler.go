package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Sweeper periodically removes aged files from the scratch directory. The
// pipeline cleans its own temp files on every exit path; the sweeper is a
// backstop for files orphaned by a crash.
type Sweeper struct {
	scratchDir string
	interval   time.Duration
	maxAge     time.Duration
	stop       chan struct{}
}

// NewSweeper creates a sweeper for scratchDir.
func NewSweeper(scratchDir string, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		scratchDir: scratchDir,
		interval:   interval,
		maxAge:     maxAge,
		stop:       make(chan struct{}),
	}
}

// Start sweeps once immediately, then on every interval tick.
func (s *Sweeper) Start() {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stop:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Scratch sweeper started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop halts the periodic sweep.
func (s *Sweeper) Stop() {
	close(s.stop)
}

func (s *Sweeper) sweep() {
	now := time.Now()
	var removed int

	err := filepath.Walk(s.scratchDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if now.Sub(info.ModTime()) <= s.maxAge {
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to remove stale scratch file %s: %v", path, err)
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		log.Printf("Scratch sweep error: %v", err)
	}
	if removed > 0 {
		log.Printf("Scratch sweep removed %d stale files", removed)
	}
}
