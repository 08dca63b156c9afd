package ui

import (
	"fmt"
	"time"
)

// Progress tracks and prints the running download count for a conversation
type Progress struct {
	downloaded int
	pages      int
	startTime  time.Time
}

// NewProgress creates a new progress tracker
func NewProgress() *Progress {
	return &Progress{
		startTime: time.Now(),
	}
}

// Add records newly downloaded photos from one page batch and redraws the line
func (p *Progress) Add(count int) {
	p.downloaded += count
	p.pages++
	p.print()
}

// Downloaded returns the total number of newly downloaded photos
func (p *Progress) Downloaded() int {
	return p.downloaded
}

// Rate returns the average download rate in photos per minute
func (p *Progress) Rate() float64 {
	elapsed := time.Since(p.startTime).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(p.downloaded) / elapsed
}

func (p *Progress) print() {
	if IsQuietMode() {
		return
	}
	fmt.Printf("\r%s photos: %d | pages: %d", Green("[SAVED]"), p.downloaded, p.pages)
}

// Finish terminates the progress line so following output starts clean
func (p *Progress) Finish() {
	if IsQuietMode() || p.pages == 0 {
		return
	}
	fmt.Println()
}
