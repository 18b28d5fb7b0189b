package metrics

import (
	"time"

	"videolab/internal/logging"
)

// ScratchCounter reports the number of entries in the scratch directory.
type ScratchCounter interface {
	Count() int
}

// Collector periodically samples the scratch directory and updates the
// corresponding gauge. Scratch files are request-scoped, so a persistently
// non-zero gauge between requests signals a cleanup bug.
type Collector struct {
	counter  ScratchCounter
	interval time.Duration
	stopChan chan struct{}
}

// NewCollector creates a collector sampling counter every interval.
func NewCollector(counter ScratchCounter, interval time.Duration) *Collector {
	return &Collector{
		counter:  counter,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.counter == nil {
		return
	}

	count := c.counter.Count()
	ScratchFiles.Set(float64(count))
	logging.Debug("Metrics collected: scratch files=%d", count)
}
