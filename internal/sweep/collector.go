package sweep

import (
	"errors"
	"fmt"

	"github.com/hepsim/stringsweep/internal/hist"
)

// ErrDuplicateLabel reports two settings with the same display label, which
// would make the plot legend ambiguous.
var ErrDuplicateLabel = errors.New("duplicate setting label")

// Series is one finalized histogram with its setting's display metadata.
type Series struct {
	Setting Setting
	Hist    *hist.Histogram
}

// SeriesCollector gathers finalized series in sweep order.
type SeriesCollector struct {
	series []Series
	labels map[string]bool
}

// NewSeriesCollector creates an empty collector.
func NewSeriesCollector() *SeriesCollector {
	return &SeriesCollector{labels: make(map[string]bool)}
}

// Add appends a finalized series. It fails with ErrDuplicateLabel when a
// series with the same label was already added, leaving the collection
// unchanged.
func (c *SeriesCollector) Add(setting Setting, h *hist.Histogram) error {
	if c.labels[setting.Label] {
		return fmt.Errorf("%w: %q", ErrDuplicateLabel, setting.Label)
	}
	c.labels[setting.Label] = true
	c.series = append(c.series, Series{Setting: setting, Hist: h})
	return nil
}

// Series returns the collected series in the order they were added. The
// returned slice is a read view; callers must not modify it.
func (c *SeriesCollector) Series() []Series {
	return c.series
}

// Len returns the number of collected series.
func (c *SeriesCollector) Len() int {
	return len(c.series)
}
