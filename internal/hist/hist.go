// Package hist provides a fixed-range, fixed-bin-count histogram for
// accumulating a continuous observable. Values outside the configured range
// are routed to dedicated underflow and overflow counters, so every fill is
// accounted for exactly once. Fill order never affects the result, and two
// histograms with identical geometry can be merged by element-wise addition,
// which is what allows per-setting accumulation to be parallelized or
// resumed from a stored run.
package hist

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ErrBadGeometry reports an invalid histogram construction request.
var ErrBadGeometry = errors.New("invalid histogram geometry")

// ErrGeometryMismatch reports a merge between histograms whose ranges or
// bin counts differ.
var ErrGeometryMismatch = errors.New("histogram geometry mismatch")

// Histogram accumulates counts of a continuous observable over the
// half-open range [lo, hi) split into equal-width bins.
type Histogram struct {
	lo, hi float64
	width  float64
	bins   []int64
	under  int64
	over   int64
}

// New creates an empty histogram over [lo, hi) with the given number of
// bins. It fails with ErrBadGeometry if lo >= hi or bins <= 0.
func New(lo, hi float64, bins int) (*Histogram, error) {
	if lo >= hi {
		return nil, fmt.Errorf("%w: lo %v must be below hi %v", ErrBadGeometry, lo, hi)
	}
	if bins <= 0 {
		return nil, fmt.Errorf("%w: bin count %d must be positive", ErrBadGeometry, bins)
	}
	return &Histogram{
		lo:    lo,
		hi:    hi,
		width: (hi - lo) / float64(bins),
		bins:  make([]int64, bins),
	}, nil
}

// Fill increments exactly one counter by 1: the bin containing v when
// lo <= v < hi, the underflow counter when v < lo, or the overflow counter
// when v >= hi. A NaN value fails every range comparison and would
// otherwise index out of bounds; it is routed to underflow so every fill
// is still accounted for.
func (h *Histogram) Fill(v float64) {
	switch {
	case math.IsNaN(v), v < h.lo:
		h.under++
	case v >= h.hi:
		h.over++
	default:
		i := int((v - h.lo) / h.width)
		// Guard against float rounding pushing a value just below hi
		// past the last bin.
		if i >= len(h.bins) {
			i = len(h.bins) - 1
		}
		h.bins[i]++
	}
}

// Merge adds other's counters, including underflow and overflow, into h.
// It fails with ErrGeometryMismatch if the two histograms were constructed
// with different ranges or bin counts. Merge is associative and
// commutative, so any grouping of same-geometry histograms sums to the
// same result.
func (h *Histogram) Merge(other *Histogram) error {
	if h.lo != other.lo || h.hi != other.hi || len(h.bins) != len(other.bins) {
		return fmt.Errorf("%w: [%v, %v)/%d vs [%v, %v)/%d",
			ErrGeometryMismatch, h.lo, h.hi, len(h.bins), other.lo, other.hi, len(other.bins))
	}
	for i, c := range other.bins {
		h.bins[i] += c
	}
	h.under += other.under
	h.over += other.over
	return nil
}

// TotalCount returns the sum of all counters, which equals the number of
// Fill calls made against the histogram (and everything merged into it).
func (h *Histogram) TotalCount() int64 {
	total := h.under + h.over
	for _, c := range h.bins {
		total += c
	}
	return total
}

// Lo returns the lower edge of the histogram range.
func (h *Histogram) Lo() float64 { return h.lo }

// Hi returns the upper edge of the histogram range.
func (h *Histogram) Hi() float64 { return h.hi }

// Bins returns the number of regular bins.
func (h *Histogram) Bins() int { return len(h.bins) }

// BinWidth returns the constant width of each regular bin.
func (h *Histogram) BinWidth() float64 { return h.width }

// Counts returns a copy of the regular bin counters in bin order.
func (h *Histogram) Counts() []int64 {
	out := make([]int64, len(h.bins))
	copy(out, h.bins)
	return out
}

// Count returns the counter of bin i.
func (h *Histogram) Count(i int) int64 { return h.bins[i] }

// Underflow returns the number of fills below the range.
func (h *Histogram) Underflow() int64 { return h.under }

// Overflow returns the number of fills at or above the range.
func (h *Histogram) Overflow() int64 { return h.over }

// BinCenter returns the midpoint of bin i.
func (h *Histogram) BinCenter(i int) float64 {
	return h.lo + (float64(i)+0.5)*h.width
}

// BinCenters returns a restartable sequence of the midpoints of all bins,
// in bin order.
func (h *Histogram) BinCenters() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for i := range h.bins {
			if !yield(h.BinCenter(i)) {
				return
			}
		}
	}
}

// SetCounts overwrites all counters from stored values, used when loading
// a finalized histogram from persistence. It fails with ErrGeometryMismatch
// if counts does not have one entry per bin.
func (h *Histogram) SetCounts(counts []int64, under, over int64) error {
	if len(counts) != len(h.bins) {
		return fmt.Errorf("%w: %d counts for %d bins", ErrGeometryMismatch, len(counts), len(h.bins))
	}
	copy(h.bins, counts)
	h.under = under
	h.over = over
	return nil
}

// Mean returns the count-weighted mean of the bin centers. It ignores
// underflow and overflow, and returns NaN for an empty histogram.
func (h *Histogram) Mean() float64 {
	xs, ws := h.weighted()
	return stat.Mean(xs, ws)
}

// StdDev returns the count-weighted standard deviation of the bin centers,
// ignoring underflow and overflow. It returns NaN when fewer than two
// in-range fills exist.
func (h *Histogram) StdDev() float64 {
	xs, ws := h.weighted()
	return stat.StdDev(xs, ws)
}

func (h *Histogram) weighted() (xs, ws []float64) {
	xs = make([]float64, len(h.bins))
	ws = make([]float64, len(h.bins))
	for i, c := range h.bins {
		xs[i] = h.BinCenter(i)
		ws[i] = float64(c)
	}
	return xs, ws
}

// String renders the histogram as a fixed-width text table: one line per
// bin with its range and count, followed by underflow, overflow, and total.
func (h *Histogram) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "histogram [%g, %g) bins=%d width=%g\n", h.lo, h.hi, len(h.bins), h.width)
	peak := int64(1)
	for _, c := range h.bins {
		peak = max(peak, c)
	}
	for i, c := range h.bins {
		edge := h.lo + float64(i)*h.width
		bar := strings.Repeat("*", int(math.Round(float64(c)/float64(peak)*40)))
		fmt.Fprintf(&b, "[%8.3f, %8.3f) %10d %s\n", edge, edge+h.width, c, bar)
	}
	fmt.Fprintf(&b, "underflow %d overflow %d total %d\n", h.under, h.over, h.TotalCount())
	return b.String()
}
