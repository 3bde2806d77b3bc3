// Package sweep orchestrates a parameter sweep over string masses: for each
// setting it drives one independent generator session through a fixed trial
// budget, accumulates primary-hadron rapidities into a per-setting
// histogram, and collects the finalized histograms in sweep order.
package sweep

import "fmt"

// Setting is one value of the swept parameter together with its display
// metadata. Immutable once constructed.
type Setting struct {
	// Value is the invariant string mass in GeV.
	Value float64
	// Label is the fixed-precision display label, e.g. "5.00".
	Label string
	// Color names the rendering color for this setting's series.
	Color string
}

// NewSetting builds a setting with a two-decimal label derived from the
// value.
func NewSetting(value float64, color string) Setting {
	return Setting{
		Value: value,
		Label: fmt.Sprintf("%.2f", value),
		Color: color,
	}
}
