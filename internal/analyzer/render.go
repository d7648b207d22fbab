package analyzer

import (
	"math"
	"math/big"
	"strconv"
)

// View is the presentation-ready form of a State. Idle and Failed views
// carry no result content; Pending only sets Loading.
type View struct {
	Phase    Phase         `json:"phase"               yaml:"phase"`
	Seq      uint64        `json:"seq"                 yaml:"seq"`
	Loading  bool          `json:"loading"             yaml:"loading"`
	ImageURL string        `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Swatches []Swatch      `json:"swatches,omitempty"  yaml:"swatches,omitempty"`
	Pattern  string        `json:"pattern,omitempty"   yaml:"pattern,omitempty"`
	Style    string        `json:"style,omitempty"     yaml:"style,omitempty"`
	Warnings []string      `json:"warnings,omitempty"  yaml:"warnings,omitempty"`
	Failure  FailureReason `json:"failure,omitempty"   yaml:"failure,omitempty"`
}

type Swatch struct {
	Hex        string  `json:"hex"        yaml:"hex"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	Label      string  `json:"label"      yaml:"label"`
}

// Render maps a state to its view.
func Render(s State) View {
	v := View{Phase: s.Phase, Seq: s.Seq}

	switch s.Phase {
	case PhasePending:
		v.Loading = true
	case PhaseSucceeded:
		if s.Result == nil {
			break
		}
		v.ImageURL = s.Result.ImageURL
		v.Swatches = make([]Swatch, 0, len(s.Result.Colors))
		for _, c := range s.Result.Colors {
			v.Swatches = append(v.Swatches, Swatch{
				Hex:        c.Hex,
				Percentage: c.Percentage,
				Label:      FormatPercentage(c.Percentage),
			})
		}
		v.Pattern = s.Result.Predictions.Pattern.Predicted
		v.Style = s.Result.Predictions.Style.Predicted
		v.Warnings = s.Result.Warnings()
	case PhaseFailed:
		v.Failure = s.Reason
	}

	return v
}

// FormatPercentage renders a [0,1] share as a percentage with one decimal.
// The scaled value p*100 is rounded from its exact binary value, with exact
// halves going up: 0.625 -> "62.5%", 0.0625 -> "6.3%", 0.0765 -> "7.6%".
func FormatPercentage(p float64) string {
	x := p * 100
	if x >= 0 && isTenthsTie(x) {
		return strconv.FormatFloat((math.Floor(x*10)+1)/10, 'f', 1, 64) + "%"
	}
	return strconv.FormatFloat(x, 'f', 1, 64) + "%"
}

// isTenthsTie reports whether x lies exactly halfway between two tenths.
// FormatFloat rounds those to even.
func isTenthsTie(x float64) bool {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return false
	}
	t := new(big.Float).SetPrec(128).SetFloat64(x)
	t.Mul(t, big.NewFloat(10))
	whole, _ := t.Int(nil)
	frac := new(big.Float).SetPrec(128).Sub(t, new(big.Float).SetInt(whole))
	return frac.Cmp(big.NewFloat(0.5)) == 0
}
