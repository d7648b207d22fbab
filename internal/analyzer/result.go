package analyzer

import (
	"fmt"
	"math"
	"regexp"

	"github.com/bytedance/sonic"
)

// Result is the analysis returned by the external collaborator. The service
// computes it; this package only decodes and renders it.
type Result struct {
	ImageURL    string      `json:"image_url"`
	Colors      []Color     `json:"colors"`
	Predictions Predictions `json:"predictions"`
}

// Color is one entry of the dominant palette. Percentage is a share in [0,1].
type Color struct {
	Hex        string  `json:"hex"`
	Percentage float64 `json:"percentage"`
}

type Predictions struct {
	Pattern Prediction `json:"pattern"`
	Style   Prediction `json:"style"`
}

type Prediction struct {
	Predicted string `json:"predicted"`
}

// percentageSumTolerance matches the tolerance of the upstream validation report.
const percentageSumTolerance = 0.01

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Warnings reports non-fatal oddities in the palette. They never make a
// result unrenderable.
func (r *Result) Warnings() []string {
	var warnings []string
	sum := 0.0
	for i, c := range r.Colors {
		if !hexColor.MatchString(c.Hex) {
			warnings = append(warnings, fmt.Sprintf("color %d: hex %q is not #rrggbb", i, c.Hex))
		}
		if c.Percentage < 0 || c.Percentage > 1 || math.IsNaN(c.Percentage) {
			warnings = append(warnings, fmt.Sprintf("color %d: percentage %.4f outside [0,1]", i, c.Percentage))
		}
		sum += c.Percentage
	}
	if sum > 1.0+percentageSumTolerance {
		warnings = append(warnings, fmt.Sprintf("percentage sum %.2f exceeds 1.0", sum))
	}
	return warnings
}

// --- wire types ---

// Pointers distinguish absent fields from zero values.
type wireResult struct {
	ImageURL    string           `json:"image_url"`
	Colors      *[]Color         `json:"colors"`
	Predictions *wirePredictions `json:"predictions"`
}

type wirePredictions struct {
	Pattern *wirePrediction `json:"pattern"`
	Style   *wirePrediction `json:"style"`
}

type wirePrediction struct {
	Predicted *string `json:"predicted"`
}

// decodeResult parses a collaborator body and enforces the renderability
// invariant: colors must be a list (possibly empty) and both predicted
// labels must be present.
func decodeResult(body []byte, requestedURL string) (*Result, error) {
	var w wireResult
	if err := sonic.ConfigStd.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if w.Colors == nil {
		return nil, fmt.Errorf("%w: missing colors", ErrMalformedResponse)
	}
	if w.Predictions == nil {
		return nil, fmt.Errorf("%w: missing predictions", ErrMalformedResponse)
	}
	if w.Predictions.Pattern == nil || w.Predictions.Pattern.Predicted == nil {
		return nil, fmt.Errorf("%w: missing predictions.pattern.predicted", ErrMalformedResponse)
	}
	if w.Predictions.Style == nil || w.Predictions.Style.Predicted == nil {
		return nil, fmt.Errorf("%w: missing predictions.style.predicted", ErrMalformedResponse)
	}

	imageURL := w.ImageURL
	if imageURL == "" {
		imageURL = requestedURL
	}

	colors := make([]Color, len(*w.Colors))
	copy(colors, *w.Colors)

	return &Result{
		ImageURL: imageURL,
		Colors:   colors,
		Predictions: Predictions{
			Pattern: Prediction{Predicted: *w.Predictions.Pattern.Predicted},
			Style:   Prediction{Predicted: *w.Predictions.Style.Predicted},
		},
	}, nil
}
