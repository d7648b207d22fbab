// Package formatter renders analysis views for the terminal.
package formatter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/fashionvista/fashionvista/internal/analyzer"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Formats lists the accepted output formats.
var Formats = []string{"human", "json", "yaml"}

// ValidFormat reports whether format is one of Formats.
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Display writes v to w in the given format.
func Display(w io.Writer, v analyzer.View, format string) error {
	switch format {
	case "json":
		return displayJSON(w, v)
	case "yaml":
		return displayYAML(w, v)
	case "human":
		displayHuman(w, v)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

func displayJSON(w io.Writer, v analyzer.View) error {
	output, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func displayYAML(w io.Writer, v analyzer.View) error {
	output, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(output)
	return err
}

func displayHuman(w io.Writer, v analyzer.View) {
	bold := color.New(color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Fprintln(w)

	switch v.Phase {
	case analyzer.PhaseIdle:
		fmt.Fprintln(w, "Nothing analyzed yet.")
		return
	case analyzer.PhasePending:
		fmt.Fprintln(w, "Analyzing...")
		return
	case analyzer.PhaseFailed:
		red.Fprintln(w, "ANALYSIS FAILED")
		fmt.Fprintf(w, "   %s\n", DescribeFailure(v.Failure))
		return
	}

	if v.ImageURL != "" {
		fmt.Fprintf(w, "Image: %s\n\n", color.CyanString(v.ImageURL))
	}

	bold.Fprintln(w, "COLORS")
	for _, s := range v.Swatches {
		fmt.Fprintf(w, "   %s  %s  %6s\n", swatchBlock(s.Hex), s.Hex, s.Label)
	}
	fmt.Fprintln(w)

	bold.Fprint(w, "PATTERN ")
	fmt.Fprintln(w, v.Pattern)
	bold.Fprint(w, "STYLE   ")
	fmt.Fprintln(w, v.Style)

	if len(v.Warnings) > 0 {
		fmt.Fprintln(w)
		yellow.Fprintln(w, "WARNINGS")
		for _, warn := range v.Warnings {
			fmt.Fprintf(w, "   - %s\n", warn)
		}
	}
}

// DescribeFailure turns a failure code into a sentence for the user.
func DescribeFailure(reason analyzer.FailureReason) string {
	switch reason {
	case analyzer.ReasonTransport:
		return "Could not reach the analysis service."
	case analyzer.ReasonMalformed:
		return "The analysis service returned an unexpected response."
	default:
		return "The analysis did not complete."
	}
}

// swatchBlock paints a block in the swatch colour. Hex values that do not
// parse fall back to an unpainted placeholder.
func swatchBlock(hex string) string {
	const block = "      "
	if len(hex) != 7 || hex[0] != '#' {
		return "[" + strings.Repeat("?", len(block)-2) + "]"
	}
	rgb, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return "[" + strings.Repeat("?", len(block)-2) + "]"
	}
	return color.BgRGB(int(rgb>>16&0xff), int(rgb>>8&0xff), int(rgb&0xff)).Sprint(block)
}
