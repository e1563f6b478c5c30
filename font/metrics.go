package font

import "strings"

// Advance widths of the printable ASCII range (32 to 126) for the base 14
// fonts, in thousandths of an em. Oblique and italic faces share the
// upright metrics.
var (
	helveticaWidths = [95]uint16{
		278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
		333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
		556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
	}
	helveticaBoldWidths = [95]uint16{
		278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333, 584, 584, 584, 611,
		975, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 333, 278, 333, 584, 556,
		333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
		611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
	}
	timesWidths = [95]uint16{
		250, 333, 408, 500, 500, 833, 778, 180, 333, 333, 500, 564, 250, 333, 250, 278,
		500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 278, 278, 564, 564, 564, 444,
		921, 722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889, 722, 722,
		556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611, 333, 278, 333, 469, 500,
		333, 444, 500, 444, 500, 444, 333, 500, 500, 278, 278, 500, 278, 778, 500, 500,
		500, 500, 333, 389, 278, 500, 500, 722, 500, 500, 444, 480, 200, 480, 541,
	}
	timesBoldWidths = [95]uint16{
		250, 333, 555, 500, 500, 1000, 833, 278, 333, 333, 500, 570, 250, 333, 250, 278,
		500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 333, 333, 570, 570, 570, 500,
		930, 722, 667, 722, 722, 667, 611, 778, 778, 389, 500, 778, 667, 944, 722, 778,
		611, 778, 722, 556, 667, 722, 722, 1000, 722, 722, 667, 333, 278, 333, 581, 500,
		333, 500, 556, 444, 556, 444, 333, 500, 556, 278, 333, 556, 278, 833, 556, 500,
		556, 556, 444, 389, 333, 556, 500, 722, 500, 500, 444, 394, 220, 394, 520,
	}
)

// standardFamily classifies a font name as one of the base 14 families,
// accepting the common TrueType aliases. It returns "" for other fonts.
func standardFamily(baseFont string) (family string, bold bool) {
	name := strings.ToLower(stripSubset(baseFont))
	bold = strings.Contains(name, "bold") || strings.Contains(name, "black")
	switch {
	case strings.HasPrefix(name, "helvetica"), strings.HasPrefix(name, "arial"):
		return "Helvetica", bold
	case strings.HasPrefix(name, "times"):
		return "Times", bold
	case strings.HasPrefix(name, "courier"):
		return "Courier", bold
	case strings.HasPrefix(name, "symbol"):
		return "Symbol", false
	case strings.HasPrefix(name, "zapfdingbats"):
		return "ZapfDingbats", false
	}
	return "", false
}

// standardWidth returns the base 14 width of r, if known.
func standardWidth(baseFont string, r rune) (float64, bool) {
	family, bold := standardFamily(baseFont)
	if family == "Courier" {
		return 600, true
	}
	if r < 32 || r > 126 {
		return 0, false
	}
	var table *[95]uint16
	switch {
	case family == "Helvetica" && bold:
		table = &helveticaBoldWidths
	case family == "Helvetica":
		table = &helveticaWidths
	case family == "Times" && bold:
		table = &timesBoldWidths
	case family == "Times":
		table = &timesWidths
	default:
		return 0, false
	}
	return float64(table[r-32]), true
}

// stripSubset removes the six-letter subset tag, as in "ABCDEF+Arial".
func stripSubset(name string) string {
	if len(name) > 7 && name[6] == '+' {
		for _, c := range name[:6] {
			if c < 'A' || c > 'Z' {
				return name
			}
		}
		return name[7:]
	}
	return name
}
