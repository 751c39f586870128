package dataprocessing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"agrirank/internal/config"
)

// ParsePolicy selects how free-form rate text becomes a number. The two
// policies disagree on fractional and noisy input, so a run records which
// one it used.
type ParsePolicy string

const (
	// PolicyStrict strips known decorations and requires the rest to be a decimal.
	PolicyStrict ParsePolicy = config.RateParseStrict
	// PolicyTolerant takes the first run of digits and ignores everything else.
	PolicyTolerant ParsePolicy = config.RateParseTolerant
)

// missingSentinel is the placeholder the market site writes for empty cells.
const missingSentinel = "&nbsp;"

var (
	decorations    = strings.NewReplacer("Rs.", "", "/-", "", ",", "")
	strictDecimal  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
	firstIntegerRe = regexp.MustCompile(`\d+`)
)

// RateParser converts rate strings such as "Rs. 1,700/-" to numbers.
// Parse is total: every input yields either a finite value or ok=false.
type RateParser struct {
	policy ParsePolicy
}

// NewRateParser returns a parser for policy.
func NewRateParser(policy ParsePolicy) (*RateParser, error) {
	switch policy {
	case PolicyStrict, PolicyTolerant:
		return &RateParser{policy: policy}, nil
	default:
		return nil, fmt.Errorf("unknown rate parse policy %q", policy)
	}
}

// Policy returns the active policy.
func (p *RateParser) Policy() ParsePolicy {
	return p.policy
}

// Parse returns the numeric value of text, or ok=false when text is a
// missing-value sentinel or does not parse under the active policy.
func (p *RateParser) Parse(text string) (float64, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == missingSentinel {
		return 0, false
	}

	if p.policy == PolicyTolerant {
		digits := firstIntegerRe.FindString(trimmed)
		if digits == "" {
			return 0, false
		}
		return parseFinite(digits)
	}

	cleaned := strings.Join(strings.Fields(decorations.Replace(trimmed)), "")
	if !strictDecimal.MatchString(cleaned) {
		return 0, false
	}
	return parseFinite(cleaned)
}

// ParseQuantity parses a traded quantity. Thousands separators are allowed;
// negative or non-numeric quantities are rejected.
func ParseQuantity(text string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if cleaned == "" || cleaned == missingSentinel || !strictDecimal.MatchString(cleaned) {
		return 0, false
	}
	v, ok := parseFinite(cleaned)
	if !ok || v < 0 {
		return 0, false
	}
	return v, true
}

// FormatRate renders n in the market's decorated form, "Rs. 1700/-".
func FormatRate(n float64) string {
	return "Rs. " + strconv.FormatFloat(n, 'f', -1, 64) + "/-"
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
