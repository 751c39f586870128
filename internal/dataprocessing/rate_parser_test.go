package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateParser(t *testing.T) {
	p, err := NewRateParser(PolicyStrict)
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p.Policy())

	_, err = NewRateParser("fuzzy")
	assert.Error(t, err)
}

func TestRateParserStrict(t *testing.T) {
	p, err := NewRateParser(PolicyStrict)
	require.NoError(t, err)

	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{"decorated", "Rs. 1700/-", 1700, true},
		{"thousands separator", "Rs. 1,700/-", 1700, true},
		{"fractional", "Rs. 12.5/-", 12.5, true},
		{"plain number", "950", 950, true},
		{"surrounding whitespace", "  Rs.  800 /-  ", 800, true},
		{"no space after prefix", "Rs.1200/-", 1200, true},
		{"leading dot", ".5", 0.5, true},
		{"nbsp sentinel", "&nbsp;", 0, false},
		{"empty", "", 0, false},
		{"whitespace only", "   ", 0, false},
		{"trailing noise", "Rs. 1700/- approx", 0, false},
		{"text", "not available", 0, false},
		{"two numbers", "1200-1300", 0, false},
		{"infinity text", "Inf", 0, false},
		{"nan text", "NaN", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Parse(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateParserTolerant(t *testing.T) {
	p, err := NewRateParser(PolicyTolerant)
	require.NoError(t, err)

	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{"decorated", "Rs. 1700/-", 1700, true},
		{"fraction dropped", "Rs. 12.5/-", 12, true},
		{"trailing noise kept out", "Rs. 1700/- approx", 1700, true},
		{"range takes first", "1200-1300", 1200, true},
		{"thousands separator splits", "Rs. 1,700/-", 1, true},
		{"nbsp sentinel", "&nbsp;", 0, false},
		{"no digits", "Rs. -/-", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Parse(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatRateRoundTrip(t *testing.T) {
	p, err := NewRateParser(PolicyStrict)
	require.NoError(t, err)

	for _, n := range []float64{0, 1, 12.5, 1150, 1700, 99999.75, 1234567} {
		text := FormatRate(n)
		got, ok := p.Parse(text)
		require.True(t, ok, "parse %q", text)
		assert.Equal(t, n, got, "round trip of %q", text)
	}
	assert.Equal(t, "Rs. 1700/-", FormatRate(1700))
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"50", 50, true},
		{"1,250", 1250, true},
		{" 12.5 ", 12.5, true},
		{"0", 0, true},
		{"-5", 0, false},
		{"", 0, false},
		{"&nbsp;", 0, false},
		{"ten", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseQuantity(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
