package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"PT3M20S", 200, true},
		{"PT1H2M3S", 3723, true},
		{"PT45S", 45, true},
		{"PT2M", 120, true},
		{"PT1H", 3600, true},
		{"PT0S", 0, true},
		{"PT1M3.5S", 63, true}, // Дробные секунды усекаются вниз
		{"", 0, false},
		{"PT", 0, false},
		{"3:20", 0, false},
		{"P1DT2H", 0, false},
		{"длительность", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParseISODuration(tc.input)
		assert.Equal(t, tc.ok, ok, "Признак разбора для %q", tc.input)
		assert.Equal(t, tc.expected, got, "Секунды для %q", tc.input)
	}
}

func TestFallbackDurationBounds(t *testing.T) {
	// Запасная длительность никогда не нулевая и не отрицательная —
	// иначе таймер автопереключения не завершится
	for i := 0; i < 200; i++ {
		d := FallbackDurationSec()
		assert.GreaterOrEqual(t, d, 180, "Запасная длительность меньше нижней границы")
		assert.LessOrEqual(t, d, 240, "Запасная длительность больше верхней границы")
	}
}
