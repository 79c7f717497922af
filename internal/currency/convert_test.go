package currency

import "testing"

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		basisKey string
		year     int
		want     float64
	}{
		{
			name:     "home basis is the identity",
			amount:   123456.78,
			basisKey: HomeBasis,
			year:     2025,
			want:     123456.78,
		},
		{
			name:     "approval basis 2025",
			amount:   100000,
			basisKey: ApprovalBasis,
			year:     2025,
			want:     110300,
		},
		{
			name:     "bu basis 2024",
			amount:   100000,
			basisKey: BUBasis,
			year:     2024,
			want:     108200,
		},
		{
			name:     "rounds to cents",
			amount:   33.33,
			basisKey: ApprovalBasis,
			year:     2025, // 33.33 * 1.1030 = 36.76299
			want:     36.76,
		},
		{
			name:     "unknown year falls back to latest",
			amount:   100000,
			basisKey: ApprovalBasis,
			year:     2031,
			want:     110300,
		},
		{
			name:     "unknown basis degrades to no conversion",
			amount:   100000,
			basisKey: "made-up",
			year:     2025,
			want:     100000,
		},
		{
			name:     "zero amount",
			amount:   0,
			basisKey: AverageBasis,
			year:     2023,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.amount, tt.basisKey, tt.year)
			if got != tt.want {
				t.Errorf("Convert(%v, %q, %d) = %v, want %v",
					tt.amount, tt.basisKey, tt.year, got, tt.want)
			}
		})
	}
}

func TestConvertHomeBasisExactForAwkwardFloats(t *testing.T) {
	// The identity path must not round-trip through the decimal multiply; the
	// same number displayed twice has to stay bit-identical.
	for _, amount := range []float64{0.1, 1.0 / 3.0, 999999999.99, -42.42} {
		if got := Convert(amount, HomeBasis, 2025); got != amount {
			t.Errorf("Convert(%v, home, 2025) = %v, want the amount unchanged", amount, got)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name     string
		basisKey string
		year     int
		want     string
	}{
		{name: "home label", basisKey: HomeBasis, year: 2025, want: "EUR"},
		{name: "approval label", basisKey: ApprovalBasis, year: 2024, want: "USD (approval)"},
		{name: "unknown basis echoes the key", basisKey: "made-up", year: 2025, want: "made-up"},
		{name: "unknown year uses latest labels", basisKey: BUBasis, year: 1999, want: "USD (BU)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.basisKey, tt.year); got != tt.want {
				t.Errorf("Label(%q, %d) = %q, want %q", tt.basisKey, tt.year, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if got := Format(1234.5, "EUR"); got != "€1,234.50" {
		t.Errorf("Format(1234.5, EUR) = %q, want %q", got, "€1,234.50")
	}
	if got := Format(0, "USD"); got != "$0.00" {
		t.Errorf("Format(0, USD) = %q, want %q", got, "$0.00")
	}
}
