package arabic

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "Empty",
			in:   "",
			want: "",
		},
		{
			name: "Tashkeel removed",
			in:   "مُحَمَّد",
			want: "محمد",
		},
		{
			name: "Alef hamza above folds to bare alef",
			in:   "أحمد",
			want: "احمد",
		},
		{
			name: "Alef madda folds to bare alef",
			in:   "آمنة",
			want: "امنه",
		},
		{
			name: "Alef maqsura folds to ya",
			in:   "مصطفى",
			want: "مصطفي",
		},
		{
			name: "Taa marbuta folds to haa",
			in:   "فاطمة",
			want: "فاطمه",
		},
		{
			name: "Zero width space removed",
			in:   "سمية​ مصلوحي",
			want: "سميه مصلوحي",
		},
		{
			name: "Bidi marks removed",
			in:   "‏عمر‎",
			want: "عمر",
		},
		{
			name: "Whitespace collapsed and trimmed",
			in:   "  عبد   الرحمن  ",
			want: "عبد الرحمن",
		},
		{
			name: "Latin text passes through",
			in:   "Omar Alami",
			want: "Omar Alami",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeFoldsVariantsToOneKey(t *testing.T) {
	variants := []string{
		"سمية مصلوحي",
		"سمية​ مصلوحي",
		"سمية مصلوحى",
	}

	key := Normalize(variants[0])
	for _, v := range variants[1:] {
		if got := Normalize(v); got != key {
			t.Errorf("Normalize(%q) = %q, want %q", v, got, key)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"سمية مصلوحي",
		"أَحْمَد",
		"  فاطمة​  الزهراء ",
		"Omar",
	}

	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}
