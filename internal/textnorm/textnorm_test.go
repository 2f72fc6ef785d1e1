package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Tokyo High", "tokyohigh"},
		{"ＴＯＫＹＯ　ＨＩＧＨ", "tokyohigh"},
		{"Ｔokyo　High", "tokyohigh"},
		{"tokyo high", "tokyohigh"},
		{"ﾄｳｷｮｳ", "トウキョウ"},
		{"トウキョウ", "トウキョウ"},
		{"私立・東京高校", "私立東京高校"},
		{"東京高校（分校）", "東京高校分校"},
		{"  St. Mary's  ", "stmarys"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Ｔokyo　High", "ﾄｳｷｮｳ高校", "St. Mary's", "私立・東京", ""}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestNormalizeEquatesSpellingVariants(t *testing.T) {
	pairs := [][2]string{
		{"Ｔokyo　High", "tokyo high"},
		{"TOKYO HIGH", "tokyo  high"},
		{"ﾄｳｷｮｳ高校", "トウキョウ高校"},
	}
	for _, p := range pairs {
		if Normalize(p[0]) != Normalize(p[1]) {
			t.Errorf("expected %q and %q to normalize equal (%q vs %q)",
				p[0], p[1], Normalize(p[0]), Normalize(p[1]))
		}
	}
}
