package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"lt", "lt"},
		{"LT", "lt"},
		{" lt-LT ", "lt"},
		{"lt_LT", "lt"},
		{"lit", "lt"},
		{"Lithuanian", "lt"},
		{"lietuvių", "lt"},
		{"ger", "de"},
		{"deu", "de"},
		{"xx", "xx"},
		{"klingon", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Normalize(tc.input); got != tc.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestToISO3(t *testing.T) {
	if got := ToISO3("lt"); got != "lit" {
		t.Fatalf("ToISO3(lt) = %q", got)
	}
	if got := ToISO3("zz"); got != "und" {
		t.Fatalf("ToISO3(zz) = %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"lt":  "Lithuanian",
		"lav": "Latvian",
		"xx":  "XX",
		"":    "Unknown",
	}
	for input, want := range tests {
		if got := DisplayName(input); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
	if got := DisplayList([]string{"lt", "en", "xx"}); got != "Lithuanian (lit), English (eng), XX" {
		t.Fatalf("DisplayList = %q", got)
	}
}

func TestKnown(t *testing.T) {
	if !Known("lt") || Known("xx") {
		t.Fatal("unexpected Known results")
	}
}
