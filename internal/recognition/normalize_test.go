package recognition

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	cases := map[string]string{
		"Jiří":     "Jiri",
		"Café":     "Cafe",
		"Øre":      "Øre", // Ø is a distinct letter, not a combining mark
		"François": "Francois",
		"plain":    "plain",
	}
	for input, expected := range cases {
		if got := RemoveDiacritics(input); got != expected {
			t.Errorf("RemoveDiacritics(%q) = %q, expected %q", input, got, expected)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Jiří Novák":      "jiri novak",
		"  Anna-Marie  X": "anna marie x",
		"ALICE":           "alice",
		"a   b\tc":        "a b c",
		"":                "",
	}
	for input, expected := range cases {
		if got := NormalizeName(input); got != expected {
			t.Errorf("NormalizeName(%q) = %q, expected %q", input, got, expected)
		}
	}
}
