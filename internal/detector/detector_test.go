package detector

import (
	"testing"
)

func TestDetector_Detect(t *testing.T) {
	d := New()

	tests := []struct {
		name     string
		text     string
		wantLang string
		wantOK   bool
	}{
		{"empty", "", "", false},
		{"tibetan only", "བྱང་ཆུབ་སེམས་ཀྱི་ལྗོན་ཤིང་།", "", false},
		{"english", "The mind of awakening is the wish to attain buddhahood for the sake of all beings.", "English", true},
		{"german", "Der Geist des Erwachens ist der Wunsch, zum Wohl aller Wesen Buddhaschaft zu erlangen.", "German", true},
		{"french", "L'esprit d'éveil est le souhait d'atteindre l'état de bouddha pour le bien de tous les êtres.", "French", true},
		{"english quoting tibetan", "The mind of awakening (བྱང་ཆུབ་ཀྱི་སེམས་) is the wish to attain buddhahood for all beings.", "English", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, ok := d.Detect(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Detect(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if tt.wantOK && lang.String() != tt.wantLang {
				t.Errorf("Detect(%q) = %v, want %v", tt.text, lang, tt.wantLang)
			}
		})
	}
}

func TestStripTibetan(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"plain text", "plain text"},
		{"bodhicitta (བྱང་ཆུབ་སེམས།) arises", "bodhicitta ( ) arises"},
		{"ཀ་ཁ།  ", ""},
	}
	for _, tt := range tests {
		if got := StripTibetan(tt.in); got != tt.want {
			t.Errorf("StripTibetan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"English", "English", true},
		{"italian", "Italian", true},
		{"de", "German", true},
		{"FRA", "French", true},
		{"", "", false},
		{"Tibetan", "", false},
		{"Klingon", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lang, ok := Lookup(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && lang.String() != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.in, lang, tt.want)
			}
		})
	}
}

func TestDetector_Restricted(t *testing.T) {
	en, _ := Lookup("English")
	it, _ := Lookup("Italian")
	d := New(en, it)

	lang, ok := d.Detect("The tree of awakening mind constantly produces fruit.")
	if !ok || lang != en {
		t.Errorf("expected English, got %v (ok=%v)", lang, ok)
	}
	if _, ok := d.Detect("   "); ok {
		t.Error("expected no result for blank text")
	}
}
