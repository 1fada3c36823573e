package sanitize

import "testing"

func TestTextStripsTagsAndCollapsesWhitespace(t *testing.T) {
	got := Text("  Rua <b>das Flores</b>,\n\n 12 ")
	if got != "Rua das Flores, 12" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
}

func TestTextPtrNil(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("expected nil passthrough")
	}
}
