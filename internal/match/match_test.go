package match

import "testing"

func TestLongestPlainTextSpan(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "empty", text: "", want: ""},
		{name: "no markup keeps whole text", text: "Monticello, Virginia", want: "%Monticello, Virginia"},
		{name: "no markup is not trimmed", text: "  Charlottesville ", want: "%  Charlottesville "},
		{name: "longest fragment after tags", text: "Before <b>bold</b> After this is longer text", want: "%After this is longer text%"},
		{name: "entities on both sides", text: "&nbsp;short&nbsp;", want: "%short%"},
		{name: "only a tag", text: "<br />", want: "%%"},
		{name: "only entities", text: "&amp;&lt;", want: "%%"},
		{name: "tie goes to first fragment", text: "ab<x/>ab", want: "%ab%"},
		{name: "numeric entity", text: "Caf&#233; du Monde, New Orleans", want: "%du Monde, New Orleans%"},
		{name: "ampersand followed by space is text", text: "Lewis & Clark", want: "%Lewis & Clark"},
		{name: "unclosed tag is text", text: "a < b", want: "%a < b"},
		{name: "empty angle brackets are text", text: "a <> b", want: "%a <> b"},
		{name: "multi-line html", text: "<p>Albemarle County</p>\r\n<p>Virginia</p>", want: "%Albemarle County%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := LongestPlainTextSpan(tt.text)
			if got != tt.want {
				t.Errorf("LongestPlainTextSpan(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNewKey_countsCharactersNotBytes(t *testing.T) {
	// "éé" is 4 bytes but only 2 characters, so it ties with "ab" and loses.
	k := NewKey("ab<i>éé")
	if k.RawSegment != "ab" {
		t.Errorf("RawSegment = %q, want %q", k.RawSegment, "ab")
	}
	if k.Pattern != "%ab%" {
		t.Errorf("Pattern = %q, want %q", k.Pattern, "%ab%")
	}
}

func TestNewKey_rawSegmentIsUntrimmed(t *testing.T) {
	k := NewKey("<b>x</b>  padded text  ")
	if k.WholeString {
		t.Error("WholeString = true, want false")
	}
	if k.RawSegment != "  padded text  " {
		t.Errorf("RawSegment = %q", k.RawSegment)
	}
	if k.Pattern != "%padded text%" {
		t.Errorf("Pattern = %q, want %q", k.Pattern, "%padded text%")
	}
}

func TestNewKey_wholeString(t *testing.T) {
	k := NewKey("Richmond")
	if !k.WholeString {
		t.Error("WholeString = false, want true")
	}
	if k.RawSegment != "Richmond" || k.Pattern != "%Richmond" {
		t.Errorf("NewKey = %+v", k)
	}

	empty := NewKey("")
	if empty.Pattern != "" || empty.RawSegment != "" {
		t.Errorf("NewKey(\"\") = %+v, want empty pattern", empty)
	}
}

func TestLongestPlainTextSpan_deterministic(t *testing.T) {
	text := "<em>Shenandoah</em> Valley &mdash; upper reaches"
	first := LongestPlainTextSpan(text)
	for i := 0; i < 100; i++ {
		if got := LongestPlainTextSpan(text); got != first {
			t.Fatalf("call %d = %q, first call = %q", i, got, first)
		}
	}
}
