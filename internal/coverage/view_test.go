package coverage

import (
	"strings"
	"testing"

	"github.com/scholarslab/nlfeatures/internal/model"
)

func TestView_sanitisesHTML(t *testing.T) {
	got := View("geo|3|0|0|osm\r\n<p>Monticello<script>alert(1)</script></p>", true)
	if strings.Contains(got, "<script>") {
		t.Errorf("View kept script tag: %q", got)
	}
	if !strings.Contains(got, "<p>Monticello") {
		t.Errorf("View dropped paragraph: %q", got)
	}
}

func TestView_escapesPlainText(t *testing.T) {
	got := View("geo|3|0|0|osm\nA < B\nC", false)
	want := "A &lt; B<br />\nC"
	if got != want {
		t.Errorf("View = %q, want %q", got, want)
	}
}

func TestPlainText(t *testing.T) {
	got, err := PlainText("geo\r\n<p>Visit <strong>Monticello</strong></p>", true)
	if err != nil {
		t.Fatalf("PlainText: %v", err)
	}
	if got != "Visit **Monticello**" {
		t.Errorf("PlainText = %q", got)
	}

	plain, err := PlainText("geo\nAs typed", false)
	if err != nil {
		t.Fatalf("PlainText: %v", err)
	}
	if plain != "As typed" {
		t.Errorf("PlainText = %q, want %q", plain, "As typed")
	}
}

func TestInputNameStem(t *testing.T) {
	saved := &model.Feature{ID: 12}
	if got := InputNameStem(saved); got != "nlfeatures12_" {
		t.Errorf("InputNameStem(saved) = %q", got)
	}

	a, b := InputNameStem(nil), InputNameStem(&model.Feature{})
	if !strings.HasPrefix(a, "nlfeatures") || !strings.HasSuffix(a, "_") {
		t.Errorf("InputNameStem(nil) = %q", a)
	}
	if a == b {
		t.Error("expected distinct stems for unsaved features")
	}
}
