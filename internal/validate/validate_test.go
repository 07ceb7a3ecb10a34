package validate

import (
	"strings"
	"testing"
)

func TestInputAcceptsBounds(t *testing.T) {
	for _, raw := range []string{"a", "  hello  ", strings.Repeat("x", MaxLength), "  " + strings.Repeat("é", MaxLength) + "\n"} {
		got := Input(raw)
		if !got.Valid {
			t.Fatalf("expected %q (len %d) to be valid: %s", raw, len(raw), got.Error)
		}
		if got.Sanitized != strings.TrimSpace(raw) {
			t.Fatalf("unexpected sanitized value %q", got.Sanitized)
		}
	}
}

func TestInputRejectsEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		got := Input(raw)
		if got.Valid {
			t.Fatalf("expected %q to be invalid", raw)
		}
		if got.Error != ReasonEmpty {
			t.Fatalf("unexpected reason %q", got.Error)
		}
	}
}

func TestInputRejectsTooLong(t *testing.T) {
	got := Input(strings.Repeat("x", MaxLength+1))
	if got.Valid {
		t.Fatal("expected over-limit input to be invalid")
	}
	if got.Error != ReasonTooLong {
		t.Fatalf("unexpected reason %q", got.Error)
	}
}

func TestInputStripsScript(t *testing.T) {
	got := Input("hello <script>alert(1)</script> world")
	if !got.Valid {
		t.Fatalf("unexpected invalid: %s", got.Error)
	}
	if got.Sanitized != "hello  world" {
		t.Fatalf("got %q", got.Sanitized)
	}
	if strings.Contains(got.Sanitized, "script") {
		t.Fatal("sanitized output still mentions script")
	}
}

func TestStripScriptsNonGreedyAndCaseInsensitive(t *testing.T) {
	in := `a<SCRIPT type="x">one</Script>b<script>two</script>c`
	if got := StripScripts(in); got != "abc" {
		t.Fatalf("got %q", got)
	}

	multiline := "x<script>\nline1\nline2\n</script>y"
	if got := StripScripts(multiline); got != "xy" {
		t.Fatalf("got %q", got)
	}
}

func TestStripScriptsLeavesOtherMarkup(t *testing.T) {
	in := `<img src=x onerror="alert(1)"><b>bold</b>`
	if got := StripScripts(in); got != in {
		t.Fatalf("non-script markup should pass through, got %q", got)
	}
}
