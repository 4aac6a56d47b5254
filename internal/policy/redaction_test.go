package policy

import "testing"

func TestMaskPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"whatsapp:+237650000001", "+23765***"},
		{"+237650000001", "+23765***"},
		{"+1555", "+1555"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := MaskPhone(tc.in); got != tc.want {
			t.Fatalf("MaskPhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactPII(t *testing.T) {
	out, changed := RedactPII("reach me at jo@example.com or +237 650 000 001")
	if !changed {
		t.Fatalf("RedactPII() changed = false, want true")
	}
	if out != "reach me at [REDACTED_EMAIL] or [REDACTED_PHONE]" {
		t.Fatalf("RedactPII() = %q", out)
	}

	out, changed = RedactPII("just rates please")
	if changed || out != "just rates please" {
		t.Fatalf("RedactPII(clean) = %q, %v, want unchanged", out, changed)
	}
}
