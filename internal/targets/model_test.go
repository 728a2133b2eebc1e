package targets

import "testing"

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trims", in: "  hello  ", want: "hello"},
		{name: "crlf", in: "a\r\nb\rc", want: "a\nb\nc"},
		{name: "collapses blank runs", in: "a\n\n\n\n\nb", want: "a\n\nb"},
		{name: "keeps single blank line", in: "a\n\nb", want: "a\n\nb"},
		{name: "mixed endings collapse", in: "a\r\n\r\n\r\nb", want: "a\n\nb"},
		{name: "blank", in: " \r\n\t ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeText(tt.in)
			if got != tt.want {
				t.Fatalf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := NormalizeText(got); again != got {
				t.Fatalf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}
