package text

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "Empty", in: "   ", want: ""},
		{name: "PlainPassthrough", in: "  just   some\ttext  ", want: "just some text"},
		{name: "Entities", in: "fish &amp; chips", want: "fish & chips"},
		{name: "Paragraphs", in: "<p>Hello&nbsp;<b>world</b></p><p>second</p>", want: "Hello world\nsecond"},
		{name: "LineBreaks", in: "one<br>two<br/><br/>three", want: "one\ntwo\n\nthree"},
		{name: "DropsScript", in: "<div>shown</div><script>alert(1)</script><style>p{}</style>", want: "shown"},
		{name: "KeepsLineBreaksInPlainText", in: "first line\n\n\n\nsecond line\n", want: "first line\n\nsecond line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Fatalf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{name: "FitsOnOneLine", text: "hello world", width: 20, want: []string{"hello world"}},
		{name: "BreaksOnWords", text: "hello world foo", width: 11, want: []string{"hello world", "foo"}},
		{name: "SplitsLongWords", text: "abcdefghij", width: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "KeepsBlankLines", text: "a\n\nb", width: 10, want: []string{"a", "", "b"}},
		{name: "WideRunes", text: "日本語", width: 4, want: []string{"日本", "語"}},
		{name: "NoWidth", text: "a b\nc", width: 0, want: []string{"a b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Wrap(tt.text, tt.width)); diff != "" {
				t.Fatalf("Wrap mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
