package pipeline

import (
	"slices"
	"testing"
)

func TestMathSpans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []span
	}{
		{name: "inline dollars", in: "a $x$ b", want: []span{{start: 2, end: 5}}},
		{name: "display dollars", in: "$$x$$", want: []span{{start: 0, end: 5}}},
		{
			name: "bracket delimiters",
			in:   `\(x\) and \[y\]`,
			want: []span{{start: 0, end: 5}, {start: 10, end: 15}},
		},
		{name: "escaped dollar", in: `\$5 and $x$`, want: []span{{start: 8, end: 11}}},
		{
			name: "environment",
			in:   `\begin{align*}x\end{align*}`,
			want: []span{{start: 0, end: 27, env: "align*"}},
		},
		{name: "unterminated", in: "cost $5", want: nil},
		{name: "other command", in: `\bar{x} text`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := mathSpans(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("mathSpans(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestShield_RoundTrip(t *testing.T) {
	t.Parallel()

	in := "a $x_1$ and <pre>--</pre> b"
	var sh shield
	masked := sh.protect(in, protectedSpans(in))

	if masked != "a "+shieldOpen+"0"+shieldClose+" and "+shieldOpen+"1"+shieldClose+" b" {
		t.Errorf("protect() = %q", masked)
	}
	if got := sh.restore(masked); got != in {
		t.Errorf("restore() = %q, want %q", got, in)
	}
}

func TestShield_SkipsOverlap(t *testing.T) {
	t.Parallel()

	var sh shield
	got := sh.protect("abcdef", []span{{start: 0, end: 4}, {start: 2, end: 5}})
	if got != shieldOpen+"0"+shieldClose+"ef" {
		t.Errorf("protect() = %q", got)
	}
	if len(sh.saved) != 1 {
		t.Errorf("saved %d regions, want 1", len(sh.saved))
	}
}
