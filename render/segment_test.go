package render

import (
	"reflect"
	"testing"
)

func TestParseSegments(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []Segment
	}{
		{"empty", "", nil},
		{"prose only", "hello", []Segment{{"hello", KindNormal}}},
		{"code between prose", "a```code```b", []Segment{{"a", KindNormal}, {"```code```", KindCode}, {"b", KindNormal}}},
		{"whitespace dropped", "```x```\n\n```y```", []Segment{{"```x```", KindCode}, {"```y```", KindCode}}},
		{"multiline code", "see:\n```go\nfmt.Println()\n```\ndone", []Segment{
			{"see:\n", KindNormal},
			{"```go\nfmt.Println()\n```", KindCode},
			{"\ndone", KindNormal},
		}},
		{"non-greedy", "```a``` mid ```b```", []Segment{{"```a```", KindCode}, {" mid ", KindNormal}, {"```b```", KindCode}}},
		{"unterminated fence", "x ```open", []Segment{{"x ```open", KindNormal}}},
		{"whitespace only", "  \n ", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseSegments(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseSegments(%q)=%#v", tc.in, got)
			}
		})
	}
}

func TestParseSegments_Idempotent(t *testing.T) {
	for _, in := range []string{"a```code```b", "intro\n```py\nx=1\n```\noutro", "plain"} {
		first := ParseSegments(in)
		again := ParseSegments(Join(first))
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("re-segmenting %q: %#v != %#v", in, first, again)
		}
	}
}

func TestFinal_MatchesLastFrame(t *testing.T) {
	for _, in := range []string{"plain", "a\xffb ```c\xfe```\n\n", "  \n", "\xe4\xbd"} {
		steps := drain(NewMachine(in))
		var last string
		for _, s := range steps {
			if s.State == StateRevealing {
				last = s.Text
			}
		}
		got := Final(in)
		if got != last || got != steps[len(steps)-1].Text {
			t.Fatalf("Final(%q)=%q, last frame %q, done %q", in, got, last, steps[len(steps)-1].Text)
		}
	}
	if got := Final("x\xff"); got != "x\uFFFD" {
		t.Fatalf("Final()=%q", got)
	}
}
