// Package render reveals an answer one character at a time, faster inside
// fenced code blocks than in prose.
package render

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindNormal Kind = "normal"
	KindCode   Kind = "code"
)

type Segment struct {
	Text string `json:"text"`
	Kind Kind   `json:"type"`
}

var codeFence = regexp.MustCompile("(?s)```.*?```")

// ParseSegments splits text into fenced code blocks (fences kept) and the
// prose between them. Whitespace-only prose is dropped; an unterminated
// fence stays prose.
func ParseSegments(text string) []Segment {
	var out []Segment
	addNormal := func(s string) {
		if strings.TrimSpace(s) != "" {
			out = append(out, Segment{Text: s, Kind: KindNormal})
		}
	}

	last := 0
	for _, loc := range codeFence.FindAllStringIndex(text, -1) {
		addNormal(text[last:loc[0]])
		out = append(out, Segment{Text: text[loc[0]:loc[1]], Kind: KindCode})
		last = loc[1]
	}
	addNormal(text[last:])
	return out
}

// Join concatenates segment texts, which is what a finished animation shows.
func Join(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Final returns the text a completed animation of text ends with. Bytes that
// are not valid UTF-8 become U+FFFD, one per byte, as they do in the frames.
func Final(text string) string {
	var b strings.Builder
	for _, s := range ParseSegments(text) {
		b.WriteString(string([]rune(s.Text)))
	}
	return b.String()
}
