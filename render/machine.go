package render

import "strings"

type State int

const (
	StateIdle State = iota
	StateRevealing
	StatePaused
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRevealing:
		return "revealing"
	case StatePaused:
		return "paused"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Delays in scheduler units.
const (
	CodeDelay    = 5
	NormalDelay  = 30
	SegmentPause = 300
)

// Step is one transition of the machine. Text is the cumulative revealed
// text after a reveal step.
type Step struct {
	State State
	Text  string
	Delay int
}

// Machine walks segments rune by rune:
//
//	Idle -> Revealing(seg, char) ... -> Paused -> Revealing(seg+1, 0) ... -> Paused -> Done
type Machine struct {
	segs  [][]rune
	kinds []Kind

	state State
	seg   int
	char  int
	text  strings.Builder
}

func NewMachine(text string) *Machine {
	parsed := ParseSegments(text)
	m := &Machine{
		segs:  make([][]rune, len(parsed)),
		kinds: make([]Kind, len(parsed)),
	}
	for i, s := range parsed {
		m.segs[i] = []rune(s.Text)
		m.kinds[i] = s.Kind
	}
	return m
}

func (m *Machine) State() State { return m.state }

// Position returns the segment and rune index of the next reveal.
func (m *Machine) Position() (segment, char int) { return m.seg, m.char }

func (m *Machine) Next() Step {
	switch m.state {
	case StateDone:
		return Step{State: StateDone, Text: m.text.String()}
	case StateRevealing:
		if m.char >= len(m.segs[m.seg]) {
			m.state = StatePaused
			m.seg++
			m.char = 0
			return Step{State: StatePaused, Delay: SegmentPause}
		}
	case StateIdle, StatePaused:
		if m.seg >= len(m.segs) {
			m.state = StateDone
			return Step{State: StateDone, Text: m.text.String()}
		}
		m.state = StateRevealing
	}

	m.text.WriteRune(m.segs[m.seg][m.char])
	m.char++
	delay := NormalDelay
	if m.kinds[m.seg] == KindCode {
		delay = CodeDelay
	}
	return Step{State: StateRevealing, Text: m.text.String(), Delay: delay}
}
