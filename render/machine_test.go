package render

import "testing"

func drain(m *Machine) []Step {
	var steps []Step
	for {
		s := m.Next()
		steps = append(steps, s)
		if s.State == StateDone {
			return steps
		}
	}
}

func TestMachine_Normal(t *testing.T) {
	m := NewMachine("ab")
	if m.State() != StateIdle {
		t.Fatalf("State()=%v", m.State())
	}
	steps := drain(m)
	want := []Step{
		{StateRevealing, "a", NormalDelay},
		{StateRevealing, "ab", NormalDelay},
		{StatePaused, "", SegmentPause},
		{StateDone, "ab", 0},
	}
	if len(steps) != len(want) {
		t.Fatalf("steps=%+v", steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("step %d = %+v want %+v", i, steps[i], want[i])
		}
	}
	// Done is terminal.
	if s := m.Next(); s.State != StateDone {
		t.Fatalf("Next() after done = %+v", s)
	}
}

func TestMachine_CodeIsFasterAndRunesAreUnits(t *testing.T) {
	steps := drain(NewMachine("你```x```"))
	var delays []int
	for _, s := range steps {
		if s.State == StateRevealing {
			delays = append(delays, s.Delay)
		}
	}
	// one prose rune then seven code runes
	if len(delays) != 8 || delays[0] != NormalDelay || delays[1] != CodeDelay || delays[7] != CodeDelay {
		t.Fatalf("delays=%v", delays)
	}
	if last := steps[len(steps)-1]; last.Text != "你```x```" {
		t.Fatalf("final text=%q", last.Text)
	}
}

func TestMachine_Empty(t *testing.T) {
	steps := drain(NewMachine(""))
	if len(steps) != 1 || steps[0].State != StateDone {
		t.Fatalf("steps=%+v", steps)
	}
}

func TestMachine_Position(t *testing.T) {
	m := NewMachine("ab```c```")
	m.Next()
	if seg, char := m.Position(); seg != 0 || char != 1 {
		t.Fatalf("Position()=(%d,%d)", seg, char)
	}
	m.Next()
	m.Next() // pause
	if seg, char := m.Position(); seg != 1 || char != 0 || m.State() != StatePaused {
		t.Fatalf("Position()=(%d,%d) state=%v", seg, char, m.State())
	}
}
