package hardware

// transitions maps (prev<<2 | cur) of the two-bit (CLK, DT) state to a
// quarter step: +1, -1, or 0 for no movement or an invalid jump.
var transitions = [16]int8{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// restState is both lines high: the detent position with pull-ups.
const restState = 0b11

// quadrature decodes a two-phase encoder into whole detents. Contact bounce
// produces quarter steps that cancel out, so only complete cycles that return
// to the rest state count.
type quadrature struct {
	state uint8
	acc   int
}

func levelBits(clk, dt bool) uint8 {
	var s uint8
	if clk {
		s |= 0b10
	}
	if dt {
		s |= 0b01
	}
	return s
}

func (q *quadrature) reset(clk, dt bool) {
	q.state = levelBits(clk, dt)
	q.acc = 0
}

// update feeds a new sample. It returns +1 for a clockwise detent, -1 for a
// counter-clockwise one, and 0 otherwise.
func (q *quadrature) update(clk, dt bool) int {
	cur := levelBits(clk, dt)
	if cur == q.state {
		return 0
	}
	q.acc += int(transitions[q.state<<2|cur])
	q.state = cur
	if cur != restState {
		return 0
	}
	acc := q.acc
	q.acc = 0
	switch {
	case acc >= 2:
		return 1
	case acc <= -2:
		return -1
	default:
		return 0
	}
}
