package shared

// Direction represents market direction.
type Direction int

const (
	Long Direction = iota
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

// ExitReason represents the reason a position was closed.
type ExitReason int

const (
	StopLossHit ExitReason = iota
	ManualExit
	ShutdownExit
)

// String stringifies the provided exit reason.
func (r ExitReason) String() string {
	switch r {
	case StopLossHit:
		return "stop loss"
	case ManualExit:
		return "manual"
	case ShutdownExit:
		return "shutdown"
	default:
		return "unknown"
	}
}
