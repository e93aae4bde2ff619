package stomp

// EventType identifies the next simulation event to handle.
type EventType int

const (
	EventNone EventType = iota
	EventPwrMgmt
	EventArrival
	EventServerFinish
)

func (e EventType) String() string {
	switch e {
	case EventPwrMgmt:
		return "power management"
	case EventArrival:
		return "task arrival"
	case EventServerFinish:
		return "server finish"
	case EventNone:
		fallthrough
	default:
		return "none"
	}
}
