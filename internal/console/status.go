package console

// Status is the remote-console session state. Transitions are guarded so
// illegal combinations (such as timeout after error) are unrepresentable:
//
//	connecting → connected   embedded client finished loading
//	connecting → timeout     deadline elapsed while still connecting
//	timeout    → connected   late load, or the user chose to keep waiting
//	any        → error       fetch or load failure
//	any        → connecting  explicit reload
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusTimeout
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusTimeout:
		return "timeout"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// canTransition reports whether moving from s to next is legal.
func (s Status) canTransition(next Status) bool {
	switch next {
	case StatusConnecting, StatusError:
		return true
	case StatusConnected:
		return s == StatusConnecting || s == StatusTimeout
	case StatusTimeout:
		return s == StatusConnecting
	default:
		return false
	}
}
