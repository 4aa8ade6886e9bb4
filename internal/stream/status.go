package stream

// Status is the connection state of a Session.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusSubscribed
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusSubscribed:
		return "subscribed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
