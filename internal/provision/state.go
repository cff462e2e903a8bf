package provision

// State is a step of one provisioning run.
type State int

const (
	// Disconnected is the state before Dial.
	Disconnected State = iota
	// Connected means an authenticated session is open.
	Connected
	// Checked means the key paths were confirmed absent.
	Checked
	// Generated means ssh-keygen was run remotely.
	Generated
	// Registered means the stanza was appended to the remote config.
	Registered
	// Retrieved means the public key was read back.
	Retrieved
	// Closed is always the last state, on success and on failure.
	Closed

	AuthFailed
	HostUnreachable
	HostKeyRejected
	KeyExists
	CommandFailed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Checked:
		return "checked"
	case Generated:
		return "generated"
	case Registered:
		return "registered"
	case Retrieved:
		return "retrieved"
	case Closed:
		return "closed"
	case AuthFailed:
		return "auth-failed"
	case HostUnreachable:
		return "host-unreachable"
	case HostKeyRejected:
		return "host-key-rejected"
	case KeyExists:
		return "key-exists"
	case CommandFailed:
		return "command-failed"
	default:
		return "unknown"
	}
}

// Failed reports whether s is a terminal failure state.
func (s State) Failed() bool {
	return s >= AuthFailed
}

// Transition is one state change, reported to an Observer.
// Err is set when To is a failure state.
type Transition struct {
	From State
	To   State
	Err  error
}

// Observer is a callback for state transitions.
type Observer func(t Transition)
