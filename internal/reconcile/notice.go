package reconcile

import "fmt"

// NoticeKind tells the view how to present the result of an operation.
type NoticeKind int

const (
	// Silent means nothing is shown to the user.
	Silent NoticeKind = iota
	Success
	Failure
)

func (k NoticeKind) String() string {
	switch k {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "silent"
	}
}

// MarshalText renders the kind for JSON view state.
func (k NoticeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind rendered by MarshalText.
func (k *NoticeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "success":
		*k = Success
	case "failure":
		*k = Failure
	case "silent", "":
		*k = Silent
	default:
		return fmt.Errorf("unknown notice kind %q", text)
	}
	return nil
}

// Notice is the user-facing outcome of an operation.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message,omitempty"`
}

func succeeded(format string, args ...any) Notice {
	return Notice{Kind: Success, Message: fmt.Sprintf(format, args...)}
}

// failed prefers the backend's own reason over the generic text.
func failed(out Outcome, generic string) Notice {
	if msg := Message(out.Body); msg != "" && out.Kind == HTTPError {
		return Notice{Kind: Failure, Message: msg}
	}
	return Notice{Kind: Failure, Message: generic}
}
