// Package reconcile decides how locally held record lists change when the
// backend answers a load or a mutation. Every resource shares the same
// rules; nothing in here performs I/O.
package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Kind classifies a backend answer.
type Kind int

const (
	// OK is a 2xx answer whose body is empty or valid JSON.
	OK Kind = iota
	// HTTPError is a non-2xx answer; the body is kept when it is valid JSON.
	HTTPError
	// ParseError is a 2xx answer whose body is not valid JSON.
	ParseError
	// TransportError means the backend was never reached.
	TransportError
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case HTTPError:
		return "http_error"
	case ParseError:
		return "parse_error"
	case TransportError:
		return "transport_error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Outcome is what the backend did with one request.
type Outcome struct {
	Kind   Kind
	Status int
	Body   []byte
	Err    error
}

// Failed reports whether the mutation must be rolled back.
func (o Outcome) Failed() bool {
	return o.Kind == HTTPError || o.Kind == TransportError
}

// Ok builds a successful outcome.
func Ok(body []byte) Outcome {
	return Outcome{Kind: OK, Status: http.StatusOK, Body: body}
}

// Rejected builds an HTTP error outcome. A body that is not valid JSON is dropped.
func Rejected(status int, body []byte) Outcome {
	if !json.Valid(body) {
		body = nil
	}
	return Outcome{Kind: HTTPError, Status: status, Body: body}
}

// Unparseable builds a parse error outcome.
func Unparseable(status int, err error) Outcome {
	return Outcome{Kind: ParseError, Status: status, Err: err}
}

// Unreachable builds a transport error outcome.
func Unreachable(err error) Outcome {
	return Outcome{Kind: TransportError, Err: err}
}

// Classify maps a raw exchange to an Outcome. err is the transport error, if any.
func Classify(status int, body []byte, err error) Outcome {
	if err != nil {
		return Unreachable(err)
	}
	if status < 200 || status > 299 {
		return Rejected(status, body)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Outcome{Kind: OK, Status: status}
	}
	if !json.Valid(trimmed) {
		return Unparseable(status, fmt.Errorf("response body is not valid JSON (%d bytes)", len(trimmed)))
	}
	return Outcome{Kind: OK, Status: status, Body: trimmed}
}
