package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"demand-forecast/internal/model"
)

// UnableToFetchText is shown for any non-2xx response.
const UnableToFetchText = "Error: Unable to fetch predictions."

// OutcomeKind classifies how a prediction call ended.
type OutcomeKind int

const (
	KindSuccess OutcomeKind = iota
	KindHTTPError
	KindTransportError
	KindDecodeError
)

func (k OutcomeKind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindHTTPError:
		return "http_error"
	case KindTransportError:
		return "transport_error"
	case KindDecodeError:
		return "decode_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText lets the kind travel as its name in JSON.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the result of one call to the prediction service.
type Outcome struct {
	Kind       OutcomeKind
	Points     []model.PredictionPoint
	Raw        json.RawMessage // nested series exactly as received
	StatusCode int
	Detail     string // "error" field of a failed response, if any
	Err        error
}

// OK reports whether the call produced a series.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// Message is the bare failure message. Transport failures drop the
// method/URL prefix net/http adds.
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	var uerr *url.Error
	if errors.As(o.Err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return o.Err.Error()
}

// ErrorText is the user-facing text for a failed call, empty on success.
func (o Outcome) ErrorText() string {
	switch o.Kind {
	case KindSuccess:
		return ""
	case KindHTTPError:
		return UnableToFetchText
	default:
		return "Error: " + o.Message()
	}
}

// DecodeError reports which of the two envelope decodes failed.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
