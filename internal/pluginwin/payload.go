package pluginwin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPayload is returned for payloads that cannot be displayed.
var ErrInvalidPayload = errors.New("invalid plugin payload")

// Payload is the result of one plugin invocation. It is pushed unchanged to
// the plugin window's content as the "plugin-data" event.
type Payload struct {
	PluginID   string          `json:"plugin_id"`
	PluginName string          `json:"plugin_name"`
	Input      string          `json:"input"`
	Result     json.RawMessage `json:"result"`
}

// Validate checks the fields the coordinator relies on.
func (p Payload) Validate() error {
	if strings.TrimSpace(p.PluginName) == "" {
		return fmt.Errorf("%w: plugin_name is required", ErrInvalidPayload)
	}
	if len(p.Result) > 0 && !json.Valid(p.Result) {
		return fmt.Errorf("%w: result is not valid JSON", ErrInvalidPayload)
	}
	return nil
}

// ResultType is the rendering hint carried by most plugin results.
type ResultType string

const (
	ResultText   ResultType = "text"
	ResultHTML   ResultType = "html"
	ResultList   ResultType = "list"
	ResultCustom ResultType = "custom"
)

// Action is a named action a result offers to the user.
type Action struct {
	Name string `json:"name"`
}

// Result is a typed view of the common result shape. Payloads keep the raw
// JSON; this view only exists for validation and log summaries.
type Result struct {
	Type    ResultType      `json:"type"`
	Content json.RawMessage `json:"content"`
	Actions []Action        `json:"actions,omitempty"`
}

// DecodeResult decodes p.Result into the typed view. A missing result
// decodes as an empty text result.
func (p Payload) DecodeResult() (Result, error) {
	if len(p.Result) == 0 || string(p.Result) == "null" {
		return Result{Type: ResultText}, nil
	}
	var r Result
	if err := json.Unmarshal(p.Result, &r); err != nil {
		return Result{}, fmt.Errorf("%w: result: %v", ErrInvalidPayload, err)
	}
	switch r.Type {
	case "":
		r.Type = ResultText
	case ResultText, ResultHTML, ResultList, ResultCustom:
	default:
		return Result{}, fmt.Errorf("%w: unknown result type %q", ErrInvalidPayload, r.Type)
	}
	return r, nil
}

// Summary returns a short description of the result for logs.
func (p Payload) Summary() string {
	r, err := p.DecodeResult()
	if err != nil {
		return fmt.Sprintf("opaque(%d bytes)", len(p.Result))
	}
	return fmt.Sprintf("%s(%d bytes, %d actions)", r.Type, len(r.Content), len(r.Actions))
}

// DeliveryError reports a failed background delivery attempt. It is only
// ever logged.
type DeliveryError struct {
	Attempt int
	Err     error
}

func (e *DeliveryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("delivery attempt %d: %v", e.Attempt, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
