package pluginwin

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{name: "valid", payload: testPayload("calc", "Calculator")},
		{name: "missing result", payload: Payload{PluginName: "Calculator"}},
		{name: "empty name", payload: Payload{PluginID: "calc"}, wantErr: true},
		{name: "blank name", payload: Payload{PluginName: " \t"}, wantErr: true},
		{name: "broken result", payload: Payload{PluginName: "Calculator", Result: json.RawMessage(`{"type":`)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPayload) {
					t.Fatalf("Validate() error = %v, want ErrInvalidPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestPayloadJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(testPayload("calc", "Calculator"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"plugin_id", "plugin_name", "input", "result"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("marshalled payload missing %q: %s", key, data)
		}
	}
}

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType ResultType
		actions  int
		wantErr  bool
	}{
		{name: "text", raw: `{"type":"text","content":"4"}`, wantType: ResultText},
		{name: "list with actions", raw: `{"type":"list","content":["a","b"],"actions":[{"name":"copy"}]}`, wantType: ResultList, actions: 1},
		{name: "missing type", raw: `{"content":null}`, wantType: ResultText},
		{name: "null", raw: `null`, wantType: ResultText},
		{name: "empty", raw: ``, wantType: ResultText},
		{name: "unknown type", raw: `{"type":"video"}`, wantErr: true},
		{name: "not an object", raw: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Payload{PluginName: "x", Result: json.RawMessage(tt.raw)}
			r, err := p.DecodeResult()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodeResult() expected error, got %+v", r)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeResult() unexpected error: %v", err)
			}
			if r.Type != tt.wantType {
				t.Fatalf("Type = %q, want %q", r.Type, tt.wantType)
			}
			if len(r.Actions) != tt.actions {
				t.Fatalf("len(Actions) = %d, want %d", len(r.Actions), tt.actions)
			}
		})
	}
}

func TestDeliveryErrorUnwraps(t *testing.T) {
	cause := errors.New("bridge closed")
	err := error(&DeliveryError{Attempt: 2, Err: cause})

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(%v, cause) = false", err)
	}
	if got, want := err.Error(), "delivery attempt 2: bridge closed"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
