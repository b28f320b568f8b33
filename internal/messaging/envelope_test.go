package messaging

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 10, 16, 3, 4, 5, 0, time.UTC)

func TestEncode(t *testing.T) {
	type status struct {
		State string `json:"state"`
	}

	tests := []struct {
		name        string
		msg         any
		wantMessage any
		wantState   string
		wantTS      string
	}{
		{
			name:        "string is wrapped",
			msg:         "hello",
			wantMessage: "hello",
			wantTS:      "2026-10-16T03:04:05Z",
		},
		{
			name:      "map keeps fields",
			msg:       map[string]any{"state": "parked"},
			wantState: "parked",
			wantTS:    "2026-10-16T03:04:05Z",
		},
		{
			name:      "existing timestamp kept",
			msg:       map[string]any{"state": "parked", "timestamp": "earlier"},
			wantState: "parked",
			wantTS:    "earlier",
		},
		{
			name:      "struct encodes as object",
			msg:       status{State: "ready"},
			wantState: "ready",
			wantTS:    "2026-10-16T03:04:05Z",
		},
		{
			name:        "number is wrapped",
			msg:         42,
			wantMessage: float64(42),
			wantTS:      "2026-10-16T03:04:05Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msg, testNow)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got[FieldTimestamp] != tt.wantTS {
				t.Errorf("timestamp = %v, want %v", got[FieldTimestamp], tt.wantTS)
			}
			if tt.wantMessage != nil && got[FieldMessage] != tt.wantMessage {
				t.Errorf("message = %v, want %v", got[FieldMessage], tt.wantMessage)
			}
			if tt.wantState != "" && got["state"] != tt.wantState {
				t.Errorf("state = %v, want %v", got["state"], tt.wantState)
			}
		})
	}
}

func TestEncode_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"state": "parked"}
	if _, err := Encode(in, testNow); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, ok := in[FieldTimestamp]; ok {
		t.Error("Encode() added timestamp to caller's map")
	}
}

func TestEncode_Unencodable(t *testing.T) {
	_, err := Encode(map[string]any{"bad": make(chan int)}, testNow)
	if !errors.Is(err, ErrEncode) {
		t.Errorf("Encode() error = %v, want %v", err, ErrEncode)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantErr  bool
		wantText string
		wantOK   bool
	}{
		{name: "command", payload: `{"message":"park","timestamp":"x"}`, wantText: "park", wantOK: true},
		{name: "no message field", payload: `{"state":"ready"}`},
		{name: "non-string message", payload: `{"message":3}`},
		{name: "array", payload: `["park"]`, wantErr: true},
		{name: "null", payload: `null`, wantErr: true},
		{name: "garbage", payload: `park`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := Decode([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Errorf("Decode() error = %v, want %v", err, ErrDecode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			text, ok := MessageText(obj)
			if text != tt.wantText || ok != tt.wantOK {
				t.Errorf("MessageText() = (%q, %v), want (%q, %v)", text, ok, tt.wantText, tt.wantOK)
			}
		})
	}
}
