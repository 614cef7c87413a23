package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPeekType(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{`{"type":"ping"}`, "ping", false},
		{`{"type":"verify_task","questId":"q"}`, "verify_task", false},
		{`{"type":"something_else"}`, "something_else", false},
		{`{"questId":"q"}`, "", true},
		{`{"type":7}`, "", true},
		{`not json`, "", true},
	}
	for _, c := range cases {
		got, err := PeekType([]byte(c.raw))
		if c.wantErr {
			if err == nil {
				t.Errorf("PeekType(%s): expected error", c.raw)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("PeekType(%s) = (%q, %v), want %q", c.raw, got, err, c.want)
		}
	}

	if _, err := PeekType([]byte(`{}`)); !errors.Is(err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}
}

func TestDecodeVerifyTask(t *testing.T) {
	raw := `{
		"type": "verify_task",
		"questId": "quest-1",
		"data": [
			{"source": "scout-a", "data": {"price": 1, "sym": "ETH"}, "hash": "abc", "timestamp": 1700000000}
		],
		"expectedHashes": ["abc"]
	}`
	task, err := DecodeVerifyTask([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeVerifyTask: %v", err)
	}
	if task.QuestID != "quest-1" || len(task.Data) != 1 || task.ExpectedHashes[0] != "abc" {
		t.Fatalf("unexpected task %+v", task)
	}
	chunk := task.Data[0]
	if chunk.Source != "scout-a" || chunk.Hash != "abc" || chunk.Timestamp != 1700000000 {
		t.Fatalf("unexpected chunk %+v", chunk)
	}
	if string(chunk.Data) != `{"price": 1, "sym": "ETH"}` {
		t.Fatalf("payload must be kept verbatim, got %s", chunk.Data)
	}
}

func TestDecodeVerifyTask_Malformed(t *testing.T) {
	for _, raw := range []string{
		`{"type":"verify_task"}`,
		`{"type":"verify_task","questId":"q"}`,
		`{"type":"verify_task","questId":"q","data":{}}`,
		`{"type":"verify_task","questId":"q","data":[{"timestamp":"yesterday"}]}`,
		`[]`,
	} {
		if _, err := DecodeVerifyTask([]byte(raw)); err == nil {
			t.Errorf("expected error for %s", raw)
		}
	}
}

func TestMessageShapes(t *testing.T) {
	cases := []struct {
		name string
		msg  any
		want string
	}{
		{
			"register",
			NewRegistration("verifier-001", []string{"tee_attestation"}),
			`{"type":"register","role":"verifier","agentId":"verifier-001","capabilities":["tee_attestation"]}`,
		},
		{
			"pong",
			NewPong("verifier-001"),
			`{"type":"pong","agentId":"verifier-001"}`,
		},
		{
			"task error",
			TaskError{Type: TypeTaskResult, QuestID: "q", AgentID: "a", Status: "error", Error: "boom"},
			`{"type":"task_result","questId":"q","agentId":"a","status":"error","error":"boom"}`,
		},
	}
	for _, c := range cases {
		got, err := json.Marshal(c.msg)
		if err != nil {
			t.Fatalf("%s: marshal: %v", c.name, err)
		}
		if diff := cmp.Diff(c.want, string(got)); diff != "" {
			t.Errorf("%s (-want +got):\n%s", c.name, diff)
		}
	}
}
