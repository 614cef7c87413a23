// Package protocol defines the JSON messages exchanged with the coordinator.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message type tags.
const (
	TypeVerifyTask = "verify_task"
	TypePing       = "ping"
	TypePong       = "pong"
	TypeRegister   = "register"
	TypeTaskResult = "task_result"
)

// RoleVerifier is announced on registration.
const RoleVerifier = "verifier"

// ErrMissingType is returned by PeekType for envelopes without a string type.
var ErrMissingType = errors.New("message has no type")

// DataChunk is one piece of collected data and its claimed digest.
type DataChunk struct {
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data"`
	Hash      string          `json:"hash"`
	Timestamp uint64          `json:"timestamp"`
}

// VerifyTask asks the agent to verify a quest's data chunks.
type VerifyTask struct {
	Type           string      `json:"type"`
	QuestID        string      `json:"questId"`
	Data           []DataChunk `json:"data"`
	ExpectedHashes []string    `json:"expectedHashes"`
}

// Registration is the first message sent after connecting.
type Registration struct {
	Type         string   `json:"type"`
	Role         string   `json:"role"`
	AgentID      string   `json:"agentId"`
	Capabilities []string `json:"capabilities"`
}

// Pong answers a ping.
type Pong struct {
	Type    string `json:"type"`
	AgentID string `json:"agentId"`
}

// AttestationRecord is the attestation as reported in a task result.
type AttestationRecord struct {
	Quote           string `json:"quote"`
	DataHash        string `json:"data_hash"`
	Timestamp       int64  `json:"timestamp"`
	ValidatorPubkey string `json:"validator_pubkey"`
	Signature       string `json:"signature"`
	ConfidenceScore int    `json:"confidence_score"`
}

// TaskResult reports a completed verify_task.
type TaskResult struct {
	Type           string            `json:"type"`
	QuestID        string            `json:"questId"`
	AgentID        string            `json:"agentId"`
	Status         string            `json:"status"`
	Attestation    AttestationRecord `json:"attestation"`
	VerifiedChunks []string          `json:"verifiedChunks"`
	FailedChunks   []string          `json:"failedChunks"`
}

// TaskError reports a verify_task that could not be attested.
type TaskError struct {
	Type    string `json:"type"`
	QuestID string `json:"questId"`
	AgentID string `json:"agentId"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

type envelope struct {
	Type *string `json:"type"`
}

// PeekType returns the type tag of a raw inbound message.
func PeekType(raw []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == nil {
		return "", ErrMissingType
	}
	return *env.Type, nil
}

// DecodeVerifyTask decodes a verify_task body.
func DecodeVerifyTask(raw []byte) (*VerifyTask, error) {
	var task VerifyTask
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("decode verify_task: %w", err)
	}
	if task.QuestID == "" {
		return nil, errors.New("decode verify_task: missing questId")
	}
	if task.Data == nil {
		return nil, errors.New("decode verify_task: missing data")
	}
	return &task, nil
}

// NewRegistration builds the register announcement.
func NewRegistration(agentID string, capabilities []string) Registration {
	return Registration{
		Type:         TypeRegister,
		Role:         RoleVerifier,
		AgentID:      agentID,
		Capabilities: capabilities,
	}
}

// NewPong builds the reply to a ping.
func NewPong(agentID string) Pong {
	return Pong{Type: TypePong, AgentID: agentID}
}
