package pipeline

import (
	"time"

	"github.com/aetherswarm/verifier/internal/attestation"
	"github.com/aetherswarm/verifier/internal/confidence"
	"github.com/aetherswarm/verifier/internal/protocol"
)

// Outcome is the terminal artifact of one run. It is sent and discarded.
type Outcome struct {
	QuestID       string
	AgentID       string
	Status        confidence.Status
	Score         int
	AggregateHash string
	// Attestation is nil iff Status is error.
	Attestation *attestation.Attestation
	Verified    []string
	Failed      []string
	CompletedAt time.Time
	Err         error
}

// Message renders the task_result message for the coordinator: a
// protocol.TaskResult for completed runs, a protocol.TaskError otherwise.
func (o *Outcome) Message() any {
	if o.Status == confidence.StatusError || o.Attestation == nil {
		msg := "verification failed"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		return protocol.TaskError{
			Type:    protocol.TypeTaskResult,
			QuestID: o.QuestID,
			AgentID: o.AgentID,
			Status:  string(confidence.StatusError),
			Error:   msg,
		}
	}
	return protocol.TaskResult{
		Type:    protocol.TypeTaskResult,
		QuestID: o.QuestID,
		AgentID: o.AgentID,
		Status:  string(o.Status),
		Attestation: protocol.AttestationRecord{
			Quote:           o.Attestation.Quote,
			DataHash:        o.AggregateHash,
			Timestamp:       o.CompletedAt.Unix(),
			ValidatorPubkey: o.Attestation.ValidatorPubkey,
			Signature:       o.Attestation.Signature,
			ConfidenceScore: o.Score,
		},
		VerifiedChunks: nonNil(o.Verified),
		FailedChunks:   nonNil(o.Failed),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
