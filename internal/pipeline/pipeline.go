// Package pipeline turns one verify_task into a verdict: chunk digests are
// re-derived, the verified ones are folded into an aggregate commitment, the
// commitment is attested, and the run is scored.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/aetherswarm/verifier/internal/attestation"
	"github.com/aetherswarm/verifier/internal/confidence"
	"github.com/aetherswarm/verifier/internal/digest"
	"github.com/aetherswarm/verifier/internal/logx"
	"github.com/aetherswarm/verifier/internal/protocol"
)

// DefaultAttestTimeout bounds the attestation call when none is configured.
const DefaultAttestTimeout = 10 * time.Second

// ErrNoChunks fails tasks that carry no data: there is nothing to score.
var ErrNoChunks = errors.New("task carries no data chunks")

// State names a step of a pipeline run, for logging.
type State string

const (
	StateReceived             State = "received"
	StateChunksChecked        State = "chunks_checked"
	StateAggregated           State = "aggregated"
	StateAttestationRequested State = "attestation_requested"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

// Pipeline runs verification tasks. It holds only immutable configuration, so
// one value serves every task of a session.
type Pipeline struct {
	agentID  string
	provider attestation.Provider
	timeout  time.Duration
	now      func() time.Time
}

type Option func(*Pipeline)

// WithAttestTimeout sets the deadline applied to each attestation call.
func WithAttestTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithClock overrides the completion timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(agentID string, provider attestation.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		agentID:  agentID,
		provider: provider,
		timeout:  DefaultAttestTimeout,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run processes task to completion. It always returns an outcome; failures are
// reported through Outcome.Status and Outcome.Err.
func (p *Pipeline) Run(ctx context.Context, task *protocol.VerifyTask) *Outcome {
	out := &Outcome{QuestID: task.QuestID, AgentID: p.agentID}
	p.trace(out, StateReceived)

	if len(task.Data) == 0 {
		return p.fail(out, ErrNoChunks)
	}

	out.Verified, out.Failed = CheckChunks(task.Data)
	p.trace(out, StateChunksChecked)

	out.AggregateHash = digest.Aggregate(out.Verified)
	p.trace(out, StateAggregated)

	p.trace(out, StateAttestationRequested)
	actx, cancel := context.WithTimeout(ctx, p.timeout)
	att, err := p.provider.Attest(actx, out.AggregateHash, out.Verified, task.QuestID)
	cancel()
	if err != nil {
		return p.fail(out, err)
	}

	out.Score, out.Status = confidence.Score(len(out.Verified), len(task.Data))
	out.Attestation = att
	out.CompletedAt = p.now()
	p.trace(out, StateCompleted)
	return out
}

// CheckChunks partitions chunk digests into verified and failed, keeping the
// input order within each list.
func CheckChunks(chunks []protocol.DataChunk) (verified, failed []string) {
	verified = make([]string, 0, len(chunks))
	failed = make([]string, 0)
	for _, c := range chunks {
		if digest.Verify(c.Data, c.Hash) {
			verified = append(verified, c.Hash)
		} else {
			failed = append(failed, c.Hash)
		}
	}
	return verified, failed
}

func (p *Pipeline) fail(out *Outcome, err error) *Outcome {
	out.Status = confidence.StatusError
	out.Err = err
	out.Attestation = nil
	out.CompletedAt = p.now()
	p.trace(out, StateFailed)
	return out
}

func (p *Pipeline) trace(out *Outcome, s State) {
	switch s {
	case StateChunksChecked:
		logx.Debugf("pipeline quest=%s state=%s verified=%d failed=%d", out.QuestID, s, len(out.Verified), len(out.Failed))
	case StateAggregated:
		logx.Debugf("pipeline quest=%s state=%s aggregate=%s", out.QuestID, s, out.AggregateHash)
	case StateCompleted:
		logx.Infof("pipeline quest=%s state=%s status=%s score=%d verified=%d failed=%d", out.QuestID, s, out.Status, out.Score, len(out.Verified), len(out.Failed))
	case StateFailed:
		logx.Errorf("pipeline quest=%s state=%s error=%v", out.QuestID, s, out.Err)
	default:
		logx.Debugf("pipeline quest=%s state=%s", out.QuestID, s)
	}
}
