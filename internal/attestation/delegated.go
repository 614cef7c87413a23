package attestation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aetherswarm/verifier/internal/logx"
	"github.com/aetherswarm/verifier/internal/version"
	"github.com/google/uuid"
)

const (
	// OperationVerify is the operation tag understood by the attestation container.
	OperationVerify = "verify_data_integrity"
	// TEETypeTDX is the trust-anchor type requested from the container.
	TEETypeTDX = "TDX"

	maxResponseBytes = 1 << 20
)

// VerifyRequest is the body of POST <endpoint>/verify.
type VerifyRequest struct {
	Operation      string   `json:"operation"`
	DataHash       string   `json:"dataHash"`
	VerifiedHashes []string `json:"verifiedHashes"`
	QuestID        string   `json:"questId"`
	Timestamp      int64    `json:"timestamp"`
	TEEType        string   `json:"teeType"`
}

// Delegated requests attestations from a deployed attestation container.
type Delegated struct {
	endpoint    string
	token       string
	environment string
	client      *http.Client
	now         func() time.Time
}

func NewDelegated(opts Options) *Delegated {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Delegated{
		endpoint:    strings.TrimRight(opts.Endpoint, "/"),
		token:       opts.Token,
		environment: opts.Environment,
		// Deadlines come from the caller's context.
		client: &http.Client{},
		now:    now,
	}
}

func (d *Delegated) Attest(ctx context.Context, aggregateHash string, verified []string, questID string) (*Attestation, error) {
	if verified == nil {
		verified = []string{}
	}
	body, err := json.Marshal(VerifyRequest{
		Operation:      OperationVerify,
		DataHash:       aggregateHash,
		VerifiedHashes: verified,
		QuestID:        questID,
		Timestamp:      d.now().Unix(),
		TEEType:        TEETypeTDX,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal attestation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Detail: "create request", Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-Id", requestID)
	if d.environment != "" {
		req.Header.Set("X-Eigencloud-Environment", d.environment)
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	logx.Debugf("attestation.request id=%s endpoint=%s quest=%s data_hash=%s verified=%d", requestID, d.endpoint, questID, aggregateHash, len(verified))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(ctx, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindStatus, Detail: strings.TrimSpace(string(respBody)), Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var att Attestation
	if err := json.Unmarshal(respBody, &att); err != nil {
		return nil, &Error{Kind: KindDecode, Err: err}
	}
	if !att.Success {
		detail := att.Error
		if detail == "" {
			detail = "attestation container reported success=false"
		}
		return nil, &Error{Kind: KindRejected, Detail: detail}
	}
	if att.Quote == "" || att.Signature == "" {
		return nil, &Error{Kind: KindDecode, Detail: "response missing quote or signature"}
	}

	logx.Debugf("attestation.response id=%s quest=%s validator=%s", requestID, questID, att.ValidatorPubkey)
	return &att, nil
}
