package attestd

import (
	"context"
	"encoding/hex"
	"fmt"

	dstacksdk "github.com/Dstack-TEE/dstack/sdk/go/dstack"
	"lukechampine.com/blake3"
)

// Identity describes the environment a quote comes from.
type Identity struct {
	AppID      string `json:"app_id,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
	TCBInfo    string `json:"tcb_info,omitempty"`
	Simulated  bool   `json:"simulated"`
}

// Quoter produces a hex-encoded TEE quote whose report data is reportData.
type Quoter interface {
	Quote(ctx context.Context, reportData []byte) (string, error)
	Identity(ctx context.Context) (Identity, error)
}

// DstackQuoter obtains TDX quotes from the dstack guest agent.
type DstackQuoter struct {
	client *dstacksdk.DstackClient
}

// NewDstackQuoter talks to endpoint, or to the default dstack socket when
// endpoint is empty.
func NewDstackQuoter(endpoint string) *DstackQuoter {
	opts := []dstacksdk.DstackClientOption{}
	if endpoint != "" {
		opts = append(opts, dstacksdk.WithEndpoint(endpoint))
	}
	return &DstackQuoter{client: dstacksdk.NewDstackClient(opts...)}
}

func (q *DstackQuoter) Quote(ctx context.Context, reportData []byte) (string, error) {
	resp, err := q.client.GetQuote(ctx, reportData)
	if err != nil {
		return "", fmt.Errorf("dstack quote: %w", err)
	}
	return hex.EncodeToString([]byte(resp.Quote)), nil
}

func (q *DstackQuoter) Identity(ctx context.Context) (Identity, error) {
	info, err := q.client.Info(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("dstack info: %w", err)
	}
	return Identity{
		AppID:      info.AppID,
		InstanceID: info.InstanceID,
		DeviceID:   info.DeviceID,
		TCBInfo:    info.TcbInfo,
	}, nil
}

// SimQuoter stands in for TEE hardware during development. Its quotes are
// marked and carry no hardware signature.
type SimQuoter struct{}

func (SimQuoter) Quote(_ context.Context, reportData []byte) (string, error) {
	sum := blake3.Sum256(append([]byte("attestd_sim_quote"), reportData...))
	return "SIM_TDX_QUOTE_" + hex.EncodeToString(reportData) + hex.EncodeToString(sum[:]), nil
}

func (SimQuoter) Identity(context.Context) (Identity, error) {
	return Identity{Simulated: true}, nil
}
