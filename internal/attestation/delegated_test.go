package attestation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var fixedNow = func() time.Time { return time.Unix(1700000000, 0) }

func TestDelegated_Success(t *testing.T) {
	var got VerifyRequest
	var headers http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/verify" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		headers = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quote":"Q","validatorPubkey":"PK","signature":"SIG","success":true}`))
	}))
	defer ts.Close()

	p := NewDelegated(Options{Endpoint: ts.URL + "/", Token: "tok-1", Environment: "testnet", Now: fixedNow})
	att, err := p.Attest(context.Background(), "aggr", []string{"h1", "h2"}, "quest-7")
	if err != nil {
		t.Fatalf("Attest: %v", err)
	}

	want := VerifyRequest{
		Operation:      "verify_data_integrity",
		DataHash:       "aggr",
		VerifiedHashes: []string{"h1", "h2"},
		QuestID:        "quest-7",
		Timestamp:      1700000000,
		TEEType:        "TDX",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(&Attestation{Quote: "Q", ValidatorPubkey: "PK", Signature: "SIG", Success: true}, att); diff != "" {
		t.Fatalf("attestation mismatch (-want +got):\n%s", diff)
	}
	if headers.Get("Authorization") != "Bearer tok-1" {
		t.Fatalf("missing bearer token, got %q", headers.Get("Authorization"))
	}
	if headers.Get("X-Request-Id") == "" {
		t.Fatal("missing request id")
	}
	if headers.Get("X-Eigencloud-Environment") != "testnet" {
		t.Fatalf("environment header = %q", headers.Get("X-Eigencloud-Environment"))
	}
}

func TestDelegated_EmptyVerifiedListIsArray(t *testing.T) {
	var raw map[string]json.RawMessage
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"quote":"Q","validatorPubkey":"PK","signature":"SIG","success":true}`))
	}))
	defer ts.Close()

	if _, err := NewDelegated(Options{Endpoint: ts.URL}).Attest(context.Background(), "aggr", nil, "q"); err != nil {
		t.Fatalf("Attest: %v", err)
	}
	if string(raw["verifiedHashes"]) != "[]" {
		t.Fatalf("verifiedHashes = %s, want []", raw["verifiedHashes"])
	}
}

func TestDelegated_Failures(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		body       string
		wantKind   ErrorKind
		wantDetail string
	}{
		{"server error", http.StatusInternalServerError, "enclave unavailable", KindStatus, "enclave unavailable"},
		{"bad json", http.StatusOK, "<html>", KindDecode, ""},
		{"rejected", http.StatusOK, `{"success":false,"error":"quote generation failed"}`, KindRejected, "quote generation failed"},
		{"missing fields", http.StatusOK, `{"success":true}`, KindDecode, "missing quote"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				w.Write([]byte(c.body))
			}))
			defer ts.Close()

			_, err := NewDelegated(Options{Endpoint: ts.URL}).Attest(context.Background(), "aggr", nil, "q")
			if err == nil {
				t.Fatal("expected error")
			}
			var ae *Error
			if !errors.As(err, &ae) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if ae.Kind != c.wantKind {
				t.Fatalf("kind = %s, want %s", ae.Kind, c.wantKind)
			}
			if !strings.Contains(err.Error(), c.wantDetail) {
				t.Fatalf("error %q missing detail %q", err, c.wantDetail)
			}
		})
	}
}

func TestDelegated_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := NewDelegated(Options{Endpoint: url}).Attest(context.Background(), "aggr", nil, "q")
	if KindOf(err) != KindTransport {
		t.Fatalf("kind = %q, want transport (err=%v)", KindOf(err), err)
	}
	if !strings.HasPrefix(err.Error(), "TEE container error") {
		t.Fatalf("unexpected message %q", err)
	}
}

func TestDelegated_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewDelegated(Options{Endpoint: ts.URL}).Attest(ctx, "aggr", nil, "q")
	if KindOf(err) != KindTimeout {
		t.Fatalf("kind = %q, want timeout (err=%v)", KindOf(err), err)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("plain errors have no kind")
	}
	wrapped := errors.Join(errors.New("ctx"), &Error{Kind: KindStatus})
	if KindOf(wrapped) != KindStatus {
		t.Fatal("KindOf must see through wrapping")
	}
}
