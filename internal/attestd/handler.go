package attestd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aetherswarm/verifier/internal/attestation"
	"github.com/aetherswarm/verifier/internal/digest"
	"github.com/aetherswarm/verifier/internal/logx"
	"github.com/gin-gonic/gin"
)

// maxClockSkew bounds how far a request timestamp may drift from local time.
const maxClockSkew = 5 * time.Minute

type verifyRequest struct {
	Operation      string   `json:"operation" binding:"required"`
	DataHash       string   `json:"dataHash" binding:"required"`
	VerifiedHashes []string `json:"verifiedHashes"`
	QuestID        string   `json:"questId" binding:"required"`
	Timestamp      int64    `json:"timestamp" binding:"required"`
	TEEType        string   `json:"teeType" binding:"required"`
}

func reject(c *gin.Context, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.JSON(http.StatusOK, attestation.Attestation{Success: false, Error: msg})
}

// HandleVerify handles POST /verify.
func HandleVerify(quoter Quoter, signer *Signer, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, attestation.Attestation{Success: false, Error: err.Error()})
			return
		}

		if req.Operation != attestation.OperationVerify {
			reject(c, "unsupported operation %q", req.Operation)
			return
		}
		if req.TEEType != attestation.TEETypeTDX {
			reject(c, "unsupported teeType %q", req.TEEType)
			return
		}
		skew := now().Sub(time.Unix(req.Timestamp, 0))
		if skew > maxClockSkew || skew < -maxClockSkew {
			reject(c, "request timestamp outside allowed skew (%s)", skew.Round(time.Second))
			return
		}
		// The commitment must be the one the verified list actually folds to.
		if want := digest.Aggregate(req.VerifiedHashes); req.DataHash != want {
			reject(c, "dataHash does not commit to verifiedHashes")
			return
		}

		statement := Statement(req.DataHash, req.QuestID, req.Timestamp, req.VerifiedHashes)
		quote, err := quoter.Quote(c.Request.Context(), statement)
		if err != nil {
			logx.Errorf("attestd quote quest=%s: %v", req.QuestID, err)
			reject(c, "quote generation failed: %v", err)
			return
		}

		logx.Infof("attestd attested quest=%s data_hash=%s verified=%d", req.QuestID, req.DataHash, len(req.VerifiedHashes))
		c.JSON(http.StatusOK, attestation.Attestation{
			Quote:           quote,
			ValidatorPubkey: signer.PublicKeyHex(),
			Signature:       signer.Sign(statement),
			Success:         true,
		})
	}
}

// HandleInfo handles GET /info.
func HandleInfo(quoter Quoter, signer *Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := quoter.Identity(c.Request.Context())
		if err != nil {
			logx.Warnf("attestd identity: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "identity unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"validatorPubkey": signer.PublicKeyHex(),
			"identity":        id,
		})
	}
}
