package confidence

// Status is the verdict label attached to a task result.
type Status string

const (
	StatusVerified Status = "verified"
	StatusPartial  Status = "partial"
	StatusError    Status = "error"
)

// VerifiedThreshold is the minimum score reported as fully verified.
const VerifiedThreshold = 95

// Score returns the percentage of verified chunks, floored, and its status.
// A task with no chunks cannot be scored and yields (0, StatusError).
func Score(verified, total int) (int, Status) {
	if total <= 0 || verified < 0 || verified > total {
		return 0, StatusError
	}

	score := 100
	if verified < total {
		score = verified * 100 / total
	}
	if score >= VerifiedThreshold {
		return score, StatusVerified
	}
	return score, StatusPartial
}
