package gateway

import "net/http"

// Result is the outcome of a settlement check.
type Result int

const (
	ResultPending Result = iota
	ResultSettled
	ResultAlreadySettled
	// the stored invoice expired and was replaced, the client must poll the new one
	ResultRenewed
	ResultNotFound
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultPending:
		return "pending"
	case ResultSettled:
		return "settled"
	case ResultAlreadySettled:
		return "already_settled"
	case ResultRenewed:
		return "renewed"
	case ResultNotFound:
		return "not_found"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Paid reports whether the order is paid after the check.
func (r Result) Paid() bool {
	return r == ResultSettled || r == ResultAlreadySettled
}

// HTTPStatus is the status code the polling endpoint answers with.
func (r Result) HTTPStatus() int {
	switch r {
	case ResultSettled, ResultAlreadySettled:
		return http.StatusOK
	case ResultPending:
		return http.StatusPaymentRequired
	default:
		return http.StatusGone
	}
}
