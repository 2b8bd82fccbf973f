package leave

import (
	"strings"

	leaveerrors "go-leave/internal/leave/errors"
)

// Decision is a manager's binding choice on a pending request. The only
// implementations are Approve and Reject.
type Decision interface {
	Outcome() Status
	Note() string
	decision()
}

type Approve struct {
	Comment string
}

func (a Approve) Outcome() Status { return StatusApproved }
func (a Approve) Note() string    { return a.Comment }
func (Approve) decision()         {}

type Reject struct {
	Comment string
}

func (r Reject) Outcome() Status { return StatusRejected }
func (r Reject) Note() string    { return r.Comment }
func (Reject) decision()         {}

func ParseDecision(status, comment string) (Decision, error) {
	comment = strings.TrimSpace(comment)
	switch Status(strings.ToLower(strings.TrimSpace(status))) {
	case StatusApproved:
		return Approve{Comment: comment}, nil
	case StatusRejected:
		return Reject{Comment: comment}, nil
	}
	return nil, leaveerrors.ErrInvalidDecision
}
