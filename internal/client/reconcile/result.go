package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteFetch wraps transport errors raised while fetching statuses.
	ErrRemoteFetch = errors.New("remote status fetch failed")
	// ErrRejected marks a post the server refused to publish.
	ErrRejected = errors.New("rejected by server")
	// ErrConflict marks a post whose local and remote identities disagree.
	ErrConflict = errors.New("remote identity conflict")
	// ErrEditedAfterSubmit marks a post changed locally after the server
	// accepted it. The published version does not carry those changes.
	ErrEditedAfterSubmit = errors.New("post edited after submit")
)

// Outcome is the per-post verdict of a pass.
type Outcome int

const (
	Unchanged Outcome = iota
	ConfirmedPublished
	Failed
	StaleUnconfirmed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case ConfirmedPublished:
		return "confirmed"
	case Failed:
		return "failed"
	case StaleUnconfirmed:
		return "stale"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is reported for every Scheduled or Published post a pass looked at.
type Result struct {
	LocalID string
	Outcome Outcome
	// Reason is a human-readable explanation for Failed and StaleUnconfirmed.
	Reason string
	// Err is set for Failed only.
	Err error
}

// NeedsAttention reports whether the user should look at the post.
func (r Result) NeedsAttention() bool {
	return r.Outcome == Failed || r.Outcome == StaleUnconfirmed
}
