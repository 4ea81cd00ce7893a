package chain

import "fmt"

// RejectKind is a closed sum type; ChainService reports block-processing
// failures as a Reject of one of these kinds rather than an ad-hoc error
// string, so callers can pattern-match on kind to decide log-and-continue,
// ban-peer, or propagate. The pool and relay do not return Reject: the
// pool returns its own resolve and RBFRejected errors, and relay reports
// a CompactBlockOutcome.
type RejectKind int

const (
	RejectHeaderInvalid RejectKind = iota
	RejectBlockInvalid
	RejectResolve
	RejectScript
	RejectPoolCap
	RejectRBFRejected
	RejectIO
)

func (k RejectKind) String() string {
	switch k {
	case RejectHeaderInvalid:
		return "HeaderInvalid"
	case RejectBlockInvalid:
		return "BlockInvalid"
	case RejectResolve:
		return "Resolve"
	case RejectScript:
		return "Script"
	case RejectPoolCap:
		return "PoolCap"
	case RejectRBFRejected:
		return "RBFRejected"
	case RejectIO:
		return "IO"
	default:
		return "Unknown"
	}
}

// Reject carries a kind plus a human-readable reason; RBF rejections and
// pool-cap rejections are surfaced to RPC callers with the reason
// verbatim.
type Reject struct {
	Kind   RejectKind
	Reason string
}

func (r *Reject) Error() string { return fmt.Sprintf("%s: %s", r.Kind, r.Reason) }

func NewReject(kind RejectKind, format string, args ...interface{}) *Reject {
	return &Reject{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
