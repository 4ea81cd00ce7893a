package chain

// SwitchFlags lets a caller skip parts of the block-processing pipeline
//: for replay/benchmark only, never in
// normal operation. Default (zero value) is "no skip".
type SwitchFlags uint8

const (
	// SwitchDisableHeaderPoW skips the contextless header check (stage 1).
	SwitchDisableHeaderPoW SwitchFlags = 1 << iota
	// SwitchDisableEpoch skips epoch-reward/length recomputation.
	SwitchDisableEpoch
	// SwitchDisableScript skips script verification of attached blocks'
	// transactions during contextual validation (stage 5).
	SwitchDisableScript
	// SwitchDisableTwoPhaseCommit skips the two-phase-commit
	// (proposal-window) check. It is only passed on to BlockVerifier;
	// ChainService itself does not consult it.
	SwitchDisableTwoPhaseCommit
	// SwitchDisableNonContextualTx makes ChainService skip contextual
	// validation (stage 5) entirely: attached blocks are not passed to
	// BlockVerifier at all.
	SwitchDisableNonContextualTx
	// SwitchDisableDaoHeader skips DAO field recomputation checks.
	SwitchDisableDaoHeader
)

func (f SwitchFlags) has(flag SwitchFlags) bool { return f&flag != 0 }
