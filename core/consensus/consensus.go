// Package consensus holds the chain-spec parameters persisted once per
// chain spec plus the pure functions that derive difficulty and
// proposal-window membership from them.
package consensus

import (
	"math/big"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// ProposalWindow is (far, near); far >= near >= 2.
type ProposalWindow struct {
	Far  uint64
	Near uint64
}

// HardforkSwitch records the epoch at which each named rule change
// activates. A zero epoch means "active from genesis".
type HardforkSwitch struct {
	RelayV3OnlyEpoch uint64
}

// Params are the consensus parameters persisted once per chain spec.
type Params struct {
	GenesisBlock             molecule.Block
	InitialPrimaryEpochReward uint64
	OrphanRateTarget         [2]uint64 // numerator/denominator
	EpochDurationTarget      uint64    // seconds
	ProposalWindow           ProposalWindow
	CellbaseMaturity         uint64
	MaxBlockCycles           uint64
	MaxBlockBytes            uint64
	MaxUnclesNum             uint64
	MaxBlockProposalsLimit   uint64
	MedianTimeBlockCount     uint64
	FinalizationDelayLength  uint64 // default 4*far
	Hardfork                 HardforkSwitch
}

// DefaultParams returns parameters suitable for tests and dev chains.
func DefaultParams() Params {
	far, near := uint64(10), uint64(2)
	return Params{
		OrphanRateTarget:        [2]uint64{1, 40},
		EpochDurationTarget:     4 * 60 * 60,
		ProposalWindow:          ProposalWindow{Far: far, Near: near},
		CellbaseMaturity:        4,
		MaxBlockCycles:          5_000_000_000,
		MaxBlockBytes:           597_000,
		MaxUnclesNum:            2,
		MaxBlockProposalsLimit:  1500,
		MedianTimeBlockCount:    37,
		FinalizationDelayLength: 4 * far,
	}
}

// TargetToDifficulty unpacks a Bitcoin-compatible compact_target into
// the big-integer difficulty threshold a block hash must be below.
func TargetToDifficulty(compactTarget uint32) *big.Int {
	exponent := compactTarget >> 24
	mantissa := new(big.Int).SetUint64(uint64(compactTarget & 0x00ffffff))
	if exponent <= 3 {
		mantissa.Rsh(mantissa, uint(8*(3-exponent)))
		return mantissa
	}
	mantissa.Lsh(mantissa, uint(8*(exponent-3)))
	return mantissa
}

// powLimit is the maximum possible target; difficulty = powLimit / target.
var powLimit = func() *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), 256)
	return v.Sub(v, big.NewInt(1))
}()

// Difficulty converts a compact_target into the cumulative-difficulty unit
// tracked as total_difficulty: powLimit/target.
func Difficulty(compactTarget uint32) *big.Int {
	target := TargetToDifficulty(compactTarget)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Div(powLimit, target)
}

// InWindow reports whether a proposal committed at proposeHeight may be
// included in a block at commitHeight.
func (w ProposalWindow) InWindow(commitHeight, proposeHeight uint64) bool {
	if commitHeight < w.Near {
		return false
	}
	upper := commitHeight - w.Near
	if commitHeight < w.Far {
		return proposeHeight <= upper
	}
	lower := commitHeight - w.Far
	return proposeHeight >= lower && proposeHeight <= upper
}
