// Package chain implements the single-consumer chain service:
// it linearizes incoming blocks, runs fork analysis, validates attached
// blocks, commits the winning chain atomically, and publishes a new
// snapshot.
package chain

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/nervosnetwork/ckb-go/core/consensus"
	"github.com/nervosnetwork/ckb-go/core/molecule"
	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/sirupsen/logrus"
)

// ProcessStatus is the reply ProcessBlock gives its caller: sync/relay branch on it to decide what to fetch next.
type ProcessStatus int

const (
	StatusAccepted ProcessStatus = iota
	StatusDuplicate
	StatusRequiresParent
	StatusInvalid
)

func (s ProcessStatus) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusDuplicate:
		return "duplicate"
	case StatusRequiresParent:
		return "requires_parent"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Notification is delivered to TxPool/Sync/Relay after a successful
// commit.
type Notification struct {
	AttachedBlocks      []molecule.Block
	DetachedBlocks      []molecule.Block
	AttachedProposalIds []molecule.ProposalShortId
	DetachedProposalIds []molecule.ProposalShortId
	// ExpiredProposalIds are ids pruned from the proposal table because
	// they fell to or below tip-far; the pool demotes their transactions back
	// to Pending.
	ExpiredProposalIds []molecule.ProposalShortId
}

// HeaderVerifier runs the contextless header check:
// PoW against compact_target, timestamp monotonicity, block version. The
// concrete PoW engine is a black-box collaborator; this package only
// defines the narrow interface it plugs into.
type HeaderVerifier interface {
	VerifyHeader(header molecule.Header) error
}

// BlockVerifier runs contextual validation of one attached block against
// the rolled-back snapshot: uncle rules, proposal
// window, transaction resolution, script execution (delegated to
// core/script.VM), DAO recomputation (delegated to core/dao.Calculator),
// capacity conservation.
type BlockVerifier interface {
	VerifyBlock(b molecule.Block, snap *store.Snapshot, flags SwitchFlags) error
}

// PermissiveHeaderVerifier and PermissiveBlockVerifier accept every
// block; they exist so tests and early bring-up can drive the pipeline
// before a real verifier is wired in.
type PermissiveHeaderVerifier struct{}

func (PermissiveHeaderVerifier) VerifyHeader(molecule.Header) error { return nil }

type PermissiveBlockVerifier struct{}

func (PermissiveBlockVerifier) VerifyBlock(molecule.Block, *store.Snapshot, SwitchFlags) error {
	return nil
}

type blockRequest struct {
	block        molecule.Block
	flags        SwitchFlags
	receivedAtMs int64
	reply        chan blockResult
}

type blockResult struct {
	status ProcessStatus
	err    error
}

// ChainService owns canonical-state authority: every mutation linearizes
// through its single worker goroutine, removing the need for fine-grained locks over the cell-set
// and proposal table.
type ChainService struct {
	store         *store.Store
	snapHandle    *store.SnapshotHandle
	proposalTable *ProposalTable
	params        consensus.Params
	headerVerify  HeaderVerifier
	blockVerify   BlockVerifier
	notify        func(Notification)
	log           *logrus.Entry

	reqCh   chan *blockRequest
	closeCh chan struct{}
	done    chan struct{}
}

type Option func(*ChainService)

func WithHeaderVerifier(v HeaderVerifier) Option { return func(c *ChainService) { c.headerVerify = v } }
func WithBlockVerifier(v BlockVerifier) Option   { return func(c *ChainService) { c.blockVerify = v } }
func WithNotifyFunc(fn func(Notification)) Option {
	return func(c *ChainService) { c.notify = fn }
}
func WithQueueDepth(n int) Option {
	return func(c *ChainService) { c.reqCh = make(chan *blockRequest, n) }
}

// NewChainService wires a Store, the published SnapshotHandle, and the
// in-memory ProposalTable into one worker. snapHandle may start empty:
// while it holds no snapshot, the first block processed (normally
// genesis) is attached unconditionally and its snapshot published.
func NewChainService(st *store.Store, snapHandle *store.SnapshotHandle, proposalTable *ProposalTable, params consensus.Params, opts ...Option) *ChainService {
	c := &ChainService{
		store:         st,
		snapHandle:    snapHandle,
		proposalTable: proposalTable,
		params:        params,
		headerVerify:  PermissiveHeaderVerifier{},
		blockVerify:   PermissiveBlockVerifier{},
		notify:        func(Notification) {},
		log:           logrus.WithField("component", "chain"),
		reqCh:         make(chan *blockRequest, 128),
		closeCh:       make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the single consumer goroutine. Concurrent callers of
// ProcessBlock submit onto the bounded channel; this goroutine serializes
// all chain-mutating work.
func (c *ChainService) Start() {
	go func() {
		defer close(c.done)
		for {
			select {
			case <-c.closeCh:
				return
			case req := <-c.reqCh:
				status, err := c.process(req.block, req.flags, req.receivedAtMs)
				req.reply <- blockResult{status: status, err: err}
			}
		}
	}()
}

// Stop drains no further requests and waits for the worker to exit.
func (c *ChainService) Stop() {
	close(c.closeCh)
	<-c.done
}

// ProcessBlock submits a block to the chain worker and blocks for its
// completion.
func (c *ChainService) ProcessBlock(block molecule.Block, flags SwitchFlags) (ProcessStatus, error) {
	reply := make(chan blockResult, 1)
	c.reqCh <- &blockRequest{block: block, flags: flags, receivedAtMs: time.Now().UnixMilli(), reply: reply}
	res := <-reply
	return res.status, res.err
}

// ProcessBlockAt is ProcessBlock with an explicit received-at timestamp,
// used by tests that need the received_at_ms tie-break to be
// deterministic.
func (c *ChainService) ProcessBlockAt(block molecule.Block, flags SwitchFlags, receivedAtMs int64) (ProcessStatus, error) {
	reply := make(chan blockResult, 1)
	c.reqCh <- &blockRequest{block: block, flags: flags, receivedAtMs: receivedAtMs, reply: reply}
	res := <-reply
	return res.status, res.err
}

func (c *ChainService) process(block molecule.Block, flags SwitchFlags, receivedAtMs int64) (ProcessStatus, error) {
	hash := block.BlockHash()
	log := c.log.WithField("block", hash.String()).WithField("number", block.Header.Number)

	// Stage 1: contextless header check.
	if !flags.has(SwitchDisableHeaderPoW) {
		if err := c.headerVerify.VerifyHeader(block.Header); err != nil {
			log.WithError(err).Warn("header rejected")
			return StatusInvalid, NewReject(RejectHeaderInvalid, "%v", err)
		}
	}

	// Stage 2: orphan/duplicate gate.
	if _, ok := c.store.GetBlock(hash); ok {
		return StatusDuplicate, nil // idempotent: already known to the store
	}
	if block.Header.Number != 0 {
		if _, ok := c.store.GetBlockHeader(block.Header.ParentHash); !ok {
			return StatusRequiresParent, nil
		}
	}

	// Stage 3: persist block bytes and its ext.
	ext, err := c.buildBlockExt(block, receivedAtMs)
	if err != nil {
		return StatusInvalid, NewReject(RejectIO, "%v", err)
	}
	persistTxn := c.store.BeginTransaction()
	persistTxn.InsertBlock(block)
	if err := persistTxn.InsertBlockExt(hash, ext); err != nil {
		return StatusInvalid, NewReject(RejectIO, "%v", err)
	}
	if err := persistTxn.Commit(); err != nil {
		return StatusInvalid, NewReject(RejectIO, "%v", err)
	}

	current := c.snapHandle.Load()
	if current == nil {
		// First block ever processed (genesis): attach unconditionally.
		return c.commitChain(block, ext, nil, []molecule.Block{block}, nil)
	}

	currentTotalDiff := new(big.Int).SetBytes(current.TipTotalDifficulty())
	candidateTotalDiff := new(big.Int).SetBytes(ext.TotalDifficulty)
	currentExt, _ := c.store.GetBlockExt(current.TipHash())

	if !ShouldSwitch(candidateTotalDiff, currentTotalDiff, int64(ext.ReceivedAtMs), int64(currentExt.ReceivedAtMs), hash, current.TipHash()) {
		log.Debug("block stored but does not extend the canonical chain")
		return StatusAccepted, nil
	}

	// Stage 4: fork analysis.
	fc, err := FindFork(c.store, current.TipHash(), hash)
	if err != nil {
		return StatusInvalid, NewReject(RejectIO, "%v", err)
	}

	// Stage 5: contextual validation, ancestor-to-descendant order.
	if !flags.has(SwitchDisableNonContextualTx) {
		rollback := c.store.Snapshot(current.TipHeader(), current.TipTotalDifficulty(), current.EpochExt(), current.Proposals())
		for _, ab := range fc.Attached {
			if err := c.blockVerify.VerifyBlock(ab, rollback, flags); err != nil {
				log.WithField("attached", ab.BlockHash().String()).WithError(err).Warn("attached block failed contextual validation; reorg aborted")
				return StatusInvalid, NewReject(RejectBlockInvalid, "%v", err)
			}
		}
	}

	return c.commitChain(block, ext, fc.Detached, fc.Attached, fc)
}

// commitChain performs stage 6 (atomic commit) and stage 7 (notify).
func (c *ChainService) commitChain(tipBlock molecule.Block, tipExt store.BlockExt, detached, attached []molecule.Block, fc *ForkChanges) (ProcessStatus, error) {
	txn := c.store.BeginTransaction()

	// Detach newest-first so the undo log unwinds in the order it was
	// recorded (last attached, first detached).
	for i := len(detached) - 1; i >= 0; i-- {
		if err := txn.DetachBlock(detached[i]); err != nil {
			return StatusInvalid, NewReject(RejectIO, "%v", err)
		}
		c.proposalTable.Remove(detached[i])
	}
	for _, ab := range attached {
		if err := txn.AttachBlock(ab, epochHashForNumber(ab.Header.Epoch)); err != nil {
			return StatusInvalid, NewReject(RejectIO, "%v", err)
		}
		c.proposalTable.Insert(ab)
	}
	if err := txn.Commit(); err != nil {
		return StatusInvalid, NewReject(RejectIO, "%v", err)
	}

	tipNumber := tipBlock.Header.Number
	far := c.params.ProposalWindow.Far
	var expiredIds []molecule.ProposalShortId
	if tipNumber > far {
		expiredIds = c.proposalTable.Prune(tipNumber - far)
	}

	proposals := c.proposalTable.View(tipNumber)
	snap := c.store.Snapshot(tipBlock.Header, tipExt.TotalDifficulty, molecule.EpochExt{Number: tipBlock.Header.Epoch}, proposals)
	c.snapHandle.Store(snap)

	var attachedIds, detachedIds []molecule.ProposalShortId
	if fc != nil {
		attachedIds, detachedIds = fc.AttachedProposalIds, fc.DetachedProposalIds
	}
	c.notify(Notification{
		AttachedBlocks:      attached,
		DetachedBlocks:      detached,
		AttachedProposalIds: attachedIds,
		DetachedProposalIds: detachedIds,
		ExpiredProposalIds:  expiredIds,
	})
	return StatusAccepted, nil
}

// buildBlockExt derives the side-data recorded alongside a freshly
// persisted block: its received time and cumulative total_difficulty
// (parent's total_difficulty plus this header's own difficulty).
func (c *ChainService) buildBlockExt(b molecule.Block, receivedAtMs int64) (store.BlockExt, error) {
	parentTotalDiff := big.NewInt(0)
	if b.Header.Number != 0 {
		if parentExt, ok := c.store.GetBlockExt(b.Header.ParentHash); ok {
			parentTotalDiff = new(big.Int).SetBytes(parentExt.TotalDifficulty)
		}
	}
	total := new(big.Int).Add(parentTotalDiff, consensus.Difficulty(b.Header.CompactTarget))
	return store.BlockExt{
		ReceivedAtMs:     uint64(receivedAtMs),
		TotalDifficulty:  total.Bytes(),
		TotalUnclesCount: uint64(len(b.Uncles)),
		Verified:         store.VerifiedUnknown,
	}, nil
}

// epochHashForNumber derives the epoch index key used to look up an
// EpochExt descriptor. Epoch reward/length recomputation itself is a
// black-box concern (core/dao.Calculator); the chain service only needs
// a stable key to remember which epoch a block belongs to.
func epochHashForNumber(epoch uint64) molecule.Byte32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], epoch)
	return molecule.Blake2b256(buf[:])
}
