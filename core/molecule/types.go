// Package molecule implements the fixed-layout binary wire format:
// Byte32, Script, OutPoint, CellOutput, CellDep, Transaction, Header,
// Block, EpochExt, and the Blake2b-256 identity hashes derived from
// their canonical byte layout.
package molecule

import "fmt"

// Byte32 is an opaque 32-byte value with bytewise equality and lexicographic
// ordering.
type Byte32 [32]byte

// Cmp returns -1, 0 or 1 per lexicographic byte comparison.
func (b Byte32) Cmp(o Byte32) int {
	for i := range b {
		if b[i] != o[i] {
			if b[i] < o[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (b Byte32) String() string {
	return fmt.Sprintf("%x", [32]byte(b))
}

// IsZero reports whether b is the zero value.
func (b Byte32) IsZero() bool {
	return b == Byte32{}
}

// HashType enumerates a Script's interpretation of code_hash.
type HashType byte

const (
	HashTypeData HashType = iota
	HashTypeType
	HashTypeData1
	HashTypeData2
)

// Script is a lock or type script: code_hash + hash_type select the code,
// args parameterize it.
type Script struct {
	CodeHash Byte32
	HashType HashType
	Args     []byte
}

// ScriptHash is the Blake2b-256 of the script's canonical serialization.
func (s Script) ScriptHash() Byte32 {
	return blake2b256(s.Marshal())
}

// OutPoint globally identifies a cell output.
type OutPoint struct {
	TxHash Byte32
	Index  uint32
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxHash, o.Index)
}

// DepType distinguishes a plain code cell from a dep-group indirection.
type DepType byte

const (
	DepTypeCode DepType = iota
	DepTypeDepGroup
)

// CellDep references a cell read-only; it does not consume it.
type CellDep struct {
	OutPoint OutPoint
	DepType  DepType
}

// CellOutput carries capacity, a lock script, and an optional type script.
type CellOutput struct {
	Capacity uint64
	Lock     Script
	Type     *Script
}

// CellInput references a cell to consume, with a relative/absolute
// maturity constraint (since).
type CellInput struct {
	PreviousOutput OutPoint
	Since          uint64
}

// Transaction is the unit of state transition. TxHash excludes witnesses;
// WitnessHash includes them. ProposalShortId is the first 10 bytes of
// TxHash.
type Transaction struct {
	Version     uint32
	CellDeps    []CellDep
	HeaderDeps  []Byte32
	Inputs      []CellInput
	Outputs     []CellOutput
	OutputsData [][]byte
	Witnesses   [][]byte
}

// ProposalShortId is the first 10 bytes of a transaction hash.
type ProposalShortId [10]byte

func (p ProposalShortId) String() string {
	return fmt.Sprintf("%x", [10]byte(p))
}

// NewProposalShortId truncates a tx hash to its short id.
func NewProposalShortId(h Byte32) ProposalShortId {
	var id ProposalShortId
	copy(id[:], h[:10])
	return id
}

// TxHash hashes every field except witnesses.
func (t Transaction) TxHash() Byte32 {
	return blake2b256(t.marshalBody(false))
}

// WitnessHash hashes every field including witnesses.
func (t Transaction) WitnessHash() Byte32 {
	return blake2b256(t.marshalBody(true))
}

// ProposalShortId returns the short id derived from TxHash.
func (t Transaction) ProposalShortId() ProposalShortId {
	return NewProposalShortId(t.TxHash())
}

// Header is the fixed-layout block header; BlockHash hashes its bytes.
type Header struct {
	Version           uint32
	ParentHash        Byte32
	Timestamp         uint64
	Number            uint64
	TransactionsRoot  Byte32
	ProposalsHash     Byte32
	CompactTarget     uint32
	ExtraHash         Byte32
	Epoch             uint64
	Dao               Byte32
	Nonce             [16]byte
}

func (h Header) BlockHash() Byte32 {
	return blake2b256(h.Marshal())
}

// UncleBlock is a stale sibling block included for partial reward.
type UncleBlock struct {
	Header    Header
	Proposals []ProposalShortId
}

// Block is a header plus body. transactions[0] must be the cellbase.
type Block struct {
	Header       Header
	Uncles       []UncleBlock
	Transactions []Transaction
	Proposals    []ProposalShortId
	Extension    []byte
}

func (b Block) BlockHash() Byte32 { return b.Header.BlockHash() }

// EpochExt rolls forward the difficulty/reward schedule.
type EpochExt struct {
	Number                         uint64
	Length                         uint64
	StartNumber                    uint64
	CompactTarget                  uint32
	PreviousEpochHashRate          [16]byte // u128 LE
	LastBlockHashInPreviousEpoch   Byte32
}

// EpochHash identifies an epoch descriptor by hashing its fields.
func (e EpochExt) EpochHash() Byte32 {
	return blake2b256(e.Marshal())
}
