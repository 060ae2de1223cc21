// Package consensus implements chained HotStuff: the message window
// that accumulates votes into quorum certificates, and the replica core
// that proposes, votes, and commits blocks under the three-chain rule.
// Grounded on original_source/src/hotstuff/{block,message,crypto,replica}.rs
// for the data shapes and safety rules, and on go-ultiledger's
// consensus.Engine for the Go idiom (manager struct, channel-driven
// Start(stopChan), error sentinels).
package consensus

import (
	"sort"

	"github.com/shawnlimjunhe/superliquid/mempool"
	"github.com/shawnlimjunhe/superliquid/wire"
)

// View is a round in which one designated leader attempts to drive
// consensus. ValidatorID is a stable index into the fixed roster.
type View = uint64
type ValidatorID = int

// Block is a replica's proposal for view View, extending ParentHash.
// Its hash is a deterministic function of every field here except
// ProposerSig (spec.md §3).
type Block struct {
	ParentHash  string
	View        View
	Height      uint64
	Justify     *QC // the QC certifying the parent block
	Txs         []*mempool.Transaction
	ProposerID  ValidatorID
	ProposerSig string
}

func (b *Block) MarshalCanonical(w *wire.Writer) {
	w.WriteString(b.ParentHash)
	w.WriteUint64(b.View)
	w.WriteUint64(b.Height)
	if b.Justify != nil {
		w.WriteString(b.Justify.Hash())
	} else {
		w.WriteString("")
	}
	w.WriteUint32(uint32(len(b.Txs)))
	for _, tx := range b.Txs {
		w.WriteString(tx.Hash())
	}
	w.WriteUint8(uint8(b.ProposerID))
}

// Hash is the block's identity, used as the key into the block arena
// and as the value votes and QCs certify.
func (b *Block) Hash() string {
	return wire.SHA256Hash(b)
}

// IsGenesis reports whether b is the fixed, parentless root of the
// block tree every replica constructs identically at boot.
func (b *Block) IsGenesis() bool {
	return b.Height == 0 && b.ParentHash == ""
}

// QC is a quorum certificate: an aggregate of at least 2f+1 distinct
// validator signatures over (BlockHash, View).
type QC struct {
	BlockHash string
	View      View
	// Sigs maps signer id to its base58 signature over (BlockHash, View).
	Sigs map[ValidatorID]string
}

// voteMessage is the canonical payload a Vote and every QC signature
// sign over.
type voteMessage struct {
	BlockHash string
	View      View
}

func (v voteMessage) MarshalCanonical(w *wire.Writer) {
	w.WriteString(v.BlockHash)
	w.WriteUint64(v.View)
}

func voteSignBytes(blockHash string, view View) []byte {
	return wire.Encode(voteMessage{BlockHash: blockHash, View: view})
}

// MarshalCanonical encodes the QC deterministically: signer ids are
// sorted so iteration order never depends on Go's randomized map
// iteration (spec.md's "no maps with undefined iteration order").
func (qc *QC) MarshalCanonical(w *wire.Writer) {
	w.WriteString(qc.BlockHash)
	w.WriteUint64(qc.View)
	ids := make([]ValidatorID, 0, len(qc.Sigs))
	for id := range qc.Sigs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	w.WriteUint32(uint32(len(ids)))
	for _, id := range ids {
		w.WriteUint8(uint8(id))
		w.WriteString(qc.Sigs[id])
	}
}

func (qc *QC) Hash() string {
	return wire.SHA256Hash(qc)
}

// Vote is a single validator's signature over a (block hash, view)
// pair, sent to the leader of the following view.
type Vote struct {
	BlockHash string
	View      View
	SignerID  ValidatorID
	Sig       string
}

// NewViewMsg is broadcast by a replica abandoning a view on timeout; it
// carries the replica's highest known QC so the next leader can pick
// the correct parent.
type NewViewMsg struct {
	View     View
	HighQC   *QC
	SignerID ValidatorID
	Sig      string
}

func newViewSignBytes(view View, highQC *QC) []byte {
	w := wire.NewWriter()
	w.WriteUint64(view)
	if highQC != nil {
		w.WriteString(highQC.Hash())
	} else {
		w.WriteString("")
	}
	return w.Bytes()
}

// Proposal is the message a leader broadcasts for its view.
type Proposal struct {
	Block *Block
}

// EncodeQC writes qc in full (unlike MarshalCanonical, which only
// covers the hashed/signed portion and omits nothing here — QC has no
// field beyond what's signed, so the two encodings happen to coincide,
// but EncodeQC is named separately to not conflate "hash input" with
// "wire format" as a matter of intent).
func EncodeQC(qc *QC, w *wire.Writer) { qc.MarshalCanonical(w) }

func DecodeQC(r *wire.Reader) (*QC, error) {
	hash, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	view, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	sigs := make(map[ValidatorID]string, n)
	for i := uint32(0); i < n; i++ {
		id, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		sig, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		sigs[ValidatorID(id)] = sig
	}
	return &QC{BlockHash: hash, View: view, Sigs: sigs}, nil
}

// EncodeBlock writes b in full, including every transaction body and
// the complete parent QC, for peer gossip — unlike MarshalCanonical,
// which only writes the hashes that feed into Hash()'s digest.
func EncodeBlock(b *Block, w *wire.Writer) {
	w.WriteString(b.ParentHash)
	w.WriteUint64(b.View)
	w.WriteUint64(b.Height)
	if b.Justify != nil {
		w.WriteUint8(1)
		EncodeQC(b.Justify, w)
	} else {
		w.WriteUint8(0)
	}
	w.WriteUint32(uint32(len(b.Txs)))
	for _, tx := range b.Txs {
		tx.EncodeWire(w)
	}
	w.WriteUint8(uint8(b.ProposerID))
	w.WriteString(b.ProposerSig)
}

func DecodeBlock(r *wire.Reader) (*Block, error) {
	b := &Block{}
	var err error
	if b.ParentHash, err = r.ReadString(); err != nil {
		return nil, err
	}
	if b.View, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if b.Height, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	hasQC, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if hasQC == 1 {
		if b.Justify, err = DecodeQC(r); err != nil {
			return nil, err
		}
	}
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	b.Txs = make([]*mempool.Transaction, n)
	for i := uint32(0); i < n; i++ {
		tx, err := mempool.DecodeTransaction(r)
		if err != nil {
			return nil, err
		}
		b.Txs[i] = tx
	}
	proposerID, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	b.ProposerID = ValidatorID(proposerID)
	if b.ProposerSig, err = r.ReadString(); err != nil {
		return nil, err
	}
	return b, nil
}
