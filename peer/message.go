// Package peer implements the validator-to-validator gossip transport:
// a length-prefixed TCP frame per message, dialed out to every peer in
// the fixed roster with automatic retry, and accepted inbound from the
// same roster. Grounded on go-ultiledger's peer.Peer/peer.PeerManager
// for the connect/retry/health-check shape, re-pointed from a grpc
// client stub at the `wire` package's framer, since spec.md §6.1
// specifies one uniform length-prefixed frame format for all consensus
// traffic rather than a generated RPC service.
package peer

import (
	"errors"

	"github.com/shawnlimjunhe/superliquid/consensus"
	"github.com/shawnlimjunhe/superliquid/wire"
)

// kind tags which payload a Message carries on the wire.
type kind uint8

const (
	kindProposal kind = iota
	kindVote
	kindNewView
	kindClientTx
)

var errUnknownKind = errors.New("peer: unknown message kind on the wire")

// Message is the single envelope type exchanged between validators,
// wrapping exactly one of consensus's wire types or a client tx. A
// proposal's block and a NewView's high QC reuse consensus.EncodeBlock
// and consensus.EncodeQC; Vote and NewViewMsg fields are written out
// field by field here.
type Message struct {
	Proposal *consensus.Proposal
	Vote     *consensus.Vote
	NewView  *consensus.NewViewMsg
	ClientTx []byte // raw (*mempool.Transaction).EncodeWire bytes, signature included, forwarded as-is
}

func EncodeMessage(m Message) []byte {
	w := wire.NewWriter()
	switch {
	case m.Proposal != nil:
		w.WriteUint8(uint8(kindProposal))
		consensus.EncodeBlock(m.Proposal.Block, w)
	case m.Vote != nil:
		w.WriteUint8(uint8(kindVote))
		w.WriteString(m.Vote.BlockHash)
		w.WriteUint64(m.Vote.View)
		w.WriteUint64(uint64(m.Vote.SignerID))
		w.WriteString(m.Vote.Sig)
	case m.NewView != nil:
		w.WriteUint8(uint8(kindNewView))
		w.WriteUint64(m.NewView.View)
		w.WriteUint64(uint64(m.NewView.SignerID))
		w.WriteString(m.NewView.Sig)
		if m.NewView.HighQC != nil {
			w.WriteUint8(1)
			consensus.EncodeQC(m.NewView.HighQC, w)
		} else {
			w.WriteUint8(0)
		}
	case m.ClientTx != nil:
		w.WriteUint8(uint8(kindClientTx))
		w.WriteBytes(m.ClientTx)
	}
	return w.Bytes()
}

// DecodeMessage parses a Message off the wire. Blocks and QCs decode
// into plain consensus.Block/consensus.QC without their Justify chain
// expanded further than one level, matching how a proposal/new-view is
// actually gossiped (a block's own Justify field already carries its
// parent QC).
func DecodeMessage(b []byte) (Message, error) {
	r := wire.NewReader(b)
	k, err := r.ReadUint8()
	if err != nil {
		return Message{}, err
	}

	switch kind(k) {
	case kindProposal:
		blk, err := consensus.DecodeBlock(r)
		if err != nil {
			return Message{}, err
		}
		return Message{Proposal: &consensus.Proposal{Block: blk}}, nil
	case kindVote:
		hash, err := r.ReadString()
		if err != nil {
			return Message{}, err
		}
		view, err := r.ReadUint64()
		if err != nil {
			return Message{}, err
		}
		signer, err := r.ReadUint64()
		if err != nil {
			return Message{}, err
		}
		sig, err := r.ReadString()
		if err != nil {
			return Message{}, err
		}
		return Message{Vote: &consensus.Vote{BlockHash: hash, View: view, SignerID: int(signer), Sig: sig}}, nil
	case kindNewView:
		view, err := r.ReadUint64()
		if err != nil {
			return Message{}, err
		}
		signer, err := r.ReadUint64()
		if err != nil {
			return Message{}, err
		}
		sig, err := r.ReadString()
		if err != nil {
			return Message{}, err
		}
		hasQC, err := r.ReadUint8()
		if err != nil {
			return Message{}, err
		}
		var qc *consensus.QC
		if hasQC == 1 {
			qc, err = consensus.DecodeQC(r)
			if err != nil {
				return Message{}, err
			}
		}
		return Message{NewView: &consensus.NewViewMsg{View: view, SignerID: int(signer), Sig: sig, HighQC: qc}}, nil
	case kindClientTx:
		raw, err := r.ReadBytes()
		if err != nil {
			return Message{}, err
		}
		return Message{ClientTx: raw}, nil
	default:
		return Message{}, errUnknownKind
	}
}
