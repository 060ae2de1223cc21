package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordVoteFormsQCAtQuorum(t *testing.T) {
	w := NewWindow(3)

	assert.Nil(t, w.RecordVote(1, "h1", 0, "sig0"))
	assert.Nil(t, w.RecordVote(1, "h1", 1, "sig1"))
	qc := w.RecordVote(1, "h1", 2, "sig2")
	assert.NotNil(t, qc)
	assert.Equal(t, View(1), qc.View)
	assert.Len(t, qc.Sigs, 3)
}

func TestRecordVoteDeduplicatesSameSigner(t *testing.T) {
	w := NewWindow(2)
	assert.Nil(t, w.RecordVote(1, "h1", 0, "sig0"))
	assert.Nil(t, w.RecordVote(1, "h1", 0, "sig0-again"))
	qc, ok := w.QuorumFor(1, "h1")
	assert.False(t, ok)
	assert.Nil(t, qc)
}

func TestRecordProposalRejectsEquivocation(t *testing.T) {
	w := NewWindow(3)
	b1 := &Block{View: 5, Height: 1, ParentHash: "genesis"}
	// ProposerSig is not part of Block.Hash, so the conflicting block
	// differs in a hashed field (its parent).
	b2 := &Block{View: 5, Height: 1, ParentHash: "other-parent", ProposerSig: "different"}

	assert.True(t, w.RecordProposal(2, b1))
	assert.False(t, w.RecordProposal(2, b2))

	got, ok := w.Proposal(5)
	assert.True(t, ok)
	assert.Equal(t, b1.Hash(), got.Hash())
}

func TestRecordNewViewFormsQuorum(t *testing.T) {
	w := NewWindow(2)
	assert.Nil(t, w.RecordNewView(&NewViewMsg{View: 3, SignerID: 0}))
	quorum := w.RecordNewView(&NewViewMsg{View: 3, SignerID: 1})
	assert.Len(t, quorum, 2)
}

func TestPruneBelowDropsOldEntries(t *testing.T) {
	w := NewWindow(2)
	w.RecordVote(1, "h1", 0, "sig")
	w.RecordVote(5, "h5", 0, "sig")

	w.PruneBelow(3)

	_, ok := w.QuorumFor(1, "h1")
	assert.False(t, ok)

	// a vote below the new cutoff is ignored going forward
	assert.Nil(t, w.RecordVote(1, "h1", 1, "sig1"))
}
