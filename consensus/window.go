package consensus

import "sync"

// Window is the view-indexed cache of proposals, vote signature sets,
// and NewView messages used to form quorum certificates and bound
// memory. Grounded on original_source/src/hotstuff/message_window.rs's
// view-indexed structure, generalized from its single flat message list
// into the three per-view slots spec.md §4.2 specifies.
type Window struct {
	mu sync.Mutex

	quorumSize int
	lowestView View

	// proposals holds the single accepted proposal per view; a second,
	// distinct proposal from the same leader at the same view is
	// dropped (equivocation).
	proposals map[View]*proposalEntry

	// votes[view][blockHash][signerID] = sig, deduplicated by the triple.
	votes map[View]map[string]map[ValidatorID]string

	// newViews[view][signerID] = msg.
	newViews map[View]map[ValidatorID]*NewViewMsg
}

type proposalEntry struct {
	leaderID ValidatorID
	block    *Block
}

func NewWindow(quorumSize int) *Window {
	return &Window{
		quorumSize: quorumSize,
		proposals:  make(map[View]*proposalEntry),
		votes:      make(map[View]map[string]map[ValidatorID]string),
		newViews:   make(map[View]map[ValidatorID]*NewViewMsg),
	}
}

// RecordProposal caches b as the accepted proposal for its view if none
// is cached yet. Returns false if a distinct proposal from the same
// leader already occupies that view (equivocation), in which case the
// caller should log evidence and otherwise ignore the new proposal.
func (w *Window) RecordProposal(leaderID ValidatorID, b *Block) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if b.View < w.lowestView {
		return false
	}
	if existing, ok := w.proposals[b.View]; ok {
		return existing.block.Hash() == b.Hash()
	}
	w.proposals[b.View] = &proposalEntry{leaderID: leaderID, block: b}
	return true
}

// Proposal returns the cached proposal for view, if any.
func (w *Window) Proposal(view View) (*Block, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.proposals[view]
	if !ok {
		return nil, false
	}
	return entry.block, true
}

// RecordVote deduplicates by (view, blockHash, signer) and returns the
// QC formed if this vote brought the set to quorum size, else nil.
func (w *Window) RecordVote(view View, blockHash string, signer ValidatorID, sig string) *QC {
	w.mu.Lock()
	defer w.mu.Unlock()

	if view < w.lowestView {
		return nil
	}

	byHash, ok := w.votes[view]
	if !ok {
		byHash = make(map[string]map[ValidatorID]string)
		w.votes[view] = byHash
	}
	signers, ok := byHash[blockHash]
	if !ok {
		signers = make(map[ValidatorID]string)
		byHash[blockHash] = signers
	}
	signers[signer] = sig

	if len(signers) < w.quorumSize {
		return nil
	}

	sigs := make(map[ValidatorID]string, len(signers))
	for id, s := range signers {
		sigs[id] = s
	}
	return &QC{BlockHash: blockHash, View: view, Sigs: sigs}
}

// QuorumFor returns a QC if at least quorumSize distinct valid votes
// are already on file for (view, blockHash), without requiring a fresh
// vote.
func (w *Window) QuorumFor(view View, blockHash string) (*QC, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	signers, ok := w.votes[view][blockHash]
	if !ok || len(signers) < w.quorumSize {
		return nil, false
	}
	sigs := make(map[ValidatorID]string, len(signers))
	for id, s := range signers {
		sigs[id] = s
	}
	return &QC{BlockHash: blockHash, View: view, Sigs: sigs}, true
}

// RecordNewView stores nv and returns the set of NewViewMsgs on file
// for its view once that set reaches quorum size.
func (w *Window) RecordNewView(nv *NewViewMsg) []*NewViewMsg {
	w.mu.Lock()
	defer w.mu.Unlock()

	if nv.View < w.lowestView {
		return nil
	}

	byID, ok := w.newViews[nv.View]
	if !ok {
		byID = make(map[ValidatorID]*NewViewMsg)
		w.newViews[nv.View] = byID
	}
	byID[nv.SignerID] = nv

	if len(byID) < w.quorumSize {
		return nil
	}
	out := make([]*NewViewMsg, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	return out
}

// PruneBelow drops every entry with view < cutoff, bounding memory to
// the safety window spec.md §4.2/§5 requires.
func (w *Window) PruneBelow(cutoff View) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if cutoff <= w.lowestView {
		return
	}
	w.lowestView = cutoff
	for v := range w.proposals {
		if v < cutoff {
			delete(w.proposals, v)
		}
	}
	for v := range w.votes {
		if v < cutoff {
			delete(w.votes, v)
		}
	}
	for v := range w.newViews {
		if v < cutoff {
			delete(w.newViews, v)
		}
	}
}
