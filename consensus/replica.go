package consensus

import (
	"errors"
	"sync"

	"github.com/shawnlimjunhe/superliquid/config"
	"github.com/shawnlimjunhe/superliquid/crypto"
	"github.com/shawnlimjunhe/superliquid/log"
	"github.com/shawnlimjunhe/superliquid/mempool"
	"github.com/shawnlimjunhe/superliquid/pacemaker"
)

var (
	ErrUnknownLeader  = errors.New("consensus: proposer is not the leader of this view")
	ErrBadProposerSig = errors.New("consensus: proposal signature does not verify")
	ErrMalformedBlock = errors.New("consensus: block is malformed")
	ErrEquivocation   = errors.New("consensus: conflicting proposal from the same leader")
	ErrSafetyRefusal  = errors.New("consensus: voting rule forbids a vote for this proposal")
	ErrUnknownParent  = errors.New("consensus: parent block not found in the local arena")
)

// Executor applies a committed block's transactions to the ledger and
// clearinghouse. Implemented by the ledger package; kept as a narrow
// interface here so consensus never imports ledger directly.
type Executor interface {
	ApplyBlock(txs []*mempool.Transaction)
}

// Replica is the chained HotStuff core: block proposal, vote
// verification, QC assembly and the three-chain commit rule. Grounded
// on original_source/src/hotstuff/replica.rs (signing/vote construction)
// and go-ultiledger's consensus.Engine (manager struct holding channels,
// Start/Stop goroutine lifecycle, sugared logger field).
type Replica struct {
	mu sync.Mutex

	id  ValidatorID
	cfg *config.Config

	seed    string // this replica's secret key
	pubKeys []string

	window *Window
	pm     *pacemaker.Pacemaker

	blocks map[string]*Block // hash -> block, the arena (spec.md §9)

	highQC        *QC
	lockedQC      *QC
	lastVotedView View
	committedHash string
	committedHeight uint64

	genesisHash string

	mp  *mempool.Mempool
	exe Executor

	// Out carries messages this replica needs to send: Votes go to the
	// leader of the following view; Proposals and QCAnnounce are
	// broadcast. The peer layer drains this channel.
	Out chan OutboundMsg

	// Committed carries every block as it commits, in commit order, for
	// downstream RPC/console observers.
	Committed chan *Block
}

// OutboundMsg pairs a payload with its intended recipient: a nil To
// means broadcast to every peer.
type OutboundMsg struct {
	Vote     *Vote
	Proposal *Proposal
	NewView  *NewViewMsg
	To       *ValidatorID // nil: broadcast
}

func NewReplica(cfg *config.Config, id ValidatorID, seed string, mp *mempool.Mempool, exe Executor) *Replica {
	genesis := &Block{}
	genesisHash := genesis.Hash()

	genesisQC := &QC{BlockHash: genesisHash, View: 0, Sigs: map[ValidatorID]string{}}

	r := &Replica{
		id:            id,
		cfg:           cfg,
		seed:          seed,
		pubKeys:       cfg.PublicKeys,
		window:        NewWindow(cfg.QuorumSize()),
		pm:            pacemaker.New(cfg),
		blocks:        map[string]*Block{genesisHash: genesis},
		highQC:        genesisQC,
		lockedQC:      genesisQC,
		committedHash: genesisHash,
		genesisHash:   genesisHash,
		mp:            mp,
		exe:           exe,
		Out:           make(chan OutboundMsg, 256),
		Committed:     make(chan *Block, 256),
	}
	return r
}

func (r *Replica) Start() {
	r.pm.Start()
	go r.timeoutLoop()
}

func (r *Replica) Stop() {
	r.pm.Stop()
}

func (r *Replica) timeoutLoop() {
	for v := range r.pm.Timeouts {
		r.mu.Lock()
		r.onTimeout(v)
		r.mu.Unlock()
	}
}

// onTimeout implements the Liveness-event error kind: broadcast a
// NewView carrying our highQC and let the pacemaker's own backoff
// schedule the next deadline.
func (r *Replica) onTimeout(v View) {
	if v < r.pm.CurrentView() {
		return // already moved on
	}
	log.Infof("replica %d: view %d timed out, advancing", r.id, v)
	nv := r.signNewView(v, r.highQC)
	r.window.RecordNewView(nv)
	r.emit(OutboundMsg{NewView: nv})
	r.maybePropose(v + 1)
}

func (r *Replica) signNewView(view View, highQC *QC) *NewViewMsg {
	sig, err := crypto.Sign(r.seed, newViewSignBytes(view, highQC))
	if err != nil {
		log.Fatalf("replica %d: failed to sign NewView: %v", r.id, err)
	}
	return &NewViewMsg{View: view, HighQC: highQC, SignerID: r.id, Sig: sig}
}

func (r *Replica) emit(m OutboundMsg) {
	select {
	case r.Out <- m:
	default:
		log.Warnf("replica %d: outbound channel full, dropping message", r.id)
	}
}

// HandleNewView processes an inbound NewView message, fast-forwarding
// the pacemaker and, if this replica leads the next view once quorum is
// reached, proposing.
func (r *Replica) HandleNewView(nv *NewViewMsg) {
	if !r.verifyNewView(nv) {
		log.Warnf("replica %d: dropping NewView with bad signature from %d", r.id, nv.SignerID)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pm.OnHigherViewObserved(nv.View)
	r.adoptQC(nv.HighQC)

	quorum := r.window.RecordNewView(nv)
	if quorum == nil {
		return
	}
	r.maybePropose(nv.View + 1)
}

func (r *Replica) verifyNewView(nv *NewViewMsg) bool {
	if nv.SignerID < 0 || nv.SignerID >= len(r.pubKeys) {
		return false
	}
	return crypto.Verify(r.pubKeys[nv.SignerID], nv.Sig, newViewSignBytes(nv.View, nv.HighQC))
}

// maybePropose proposes a block for view if this replica leads it.
// Callers must hold r.mu.
func (r *Replica) maybePropose(view View) {
	if r.pm.LeaderOf(view) != r.id {
		return
	}
	parentHash := r.highQC.BlockHash
	parent, ok := r.blocks[parentHash]
	if !ok {
		log.Warnf("replica %d: cannot propose view %d, parent %s unknown", r.id, view, parentHash)
		return
	}

	txs := r.mp.Drain(maxBatchSize)
	b := &Block{
		ParentHash: parentHash,
		View:       view,
		Height:     parent.Height + 1,
		Justify:    r.highQC,
		Txs:        txs,
		ProposerID: r.id,
	}
	sig, err := crypto.Sign(r.seed, []byte(b.Hash()))
	if err != nil {
		log.Fatalf("replica %d: failed to sign proposal: %v", r.id, err)
	}
	b.ProposerSig = sig

	r.blocks[b.Hash()] = b
	if !r.window.RecordProposal(r.id, b) {
		// a proposal for this view is already cached; broadcasting a
		// second, differently-hashed one would be self-equivocation.
		log.Warnf("replica %d: suppressing conflicting self-proposal at view %d", r.id, view)
		return
	}
	r.emit(OutboundMsg{Proposal: &Proposal{Block: b}})

	// the leader also evaluates its own proposal for voting purposes
	r.tryVote(b)
}

const maxBatchSize = 256

// HandleProposal processes an inbound block proposal: validates it,
// applies the safety voting rule, advances the locked/high QC state,
// and runs the three-chain commit check.
func (r *Replica) HandleProposal(b *Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pm.LeaderOf(b.View) != b.ProposerID {
		return ErrUnknownLeader
	}
	if b.ProposerID < 0 || b.ProposerID >= len(r.pubKeys) {
		return ErrMalformedBlock
	}
	if !crypto.Verify(r.pubKeys[b.ProposerID], b.ProposerSig, []byte(b.Hash())) {
		return ErrBadProposerSig
	}
	if !b.IsGenesis() {
		parent, ok := r.blocks[b.ParentHash]
		if !ok {
			return ErrUnknownParent
		}
		if b.Height != parent.Height+1 {
			return ErrMalformedBlock
		}
	}

	if !r.window.RecordProposal(b.ProposerID, b) {
		return ErrEquivocation
	}
	r.blocks[b.Hash()] = b

	r.pm.OnHigherViewObserved(b.View)
	if b.Justify != nil {
		r.adoptQC(b.Justify)
	}

	r.tryVote(b)
	return nil
}

// tryVote implements the safety voting rule of spec.md §4.3. Callers
// must hold r.mu.
func (r *Replica) tryVote(b *Block) {
	view := b.View
	if view <= r.lastVotedView {
		return
	}
	if !b.IsGenesis() && !r.extendsLockedBlock(b) {
		// liveness override: still vote if the included QC out-views lockedQC
		if b.Justify == nil || b.Justify.View <= r.lockedQC.View {
			log.Debugf("replica %d: safety refusal for view %d", r.id, view)
			return
		}
	}

	r.lastVotedView = view
	sig, err := crypto.Sign(r.seed, voteSignBytes(b.Hash(), view))
	if err != nil {
		log.Fatalf("replica %d: failed to sign vote: %v", r.id, err)
	}
	vote := &Vote{BlockHash: b.Hash(), View: view, SignerID: r.id, Sig: sig}

	next := view + 1
	leader := r.pm.LeaderOf(next)
	r.emit(OutboundMsg{Vote: vote, To: &leader})

	if leader == r.id {
		r.recordOwnVote(vote)
	}
}

// extendsLockedBlock walks up to three ancestors checking whether b
// descends from the locked block (original_source's Block::extends_from).
func (r *Replica) extendsLockedBlock(b *Block) bool {
	locked := r.lockedQC.BlockHash
	current := b
	for i := 0; i < 3; i++ {
		if current.IsGenesis() {
			return false
		}
		if current.ParentHash == locked {
			return true
		}
		parent, ok := r.blocks[current.ParentHash]
		if !ok {
			return false
		}
		current = parent
	}
	return false
}

// recordOwnVote lets a replica that is also the next leader fold its
// own vote into the window without a network round trip.
func (r *Replica) recordOwnVote(v *Vote) {
	qc := r.window.RecordVote(v.View, v.BlockHash, v.SignerID, v.Sig)
	if qc != nil {
		r.onQCFormed(qc)
	}
}

// HandleVote is called by the leader of view+1 on receiving a vote for
// a block at view.
func (r *Replica) HandleVote(v *Vote) {
	if !r.verifyVote(v) {
		log.Warnf("replica %d: dropping vote with bad signature from %d", r.id, v.SignerID)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	qc := r.window.RecordVote(v.View, v.BlockHash, v.SignerID, v.Sig)
	if qc == nil {
		return
	}
	r.onQCFormed(qc)
}

func (r *Replica) verifyVote(v *Vote) bool {
	if v.SignerID < 0 || v.SignerID >= len(r.pubKeys) {
		return false
	}
	return crypto.Verify(r.pubKeys[v.SignerID], v.Sig, voteSignBytes(v.BlockHash, v.View))
}

// onQCFormed adopts the fresh QC, advances the pacemaker, runs the
// commit check, and if this replica leads the next view, proposes.
// Callers must hold r.mu.
func (r *Replica) onQCFormed(qc *QC) {
	r.adoptQC(qc)
	r.pm.OnQCForView(qc.View)
	r.runCommitCheck(qc)
	r.maybePropose(qc.View + 1)
}

// adoptQC updates highQC unconditionally on any fresher QC, and
// advances lockedQC when a two-link consecutive-view chain forms.
// Callers must hold r.mu.
func (r *Replica) adoptQC(qc *QC) {
	if qc == nil {
		return
	}
	if qc.View > r.highQC.View {
		r.highQC = qc
	}

	b, ok := r.blocks[qc.BlockHash]
	if !ok || b.IsGenesis() {
		return
	}
	parent, ok := r.blocks[b.ParentHash]
	if !ok || parent.IsGenesis() {
		return
	}
	if parent.View+1 == b.View && b.Justify != nil {
		// parent <- b (b1 <- b2) is a two-link consecutive-view chain;
		// b.Justify is the QC b carries, which certifies parent (b1), so
		// that is the QC to lock — not parent.Justify, which certifies
		// the grandparent, one link too low.
		if b.Justify.View > r.lockedQC.View {
			r.lockedQC = b.Justify
		}
	}
}

// runCommitCheck implements the three-chain commit rule: a freshly
// formed QC for b3 commits b1 when b3<-b2<-b1 have consecutive views.
// Callers must hold r.mu.
func (r *Replica) runCommitCheck(qc *QC) {
	b3, ok := r.blocks[qc.BlockHash]
	if !ok || b3.IsGenesis() {
		return
	}
	b2, ok := r.blocks[b3.ParentHash]
	if !ok || b2.IsGenesis() || b2.Justify == nil {
		return
	}
	b1, ok := r.blocks[b2.ParentHash]
	if !ok || b1.IsGenesis() || b1.Justify == nil {
		return
	}

	if b2.View+1 != b3.View || b1.View+1 != b2.View {
		return
	}
	// three consecutive views v, v+1, v+2 over b1<-b2<-b3: commit b1 and
	// every ancestor not yet committed.
	r.commitUpTo(b1)
}

// commitUpTo walks from the current committed frontier up to target,
// applying each block's transactions in ancestor-to-descendant order,
// then, once the committed height exceeds safetyWindow, prunes the
// window and the block arena below committedHeight - safetyWindow.
func (r *Replica) commitUpTo(target *Block) {
	if target.Height <= r.committedHeight && target.Hash() != r.genesisHash {
		return
	}

	var chain []*Block
	current := target
	for !current.IsGenesis() && current.Hash() != r.committedHash {
		chain = append(chain, current)
		parent, ok := r.blocks[current.ParentHash]
		if !ok {
			log.Warnf("replica %d: commit chain broken at %s", r.id, current.ParentHash)
			return
		}
		current = parent
	}

	for i := len(chain) - 1; i >= 0; i-- {
		b := chain[i]
		r.exe.ApplyBlock(b.Txs)
		r.mp.OnCommit(b.Txs)
		r.committedHash = b.Hash()
		r.committedHeight = b.Height
		select {
		case r.Committed <- b:
		default:
		}
	}

	if r.committedHeight > safetyWindow {
		cutoff := r.committedHeight - safetyWindow
		r.window.PruneBelow(cutoff)
		r.pruneBlocksBelow(cutoff)
	}
}

const safetyWindow = 50

// pruneBlocksBelow drops every arena entry below cutoff except genesis.
// Anything this far behind the committed frontier can no longer be a
// parent of highQC/lockedQC or an ancestor walked by extendsLockedBlock
// or the commit chain, whether it made the committed chain or was an
// abandoned fork at that height. Callers must hold r.mu.
func (r *Replica) pruneBlocksBelow(cutoff uint64) {
	for hash, b := range r.blocks {
		if hash != r.genesisHash && b.Height < cutoff {
			delete(r.blocks, hash)
		}
	}
}

// CurrentView exposes the pacemaker's view clock for diagnostics/tests.
func (r *Replica) CurrentView() View {
	return r.pm.CurrentView()
}

// CommittedHeight exposes the last committed block's height.
func (r *Replica) CommittedHeight() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committedHeight
}
