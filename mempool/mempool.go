// Package mempool implements the priority mempool: a per-account
// nonce-ordered queue of pending transactions with an Urgent class that
// preempts Normal, and replace-by-priority on a repeated nonce. Grounded
// on original_source/src/hotstuff/mempool.rs's per-account BTreeMap plus
// fixed priority buckets, adapted from a polling pop_next into the
// admit/drain/on_commit contract spec.md §4.5 specifies, and on
// go-ultiledger's tx.Manager for the per-account bookkeeping shape.
package mempool

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrBadSignature  = errors.New("mempool: invalid transaction signature")
	ErrNonceTooLow   = errors.New("mempool: nonce below account's next expected nonce")
	ErrLowerPriority = errors.New("mempool: a higher priority tx already occupies this nonce")
)

// Outcome is the result of Admit.
type Outcome uint8

const (
	Admitted Outcome = iota
	Replaced
	Rejected
)

// NonceSource lets the mempool consult the ledger's view of an
// account's next expected nonce without importing the ledger package.
type NonceSource interface {
	NextExpectedNonce(sender string) uint64
}

type accountQueue struct {
	txs map[uint64]*Transaction
	// readySeq is the arrival-sequence rank assigned the last time this
	// account's head-of-queue transaction became ready to drain; used
	// to order same-class candidates, earliest-ready first.
	readySeq uint64
}

// Mempool is the per-replica staging area for client-signed
// transactions awaiting inclusion in a proposed block.
type Mempool struct {
	mu sync.Mutex

	ns NonceSource

	accounts map[string]*accountQueue
	seq      uint64
}

func New(ns NonceSource) *Mempool {
	return &Mempool{
		ns:       ns,
		accounts: make(map[string]*accountQueue),
	}
}

// Admit verifies and stages tx. See spec.md §4.5.
func (m *Mempool) Admit(tx *Transaction) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !tx.VerifySignature() {
		return Rejected
	}

	expected := m.ns.NextExpectedNonce(tx.Sender)
	if tx.Nonce < expected {
		return Rejected
	}

	aq, ok := m.accounts[tx.Sender]
	if !ok {
		aq = &accountQueue{txs: make(map[uint64]*Transaction)}
		m.accounts[tx.Sender] = aq
	}

	outcome := Admitted
	if existing, present := aq.txs[tx.Nonce]; present {
		if tx.Class < existing.Class {
			return Rejected
		}
		outcome = Replaced
	}

	aq.txs[tx.Nonce] = tx

	if tx.Nonce == expected {
		m.seq++
		aq.readySeq = m.seq
	}

	return outcome
}

// candidate is a ready-to-drain transaction paired with the readiness
// sequence used to order candidates within the same class.
type candidate struct {
	tx  *Transaction
	seq uint64
}

// Drain selects up to budget ready transactions, Urgent class first,
// then Normal, each ordered by when its account became ready, earliest
// first.
// Accounts whose head-of-queue nonce isn't the next expected nonce are
// stalled and skipped entirely. Drain does not remove transactions from
// the mempool — eviction happens only via OnCommit, so a drained-but-
// uncommitted batch remains available to a later proposal attempt.
func (m *Mempool) Drain(budget int) []*Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	var urgent, normal []candidate
	for sender, aq := range m.accounts {
		expected := m.ns.NextExpectedNonce(sender)
		tx, ok := aq.txs[expected]
		if !ok {
			continue // stalled gap, not drained
		}
		c := candidate{tx: tx, seq: aq.readySeq}
		if tx.Class == Urgent {
			urgent = append(urgent, c)
		} else {
			normal = append(normal, c)
		}
	}

	sort.Slice(urgent, func(i, j int) bool { return urgent[i].seq < urgent[j].seq })
	sort.Slice(normal, func(i, j int) bool { return normal[i].seq < normal[j].seq })

	result := make([]*Transaction, 0, budget)
	for _, c := range append(urgent, normal...) {
		if len(result) >= budget {
			break
		}
		result = append(result, c.tx)
	}
	return result
}

// OnCommit evicts every committed transaction and discards any
// remaining pending transaction whose nonce is now obsolete, then
// refreshes readiness for senders whose new head is ready to drain.
func (m *Mempool) OnCommit(committed []*Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	touched := make(map[string]struct{})
	for _, tx := range committed {
		touched[tx.Sender] = struct{}{}
		if aq, ok := m.accounts[tx.Sender]; ok {
			delete(aq.txs, tx.Nonce)
		}
	}

	for sender := range touched {
		aq, ok := m.accounts[sender]
		if !ok {
			continue
		}
		expected := m.ns.NextExpectedNonce(sender)
		for nonce := range aq.txs {
			if nonce < expected {
				delete(aq.txs, nonce)
			}
		}
		if _, ready := aq.txs[expected]; ready {
			m.seq++
			aq.readySeq = m.seq
		}
		if len(aq.txs) == 0 {
			delete(m.accounts, sender)
		}
	}
}

// Len returns the number of pending transactions across all accounts,
// for diagnostics.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, aq := range m.accounts {
		n += len(aq.txs)
	}
	return n
}
