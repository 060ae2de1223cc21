// Package pacemaker drives view changes for the replica core: it owns
// the view clock, the exponential-backoff view timer, and leader
// selection. Grounded on original_source/src/hotstuff/pacemaker.rs's
// should_advance_view/advance_view/current_leader shape, generalized to
// the exponential backoff schedule spec.md §4.1 requires and recast as
// a channel-driven goroutine in the teacher's Start(stopChan) idiom
// instead of the original's polling should_advance_view.
package pacemaker

import (
	"math"
	"sync"
	"time"

	"github.com/shawnlimjunhe/superliquid/config"
	"github.com/shawnlimjunhe/superliquid/log"
)

// View is a round in which one designated leader attempts to drive
// consensus.
type View = uint64

// Pacemaker owns the view clock and emits timeout events on Timeouts
// when a view's deadline elapses without a fresh QC.
type Pacemaker struct {
	mu sync.Mutex

	cfg *config.Config

	currView      View
	consecutiveTO int // k: consecutive views since the last QC-advanced view

	timer *time.Timer

	// Timeouts receives the view that just timed out.
	Timeouts chan View

	stopChan chan struct{}
}

func New(cfg *config.Config) *Pacemaker {
	return &Pacemaker{
		cfg:      cfg,
		Timeouts: make(chan View, 1),
		stopChan: make(chan struct{}),
	}
}

// timeoutFor computes T(v) = T0 * M^k.
func (p *Pacemaker) timeoutFor(k int) time.Duration {
	factor := math.Pow(p.cfg.MultiplicativeFactor, float64(k))
	return time.Duration(float64(p.cfg.TickDuration) * factor)
}

// Start launches the view timer goroutine. Call CurrentView/LeaderOf/
// OnQCForView/OnHigherViewObserved from the replica loop only — the
// timer goroutine never touches replica state directly, it only posts
// to Timeouts.
func (p *Pacemaker) Start() {
	p.mu.Lock()
	d := p.timeoutFor(p.consecutiveTO)
	p.timer = time.NewTimer(d)
	timer := p.timer
	p.mu.Unlock()

	go func() {
		for {
			select {
			case <-timer.C:
				p.mu.Lock()
				firedView := p.currView
				p.consecutiveTO++
				next := p.timeoutFor(p.consecutiveTO)
				p.timer = time.NewTimer(next)
				timer = p.timer
				p.mu.Unlock()

				log.Debugf("pacemaker: view %d timed out, backing off to %s", firedView, next)
				select {
				case p.Timeouts <- firedView:
				case <-p.stopChan:
					return
				}
			case <-p.stopChan:
				return
			}
		}
	}()
}

func (p *Pacemaker) Stop() {
	close(p.stopChan)
}

// CurrentView returns the locally known current view.
func (p *Pacemaker) CurrentView() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currView
}

// OnQCForView resets the backoff counter because a fresh QC formed at
// view v, and advances to v+1 if v is at least the current view.
func (p *Pacemaker) OnQCForView(v View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveTO = 0
	if v >= p.currView {
		p.advanceToLocked(v + 1)
	}
}

// OnHigherViewObserved fast-forwards the local view clock upon seeing
// any correctly signed message at a higher view, per spec.md §4.1.
func (p *Pacemaker) OnHigherViewObserved(v View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v > p.currView {
		p.advanceToLocked(v)
	}
}

// advanceToLocked sets the view clock forward and resets the timer.
// Callers must hold p.mu.
func (p *Pacemaker) advanceToLocked(v View) {
	if v <= p.currView {
		return
	}
	p.currView = v
	if p.timer != nil {
		p.timer.Reset(p.timeoutFor(p.consecutiveTO))
	}
}

// LeaderOf returns the leader for view v: leader(v) = v mod N.
func (p *Pacemaker) LeaderOf(v View) int {
	return p.cfg.LeaderOf(v)
}
