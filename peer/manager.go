package peer

import (
	"net"
	"time"

	"github.com/shawnlimjunhe/superliquid/log"
	"github.com/shawnlimjunhe/superliquid/wire"
)

// Inbound is a decoded message tagged with a validator id found by the
// sender's host alone (ports are not compared): the lowest roster index
// whose address has that host, so validators sharing a host all map to
// the same id. From is -1 if no roster address has the sender's host
// (a client connection talking the peer protocol by mistake).
type Inbound struct {
	From int
	Msg  Message
}

// Manager dials every other validator in the fixed roster and listens
// for their inbound connections, re-dialing on failure. Grounded on
// go-ultiledger's peer.PeerManager (addChan/deleteChan/retryChan
// channel-driven lifecycle, Start(stopChan)), re-pointed at net.Conn +
// wire framing instead of a grpc.ClientConn.
type Manager struct {
	selfID int
	listen string
	addrs  []string // addrs[i] is validator i's peer address, i != selfID

	livePeers  map[int]*Peer
	retryPeers map[int]int

	addChan    chan *Peer
	retryChan  chan int
	listener   net.Listener
	In         chan Inbound
	stopChan   chan struct{}
}

func NewManager(selfID int, listen string, addrs []string) *Manager {
	return &Manager{
		selfID:     selfID,
		listen:     listen,
		addrs:      addrs,
		livePeers:  make(map[int]*Peer),
		retryPeers: make(map[int]int),
		addChan:    make(chan *Peer, len(addrs)),
		retryChan:  make(chan int, len(addrs)),
		In:         make(chan Inbound, 256),
	}
}

func (m *Manager) Start(stopChan chan struct{}) error {
	ln, err := net.Listen("tcp", m.listen)
	if err != nil {
		return err
	}
	m.listener = ln
	m.stopChan = stopChan

	go m.acceptLoop()

	for id, addr := range m.addrs {
		if id == m.selfID {
			continue
		}
		p, err := dial(addr)
		if err != nil {
			log.Warnw("peer: initial dial failed", "id", id, "addr", addr)
			m.retryPeers[id] = 3
			continue
		}
		p.ID = id
		m.livePeers[id] = p
		go m.readLoop(id, p)
	}

	go m.retryLoop()

	go func() {
		<-stopChan
		ln.Close()
		for _, p := range m.livePeers {
			p.Close()
		}
	}()

	return nil
}

func (m *Manager) acceptLoop() {
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			return
		}
		go m.serveInbound(conn)
	}
}

func (m *Manager) serveInbound(conn net.Conn) {
	id := m.idForAddr(conn.RemoteAddr().String())
	for {
		raw, err := wire.ReadFrame(conn)
		if err != nil {
			conn.Close()
			return
		}
		msg, err := DecodeMessage(raw)
		if err != nil {
			log.Warnw("peer: dropping malformed frame", "err", err)
			continue
		}
		m.In <- Inbound{From: id, Msg: msg}
	}
}

func (m *Manager) readLoop(id int, p *Peer) {
	for {
		raw, err := wire.ReadFrame(p.conn)
		if err != nil {
			p.Close()
			m.retryChan <- id
			return
		}
		msg, err := DecodeMessage(raw)
		if err != nil {
			log.Warnw("peer: dropping malformed frame", "id", id, "err", err)
			continue
		}
		m.In <- Inbound{From: id, Msg: msg}
	}
}

func (m *Manager) idForAddr(addr string) int {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return -1
	}
	for id, a := range m.addrs {
		ah, _, err := net.SplitHostPort(a)
		if err == nil && ah == host {
			return id
		}
	}
	return -1
}

func (m *Manager) retryLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for id, count := range m.retryPeers {
				if count == 0 {
					delete(m.retryPeers, id)
					continue
				}
				p, err := dial(m.addrs[id])
				if err != nil {
					m.retryPeers[id] = count - 1
					continue
				}
				p.ID = id
				delete(m.retryPeers, id)
				m.livePeers[id] = p
				go m.readLoop(id, p)
			}
		case id := <-m.retryChan:
			delete(m.livePeers, id)
			if _, ok := m.retryPeers[id]; !ok {
				m.retryPeers[id] = 3
			}
		case <-m.stopChan:
			return
		}
	}
}

// Broadcast sends m to every currently connected peer, best-effort.
func (m *Manager) Broadcast(msg Message) {
	for id, p := range m.livePeers {
		if err := p.Send(msg); err != nil {
			log.Warnw("peer: broadcast send failed", "id", id, "err", err)
		}
	}
}

// SendTo sends m to a single validator, best-effort.
func (m *Manager) SendTo(id int, msg Message) {
	p, ok := m.livePeers[id]
	if !ok {
		return
	}
	if err := p.Send(msg); err != nil {
		log.Warnw("peer: send failed", "id", id, "err", err)
	}
}
