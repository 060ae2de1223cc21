package peer

import (
	"net"
	"time"

	"github.com/shawnlimjunhe/superliquid/wire"
)

// Peer is a live outbound connection to one validator.
type Peer struct {
	Addr     string
	ID       int
	ConnTime int64

	conn net.Conn
}

func (p *Peer) String() string { return p.Addr }

func (p *Peer) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// Send frames and writes m to the peer's connection.
func (p *Peer) Send(m Message) error {
	return wire.WriteFrame(p.conn, EncodeMessage(m))
}

func dial(addr string) (*Peer, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return &Peer{Addr: addr, ConnTime: time.Now().Unix(), conn: conn}, nil
}
