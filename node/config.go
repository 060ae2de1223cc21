// Package node wires every per-replica subcomponent together: the
// consensus replica, mempool, ledger, peer gossip and client RPC
// server, plus the two event loops draining their channels into each
// other. Grounded on go-ultiledger's node.Node/node.Config (manager
// fields, NewNode/Start/Stop lifecycle, viper-backed config loading).
package node

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/shawnlimjunhe/superliquid/config"
)

// Config is the per-process configuration that distinguishes one
// replica from another: its validator id within the fixed roster and
// the network addresses it listens on / dials out to. The roster-wide
// settings (keys, pacemaker timing, faucet) live in config.Config and
// are identical on every replica.
type Config struct {
	Shared *config.Config

	// ValidatorID is this process's index into Shared.PublicKeys.
	ValidatorID int

	// PeerListen is the address this replica's peer.Manager accepts
	// inbound gossip connections on.
	PeerListen string
	// PeerAddrs[i] is validator i's peer listen address, for every i
	// != ValidatorID; PeerAddrs[ValidatorID] is ignored.
	PeerAddrs []string

	// RPCListen is the address the client-facing rpc.Server accepts
	// connections on.
	RPCListen string
}

// NewConfig loads a Config from v, sharing the roster-wide config.New
// load, then reading this process's validator id and network addresses.
func NewConfig(v *viper.Viper) (*Config, error) {
	shared, err := config.New(v)
	if err != nil {
		return nil, fmt.Errorf("node: %v", err)
	}

	v.SetEnvPrefix("")
	v.AutomaticEnv()
	if err := bindEnv(v, "VALIDATOR_ID", "PEER_LISTEN", "PEER_ADDRS", "RPC_LISTEN"); err != nil {
		return nil, err
	}

	id := v.GetInt("VALIDATOR_ID")
	if id < 0 || id >= shared.NumValidators {
		return nil, errors.New("node: VALIDATOR_ID is missing or out of range")
	}

	peerListen := v.GetString("PEER_LISTEN")
	if peerListen == "" {
		return nil, errors.New("node: PEER_LISTEN is missing")
	}

	rpcListen := v.GetString("RPC_LISTEN")
	if rpcListen == "" {
		return nil, errors.New("node: RPC_LISTEN is missing")
	}

	raw := v.GetString("PEER_ADDRS")
	if raw == "" {
		return nil, errors.New("node: PEER_ADDRS is missing")
	}
	addrs := strings.Split(raw, ",")
	if len(addrs) != shared.NumValidators {
		return nil, fmt.Errorf("node: PEER_ADDRS has %d entries, want %d", len(addrs), shared.NumValidators)
	}

	return &Config{
		Shared:      shared,
		ValidatorID: id,
		PeerListen:  peerListen,
		PeerAddrs:   addrs,
		RPCListen:   rpcListen,
	}, nil
}

func bindEnv(v *viper.Viper, names ...string) error {
	for _, n := range names {
		if err := v.BindEnv(n); err != nil {
			return err
		}
	}
	return nil
}
