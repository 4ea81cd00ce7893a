// Package netmux wraps go-libp2p's network.Stream behind a narrow
// stream-oriented session multiplexer: sync/relay/peer code needs one
// per-protocol byte stream per connected session and nothing else from
// the transport layer.
package netmux

import (
	"io"
	"sync"

	"github.com/google/uuid"
	libp2pnetwork "github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
)

// ProtocolID names one of the node's wire protocols (Sync, RelayV2/V3,
// Filter, Identify, Discovery, Ping, Feeler, DisconnectMessage, Alert).
type ProtocolID = protocol.ID

// Session is one multiplexed connection to a remote peer: many protocol
// streams share it, identified by a process-local SessionID distinct
// from the remote's libp2p PeerID.
type Session struct {
	ID       uuid.UUID
	PeerID   peer.ID
	Outbound bool

	mu      sync.Mutex
	streams map[ProtocolID]libp2pnetwork.Stream
}

// NewSession wraps a freshly opened libp2p connection, minting a new
// session id.
func NewSession(p peer.ID, outbound bool) *Session {
	return &Session{
		ID:       uuid.New(),
		PeerID:   p,
		Outbound: outbound,
		streams:  make(map[ProtocolID]libp2pnetwork.Stream),
	}
}

// Bind records the stream backing one protocol for this session.
func (s *Session) Bind(id ProtocolID, stream libp2pnetwork.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[id] = stream
}

// Stream returns the byte stream for a protocol, if the session has
// negotiated it.
func (s *Session) Stream(id ProtocolID) (io.ReadWriteCloser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[id]
	return st, ok
}

// Close tears down every protocol stream on this session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for id, st := range s.streams {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.streams, id)
	}
	return firstErr
}

// Multiplexer tracks every live Session, keyed by its libp2p PeerID (one
// session per connected peer; reconnects replace the prior session).
type Multiplexer struct {
	mu       sync.Mutex
	sessions map[peer.ID]*Session
}

func NewMultiplexer() *Multiplexer {
	return &Multiplexer{sessions: make(map[peer.ID]*Session)}
}

// Open registers a new session for p, replacing (and closing) any prior
// one for the same peer.
func (m *Multiplexer) Open(p peer.ID, outbound bool) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.sessions[p]; ok {
		old.Close()
	}
	s := NewSession(p, outbound)
	m.sessions[p] = s
	return s
}

// Lookup returns the current session for p, if any.
func (m *Multiplexer) Lookup(p peer.ID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[p]
	return s, ok
}

// Drop closes and forgets the session for p, e.g. on disconnect.
func (m *Multiplexer) Drop(p peer.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[p]; ok {
		s.Close()
		delete(m.sessions, p)
	}
}
