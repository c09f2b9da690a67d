package relation

import (
	"github.com/clusterbay/pacelink/pkg/events"
	"github.com/clusterbay/pacelink/pkg/metrics"
)

// State is the relation lifecycle phase.
type State string

const (
	// StateInitial means no peer has joined the relation.
	StateInitial State = "initial"
	// StateConnected means a peer unit joined but the cluster is not
	// formed yet.
	StateConnected State = "connected"
	// StateAvailable means a peer unit reported the cluster as formed.
	StateAvailable State = "available"
)

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	return m.state
}

// IsConnected reports whether a peer has joined the relation.
func (m *Manager) IsConnected() bool {
	return m.state == StateConnected || m.state == StateAvailable
}

// IsAvailable reports whether the peer cluster is formed.
func (m *Manager) IsAvailable() bool {
	return m.state == StateAvailable
}

// PeerJoined handles a peer unit joining the relation.
func (m *Manager) PeerJoined() {
	if m.state == StateInitial {
		m.state = StateConnected
	}
	metrics.PeersConnected.Set(float64(m.channel.UnitCount()))
	m.logger.Info().Str("state", string(m.state)).Msg("peer joined")
	if m.broker != nil {
		m.broker.Publish(events.Event{
			Type:     events.EventPeerJoined,
			Relation: m.relationName,
		})
	}
}

// PeerChanged handles a peer unit updating its relation data. When the
// peer reports the cluster formed, the relation becomes available and an
// ha.ready event is emitted. When a later change no longer reports the
// cluster formed, the relation drops back to connected.
func (m *Manager) PeerChanged() {
	if !m.IsClustered() {
		if m.state == StateAvailable {
			m.state = StateConnected
			m.logger.Info().Msg("peer no longer reports cluster formed")
		}
		return
	}
	m.state = StateAvailable
	m.logger.Info().Msg("peer reports cluster formed")
	if m.broker != nil {
		m.broker.Publish(events.Event{
			Type:     events.EventHAReady,
			Relation: m.relationName,
		})
	}
}

// PeerDeparted handles a peer unit leaving the relation. The lifecycle
// reverts to initial; a rejoining peer walks the states again.
func (m *Manager) PeerDeparted() {
	m.state = StateInitial
	metrics.PeersConnected.Set(float64(m.channel.UnitCount()))
	m.logger.Info().Msg("peer departed")
	if m.broker != nil {
		m.broker.Publish(events.Event{
			Type:     events.EventPeerDeparted,
			Relation: m.relationName,
		})
	}
}
