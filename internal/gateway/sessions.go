// Package gateway serves console dashboards over HTTP and WebSocket. Each
// signed-in user owns at most one open dashboard; its controllers live
// across requests until the user closes it or it sits idle too long.
package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/referral/referral/internal/dashboard"
	"github.com/referral/referral/internal/platform/auth"
	"github.com/referral/referral/internal/platform/websocket"
)

// ServicesFunc builds the entity services a session's dashboard talks to.
type ServicesFunc func(s auth.Session) dashboard.Services

type entry struct {
	dash     *dashboard.Dashboard
	token    string
	unsub    func()
	lastSeen time.Time
}

// Sessions holds the open dashboard of every signed-in user.
type Sessions struct {
	services ServicesFunc
	hub      *websocket.Hub
	opts     dashboard.Options
	idle     time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu   sync.Mutex
	open map[string]*entry
}

// SessionsConfig configures NewSessions. IdleTimeout of zero keeps
// dashboards open until closed explicitly.
type SessionsConfig struct {
	Services    ServicesFunc
	Hub         *websocket.Hub
	Dashboard   dashboard.Options
	IdleTimeout time.Duration
	Logger      zerolog.Logger
}

func NewSessions(cfg SessionsConfig) *Sessions {
	s := &Sessions{
		services: cfg.Services,
		hub:      cfg.Hub,
		opts:     cfg.Dashboard,
		idle:     cfg.IdleTimeout,
		logger:   cfg.Logger,
		now:      time.Now,
		open:     make(map[string]*entry),
	}
	if s.hub != nil {
		s.hub.OnSubscribe(s.deliverCurrent)
	}
	return s
}

// Key names the dashboard of a session. It is also the WebSocket owner.
func Key(s auth.Session) string {
	return string(s.Role) + ":" + s.UserID
}

// Open returns the session's dashboard, opening it on first use. A session
// that signed in again with a new token gets a fresh dashboard.
func (s *Sessions) Open(sess auth.Session) (*dashboard.Dashboard, string, error) {
	key := Key(sess)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.open[key]; ok {
		if e.token == sess.Token {
			e.lastSeen = s.now()
			return e.dash, key, nil
		}
		s.closeLocked(key, e)
	}

	d, err := dashboard.Open(sess, s.services(sess), s.opts)
	if err != nil {
		return nil, key, err
	}
	e := &entry{dash: d, token: sess.Token, lastSeen: s.now()}
	e.unsub = d.Subscribe(func(tab string, state interface{}) {
		s.publish(key, tab, state)
	})
	s.open[key] = e
	return d, key, nil
}

// Lookup returns an already open dashboard.
func (s *Sessions) Lookup(key string) (*dashboard.Dashboard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.open[key]
	if !ok {
		return nil, false
	}
	return e.dash, true
}

// Close disposes the session's dashboard and disconnects its sockets.
func (s *Sessions) Close(sess auth.Session) bool {
	key := Key(sess)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.open[key]
	if ok {
		s.closeLocked(key, e)
	}
	return ok
}

func (s *Sessions) closeLocked(key string, e *entry) {
	delete(s.open, key)
	e.unsub()
	e.dash.Close()
	if s.hub != nil {
		s.hub.CloseOwner(key)
	}
}

// Len returns the number of open dashboards.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// Sweep closes dashboards idle for longer than the idle timeout and returns
// how many it closed.
func (s *Sessions) Sweep() int {
	if s.idle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idle)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, e := range s.open {
		if e.lastSeen.Before(cutoff) {
			s.closeLocked(key, e)
			n++
		}
	}
	if n > 0 {
		s.logger.Info().Int("closed", n).Msg("closed idle dashboards")
	}
	return n
}

// Run sweeps idle dashboards until ctx ends, then closes every dashboard.
func (s *Sessions) Run(ctx context.Context) {
	defer s.CloseAll()
	if s.idle <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Sessions) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.open {
		s.closeLocked(key, e)
	}
}

func (s *Sessions) publish(owner, tab string, state interface{}) {
	if s.hub == nil {
		return
	}
	ev, err := stateEvent(tab, state)
	if err != nil {
		s.logger.Error().Err(err).Str("tab", tab).Msg("encode snapshot")
		return
	}
	s.hub.Broadcast(owner, tab, ev)
}

// deliverCurrent sends a newly subscribed client the tab's current snapshot.
func (s *Sessions) deliverCurrent(client *websocket.Client, topic string) {
	d, ok := s.Lookup(client.Owner)
	if !ok {
		return
	}
	t, ok := d.Tab(topic)
	if !ok {
		return
	}
	ev, err := stateEvent(topic, t.Snapshot())
	if err != nil {
		s.logger.Error().Err(err).Str("tab", topic).Msg("encode snapshot")
		return
	}
	s.hub.Deliver(client, ev)
}

func stateEvent(tab string, state interface{}) (websocket.Event, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return websocket.Event{}, err
	}
	return websocket.Event{
		Type:      "state",
		Topic:     tab,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}
