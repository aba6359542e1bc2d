// session/session.go
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/synergy/network"
)

const sendQueueSize = 64

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSendQueueFull = errors.New("send queue full")
)

type outbound struct {
	msgID uint16
	data  []byte
}

// Session is one connected client. Its ID is the opaque connection handle the
// game logic knows the player by.
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	lastActive time.Time
	send       chan outbound
	done       chan struct{}
	closeOnce  sync.Once
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
		send:       make(chan outbound, sendQueueSize),
		done:       make(chan struct{}),
	}
}

// Send queues a message for the write loop. It never blocks: a client that
// cannot keep up has its connection closed, which ends its read loop.
func (s *Session) Send(msgID uint16, data []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- outbound{msgID: msgID, data: data}:
		return nil
	default:
		s.Close()
		return ErrSendQueueFull
	}
}

// WriteLoop drains the send queue into the connection until the session is
// closed or a write fails.
func (s *Session) WriteLoop() {
	for {
		select {
		case msg := <-s.send:
			if err := s.Conn.Send(msg.msgID, msg.data); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Touch 记录最近一次收到客户端消息的时间
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) GetID() string {
	return s.ID
}

// Close closes the connection once; later calls return nil.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.Conn.Close()
	})
	return err
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// All returns a snapshot of the connected sessions.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	return all
}
