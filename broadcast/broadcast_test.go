package broadcast

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/synergy/network"
	"github.com/wfunc/synergy/session"
)

type frame struct {
	msgID uint16
	data  []byte
}

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	mu     sync.Mutex
	frames []frame
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frame{msgID, data})
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func (m *MockConnection) received() []frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]frame(nil), m.frames...)
}

func connect(t *testing.T, sessions *session.Manager, id string) *MockConnection {
	t.Helper()
	conn := &MockConnection{}
	s := session.NewSession(id, conn)
	sessions.Add(s)
	go s.WriteLoop()
	t.Cleanup(func() { s.Close() })
	return conn
}

func waitFrames(t *testing.T, conn *MockConnection, n int) []frame {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got := conn.received(); len(got) >= n {
			return got
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d frames, got %d", n, len(conn.received()))
	return nil
}

func TestBroadcastToRoom(t *testing.T) {
	sessions := session.NewManager()
	ann := connect(t, sessions, "ann")
	bob := connect(t, sessions, "bob")
	cat := connect(t, sessions, "cat")

	b := NewRoomBroadcaster(sessions)
	ev := network.GameStarted{Round: 1, Duration: 20}
	if err := b.BroadcastToRoom("ROOM01", []string{"ann", "bob"}, ev); err != nil {
		t.Fatalf("BroadcastToRoom failed: %v", err)
	}

	for name, conn := range map[string]*MockConnection{"ann": ann, "bob": bob} {
		frames := waitFrames(t, conn, 1)
		if frames[0].msgID != network.MsgTypeGameStarted {
			t.Errorf("%s: expected msg id %d, got %d", name, network.MsgTypeGameStarted, frames[0].msgID)
		}
		var got network.GameStarted
		if err := json.Unmarshal(frames[0].data, &got); err != nil || got != ev {
			t.Errorf("%s: expected %+v, got %+v (%v)", name, ev, got, err)
		}
	}

	time.Sleep(10 * time.Millisecond)
	if len(cat.received()) != 0 {
		t.Error("Non-recipient should receive nothing")
	}
}

func TestBroadcastToRoom_SkipsMissingSessions(t *testing.T) {
	sessions := session.NewManager()
	ann := connect(t, sessions, "ann")

	b := NewRoomBroadcaster(sessions)
	err := b.BroadcastToRoom("ROOM01", []string{"ghost", "ann"}, network.PlayerChoiceMade{PlayerID: "ann"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound for the missing recipient, got %v", err)
	}
	waitFrames(t, ann, 1)
}

func TestSendTo(t *testing.T) {
	sessions := session.NewManager()
	ann := connect(t, sessions, "ann")

	b := NewRoomBroadcaster(sessions)
	if err := b.SendTo("ann", network.Error{Message: "Room not found."}); err != nil {
		t.Fatal(err)
	}
	frames := waitFrames(t, ann, 1)
	if frames[0].msgID != network.MsgTypeError {
		t.Errorf("Expected error frame, got %d", frames[0].msgID)
	}

	if err := b.SendTo("nobody", network.Error{}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}
