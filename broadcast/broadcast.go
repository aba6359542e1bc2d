// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"fmt"

	"github.com/wfunc/synergy/network"
	"github.com/wfunc/synergy/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// 基于会话的广播器: 事件只编码一次, 然后投递给每个接收者的发送队列
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

// BroadcastToRoom delivers ev to every recipient still connected. Recipients
// that are gone or whose queue is full are skipped; the returned error joins
// their failures.
func (b *RoomBroadcaster) BroadcastToRoom(roomCode string, recipients []string, ev network.Event) error {
	data, err := network.EncodeEvent(ev)
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range recipients {
		if err := b.send(id, ev.MsgID(), data); err != nil {
			errs = append(errs, fmt.Errorf("room %s: %w", roomCode, err))
		}
	}
	return errors.Join(errs...)
}

// SendTo delivers ev to a single connection.
func (b *RoomBroadcaster) SendTo(sessionID string, ev network.Event) error {
	data, err := network.EncodeEvent(ev)
	if err != nil {
		return err
	}
	return b.send(sessionID, ev.MsgID(), data)
}

func (b *RoomBroadcaster) send(sessionID string, msgID uint16, data []byte) error {
	s, exists := b.sessionManager.Get(sessionID)
	if !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err := s.Send(msgID, data); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}
