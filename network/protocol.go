package network

import (
	"encoding/json"
	"errors"
	"fmt"
)

// 客户端 -> 服务器
const (
	MsgTypeHeartbeat      = 1
	MsgTypeCreateRoom     = 101
	MsgTypeJoinRoom       = 102
	MsgTypeStartGame      = 201
	MsgTypeSubmitNumber   = 202
	MsgTypeRequestNewGame = 203
)

// 服务器 -> 客户端
const (
	MsgTypeJoinSuccess           = 301
	MsgTypeError                 = 302
	MsgTypeUpdateLobby           = 303
	MsgTypeGameStarted           = 304
	MsgTypePlayerChoiceMade      = 305
	MsgTypeRoundResult           = 306
	MsgTypeSynergyAchieved       = 307
	MsgTypeGameEndedByDisconnect = 308
)

var (
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Request is one of the inbound messages a participant can send.
type Request interface {
	MsgID() uint16
}

type Heartbeat struct{}

type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type StartGameRequest struct {
	RoomCode string `json:"roomCode"`
}

type SubmitNumberRequest struct {
	RoomCode string `json:"roomCode"`
	Number   int    `json:"number"`
}

type RequestNewGameRequest struct {
	RoomCode string `json:"roomCode"`
}

func (Heartbeat) MsgID() uint16             { return MsgTypeHeartbeat }
func (CreateRoomRequest) MsgID() uint16     { return MsgTypeCreateRoom }
func (JoinRoomRequest) MsgID() uint16       { return MsgTypeJoinRoom }
func (StartGameRequest) MsgID() uint16      { return MsgTypeStartGame }
func (SubmitNumberRequest) MsgID() uint16   { return MsgTypeSubmitNumber }
func (RequestNewGameRequest) MsgID() uint16 { return MsgTypeRequestNewGame }

// DecodeRequest turns a packet into its typed request.
func DecodeRequest(p *Packet) (Request, error) {
	switch p.MsgID {
	case MsgTypeHeartbeat:
		return Heartbeat{}, nil
	case MsgTypeCreateRoom:
		return decodeInto[CreateRoomRequest](p.Data)
	case MsgTypeJoinRoom:
		return decodeInto[JoinRoomRequest](p.Data)
	case MsgTypeStartGame:
		return decodeInto[StartGameRequest](p.Data)
	case MsgTypeSubmitNumber:
		return decodeInto[SubmitNumberRequest](p.Data)
	case MsgTypeRequestNewGame:
		return decodeInto[RequestNewGameRequest](p.Data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessage, p.MsgID)
	}
}

func decodeInto[T Request](data []byte) (Request, error) {
	var req T
	if len(data) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return req, nil
}

// Event is one of the outbound messages the server emits.
type Event interface {
	MsgID() uint16
	EventName() string
}

type JoinSuccess struct {
	RoomCode string `json:"roomCode"`
}

type Error struct {
	Message string `json:"message"`
}

type LobbyPlayer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

type UpdateLobby struct {
	Players []LobbyPlayer `json:"players"`
	HostID  string        `json:"hostId"`
}

type GameStarted struct {
	Round int `json:"round"`
	// Duration is the round length in seconds.
	Duration int `json:"duration"`
}

type PlayerChoiceMade struct {
	PlayerID string `json:"playerId"`
}

// PlayerResult reveals one player's pick; Choice is null for a player who
// never picked.
type PlayerResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Choice *int   `json:"choice"`
}

type RoundResult struct {
	Results   []PlayerResult `json:"results"`
	IsSynergy bool           `json:"isSynergy"`
	TimedOut  bool           `json:"timedOut"`
}

type SynergyAchieved struct {
	Round int `json:"round"`
	Score int `json:"score"`
	// TotalTime is measured in milliseconds from the start of round 1.
	TotalTime int64  `json:"totalTime"`
	HostID    string `json:"hostId"`
}

type GameEndedByDisconnect struct {
	Message string `json:"message"`
}

func (JoinSuccess) MsgID() uint16           { return MsgTypeJoinSuccess }
func (Error) MsgID() uint16                 { return MsgTypeError }
func (UpdateLobby) MsgID() uint16           { return MsgTypeUpdateLobby }
func (GameStarted) MsgID() uint16           { return MsgTypeGameStarted }
func (PlayerChoiceMade) MsgID() uint16      { return MsgTypePlayerChoiceMade }
func (RoundResult) MsgID() uint16           { return MsgTypeRoundResult }
func (SynergyAchieved) MsgID() uint16       { return MsgTypeSynergyAchieved }
func (GameEndedByDisconnect) MsgID() uint16 { return MsgTypeGameEndedByDisconnect }

func (JoinSuccess) EventName() string           { return "joinSuccess" }
func (Error) EventName() string                 { return "error" }
func (UpdateLobby) EventName() string           { return "updateLobby" }
func (GameStarted) EventName() string           { return "gameStarted" }
func (PlayerChoiceMade) EventName() string      { return "playerChoiceMade" }
func (RoundResult) EventName() string           { return "roundResult" }
func (SynergyAchieved) EventName() string       { return "synergyAchieved" }
func (GameEndedByDisconnect) EventName() string { return "gameEndedByDisconnect" }

// EncodeEvent returns the JSON body of an event.
func EncodeEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	return data, nil
}
