package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/synergy/logger"
	"github.com/wfunc/synergy/network"
)

// client tracks the room this connection is in so commands can omit the code.
type client struct {
	conn     *websocket.Conn
	mutex    sync.Mutex
	roomCode string
}

// send formats and sends a request to the WebSocket server.
func (c *client) send(req network.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	packet, err := network.EncodePacket(req.MsgID(), data)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

func (c *client) room() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.roomCode
}

func (c *client) readLoop(done chan<- struct{}) {
	defer close(done)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Infof("Read error: %v", err)
			return
		}
		packet, err := network.ParsePacket(message)
		if err != nil {
			logger.Log.Warnf("Received invalid packet of size %d", len(message))
			continue
		}
		if packet.MsgID == network.MsgTypeJoinSuccess {
			var js network.JoinSuccess
			if json.Unmarshal(packet.Data, &js) == nil {
				c.mutex.Lock()
				c.roomCode = js.RoomCode
				c.mutex.Unlock()
			}
		}
		logger.Log.Infof("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
	}
}

// parse turns a command line into a request.
func (c *client) parse(line, name string) (network.Request, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, false
	}
	switch fields[0] {
	case "create":
		return network.CreateRoomRequest{PlayerName: name}, true
	case "join":
		if len(fields) < 2 {
			return nil, false
		}
		return network.JoinRoomRequest{RoomCode: fields[1], PlayerName: name}, true
	case "start":
		return network.StartGameRequest{RoomCode: c.room()}, true
	case "pick":
		if len(fields) < 2 {
			return nil, false
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, false
		}
		return network.SubmitNumberRequest{RoomCode: c.room(), Number: n}, true
	case "again":
		return network.RequestNewGameRequest{RoomCode: c.room()}, true
	case "ping":
		return network.Heartbeat{}, true
	}
	return nil, false
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	name := flag.String("name", "", "display name")
	flag.Parse()

	logger.Init("info")
	defer logger.Sync()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	logger.Log.Infof("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	c := &client{conn: conn}
	done := make(chan struct{})
	go c.readLoop(done)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	logger.Log.Info("Commands: create | join CODE | start | pick N | again | ping")

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			logger.Log.Info("Interrupt received, closing connection.")
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				logger.Log.Warnf("Write close error: %v", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case <-heartbeat.C:
			if err := c.send(network.Heartbeat{}); err != nil {
				logger.Log.Warnf("Write error: %v", err)
				return
			}
		case line := <-lines:
			req, ok := c.parse(line, *name)
			if !ok {
				logger.Log.Infof("Unknown command %q", line)
				continue
			}
			if err := c.send(req); err != nil {
				logger.Log.Warnf("Write error: %v", err)
				return
			}
			logger.Log.Infof("-> SENT: %T", req)
		}
	}
}
