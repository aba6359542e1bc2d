package main

import (
	"testing"

	"github.com/wfunc/synergy/network"
)

func TestParse(t *testing.T) {
	c := &client{roomCode: "ROOM01"}

	cases := []struct {
		line string
		want network.Request
	}{
		{"create", network.CreateRoomRequest{PlayerName: "Ann"}},
		{"join abc123", network.JoinRoomRequest{RoomCode: "abc123", PlayerName: "Ann"}},
		{"start", network.StartGameRequest{RoomCode: "ROOM01"}},
		{"pick 7", network.SubmitNumberRequest{RoomCode: "ROOM01", Number: 7}},
		{"again", network.RequestNewGameRequest{RoomCode: "ROOM01"}},
		{"ping", network.Heartbeat{}},
	}
	for _, tc := range cases {
		got, ok := c.parse(tc.line, "Ann")
		if !ok || got != tc.want {
			t.Errorf("parse(%q) = %#v, %v; want %#v", tc.line, got, ok, tc.want)
		}
	}

	for _, bad := range []string{"", "join", "pick", "pick seven", "spin"} {
		if _, ok := c.parse(bad, "Ann"); ok {
			t.Errorf("parse(%q) should fail", bad)
		}
	}
}
