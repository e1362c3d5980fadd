// This file is part of Timewarp.
//
// Timewarp is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Timewarp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Timewarp.  If not, see <https://www.gnu.org/licenses/>.

// Package control exposes a playback session over a websocket. clients send
// seek and jump commands and receive a steady stream of status reports, so a
// scrubbing UI can live in a browser or another process entirely.
package control

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/splitframe/timewarp/logger"
	"github.com/splitframe/timewarp/playback"
)

// how often a status report is pushed to every connected client.
const reportPeriod = 500 * time.Millisecond

// outgoing messages are dropped rather than letting a slow client stall the
// broadcaster.
const sendBacklog = 16

// Command is what a client sends over the wire.
type Command struct {
	Type  string `json:"type"`
	Frame int    `json:"frame"`
}

// the set of recognised Command types.
const (
	CmdSeek        = "seek"
	CmdJumpBack    = "jump-back"
	CmdJumpForward = "jump-forward"
	CmdStatus      = "status"
)

// Status is what the server sends. it wraps the playback report so the
// message type can be distinguished on the wire.
type Status struct {
	Type string `json:"type"`
	playback.Report
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan Status
}

// Server accepts websocket connections and relays commands to a playback
// engine. it implements the http.Handler interface.
type Server struct {
	engine *playback.Engine

	crit    sync.Mutex
	clients map[uuid.UUID]*client

	upgrader websocket.Upgrader
	done     chan struct{}
	pumping  sync.WaitGroup
}

// NewServer is the preferred method of initialisation for the Server type.
// the returned server broadcasts status reports until Shutdown is called.
func NewServer(engine *playback.Engine) *Server {
	s := &Server{
		engine:  engine,
		clients: make(map[uuid.UUID]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}

	s.pumping.Add(1)
	go s.broadcast()

	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logf("control", "upgrade: %v", err)
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan Status, sendBacklog),
	}

	s.crit.Lock()
	s.clients[c.id] = c
	s.crit.Unlock()
	logger.Logf("control", "client %s connected", c.id)

	go s.writePump(c)
	s.readPump(c)
}

// detach removes a client and closes its connection. safe to call more than
// once for the same client.
func (s *Server) detach(c *client) {
	s.crit.Lock()
	_, present := s.clients[c.id]
	delete(s.clients, c.id)
	s.crit.Unlock()

	if present {
		close(c.send)
		_ = c.conn.Close()
		logger.Logf("control", "client %s disconnected", c.id)
	}
}

// readPump relays commands from one client until its connection drops.
func (s *Server) readPump(c *client) {
	defer s.detach(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Logf("control", "client %s: bad command: %v", c.id, err)
			continue
		}

		switch cmd.Type {
		case CmdSeek:
			s.engine.RequestSeek(cmd.Frame)
		case CmdJumpBack:
			s.engine.RequestJump(playback.JumpBack)
		case CmdJumpForward:
			s.engine.RequestJump(playback.JumpForward)
		case CmdStatus:
			s.offer(c, s.status())
		default:
			logger.Logf("control", "client %s: unknown command '%s'", c.id, cmd.Type)
		}
	}
}

// writePump drains a client's send channel onto its connection.
func (s *Server) writePump(c *client) {
	for st := range c.send {
		if err := c.conn.WriteJSON(st); err != nil {
			return
		}
	}
}

// offer queues a status report for one client, dropping it if the client's
// backlog is full. the membership check means the send channel cannot be
// closed underneath us by a concurrent detach.
func (s *Server) offer(c *client, st Status) {
	s.crit.Lock()
	defer s.crit.Unlock()

	if _, present := s.clients[c.id]; !present {
		return
	}
	select {
	case c.send <- st:
	default:
	}
}

func (s *Server) status() Status {
	return Status{Type: CmdStatus, Report: s.engine.Report()}
}

// broadcast pushes the current status to every client at a steady rate.
func (s *Server) broadcast() {
	defer s.pumping.Done()

	tck := time.NewTicker(reportPeriod)
	defer tck.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-tck.C:
			st := s.status()
			s.crit.Lock()
			audience := make([]*client, 0, len(s.clients))
			for _, c := range s.clients {
				audience = append(audience, c)
			}
			s.crit.Unlock()

			for _, c := range audience {
				s.offer(c, st)
			}
		}
	}
}

// Shutdown stops the broadcaster and disconnects every client.
func (s *Server) Shutdown() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	s.pumping.Wait()

	s.crit.Lock()
	detach := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		detach = append(detach, c)
	}
	s.crit.Unlock()

	for _, c := range detach {
		s.detach(c)
	}
}
