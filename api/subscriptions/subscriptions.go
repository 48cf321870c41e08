// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams committed change sets over websockets.
package subscriptions

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/nnsW3/core-lido/api/utils"
	"github.com/nnsW3/core-lido/log"
	"github.com/nnsW3/core-lido/registry"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	writeTimeout = 10 * time.Second
	pingPeriod   = 30 * time.Second
	// per-connection change-set buffer; slow readers lose records past this
	subscriberBuffer = 256
)

type Subscriptions struct {
	reg      *registry.Registry
	upgrader websocket.Upgrader
	done     chan struct{}
	wg       sync.WaitGroup
}

func New(reg *registry.Registry, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		reg: reg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(req *http.Request) bool {
				origin := req.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

func (s *Subscriptions) handleSubscribeChanges(w http.ResponseWriter, req *http.Request) error {
	select {
	case <-s.done:
		return utils.HTTPError(nil, http.StatusServiceUnavailable)
	default:
	}

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader already responded
		logger.Debug("websocket upgrade failed", "error", err)
		return nil
	}

	s.wg.Add(1)
	go s.pump(conn)
	return nil
}

func (s *Subscriptions) pump(conn *websocket.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	changes, cancel := s.reg.Subscribe(subscriberBuffer)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case cs := <-changes:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(cs); err != nil {
				logger.Debug("subscriber write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-s.done:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// Close shuts down all hijacked connections and waits for their pumps.
func (s *Subscriptions) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/changes").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeChanges))
}
