// SPDX-License-Identifier: ice License 1.0

package fixture

import (
	"net"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"github.com/ice-blockchain/subzero-client/model"
)

type (
	// MockRelay is an in-process relay: it stores accepted events, answers REQ with the stored matches followed by
	// EOSE, and pushes newly accepted events to live subscriptions.
	MockRelay struct {
		server     *httptest.Server
		reject     func(*model.Event) string
		conns      map[*relayConn]struct{}
		events     []*model.Event
		received   [][]byte
		connsMx    sync.Mutex
		eventsMx   sync.Mutex
		receivedMx sync.Mutex
		wg         sync.WaitGroup
		Silent     atomic.Bool
		Connected  atomic.Int64
	}
	Option func(*MockRelay)

	relayConn struct {
		conn          net.Conn
		subscriptions map[string]model.Filters
		writeMx       sync.Mutex
		subsMx        sync.Mutex
	}
)
