// SPDX-License-Identifier: ice License 1.0

package client

import (
	"context"
	"sync"
	"sync/atomic"
	stdlibtime "time"

	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ice-blockchain/subzero-client/model"
)

type (
	Config struct {
		URL               string              `yaml:"url" mapstructure:"url"`
		Timeout           stdlibtime.Duration `yaml:"timeout" mapstructure:"timeout"`
		WriteTimeout      stdlibtime.Duration `yaml:"writeTimeout" mapstructure:"writeTimeout"`
		ReadTimeout       stdlibtime.Duration `yaml:"readTimeout" mapstructure:"readTimeout"`
		RequestQueueSize  int                 `yaml:"requestQueueSize" mapstructure:"requestQueueSize"`
		ResponseQueueSize int                 `yaml:"responseQueueSize" mapstructure:"responseQueueSize"`
	}
	Response = model.RelayMessage
	Option   func(*Session)

	// Session multiplexes one subscription over one relay connection: callers enqueue frames, a writer goroutine
	// transmits them in order, a reader goroutine classifies what the relay sends back.
	Session struct {
		cfg       Config
		current   atomic.Pointer[run]
		last      atomic.Pointer[run]
		responses chan *Response
		metrics   *Metrics
		stateMx   sync.Mutex
	}

	// Receipt resolves once the relay answers an EVENT with OK, or the session ends.
	Receipt struct {
		response *Response
		err      error
		done     chan struct{}
		once     sync.Once
		EventID  string
	}

	run struct {
		err          error
		cancel       context.CancelFunc
		conn         *wsConn
		requests     chan *request
		done         chan struct{}
		trace        *trace
		pending      *xsync.MapOf[string, *Receipt]
		subscription *model.Subscription
		requested    []string
		requestedMx  sync.Mutex
	}

	request struct {
		sent  chan error
		label string
		data  []byte
		stop  bool
	}
)

const (
	defaultTimeout           = 5 * stdlibtime.Second
	defaultRequestQueueSize  = 64
	defaultResponseQueueSize = 256
)

var (
	ErrAlreadySubscribed = errors.New("subscription is already running")
	ErrNotSubscribed     = errors.New("no running subscription")
	ErrSessionClosed     = errors.New("session closed")
	ErrQueueTimeout      = errors.New("request queue timeout")
	ErrUnsignedEvent     = errors.New("event must be signed")
	ErrNoURL             = errors.New("relay url is missing")

	errStopped = errors.New("stopped")
)

// Defaults fills zero values.
func (c Config) Defaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RequestQueueSize <= 0 {
		c.RequestQueueSize = defaultRequestQueueSize
	}
	if c.ResponseQueueSize <= 0 {
		c.ResponseQueueSize = defaultResponseQueueSize
	}

	return c
}
