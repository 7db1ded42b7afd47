package server

import (
	"fmt"
	"os"
	"time"

	"github.com/quillchat/quill/internal/bytesize"
	"github.com/quillchat/quill/pkg/chat/dispatch"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/session"
)

const (
	// DefaultPort is the TCP port clients connect to.
	DefaultPort = 8090

	// DefaultRPCPort is the port the peer notification gRPC service
	// listens on.
	DefaultRPCPort = 50051

	// DefaultMaxConnections caps concurrent client connections.
	DefaultMaxConnections = 4096

	// DefaultShutdownTimeout bounds the graceful drain before remaining
	// sessions are force-closed.
	DefaultShutdownTimeout = 30 * time.Second
)

// Config holds the chat listener settings.
type Config struct {
	// Name identifies this node in presence entries and in the shared
	// login-count hash. Peers route notifications by this name, so it
	// must be unique across the deployment. Defaults to the hostname.
	Name string `mapstructure:"name" yaml:"name"`

	// Host is the interface to bind.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the TCP port clients connect to.
	Port int `mapstructure:"port" yaml:"port"`

	// RPCPort is the port peers deliver notifications to.
	RPCPort int `mapstructure:"rpc_port" yaml:"rpc_port"`

	// MaxConnections limits concurrent client connections. When the
	// limit is reached the acceptor stops accepting until a connection
	// closes. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections"`

	// MaxPayload bounds both frame header fields: message id and
	// payload length. A frame violating the bound closes its session.
	MaxPayload bytesize.ByteSize `mapstructure:"max_payload" yaml:"max_payload"`

	// MaxSendQueue bounds each session's outbound queue. A full queue
	// drops frames instead of blocking the sender.
	MaxSendQueue int `mapstructure:"max_send_queue" yaml:"max_send_queue"`

	// MaxRecvQueue bounds the dispatch backlog shared by all sessions.
	MaxRecvQueue int `mapstructure:"max_recv_queue" yaml:"max_recv_queue"`

	// IdleTimeout closes sessions with no inbound traffic for this
	// long. 0 disables the idle check.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum time to wait for live sessions to
	// drain during graceful shutdown. Must be > 0.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ApplyDefaults fills in zero values with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		if host, err := os.Hostname(); err == nil {
			c.Name = host
		} else {
			c.Name = "quill"
		}
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.RPCPort <= 0 {
		c.RPCPort = DefaultRPCPort
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.MaxPayload == 0 {
		c.MaxPayload = bytesize.ByteSize(protocol.DefaultMaxPayload)
	}
	if c.MaxSendQueue == 0 {
		c.MaxSendQueue = session.DefaultSendQueueSize
	}
	if c.MaxRecvQueue == 0 {
		c.MaxRecvQueue = dispatch.DefaultMaxQueue
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("server name is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.RPCPort < 0 || c.RPCPort > 65535 {
		return fmt.Errorf("invalid rpc_port %d: must be 0-65535", c.RPCPort)
	}
	if c.Port != 0 && c.Port == c.RPCPort {
		return fmt.Errorf("port and rpc_port must differ, both are %d", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid max_connections %d: must be >= 0", c.MaxConnections)
	}
	if c.MaxPayload.Uint64() > 65535 {
		return fmt.Errorf("invalid max_payload %s: header fields are 16-bit", c.MaxPayload)
	}
	if c.MaxSendQueue < 0 {
		return fmt.Errorf("invalid max_send_queue %d: must be >= 0", c.MaxSendQueue)
	}
	if c.MaxRecvQueue < 0 {
		return fmt.Errorf("invalid max_recv_queue %d: must be >= 0", c.MaxRecvQueue)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("invalid idle_timeout %v: must be >= 0", c.IdleTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown_timeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}
