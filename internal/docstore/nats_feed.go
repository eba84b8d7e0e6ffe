package docstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type changeMessage struct {
	Origin string `json:"origin"`
	Path   string `json:"path"`
}

// NATSFeed relays change paths between server instances. Local publishes
// are delivered in-process immediately and echoed to NATS; messages that
// originate from this instance are ignored on the way back.
type NATSFeed struct {
	conn    *nats.Conn
	subject string
	origin  string
	local   *MemoryFeed
	sub     *nats.Subscription
}

// ConnectNATS dials the server with reconnects enabled.
func ConnectNATS(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("stylehub-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
}

func NewNATSFeed(conn *nats.Conn, subject string) (*NATSFeed, error) {
	f := &NATSFeed{
		conn:    conn,
		subject: subject,
		origin:  uuid.NewString(),
		local:   NewMemoryFeed(),
	}
	sub, err := conn.Subscribe(subject, f.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	f.sub = sub
	return f, nil
}

func (f *NATSFeed) handle(msg *nats.Msg) {
	var change changeMessage
	if err := json.Unmarshal(msg.Data, &change); err != nil {
		slog.Warn("dropping malformed change message", "subject", msg.Subject, "error", err)
		return
	}
	if change.Origin == f.origin || change.Path == "" {
		return
	}
	f.local.Publish(change.Path)
}

func (f *NATSFeed) Publish(path string) {
	f.local.Publish(path)

	data, err := json.Marshal(changeMessage{Origin: f.origin, Path: path})
	if err != nil {
		return
	}
	if err := f.conn.Publish(f.subject, data); err != nil {
		slog.Warn("failed to publish change", "path", path, "error", err)
	}
}

func (f *NATSFeed) Listen(fn func(path string)) func() {
	return f.local.Listen(fn)
}

func (f *NATSFeed) Close() error {
	if f.sub != nil {
		if err := f.sub.Unsubscribe(); err != nil {
			return err
		}
	}
	return f.local.Close()
}
