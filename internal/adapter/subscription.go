package adapter

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/deeprecall/replica/internal/logger"
	"github.com/deeprecall/replica/models"
)

// snapshotFrame is the wire shape of one subscription delivery. The server
// pushes the complete current row set on every frame.
type snapshotFrame struct {
	Rows  []models.Record `json:"rows"`
	Fresh bool            `json:"fresh"`
}

type wsSubscription struct {
	conn      *websocket.Conn
	snapshots chan models.Snapshot
	cancel    context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// dialSubscription opens the websocket feed for one entity type and starts
// the read pump. The snapshots channel is closed when the feed ends.
func dialSubscription(ctx context.Context, wsURL string, et models.EntityType) (Subscription, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse subscription url: %w", err)
	}
	q := u.Query()
	q.Set("entity_type", et.Name)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial subscription for %s: %w", et.Name, err)
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	sub := &wsSubscription{
		conn:      conn,
		snapshots: make(chan models.Snapshot),
		cancel:    cancel,
	}

	go sub.readPump(pumpCtx, et)

	return sub, nil
}

// readPump decodes snapshot frames until the connection or context ends.
func (s *wsSubscription) readPump(ctx context.Context, et models.EntityType) {
	log := logger.FromContext(ctx)
	defer close(s.snapshots)

	for {
		var frame snapshotFrame
		if err := wsjson.Read(ctx, s.conn, &frame); err != nil {
			if ctx.Err() == nil {
				log.Warn().
					Err(err).
					Str("func", "wsSubscription.readPump").
					Str("entity_type", et.Name).
					Msg("subscription read failed, feed closed")
			}
			return
		}

		select {
		case s.snapshots <- models.Snapshot{Rows: frame.Rows, Fresh: frame.Fresh}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *wsSubscription) Snapshots() <-chan models.Snapshot {
	return s.snapshots
}

func (s *wsSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.conn.Close(websocket.StatusNormalClosure, "subscription closed")
	})
	return s.closeErr
}
