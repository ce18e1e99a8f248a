package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// EventRevision announces that the watched workbook has a new revision.
const EventRevision = "revision"

// Event is one message on a watch stream.
type Event struct {
	Type       string `json:"type"`
	RevisionID string `json:"revision_id,omitempty"`
}

// Watch subscribes to a websocket event stream and calls fn for every
// event until ctx is cancelled or the server closes the stream. A normal
// close or cancellation returns nil.
func (c *Client) Watch(ctx context.Context, wsURL string, fn func(Event)) error {
	header := http.Header{}
	if c.Token != "" {
		header.Set("Authorization", "Bearer "+c.Token)
	}
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPClient: c.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connecting to %s: %w", wsURL, err)
	}
	defer conn.CloseNow()

	for {
		var ev Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("reading watch event: %w", err)
		}
		if ev.Type == "" {
			continue
		}
		fn(ev)
	}
}
