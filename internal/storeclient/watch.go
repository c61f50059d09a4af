package storeclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	ws "github.com/stemsi/student-records/internal/websocket"
)

// ErrNotSignedIn is returned by Watch when there is no session.
var ErrNotSignedIn = errors.New("not signed in")

// Watch follows the student change feed, calling fn for every event, until
// ctx ends or the connection drops. It returns nil when ctx ended.
func (c *Client) Watch(ctx context.Context, fn func(ws.ChangeEvent)) error {
	if c.Token() == "" {
		return ErrNotSignedIn
	}
	target, err := c.wsURL("/ws/v1/students/changes")
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return fmt.Errorf("dial change feed: %w", decodeError(resp))
		}
		return fmt.Errorf("dial change feed: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for {
		var evt ws.ChangeEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read change feed: %w", err)
		}
		switch evt.Event {
		case ws.EventStudentChanged:
			fn(evt)
		case ws.EventError:
			c.log.Warn().Msg("Change feed reported an error")
		}
	}
}
