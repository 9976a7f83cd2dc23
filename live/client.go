package live

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	pingResolution = 200 * time.Millisecond
	// Number of pings to tolerate losing before concluding the peer is gone.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// ErrPongDeadlineExceeded reports a client that stopped answering pings.
var ErrPongDeadlineExceeded = errors.New("live: client disconnect, pong deadline exceeded")

// client publishes patch batches unidirectionally to one web client over a
// websocket, with a ping/pong liveness check.
type client struct {
	updates <-chan []Patch
	conn    *websocket.Conn
	writeMu sync.Mutex
	rootCtx context.Context
}

func newClient(updates <-chan []Patch, w http.ResponseWriter, r *http.Request) (*client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)
	return &client{
		updates: updates,
		conn:    conn,
		rootCtx: r.Context(),
	}, nil
}

// sync pumps patches to the peer until it disconnects or the request
// context ends. It returns nil on orderly disconnect.
func (cli *client) sync() error {
	group, groupCtx := errgroup.WithContext(cli.rootCtx)
	group.Go(func() error { return cli.readMessages(groupCtx) })
	group.Go(func() error { return cli.pingPong(groupCtx) })
	group.Go(func() error { return cli.publish(groupCtx) })

	err := group.Wait()
	cli.close()
	if errors.Is(err, context.Canceled) || isOrderlyClose(err) {
		return nil
	}
	return err
}

func (cli *client) publish(ctx context.Context) error {
	for patches := range channerics.OrDone(ctx.Done(), cli.updates) {
		cli.writeMu.Lock()
		_ = cli.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := cli.conn.WriteJSON(patches)
		cli.writeMu.Unlock()
		if err != nil {
			return err
		}
	}
	return context.Canceled
}

// readMessages drains the peer so control frames (pong, close) are
// processed; inbound data is discarded. Errors from websocket reads are
// permanent, hence any error triggers full teardown.
func (cli *client) readMessages(ctx context.Context) error {
	for {
		if _, _, err := cli.conn.ReadMessage(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}
	}
}

func (cli *client) pingPong(ctx context.Context) error {
	pong := make(chan struct{}, 1)
	cli.conn.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			cli.writeMu.Lock()
			err := cli.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			cli.writeMu.Unlock()
			if err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *client) close() {
	cli.writeMu.Lock()
	_ = cli.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	cli.writeMu.Unlock()
	_ = cli.conn.Close()
}

func isOrderlyClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
