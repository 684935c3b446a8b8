package engine

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/logger"
)

// WSController talks to an engine step endpoint over a websocket.
// Every Load writes the record as one JSON message and reads exactly one JSON reply;
// calls are serialized because a websocket connection supports one reader and one writer.
type WSController struct {
	baseDir string
	url     string
	timeout time.Duration
	logger  *zap.SugaredLogger

	mu   sync.Mutex
	conn *websocket.Conn
}

// Option configures a WSController.
type Option func(*WSController)

// WithTimeout bounds each Load round trip. Zero means no timeout beyond the context's.
func WithTimeout(d time.Duration) Option {
	return func(c *WSController) { c.timeout = d }
}

// WithLogger sets the controller's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *WSController) { c.logger = l }
}

// Dial connects to the engine at url. baseDir is the engine build directory the
// engine reads published assets from.
func Dial(ctx context.Context, url, baseDir string, opts ...Option) (*WSController, error) {
	c := &WSController{
		baseDir: baseDir,
		url:     url,
		logger:  logger.ComponentLogger("engine"),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrEngineUnavailable), "failed to connect to engine at %s", url)
	}
	c.conn = conn

	c.logger.Debugw("Connected to engine", logger.FieldURL, url)
	return c, nil
}

// BaseDir implements Controller.
func (c *WSController) BaseDir() string {
	return c.baseDir
}

// Load implements Controller.
func (c *WSController) Load(ctx context.Context, record asset.Record) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return Result{}, errors.Wrap(errors.ErrEngineUnavailable, "engine connection is closed")
	}

	deadline := c.deadline(ctx)
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)

	if err := c.conn.WriteJSON(record); err != nil {
		return Result{}, errors.Wrap(errors.Mark(err, errors.ErrEngineUnavailable), "failed to send load request to engine")
	}

	var reply map[string]any
	if err := c.conn.ReadJSON(&reply); err != nil {
		return Result{}, errors.Wrap(errors.Mark(err, errors.ErrEngineUnavailable), "failed to read engine reply")
	}

	return ResultFromReply(reply), nil
}

// deadline picks the earlier of the context deadline and the configured timeout.
// The zero time disables the deadline.
func (c *WSController) deadline(ctx context.Context) time.Time {
	var d time.Time
	if c.timeout > 0 {
		d = time.Now().Add(c.timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (d.IsZero() || ctxDeadline.Before(d)) {
		d = ctxDeadline
	}
	return d
}

// Close sends a close frame and releases the connection.
func (c *WSController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// ResultFromReply interprets an engine reply. The success flag and error message are
// read from a nested "metadata" object when present, otherwise from the top level.
func ResultFromReply(reply map[string]any) Result {
	fields := reply
	if nested, ok := reply["metadata"].(map[string]any); ok {
		fields = nested
	}

	res := Result{Metadata: reply}
	res.Success, _ = fields["lastActionSuccess"].(bool)
	res.ErrorMessage, _ = fields["errorMessage"].(string)
	return res
}
