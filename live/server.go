package live

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"golang.org/x/net/html"
)

// Server serves the live document over HTTP and its patch stream over a
// websocket endpoint. The document tree is shared with the binding side, so
// every mutation of it must run through DoSync; page rendering takes the
// same lock.
type Server struct {
	hub *Hub
	doc *html.Node
	e   *echo.Echo
	mu  sync.Mutex
}

// NewServer builds the HTTP layer around a parsed document and a hub.
func NewServer(doc *html.Node, hub *Hub, loglevel string) *Server {
	s := &Server{hub: hub, doc: doc, e: echo.New()}
	s.e.HideBanner = true

	switch strings.ToLower(loglevel) {
	case "debug":
		s.e.Logger.SetLevel(log.DEBUG)
	case "info":
		s.e.Logger.SetLevel(log.INFO)
	case "error":
		s.e.Logger.SetLevel(log.ERROR)
	case "off":
		s.e.Logger.SetLevel(log.OFF)
	default:
		s.e.Logger.SetLevel(log.WARN)
	}

	s.e.GET("/", s.servePage)
	s.e.GET("/ws", s.serveSocket)
	return s
}

// DoSync runs fn while holding the document lock. All observable mutations
// that can patch the DOM belong inside it.
func (s *Server) DoSync(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *Server) servePage(c echo.Context) error {
	var buf bytes.Buffer
	s.mu.Lock()
	err := html.Render(&buf, s.doc)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (s *Server) serveSocket(c echo.Context) error {
	updates, cancel := s.hub.Subscribe()
	defer cancel()

	cli, err := newClient(updates, c.Response(), c.Request())
	if err != nil {
		return err
	}
	if err := cli.sync(); err != nil {
		c.Logger().Warnf("websocket client ended: %v", err)
	}
	return nil
}

// Start blocks serving on addr until Shutdown.
func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
