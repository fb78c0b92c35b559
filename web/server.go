// Package web serves the search panel as an HTML document in the browser.
// The document talks to the host over a websocket using the protocol
// package's messages; each connection gets its own panel session.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/takaishi/fifpanel/panel"
	"github.com/takaishi/fifpanel/protocol"
)

//go:embed static/index.html
var static embed.FS

var pageTemplate = template.Must(template.ParseFS(static, "static/index.html"))

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the page is only ever served by this process
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host
	},
}

// Server hosts the panel document and its websocket endpoint
type Server struct {
	opts       panel.Options
	query      string
	scope      protocol.Scope
	hasProject bool
	logger     *slog.Logger

	closed    chan struct{}
	closeOnce sync.Once
}

// NewServer creates a Server whose sessions start with query
func NewServer(opts panel.Options, query string) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts.Logger = logger
	scopes := panel.NewSession(opts)
	return &Server{
		opts:       opts,
		query:      query,
		scope:      scopes.Scope(),
		hasProject: scopes.HasProject(),
		logger:     logger,
		closed:     make(chan struct{}),
	}
}

// Handler returns the HTTP routes of the panel
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Closed is closed once a view asked to close the panel
func (s *Server) Closed() <-chan struct{} {
	return s.closed
}

type pageData struct {
	Title      string
	SearchTerm string
	Scope      string
	HasProject bool
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, pageData{
		Title:      panel.Title(s.query),
		SearchTerm: s.query,
		Scope:      string(s.scope),
		HasProject: s.hasProject,
	}); err != nil {
		s.logger.Error("render page", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		s.logger.Error("ws set read deadline", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan []byte, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case data := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	opts := s.opts
	opts.Poster = panel.PosterFunc(func(ctx context.Context, m protocol.HostMessage) error {
		data, err := protocol.EncodeHost(m)
		if err != nil {
			return err
		}
		select {
		case writeCh <- data:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	session := panel.NewSession(opts)

	if err := session.Start(ctx, s.query); err != nil {
		s.logger.Warn("initial search", "query", s.query, "error", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		msg, err := protocol.DecodeView(data)
		if err != nil {
			s.logger.Warn("bad view message", "error", err)
			continue
		}
		if err := session.Handle(ctx, msg); err != nil {
			s.logger.Error("handle view message", "command", msg.ViewCommand(), "error", err)
			break
		}
		if _, ok := msg.(protocol.Close); ok {
			s.closeOnce.Do(func() { close(s.closed) })
			break
		}
	}

	cancel()
	<-writerDone
}

// ListenAndServe serves the panel on addr until ctx is done or a view
// closes the panel. ready, when non-nil, receives the page URL once the
// listener is up.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(url string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	if ready != nil {
		ready("http://" + ln.Addr().String() + "/")
	}
	s.logger.Info("panel ready", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
	case <-s.closed:
		s.logger.Info("panel closed by view")
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
