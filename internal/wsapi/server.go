package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/adityalohuni/htmlform/internal/form"
	"github.com/adityalohuni/htmlform/internal/formstore"
	"github.com/adityalohuni/htmlform/internal/httpx"
	"github.com/adityalohuni/htmlform/internal/protocol"
	"github.com/adityalohuni/htmlform/internal/service"
	"github.com/adityalohuni/htmlform/internal/session"
)

var ErrUnknownSession = errors.New("unknown websocket session")

// Server answers protocol commands sent over websocket connections. Each
// connection is served sequentially by its own read loop.
type Server struct {
	mu             sync.RWMutex
	conns          map[string]*conn
	service        *service.Service
	clients        *session.Registry
	upgrader       websocket.Upgrader
	writeWait      time.Duration
	commandTimeout time.Duration
	trace          bool
	logger         *log.Logger
}

type Options struct {
	CheckOrigin     func(*http.Request) bool
	ReadBufferSize  int
	WriteBufferSize int
	WriteWait       time.Duration
	CommandTimeout  time.Duration
	// Trace logs every command with its outcome code and duration.
	Trace  bool
	Logger *log.Logger
}

type conn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

func NewServer(svc *service.Service, clients *session.Registry, opts Options) *Server {
	up := websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     opts.CheckOrigin,
	}
	if up.ReadBufferSize == 0 {
		up.ReadBufferSize = 4096
	}
	if up.WriteBufferSize == 0 {
		up.WriteBufferSize = 4096
	}
	writeWait := opts.WriteWait
	if writeWait == 0 {
		writeWait = 5 * time.Second
	}
	timeout := opts.CommandTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if clients == nil {
		clients = session.NewRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		conns:          make(map[string]*conn),
		service:        svc,
		clients:        clients,
		upgrader:       up,
		writeWait:      writeWait,
		commandTimeout: timeout,
		trace:          opts.Trace,
		logger:         logger,
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("ws upgrade failed: %v", err)
		return
	}
	id := uuid.New().String()
	c := &conn{id: id, ws: ws}

	s.mu.Lock()
	s.conns[id] = c
	s.mu.Unlock()
	s.clients.Register(id, session.ClientInfo{
		Name:       r.Header.Get("X-Client-Name"),
		Transport:  "ws",
		RemoteAddr: httpx.ClientIP(r),
		UserAgent:  r.UserAgent(),
	})

	s.logger.Printf("ws connected: %s", id)
	s.readLoop(r.Context(), c)

	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
	s.clients.Unregister(id)

	ws.Close()
	s.logger.Printf("ws disconnected: %s", id)
}

func (s *Server) readLoop(ctx context.Context, c *conn) {
	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		s.clients.Touch(c.id, session.ClientInfo{})
		var cmd protocol.Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			s.tracef("ws %s invalid message: %v", c.id, err)
			s.write(c, protocol.Response{Error: "invalid command: " + err.Error(), ErrorCode: protocol.CodeBadCommand})
			continue
		}
		started := time.Now()
		cmdCtx, cancel := context.WithTimeout(ctx, s.commandTimeout)
		resp := s.execute(cmdCtx, c.id, cmd)
		cancel()
		s.tracef("ws %s %s id=%s code=%s took=%s", c.id, cmd.Type, cmd.ID, outcome(resp), time.Since(started).Round(time.Microsecond))
		if err := s.write(c, resp); err != nil {
			return
		}
	}
}

func (s *Server) write(c *conn, resp protocol.Response) error {
	msg, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(s.writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		s.tracef("ws %s write failed: %v", c.id, err)
		return err
	}
	return nil
}

func (s *Server) tracef(format string, args ...any) {
	if s.trace {
		s.logger.Printf(format, args...)
	}
}

func outcome(resp protocol.Response) string {
	if resp.ErrorCode != "" {
		return resp.ErrorCode
	}
	return "ok"
}

// execute runs one command against the service on behalf of client.
func (s *Server) execute(ctx context.Context, client string, cmd protocol.Command) protocol.Response {
	data, err := s.dispatch(ctx, client, cmd)
	if err != nil {
		return protocol.Failure(cmd.ID, err)
	}
	resp, err := protocol.Success(cmd.ID, data)
	if err != nil {
		return protocol.Failure(cmd.ID, err)
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, client string, cmd protocol.Command) (any, error) {
	switch cmd.Type {
	case protocol.CommandParse:
		var p protocol.ParsePayload
		if err := decode(cmd.Payload, &p); err != nil {
			return nil, err
		}
		entry, err := s.service.Parse(ctx, service.ParseRequest{Markup: p.Markup, Source: p.Source, Selector: p.Selector})
		if err != nil {
			return nil, err
		}
		s.clients.RecordForms(client, entry.ID)
		return entry, nil
	case protocol.CommandParseAll:
		var p protocol.ParsePayload
		if err := decode(cmd.Payload, &p); err != nil {
			return nil, err
		}
		entries, err := s.service.ParseAll(ctx, p.Markup, p.Source)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
		s.clients.RecordForms(client, ids...)
		return entries, nil
	case protocol.CommandGet:
		var p protocol.FormPayload
		if err := decode(cmd.Payload, &p); err != nil {
			return nil, err
		}
		return s.service.Get(p.FormID)
	case protocol.CommandList:
		entries := s.service.List()
		if entries == nil {
			entries = []formstore.Entry{}
		}
		return entries, nil
	case protocol.CommandSelect:
		var p protocol.SelectPayload
		if err := decode(cmd.Payload, &p); err != nil {
			return nil, err
		}
		return s.service.Select(ctx, service.SelectRequest{
			FormID:     p.FormID,
			Collection: p.Collection,
			Name:       p.Name,
			Value:      p.Value,
			Selected:   p.Selected,
		})
	case protocol.CommandSubmission:
		var p protocol.FormPayload
		if err := decode(cmd.Payload, &p); err != nil {
			return nil, err
		}
		return s.service.Submission(p.FormID)
	default:
		return nil, fmt.Errorf("unknown command %q: %w", cmd.Type, form.ErrInvalidArgument)
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload: %w", form.ErrInvalidArgument)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, form.ErrInvalidArgument)
	}
	return nil
}

func (s *Server) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Disconnect closes the connection with id. Its read loop then unregisters
// it.
func (s *Server) Disconnect(id string) error {
	s.mu.RLock()
	c := s.conns[id]
	s.mu.RUnlock()
	if c == nil {
		return ErrUnknownSession
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closed by server"),
		time.Now().Add(s.writeWait))
	return c.ws.Close()
}
