package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"

	"library-backend/pkg/logger"
)

// Message types of the graphql-ws subscription protocol.
const (
	gqlConnectionInit      = "connection_init"
	gqlConnectionAck       = "connection_ack"
	gqlConnectionTerminate = "connection_terminate"
	gqlStart               = "start"
	gqlData                = "data"
	gqlComplete            = "complete"
	gqlStop                = "stop"
)

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscriptionHandler upgrades GET /subscriptions to a WebSocket speaking
// the graphql-ws protocol and streams subscription results over it.
type SubscriptionHandler struct {
	schema   graphql.Schema
	builder  *ContextBuilder
	upgrader websocket.Upgrader
}

// NewSubscriptionHandler creates the WebSocket subscription handler.
func NewSubscriptionHandler(schema graphql.Schema, builder *ContextBuilder) *SubscriptionHandler {
	return &SubscriptionHandler{
		schema:  schema,
		builder: builder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{"graphql-ws"},
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Serve is the gin handler for GET /subscriptions.
func (h *SubscriptionHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", err)
		return
	}

	w := &wsConnection{
		conn:          conn,
		schema:        h.schema,
		builder:       h.builder,
		authorization: c.GetHeader("Authorization"),
		streams:       make(map[string]context.CancelFunc),
	}
	w.run(c.Request.Context())
}

// wsConnection is one live subscription connection. The ExecutionContext is
// built once per connection and shared by every operation started on it.
type wsConnection struct {
	conn          *websocket.Conn
	schema        graphql.Schema
	builder       *ContextBuilder
	authorization string

	writeMu sync.Mutex

	mu      sync.Mutex
	streams map[string]context.CancelFunc
}

func (w *wsConnection) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer func() {
		cancel()
		w.stopAll()
		_ = w.conn.Close()
	}()

	var ec *ExecutionContext

	for {
		var msg wsMessage
		if err := w.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case gqlConnectionInit:
			// Clients may hand the credential in the init payload instead
			// of the upgrade request headers.
			auth := w.authorization
			var params struct {
				Authorization string `json:"Authorization"`
			}
			if len(msg.Payload) > 0 {
				if err := json.Unmarshal(msg.Payload, &params); err == nil && params.Authorization != "" {
					auth = params.Authorization
				}
			}
			ec = w.builder.Build(ctx, auth)
			w.write(wsMessage{Type: gqlConnectionAck})

		case gqlStart:
			if ec == nil {
				ec = w.builder.Build(ctx, w.authorization)
			}
			var req request
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				logger.Error("malformed subscription payload", err)
				continue
			}
			w.start(ctx, msg.ID, req, ec)

		case gqlStop:
			w.stop(msg.ID)

		case gqlConnectionTerminate:
			return
		}
	}
}

// start launches one subscription stream. Results flow until the client
// stops the operation or the connection goes away; either path cancels the
// stream context, which deregisters the bus listener.
func (w *wsConnection) start(ctx context.Context, id string, req request, ec *ExecutionContext) {
	streamCtx, cancel := context.WithCancel(WithExecutionContext(ctx, ec))

	w.mu.Lock()
	if prev, ok := w.streams[id]; ok {
		prev()
	}
	w.streams[id] = cancel
	w.mu.Unlock()

	results := graphql.Subscribe(graphql.Params{
		Schema:         w.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        streamCtx,
	})

	go func() {
		defer func() {
			w.mu.Lock()
			delete(w.streams, id)
			w.mu.Unlock()
			cancel()
		}()

		for result := range results {
			payload, err := json.Marshal(result)
			if err != nil {
				logger.Error("marshal subscription result", err)
				continue
			}
			w.write(wsMessage{ID: id, Type: gqlData, Payload: payload})
		}
		w.write(wsMessage{ID: id, Type: gqlComplete})
	}()
}

func (w *wsConnection) stop(id string) {
	w.mu.Lock()
	cancel, ok := w.streams[id]
	delete(w.streams, id)
	w.mu.Unlock()
	if ok {
		cancel()
	}
}

func (w *wsConnection) stopAll() {
	w.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(w.streams))
	for _, cancel := range w.streams {
		cancels = append(cancels, cancel)
	}
	w.streams = make(map[string]context.CancelFunc)
	w.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (w *wsConnection) write(msg wsMessage) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteJSON(msg); err != nil {
		logger.Error("websocket write failed", err)
	}
}
