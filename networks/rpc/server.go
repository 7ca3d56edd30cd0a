// Package rpc exposes the node's read-only JSON-RPC surface (§6): current
// L1Status, a protocol version constant, and a privileged stop method.
// Grounded on the teacher's networks/rpc fasthttp transport
// (networks/rpc/http_test.go uses fasthttp/fasthttpadaptor to bridge a
// net/http-shaped handler onto fasthttp's zero-allocation server).
package rpc

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"github.com/btcrollup/csmnode/writer"
	"github.com/btcrollup/csmnode/xlog"
)

var rpcLogger = xlog.NewModuleLogger(xlog.RPC)

// ProtocolVersion is the fixed protocol version constant this RPC surface
// reports.
const ProtocolVersion = "csm/1"

// StatusSource supplies the current L1Status; the writer pipeline
// implements it directly.
type StatusSource interface {
	Status() writer.L1Status
}

// Shutdowner triggers in-process shutdown; the node wires this to its own
// top-level stop function.
type Shutdowner interface {
	Shutdown()
}

type request struct {
	Method string          `json:"method"`
	ID     json.RawMessage `json:"id"`
	Params json.RawMessage `json:"params"`
}

type response struct {
	ID     json.RawMessage `json:"id"`
	Result interface{}     `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Server serves klay_l1Status, klay_protocolVersion, and the privileged
// admin_stop over a single fasthttp listener.
type Server struct {
	status   StatusSource
	shutdown Shutdowner
	allowAdmin bool
}

func NewServer(status StatusSource, shutdown Shutdowner, allowAdmin bool) *Server {
	return &Server{status: status, shutdown: shutdown, allowAdmin: allowAdmin}
}

// ListenAndServe blocks serving JSON-RPC requests at addr.
func (s *Server) ListenAndServe(addr string) error {
	return fasthttp.ListenAndServe(addr, s.handleRequest)
}

func (s *Server) handleRequest(ctx *fasthttp.RequestCtx) {
	var req request
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.writeError(ctx, nil, "Unsupported: malformed request")
		return
	}

	switch req.Method {
	case "klay_protocolVersion":
		s.writeResult(ctx, req.ID, ProtocolVersion)
	case "klay_l1Status":
		s.writeResult(ctx, req.ID, s.status.Status())
	case "admin_stop":
		if !s.allowAdmin {
			s.writeError(ctx, req.ID, "Unsupported: admin methods disabled")
			return
		}
		s.shutdown.Shutdown()
		s.writeResult(ctx, req.ID, true)
	default:
		s.writeError(ctx, req.ID, "Unimplemented: "+req.Method)
	}
}

func (s *Server) writeResult(ctx *fasthttp.RequestCtx, id json.RawMessage, result interface{}) {
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(response{ID: id, Result: result}); err != nil {
		rpcLogger.Error("failed to encode rpc response", "err", err)
	}
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, id json.RawMessage, msg string) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusBadRequest)
	if err := json.NewEncoder(ctx).Encode(response{ID: id, Error: msg}); err != nil {
		rpcLogger.Error("failed to encode rpc error response", "err", err)
	}
}
