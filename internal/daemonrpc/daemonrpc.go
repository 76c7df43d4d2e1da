// Package daemonrpc is the thin control channel between one-shot CLI
// invocations of gt and the long-running daemon process that actually
// hosts the workflow engine. The engine itself is purely in-process
// (see internal/workflow's package comment), so any command that needs
// to signal a running workflow from a separate process has to reach it
// over this socket rather than touching the engine directly.
package daemonrpc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/gastown/gtr/internal/gtdirs"
	"github.com/gastown/gtr/internal/workflow"
)

// SocketPath returns the daemon's well-known unix socket path.
func SocketPath() string {
	return filepath.Join(gtdirs.RuntimeDir(), "daemon.sock")
}

// Request asks the daemon to deliver a signal to a running workflow.
type Request struct {
	WorkflowID string      `json:"workflow_id"`
	Signal     string      `json:"signal"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Response carries the daemon's reply to one Request.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Server listens on SocketPath and forwards every accepted Request to
// engine.Signal, so any CLI process can drive workflows hosted by the
// daemon it's running alongside.
type Server struct {
	engine   *workflow.Engine
	listener net.Listener
}

// Listen binds the daemon socket. Any stale socket file left behind by a
// crashed daemon is removed first.
func Listen(engine *workflow.Engine) (*Server, error) {
	path := SocketPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating runtime dir: %w", err)
	}
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	return &Server{engine: engine, listener: ln}, nil
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(SocketPath())
	return err
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		_ = json.NewEncoder(conn).Encode(Response{Error: fmt.Sprintf("decoding request: %v", err)})
		return
	}

	resp := Response{OK: true}
	if err := s.engine.Signal(req.WorkflowID, req.Signal, req.Payload); err != nil {
		resp = Response{Error: err.Error()}
	}
	_ = json.NewEncoder(conn).Encode(resp)
}

// Send dials the running daemon and delivers one signal, the client
// side of Server.handle. Returns an error naming the daemon as
// unreachable if nothing is listening on SocketPath.
func Send(req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", SocketPath(), 2*time.Second)
	if err != nil {
		return Response{}, fmt.Errorf("daemon not reachable: %w", err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("sending request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.Error != "" {
		return resp, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}
