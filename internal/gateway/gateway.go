// Package gateway exposes the runner over a Unix domain socket so external
// processes can issue account commands. Frames are a 4-byte big-endian length
// followed by a JSON body. The gateway is runner-facing plumbing; it defines
// no semantics of its own.
package gateway

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"main/internal/account"
	"main/internal/runner"
	"main/pkg/exception"
)

const (
	frameHeaderSize = 4
	maxFrameSize    = 1 << 20

	opCreate = "create"
	opUpdate = "update"
	opGet    = "get"
)

// Request is one framed command envelope.
type Request struct {
	Op       string `json:"op"`
	Account  string `json:"account"`
	Owner    string `json:"owner,omitempty"`
	Currency string `json:"currency,omitempty"`
	// Amount is the initial balance for create and the signed delta for
	// update, as a decimal string.
	Amount string `json:"amount,omitempty"`
}

// Reply is the framed response envelope.
type Reply struct {
	OK      bool             `json:"ok"`
	Reason  string           `json:"reason,omitempty"`
	Account *account.Account `json:"account,omitempty"`
}

// Gateway accepts UDS connections and routes commands to the runner.
type Gateway struct {
	run *runner.Runner
	ln  *net.UnixListener

	mu      sync.Mutex
	conns   map[*net.UnixConn]struct{}
	closing bool

	wg     sync.WaitGroup
	closed sync.Once
}

// New listens on the socket path, replacing a stale socket file when present.
func New(socketPath string, run *runner.Runner) (*Gateway, error) {
	if socketPath == "" {
		return nil, exception.ErrGatewayEmptyPath
	}
	if run == nil {
		return nil, exception.ErrGatewayNilRunner
	}
	if err := removeIfSocket(socketPath); err != nil {
		return nil, err
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: socketPath, Net: "unix"})
	if err != nil {
		return nil, err
	}
	ln.SetUnlinkOnClose(true)
	return &Gateway{
		run:   run,
		ln:    ln,
		conns: make(map[*net.UnixConn]struct{}),
	}, nil
}

// Serve accepts connections until the context is done or the listener closes.
func (g *Gateway) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		g.Close()
	}()

	for {
		conn, err := g.ln.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				g.wg.Wait()
				return nil
			}
			return err
		}
		if !g.track(conn) {
			_ = conn.Close()
			continue
		}
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			defer g.untrack(conn)
			g.handleConn(ctx, conn)
		}()
	}
}

// Close stops the listener and severs open connections, so a connection
// parked on a read cannot hold Serve open.
func (g *Gateway) Close() {
	g.closed.Do(func() {
		_ = g.ln.Close()
		g.mu.Lock()
		g.closing = true
		for conn := range g.conns {
			_ = conn.Close()
		}
		g.mu.Unlock()
	})
}

func (g *Gateway) track(conn *net.UnixConn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closing {
		return false
	}
	g.conns[conn] = struct{}{}
	return true
}

func (g *Gateway) untrack(conn *net.UnixConn) {
	g.mu.Lock()
	delete(g.conns, conn)
	g.mu.Unlock()
}

func (g *Gateway) handleConn(ctx context.Context, conn *net.UnixConn) {
	defer conn.Close()

	for {
		body, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logs.Errorf("gateway read frame, err: %+v", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			if err := writeReply(conn, Reply{Reason: "malformed request"}); err != nil {
				return
			}
			continue
		}

		reply := g.dispatch(ctx, req)
		if err := writeReply(conn, reply); err != nil {
			logs.Errorf("gateway write frame, err: %+v", err)
			return
		}
	}
}

func (g *Gateway) dispatch(ctx context.Context, req Request) Reply {
	if req.Account == "" {
		return Reply{Reason: "missing account"}
	}

	var cmd account.Command
	switch req.Op {
	case opCreate:
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return Reply{Reason: "invalid amount"}
		}
		cmd = account.CreateAccount{Owner: req.Owner, Currency: req.Currency, InitialBalance: amount}
	case opUpdate:
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return Reply{Reason: "invalid amount"}
		}
		cmd = account.UpdateBalance{AccountID: req.Account, Currency: req.Currency, Delta: amount}
	case opGet:
		cmd = account.GetAccount{AccountID: req.Account}
	default:
		return Reply{Reason: exception.ErrGatewayUnknownOp.Error()}
	}

	resp, err := g.run.Submit(ctx, req.Account, cmd)
	if err != nil {
		return Reply{Reason: err.Error()}
	}

	switch r := resp.(type) {
	case account.AccountCreatedResponse:
		return Reply{OK: true, Account: &account.Account{ID: r.ID}}
	case account.BalanceUpdateResult:
		if r.Account == nil {
			return Reply{Reason: "insufficient funds"}
		}
		return Reply{OK: true, Account: r.Account}
	case account.AccountQueryResult:
		if r.Account == nil {
			return Reply{Reason: "not found"}
		}
		return Reply{OK: true, Account: r.Account}
	default:
		return Reply{Reason: "unexpected response"}
	}
}

func readFrame(conn net.Conn) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size == 0 || size > maxFrameSize {
		return nil, exception.ErrGatewayFrameTooLarge
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, err
	}
	return body, nil
}

func writeReply(conn net.Conn, reply Reply) error {
	body, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return WriteFrame(conn, body)
}

// WriteFrame writes one length-prefixed frame.
func WriteFrame(conn net.Conn, body []byte) error {
	if len(body) > maxFrameSize {
		return exception.ErrGatewayFrameTooLarge
	}
	frame := make([]byte, frameHeaderSize+len(body))
	binary.BigEndian.PutUint32(frame[:frameHeaderSize], uint32(len(body)))
	copy(frame[frameHeaderSize:], body)
	_, err := conn.Write(frame)
	return err
}

// ReadFrame reads one length-prefixed frame. It is exported for clients.
func ReadFrame(conn net.Conn) ([]byte, error) {
	return readFrame(conn)
}

func removeIfSocket(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return exception.ErrGatewayPathNotSocket
	}
	return os.Remove(path)
}
