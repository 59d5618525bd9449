package gateway

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/journal"
	"main/internal/runner"
)

func startGateway(t *testing.T) string {
	t.Helper()

	log, err := journal.NewFileLog(journal.FileConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	run := runner.New(log, runner.Config{})

	socketPath := filepath.Join(t.TempDir(), "accountd.sock")
	g, err := New(socketPath, run)
	require.NoError(t, err)

	go func() {
		_ = g.Serve(t.Context())
	}()
	t.Cleanup(func() {
		g.Close()
		run.Close()
		_ = log.Close()
	})
	return socketPath
}

func roundTrip(t *testing.T, conn net.Conn, req Request) Reply {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, WriteFrame(conn, body))

	raw, err := ReadFrame(conn)
	require.NoError(t, err)
	var reply Reply
	require.NoError(t, json.Unmarshal(raw, &reply))
	return reply
}

func TestGatewayCommandRoundTrip(t *testing.T) {
	socketPath := startGateway(t)

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	reply := roundTrip(t, conn, Request{
		Op: "create", Account: "acc-1", Owner: "alice", Currency: "USD", Amount: "100.0",
	})
	require.True(t, reply.OK)
	require.NotNil(t, reply.Account)
	assert.Equal(t, "acc-1", reply.Account.ID)

	reply = roundTrip(t, conn, Request{Op: "update", Account: "acc-1", Currency: "USD", Amount: "-30.0"})
	require.True(t, reply.OK)
	require.NotNil(t, reply.Account)
	assert.True(t, reply.Account.Balance.Equal(decimal.RequireFromString("70")))

	reply = roundTrip(t, conn, Request{Op: "update", Account: "acc-1", Currency: "USD", Amount: "-1000"})
	assert.False(t, reply.OK)
	assert.Equal(t, "insufficient funds", reply.Reason)

	reply = roundTrip(t, conn, Request{Op: "get", Account: "acc-1"})
	require.True(t, reply.OK)
	require.NotNil(t, reply.Account)
	assert.Equal(t, "alice", reply.Account.Owner)
	assert.True(t, reply.Account.Balance.Equal(decimal.RequireFromString("70")))
}

func TestGatewayCloseSeversIdleConnections(t *testing.T) {
	log, err := journal.NewFileLog(journal.FileConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	run := runner.New(log, runner.Config{})
	t.Cleanup(func() {
		run.Close()
		_ = log.Close()
	})

	socketPath := filepath.Join(t.TempDir(), "accountd.sock")
	g, err := New(socketPath, run)
	require.NoError(t, err)

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- g.Serve(context.Background())
	}()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	// One exchange proves the handler loop is running; afterwards the
	// connection sits idle, parked on the next frame read.
	reply := roundTrip(t, conn, Request{Op: "get", Account: "acc-1"})
	assert.False(t, reply.OK)

	g.Close()
	select {
	case err := <-serveDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after close")
	}
}

func TestGatewayRejectsBadRequests(t *testing.T) {
	socketPath := startGateway(t)

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	reply := roundTrip(t, conn, Request{Op: "get"})
	assert.False(t, reply.OK)
	assert.Equal(t, "missing account", reply.Reason)

	reply = roundTrip(t, conn, Request{Op: "burn", Account: "acc-1"})
	assert.False(t, reply.OK)

	reply = roundTrip(t, conn, Request{Op: "update", Account: "acc-1", Amount: "not-a-number"})
	assert.False(t, reply.OK)
	assert.Equal(t, "invalid amount", reply.Reason)

	reply = roundTrip(t, conn, Request{Op: "get", Account: "acc-unknown"})
	assert.False(t, reply.OK)
	assert.Equal(t, "not found", reply.Reason)
}
