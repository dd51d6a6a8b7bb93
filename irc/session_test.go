package irc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Server:    "irc.example.org",
		Port:      6667,
		Nicknames: []string{"alice", "alice_"},
		Username:  "alice",
		Realname:  "Alice Bot",
		Timeout:   50 * time.Millisecond,
	}
}

func TestSessionHappyPathSettlesReady(t *testing.T) {
	ft := newFakeTransport()
	sess := New(testConfig(), ft)

	var readyFired bool
	sess.OnReady(func(o Outcome) { readyFired = true })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	handle, err := sess.Connect(ctx)
	require.NoError(t, err)

	ft.push(":irc.example.org 001 alice :Welcome to the network\r\n")

	outcome, err := handle.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", outcome.Nickname)
	assert.True(t, readyFired)
	assert.Eventually(t, func() bool { return sess.Status() == StatusRunning }, time.Second, time.Millisecond)
}

func TestSessionConnectTwiceIsProgrammerError(t *testing.T) {
	ft := newFakeTransport()
	sess := New(testConfig(), ft)

	ctx := context.Background()
	_, err := sess.Connect(ctx)
	require.NoError(t, err)

	_, err = sess.Connect(ctx)
	require.Error(t, err)
	var progErr *ProgrammerError
	assert.ErrorAs(t, err, &progErr)
}

func TestSessionAutoPong(t *testing.T) {
	ft := newFakeTransport()
	sess := New(testConfig(), ft)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := sess.Connect(ctx)
	require.NoError(t, err)

	ft.push("PING :irc.example.org\r\n")

	assert.Eventually(t, func() bool {
		for _, l := range ft.writtenLines() {
			if l == "PONG :irc.example.org" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
}

func TestSessionNicknameExhaustionSettlesFail(t *testing.T) {
	ft := newFakeTransport()
	cfg := testConfig()
	cfg.Nicknames = []string{"alice"}
	sess := New(cfg, ft)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	handle, err := sess.Connect(ctx)
	require.NoError(t, err)

	ft.push(":irc.example.org 433 * alice :Nickname is already in use.\r\n")

	_, err = handle.Wait(ctx)
	require.Error(t, err)
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, NicknamesUnavailable, connErr.Failure)
}

func TestSessionWriteRejectsEmbeddedNewline(t *testing.T) {
	ft := newFakeTransport()
	sess := New(testConfig(), ft)

	err := sess.Write("this has a \n newline")
	require.Error(t, err)
	var progErr *ProgrammerError
	assert.ErrorAs(t, err, &progErr)
}

func TestSessionWriteBeforeConnectNeverReachesTransport(t *testing.T) {
	ft := newFakeTransport()
	sess := New(testConfig(), ft)

	err := sess.Write("PRIVMSG #chan :too early")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, ft.writtenLines())
}

func TestSessionWatchdogSendsPingThenTimesOut(t *testing.T) {
	ft := newFakeTransport()
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	sess := New(cfg, ft)

	var timedOut, closed bool
	sess.OnTimeout(func() { timedOut = true })
	sess.OnClose(func() { closed = true })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := sess.Connect(ctx)
	require.NoError(t, err)

	ft.push(":irc.example.org 001 alice :Welcome\r\n")
	assert.Eventually(t, func() bool { return sess.Status() == StatusRunning }, time.Second, time.Millisecond)

	assert.Eventually(t, func() bool {
		for _, l := range ft.writtenLines() {
			if l == "PING :ignored" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	assert.Eventually(t, func() bool { return timedOut }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return closed }, time.Second, time.Millisecond)
}

func TestSessionEndBeforeReadySettlesSocketEnded(t *testing.T) {
	ft := newFakeTransport()
	sess := New(testConfig(), ft)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	handle, err := sess.Connect(ctx)
	require.NoError(t, err)

	sess.End()

	_, err = handle.Wait(ctx)
	require.Error(t, err)
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, SocketEnded, connErr.Failure)
}

func TestSessionEndIsIdempotent(t *testing.T) {
	ft := newFakeTransport()
	sess := New(testConfig(), ft)

	ctx := context.Background()
	_, err := sess.Connect(ctx)
	require.NoError(t, err)

	sess.End()
	sess.End() // must not panic or block
}

func TestSessionDataListenerReceivesWelcomeLine(t *testing.T) {
	ft := newFakeTransport()
	sess := New(testConfig(), ft)

	var lines []string
	sess.OnData(func(line string) { lines = append(lines, line) })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := sess.Connect(ctx)
	require.NoError(t, err)

	ft.push(":irc.example.org 001 alice :Welcome\r\n")

	assert.Eventually(t, func() bool { return len(lines) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, ":irc.example.org 001 alice :Welcome", lines[0])
}
