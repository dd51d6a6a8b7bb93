package irc

import (
	"context"
	"testing"
	"time"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/require"
)

// TestSessionWriteSequenceSaslHandshake drives a full SASL PLAIN
// handshake through the Session facade (not the bare startupHandler)
// and diffs the observed outbound write sequence against what the
// wire should see, in order: writes must not reorder across CAP
// negotiation and the USER/NICK burst.
func TestSessionWriteSequenceSaslHandshake(t *testing.T) {
	ft := newFakeTransport()
	cfg := testConfig()
	cfg.Capabilities = &CapabilitiesConfig{Requires: []string{"sasl"}}
	cfg.SASL = &SASLConfig{Username: "alice", Password: "hunter2"}
	sess := New(cfg, ft)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	handle, err := sess.Connect(ctx)
	require.NoError(t, err)

	ft.push(":irc.example.org CAP * LS :sasl\r\n")
	ft.push(":irc.example.org CAP * ACK :sasl\r\n")
	ft.push("AUTHENTICATE +\r\n")
	ft.push(":irc.example.org 903 alice :SASL authentication successful\r\n")
	ft.push(":irc.example.org 001 alice :Welcome to the network\r\n")

	_, err = handle.Wait(ctx)
	require.NoError(t, err)

	want := []string{
		"CAP LS",
		"CAP REQ :sasl",
		"AUTHENTICATE PLAIN",
		"AUTHENTICATE YWxpY2UAYWxpY2UAaHVudGVyMg==",
		"CAP END",
		"USER alice 8 * :Alice Bot",
		"NICK alice",
	}

	var got []string
	require.Eventually(t, func() bool {
		got = ft.writtenLines()
		return len(got) == len(want)
	}, time.Second, time.Millisecond)

	if diff := pretty.Compare(want, got); diff != "" {
		t.Errorf("outbound write sequence mismatch (-want +got):\n%s", diff)
	}
}
