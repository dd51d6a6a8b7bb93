package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineFramerSingleLine(t *testing.T) {
	var f lineFramer
	lines := f.feed([]byte("PING :tungsten.example.org\r\n"))
	assert.Equal(t, []string{"PING :tungsten.example.org"}, lines)
}

func TestLineFramerSplitAcrossChunks(t *testing.T) {
	var f lineFramer
	assert.Empty(t, f.feed([]byte(":irc.example.org 001 bot :Welcome")))
	lines := f.feed([]byte(" to the network\r\n"))
	assert.Equal(t, []string{":irc.example.org 001 bot :Welcome to the network"}, lines)
}

func TestLineFramerMultipleLinesOneChunk(t *testing.T) {
	var f lineFramer
	lines := f.feed([]byte("CAP * LS :multi-prefix sasl\r\nPING :abc\r\n"))
	assert.Equal(t, []string{"CAP * LS :multi-prefix sasl", "PING :abc"}, lines)
}

func TestLineFramerDiscardsEmptyLines(t *testing.T) {
	var f lineFramer
	lines := f.feed([]byte("\r\nPING :abc\r\n\r\n"))
	assert.Equal(t, []string{"PING :abc"}, lines)
}

func TestLineFramerReplacesMalformedUTF8(t *testing.T) {
	var f lineFramer
	chunk := append([]byte("PRIVMSG #chan :broken "), 0xff, 0xfe)
	chunk = append(chunk, []byte("\r\n")...)
	lines := f.feed(chunk)
	if assert.Len(t, lines, 1) {
		assert.Contains(t, lines[0], "�")
	}
}

// TestLineFramerNormalizesToNFC builds its input from explicit code
// points rather than literal accented source bytes, so the test
// asserts what the framer does, not what the editor's encoding does.
func TestLineFramerNormalizesToNFC(t *testing.T) {
	var f lineFramer

	e := "e"                       // LATIN SMALL LETTER E
	acute := string(rune(0x0301))  // COMBINING ACUTE ACCENT (NFD)
	eAcute := string(rune(0x00e9)) // LATIN SMALL LETTER E WITH ACUTE (NFC)

	decomposed := "PRIVMSG #chan :caf" + e + acute + "\r\n"
	precomposed := "PRIVMSG #chan :caf" + eAcute

	lines := f.feed([]byte(decomposed))
	if assert.Len(t, lines, 1) {
		assert.Equal(t, precomposed, lines[0])
	}
}

func TestLineFramerRetainsTrailingPartial(t *testing.T) {
	var f lineFramer
	lines := f.feed([]byte("NOTICE * :hi\r\nNOTICE * :partial"))
	assert.Equal(t, []string{"NOTICE * :hi"}, lines)

	lines = f.feed([]byte(" line\r\n"))
	assert.Equal(t, []string{"NOTICE * :partial line"}, lines)
}
