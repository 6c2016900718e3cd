package inbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func TestExtractContentPlain(t *testing.T) {
	raw := crlf(`From: TradingView <noreply@tradingview.com>
To: alerts@example.com
Subject: Alert: EURUSD long
Message-ID: <abc123@tradingview.com>
Content-Type: text/plain; charset=utf-8

SECRET=s
INSTRUMENT=EUR_USD
ACTION=LONG_ENTRY
QTY=50000
`)
	msg, err := ExtractContent(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Alert: EURUSD long", msg.Subject)
	assert.Equal(t, "abc123@tradingview.com", msg.MessageID)
	assert.Contains(t, msg.From, "noreply@tradingview.com")
	assert.Contains(t, msg.Content, "INSTRUMENT=EUR_USD")
	assert.Contains(t, msg.Content, "QTY=50000")
}

func TestExtractContentMultipartSkipsHTML(t *testing.T) {
	raw := crlf(`From: noreply@tradingview.com
Subject: Alert
Content-Type: multipart/alternative; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8

ACTION=EXIT_SHORT
--XYZ
Content-Type: text/html; charset=utf-8

<p>ACTION=LONG_ENTRY</p>
--XYZ--
`)
	msg, err := ExtractContent(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, msg.Content, "ACTION=EXIT_SHORT")
	assert.NotContains(t, msg.Content, "LONG_ENTRY")
}

func TestExtractContentFallsBackToSubject(t *testing.T) {
	raw := crlf(`From: noreply@tradingview.com
Subject: ACTION=EXIT_LONG
Content-Type: text/plain


`)
	msg, err := ExtractContent(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "ACTION=EXIT_LONG", msg.Content)
}

func TestExtractContentDecodesEncodedSubject(t *testing.T) {
	// "ACTION=EXIT_LONG" in a base64 encoded-word
	raw := crlf(`From: noreply@tradingview.com
Subject: =?UTF-8?B?QUNUSU9OPUVYSVRfTE9ORw==?=
Content-Type: text/plain

`)
	msg, err := ExtractContent(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "ACTION=EXIT_LONG", msg.Subject)
	assert.Equal(t, "ACTION=EXIT_LONG", msg.Content)
}

func TestExtractContentQuotedPrintableAndFullWidth(t *testing.T) {
	raw := crlf(`From: noreply@tradingview.com
Subject: Alert
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

INSTRUMENT=3DEUR_USD
QTY=EF=BC=9D100
`)
	msg, err := ExtractContent(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, msg.Content, "INSTRUMENT=EUR_USD")
	// 全角 '＝' 归一化为 '='
	assert.Contains(t, msg.Content, "QTY=100")
}

func TestSenderAllowed(t *testing.T) {
	tests := []struct {
		from, allowed string
		want          bool
	}{
		{"TradingView <noreply@tradingview.com>", "", true},
		{"TradingView <noreply@tradingview.com>", "noreply@tradingview.com", true},
		{"TradingView <NoReply@TradingView.com>", "noreply@tradingview.com", true},
		{"spoof <someone@example.com>", "noreply@tradingview.com", false},
		{"", "noreply@tradingview.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SenderAllowed(tt.from, tt.allowed), "%q / %q", tt.from, tt.allowed)
	}
}

func TestExtractContentKeepsValuesVerbatim(t *testing.T) {
	raw := crlf(`From: noreply@tradingview.com
Subject: Alert
Content-Type: text/plain; charset=utf-8

SECRET=pa²ss™
ＩＮＳＴＲＵＭＥＮＴ＝EUR_USD
ACTION=LONG_ENTRY
QTY=１０
`)
	msg, err := ExtractContent(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, msg.Content, "SECRET=pa²ss™")
	assert.Contains(t, msg.Content, "INSTRUMENT=EUR_USD")
	assert.Contains(t, msg.Content, "QTY=１０")
}

func TestNormalizeKeys(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii untouched", "SECRET=s\nQTY=1", "SECRET=s\nQTY=1"},
		{"full-width separator", "QTY＝100", "QTY=100"},
		{"full-width key", "ＡＣＴＩＯＮ=EXIT_LONG", "ACTION=EXIT_LONG"},
		{"value after first separator kept", "SECRET=a＝ｂ²", "SECRET=a＝ｂ²"},
		{"no separator", "ｈｅｌｌｏ", "ｈｅｌｌｏ"},
		{"crlf preserved", "SECRET=x™\r\nQTY=1\r\n", "SECRET=x™\r\nQTY=1\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeKeys(tt.in))
		})
	}
}
