package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_FitsUnderLimit(t *testing.T) {
	ev := Event{NotificationID: "n1", TicketID: "t1", Type: "Comment", Title: "short"}
	payload, err := encode(ev)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(payload), maxNotifyPayloadBytes)
	assert.Contains(t, string(payload), "n1")
	assert.NotContains(t, string(payload), `"truncated":true`)
}

func TestEncode_TruncatesOversizedTitle(t *testing.T) {
	ev := Event{NotificationID: "n2", TicketID: "t2", Type: "Comment", Title: strings.Repeat("x", 20000)}
	payload, err := encode(ev)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(payload), maxNotifyPayloadBytes)
	assert.Contains(t, string(payload), `"truncated":true`)
	assert.Contains(t, string(payload), "n2")
}

func TestChannelForUser_IsStableAndUserScoped(t *testing.T) {
	assert.Equal(t, channelForUser("u1"), channelForUser("u1"))
	assert.NotEqual(t, channelForUser("u1"), channelForUser("u2"))
}

func TestQuoteIdent_EscapesDoubleQuotes(t *testing.T) {
	assert.Equal(t, `"deskcore_notify_u""1"`, quoteIdent(`deskcore_notify_u"1`))
}
