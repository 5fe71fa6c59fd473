package codec

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func tag(t *testing.T, senderID string, payload string) string {
	t.Helper()
	return "[SENDER:" + senderID + "][SENDER_DATA:" +
		base64.StdEncoding.EncodeToString([]byte(payload)) + "]"
}

func TestDecodeTagged(t *testing.T) {
	raw := tag(t, "42", `{"id":42,"pseudo":"bob","avatar":"bob.png"}`) + "Hello there"

	d, err := Decode(raw)
	require.NoError(t, err)
	require.True(t, d.Tagged)
	require.Equal(t, int64(42), d.SenderID)
	require.Equal(t, "bob", d.Sender.Pseudo)
	require.Equal(t, "bob.png", d.Sender.Avatar)
	require.Equal(t, "Hello there", d.Body)
}

func TestDecodeLegacy(t *testing.T) {
	d, err := Decode("plain old notification")
	require.NoError(t, err)
	require.False(t, d.Tagged)
	require.Equal(t, int64(0), d.SenderID)
	require.Equal(t, "plain old notification", d.Body)
}

func TestDecodeRepeatedTags(t *testing.T) {
	first := tag(t, "42", `{"id":42,"pseudo":"bob"}`)
	second := tag(t, "7", `{"id":7,"pseudo":"eve"}`)
	raw := first + "re: " + second + "original"

	d, err := Decode(raw)
	require.NoError(t, err)
	require.True(t, d.Tagged)
	require.Equal(t, int64(42), d.SenderID)
	require.Equal(t, "bob", d.Sender.Pseudo)
	// Every occurrence is stripped; only the first payload is decoded.
	require.Equal(t, "re: original", d.Body)
}

func TestDecodeMalformedPayload(t *testing.T) {
	// Valid base64, not JSON.
	raw := "[SENDER:42][SENDER_DATA:" +
		base64.StdEncoding.EncodeToString([]byte("not json")) + "]hi"
	_, err := Decode(raw)
	require.Error(t, err)

	// Not valid base64 (odd padding).
	_, err = Decode("[SENDER:42][SENDER_DATA:====x]hi")
	require.Error(t, err)
}

func TestDecodeEntityDecoding(t *testing.T) {
	raw := tag(t, "42", `{"id":42,"pseudo":"bob"}`) + "a &lt;b&gt; &amp; 5&euro;"

	d, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, `a <b> & 5€`, d.Body)
}

func TestDecodeSinglePassEntities(t *testing.T) {
	// "&amp;lt;" is a literal "&lt;" after one decode pass. It must not
	// collapse further into "<".
	require.Equal(t, "&lt;", DecodeEntities("&amp;lt;"))
}

func TestEncodeRoundTrip(t *testing.T) {
	profile := SenderProfile{ID: 9, Pseudo: "ana", Avatar: "ana.png"}
	raw, err := Encode(9, profile, `see <this> & "that"`)
	require.NoError(t, err)

	d, err := Decode(raw)
	require.NoError(t, err)
	require.True(t, d.Tagged)
	require.Equal(t, int64(9), d.SenderID)
	require.Equal(t, profile, d.Sender)
	require.Equal(t, `see <this> & "that"`, d.Body)
}

func TestEncodeEntities(t *testing.T) {
	require.Equal(t, "a &amp; b &lt;c&gt; &#039;d&#039; &quot;e&quot;",
		EncodeEntities(`a & b <c> 'd' "e"`))
}
