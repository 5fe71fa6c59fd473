// Package codec encodes and decodes the sender-identity tag that the
// community backend's private messages smuggle inside a notification's
// free-text content field. A tagged record looks like:
//
//	[SENDER:42][SENDER_DATA:eyJpZCI6NDIsInBzZXVkbyI6ImJvYiJ9]Hello there
//
// Records predating the tag carry plain text only ("legacy" format).
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SenderProfile is the author identity embedded in a tagged record.
type SenderProfile struct {
	ID        int64  `json:"id"`
	Pseudo    string `json:"pseudo"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// Decoded is the result of decoding a record's raw content. It is an
// explicit variant: either a legacy record (Tagged is false, only Body
// is set) or a tagged one carrying the author identity.
type Decoded struct {
	Tagged   bool
	SenderID int64
	Sender   SenderProfile
	Body     string
}

// senderTagRe matches one sender tag occurrence. Older clients
// re-encoded already-tagged content on reply, so a record may carry the
// tag more than once; every occurrence is stripped but only the first
// payload is decoded.
var senderTagRe = regexp.MustCompile(`\[SENDER:(\d+)\]\[SENDER_DATA:([A-Za-z0-9+/=_-]*)\]`)

// entityDecoder reverses the fixed HTML-entity table the backend applies
// to stored content. A single-pass replacer keeps "&amp;lt;" from being
// decoded twice.
var entityDecoder = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#039;", "'",
	"&nbsp;", " ",
	"&euro;", "€",
	"&pound;", "£",
	"&yen;", "¥",
	"&cent;", "¢",
	"&copy;", "©",
	"&reg;", "®",
)

// entityEncoder escapes the characters the backend expects escaped in
// submitted content.
var entityEncoder = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Decode parses a record's raw content. Untagged content yields a legacy
// Decoded with the entity-decoded body. A tag with an unparsable payload
// yields an error; callers skip such records from aggregation.
func Decode(raw string) (Decoded, error) {
	match := senderTagRe.FindStringSubmatch(raw)
	if match == nil {
		return Decoded{Body: DecodeEntities(raw)}, nil
	}

	senderID, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return Decoded{}, fmt.Errorf("parsing sender id %q: %w", match[1], err)
	}

	payload, err := base64.StdEncoding.DecodeString(match[2])
	if err != nil {
		return Decoded{}, fmt.Errorf("decoding sender data of sender %d: %w", senderID, err)
	}

	var profile SenderProfile
	if err := json.Unmarshal(payload, &profile); err != nil {
		return Decoded{}, fmt.Errorf("parsing sender data of sender %d: %w", senderID, err)
	}

	body := senderTagRe.ReplaceAllString(raw, "")

	return Decoded{
		Tagged:   true,
		SenderID: senderID,
		Sender:   profile,
		Body:     DecodeEntities(body),
	}, nil
}

// Encode builds the tagged content payload for an outgoing message.
func Encode(senderID int64, profile SenderProfile, body string) (string, error) {
	data, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("marshaling sender profile: %w", err)
	}

	tag := fmt.Sprintf(
		"[SENDER:%d][SENDER_DATA:%s]",
		senderID,
		base64.StdEncoding.EncodeToString(data),
	)
	return tag + EncodeEntities(body), nil
}

// DecodeEntities reverses the backend's HTML entity escaping.
func DecodeEntities(s string) string {
	return entityDecoder.Replace(s)
}

// EncodeEntities applies the backend's HTML entity escaping.
func EncodeEntities(s string) string {
	return entityEncoder.Replace(s)
}
