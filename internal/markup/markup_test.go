package markup

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertWellFormed parses the document and checks the root wrapper element.
func assertWellFormed(t *testing.T, doc string) {
	t.Helper()
	decoder := xml.NewDecoder(strings.NewReader(doc))
	var root string
	for {
		tok, err := decoder.Token()
		if tok == nil {
			break
		}
		require.NoError(t, err)
		if start, ok := tok.(xml.StartElement); ok && root == "" {
			root = start.Name.Local
		}
	}
	assert.Equal(t, "Response", root)
}

func TestEmpty(t *testing.T) {
	doc := Empty()
	assertWellFormed(t, doc)
	assert.NotContains(t, doc, "<Say")
	assert.NotContains(t, doc, "<Dial")
}

func TestSay(t *testing.T) {
	doc := Say("The call has been completed. Goodbye.")
	assertWellFormed(t, doc)
	assert.Contains(t, doc, "<Say")
	assert.Contains(t, doc, "The call has been completed. Goodbye.")
	assert.NotContains(t, doc, "<Hangup")
}

func TestSayHangup(t *testing.T) {
	doc := SayHangup("The line is busy. Please try again later.")
	assertWellFormed(t, doc)
	assert.Contains(t, doc, "The line is busy. Please try again later.")
	assert.Contains(t, doc, "<Hangup")
}

func TestDialNumber(t *testing.T) {
	doc := Dial("+15551234567", "+15550001111", "20", "https://calls.example.org/api/twilio?action=dialStatus&leadId=lead-1")
	assertWellFormed(t, doc)
	assert.Contains(t, doc, "<Dial")
	assert.Contains(t, doc, "<Number")
	assert.Contains(t, doc, "+15551234567")
	assert.Contains(t, doc, `callerId="+15550001111"`)
	assert.Contains(t, doc, `timeout="20"`)
	assert.Contains(t, doc, "action=dialStatus")
	assert.Contains(t, doc, `method="POST"`)
}

func TestDialWithoutActionOmitsCallbackAttributes(t *testing.T) {
	doc := Dial("+15551234567", "+15550001111", "20", "")
	assertWellFormed(t, doc)
	assert.NotContains(t, doc, "action=")
	assert.NotContains(t, doc, `method=`)
}

func TestDialClientDestination(t *testing.T) {
	doc := Dial("client:agent-1", "+15550001111", "20", "")
	assertWellFormed(t, doc)
	assert.Contains(t, doc, "<Client")
	assert.Contains(t, doc, "agent-1")
	assert.NotContains(t, doc, "<Number")
}

func TestSayThenDialOrdersVerbs(t *testing.T) {
	doc := SayThenDial("Please wait while we connect your call.", "+15551234567", "+15550001111", "20", "")
	assertWellFormed(t, doc)
	sayAt := strings.Index(doc, "<Say")
	dialAt := strings.Index(doc, "<Dial")
	require.GreaterOrEqual(t, sayAt, 0)
	require.GreaterOrEqual(t, dialAt, 0)
	assert.Less(t, sayAt, dialAt, "the wait message must be spoken before dialing")
}

func TestApologyIsWellFormed(t *testing.T) {
	assertWellFormed(t, Apology)
	assert.Contains(t, Apology, "<Say>")
	assert.Contains(t, Apology, "<Hangup/>")
}
