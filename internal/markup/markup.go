package markup

import (
	"strings"

	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/jameswalter4566/aicrmworking/pkg/logger"
)

// ContentType is the header value the provider expects for voice markup.
const ContentType = "text/xml"

// Apology is the hand-built last-resort document. It is returned whenever the
// builder itself fails, so that the provider always receives a well-formed
// response and never retries the call leg.
const Apology = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>We are sorry, an application error has occurred. Goodbye.</Say><Hangup/></Response>`

// Empty returns a markup document with no spoken content. An empty-but-valid
// document is the "acknowledge and do nothing further" signal to the provider.
func Empty() string {
	return render(nil)
}

// Say returns a document that speaks a single message.
func Say(message string) string {
	return render([]twiml.Element{
		&twiml.VoiceSay{Message: message},
	})
}

// SayHangup speaks a message and then hangs up the leg.
func SayHangup(message string) string {
	return render([]twiml.Element{
		&twiml.VoiceSay{Message: message},
		&twiml.VoiceHangup{},
	})
}

// Dial returns a document that dials the destination with the given caller ID
// and ring timeout. A "client:" destination dials the browser client identity
// instead of a PSTN number. When actionURL is set the provider reports the
// dial result there.
func Dial(destination, callerID string, timeoutSeconds string, actionURL string) string {
	dial := &twiml.VoiceDial{
		CallerId: callerID,
		Timeout:  timeoutSeconds,
	}
	if actionURL != "" {
		dial.Action = actionURL
		dial.Method = "POST"
	}
	dial.InnerElements = []twiml.Element{destinationNoun(destination)}
	return render([]twiml.Element{dial})
}

// SayThenDial speaks a short message before dialing. Used for client-originated
// calls so the browser user hears something while the leg connects.
func SayThenDial(message, destination, callerID string, timeoutSeconds string, actionURL string) string {
	dial := &twiml.VoiceDial{
		CallerId: callerID,
		Timeout:  timeoutSeconds,
	}
	if actionURL != "" {
		dial.Action = actionURL
		dial.Method = "POST"
	}
	dial.InnerElements = []twiml.Element{destinationNoun(destination)}
	return render([]twiml.Element{
		&twiml.VoiceSay{Message: message},
		dial,
	})
}

// destinationNoun picks the dial noun for a destination. A "client:" address
// dials the browser client identity, anything else is a phone number.
func destinationNoun(destination string) twiml.Element {
	if identity, ok := strings.CutPrefix(destination, "client:"); ok {
		return &twiml.VoiceClient{Identity: identity}
	}
	return &twiml.VoiceNumber{PhoneNumber: destination}
}

// render builds the document and checks it carries the root wrapper element.
// A construction failure degrades to the apology document instead of
// propagating; an invalid response would make the provider abandon the call.
func render(verbs []twiml.Element) string {
	doc, err := twiml.Voice(verbs)
	if err != nil {
		logger.Base().Error("markup construction failed", zap.Error(err))
		return Apology
	}
	if !strings.Contains(doc, "<Response") {
		logger.Base().Error("markup missing root element", zap.String("doc", doc))
		return Apology
	}
	return doc
}
