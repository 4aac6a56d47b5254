package protocol

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
)

// Inbound is one user message as delivered by the Twilio webhook form post.
type Inbound struct {
	From string
	Body string
}

// ParseInbound extracts the sender and text from a webhook request. The
// returned Inbound may have empty fields; the caller decides how to degrade.
func ParseInbound(r *http.Request) (Inbound, error) {
	if err := r.ParseForm(); err != nil {
		return Inbound{}, fmt.Errorf("parse webhook form: %w", err)
	}
	return Inbound{
		From: strings.TrimSpace(r.PostFormValue("From")),
		Body: strings.TrimSpace(r.PostFormValue("Body")),
	}, nil
}

const twimlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// RenderTwiML wraps a reply in the response document Twilio expects. The
// message body is XML-escaped.
func RenderTwiML(message string) string {
	out, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		// Marshal of a plain string member cannot fail; keep the reply
		// deliverable anyway.
		return twimlHeader + "<Response><Message></Message></Response>"
	}
	return twimlHeader + string(out)
}

// WriteTwiML sends a TwiML reply. Twilio treats any non-200 as a delivery
// failure, so the status is always OK.
func WriteTwiML(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(RenderTwiML(message)))
}
