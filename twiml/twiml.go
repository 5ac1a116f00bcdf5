// Package twiml builds the call-control documents returned to the telephony
// vendor. The vendor's markup dialect is confined to this package.
package twiml

import (
	"encoding/xml"
	"fmt"
)

const header = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// Say speaks a line to the call with a configured voice.
type Say struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

// Gather opens a speech-collection window and posts the recognized text back
// to the action URL. speechTimeout="auto" lets the vendor detect end of speech.
type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	Language      string   `xml:"language,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Say           *Say     `xml:"Say"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Response is the top-level call-control document. Field order is the order
// the vendor executes the verbs in.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Gather  *Gather  `xml:"Gather,omitempty"`
	Say     *Say     `xml:"Say,omitempty"`
	Hangup  *Hangup  `xml:"Hangup,omitempty"`
}

// SpeakAndListen speaks text and collects the counterparty's next utterance,
// posting it to actionURL.
func SpeakAndListen(text, voice, actionURL string) *Response {
	return &Response{
		Gather: &Gather{
			Input:         "speech",
			Action:        actionURL,
			Method:        "POST",
			Language:      "en-US",
			SpeechTimeout: "auto",
			Say:           &Say{Voice: voice, Text: text},
		},
	}
}

// SpeakAndHangup speaks text and ends the call.
func SpeakAndHangup(text, voice string) *Response {
	return &Response{
		Say:    &Say{Voice: voice, Text: text},
		Hangup: &Hangup{},
	}
}

// Render serializes the document with its XML declaration.
func (r *Response) Render() (string, error) {
	out, err := xml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal call-control document: %w", err)
	}
	return header + string(out), nil
}

// HasListenStep reports whether the document opens a speech-collection
// window. Every mid-call document must, or the call would silently end.
func (r *Response) HasListenStep() bool {
	return r.Gather != nil
}
