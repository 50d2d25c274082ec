// Package bus carries events between the assistant core and its host.
package bus

import (
	"bytes"
	"encoding/json"

	"github.com/lgc202/assistant/llm"
	"github.com/lgc202/assistant/session"
)

// Commands sent by the host.
const (
	CmdAskQuestion   = "askQuestion"
	CmdGetConfig     = "getConfig"
	CmdUpdateConfig  = "updateConfig"
	CmdGetModelList  = "getModelList"
	CmdLoadSessions  = "loadSessions"
	CmdSaveSessions  = "saveSessions"
	CmdCreateSession = "createSession"
	CmdSelectSession = "selectSession"
	CmdDeleteSession = "deleteSession"
	CmdCopyCode      = "copyCode"
)

// Commands sent by the core.
const (
	CmdAnswerReceived    = "answerReceived"
	CmdError             = "error"
	CmdConfigReceived    = "configReceived"
	CmdModelListReceived = "modelListReceived"
	CmdSessionsLoaded    = "sessionsLoaded"
	CmdSessionsLoadError = "sessionsLoadError"
	CmdSessionUpdated    = "sessionUpdated"
	CmdAnimationDone     = "animationDone"
	CmdClipboard         = "clipboard"
)

// Event is one JSON object on the wire. Only the fields relevant to Command
// are set.
type Event struct {
	Command string `json:"command"`

	Text    string `json:"text,omitempty"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	ModelID string `json:"modelUsed,omitempty"`

	Context  []session.Message     `json:"context,omitempty"`
	Config   json.RawMessage       `json:"config,omitempty"`
	Models   []llm.ModelDescriptor `json:"models,omitempty"`
	Sessions []session.Session     `json:"sessions,omitempty"`
	Session  *session.Session      `json:"session,omitempty"`
	ActiveID string                `json:"activeSessionId,omitempty"`
}

// Bus is the host channel.
type Bus interface {
	Send(e Event) error
	OnReceive(h func(Event))
}

// MarshalJSON always writes the session list of a sessionsLoaded event, even
// when it is empty.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	if e.Command != CmdSessionsLoaded {
		return marshal(plain(e))
	}
	sessions := e.Sessions
	if sessions == nil {
		sessions = []session.Session{}
	}
	return marshal(struct {
		plain
		Sessions []session.Session `json:"sessions"`
	}{plain(e), sessions})
}

// marshal encodes v without HTML escaping; answers and code blocks carry
// <, > and & verbatim.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
