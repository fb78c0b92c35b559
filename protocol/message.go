// Package protocol defines the messages exchanged between the host process
// and a view. Each direction is a closed set of variants; on the wire every
// message is a JSON object whose "command" field names the variant.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/takaishi/fifpanel/search"
)

// Command discriminates message variants on the wire
type Command string

const (
	CmdDisplayResults Command = "displayResults"
	CmdShowCode       Command = "showCode"
	CmdNoResults      Command = "noResults"
	CmdNewSearch      Command = "newSearch"
	CmdOpenFile       Command = "openFile"
	CmdClose          Command = "close"
	CmdLog            Command = "log"
)

// ErrUnknownCommand is returned when decoding a message with an unexpected command
var ErrUnknownCommand = errors.New("unknown command")

// HostMessage is sent from the host to a view.
// Implemented by DisplayResults, ShowCode and NoResults.
type HostMessage interface {
	HostCommand() Command
}

// ViewMessage is sent from a view to the host.
// Implemented by NewSearch, RequestCode, OpenFile, Close and Log.
type ViewMessage interface {
	ViewCommand() Command
}

// DisplayResults replaces the view's result list
type DisplayResults struct {
	Results    []search.SearchResult `json:"results"`
	SearchTerm string                `json:"searchTerm"`
}

// ShowCode carries a preview window for the selected match
type ShowCode struct {
	Code       string `json:"code"`
	Lang       string `json:"lang"`
	SearchTerm string `json:"searchTerm"`
	StartLine  int    `json:"startLine"`
	Line       int    `json:"line"`
}

// HitLine is the 1-based line within Code to emphasise
func (m ShowCode) HitLine() int {
	return m.Line - m.StartLine + 1
}

// NoResults tells the view the last query matched nothing
type NoResults struct{}

// Scope selects the directory a search runs in
type Scope string

const (
	// ScopeProject searches the workspace root (the git root when there is one)
	ScopeProject Scope = "project"
	// ScopeDirectory searches the directory the panel was opened from
	ScopeDirectory Scope = "directory"
)

// NewSearch asks the host to scan for a new term. Mask is an optional
// comma-separated list of include globs replacing the configured ones;
// an empty Scope means ScopeProject.
type NewSearch struct {
	SearchTerm string `json:"searchTerm"`
	Mask       string `json:"mask,omitempty"`
	Scope      Scope  `json:"scope,omitempty"`
}

// RequestCode asks the host for the preview of a match.
// It travels as the view-side "showCode" command.
type RequestCode struct {
	File       string `json:"file"`
	Line       int    `json:"line"`
	SearchTerm string `json:"searchTerm"`
}

// OpenFile asks the host to jump to a match in the editor
type OpenFile struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Close tears the view down
type Close struct{}

// Log forwards a diagnostic line from the view
type Log struct {
	Message string `json:"message"`
}

func (DisplayResults) HostCommand() Command { return CmdDisplayResults }
func (ShowCode) HostCommand() Command       { return CmdShowCode }
func (NoResults) HostCommand() Command      { return CmdNoResults }

func (NewSearch) ViewCommand() Command   { return CmdNewSearch }
func (RequestCode) ViewCommand() Command { return CmdShowCode }
func (OpenFile) ViewCommand() Command    { return CmdOpenFile }
func (Close) ViewCommand() Command       { return CmdClose }
func (Log) ViewCommand() Command         { return CmdLog }

type envelope struct {
	Command Command `json:"command"`
}

// EncodeHost serialises a host message with its command tag
func EncodeHost(m HostMessage) ([]byte, error) {
	return encode(m.HostCommand(), m)
}

// EncodeView serialises a view message with its command tag
func EncodeView(m ViewMessage) ([]byte, error) {
	return encode(m.ViewCommand(), m)
}

func encode(cmd Command, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd, err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd, err)
	}
	tag, _ := json.Marshal(cmd)
	fields["command"] = tag
	return json.Marshal(fields)
}

// DecodeView parses a message received from a view
func DecodeView(data []byte) (ViewMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	var m ViewMessage
	var err error
	switch env.Command {
	case CmdNewSearch:
		m, err = unmarshal[NewSearch](data)
	case CmdShowCode:
		m, err = unmarshal[RequestCode](data)
	case CmdOpenFile:
		m, err = unmarshal[OpenFile](data)
	case CmdClose:
		m = Close{}
	case CmdLog:
		m, err = unmarshal[Log](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Command)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeHost parses a message received from the host
func DecodeHost(data []byte) (HostMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	var m HostMessage
	var err error
	switch env.Command {
	case CmdDisplayResults:
		m, err = unmarshal[DisplayResults](data)
	case CmdShowCode:
		m, err = unmarshal[ShowCode](data)
	case CmdNoResults:
		m = NoResults{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Command)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func unmarshal[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode message: %w", err)
	}
	return v, nil
}
