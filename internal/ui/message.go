package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/removarr/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgAccountsLoaded MsgKind = iota
	MsgAccountChecked
	MsgAccountRemoved
	MsgLinkStarted
	MsgLinkPolled
	MsgLinkTick
)

type accountsLoaded struct {
	accounts []models.AccountView
	err      error
}

type accountChecked struct {
	label string
	ok    bool
	msg   string
	err   error
}

type linkStarted struct {
	flowID string
	url    string
	err    error
}

type linkPolled struct {
	status LinkStatus
	err    error
}

// accountsLoadedMsg is the constructor for [MsgAccountsLoaded]
func accountsLoadedMsg(accounts []models.AccountView, err error) Msg {
	return Msg{kind: MsgAccountsLoaded, data: accountsLoaded{accounts, err}}
}

// accountCheckedMsg is the constructor for [MsgAccountChecked]
func accountCheckedMsg(label string, ok bool, msg string, err error) Msg {
	return Msg{kind: MsgAccountChecked, data: accountChecked{label, ok, msg, err}}
}

// accountRemovedMsg is the constructor for [MsgAccountRemoved]
func accountRemovedMsg(err error) Msg {
	return Msg{kind: MsgAccountRemoved, data: err}
}

// linkStartedMsg is the constructor for [MsgLinkStarted]
func linkStartedMsg(flowID, url string, err error) Msg {
	return Msg{kind: MsgLinkStarted, data: linkStarted{flowID, url, err}}
}

// linkPolledMsg is the constructor for [MsgLinkPolled]
func linkPolledMsg(status LinkStatus, err error) Msg {
	return Msg{kind: MsgLinkPolled, data: linkPolled{status, err}}
}

// linkTickMsg is the constructor for [MsgLinkTick]
func linkTickMsg(flowID string) Msg {
	return Msg{kind: MsgLinkTick, data: flowID}
}
