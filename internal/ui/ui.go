package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/removarr/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	AccountListView ViewState = iota
	ConfirmView
	LinkView
	ResultView
)

// LinkStatus is one poll of a login flow. State is one of pending, ok, expired or error.
type LinkStatus struct {
	State   string
	Label   string
	Message string
}

// Backend performs the account operations behind the TUI.
type Backend interface {
	ListAccounts(ctx context.Context) ([]models.AccountView, error)
	CheckAccount(ctx context.Context, id string) (ok bool, msg string, err error)
	RemoveAccount(ctx context.Context, id string) error
	StartLink(ctx context.Context) (flowID, url string, err error)
	PollLink(ctx context.Context, flowID string) (LinkStatus, error)
}

// DefaultPollInterval is the wait between login flow polls.
const DefaultPollInterval = 2 * time.Second

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	backend      Backend
	openURL      func(string) error
	pollInterval time.Duration
	width        int
	height       int
	accountList  list.Model
	accounts     []models.AccountView
	selected     *models.AccountView
	flowID       string
	linkURL      string
	linkStatus   LinkStatus
	result       string
	resultOK     bool
	err          error
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. openURL, when set, is called with the login URL.
func NewModel(ctx context.Context, backend Backend, openURL func(string) error) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(plexAmber))

	return &Model{
		ctx:          ctx,
		view:         AccountListView,
		backend:      backend,
		openURL:      openURL,
		pollInterval: DefaultPollInterval,
		accountList:  list.New(nil, list.NewDefaultDelegate(), 0, 0),
		spinner:      sp,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by loading linked accounts.
func (m *Model) Init() tea.Cmd {
	return m.loadAccounts()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.accountList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case AccountListView:
			return m.handleListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case LinkView:
			return m.handleLinkKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	if m.view == AccountListView {
		m.accountList, cmd = m.accountList.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgAccountsLoaded:
		data := msg.data.(accountsLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.accounts = data.accounts
		items := make([]list.Item, len(data.accounts))
		for i, a := range data.accounts {
			items[i] = accountItem{account: a}
		}
		m.accountList.SetItems(items)
		m.accountList.Title = fmt.Sprintf("Linked Plex accounts (%d)", len(data.accounts))
		return m, nil

	case MsgAccountChecked:
		data := msg.data.(accountChecked)
		m.view = ResultView
		switch {
		case data.err != nil:
			m.resultOK, m.result = false, fmt.Sprintf("Check failed for %s: %v", data.label, data.err)
		case data.ok:
			m.resultOK, m.result = true, fmt.Sprintf("%s is valid (%s)", data.label, data.msg)
		default:
			m.resultOK, m.result = false, fmt.Sprintf("%s is invalid: %s", data.label, data.msg)
		}
		return m, m.loadAccounts()

	case MsgAccountRemoved:
		m.selected = nil
		if err, _ := msg.data.(error); err != nil {
			m.view = ResultView
			m.resultOK, m.result = false, fmt.Sprintf("Remove failed: %v", err)
			return m, nil
		}
		m.view = AccountListView
		return m, m.loadAccounts()

	case MsgLinkStarted:
		data := msg.data.(linkStarted)
		if data.err != nil {
			m.view = ResultView
			m.resultOK, m.result = false, fmt.Sprintf("Could not start Plex login: %v", data.err)
			return m, nil
		}
		m.flowID = data.flowID
		m.linkURL = data.url
		m.linkStatus = LinkStatus{State: "pending"}
		if m.openURL != nil {
			_ = m.openURL(data.url)
		}
		return m, tea.Batch(m.spinner.Tick, m.scheduleLinkPoll())

	case MsgLinkTick:
		if m.view != LinkView || msg.data.(string) != m.flowID {
			return m, nil
		}
		return m, m.pollLink()

	case MsgLinkPolled:
		if m.view != LinkView {
			return m, nil
		}
		data := msg.data.(linkPolled)
		if data.err != nil {
			m.linkStatus = LinkStatus{State: "error", Message: data.err.Error()}
			return m, m.scheduleLinkPoll()
		}
		m.linkStatus = data.status
		switch data.status.State {
		case "pending", "error":
			return m, m.scheduleLinkPoll()
		case "ok":
			m.view = ResultView
			m.resultOK, m.result = true, fmt.Sprintf("✓ Linked %s", data.status.Label)
			return m, m.loadAccounts()
		default:
			m.view = ResultView
			msgText := data.status.Message
			if msgText == "" {
				msgText = "Login expired."
			}
			m.resultOK, m.result = false, msgText
			return m, nil
		}
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view == AccountListView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}

	switch m.view {
	case AccountListView:
		return m.renderAccountList()
	case ConfirmView:
		return m.renderConfirm()
	case LinkView:
		return m.renderLink()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.accountList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.accountList, cmd = m.accountList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadAccounts()
	case key.Matches(msg, m.keys.link):
		m.view = LinkView
		m.flowID, m.linkURL = "", ""
		m.linkStatus = LinkStatus{}
		return m, tea.Batch(m.spinner.Tick, m.startLink())
	case key.Matches(msg, m.keys.check):
		if acc := m.selectedAccount(); acc != nil {
			return m, m.checkAccount(*acc)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if acc := m.selectedAccount(); acc != nil {
			m.selected = acc
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.accountList, cmd = m.accountList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		if m.selected == nil {
			m.view = AccountListView
			return m, nil
		}
		return m, m.removeAccount(m.selected.ID)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.selected = nil
		m.view = AccountListView
	}
	return m, nil
}

func (m *Model) handleLinkKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		// The flow is abandoned and expires on its own.
		m.flowID = ""
		m.view = AccountListView
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), msg.String() == "enter":
		m.view = AccountListView
		m.result = ""
	}
	return m, nil
}

func (m *Model) selectedAccount() *models.AccountView {
	item, ok := m.accountList.SelectedItem().(accountItem)
	if !ok {
		return nil
	}
	acc := item.account
	return &acc
}

func (m *Model) loadAccounts() tea.Cmd {
	return func() tea.Msg {
		accounts, err := m.backend.ListAccounts(m.ctx)
		return accountsLoadedMsg(accounts, err)
	}
}

func (m *Model) checkAccount(acc models.AccountView) tea.Cmd {
	return func() tea.Msg {
		ok, msg, err := m.backend.CheckAccount(m.ctx, acc.ID)
		return accountCheckedMsg(acc.Label, ok, msg, err)
	}
}

func (m *Model) removeAccount(id string) tea.Cmd {
	return func() tea.Msg {
		return accountRemovedMsg(m.backend.RemoveAccount(m.ctx, id))
	}
}

func (m *Model) startLink() tea.Cmd {
	return func() tea.Msg {
		flowID, url, err := m.backend.StartLink(m.ctx)
		return linkStartedMsg(flowID, url, err)
	}
}

func (m *Model) scheduleLinkPoll() tea.Cmd {
	flowID := m.flowID
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return linkTickMsg(flowID)
	})
}

func (m *Model) pollLink() tea.Cmd {
	flowID := m.flowID
	return func() tea.Msg {
		status, err := m.backend.PollLink(m.ctx, flowID)
		return linkPolledMsg(status, err)
	}
}

func (m *Model) renderAccountList() string {
	helpKeys := []key.Binding{m.keys.link, m.keys.check, m.keys.remove, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	if len(m.accounts) == 0 {
		empty := styles.help.Render("No linked accounts yet. Press a to link one.")
		return fmt.Sprintf("%s\n\n%s\n\n%s", styles.title.Render("Removarr"), empty, helpView)
	}
	return fmt.Sprintf("%s\n\n%s", m.accountList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Remove '%s'?", m.selected.Label))
	info := fmt.Sprintf("\nStatus: %s\nMethod: %s\n", m.selected.Status, m.selected.AuthMethod)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderLink() string {
	title := styles.title.Render("Link a Plex account")

	var body string
	switch {
	case m.linkURL == "":
		body = fmt.Sprintf("%s Requesting a login code from Plex...", m.spinner.View())
	default:
		body = fmt.Sprintf("Open this URL and approve the request:\n\n  %s\n\n%s Waiting for approval...", m.linkURL, m.spinner.View())
		if m.linkStatus.State == "error" && m.linkStatus.Message != "" {
			body += "\n" + styles.warn.Render(m.linkStatus.Message)
		}
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderResult() string {
	var out string
	if m.resultOK {
		out = styles.ok.Render(m.result)
	} else {
		out = styles.err.Render(m.result)
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n\n%s", out, helpView)
}
