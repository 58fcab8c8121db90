package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/removarr/internal/models"
)

var (
	_ list.Item = accountItem{}
)

// accountItem wraps [models.AccountView] to implement [list.Item].
type accountItem struct {
	account models.AccountView
}

func (i accountItem) FilterValue() string { return i.account.Label }
func (i accountItem) Title() string {
	return fmt.Sprintf("%s  %s", i.account.Label, styles.status(i.account.Status))
}
func (i accountItem) Description() string {
	desc := string(i.account.AuthMethod)
	if i.account.LastCheckAt != nil {
		desc = fmt.Sprintf("%s • checked %s", desc, humanize.Time(*i.account.LastCheckAt))
	}
	if i.account.LastError != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.account.LastError)
	}
	return desc
}
