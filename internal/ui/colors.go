package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/removarr/internal/models"
)

const (
	plexAmber = "#E5A00D"
	okGreen   = "#04B575"
	errRed    = "#FF5F56"
	warnAmber = "#FFA500"
	dimGray   = "#626262"
)

var styles = NewPalette()

// Palette holds the styles used by the account manager views.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette() *Palette {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return &Palette{
		title: fg(plexAmber).Bold(true).MarginBottom(1),
		ok:    fg(okGreen).Bold(true),
		err:   fg(errRed).Bold(true),
		warn:  fg(warnAmber),
		help:  fg(dimGray).Italic(true),
	}
}

// status renders an account status: ok is green, invalid is red, anything else amber.
func (p *Palette) status(s models.AccountStatus) string {
	style := p.warn
	switch s {
	case models.StatusOK:
		style = p.ok
	case models.StatusInvalid:
		style = p.err
	}
	return style.Render(string(s))
}
