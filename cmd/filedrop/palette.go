package main

import "github.com/charmbracelet/lipgloss"

var styles = newPalette("#7D56F4", "#04B575", "#FF5F5F", "#FFA500", "#626262")

// palette is the set of lipgloss styles used for command output.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func newPalette(title, ok, err, warn, help string) *palette {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return &palette{
		title: fg(title).Bold(true),
		ok:    fg(ok),
		err:   fg(err).Bold(true),
		warn:  fg(warn),
		help:  fg(help).Italic(true),
	}
}

func (p *palette) Title(s string) string { return p.title.Render(s) }
func (p *palette) OK(s string) string    { return p.ok.Render(s) }
func (p *palette) Err(s string) string   { return p.err.Render(s) }
func (p *palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *palette) Help(s string) string  { return p.help.Render(s) }
