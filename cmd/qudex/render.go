package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles are the lipgloss styles used for terminal output. They render plain
// text when out is not a terminal.
type styles struct {
	root   lipgloss.Style
	name   lipgloss.Style
	leaf   lipgloss.Style
	guide  lipgloss.Style
	count  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	errorf lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		root:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		name:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		leaf:   r.NewStyle().Foreground(lipgloss.Color("7")),
		guide:  r.NewStyle().Foreground(lipgloss.Color("8")),
		count:  r.NewStyle().Faint(true),
		header: r.NewStyle().Bold(true).Underline(true),
		label:  r.NewStyle().Foreground(lipgloss.Color("14")),
		errorf: r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}
