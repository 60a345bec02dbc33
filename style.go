package main

import "github.com/charmbracelet/lipgloss"

var (
	keyword = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"}).
		Render

	paragraph = lipgloss.NewStyle().
		Width(78).
		Padding(0, 0, 0, 2).
		Render
)
