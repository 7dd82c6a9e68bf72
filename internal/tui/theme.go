package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/narvanalabs/mission-console/internal/models"
	"github.com/narvanalabs/mission-console/internal/stream"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Padding(0, 1)
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true).Padding(1, 2)
	missionTag  = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))

	levelStyles = map[models.Level]lipgloss.Style{
		models.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		models.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		models.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
	}

	stateStyles = map[stream.State]lipgloss.Style{
		stream.StateConnecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		stream.StateConnected:    lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		stream.StateDisconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
)
