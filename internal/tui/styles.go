package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2D6A4F")).
			Padding(0, 2).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 1).
			MarginBottom(1)

	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#4ECDC4"))

	floorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFE66D")).
			Underline(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7F8C8D"))

	cellStyle = lipgloss.NewStyle().
			Width(22).
			Padding(0, 1).
			MarginRight(1).
			BorderStyle(lipgloss.NormalBorder())

	freeColor     = lipgloss.Color("#2ECC71")
	mineColor     = lipgloss.Color("#3498DB")
	occupiedColor = lipgloss.Color("#E74C3C")
	waitingColor  = lipgloss.Color("#F39C12")
	cursorColor   = lipgloss.Color("#FFFFFF")

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECF0F1")).
			Background(lipgloss.Color("#34495E")).
			Padding(0, 1)

	errorStyle = noticeStyle.
			Background(lipgloss.Color("#C0392B"))

	dialogStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#F39C12")).
			Padding(0, 2).
			MarginTop(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BDC3C7")).
			Italic(true)
)
