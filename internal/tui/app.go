// Package tui provides the interactive terminal view of the daily plan.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fieldops/rounds/internal/models"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#0891B2")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	bannerStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 1)

	deferStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	entryStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedDayStyle = lipgloss.NewStyle().
				Background(primaryColor).
				Foreground(fgColor).
				Bold(true).
				Padding(0, 1)

	dayTabStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	errStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	okStyle = lipgloss.NewStyle().
		Foreground(successColor)
)

// App is the plan viewer model.
type App struct {
	client   *Client
	plan     *models.DailyPlan
	dayIdx   int
	viewport viewport.Model
	spinner  spinner.Model
	width    int
	height   int
	loading  bool
	errMsg   string
}

type planMsg struct {
	plan *models.DailyPlan
	err  error
}

type tickMsg time.Time

// New creates a new plan viewer.
func New(apiAddr string) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return &App{
		client:   NewClient(apiAddr),
		viewport: viewport.New(80, 20),
		spinner:  sp,
		loading:  true,
	}
}

// Run starts the TUI.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.fetchPlan(), tick())
}

func (a *App) fetchPlan() tea.Cmd {
	return func() tea.Msg {
		plan, err := a.client.GetPlan()
		return planMsg{plan: plan, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 6
		a.refreshContent()
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "left", "h":
			if a.dayIdx > 0 {
				a.dayIdx--
				a.refreshContent()
			}
		case "right", "l":
			if a.plan != nil && a.dayIdx < len(a.plan.Week.Days)-1 {
				a.dayIdx++
				a.refreshContent()
			}
		case "r":
			a.loading = true
			return a, a.fetchPlan()
		default:
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		}

	case planMsg:
		a.loading = false
		if msg.err != nil {
			a.errMsg = msg.err.Error()
		} else {
			a.errMsg = ""
			a.plan = msg.plan
			if a.dayIdx >= len(a.plan.Week.Days) {
				a.dayIdx = 0
			}
		}
		a.refreshContent()
		return a, nil

	case tickMsg:
		return a, tea.Batch(a.fetchPlan(), tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Rounds - Daily Plan"))
	if a.loading {
		b.WriteString(" " + a.spinner.View())
	}
	b.WriteString("\n")

	if a.errMsg != "" {
		b.WriteString(errStyle.Render("daemon unreachable: "+a.errMsg) + "\n")
	}

	if a.plan != nil {
		b.WriteString(a.renderBanner() + "\n")
		b.WriteString(a.renderDayTabs() + "\n")
	}

	b.WriteString(a.viewport.View())
	b.WriteString("\n" + helpStyle.Render("←/→ day · r refresh · q quit"))
	return b.String()
}

func (a *App) renderBanner() string {
	var parts []string
	if a.plan.CurrentBuilding != nil {
		parts = append(parts, bannerStyle.Render("AT: "+a.plan.CurrentBuilding.Name))
	} else {
		parts = append(parts, bannerStyle.Render("AT: (unresolved)"))
	}
	if a.plan.DeferOutdoor {
		parts = append(parts, deferStyle.Render("⚠ outdoor work deferred"))
	} else {
		parts = append(parts, okStyle.Render("weather clear"))
	}
	return strings.Join(parts, "  ")
}

func (a *App) renderDayTabs() string {
	var tabs []string
	for i, day := range a.plan.Week.Days {
		label := day.Date.Format("Mon 01/02")
		if i == a.dayIdx {
			tabs = append(tabs, selectedDayStyle.Render(label))
		} else {
			tabs = append(tabs, dayTabStyle.Render(label))
		}
	}
	return strings.Join(tabs, "")
}

func (a *App) refreshContent() {
	if a.plan == nil || a.dayIdx >= len(a.plan.Week.Days) {
		a.viewport.SetContent("No plan yet. Is the daemon running?")
		return
	}
	day := a.plan.Week.Days[a.dayIdx]

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s  (%.1f hours planned)\n\n", day.Date.Format("Monday, January 2"), day.TotalHours))
	if len(day.Items) == 0 {
		b.WriteString(entryStyle.Render("Nothing scheduled.") + "\n")
	}
	for _, e := range day.Items {
		line := fmt.Sprintf("%s–%s  %s", e.StartTime.Format("15:04"), e.EndTime.Format("15:04"), e.Title)
		if e.TaskCount > 1 {
			line += fmt.Sprintf("  (x%d)", e.TaskCount)
		}
		b.WriteString(entryStyle.Render(line) + "\n")
	}

	if a.dayIdx == 0 {
		b.WriteString("\n" + a.renderToday())
	}
	a.viewport.SetContent(b.String())
}

func (a *App) renderToday() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Up next") + "\n")
	if len(a.plan.Upcoming) == 0 {
		b.WriteString(entryStyle.Render("All caught up.") + "\n")
	}
	for i, t := range a.plan.Upcoming {
		if i >= 8 {
			b.WriteString(entryStyle.Render(fmt.Sprintf("... and %d more", len(a.plan.Upcoming)-8)) + "\n")
			break
		}
		line := fmt.Sprintf("[%s] %s", t.Urgency, t.Title)
		if t.DueTime != nil {
			line += "  due " + t.DueTime.Format("15:04")
		}
		b.WriteString(entryStyle.Render(line) + "\n")
	}

	if len(a.plan.DeferredOutdoor) > 0 {
		b.WriteString(deferStyle.Render("Deferred for weather:") + "\n")
		for _, t := range a.plan.DeferredOutdoor {
			b.WriteString(entryStyle.Render(t.Title) + "\n")
		}
	}

	if len(a.plan.Suggestions) > 0 {
		var s strings.Builder
		for _, sg := range a.plan.Suggestions {
			s.WriteString(fmt.Sprintf("%s (%s)\n", sg.Title, sg.Rationale))
			for _, item := range sg.Checklist {
				s.WriteString("  - " + item + "\n")
			}
		}
		b.WriteString(panelStyle.Render(s.String()) + "\n")
	}
	return b.String()
}
