// internal/tui/app.go
//
// Terminal client for casefile, built on Bubble Tea's Elm Architecture:
// Model holds the case, Update reacts to keys and command results, View
// renders the investigation board. Game and detective calls run inside
// tea.Cmds and come back as result messages.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/casefile/internal/deduction"
	"github.com/kingrea/casefile/internal/detective"
	"github.com/kingrea/casefile/internal/evidence"
	"github.com/kingrea/casefile/internal/logging"
	"github.com/kingrea/casefile/internal/session"
)

const (
	defaultSessionID = "terminal"
	maxTrail         = 50
	visibleTrail     = 8
)

type appState int

// stepNote marks trail lines that narrate what the detective did rather
// than what the propagator concluded.
const stepNote deduction.StepKind = "note"

const (
	stateInvestigate appState = iota
	stateAccuse
	stateVerdict
)

// Game is the case lifecycle the terminal client drives.
type Game interface {
	Start(id string) (session.Snapshot, error)
	Snapshot(id string) (session.Snapshot, error)
	ApplyAction(id string, actionID int) (session.Outcome, error)
	Accuse(id string, guess deduction.Solution) (session.Verdict, error)
}

// Detective is the automated player behind the s, m and a keys.
type Detective interface {
	Suggest(id string) (detective.Suggestion, error)
	MakeMove(id string) (detective.Move, error)
	AutoSolve(id string) (detective.AutoResult, error)
	Forget(id string)
}

// App is the root Bubble Tea model.
type App struct {
	game      Game
	detective Detective
	logger    *logging.Logger
	sessionID string

	state     appState
	snapshot  session.Snapshot
	actions   list.Model
	trail     []deduction.Step
	statusMsg string
	verdict   session.Verdict

	accuseCursor int
	accuseChoice map[deduction.Category]int

	width  int
	height int
}

// Option customizes the App.
type Option func(*App)

// WithLogger attaches the log file whose tail is shown under the board.
func WithLogger(l *logging.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithSessionID sets the session the client plays in.
func WithSessionID(id string) Option {
	return func(a *App) {
		if id = strings.TrimSpace(id); id != "" {
			a.sessionID = id
		}
	}
}

type actionItem struct {
	action evidence.Action
}

func (i actionItem) Title() string       { return i.action.Description }
func (i actionItem) Description() string { return fmt.Sprintf("#%d · cost %d", i.action.ID, i.action.Cost) }
func (i actionItem) FilterValue() string { return i.action.Description }

// Command results.
type (
	caseStartedMsg struct {
		snapshot session.Snapshot
		err      error
	}
	outcomeMsg struct {
		outcome session.Outcome
		err     error
	}
	suggestionMsg struct {
		suggestion detective.Suggestion
		err        error
	}
	moveMsg struct {
		move     detective.Move
		snapshot session.Snapshot
		err      error
	}
	autoSolveMsg struct {
		result   detective.AutoResult
		snapshot session.Snapshot
		err      error
	}
	verdictMsg struct {
		verdict session.Verdict
		err     error
	}
)

// NewApp creates the terminal client.
func NewApp(game Game, det Detective, opts ...Option) (*App, error) {
	if game == nil {
		return nil, fmt.Errorf("tui: game is required")
	}
	if det == nil {
		return nil, fmt.Errorf("tui: detective is required")
	}
	delegate := list.NewDefaultDelegate()
	actions := list.New(nil, delegate, 60, 20)
	actions.Title = "Evidence"
	actions.SetShowStatusBar(false)
	actions.SetFilteringEnabled(false)
	actions.SetShowHelp(false)

	a := &App{
		game:         game,
		detective:    det,
		sessionID:    defaultSessionID,
		state:        stateInvestigate,
		actions:      actions,
		accuseChoice: make(map[deduction.Category]int),
		statusMsg:    "Opening a new case...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Init opens the first case.
func (a *App) Init() tea.Cmd {
	return a.startCase()
}

// Update handles messages and returns the updated model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		leftWidth, _ := a.columnWidths()
		a.actions.SetSize(max(20, leftWidth-4), max(6, msg.Height/2))
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(msg)
	case caseStartedMsg:
		if msg.err != nil {
			a.fail("open case", msg.err)
			return a, nil
		}
		a.trail = nil
		a.verdict = session.Verdict{}
		a.state = stateInvestigate
		a.setSnapshot(msg.snapshot)
		a.logInfo("case %s opened", msg.snapshot.SessionID)
		a.statusMsg = fmt.Sprintf("Case %s opened with %d possible solutions.", msg.snapshot.SessionID, msg.snapshot.GameState.PossibleSolutions)
		return a, nil
	case outcomeMsg:
		if msg.err != nil {
			a.fail("take action", msg.err)
			return a, nil
		}
		a.pushTrail(msg.outcome.Reasoning.Steps...)
		a.setSnapshot(msg.outcome.Snapshot)
		a.statusMsg = fmt.Sprintf("%s: %s", msg.outcome.Evidence.Description, msg.outcome.Evidence.Clue)
		return a, nil
	case suggestionMsg:
		if msg.err != nil {
			a.fail("suggest", msg.err)
			return a, nil
		}
		a.selectAction(msg.suggestion.Action.ID)
		a.statusMsg = msg.suggestion.Explanation
		return a, nil
	case moveMsg:
		if msg.err != nil {
			a.fail("detective move", msg.err)
			return a, nil
		}
		a.setSnapshot(msg.snapshot)
		if msg.move.Taken == nil {
			a.statusMsg = "The detective has nothing left to do. The case is solved."
			return a, nil
		}
		a.pushTrail(note(fmt.Sprintf("Detective examined %s", msg.move.Taken.Action)))
		a.pushTrail(msg.move.Taken.Steps...)
		a.statusMsg = fmt.Sprintf("Detective: %s: %s", msg.move.Taken.Action, msg.move.Taken.Clue)
		return a, nil
	case autoSolveMsg:
		if msg.err != nil {
			a.fail("auto-solve", msg.err)
			return a, nil
		}
		a.setSnapshot(msg.snapshot)
		for _, step := range msg.result.SolutionPath {
			a.pushTrail(note(step.Message))
			a.pushTrail(step.Steps...)
		}
		if msg.result.Solved && msg.result.Solution != nil {
			a.statusMsg = fmt.Sprintf("Auto-solve solved it in %d steps (cost %d): %s", msg.result.StepsTaken, msg.result.TotalCost, msg.result.Solution)
		} else {
			a.statusMsg = fmt.Sprintf("Auto-solve stopped after %d steps (cost %d) without a solution.", msg.result.StepsTaken, msg.result.TotalCost)
		}
		return a, nil
	case verdictMsg:
		if msg.err != nil {
			a.fail("accuse", msg.err)
			return a, nil
		}
		a.verdict = msg.verdict
		a.state = stateVerdict
		a.logInfo("accusation in %s correct=%t", a.sessionID, msg.verdict.Correct)
		return a, nil
	}

	if a.state == stateInvestigate {
		var cmd tea.Cmd
		a.actions, cmd = a.actions.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		return a, tea.Quit
	}
	switch a.state {
	case stateAccuse:
		return a.handleAccuseKey(key)
	case stateVerdict:
		switch key {
		case "n", "enter":
			return a, a.startCase()
		case "esc":
			a.state = stateInvestigate
		}
		return a, nil
	}
	switch key {
	case "enter":
		item, ok := a.actions.SelectedItem().(actionItem)
		if !ok {
			a.statusMsg = "No evidence left to examine."
			return a, nil
		}
		return a, a.takeAction(item.action.ID)
	case "s":
		return a, a.suggest()
	case "m":
		return a, a.makeMove()
	case "a":
		return a, a.autoSolve()
	case "c":
		a.openAccusation()
		return a, nil
	case "n":
		return a, a.startCase()
	}
	var cmd tea.Cmd
	a.actions, cmd = a.actions.Update(msg)
	return a, cmd
}

func (a *App) handleAccuseKey(key string) (tea.Model, tea.Cmd) {
	categories := deduction.Categories()
	switch key {
	case "esc":
		a.state = stateInvestigate
	case "up", "k":
		a.accuseCursor = (a.accuseCursor + len(categories) - 1) % len(categories)
	case "down", "j", "tab":
		a.accuseCursor = (a.accuseCursor + 1) % len(categories)
	case "left", "h":
		a.cycleChoice(categories[a.accuseCursor], -1)
	case "right", "l", " ":
		a.cycleChoice(categories[a.accuseCursor], 1)
	case "enter":
		return a, a.accuse(a.currentGuess())
	}
	return a, nil
}

func (a *App) openAccusation() {
	for _, category := range deduction.Categories() {
		universe := deduction.Universe(category)
		a.accuseChoice[category] = 0
		domain := a.snapshot.GameState.CurrentDomains[category]
		if len(domain) == 0 {
			continue
		}
		for i, value := range universe {
			if value == domain[0] {
				a.accuseChoice[category] = i
				break
			}
		}
	}
	a.accuseCursor = 0
	a.state = stateAccuse
}

func (a *App) cycleChoice(category deduction.Category, delta int) {
	n := len(deduction.Universe(category))
	a.accuseChoice[category] = (a.accuseChoice[category] + n + delta) % n
}

func (a *App) currentGuess() deduction.Solution {
	pick := func(c deduction.Category) string {
		return deduction.Universe(c)[a.accuseChoice[c]]
	}
	return deduction.Solution{
		Suspect:  pick(deduction.CategorySuspect),
		Weapon:   pick(deduction.CategoryWeapon),
		Location: pick(deduction.CategoryLocation),
	}
}

func (a *App) startCase() tea.Cmd {
	game, det, id := a.game, a.detective, a.sessionID
	return func() tea.Msg {
		det.Forget(id)
		snap, err := game.Start(id)
		return caseStartedMsg{snapshot: snap, err: err}
	}
}

func (a *App) takeAction(actionID int) tea.Cmd {
	game, id := a.game, a.sessionID
	return func() tea.Msg {
		outcome, err := game.ApplyAction(id, actionID)
		return outcomeMsg{outcome: outcome, err: err}
	}
}

func (a *App) suggest() tea.Cmd {
	det, id := a.detective, a.sessionID
	return func() tea.Msg {
		suggestion, err := det.Suggest(id)
		return suggestionMsg{suggestion: suggestion, err: err}
	}
}

func (a *App) makeMove() tea.Cmd {
	game, det, id := a.game, a.detective, a.sessionID
	return func() tea.Msg {
		move, err := det.MakeMove(id)
		if err != nil {
			return moveMsg{err: err}
		}
		snap, err := game.Snapshot(id)
		return moveMsg{move: move, snapshot: snap, err: err}
	}
}

func (a *App) autoSolve() tea.Cmd {
	game, det, id := a.game, a.detective, a.sessionID
	return func() tea.Msg {
		result, err := det.AutoSolve(id)
		if err != nil {
			return autoSolveMsg{err: err}
		}
		snap, err := game.Snapshot(id)
		return autoSolveMsg{result: result, snapshot: snap, err: err}
	}
}

func (a *App) accuse(guess deduction.Solution) tea.Cmd {
	game, id := a.game, a.sessionID
	return func() tea.Msg {
		verdict, err := game.Accuse(id, guess)
		return verdictMsg{verdict: verdict, err: err}
	}
}

func (a *App) setSnapshot(snap session.Snapshot) {
	a.snapshot = snap
	items := make([]list.Item, 0, len(snap.AvailableActions))
	for _, action := range snap.AvailableActions {
		items = append(items, actionItem{action: action})
	}
	a.actions.SetItems(items)
	if n := len(items); n > 0 && a.actions.Index() >= n {
		a.actions.Select(n - 1)
	}
}

func (a *App) selectAction(id int) {
	for i, item := range a.actions.Items() {
		if candidate, ok := item.(actionItem); ok && candidate.action.ID == id {
			a.actions.Select(i)
			return
		}
	}
}

func note(message string) deduction.Step {
	return deduction.Step{Message: message, Kind: stepNote}
}

func (a *App) pushTrail(steps ...deduction.Step) {
	a.trail = append(a.trail, steps...)
	if len(a.trail) > maxTrail {
		a.trail = append([]deduction.Step(nil), a.trail[len(a.trail)-maxTrail:]...)
	}
}

func (a *App) fail(what string, err error) {
	a.statusMsg = fmt.Sprintf("⚠ %s failed: %v", what, err)
	if a.logger != nil {
		a.logger.Warn("tui: %s failed for %s: %v", what, a.sessionID, err)
	}
}

func (a *App) logInfo(format string, args ...any) {
	if a.logger != nil {
		a.logger.Info("tui: "+format, args...)
	}
}

// View renders the current screen.
func (a *App) View() string {
	var main string
	switch a.state {
	case stateAccuse:
		main = a.renderAccusation()
	case stateVerdict:
		main = a.renderVerdict()
	default:
		main = a.actions.View()
	}
	leftWidth, rightWidth := a.columnWidths()
	return a.renderStatusBoard(main, leftWidth, rightWidth)
}

func (a *App) columnWidths() (int, int) {
	if a.width <= 0 {
		return 64, 36
	}
	right := max(32, a.width/3)
	left := a.width - right - 2
	if left < 40 {
		return a.width, 0
	}
	return left, right
}

func (a *App) renderStatusBoard(mainContent string, leftWidth, rightWidth int) string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ CASEFILE")
	left := lipgloss.JoinVertical(lipgloss.Left,
		a.renderCaseLine(leftWidth-4),
		"",
		lipgloss.NewStyle().Width(max(20, leftWidth-4)).Render(mainContent),
	)
	leftBox := panelStyle().Width(max(20, leftWidth)).Render(left)
	var body string
	if rightWidth > 0 {
		right := lipgloss.JoinVertical(lipgloss.Left,
			a.renderDomains(rightWidth-4),
			"",
			a.renderTrail(rightWidth-4),
		)
		rightBox := panelStyle().Width(max(20, rightWidth)).Render(right)
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	} else {
		body = leftBox
	}
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg + "\n" + a.helpLine())
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderCaseLine(width int) string {
	gs := a.snapshot.GameState
	lines := []string{
		fmt.Sprintf("Case: %s", fallback(a.snapshot.SessionID, "none")),
		fmt.Sprintf("Cost: %d · Actions: %d · Possible: %d · Confidence: %.0f%%",
			gs.TotalCost, len(gs.ActionsTaken), gs.PossibleSolutions, a.snapshot.Confidence()*100),
	}
	if a.snapshot.SessionID != "" && a.snapshot.Solved() {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("#7BD88F")).Render("Every category is narrowed down. Press c to accuse."))
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderDomains(width int) string {
	title := lipgloss.NewStyle().Bold(true).Render("DOMAINS")
	kept := lipgloss.NewStyle().Foreground(lipgloss.Color("#7BD88F"))
	gone := lipgloss.NewStyle().Foreground(lipgloss.Color("#555555")).Strikethrough(true)
	lines := []string{title}
	for _, category := range deduction.Categories() {
		domain := a.snapshot.GameState.CurrentDomains[category]
		var values []string
		for _, value := range deduction.Universe(category) {
			if domain.Contains(value) {
				values = append(values, kept.Render(value))
			} else {
				values = append(values, gone.Render(value))
			}
		}
		lines = append(lines, fmt.Sprintf("%-9s %s", titleCase(string(category))+":", strings.Join(values, " ")))
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderTrail(width int) string {
	title := lipgloss.NewStyle().Bold(true).Render("REASONING")
	lines := []string{title}
	if len(a.trail) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("No deductions yet."))
	}
	start := max(0, len(a.trail)-visibleTrail)
	for _, step := range a.trail[start:] {
		lines = append(lines, stepStyle(step.Kind).Render("• "+step.Message))
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderAccusation() string {
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render("Make your accusation"),
		"",
	}
	cursor := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	for i, category := range deduction.Categories() {
		value := deduction.Universe(category)[a.accuseChoice[category]]
		line := fmt.Sprintf("  %-9s ‹ %s ›", titleCase(string(category))+":", value)
		if i == a.accuseCursor {
			line = cursor.Render("▸" + line[1:])
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", "It was "+a.currentGuess().String()+".")
	return strings.Join(lines, "\n")
}

func (a *App) renderVerdict() string {
	v := a.verdict
	headline := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7BD88F")).Render("Case closed. You got it right.")
	if !v.Correct {
		headline = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).Render("Wrong accusation.")
	}
	return strings.Join([]string{
		headline,
		"",
		fmt.Sprintf("It was %s.", v.Solution),
		fmt.Sprintf("Total cost %d over %d actions.", v.TotalCost, v.ActionsTaken),
	}, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logger == nil {
		return ""
	}
	lines := a.logger.Tail(8)
	if len(lines) == 0 {
		return ""
	}
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5B8DEF")).
		Bold(true).
		Render(fmt.Sprintf("LOG · %s", logging.FileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return panelStyle().Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

func (a *App) helpLine() string {
	switch a.state {
	case stateAccuse:
		return "↑/↓ category · ←/→ value · enter accuse · esc back · q quit"
	case stateVerdict:
		return "n new case · esc back · q quit"
	}
	return "enter examine · s suggest · m detective move · a auto-solve · c accuse · n new case · q quit"
}

func panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1)
}

func stepStyle(kind deduction.StepKind) lipgloss.Style {
	switch kind {
	case deduction.StepConfirmation:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#7BD88F"))
	case deduction.StepError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	case stepNote:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#F5C26B"))
}

func titleCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
