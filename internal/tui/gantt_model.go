package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/parser"
	"github.com/balkashynov/smgantt/internal/schedule"
)

type ganttKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	Earlier  key.Binding
	Later    key.Binding
	PanLeft  key.Binding
	PanRight key.Binding
	Move     key.Binding
	Add      key.Binding
	Start    key.Binding
	Complete key.Binding
	Release  key.Binding
	Reload   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultGanttKeys() ganttKeyMap {
	return ganttKeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PrevPage: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev page")),
		NextPage: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next page")),
		Earlier:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "1 day earlier")),
		Later:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "1 day later")),
		PanLeft:  key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "scroll back a week")),
		PanRight: key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "scroll on a week")),
		Move:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move to")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
		Start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		Complete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "done")),
		Release:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "release hold")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k ganttKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Earlier, k.Later, k.Move, k.Help, k.Quit}
}

func (k ganttKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevPage, k.NextPage, k.PanLeft, k.PanRight},
		{k.Earlier, k.Later, k.Move, k.Add},
		{k.Start, k.Complete, k.Release, k.Reload, k.Quit},
	}
}

type inputMode int

const (
	inputNone inputMode = iota
	inputMove
	inputAdd
)

// scheduleMsg carries a freshly loaded schedule
type scheduleMsg struct {
	construction *models.Construction
	workdays     calendar.Workdays
	tasks        []*models.Task
	frozen       map[uint]bool
	critical     map[uint]bool
	err          error
}

// changeMsg reports the outcome of an engine operation
type changeMsg struct {
	summary string
	err     error
}

// GanttModel is an interactive bar chart of one construction's schedule
type GanttModel struct {
	ctx            context.Context
	engine         *schedule.Engine
	constructionID uint
	userID         uint
	now            func() time.Time

	construction *models.Construction
	workdays     calendar.Workdays
	tasks        []*models.Task
	frozen       map[uint]bool
	critical     map[uint]bool
	origin       time.Time

	width    int
	height   int
	selected int
	page     int
	perPage  int

	mode    inputMode
	input   textinput.Model
	keys    ganttKeyMap
	help    help.Model
	shimmer *Shimmer

	busy   bool
	status string
	err    error
}

// NewGanttModel returns a viewer for constructionID acting as userID
func NewGanttModel(ctx context.Context, engine *schedule.Engine, constructionID, userID uint) GanttModel {
	input := textinput.New()
	input.CharLimit = 120
	input.Width = 60

	return GanttModel{
		ctx:            ctx,
		engine:         engine,
		constructionID: constructionID,
		userID:         userID,
		now:            time.Now,
		perPage:        20,
		input:          input,
		keys:           defaultGanttKeys(),
		help:           help.New(),
		shimmer:        NewShimmer(DefaultShimmerConfig()),
		frozen:         map[uint]bool{},
		critical:       map[uint]bool{},
	}
}

// Init loads the schedule
func (m GanttModel) Init() tea.Cmd {
	return tea.Batch(m.load(), m.shimmer.Tick())
}

func (m GanttModel) load() tea.Cmd {
	return func() tea.Msg {
		c, err := m.engine.Construction(m.ctx, m.constructionID)
		if err != nil {
			return scheduleMsg{err: err}
		}
		w, err := m.engine.Workdays(m.ctx, c)
		if err != nil {
			return scheduleMsg{err: err}
		}
		g, err := m.engine.Graph(m.ctx, m.constructionID)
		if err != nil {
			return scheduleMsg{err: err}
		}
		critical := map[uint]bool{}
		if _, _, path, err := schedule.ComputeFloat(g); err == nil {
			for _, id := range path {
				critical[id] = true
			}
		}
		return scheduleMsg{
			construction: c,
			workdays:     w,
			tasks:        g.Tasks(),
			frozen:       g.Frozen(),
			critical:     critical,
		}
	}
}

// Update handles messages
func (m GanttModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case shimmerTickMsg:
		if m.mode == inputNone {
			if t := m.selectedTask(); t != nil {
				m.shimmer.Advance(len([]rune(t.Name)), m.now())
			}
		}
		return m, m.shimmer.Tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		// header(2) + chart axis(1) + status(1) + help(1) + borders(2)
		m.perPage = max(3, m.height-7)
		m.clampSelection()
		return m, nil

	case scheduleMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.construction = msg.construction
		m.workdays = msg.workdays
		m.tasks = msg.tasks
		m.frozen = msg.frozen
		m.critical = msg.critical
		if m.origin.IsZero() {
			m.origin = calendar.Day(m.construction.StartDate)
		}
		m.clampSelection()
		return m, nil

	case changeMsg:
		m.busy = false
		m.err = msg.err
		if msg.err != nil {
			m.status = ""
			return m, nil
		}
		m.status = msg.summary
		return m, m.load()

	case tea.KeyMsg:
		if m.mode != inputNone {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m GanttModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
			m.shimmer.Reset()
		}
		m.clampSelection()
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.tasks)-1 {
			m.selected++
			m.shimmer.Reset()
		}
		m.clampSelection()
	case key.Matches(msg, m.keys.PrevPage):
		if m.page > 0 {
			m.page--
			m.selected = m.page * m.perPage
			m.shimmer.Reset()
		}
	case key.Matches(msg, m.keys.NextPage):
		if (m.page+1)*m.perPage < len(m.tasks) {
			m.page++
			m.selected = m.page * m.perPage
			m.shimmer.Reset()
		}
	case key.Matches(msg, m.keys.PanLeft):
		m.origin = m.origin.AddDate(0, 0, -7)
	case key.Matches(msg, m.keys.PanRight):
		m.origin = m.origin.AddDate(0, 0, 7)
	case key.Matches(msg, m.keys.Reload):
		m.busy = true
		return m, m.load()
	case key.Matches(msg, m.keys.Add):
		return m.openInput(inputAdd, "Frame walls @carpentry dur:5 after:12FS+2")
	}

	t := m.selectedTask()
	if t == nil || m.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Earlier):
		return m.run(m.shift(t, -1))
	case key.Matches(msg, m.keys.Later):
		return m.run(m.shift(t, 1))
	case key.Matches(msg, m.keys.Move):
		return m.openInput(inputMove, "dd/mm/yyyy, yyyy-mm-dd or +N")
	case key.Matches(msg, m.keys.Start):
		return m.run(m.start(t))
	case key.Matches(msg, m.keys.Complete):
		return m.run(m.complete(t))
	case key.Matches(msg, m.keys.Release):
		return m.run(m.release(t))
	}
	return m, nil
}

func (m GanttModel) openInput(mode inputMode, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.SetValue("")
	m.input.Placeholder = placeholder
	m.input.Focus()
	return m, textinput.Blink
}

func (m GanttModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = inputNone
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = inputNone
		m.input.Blur()
		if value == "" {
			return m, nil
		}
		if mode == inputAdd {
			return m.run(m.add(value))
		}
		if t := m.selectedTask(); t != nil {
			return m.run(m.moveTo(t, value))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m GanttModel) run(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = true
	m.err = nil
	return m, cmd
}

func cascadeSummary(r *schedule.CascadeResult) string {
	s := fmt.Sprintf("#%d now %s → %s", r.UpdatedTask.TaskNumber,
		r.UpdatedTask.StartDate.Format("02/01"), r.UpdatedTask.EndDate.Format("02/01"))
	if n := len(r.CascadedTasks); n > 0 {
		s += fmt.Sprintf(", %d dependent tasks moved", n)
	}
	if n := len(r.BlockedTaskIDs); n > 0 {
		s += fmt.Sprintf(", %d held back by a hold", n)
	}
	return s
}

// shift moves t by delta working days
func (m GanttModel) shift(t *models.Task, delta int) tea.Cmd {
	id, start := t.ID, t.StartDate
	return func() tea.Msg {
		next, err := m.workdays.Add(start, delta)
		if err != nil {
			return changeMsg{err: err}
		}
		r, err := m.engine.ApplyChange(m.ctx, schedule.ChangeRequest{
			TaskID:    id,
			StartDate: &next,
			Actor:     models.UserActor(m.userID),
		})
		if err != nil {
			return changeMsg{err: err}
		}
		return changeMsg{summary: cascadeSummary(r)}
	}
}

func (m GanttModel) moveTo(t *models.Task, value string) tea.Cmd {
	id := t.ID
	return func() tea.Msg {
		spec, err := parser.ParseStart(value)
		if err != nil {
			return changeMsg{err: err}
		}
		req := schedule.ChangeRequest{TaskID: id, Actor: models.UserActor(m.userID)}
		if spec != nil {
			req.StartDate, req.StartOffset = spec.Date, spec.Offset
		}
		r, err := m.engine.ApplyChange(m.ctx, req)
		if err != nil {
			return changeMsg{err: err}
		}
		return changeMsg{summary: cascadeSummary(r)}
	}
}

func (m GanttModel) add(value string) tea.Cmd {
	return func() tea.Msg {
		parsed := parser.ParseTask(value)
		if len(parsed.Errors) > 0 {
			return changeMsg{err: fmt.Errorf("%s", strings.Join(parsed.Errors, "; "))}
		}
		in := schedule.NewTask{
			ConstructionID: m.constructionID,
			Name:           parsed.Name,
			Trade:          parsed.Trade,
			DurationDays:   parsed.Duration,
			Predecessors:   schedule.LinksByNumber(parsed.Predecessors),
			Actor:          models.UserActor(m.userID),
		}
		if parsed.Start != nil {
			start := parsed.Start.Date
			if parsed.Start.Offset != nil && m.construction != nil {
				d := m.construction.StartDate.AddDate(0, 0, *parsed.Start.Offset)
				start = &d
			}
			in.StartDate = start
		}
		t, err := m.engine.CreateTask(m.ctx, in)
		if err != nil {
			return changeMsg{err: err}
		}
		return changeMsg{summary: fmt.Sprintf("Added #%d %s", t.TaskNumber, t.Name)}
	}
}

func (m GanttModel) start(t *models.Task) tea.Cmd {
	id := t.ID
	return func() tea.Msg {
		started, err := m.engine.StartTask(m.ctx, id, models.UserActor(m.userID))
		if err != nil {
			return changeMsg{err: err}
		}
		return changeMsg{summary: fmt.Sprintf("#%d started", started.TaskNumber)}
	}
}

func (m GanttModel) complete(t *models.Task) tea.Cmd {
	id := t.ID
	return func() tea.Msg {
		r, err := m.engine.CompleteTask(m.ctx, schedule.CompleteRequest{TaskID: id, Actor: models.UserActor(m.userID)})
		if err != nil {
			return changeMsg{err: err}
		}
		s := fmt.Sprintf("#%d completed", r.Task.TaskNumber)
		if len(r.Spawned) > 0 {
			s += fmt.Sprintf(", %d follow-up tasks created", len(r.Spawned))
		}
		return changeMsg{summary: s}
	}
}

func (m GanttModel) release(t *models.Task) tea.Cmd {
	id := t.ID
	return func() tea.Msg {
		r, err := m.engine.ReleaseHold(m.ctx, schedule.ReleaseRequest{
			TaskID:     id,
			UserID:     m.userID,
			ReasonText: "released from viewer",
		})
		if err != nil {
			return changeMsg{err: err}
		}
		return changeMsg{summary: fmt.Sprintf("Hold on #%d released after %d days, %d tasks moved",
			r.Task.TaskNumber, r.HoldDurationDays, len(r.Cascade.CascadedTasks))}
	}
}

func (m GanttModel) selectedTask() *models.Task {
	if m.selected < 0 || m.selected >= len(m.tasks) {
		return nil
	}
	return m.tasks[m.selected]
}

// clampSelection keeps the selection on a task and its page in view
func (m *GanttModel) clampSelection() {
	if m.selected >= len(m.tasks) {
		m.selected = len(m.tasks) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if m.perPage > 0 {
		m.page = m.selected / m.perPage
	}
}

// barGlyphs draws one task over days cells starting at origin.
// █ working day in the task, ▒ non-working day in the task, │ today, · non-working day.
func barGlyphs(t *models.Task, origin time.Time, days int, w calendar.Workdays, today time.Time) string {
	var b strings.Builder
	start, end := calendar.Day(t.StartDate), calendar.Day(t.EndDate)
	for i := 0; i < days; i++ {
		d := origin.AddDate(0, 0, i)
		inside := !d.Before(start) && d.Before(end)
		working := w.IsWorkingDay(d)
		switch {
		case inside && working:
			b.WriteRune('█')
		case inside:
			b.WriteRune('▒')
		case d.Equal(today):
			b.WriteRune('│')
		case !working:
			b.WriteRune('·')
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// barColor picks the bar colour from the strongest state of t
func barColor(t *models.Task, frozen, critical bool) string {
	switch {
	case t.Status == models.StatusCompleted:
		return ColorBarCompleted
	case t.IsHeld():
		return ColorBarHeld
	case frozen:
		return ColorBarFrozen
	case t.IsLocked():
		return ColorBarLocked
	case critical:
		return ColorBarCritical
	}
	return ColorBarDefault
}

func (m GanttModel) renderBar(t *models.Task, days int, today time.Time) string {
	glyphs := barGlyphs(t, m.origin, days, m.workdays, today)
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(barColor(t, m.frozen[t.ID], m.critical[t.ID])))
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDisabledText))
	marker := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentMain))

	var b strings.Builder
	for _, r := range glyphs {
		switch r {
		case '█', '▒':
			b.WriteString(bar.Render(string(r)))
		case '│':
			b.WriteString(marker.Render(string(r)))
		case '·':
			b.WriteString(muted.Render(string(r)))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// axis labels every Monday in the chart window
func (m GanttModel) axis(days int) string {
	cells := []rune(strings.Repeat(" ", days))
	for i := 0; i < days; i++ {
		d := m.origin.AddDate(0, 0, i)
		if d.Weekday() != time.Monday {
			continue
		}
		label := []rune(d.Format("02/01"))
		for j := 0; j < len(label) && i+j < days; j++ {
			cells[i+j] = label[j]
		}
	}
	return string(cells)
}

const (
	numberWidth = 5
	nameWidth   = 28
	dateWidth   = 12
)

// View renders the chart
func (m GanttModel) View() string {
	if m.err != nil && m.construction == nil {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render("Error: "+m.err.Error()) + "\n"
	}
	if m.construction == nil || m.width == 0 {
		return "Loading..."
	}

	today := calendar.Today(m.now(), m.location())
	days := max(7, m.width-numberWidth-nameWidth-dateWidth-6)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright))
	secondary := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s · v%d · %d tasks",
		m.construction.Name, m.construction.ScheduleVersion, len(m.tasks))))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%-*s %-*s %-*s %s\n", numberWidth, "", nameWidth, "", dateWidth, "",
		secondary.Render(m.axis(days))))

	if len(m.tasks) == 0 {
		b.WriteString(secondary.Italic(true).Render("No tasks yet, press a to add one"))
		b.WriteString("\n")
	}

	from := m.page * m.perPage
	to := min(from+m.perPage, len(m.tasks))
	for i := from; i < to; i++ {
		t := m.tasks[i]
		name := truncate(t.Name, nameWidth)
		padded := fmt.Sprintf("%-*s", nameWidth, name)
		if i == m.selected {
			padded = m.shimmer.Render(name) + strings.Repeat(" ", nameWidth-len([]rune(name)))
		}
		number := fmt.Sprintf("#%-*d", numberWidth-1, t.TaskNumber)
		dates := secondary.Render(fmt.Sprintf("%-*s", dateWidth, t.StartDate.Format("02/01")+"+"+fmt.Sprint(t.DurationDays)))
		b.WriteString(fmt.Sprintf("%s %s %s %s\n", number, padded, dates, m.renderBar(t, days, today)))
	}

	chart := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Render(strings.TrimRight(b.String(), "\n"))

	var footer string
	switch {
	case m.mode == inputMove:
		footer = "Move to: " + m.input.View()
	case m.mode == inputAdd:
		footer = "Add: " + m.input.View()
	case m.err != nil:
		footer = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render("Error: " + m.err.Error())
	case m.busy:
		footer = secondary.Render("Rescheduling...")
	case m.status != "":
		footer = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Render(m.status)
	}

	helpView := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText)).Render(m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, chart, footer, helpView)
}

func (m GanttModel) location() *time.Location {
	if m.construction == nil || m.construction.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(m.construction.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
