package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/adityalohuni/htmlform/internal/api"
	"github.com/adityalohuni/htmlform/internal/apiclient"
	"github.com/adityalohuni/htmlform/internal/config"
	"github.com/adityalohuni/htmlform/internal/formstore"
	"github.com/adityalohuni/htmlform/internal/service"
)

type panel int

const (
	formsPanel panel = iota
	valuesPanel
)

const refreshInterval = 2 * time.Second

type loadResultMsg struct {
	forms  []formstore.Entry
	status api.Status
	err    error
	at     time.Time
}

type selectResultMsg struct {
	entry formstore.Entry
	err   error
}

type parseResultMsg struct {
	path    string
	entries []formstore.Entry
	err     error
}

type deleteResultMsg struct {
	id  string
	err error
}

type previewResultMsg struct {
	preview api.RequestPreview
	sub     service.Submission
	err     error
}

type tickMsg time.Time

type model struct {
	client  *apiclient.Client
	baseURL string

	forms       []formstore.Entry
	rows        []valueRow
	clients     int
	cachedPages int

	focus       panel
	formCursor  int
	valueCursor int

	opening bool
	loading bool
	input   textinput.Model

	spin spinner.Model

	formsVP  viewport.Model
	valuesVP viewport.Model
	detail   string

	chart  streamlinechart.Model
	spring harmonica.Spring
	animF  float64
	velF   float64

	status      string
	lastUpdated time.Time
	width       int
	height      int
}

func newModel(client *apiclient.Client, cfg config.Settings) model {
	in := textinput.New()
	in.Prompt = "html file> "
	in.CharLimit = 1024
	in.Width = 64

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	points := cfg.ChartPoints
	if points <= 0 {
		points = 60
	}
	chart := streamlinechart.New(
		points,
		8,
		streamlinechart.WithYRange(0, 64),
		streamlinechart.WithStyles(runes.ArcLineStyle, lipgloss.NewStyle().Foreground(lipgloss.Color("14"))),
	)

	return model{
		client:   client,
		baseURL:  cfg.ClientBaseURL,
		focus:    formsPanel,
		status:   "loading...",
		loading:  true,
		input:    in,
		spin:     sp,
		formsVP:  viewport.New(40, 20),
		valuesVP: viewport.New(40, 20),
		chart:    chart,
		spring:   harmonica.NewSpring(harmonica.FPS(60), 12.0, 1.0),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchCmd(m.client), tickCmd(refreshInterval), m.spin.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.syncLayout()
		m.syncViewportContent()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case loadResultMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.forms = newestFirst(msg.forms)
		m.clients = msg.status.Clients
		m.cachedPages = msg.status.CachedPages
		if m.formCursor >= len(m.forms) {
			m.formCursor = max(0, len(m.forms)-1)
		}
		m.lastUpdated = msg.at
		m.chart.Push(float64(len(m.forms)))
		m.chart.Draw()
		m.syncViewportContent()
		m.status = fmt.Sprintf("forms=%d clients=%d cached_pages=%d", len(m.forms), m.clients, m.cachedPages)
		return m, nil

	case selectResultMsg:
		if msg.err != nil {
			m.status = "select failed: " + msg.err.Error()
			return m, nil
		}
		m.replace(msg.entry)
		m.syncViewportContent()
		m.status = "selection updated for " + shortID(msg.entry.ID)
		return m, nil

	case parseResultMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("parse %s failed: %v", msg.path, msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("parsed %d form(s) from %s", len(msg.entries), msg.path)
		m.formCursor = 0
		return m, fetchCmd(m.client)

	case deleteResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("delete %s failed: %v", shortID(msg.id), msg.err)
			return m, nil
		}
		m.status = "deleted " + shortID(msg.id)
		return m, fetchCmd(m.client)

	case previewResultMsg:
		if msg.err != nil {
			m.status = "preview failed: " + msg.err.Error()
			return m, nil
		}
		m.detail = renderPreview(msg.preview, msg.sub)
		m.syncViewportContent()
		m.status = msg.preview.Method + " " + msg.preview.URL
		return m, nil

	case tickMsg:
		m.animF, m.velF = m.spring.Update(m.animF, m.velF, float64(len(m.forms)))
		return m, tea.Batch(fetchCmd(m.client), tickCmd(refreshInterval))

	case tea.MouseMsg:
		if m.opening || msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		for i, f := range m.forms {
			if z := zone.Get("form-" + f.ID); z != nil && z.InBounds(msg) {
				m.focus = formsPanel
				m.selectForm(i)
				return m, nil
			}
		}
		for i := range m.rows {
			if z := zone.Get(fmt.Sprintf("value-%d", i)); z != nil && z.InBounds(msg) {
				m.focus = valuesPanel
				m.valueCursor = i
				m.syncViewportContent()
				return m, nil
			}
		}

	case tea.KeyMsg:
		if m.opening {
			return updateOpenMode(m, msg)
		}
		return updateDashboard(m, msg)
	}

	return m, nil
}

func updateDashboard(m model, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		if m.focus == formsPanel {
			m.focus = valuesPanel
		} else {
			m.focus = formsPanel
		}
		m.syncViewportContent()
		return m, nil
	case "r":
		m.loading = true
		return m, fetchCmd(m.client)
	case "o":
		m.opening = true
		m.input.SetValue("")
		m.status = "enter a path to an HTML file"
		return m, m.input.Focus()
	case "up", "k":
		if m.focus == formsPanel && m.formCursor > 0 {
			m.selectForm(m.formCursor - 1)
		}
		if m.focus == valuesPanel && m.valueCursor > 0 {
			m.valueCursor--
			m.syncViewportContent()
		}
		return m, nil
	case "down", "j":
		if m.focus == formsPanel && m.formCursor < len(m.forms)-1 {
			m.selectForm(m.formCursor + 1)
		}
		if m.focus == valuesPanel && m.valueCursor < len(m.rows)-1 {
			m.valueCursor++
			m.syncViewportContent()
		}
		return m, nil
	case "pgup":
		if m.focus == formsPanel {
			m.formsVP.HalfViewUp()
		} else {
			m.valuesVP.HalfViewUp()
		}
		return m, nil
	case "pgdown":
		if m.focus == formsPanel {
			m.formsVP.HalfViewDown()
		} else {
			m.valuesVP.HalfViewDown()
		}
		return m, nil
	case " ", "enter":
		entry, ok := m.current()
		if !ok || m.focus != valuesPanel || len(m.rows) == 0 {
			return m, nil
		}
		return m, selectCmd(m.client, entry.ID, m.rows[m.valueCursor].toggle())
	case "p":
		entry, ok := m.current()
		if !ok {
			return m, nil
		}
		return m, previewCmd(m.client, entry.ID, m.baseURL)
	case "d":
		entry, ok := m.current()
		if !ok {
			return m, nil
		}
		return m, deleteCmd(m.client, entry.ID)
	}
	return m, nil
}

func updateOpenMode(m model, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		path := strings.TrimSpace(m.input.Value())
		m.opening = false
		m.input.Blur()
		if path == "" {
			m.status = "open canceled"
			return m, nil
		}
		m.loading = true
		m.status = "parsing " + path
		return m, parseFileCmd(m.client, path)
	case "esc":
		m.opening = false
		m.input.Blur()
		m.status = "open canceled"
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) current() (formstore.Entry, bool) {
	if m.formCursor < 0 || m.formCursor >= len(m.forms) {
		return formstore.Entry{}, false
	}
	return m.forms[m.formCursor], true
}

func (m *model) selectForm(i int) {
	m.formCursor = i
	m.valueCursor = 0
	m.detail = ""
	m.syncViewportContent()
}

func (m *model) replace(entry formstore.Entry) {
	for i := range m.forms {
		if m.forms[i].ID == entry.ID {
			m.forms[i] = entry
			return
		}
	}
}

func (m *model) syncLayout() {
	paneH := max(10, m.height-20)
	paneW := max(40, m.width/2-2)
	m.formsVP.Width = paneW - 2
	m.formsVP.Height = paneH
	m.valuesVP.Width = paneW - 2
	m.valuesVP.Height = paneH
}

func (m *model) syncViewportContent() {
	m.rows = nil
	if entry, ok := m.current(); ok {
		m.rows = valueRows(entry.Form)
	}
	if m.valueCursor >= len(m.rows) {
		m.valueCursor = max(0, len(m.rows)-1)
	}
	m.formsVP.SetContent(m.renderFormRows())
	m.valuesVP.SetContent(m.renderValueRows())
	m.ensureCursorVisible()
}

func (m *model) ensureCursorVisible() {
	if m.focus == formsPanel {
		m.formsVP.SetYOffset(m.formCursor * 2)
		return
	}
	m.valuesVP.SetYOffset(m.valueCursor)
}

func (m model) renderFormRows() string {
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	normalStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	if len(m.forms) == 0 {
		return normalStyle.Render("(none) press o to parse an HTML file")
	}
	lines := make([]string, 0, len(m.forms)*2)
	for i, f := range m.forms {
		pref := "  "
		if i == m.formCursor {
			pref = "> "
		}
		row := fmt.Sprintf("%s%s  %s  %s", pref, shortID(f.ID), formLabel(f), f.Form.Method)
		if i == m.formCursor {
			row = cursorStyle.Render(row)
		}
		lines = append(lines, zone.Mark("form-"+f.ID, row))
		lines = append(lines, fmt.Sprintf("    %s  %d fields  %d controls  updated %s",
			emptyDefault(f.Source, "-"), len(f.Form.Fields), len(f.Form.Controls), timeAgo(f.UpdatedAt)))
	}
	return strings.Join(lines, "\n")
}

func (m model) renderValueRows() string {
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	headStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	normalStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	if len(m.rows) == 0 {
		return normalStyle.Render("(no values)")
	}
	lines := make([]string, 0, len(m.rows)+2)
	section := ""
	for i, r := range m.rows {
		if r.collection != section {
			section = r.collection
			lines = append(lines, headStyle.Render(section))
		}
		row := r.String()
		if i == m.valueCursor && m.focus == valuesPanel {
			row = cursorStyle.Render("> " + row)
		} else {
			row = "  " + row
		}
		lines = append(lines, zone.Mark(fmt.Sprintf("value-%d", i), row))
	}
	if m.detail != "" {
		lines = append(lines, "", m.detail)
	}
	return strings.Join(lines, "\n")
}

func (m model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	normalStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))

	leftTitle := normalStyle.Render("Stored Forms")
	rightTitle := normalStyle.Render("Values")
	if m.focus == formsPanel {
		leftTitle = focusStyle.Render("Stored Forms")
	} else {
		rightTitle = focusStyle.Render("Values")
	}

	paneStyle := lipgloss.NewStyle().Width(max(40, m.width/2-2)).Border(lipgloss.RoundedBorder()).Padding(0, 1)
	leftPane := paneStyle.Render(leftTitle + "\n" + m.formsVP.View())
	rightPane := paneStyle.Render(rightTitle + "\n" + m.valuesVP.View())

	card := lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())
	cards := lipgloss.JoinHorizontal(
		lipgloss.Top,
		card.Render(fmt.Sprintf("Forms\n%d", int(math.Round(m.animF)))),
		card.Render(fmt.Sprintf("Clients\n%d", m.clients)),
		card.Render(fmt.Sprintf("Cached pages\n%d", m.cachedPages)),
		card.Render(fmt.Sprintf("Updated\n%s", lastUpdatedText(m.lastUpdated))),
	)
	chartPanel := card.Render("Stored forms\n" + m.chart.View())

	activity := ""
	if m.loading {
		activity = m.spin.View() + " working"
	}
	bottom := normalStyle.Render("mouse: click row | tab panel | j/k move | space toggle | p preview | d delete | o open | r refresh | q quit")
	if m.opening {
		bottom = m.input.View()
	}
	status := titleStyle.Render("status: ") + m.status + " " + activity

	return zone.Scan(strings.Join([]string{
		titleStyle.Render("htmlform"),
		cards,
		chartPanel,
		lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane),
		status,
		bottom,
	}, "\n"))
}

func fetchCmd(client *apiclient.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		forms, err := client.List(ctx)
		if err != nil {
			return loadResultMsg{err: err}
		}
		status, err := client.Status(ctx)
		if err != nil {
			return loadResultMsg{err: err}
		}
		return loadResultMsg{forms: forms, status: status, at: time.Now()}
	}
}

func selectCmd(client *apiclient.Client, id string, payload api.SelectPayload) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		entry, err := client.Select(ctx, id, payload)
		return selectResultMsg{entry: entry, err: err}
	}
}

func parseFileCmd(client *apiclient.Client, path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return parseResultMsg{path: path, err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		entries, err := client.Parse(ctx, api.ParsePayload{
			ParseRequest: service.ParseRequest{Markup: string(data), Source: path},
			All:          true,
		})
		return parseResultMsg{path: path, entries: entries, err: err}
	}
}

func deleteCmd(client *apiclient.Client, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return deleteResultMsg{id: id, err: client.Delete(ctx, id)}
	}
}

func previewCmd(client *apiclient.Client, id, base string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		preview, err := client.Request(ctx, id, base)
		if err != nil {
			return previewResultMsg{err: err}
		}
		sub, err := client.Submission(ctx, id)
		return previewResultMsg{preview: preview, sub: sub, err: err}
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func main() {
	zone.NewGlobal()
	settings, err := config.LoadOrCreate("")
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		return
	}
	client := apiclient.New(settings.ClientBaseURL, settings.APIToken, &http.Client{Timeout: 4 * time.Second})
	m := newModel(client, settings)
	m.syncLayout()
	m.syncViewportContent()
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run(); err != nil {
		fmt.Printf("tui error: %v\n", err)
	}
}
