// Package tui is the interactive queue browser.
package tui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobimport/internal/importer"
	"github.com/amishk599/jobimport/internal/model"
)

// Source is the queue side the browser reads and acts on.
type Source interface {
	Status(ctx context.Context) (importer.StatusReport, error)
	RetryFailed(ctx context.Context) (int, error)
	Rescrape(ctx context.Context, id string) (*model.QueueItem, error)
}

// ListingLookup loads the listing an item produced.
type ListingLookup interface {
	Get(ctx context.Context, id string) (*model.JobListing, error)
}

// Lines per item in the list view (url + subtitle + blank separator).
const itemHeight = 3

const timeLayout = "2006-01-02 15:04"

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

const (
	paneActive = iota // Pending and Processing
	paneDone          // Completed and Failed
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle   = headerStyle.Foreground(lipgloss.Color("39"))
	inactiveHeaderStyle = headerStyle.Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemTitleStyle         = lipgloss.NewStyle().Bold(true)
	itemSubtitleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedItemTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))
	selectedItemSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	statusStyles = map[model.QueueStatus]lipgloss.Style{
		model.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		model.StatusProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		model.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		model.StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// listingLoadedMsg is sent when an async listing lookup completes.
type listingLoadedMsg struct {
	itemID  string
	listing *model.JobListing
	err     error
}

// actionDoneMsg is sent when a retry or rescrape completes.
type actionDoneMsg struct {
	notice string
	err    error
}

type browseModel struct {
	source   Source
	listings ListingLookup

	counts    model.QueueCounts
	panes     [2][]importer.RecentItem
	viewports [2]viewport.Model
	cursors   [2]int
	active    int
	width     int
	height    int
	ready     bool
	notice    string
	lastErr   string

	view            viewState
	detail          importer.RecentItem
	listing         *model.JobListing
	listingLoading  bool
	listingError    string
	detailViewport  viewport.Model
	showDescription bool
}

func newBrowseModel(report importer.StatusReport, source Source, listings ListingLookup) browseModel {
	m := browseModel{source: source, listings: listings}
	m.setReport(report)
	return m
}

// setReport splits the recent items into the two panes, keeping cursors in range.
func (m *browseModel) setReport(report importer.StatusReport) {
	m.counts = report.Counts
	m.panes = [2][]importer.RecentItem{}
	for _, it := range report.Recent {
		switch it.Status {
		case model.StatusPending, model.StatusProcessing:
			m.panes[paneActive] = append(m.panes[paneActive], it)
		default:
			m.panes[paneDone] = append(m.panes[paneDone], it)
		}
	}
	for i := range m.cursors {
		m.cursors[i] = clamp(m.cursors[i], 0, max(len(m.panes[i])-1, 0))
	}
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case statusLoadedMsg:
		if msg.err != nil {
			m.lastErr = fmt.Sprintf("refresh failed: %v", msg.err)
			return m, nil
		}
		m.lastErr = ""
		m.setReport(msg.report)
		if m.ready {
			m.recalcContent()
		}
		return m, nil

	case listingLoadedMsg:
		if msg.itemID != m.detail.ID {
			return m, nil
		}
		m.listingLoading = false
		if msg.err != nil {
			m.listingError = fmt.Sprintf("failed to load listing: %v", msg.err)
		} else {
			m.listingError = ""
			m.listing = msg.listing
		}
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			m.notice = ""
		} else {
			m.lastErr = ""
			m.notice = msg.notice
		}
		if m.view == viewDetail {
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, loadStatusCmd(m.source.Status)

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m browseModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "left", "right":
		m.active = 1 - m.active
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "g":
		return m, loadStatusCmd(m.source.Status)
	case "R":
		return m, retryFailedCmd(m.source)
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	m.viewports[m.active], cmd = m.viewports[m.active].Update(msg)
	return m, cmd
}

func (m browseModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detail.URL)
		return m, nil
	case "d":
		if m.listing != nil {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	case "r":
		if m.detail.Status != model.StatusProcessing {
			return m, rescrapeCmd(m.source, m.detail.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func retryFailedCmd(source Source) tea.Cmd {
	return func() tea.Msg {
		n, err := source.RetryFailed(context.Background())
		if err != nil {
			return actionDoneMsg{err: fmt.Errorf("retry failed: %w", err)}
		}
		return actionDoneMsg{notice: fmt.Sprintf("%d failed imports reset to pending", n)}
	}
}

func rescrapeCmd(source Source, id string) tea.Cmd {
	return func() tea.Msg {
		if _, err := source.Rescrape(context.Background(), id); err != nil {
			return actionDoneMsg{err: fmt.Errorf("rescrape failed: %w", err)}
		}
		return actionDoneMsg{notice: "queued for re-scrape"}
	}
}

func loadListingCmd(listings ListingLookup, itemID, listingID string) tea.Cmd {
	return func() tea.Msg {
		l, err := listings.Get(context.Background(), listingID)
		return listingLoadedMsg{itemID: itemID, listing: l, err: err}
	}
}

func (m *browseModel) moveCursor(delta int) {
	m.cursors[m.active] = clamp(m.cursors[m.active]+delta, 0, max(len(m.panes[m.active])-1, 0))
}

func (m *browseModel) ensureCursorVisible() {
	vp := &m.viewports[m.active]
	cursorTop := m.cursors[m.active] * itemHeight
	cursorBottom := cursorTop + itemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m browseModel) openDetailView() (tea.Model, tea.Cmd) {
	items := m.panes[m.active]
	if len(items) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detail = items[m.cursors[m.active]]
	m.listing = nil
	m.listingError = ""
	m.showDescription = false
	m.notice = ""
	m.detailViewport = viewport.New(m.width-4, m.height-4)

	var cmd tea.Cmd
	if m.listings != nil && m.detail.ListingID != "" {
		m.listingLoading = true
		cmd = loadListingCmd(m.listings, m.detail.ID, m.detail.ListingID)
	}
	m.detailViewport.SetContent(m.renderDetail())
	return m, cmd
}

func (m *browseModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		for i := range m.viewports {
			m.viewports[i] = viewport.New(paneWidth, paneHeight)
		}
		m.ready = true
	} else {
		for i := range m.viewports {
			m.viewports[i].Width = paneWidth
			m.viewports[i].Height = paneHeight
		}
	}

	m.recalcContent()
}

func (m *browseModel) recalcContent() {
	for i := range m.viewports {
		m.viewports[i].SetContent(renderItems(m.panes[i], m.cursors[i], m.active == i))
	}
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m browseModel) viewList() string {
	paneWidth := m.viewports[0].Width
	headers := [2]string{
		fmt.Sprintf(" In Queue (%d)", len(m.panes[paneActive])),
		fmt.Sprintf(" Finished (%d)", len(m.panes[paneDone])),
	}

	var rendered [2]string
	var headerRow [2]string
	for i := range headers {
		border := inactiveBorderStyle
		hdr := inactiveHeaderStyle
		if m.active == i {
			border = activeBorderStyle
			hdr = activeHeaderStyle
		}
		rendered[i] = border.Width(paneWidth).Render(m.viewports[i].View())
		headerRow[i] = lipgloss.NewStyle().Width(paneWidth + 2).Render(hdr.Render(headers[i]))
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, headerRow[0], " ", headerRow[1])
	panes := lipgloss.JoinHorizontal(lipgloss.Top, rendered[0], " ", rendered[1])

	statusText := fmt.Sprintf(" %d pending | %d processing | %d completed | %d failed    Tab switch  ↑/↓ cursor  Enter detail  R retry failed  g refresh  q quit",
		m.counts.Pending, m.counts.Processing, m.counts.Completed, m.counts.Failed)
	switch {
	case m.lastErr != "":
		statusText = " ⚠ " + m.lastErr
	case m.notice != "":
		statusText = " " + m.notice + "    g refresh  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return top + "\n" + panes + "\n" + statusBar
}

func (m browseModel) viewDetail() string {
	title := detailTitleStyle.Render("Import Details")
	if m.listingLoading {
		title += "  (loading...)"
	}

	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())

	statusText := " o open URL  esc/backspace back  ↑/↓ scroll  q quit"
	if m.detail.Status != model.StatusProcessing {
		statusText = " o open URL  r re-scrape  esc/backspace back  ↑/↓ scroll  q quit"
	}
	if m.listing != nil {
		statusText = strings.Replace(statusText, "  esc", "  d description  esc", 1)
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m browseModel) renderDetail() string {
	it := m.detail
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("URL", it.URL)
	addField("Queue ID", it.ID)
	addField("Status", statusBadge(it.Status))
	addField("Prefer AI", yesNo(it.PreferAI))
	addField("Force Update", yesNo(it.ForceUpdate))
	addField("Submitted By", it.SubmittedBy)
	addField("Created", fmtTime(it.CreatedAt))
	addField("Updated", fmtTime(it.UpdatedAt))
	addField("Listing ID", it.ListingID)
	addField("Note", it.Note)
	if it.Error != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+it.Error) + "\n")
	}

	if m.notice != "" {
		b.WriteByte('\n')
		b.WriteString(noticeStyle.Render("✓ "+m.notice) + "\n")
	}
	if m.listingError != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+m.listingError) + "\n")
	}

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	l := m.listing
	if l == nil {
		return b.String()
	}

	b.WriteByte('\n')
	b.WriteString(divider("── Listing ") + "\n\n")
	addField("Title", l.Title)
	addField("Company", l.Company)
	addField("Location", l.Location)
	addField("Salary", l.Salary)
	addField("Employment", l.EmploymentType)
	addField("Type", string(l.Type))
	addField("Review Status", string(l.Status))
	addField("Experience", l.ExperienceLevel)
	addField("Applicants", fmt.Sprint(len(l.Applicants)))
	if len(l.TechStack) > 0 {
		addField("Tech Stack", strings.Join(l.TechStack, ", "))
	}
	if l.RequiredSkills.Len() > 0 {
		var skills []string
		for _, s := range l.RequiredSkills.Entries() {
			skills = append(skills, fmt.Sprintf("%s %d", s.Name, s.Level))
		}
		addField("Skills", strings.Join(skills, ", "))
	}

	for _, section := range []struct {
		label string
		lines []string
	}{
		{"── Requirements ", l.Requirements},
		{"── Responsibilities ", l.Responsibilities},
		{"── Benefits ", l.Benefits},
	} {
		if len(section.lines) == 0 {
			continue
		}
		b.WriteByte('\n')
		b.WriteString(divider(section.label) + "\n\n")
		for _, line := range section.lines {
			b.WriteString("  • " + line + "\n")
		}
	}

	b.WriteByte('\n')
	if m.showDescription {
		b.WriteString(divider("── Description ") + "\n\n")
		b.WriteString(wordWrap(l.Description, wrapWidth) + "\n")
	} else {
		b.WriteString(hintStyle.Render("  press d to read the description") + "\n")
	}
	return b.String()
}

func renderItems(items []importer.RecentItem, cursor int, isActive bool) string {
	if len(items) == 0 {
		return "  (no items)"
	}

	var b strings.Builder
	for i, it := range items {
		titleSt := itemTitleStyle
		subtitleSt := itemSubtitleStyle
		prefix := "  "
		if isActive && i == cursor {
			titleSt = selectedItemTitleStyle
			subtitleSt = selectedItemSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(it.URL))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(statusBadge(it.Status))
		b.WriteString(subtitleSt.Render(" · " + itemSummary(it)))
		b.WriteByte('\n')

		if i < len(items)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// itemSummary is the one-line subtitle of an item: its error, note or
// retry hint, then when it last changed.
func itemSummary(it importer.RecentItem) string {
	var parts []string
	switch {
	case it.Error != "":
		parts = append(parts, truncate(it.Error, 60))
	case it.Note != "":
		parts = append(parts, it.Note)
	}
	if it.CanRetry {
		parts = append(parts, "retryable")
	}
	parts = append(parts, fmtTime(it.UpdatedAt))
	return strings.Join(parts, " · ")
}

func statusBadge(s model.QueueStatus) string {
	st, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return st.Render(string(s))
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.Local().Format(timeLayout)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func wordWrap(text string, width int) string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) <= width {
				line += " " + w
			} else {
				out = append(out, line)
				line = w
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunBrowser launches the split-pane queue browser on an already loaded
// report. listings may be nil, in which case listing details are not shown.
func RunBrowser(report importer.StatusReport, source Source, listings ListingLookup) error {
	p := tea.NewProgram(newBrowseModel(report, source, listings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
