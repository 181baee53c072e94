package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/screenscout/screenscout/internal/brand"
	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/discovery"
	"github.com/screenscout/screenscout/internal/registry"
)

// Messages for the streaming scan session. Every message carries the
// session sequence number so events from a superseded session (after a
// rescan) are dropped instead of corrupting the list.
type scanStartedMsg struct {
	seq    int
	disc   discovery.Discoverer
	events <-chan discovery.Event
}

type scanFailedMsg struct {
	seq int
	err error
}

type deviceEventMsg struct {
	seq    int
	device *device.Device
}

type scanErrorMsg struct {
	seq int
	err error
}

type scanDoneMsg struct {
	seq int
}

type deviceSavedMsg struct {
	addr string
	err  error
}

// scanKeyMap defines key bindings for the scan screen
type scanKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Save   key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k scanKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Save, k.Rescan, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k scanKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Save},
		{k.Rescan, k.Quit},
	}
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *device.Device
	saved  bool
}

// FilterValue filters by name, address or manufacturer.
func (d deviceItem) FilterValue() string {
	return d.device.DisplayName() + " " + d.device.Addr + " " + d.device.Manufacturer
}

// Title returns the device name for list display
func (d deviceItem) Title() string {
	return d.device.DisplayName()
}

// Description returns device details for list display
func (d deviceItem) Description() string {
	parts := []string{d.device.Addr, d.device.Method.String()}
	if d.device.Model != "" {
		parts = append(parts, d.device.Model)
	}
	if d.saved {
		parts = append(parts, "saved")
	}
	return strings.Join(parts, " • ")
}

// deviceDelegate renders one device as a two-line row
type deviceDelegate struct{}

func (d deviceDelegate) Height() int { return 3 }

func (d deviceDelegate) Spacing() int { return 0 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(deviceItem)
	if !ok {
		return
	}

	name := di.device.DisplayName()
	badge := RenderBrandBadge(di.device.Brand)

	var title string
	if index == m.Index() {
		title = SelectedItemStyle.Render("→ "+name) + " " + badge
	} else {
		title = "  " + name + " " + badge
	}

	var detail string
	if di.saved {
		detail = "    " + DetailStyle.Render(di.device.Addr+" • "+di.device.Method.String()) +
			" " + SavedStyle.Render("✓ saved")
	} else {
		detail = "    " + DetailStyle.Render(di.Description())
	}

	fmt.Fprint(w, title+"\n"+detail+"\n")
}

// Model is the live scan screen: devices stream into the list while the
// discovery session runs, and the user can save entries to the registry
// as they appear.
type Model struct {
	opts discovery.Options
	reg  *registry.Registry

	// newDiscoverer builds the session discoverer. Swappable so tests
	// can feed scripted streams through the screen.
	newDiscoverer func(discovery.Options) discovery.Discoverer
	classifier    *brand.Classifier

	disc   discovery.Discoverer
	events <-chan discovery.Event
	seq    int

	DeviceList list.Model
	index      map[string]int

	Scanning      bool
	ScanStartTime time.Time
	StartErr      error
	ErrCount      int
	LastErr       string
	SavedCount    int

	Width  int
	Height int

	Spinner  spinner.Model
	Help     help.Model
	Keys     scanKeyMap
	quitting bool
}

// New creates the scan screen for the given discovery options. The
// registry may be nil, which disables saving.
func New(opts discovery.Options, reg *registry.Registry) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	deviceList := list.New([]list.Item{}, deviceDelegate{}, 0, 0)
	deviceList.Title = "Discovered Devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	deviceList.SetFilteringEnabled(true)
	deviceList.Styles.Title = TitleStyle

	keys := scanKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Save: key.NewBinding(
			key.WithKeys("enter", "s"),
			key.WithHelp("enter/s", "save device"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return Model{
		opts: opts,
		reg:  reg,
		newDiscoverer: func(o discovery.Options) discovery.Discoverer {
			return discovery.NewOrchestrator(o)
		},
		classifier: brand.NewClassifier(),
		DeviceList: deviceList,
		index:      make(map[string]int),
		Spinner:    s,
		Help:       help.New(),
		Keys:       keys,
	}
}

// Init starts the first scan immediately
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		startScan(m.seq, m.opts, m.newDiscoverer, nil),
		m.Spinner.Tick,
	)
}

// startScan winds down the previous session, if any, and launches a new
// one. The returned message carries the new session's stream.
func startScan(seq int, opts discovery.Options, build func(discovery.Options) discovery.Discoverer, previous discovery.Discoverer) tea.Cmd {
	return func() tea.Msg {
		if previous != nil {
			previous.Stop()
		}
		disc := build(opts)
		if err := disc.Start(context.Background()); err != nil {
			return scanFailedMsg{seq: seq, err: err}
		}
		return scanStartedMsg{seq: seq, disc: disc, events: disc.Events()}
	}
}

// waitForEvent blocks for the next stream event and hands it to Update.
// Update re-issues the command after consuming each event, so exactly
// one reader drains the stream.
func waitForEvent(seq int, events <-chan discovery.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return scanDoneMsg{seq: seq}
		}
		if ev.Err != nil {
			return scanErrorMsg{seq: seq, err: ev.Err}
		}
		return deviceEventMsg{seq: seq, device: ev.Device}
	}
}

// saveDevice persists one device to the registry.
func saveDevice(reg *registry.Registry, d *device.Device) tea.Cmd {
	return func() tea.Msg {
		if reg == nil {
			return deviceSavedMsg{addr: d.Addr, err: fmt.Errorf("no registry available")}
		}
		_, err := reg.Save(d)
		return deviceSavedMsg{addr: d.Addr, err: err}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetWidth(msg.Width - 4)
		m.DeviceList.SetHeight(msg.Height - 12)

	case scanStartedMsg:
		if msg.seq != m.seq {
			// A rescan superseded this session; wind it down.
			return m, func() tea.Msg { msg.disc.Stop(); return nil }
		}
		m.disc = msg.disc
		m.events = msg.events
		m.Scanning = true
		m.ScanStartTime = time.Now()
		return m, waitForEvent(m.seq, m.events)

	case scanFailedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.Scanning = false
		m.StartErr = msg.err

	case deviceEventMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.upsert(msg.device)
		return m, waitForEvent(m.seq, m.events)

	case scanErrorMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.ErrCount++
		m.LastErr = discovery.GetShortErrorMessage(msg.err)
		return m, waitForEvent(m.seq, m.events)

	case scanDoneMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.Scanning = false

	case deviceSavedMsg:
		if msg.err != nil {
			m.LastErr = fmt.Sprintf("save %s: %v", msg.addr, msg.err)
			return m, nil
		}
		m.markSaved(msg.addr)

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// updateKeys handles keyboard input
func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While the filter prompt is open the list owns every key.
	if m.DeviceList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.DeviceList, cmd = m.DeviceList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.quitting = true
		disc := m.disc
		return m, func() tea.Msg {
			if disc != nil {
				disc.Stop()
			}
			return tea.Quit()
		}

	case key.Matches(msg, m.Keys.Save):
		if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok && !item.saved {
			return m, saveDevice(m.reg, item.device)
		}
		return m, nil

	case key.Matches(msg, m.Keys.Rescan):
		previous := m.disc
		m.seq++
		m.disc = nil
		m.events = nil
		m.DeviceList.SetItems([]list.Item{})
		m.index = make(map[string]int)
		m.StartErr = nil
		m.ErrCount = 0
		m.LastErr = ""
		m.SavedCount = 0
		m.Scanning = true
		m.ScanStartTime = time.Now()
		return m, tea.Batch(
			startScan(m.seq, m.opts, m.newDiscoverer, previous),
			m.Spinner.Tick,
		)
	}

	var cmd tea.Cmd
	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// upsert inserts a device or replaces the record already shown for its
// address, preserving list position and saved marker.
func (m *Model) upsert(d *device.Device) {
	annotated := m.classifier.Annotate(d)

	items := m.DeviceList.Items()
	if i, ok := m.index[d.Addr]; ok {
		prev := items[i].(deviceItem)
		items[i] = deviceItem{device: annotated, saved: prev.saved}
		m.DeviceList.SetItems(items)
		return
	}
	m.index[d.Addr] = len(items)
	m.DeviceList.SetItems(append(items, deviceItem{device: annotated}))
}

// markSaved flags the row for addr as persisted.
func (m *Model) markSaved(addr string) {
	i, ok := m.index[addr]
	if !ok {
		return
	}
	items := m.DeviceList.Items()
	item := items[i].(deviceItem)
	if item.saved {
		return
	}
	item.saved = true
	items[i] = item
	m.DeviceList.SetItems(items)
	m.SavedCount++
}

// Devices returns the reconciled records in list order.
func (m Model) Devices() []*device.Device {
	items := m.DeviceList.Items()
	out := make([]*device.Device, 0, len(items))
	for _, it := range items {
		if di, ok := it.(deviceItem); ok {
			out = append(out, di.device)
		}
	}
	return out
}

// View renders the scan screen
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	var content string
	switch {
	case m.StartErr != nil:
		content = m.renderStartError()
	case len(m.DeviceList.Items()) == 0 && m.Scanning:
		content = m.renderSearching(width)
	case len(m.DeviceList.Items()) == 0:
		content = m.renderEmpty()
	default:
		content = m.renderResults()
	}

	footer := m.Help.View(m.Keys)
	return RenderAppFrame(content, footer, width, m.Height)
}

// renderSearching renders the centered wait state before the first
// device answers.
func (m Model) renderSearching(width int) string {
	elapsed := int(time.Since(m.ScanStartTime).Seconds())

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(fmt.Sprintf("%s SEARCHING FOR DEVICES", m.Spinner.View())),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Mode: %s • Elapsed: %ds", m.opts.Mode, elapsed)),
		"",
	)

	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderResults renders the streaming device list with a status line.
func (m Model) renderResults() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")
	b.WriteString(m.DeviceList.View())

	return b.String()
}

// renderEmpty renders the no-results state after the session ends.
func (m Model) renderEmpty() string {
	var b strings.Builder

	b.WriteString("\n  ")
	b.WriteString(WarningStyle.Render("⚠ No media devices found on your network"))
	b.WriteString("\n\n")
	b.WriteString("  Troubleshooting:\n")
	b.WriteString("    • Ensure the device is powered on and awake\n")
	b.WriteString("    • Check that it is on the same network segment\n")
	b.WriteString("    • Some devices only answer while their screen is on\n")
	b.WriteString("    • Try again with 'r'; SSDP answers can take a few seconds\n")

	return b.String()
}

// renderStartError renders a failed session start.
func (m Model) renderStartError() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.StartErr)))
	b.WriteString("\n\n")
	if hint := discovery.GetTroubleshootingHint(m.StartErr); hint != "" {
		b.WriteString("  " + hint + "\n")
	}

	return b.String()
}

// statusLine summarizes the running or finished session.
func (m Model) statusLine() string {
	found := len(m.DeviceList.Items())

	var b strings.Builder
	if m.Scanning {
		elapsed := int(time.Since(m.ScanStartTime).Seconds())
		b.WriteString(fmt.Sprintf("  %s Scanning… %d device(s) • %ds elapsed", m.Spinner.View(), found, elapsed))
	} else {
		b.WriteString(fmt.Sprintf("  Scan complete: %d device(s)", found))
	}
	if m.SavedCount > 0 {
		b.WriteString(fmt.Sprintf(" • %d saved", m.SavedCount))
	}
	if m.ErrCount > 0 {
		b.WriteString(DetailStyle.Render(fmt.Sprintf(" • %d probe error(s)", m.ErrCount)))
	}
	if m.LastErr != "" {
		b.WriteString("\n  " + DetailStyle.Render(m.LastErr))
	}

	return b.String()
}

// Run drives the scan screen to completion and returns the reconciled
// devices in display order.
func Run(opts discovery.Options, reg *registry.Registry) ([]*device.Device, error) {
	p := tea.NewProgram(New(opts, reg), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("scan view error: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Devices(), nil
	}
	return nil, nil
}
