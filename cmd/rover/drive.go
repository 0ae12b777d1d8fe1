package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tebeka/atexit"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/rover/pkg/input"
	"github.com/gwillem/rover/pkg/pipeline"
	"github.com/gwillem/rover/pkg/rover"
	"github.com/gwillem/rover/pkg/teleop"
	"github.com/gwillem/rover/pkg/transport"
)

type DriveCommand struct {
	NoVideo bool `long:"no-video" description:"Do not start the camera pipeline"`
	Step    int  `long:"step" default:"10" description:"Stick change per key press"`
}

const (
	headerHeight = 3 // title + status + blank line
	legendHeight = 2 // legend row + blank
	fieldsHeight = 2 // host/port row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Motor colors
var motorColors = map[rover.Motor]string{
	rover.LeftMotor:  "46", // green
	rover.RightMotor: "51", // cyan
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	runningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	stoppedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

type driveModel struct {
	ctx       context.Context
	ctrl      *teleop.Controller
	coord     *pipeline.Coordinator // nil without video
	meter     *videoMeter
	chart     *streamlinechart.Model
	host      textinput.Model
	port      textinput.Model
	step      int
	gamepad   string
	width     int // terminal width
	height    int // terminal height
	logs      []string
	last      teleop.State
	lastDrawn teleop.State
	quitting  bool
}

func (m *driveModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller and the pipeline
type stateMsg teleop.State
type logMsg string
type statusMsg string
type secondMsg time.Time

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

func waitForStatus(coord *pipeline.Coordinator) tea.Cmd {
	return func() tea.Msg {
		return statusMsg(<-coord.Status())
	}
}

func everySecond() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return secondMsg(t)
	})
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *driveModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-fieldsHeight-footerHeight-borderSize, 8)
	return width, height
}

func (m *driveModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func newField(label, value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = label + ": "
	ti.SetValue(value)
	ti.CharLimit = 64
	ti.Width = 20
	return ti
}

func initialDriveModel(ctx context.Context, ctrl *teleop.Controller, coord *pipeline.Coordinator, meter *videoMeter, step int, gamepad string) driveModel {
	top := float64(rover.AxisIntensity(rover.StickMin, rover.MaxSpeed))
	chart := streamlinechart.New(80, 16,
		streamlinechart.WithYRange(0, top),
	)
	for _, motor := range rover.AllMotors() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[motor]))
		chart.SetDataSetStyles(string(motor), runes.ThinLineStyle, style)
	}

	snap := ctrl.Inputs().Snapshot()
	return driveModel{
		ctx:     ctx,
		ctrl:    ctrl,
		coord:   coord,
		meter:   meter,
		chart:   &chart,
		host:    newField("host", snap.Host),
		port:    newField("port", snap.Port),
		step:    step,
		gamepad: gamepad,
	}
}

func (m driveModel) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
		everySecond(),
	}
	if m.coord != nil {
		cmds = append(cmds, waitForStatus(m.coord))
	}
	return tea.Batch(cmds...)
}

func (m driveModel) editing() bool {
	return m.host.Focused() || m.port.Focused()
}

// cycleFocus moves focus none -> host -> port -> none.
func (m *driveModel) cycleFocus() tea.Cmd {
	switch {
	case m.host.Focused():
		m.host.Blur()
		return m.port.Focus()
	case m.port.Focused():
		m.port.Blur()
		return nil
	default:
		return m.host.Focus()
	}
}

func (m *driveModel) post(kind pipeline.EventKind) {
	if m.coord != nil {
		m.coord.Post(pipeline.Event{Kind: kind})
	}
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.FocusMsg:
		m.post(pipeline.AppResumed)
		return m, nil

	case tea.BlurMsg:
		m.post(pipeline.AppPaused)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if msg.String() == "tab" {
			return m, m.cycleFocus()
		}
		if m.editing() {
			if msg.String() == "esc" || msg.String() == "enter" {
				m.host.Blur()
				m.port.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			if m.host.Focused() {
				m.host, cmd = m.host.Update(msg)
			} else {
				m.port, cmd = m.port.Update(msg)
			}
			// Published as typed; a half-typed value only skips ticks.
			m.ctrl.Inputs().SetDestination(m.host.Value(), m.port.Value())
			return m, cmd
		}

		inputs := m.ctrl.Inputs()
		switch key := msg.String(); key {
		case "q":
			m.quitting = true
			return m, tea.Quit
		case " ":
			if _, err := m.ctrl.Toggle(m.ctx); err != nil {
				m.addLog(fmt.Sprintf("[%s] %v", time.Now().Format("15:04:05"), err))
			}
		case "w":
			inputs.Nudge(rover.LeftMotor, m.step)
		case "s":
			inputs.Nudge(rover.LeftMotor, -m.step)
		case "i":
			inputs.Nudge(rover.RightMotor, m.step)
		case "k":
			inputs.Nudge(rover.RightMotor, -m.step)
		case "x":
			inputs.Center()
		case "1", "2", "3", "4", "5", "6", "7", "8", "9", "0":
			speed := int(key[0] - '0')
			if speed == 0 {
				speed = rover.MaxSpeed
			}
			if err := inputs.SetSpeed(speed); err != nil {
				m.addLog(fmt.Sprintf("[%s] %v", time.Now().Format("15:04:05"), err))
			}
		}
		return m, nil

	case stateMsg:
		state := teleop.State(msg)
		m.last = state
		if state.Error == nil && (state.Left != m.lastDrawn.Left || state.Right != m.lastDrawn.Right || m.lastDrawn.Tick == 0) {
			m.chart.PushDataSet(string(rover.LeftMotor), float64(state.Left.Magnitude()))
			m.chart.PushDataSet(string(rover.RightMotor), float64(state.Right.Magnitude()))
			m.chart.DrawAll()
			m.lastDrawn = state
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case statusMsg:
		m.addLog("video: " + string(msg))
		return m, waitForStatus(m.coord)

	case secondMsg:
		if m.meter != nil {
			m.meter.Sample()
		}
		return m, everySecond()
	}

	return m, nil
}

func (m driveModel) View() string {
	if m.quitting {
		return "Driving stopped.\n"
	}

	var sb strings.Builder
	snap := m.ctrl.Inputs().Snapshot()

	// Header
	sb.WriteString(titleStyle.Render("Rover Drive"))
	sb.WriteString(fmt.Sprintf(" - %d Hz ", m.ctrl.Hz()))
	if m.ctrl.Running() {
		sb.WriteString(runningStyle.Render("STREAMING"))
	} else {
		sb.WriteString(stoppedStyle.Render("STOPPED"))
	}
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(m.statusLine(snap)))
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(m.renderLegend(snap))
	sb.WriteString("\n\n")

	// Destination fields
	sb.WriteString(m.host.View())
	sb.WriteString("  ")
	sb.WriteString(m.port.View())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("space start/stop  w/s left  i/k right  x center  1-0 speed  tab edit address  q quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m driveModel) statusLine(snap teleop.Snapshot) string {
	parts := []string{
		fmt.Sprintf("speed %d", snap.Speed),
		fmt.Sprintf("ticks %d", m.ctrl.Ticks()),
	}
	if id := m.ctrl.SessionID(); id != "" {
		parts = append(parts, "session "+shortID(id))
	}
	if m.gamepad != "" {
		parts = append(parts, "pad "+m.gamepad)
	}
	if m.coord != nil {
		parts = append(parts, "video "+m.coord.State().String()+" "+m.meter.String())
	} else {
		parts = append(parts, "video off")
	}
	if m.last.Error != nil {
		parts = append(parts, "last tick failed")
	}
	return strings.Join(parts, " · ")
}

func (m driveModel) renderLegend(snap teleop.Snapshot) string {
	sticks := map[rover.Motor]int{
		rover.LeftMotor:  snap.Sticks.LeftY,
		rover.RightMotor: snap.Sticks.RightY,
	}
	values := map[rover.Motor]rover.Intensity{
		rover.LeftMotor:  m.last.Left,
		rover.RightMotor: m.last.Right,
	}

	var items []string
	for _, motor := range rover.AllMotors() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[motor])).Bold(true)
		item := colorStyle.Render("━━") + fmt.Sprintf(" %s stick %4d → %4d", motor.Label(), sticks[motor], values[motor])
		items = append(items, item)
	}
	if m.last.Frame != "" {
		items = append(items, statusStyle.Render(m.last.Frame.String()))
	}
	return strings.Join(items, "   ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (c *DriveCommand) Execute(args []string) error {
	logger := setupLogging()

	cfg, found := loadConfig()
	if !found {
		fmt.Fprintf(os.Stderr, "No configuration found at %s. Run 'rover setup' first.\n", opts.Config)
		atexit.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		atexit.Exit(1)
	}
	fmt.Printf("Loaded configuration from %s\n", opts.Config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl, recorder, err := newController(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create controller: %v\n", err)
		atexit.Exit(1)
	}

	var gamepad string
	if cfg.Joystick.Enabled {
		pad, err := input.Open(cfg.Joystick, logger)
		if err != nil {
			logger.Warn("drive: gamepad unavailable", "error", err)
		} else {
			gamepad = pad.Name()
			go func() {
				defer pad.Close()
				if err := pad.Run(ctx, ctrl.Inputs()); err != nil {
					logger.Warn("drive: gamepad stopped", "error", err)
				}
			}()
		}
	}

	var coord *pipeline.Coordinator
	var meter *videoMeter
	if !c.NoVideo {
		coord, meter = startVideo(ctx, cfg, logger)
	}

	// Teardown runs on normal exit and on atexit.Exit from anywhere.
	atexit.Register(func() {
		if err := ctrl.Close(); err != nil {
			logger.Warn("drive: closing session", "error", err)
		}
		if coord != nil {
			_ = coord.Handle(pipeline.Event{Kind: pipeline.SurfaceDestroyed})
			_ = coord.Handle(pipeline.Event{Kind: pipeline.AppDestroyed})
		}
		if recorder != nil {
			logger.Info("drive: recording closed", "packets", recorder.Packets())
			recorder.Close()
		}
	})

	p := tea.NewProgram(
		initialDriveModel(ctx, ctrl, coord, meter, c.Step, gamepad),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		atexit.Exit(1)
	}

	return nil
}

// newController wires the link selected in cfg, with optional recording.
func newController(cfg *rover.Config, logger *slog.Logger) (*teleop.Controller, *transport.Recorder, error) {
	var tap transport.Tap
	var recorder *transport.Recorder
	if cfg.Record != "" {
		r, err := transport.CreateRecorder(cfg.Record, logger)
		if err != nil {
			return nil, nil, err
		}
		recorder, tap = r, r
	}

	ctrl, err := teleop.NewController(teleop.Config{
		Inputs:   teleop.NewInputs(cfg),
		Opener:   transport.NewOpener(cfg, tap, logger),
		Interval: cfg.Interval(),
		BindPort: cfg.BindPort,
		Logger:   logger,
	})
	if err != nil {
		if recorder != nil {
			recorder.Close()
		}
		return nil, nil, err
	}
	return ctrl, recorder, nil
}

// startVideo builds the camera pipeline and hands it the terminal's video
// meter as its surface. It returns nils when video is unavailable.
func startVideo(ctx context.Context, cfg *rover.Config, logger *slog.Logger) (*pipeline.Coordinator, *videoMeter) {
	vp, err := pipeline.NewVideoPipeline(cfg.Video, logger)
	if err != nil {
		logger.Info("drive: video disabled", "reason", err)
		return nil, nil
	}

	coord := pipeline.NewCoordinator(vp, logger)
	go func() {
		if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("drive: video coordinator stopped", "error", err)
		}
	}()

	meter := &videoMeter{}
	coord.Post(pipeline.Event{Kind: pipeline.AppCreated})
	coord.Post(pipeline.Event{Kind: pipeline.SurfaceAvailable, Surface: meter})
	return coord, meter
}
