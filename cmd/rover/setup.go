package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tebeka/atexit"

	"github.com/gwillem/rover/pkg/input"
	"github.com/gwillem/rover/pkg/rover"
	"github.com/gwillem/rover/pkg/transport"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// linkCheckFrames is the number of stop frames sent to verify the link.
const linkCheckFrames = 20

type SetupCommand struct {
	SkipCheck bool `long:"skip-check" description:"Do not send test frames to the rover"`
}

func (c *SetupCommand) Execute(args []string) error {
	logger := setupLogging()

	fmt.Println(headerStyle.Render("Rover Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━"))
	fmt.Println()

	cfg, existed := loadConfig()
	if existed {
		fmt.Printf("Editing %s\n\n", opts.Config)
	}

	// Step 1: where the rover is
	askDestination(cfg)

	// Step 2: how to reach it
	fmt.Println(subHeaderStyle.Render("━━━ Link ━━━"))
	fmt.Println()
	askLink(cfg)

	// Step 3: camera and inputs
	askExtras(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		atexit.Exit(1)
	}

	if !c.SkipCheck {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Checking link ━━━"))
		fmt.Println()
		checkLink(cfg, logger)
	}

	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		atexit.Exit(1)
	}

	fmt.Println()
	fmt.Println(summaryTable(cfg))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start driving with: " + headerStyle.Render("rover drive"))

	return nil
}

func runForm(form *huh.Form) {
	if err := form.Run(); err != nil {
		fmt.Println()
		atexit.Exit(0)
	}
}

func askDestination(cfg *rover.Config) {
	host := cfg.Host
	port := strconv.Itoa(cfg.Port)
	speed := cfg.Speed

	speeds := make([]huh.Option[int], 0, rover.MaxSpeed)
	for s := rover.MinSpeed; s <= rover.MaxSpeed; s++ {
		speeds = append(speeds, huh.NewOption(strconv.Itoa(s), s))
	}

	runForm(huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Rover address").
				Description("Host name or IP of the rover").
				Value(&host).
				Validate(func(s string) error {
					_, err := rover.ParseDestination(s, "1")
					return err
				}),
			huh.NewInput().
				Title("Rover port").
				Description("UDP port the rover listens on").
				Value(&port).
				Validate(func(s string) error {
					_, err := rover.ParseDestination("rover", s)
					return err
				}),
			huh.NewSelect[int]().
				Title("Initial speed").
				Options(speeds...).
				Value(&speed),
		),
	))

	dest, _ := rover.ParseDestination(host, port)
	cfg.Host = dest.Host
	cfg.Port = dest.Port
	cfg.Speed = speed
}

func askLink(cfg *rover.Config) {
	link := cfg.Link
	if link == "" {
		link = rover.LinkUDP
	}

	ports, err := transport.ListSerialPorts()
	if err != nil {
		fmt.Println(dimStyle.Render(fmt.Sprintf("Serial ports unavailable: %v", err)))
	}

	options := []huh.Option[string]{
		huh.NewOption("Wi-Fi (UDP)", rover.LinkUDP),
	}
	if len(ports) > 0 {
		options = append(options, huh.NewOption("USB cable (serial)", rover.LinkSerial))
	}

	runForm(huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How is the rover connected?").
				Options(options...).
				Value(&link),
		),
	))
	cfg.Link = link

	if link != rover.LinkSerial {
		return
	}

	device := cfg.Serial.Device
	var portOptions []huh.Option[string]
	for _, p := range ports {
		portOptions = append(portOptions, huh.NewOption(p, p))
	}
	runForm(huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which serial port?").
				Options(portOptions...).
				Value(&device),
		),
	))
	cfg.Serial.Device = device
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = rover.DefaultBaud
	}
}

func askExtras(cfg *rover.Config) {
	camera := cfg.Video.Launch
	useJoystick := cfg.Joystick.Enabled
	record := cfg.Record

	runForm(huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Camera pipeline").
				Description("GStreamer launch line, must end in an appsink named "+rover.DefaultSinkName).
				Value(&camera),
			huh.NewConfirm().
				Title("Drive with a gamepad?").
				Value(&useJoystick),
			huh.NewInput().
				Title("Record frames").
				Description("pcap file to record sent frames to, empty to disable").
				Value(&record),
		),
	))

	cfg.Video.Launch = camera
	cfg.Joystick.Enabled = useJoystick
	cfg.Record = record

	if useJoystick {
		pad, err := input.Open(cfg.Joystick, slog.Default())
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("No gamepad found: %v", err)))
			return
		}
		fmt.Println(successStyle.Render("Gamepad found: ") + pad.Name())
		pad.Close()
	}
}

// Link check TUI model
type linkCheckModel struct {
	session transport.Session
	dest    rover.Destination
	frame   rover.Frame
	sent    int
	failed  int
	lastErr error
	done    bool
}

type checkTickMsg time.Time

func checkTick() tea.Cmd {
	return tea.Tick(rover.DefaultInterval, func(t time.Time) tea.Msg {
		return checkTickMsg(t)
	})
}

func (m linkCheckModel) Init() tea.Cmd {
	return checkTick()
}

func (m linkCheckModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.done = true
			return m, tea.Quit
		}

	case checkTickMsg:
		if m.sent+m.failed >= linkCheckFrames {
			m.done = true
			return m, tea.Quit
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := m.session.Send(ctx, m.dest, m.frame)
		cancel()
		if err != nil {
			m.failed++
			m.lastErr = err
		} else {
			m.sent++
		}
		return m, checkTick()
	}

	return m, nil
}

func (m linkCheckModel) View() string {
	rows := [][]string{
		{"Destination", m.dest.String()},
		{"Session", m.session.ID()},
		{"Frame", m.frame.String()},
		{"Sent", strconv.Itoa(m.sent)},
		{"Failed", strconv.Itoa(m.failed)},
	}
	if m.lastErr != nil {
		rows = append(rows, []string{"Last error", m.lastErr.Error()})
	}

	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			if row == 4 && m.failed > 0 {
				return cellStyle.Foreground(lipgloss.Color("9"))
			}
			return cellStyle
		})

	if m.done {
		return t.Render() + "\n"
	}
	return t.Render() + "\n\n" + dimStyle.Render("Sending stop frames, press Enter to skip")
}

// checkLink opens a session and sends stop frames, so the rover stays put
// while the link is verified.
func checkLink(cfg *rover.Config, logger *slog.Logger) {
	dest, err := rover.ParseDestination(cfg.Host, strconv.Itoa(cfg.Port))
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		return
	}

	session, err := transport.NewOpener(cfg, nil, logger).Open(cfg.LocalPort())
	if err != nil {
		fmt.Println(errorStyle.Render(fmt.Sprintf("Cannot open link: %v", err)))
		return
	}
	defer session.Close()

	model := linkCheckModel{
		session: session,
		dest:    dest,
		frame:   rover.Encode(0, 0),
	}
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running link check: %v\n", err)
		return
	}

	m := final.(linkCheckModel)
	switch {
	case m.sent == 0:
		fmt.Println(errorStyle.Render("No frames could be sent. Check the address and network."))
	case m.failed > 0:
		fmt.Println(errorStyle.Render(fmt.Sprintf("%d of %d frames failed.", m.failed, m.sent+m.failed)))
	default:
		fmt.Println(successStyle.Render("Link OK."))
	}
}

func summaryTable(cfg *rover.Config) string {
	link := cfg.Link
	if link == rover.LinkSerial {
		link = fmt.Sprintf("serial %s @ %d", cfg.Serial.Device, cfg.Serial.Baud)
	}
	joystick := "off"
	if cfg.Joystick.Enabled {
		joystick = fmt.Sprintf("device %d, axes %d/%d", cfg.Joystick.Index, cfg.Joystick.LeftAxis, cfg.Joystick.RightAxis)
	}
	record := cfg.Record
	if record == "" {
		record = "off"
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Setting", "Value").
		Rows(
			[]string{"Rover", roverAddr(cfg)},
			[]string{"Link", link},
			[]string{"Speed", strconv.Itoa(cfg.Speed)},
			[]string{"Gamepad", joystick},
			[]string{"Recording", record},
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Render()
}

func roverAddr(cfg *rover.Config) string {
	return rover.Destination{Host: cfg.Host, Port: cfg.Port}.String()
}
