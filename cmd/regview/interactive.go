package main

import (
	stderrors "errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tidegfx/bindless/config"
	"github.com/tidegfx/bindless/errors"
	"github.com/tidegfx/bindless/gpu"
	"github.com/tidegfx/bindless/handle"
	"github.com/tidegfx/bindless/registry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F5FD7")).
			Padding(0, 1)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	usedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	freeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#C0C0C0"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const eventLogSize = 64

type inspectorModel struct {
	err     error
	reg     *registry.Registry
	backend *simBackend
	rng     *rand.Rand
	events  chan registry.Event
	log     viewport.Model
	lines   []string

	liveTextures []handle.Handle
	liveBuffers  []handle.Handle
	liveSamplers []handle.Handle

	auto  bool
	ready bool
}

type registryEventMsg registry.Event

type autoTickMsg time.Time

func newInspectorModel(cfg config.Config, failEvery int) (*inspectorModel, error) {
	m := &inspectorModel{
		backend: &simBackend{failEvery: failEvery},
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		events:  make(chan registry.Event, eventLogSize),
	}

	reg, err := registry.New(cfg, m.backend.hooks(), registry.WithObserver(func(e registry.Event) {
		// Drop events rather than block the registry's caller.
		select {
		case m.events <- e:
		default:
		}
	}))
	if err != nil {
		return nil, err
	}
	m.reg = reg
	return m, nil
}

func (m *inspectorModel) Init() tea.Cmd {
	return m.waitForEvent
}

func (m *inspectorModel) waitForEvent() tea.Msg {
	return registryEventMsg(<-m.events)
}

func autoTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return autoTickMsg(t)
	})
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - 16
		if height < 4 {
			height = 4
		}
		if !m.ready {
			m.log = viewport.New(msg.Width-2, height)
			m.ready = true
		} else {
			m.log.Width = msg.Width - 2
			m.log.Height = height
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.reg.Close()
			return m, tea.Quit

		case "t":
			m.allocTexture()
		case "b":
			m.allocBuffer()
		case "s":
			m.allocSampler()
		case "r":
			m.releaseRandom()
		case "a":
			m.auto = !m.auto
			if m.auto {
				return m, autoTick()
			}
		}

	case autoTickMsg:
		if !m.auto {
			return m, nil
		}
		m.churnOnce()
		return m, autoTick()

	case registryEventMsg:
		e := registry.Event(msg)
		line := fmt.Sprintf("%-7s %-8s %v", e.Type, e.Kind, e.Handle)
		if !e.Slot.IsNone() {
			line += fmt.Sprintf("  slot %d", e.Slot.Value())
		}
		if e.Type == registry.EventRetain || e.Type == registry.EventRelease {
			line += fmt.Sprintf("  rc %d", e.Refcount)
		}
		m.lines = append(m.lines, line)
		if len(m.lines) > eventLogSize {
			m.lines = m.lines[len(m.lines)-eventLogSize:]
		}
		if m.ready {
			m.log.SetContent(eventStyle.Render(strings.Join(m.lines, "\n")))
			m.log.GotoBottom()
		}
		return m, m.waitForEvent
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

func (m *inspectorModel) allocTexture() {
	h, err := m.reg.Textures().Alloc(randomTextureDesc(m.rng))
	if m.noteAllocErr(err) {
		return
	}
	m.liveTextures = append(m.liveTextures, h)
}

func (m *inspectorModel) allocBuffer() {
	h, err := m.reg.Buffers().Alloc(randomBufferDesc(m.rng))
	if m.noteAllocErr(err) {
		return
	}
	m.liveBuffers = append(m.liveBuffers, h)
}

func (m *inspectorModel) allocSampler() {
	h, err := m.reg.Samplers().Alloc(gpu.SamplerDesc{
		MinFilter: gpu.FilterLinear,
		MagFilter: gpu.FilterLinear,
	})
	if m.noteAllocErr(err) {
		return
	}
	m.liveSamplers = append(m.liveSamplers, h)
}

// noteAllocErr records expected failures in the event log and reports
// whether the allocation failed.
func (m *inspectorModel) noteAllocErr(err error) bool {
	if err == nil {
		m.err = nil
		return false
	}
	if stderrors.Is(err, errors.ErrExhausted) || stderrors.Is(err, errors.ErrConstructionFailed) {
		m.lines = append(m.lines, errorStyle.Render(err.Error()))
		if m.ready {
			m.log.SetContent(eventStyle.Render(strings.Join(m.lines, "\n")))
			m.log.GotoBottom()
		}
		return true
	}
	m.err = err
	return true
}

func (m *inspectorModel) releaseRandom() {
	switch {
	case len(m.liveTextures) > 0:
		i := m.rng.Intn(len(m.liveTextures))
		m.reg.Textures().Release(m.liveTextures[i])
		m.liveTextures = append(m.liveTextures[:i], m.liveTextures[i+1:]...)
	case len(m.liveBuffers) > 0:
		i := m.rng.Intn(len(m.liveBuffers))
		m.reg.Buffers().Release(m.liveBuffers[i])
		m.liveBuffers = append(m.liveBuffers[:i], m.liveBuffers[i+1:]...)
	case len(m.liveSamplers) > 0:
		i := m.rng.Intn(len(m.liveSamplers))
		m.reg.Samplers().Release(m.liveSamplers[i])
		m.liveSamplers = append(m.liveSamplers[:i], m.liveSamplers[i+1:]...)
	}
}

func (m *inspectorModel) churnOnce() {
	switch m.rng.Intn(5) {
	case 0, 1:
		m.allocTexture()
	case 2:
		m.allocBuffer()
	case 3:
		m.allocSampler()
	default:
		m.releaseRandom()
	}
}

func (m *inspectorModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("bindless registry inspector"))
	b.WriteString("\n\n")

	b.WriteString(occupancyLine("textures", m.reg.Textures().Snapshot()))
	b.WriteString(occupancyLine("buffers", m.reg.Buffers().Snapshot()))
	b.WriteString(occupancyLine("samplers", m.reg.Samplers().Snapshot()))

	b.WriteString("\n")
	if m.ready {
		b.WriteString(m.log.View())
		b.WriteString("\n")
	}

	auto := "off"
	if m.auto {
		auto = "on"
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf(
		"t/b/s alloc • r release • a auto churn (%s) • q quit", auto)))
	return b.String()
}

// occupancyLine renders one kind table as a bar of used/free cells plus
// counts, compressing wide tables to a fixed-width bar.
func occupancyLine(name string, snap []registry.SlotInfo) string {
	const barWidth = 48

	used := 0
	for _, s := range snap {
		if s.InUse {
			used++
		}
	}

	cells := len(snap)
	if cells > barWidth {
		cells = barWidth
	}
	var bar strings.Builder
	for i := 0; i < cells; i++ {
		// Map the bar cell onto a table region; mark it used if any
		// slot in the region is occupied.
		lo := i * len(snap) / cells
		hi := (i + 1) * len(snap) / cells
		occupied := false
		for j := lo; j < hi; j++ {
			if snap[j].InUse {
				occupied = true
				break
			}
		}
		if occupied {
			bar.WriteString(usedStyle.Render("█"))
		} else {
			bar.WriteString(freeStyle.Render("░"))
		}
	}

	return fmt.Sprintf("%s %s %s\n",
		kindStyle.Render(fmt.Sprintf("%-9s", name)),
		bar.String(),
		fmt.Sprintf("%d/%d", used, len(snap)))
}

func runInteractive(cfg config.Config, failEvery int) error {
	m, err := newInspectorModel(cfg, failEvery)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
