package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/windlass-io/windlass/transfer"
	"github.com/windlass-io/windlass/types"
)

// ProgressMsg carries a transfer progress snapshot into the model.
type ProgressMsg transfer.Progress

// DoneMsg signals upload completion or failure.
type DoneMsg struct {
	Ref types.ArtifactRef
	Err error
}

// UploadModel renders a live upload progress bar. Progress snapshots and
// the terminal result arrive as messages from the upload goroutine.
type UploadModel struct {
	fileName string
	bar      progress.Model

	events <-chan tea.Msg

	current  transfer.Progress
	done     bool
	err      error
	ref      types.ArtifactRef
	quitting bool
}

// NewUploadModel creates a model reading progress messages from events.
// The channel must be closed-free: the sender terminates with a DoneMsg.
func NewUploadModel(fileName string, events <-chan tea.Msg) UploadModel {
	return UploadModel{
		fileName: fileName,
		bar:      progress.New(progress.WithDefaultGradient()),
		events:   events,
	}
}

func (m UploadModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// Init implements tea.Model.
func (m UploadModel) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update implements tea.Model.
func (m UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - 6
		if width > 60 {
			width = 60
		}
		if width > 0 {
			m.bar.Width = width
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case ProgressMsg:
		m.current = transfer.Progress(msg)
		return m, m.waitForEvent()

	case DoneMsg:
		m.done = true
		m.ref = msg.Ref
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m UploadModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Uploading " + m.fileName))
	b.WriteString("\n\n")

	ratio := 0.0
	if m.current.TotalChunks > 0 {
		ratio = float64(m.current.ChunksSent) / float64(m.current.TotalChunks)
	}
	b.WriteString(m.bar.ViewAs(ratio))
	b.WriteString("\n\n")

	b.WriteString(LabelStyle.Render("Chunks:"))
	b.WriteString(fmt.Sprintf("%d/%d", m.current.ChunksSent, m.current.TotalChunks))
	b.WriteString("\n")
	b.WriteString(LabelStyle.Render("Bytes:"))
	b.WriteString(fmt.Sprintf("%d/%d", m.current.BytesSent, m.current.TotalBytes))
	b.WriteString("\n")

	if m.done {
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(ErrorStyle.Render("Upload failed: " + m.err.Error()))
		} else {
			b.WriteString(SuccessStyle.Render("Upload complete: " + string(m.ref)))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(HelpStyle.Render("Press q or Ctrl+C to abandon"))
	}

	return b.String()
}

// Result returns the terminal upload outcome after the program exits.
func (m UploadModel) Result() (types.ArtifactRef, error) {
	if m.quitting && !m.done {
		return "", fmt.Errorf("upload abandoned")
	}
	return m.ref, m.err
}

// RunUpload drives the progress TUI until the upload goroutine reports
// completion or the user abandons it.
func RunUpload(fileName string, events <-chan tea.Msg) (types.ArtifactRef, error) {
	final, err := tea.NewProgram(NewUploadModel(fileName, events)).Run()
	if err != nil {
		return "", fmt.Errorf("tui: %w", err)
	}
	model, ok := final.(UploadModel)
	if !ok {
		return "", fmt.Errorf("tui: unexpected final model %T", final)
	}
	return model.Result()
}
