package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/windlass-io/windlass/transfer"
)

func TestUploadModel_ProgressUpdatesView(t *testing.T) {
	events := make(chan tea.Msg, 1)
	m := NewUploadModel("report.pdf", events)

	updated, cmd := m.Update(ProgressMsg(transfer.Progress{
		ChunksSent:  2,
		TotalChunks: 5,
		BytesSent:   4096,
		TotalBytes:  10240,
	}))
	if cmd == nil {
		t.Error("progress must schedule the next event read")
	}

	view := updated.View()
	if !strings.Contains(view, "report.pdf") {
		t.Errorf("expected file name in view, got %q", view)
	}
	if !strings.Contains(view, "2/5") || !strings.Contains(view, "4096/10240") {
		t.Errorf("expected chunk and byte counts in view, got %q", view)
	}
}

func TestUploadModel_DoneQuits(t *testing.T) {
	events := make(chan tea.Msg, 1)
	m := NewUploadModel("report.pdf", events)

	updated, cmd := m.Update(DoneMsg{Ref: "artifact-1"})
	if cmd == nil {
		t.Fatal("done must produce a quit command")
	}

	model := updated.(UploadModel)
	ref, err := model.Result()
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if ref != "artifact-1" {
		t.Errorf("expected artifact-1, got %s", ref)
	}
	if !strings.Contains(model.View(), "Upload complete") {
		t.Errorf("expected completion message, got %q", model.View())
	}
}

func TestUploadModel_DoneWithError(t *testing.T) {
	events := make(chan tea.Msg, 1)
	m := NewUploadModel("report.pdf", events)

	updated, _ := m.Update(DoneMsg{Err: errors.New("session expired")})
	model := updated.(UploadModel)

	if _, err := model.Result(); err == nil {
		t.Fatal("expected error result")
	}
	if !strings.Contains(model.View(), "Upload failed") {
		t.Errorf("expected failure message, got %q", model.View())
	}
}

func TestUploadModel_QuitKeyAbandons(t *testing.T) {
	events := make(chan tea.Msg, 1)
	m := NewUploadModel("report.pdf", events)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c must produce a quit command")
	}

	model := updated.(UploadModel)
	if _, err := model.Result(); err == nil {
		t.Fatal("abandoned upload must report an error")
	}
}
