package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/windlass-io/windlass/cli/config"
	"github.com/windlass-io/windlass/cli/render"
	"github.com/windlass-io/windlass/cli/tui"
	"github.com/windlass-io/windlass/log"
	"github.com/windlass-io/windlass/metrics"
	"github.com/windlass-io/windlass/remote"
	"github.com/windlass-io/windlass/transfer"
	"github.com/windlass-io/windlass/types"
)

// UploadResponse is the rendered result of an upload command.
type UploadResponse struct {
	ArtifactRef   string `json:"artifact_ref"`
	FileName      string `json:"file_name"`
	TotalBytes    int64  `json:"total_bytes"`
	ChunksSent    int64  `json:"chunks_sent"`
	ChunksRetried int64  `json:"chunks_retried"`
}

// UploadCommand returns the upload command: chunked, resumable artifact
// transfer to the remote service.
func UploadCommand() *cli.Command {
	flags := append(CommonFlags(),
		&cli.StringFlag{
			Name:     "file",
			Usage:    "Path to the file to upload",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "mime",
			Usage: "Payload content type",
			Value: "application/octet-stream",
		},
		&cli.StringFlag{
			Name:  "owner-kind",
			Usage: "Owner kind the artifact attaches to (e.g. business, assessment)",
			Value: "business",
		},
		&cli.StringFlag{
			Name:     "owner-id",
			Usage:    "Owner identifier the artifact attaches to",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "actor-id",
			Usage: "Acting user identifier (optional)",
		},
		&cli.IntFlag{
			Name:  "chunk-retries",
			Usage: "Per-chunk retry budget (0 disables retry)",
			Value: transfer.DefaultChunkRetries,
		},
		&cli.StringFlag{
			Name:  "journal",
			Usage: "Resume journal file path (overrides config journal_dir)",
		},
		&cli.BoolFlag{
			Name:  "no-journal",
			Usage: "Disable the resume journal",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show a live progress TUI",
		},
	)

	return &cli.Command{
		Name:   "upload",
		Usage:  "Upload a file as a chunked, resumable transfer",
		Flags:  flags,
		Action: uploadAction,
	}
}

func uploadAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	facade, err := newFacade(c, cfg)
	if err != nil {
		return err
	}

	filePath := c.String("file")
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filePath, err)
	}

	runID := uuid.NewString()
	actorID := c.String("actor-id")
	logger := log.NewLogger(runID, actorID)
	collector := metrics.NewCollector(runID, actorID)
	manager := transfer.NewManager(facade, logger, collector)

	fileName := filepath.Base(filePath)
	req := remote.InitiateUploadRequest{
		FileName:  fileName,
		TotalSize: info.Size(),
		MimeType:  c.String("mime"),
		Owner: types.OwnerContext{
			Kind:    c.String("owner-kind"),
			ID:      c.String("owner-id"),
			ActorID: actorID,
		},
	}

	opts := transfer.UploadOptions{
		ChunkRetries: chunkRetries(c, cfg),
		Journal:      journalFor(c, cfg, fileName),
	}

	ctx, cancel := signalContext()
	defer cancel()

	var ref types.ArtifactRef
	if c.Bool("tui") {
		events := make(chan tea.Msg, 16)
		opts.OnProgress = func(p transfer.Progress) {
			events <- tui.ProgressMsg(p)
		}
		go func() {
			uploadRef, uploadErr := manager.Upload(ctx, f, req, opts)
			events <- tui.DoneMsg{Ref: uploadRef, Err: uploadErr}
		}()
		ref, err = tui.RunUpload(fileName, events)
	} else {
		ref, err = manager.Upload(ctx, f, req, opts)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("upload failed: %v", err), 1)
	}

	snap := collector.Snapshot()
	return r.Render(UploadResponse{
		ArtifactRef:   string(ref),
		FileName:      fileName,
		TotalBytes:    info.Size(),
		ChunksSent:    snap.ChunksSent,
		ChunksRetried: snap.ChunksRetried,
	})
}

// chunkRetries resolves the retry budget: flag wins, then config, then the
// stock default (already the flag's default value).
func chunkRetries(c *cli.Context, cfg *config.Config) int {
	if !c.IsSet("chunk-retries") && cfg.Transfer.ChunkRetries != nil {
		return *cfg.Transfer.ChunkRetries
	}
	return c.Int("chunk-retries")
}

// journalFor resolves the resume journal location. Returns nil when
// journaling is disabled or no location is configured.
func journalFor(c *cli.Context, cfg *config.Config, fileName string) *transfer.Journal {
	if c.Bool("no-journal") {
		return nil
	}
	if path := c.String("journal"); path != "" {
		return transfer.NewJournal(path)
	}
	if cfg.Transfer.JournalDir != "" {
		return transfer.NewJournal(filepath.Join(cfg.Transfer.JournalDir, fileName+".journal"))
	}
	return nil
}
