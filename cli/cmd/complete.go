package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/windlass-io/windlass/adapter"
	adapterredis "github.com/windlass-io/windlass/adapter/redis"
	adapterwebhook "github.com/windlass-io/windlass/adapter/webhook"
	"github.com/windlass-io/windlass/archive"
	"github.com/windlass-io/windlass/cli/config"
	"github.com/windlass-io/windlass/cli/render"
	"github.com/windlass-io/windlass/log"
	"github.com/windlass-io/windlass/metrics"
	"github.com/windlass-io/windlass/types"
	"github.com/windlass-io/windlass/workflow"
)

// CompleteResponse is the rendered result of a completion run.
type CompleteResponse struct {
	RunID           string                    `json:"run_id"`
	Status          string                    `json:"status"`
	Score           int                       `json:"score"`
	TierLevel       int                       `json:"tier_level"`
	Gaps            []types.Gap               `json:"gaps,omitempty"`
	Recommendations []workflow.Recommendation `json:"recommendations,omitempty"`
	Diagnostics     []workflow.Diagnostic     `json:"diagnostics,omitempty"`
	FailedStage     string                    `json:"failed_stage,omitempty"`
	Reason          string                    `json:"reason,omitempty"`
	ArchiveKey      string                    `json:"archive_key,omitempty"`
	EventPublished  bool                      `json:"event_published"`
}

// CompleteCommand returns the complete command: the multi-stage assessment
// completion run.
func CompleteCommand() *cli.Command {
	flags := append(CommonFlags(),
		&cli.StringFlag{
			Name:     "unit",
			Usage:    "Assessment unit identifier to complete",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "user",
			Usage: "Dashboard notification recipient",
		},
		&cli.StringFlag{
			Name:     "answers",
			Usage:    "Path to a JSON file holding the recorded answers",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "owner-kind",
			Usage: "Owner kind for the archived report",
			Value: "business",
		},
		&cli.StringFlag{
			Name:  "owner-id",
			Usage: "Owner identifier for the archived report",
		},
		&cli.IntFlag{
			Name:  "threshold",
			Usage: "Score threshold below which recommendations are generated",
		},
		&cli.BoolFlag{
			Name:  "degraded",
			Usage: "Substitute a static scoring verdict when the remote score fetch fails",
		},
	)

	return &cli.Command{
		Name:   "complete",
		Usage:  "Run the assessment completion workflow",
		Flags:  flags,
		Action: completeAction,
	}
}

func completeAction(c *cli.Context) error {
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

	answers, err := loadAnswers(c.String("answers"))
	if err != nil {
		return err
	}

	threshold := c.Int("threshold")
	if threshold == 0 {
		threshold = cfg.Workflow.ScoreThreshold
	}

	runID := uuid.NewString()
	userID := c.String("user")
	logger := log.NewLogger(runID, userID)
	collector := metrics.NewCollector(runID, userID)

	stages := workflow.CompletionPipeline(workflow.CompletionInput{
		Facade:         facade,
		Collector:      collector,
		UnitID:         c.String("unit"),
		UserID:         userID,
		Answers:        answers,
		ScoreThreshold: threshold,
	})

	if c.Bool("degraded") {
		stages = degradeScoreStage(stages)
	}

	runner, err := workflow.NewRunner(runID, stages, logger, collector)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	result, err := runner.Run(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("completion run failed: %v", err), 1)
	}

	resp := buildCompleteResponse(result)

	owner := types.OwnerContext{
		Kind:    c.String("owner-kind"),
		ID:      c.String("owner-id"),
		ActorID: userID,
	}
	if key, archiveErr := archiveReport(ctx, cfg, result, c.String("unit"), owner); archiveErr != nil {
		logger.Warn("report archive failed", map[string]any{"error": archiveErr.Error()})
	} else {
		resp.ArchiveKey = key
	}

	if publishErr := publishCompletion(ctx, cfg, resp, c.String("unit"), userID, time.Since(start)); publishErr != nil {
		logger.Warn("completion event publish failed", map[string]any{"error": publishErr.Error()})
	} else if cfg.Adapter.Type != "" {
		resp.EventPublished = true
	}

	if renderErr := r.Render(resp); renderErr != nil {
		return renderErr
	}

	if result.Status == workflow.StatusAborted {
		return cli.Exit("", 1)
	}
	return nil
}

// loadAnswers reads a JSON array of answers from disk.
func loadAnswers(path string) ([]types.Answer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers file %s: %w", path, err)
	}
	var answers []types.Answer
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("invalid answers JSON in %s: %w", path, err)
	}
	return answers, nil
}

// degradeScoreStage wraps the score stage so a remote scoring outage
// yields an explicit degraded verdict instead of aborting the run.
func degradeScoreStage(stages []workflow.Stage) []workflow.Stage {
	for i, stage := range stages {
		if stage.Name == workflow.StageScore {
			stages[i] = workflow.DegradedMode(stage, func() any {
				return types.AssessmentResult{Score: 0, TierLevel: 0}
			})
		}
	}
	return stages
}

func buildCompleteResponse(result *workflow.Result) CompleteResponse {
	resp := CompleteResponse{
		RunID:       result.RunID,
		Status:      string(result.Status),
		FailedStage: result.FailedStage,
		Reason:      result.Reason,
		Diagnostics: result.Context.Diagnostics(),
	}
	if v, ok := result.Context.Get(workflow.StageScore); ok {
		if score, ok := v.(types.AssessmentResult); ok {
			resp.Score = score.Score
			resp.TierLevel = score.TierLevel
		}
	}
	if v, ok := result.Context.Get(workflow.KeyGaps); ok {
		if gaps, ok := v.([]types.Gap); ok {
			resp.Gaps = gaps
		}
	}
	if v, ok := result.Context.Get(workflow.StageRecommend); ok {
		if recs, ok := v.([]workflow.Recommendation); ok {
			resp.Recommendations = recs
		}
	}
	return resp
}

// archiveReport stores the run report when an archive bucket is configured.
func archiveReport(ctx context.Context, cfg *config.Config, result *workflow.Result, unitID string, owner types.OwnerContext) (string, error) {
	if cfg.Archive.Bucket == "" {
		return "", nil
	}

	store, err := archive.New(ctx, archive.Config{
		Bucket:       cfg.Archive.Bucket,
		Prefix:       cfg.Archive.Prefix,
		Region:       cfg.Archive.Region,
		Endpoint:     cfg.Archive.Endpoint,
		UsePathStyle: cfg.Archive.S3PathStyle,
	})
	if err != nil {
		return "", err
	}

	return store.Store(ctx, archive.BuildReport(result, unitID, owner))
}

// publishCompletion sends the completion event when an adapter is configured.
func publishCompletion(ctx context.Context, cfg *config.Config, resp CompleteResponse, unitID, userID string, duration time.Duration) error {
	a, err := buildAdapter(cfg.Adapter)
	if err != nil || a == nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return a.Publish(ctx, &adapter.CompletionEvent{
		EventType:  adapter.EventTypeCompleted,
		RunID:      resp.RunID,
		UnitID:     unitID,
		UserID:     userID,
		Status:     resp.Status,
		Score:      resp.Score,
		TierLevel:  resp.TierLevel,
		GapCount:   len(resp.Gaps),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		DurationMs: duration.Milliseconds(),
	})
}

// buildAdapter constructs the configured event adapter. Returns nil when
// no adapter type is configured.
func buildAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	retries := -1
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}

	switch cfg.Type {
	case "":
		return nil, nil
	case "webhook":
		wcfg := adapterwebhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: adapterwebhook.DefaultRetries,
		}
		if retries >= 0 {
			wcfg.Retries = retries
		}
		return adapterwebhook.New(wcfg)
	case "redis":
		rcfg := adapterredis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
			Retries: adapterredis.DefaultRetries,
		}
		if retries >= 0 {
			rcfg.Retries = retries
		}
		return adapterredis.New(rcfg)
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook or redis)", cfg.Type)
	}
}
