// Package archive persists assessment completion reports to S3-compatible
// object storage.
//
// Reports are written as JSON objects keyed by owner and day so downstream
// analytics can list a tenant's reports without scanning the bucket. The
// archive is write-only from this client's perspective.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/windlass-io/windlass/types"
	"github.com/windlass-io/windlass/workflow"
)

// Report is the archived record of one completion run.
type Report struct {
	RunID     string `json:"run_id"`
	UnitID    string `json:"unit_id"`
	OwnerKind string `json:"owner_kind"`
	OwnerID   string `json:"owner_id"`
	Status    string `json:"status"`
	// Timestamp is the archive time in ISO 8601 UTC.
	Timestamp string `json:"timestamp"`

	Score     int `json:"score"`
	TierLevel int `json:"tier_level"`

	Gaps            []types.Gap               `json:"gaps,omitempty"`
	Recommendations []workflow.Recommendation `json:"recommendations,omitempty"`
	Diagnostics     []workflow.Diagnostic     `json:"diagnostics,omitempty"`
}

// BuildReport assembles a Report from a terminal run result.
func BuildReport(result *workflow.Result, unitID string, owner types.OwnerContext) Report {
	report := Report{
		RunID:     result.RunID,
		UnitID:    unitID,
		OwnerKind: owner.Kind,
		OwnerID:   owner.ID,
		Status:    string(result.Status),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if v, ok := result.Context.Get(workflow.StageScore); ok {
		if score, ok := v.(types.AssessmentResult); ok {
			report.Score = score.Score
			report.TierLevel = score.TierLevel
		}
	}
	if v, ok := result.Context.Get(workflow.KeyGaps); ok {
		if gaps, ok := v.([]types.Gap); ok {
			report.Gaps = gaps
		}
	}
	if v, ok := result.Context.Get(workflow.StageRecommend); ok {
		if recs, ok := v.([]workflow.Recommendation); ok {
			report.Recommendations = recs
		}
	}
	report.Diagnostics = result.Context.Diagnostics()

	return report
}

// ObjectAPI is the subset of the S3 client the archive uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds archive storage configuration.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("archive bucket is required")
	}
	return nil
}

// Archive writes completion reports to object storage.
type Archive struct {
	config Config
	client ObjectAPI
}

// New creates an archive using the AWS SDK default credential chain
// (env vars, shared config, IAM role).
func New(ctx context.Context, cfg Config) (*Archive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Archive{
		config: cfg,
		client: s3.NewFromConfig(awsCfg, s3Opts...),
	}, nil
}

// NewWithClient creates an archive over an existing S3 client.
func NewWithClient(cfg Config, client ObjectAPI) (*Archive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Archive{config: cfg, client: client}, nil
}

// Store writes the report as a JSON object. Returns the object key.
func (a *Archive) Store(ctx context.Context, report Report) (string, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("archive: marshal report: %w", err)
	}

	key := a.Key(report)
	contentType := "application/json"

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.config.Bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("archive: put report %s: %w", key, err)
	}

	return key, nil
}

// Key derives the object key for a report:
//
//	[prefix/]owner=<owner_id>/day=<YYYY-MM-DD>/run_id=<run_id>.json
func (a *Archive) Key(report Report) string {
	day := report.Timestamp
	if t, err := time.Parse(time.RFC3339, report.Timestamp); err == nil {
		day = t.UTC().Format("2006-01-02")
	}

	key := fmt.Sprintf("owner=%s/day=%s/run_id=%s.json", report.OwnerID, day, report.RunID)
	if a.config.Prefix != "" {
		key = a.config.Prefix + "/" + key
	}
	return key
}
