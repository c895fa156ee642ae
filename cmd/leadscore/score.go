package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"leadscore_backend/internal/leadscoring/intent"
	"leadscore_backend/internal/leadscoring/rules"
	"leadscore_backend/internal/leadscoring/service"
	"leadscore_backend/internal/leadscoring/session"
	"leadscore_backend/internal/leadscoring/transport"
	"leadscore_backend/platform/ai/openai"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/validator"

	"github.com/spf13/cobra"
	"google.golang.org/adk/model"
)

type scoreOptions struct {
	offerPath   string
	leadsPath   string
	outPath     string
	rulesPath   string
	concurrency int
}

func newScoreCmd() *cobra.Command {
	var opts scoreOptions
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a leads CSV and write the results CSV",
		Long: `Reads an offer JSON file and a leads CSV, runs rule scoring and
intent classification, and writes the results as CSV.
Model settings come from the same environment as the API server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.rulesPath == "" {
				opts.rulesPath = cfg.GetRulesFile()
			}
			if opts.concurrency == 0 {
				opts.concurrency = cfg.GetScoringConcurrency()
			}
			llm := openai.NewModel(openai.Config{
				APIKey:  cfg.GetOpenAIAPIKey(),
				BaseURL: cfg.GetOpenAIBaseURL(),
				Model:   cfg.GetOpenAIModel(),
			})
			classifierOpts := intent.Options{
				Timeout:        cfg.GetIntentTimeout(),
				MaxAttempts:    cfg.GetIntentMaxAttempts(),
				RetryBaseDelay: cfg.GetIntentRetryBaseDelay(),
			}
			log := logger.New(cfg.Env)

			out := cmd.OutOrStdout()
			if opts.outPath != "" {
				f, err := os.Create(opts.outPath)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}

			total, err := runScore(cmd.Context(), opts, llm, classifierOpts, log, out)
			if err != nil {
				return err
			}
			if opts.outPath != "" {
				cmd.Printf("Scored %d leads into %s\n", total, opts.outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.offerPath, "offer", "", "offer JSON file (required)")
	cmd.Flags().StringVar(&opts.leadsPath, "leads", "", "leads CSV file (required)")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "results CSV file (default stdout)")
	cmd.Flags().StringVar(&opts.rulesPath, "rules", "", "rule table YAML (default RULES_FILE or built-in)")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 0, "leads classified at once (default SCORING_CONCURRENCY)")
	_ = cmd.MarkFlagRequired("offer")
	_ = cmd.MarkFlagRequired("leads")
	return cmd
}

// runScore drives the scoring service over one in-memory session and writes
// the export to out. It returns the number of scored leads.
func runScore(ctx context.Context, opts scoreOptions, llm model.LLM, classifierOpts intent.Options, log *logger.Logger, out io.Writer) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	offer, err := readOffer(opts.offerPath)
	if err != nil {
		return 0, err
	}

	rulesCfg, err := rules.LoadFile(opts.rulesPath)
	if err != nil {
		return 0, err
	}

	svc := service.New(
		session.NewManager(session.NewMemoryStore(0)),
		rules.NewScorer(rulesCfg),
		intent.New(llm, classifierOpts, log),
		nil,
		log,
		service.Options{Concurrency: opts.concurrency},
	)

	if _, err := svc.SetOffer(ctx, session.DefaultID, offer.ToDomain()); err != nil {
		return 0, err
	}

	leads, err := os.Open(opts.leadsPath)
	if err != nil {
		return 0, fmt.Errorf("open leads: %w", err)
	}
	defer func() { _ = leads.Close() }()
	if _, err := svc.UploadLeads(ctx, session.DefaultID, leads); err != nil {
		return 0, err
	}

	outcome, err := svc.Score(ctx, session.DefaultID)
	if err != nil {
		return 0, err
	}
	if outcome.Status != service.StatusLeadsScored {
		return 0, errors.New(outcome.Status)
	}

	data, err := svc.ExportCSV(ctx, session.DefaultID)
	if err != nil {
		return 0, err
	}
	if _, err := out.Write(data); err != nil {
		return 0, fmt.Errorf("write results: %w", err)
	}
	return outcome.Total, nil
}

func readOffer(path string) (transport.OfferRequest, error) {
	var req transport.OfferRequest
	b, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read offer: %w", err)
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return req, fmt.Errorf("decode offer: %w", err)
	}
	if err := validator.New().Struct(req); err != nil {
		return req, fmt.Errorf("invalid offer: %v", validator.Describe(err))
	}
	return req, nil
}
