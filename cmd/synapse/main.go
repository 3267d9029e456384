package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zen-systems/synapse/pkg/brain"
	"github.com/zen-systems/synapse/pkg/classifier"
	"github.com/zen-systems/synapse/pkg/compound"
	"github.com/zen-systems/synapse/pkg/config"
	"github.com/zen-systems/synapse/pkg/middleware"
	"github.com/zen-systems/synapse/pkg/obs"
	"github.com/zen-systems/synapse/pkg/resilience"
	"github.com/zen-systems/synapse/pkg/route"
	"github.com/zen-systems/synapse/pkg/verify"
)

var (
	debugFlag bool
	mockFlag  bool
)

// app is the wired routing core shared by every command.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	resolver   *route.Resolver
	classifier *classifier.Classifier
	store      *obs.Store
	invoker    brain.Invoker
	router     *middleware.Router
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "synapse",
		Short: "Multi-brain routing and orchestration for LLM requests",
		Long: `Synapse classifies each request into a task domain, routes it to the
	best-suited model, runs compound questions across several specialist
	brains in parallel, and cross-checks high-confidence replies.`,
	}

	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVar(&mockFlag, "mock", false, "use a mock brain instead of real providers")

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(handoffsCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var logger *zap.Logger
	if debugFlag {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	resolver := route.Load(cfg.RoutesFile)
	store := obs.NewStore(cfg.ObservabilityDB, logger)
	cls := classifier.New(resolver, logger, classifier.WithWeightsFile(cfg.WeightsFile))

	invoker, err := buildInvoker(ctx, cfg, store, logger)
	if err != nil {
		return nil, err
	}

	router := middleware.NewRouter(
		cls,
		compound.NewOrchestrator(resolver, invoker, store, logger),
		compound.NewDecomposer(resolver, invoker, store, logger),
		verify.NewVerifier(resolver, invoker, store, logger),
		store,
		logger,
	)

	return &app{
		cfg:        cfg,
		logger:     logger,
		resolver:   resolver,
		classifier: cls,
		store:      store,
		invoker:    invoker,
		router:     router,
	}, nil
}

// buildInvoker assembles the provider registry behind the resilience
// layer. Providers without keys are simply absent; calls to them surface
// as 404 brain errors, which the retry layer treats as permanent.
func buildInvoker(ctx context.Context, cfg *config.Config, store *obs.Store, logger *zap.Logger) (brain.Invoker, error) {
	retryer := resilience.NewRetryer(store, logger)

	if mockFlag {
		return resilience.NewInvoker(brain.NewMockInvoker(), retryer), nil
	}

	registry := brain.NewRegistry(logger)
	if cfg.AnthropicAPIKey != "" {
		g, err := brain.NewAnthropicGenerator("anthropic", cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic brain: %w", err)
		}
		registry.Register(g)
	}
	if cfg.OpenAIAPIKey != "" {
		g, err := brain.NewOpenAIGenerator("openai-codex", cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai brain: %w", err)
		}
		registry.Register(g)
	}
	if cfg.GoogleAPIKey != "" {
		g, err := brain.NewGoogleGenerator(ctx, "google-gemini", cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google brain: %w", err)
		}
		registry.Register(g)
	}

	return resilience.NewInvoker(registry, retryer), nil
}

func classifyCmd() *cobra.Command {
	var imagesFlag bool

	cmd := &cobra.Command{
		Use:   "classify [message]",
		Short: "Classify a message into a task domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			result := a.classifier.Classify(classifier.Input{
				Message:   args[0],
				HasImages: imagesFlag,
			})
			a.classifier.LogDecision(args[0], result)

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&imagesFlag, "images", false, "treat the message as carrying image content")
	return cmd
}

func askCmd() *cobra.Command {
	var providerFlag string
	var modelFlag string
	var timeoutFlag time.Duration
	var postFlag bool

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Route a prompt to the best brain and print the reply",
		Long: `Classifies the prompt, routes it to the matching provider/model, and
	prints the reply. Compound prompts fan out to specialist brains in
	parallel and the answers are merged.

	Use --post to also run post-reply enrichment and verification before
	exiting; a long-running host would fire those in the background.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := args[0]
			ctx := cmd.Context()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			sessionID := uuid.NewString()
			var override *route.Target
			if providerFlag != "" && modelFlag != "" {
				override = &route.Target{Provider: providerFlag, Model: modelFlag}
			}

			c := a.classifier.Classify(classifier.Input{Message: prompt, Override: override})
			a.classifier.LogDecision(prompt, c)
			fmt.Fprintf(os.Stderr, "Routing to %s/%s (domain=%s confidence=%d)\n",
				c.Provider, c.Model, c.Domain, c.Confidence)

			input := middleware.RoutingInput{Body: prompt, SessionID: sessionID}
			replyText := ""

			if ok, compoundClass := a.router.ShouldOrchestrate(input); ok && override == nil {
				if merged, done := a.router.Orchestrate(ctx, *compoundClass, input, a.cfg.WorkspaceDir, timeoutFlag); done {
					replyText = merged
				}
			}
			if replyText == "" {
				resp, err := a.invoker.Invoke(ctx, brain.Request{
					Prompt:       prompt,
					Provider:     c.Provider,
					Model:        c.Model,
					SessionID:    sessionID,
					WorkspaceDir: a.cfg.WorkspaceDir,
					Timeout:      timeoutFlag,
				})
				if err != nil {
					return err
				}
				replyText = resp.Text()
			}

			fmt.Println(replyText)

			if postFlag {
				runPostReply(ctx, a, c, prompt, replyText, sessionID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&providerFlag, "provider", "", "override provider")
	cmd.Flags().StringVar(&modelFlag, "model", "", "override model")
	cmd.Flags().DurationVar(&timeoutFlag, "timeout", 60*time.Second, "per-request deadline")
	cmd.Flags().BoolVar(&postFlag, "post", false, "run post-reply enrichment and verification before exiting")
	return cmd
}

// runPostReply runs the normally fire-and-forget hooks synchronously so a
// short-lived CLI process does not exit out from under them.
func runPostReply(ctx context.Context, a *app, c classifier.Result, prompt, replyText, sessionID string) {
	if compound.ShouldDecompose(c) {
		dec := compound.NewDecomposer(a.resolver, a.invoker, a.store, a.logger)
		dec.Decompose(ctx, compound.DecompositionRequest{
			Classification:   c,
			OriginalPrompt:   prompt,
			PrimaryReplyText: replyText,
			OriginalProvider: c.Provider,
			OriginalModel:    c.Model,
			RunID:            sessionID,
			WorkspaceDir:     a.cfg.WorkspaceDir,
		})
	}
	if verify.ShouldVerify(c.Domain, c.Confidence) {
		ver := verify.NewVerifier(a.resolver, a.invoker, a.store, a.logger)
		result := ver.Verify(ctx, verify.Request{
			Domain:           c.Domain,
			OriginalProvider: c.Provider,
			OriginalModel:    c.Model,
			ResponseText:     replyText,
			OriginalPrompt:   prompt,
			RunID:            sessionID,
			WorkspaceDir:     a.cfg.WorkspaceDir,
		})
		fmt.Fprintf(os.Stderr, "Verification: passed=%v confidence=%d issues=%d\n",
			result.Passed, result.Confidence, len(result.Issues))
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show the domain route, enrichment, and verifier tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tROUTE\tENRICHER\tVERIFIER")
			for _, d := range route.Domains() {
				r := a.resolver.Route(d)
				e := a.resolver.Enricher(d)
				v := a.resolver.Verifier(d)
				fmt.Fprintf(w, "%s\t%s/%s\t%s/%s\t%s/%s\n",
					d, r.Provider, r.Model, e.Provider, e.Model, v.Provider, v.Model)
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "DEFAULT\t%s/%s\t\t\n", a.resolver.Default.Provider, a.resolver.Default.Model)
			fmt.Fprintf(w, "MERGER\t%s/%s\t\t\n", a.resolver.Merger.Provider, a.resolver.Merger.Model)
			return w.Flush()
		},
	}
}

func handoffsCmd() *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "handoffs",
		Short: "Show recent cross-brain handoff records",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			handoffs, err := a.store.RecentHandoffs(limitFlag)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FROM\tDOMAIN\tTO\tSTATUS\tCOMPLETED")
			for _, h := range handoffs {
				fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\t%s\n",
					h.FromBrain, h.ToDomain, h.ToProvider, h.ToModel, h.Status,
					h.CompletedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 20, "max records to show")
	return cmd
}

func statsCmd() *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recent routing decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			events, err := a.store.RecentEvents("routing", limitFlag)
			if err != nil {
				return err
			}

			stats := classifier.Stats{
				ByDomain:   make(map[string]int),
				ByProvider: make(map[string]int),
			}
			confidenceSum := 0
			for _, ev := range events {
				if ev.Action != "classified" {
					continue
				}
				stats.Total++
				if d, ok := ev.Metadata["domain"].(string); ok {
					stats.ByDomain[d]++
				}
				if p, ok := ev.Metadata["provider"].(string); ok {
					stats.ByProvider[p]++
				}
				if conf, ok := ev.Metadata["confidence"].(float64); ok {
					confidenceSum += int(conf)
				}
			}
			if stats.Total > 0 {
				stats.AvgConfidence = (confidenceSum + stats.Total/2) / stats.Total
			}

			out, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 500, "max routing events to aggregate")
	return cmd
}

func eventsCmd() *cobra.Command {
	var limitFlag int
	var categoryFlag string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent observability events",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			events, err := a.store.RecentEvents(categoryFlag, limitFlag)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tACTION\tTRACE\tMETADATA")
			for _, ev := range events {
				metadata, _ := json.Marshal(ev.Metadata)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ev.Category, ev.Action, ev.TraceID, metadata)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 20, "max events to show")
	cmd.Flags().StringVar(&categoryFlag, "category", "routing", "event category filter")
	return cmd
}
