package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ConceptEnricher/internal/app"
	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/infrastructure/storage"
	"ConceptEnricher/internal/logging"
	"ConceptEnricher/internal/usecase"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "conceptenricher",
		Short:         "Extract, classify and link biomedical concepts from article corpora",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $CONCEPT_ENRICHER_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newEnrichCmd(opts),
		newSimilarityCmd(opts),
		newMissingCmd(opts),
		newSelectCmd(opts),
		newBackfillCmd(opts),
		newCorporaCmd(opts),
	)
	return root
}

// withApp loads configuration, builds the application and closes it after fn returns.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(a *app.Application) error) error {
	cfg := config.Load(opts.configPath)
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	application := app.New(cfg, logger)
	application.StartMetrics()
	defer func() {
		if cerr := application.Close(cmd.Context()); cerr != nil {
			logger.Warn("shutdown", "error", cerr)
		}
	}()

	return fn(application)
}

func newEnrichCmd(opts *rootOptions) *cobra.Command {
	var req app.EnrichRequest
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run keyphrase extraction, classification and concept linking over an article range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app.Application) error {
				result, err := a.Enrich(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "articles %d-%d: processed=%d skipped=%d already_done=%d phrases=%d relevant=%d resolved=%d\n",
					result.Start, result.End, result.Processed, result.Skipped, result.AlreadyDone,
					result.Phrases, result.Relevant, result.Resolved)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Corpus, "corpus", "", "configured corpus name")
	cmd.Flags().IntVar(&req.Start, "start", 1, "first article, 1-based")
	cmd.Flags().IntVar(&req.End, "end", 0, "last article, inclusive (0 means the last one)")
	cmd.Flags().BoolVar(&req.Resume, "resume", false, "continue after the last checkpointed article")
	_ = cmd.MarkFlagRequired("corpus")
	return cmd
}

func newSimilarityCmd(opts *rootOptions) *cobra.Command {
	var (
		corpus    string
		ledgers   []string
		partition string
	)
	cmd := &cobra.Command{
		Use:   "similarity",
		Short: "Embed resolved concepts and report each one's most and least similar peer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app.Application) error {
				report, err := a.Similarity(cmd.Context(), corpus, ledgers, partition)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "similarity %s: %d concepts\n", report.Partition, len(report.Entries))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&corpus, "corpus", "", "corpus whose concept ledger is compared")
	cmd.Flags().StringSliceVar(&ledgers, "ledger", nil, "concept ledger files (overrides --corpus)")
	cmd.Flags().StringVar(&partition, "partition", "", "label recorded in the report (default: the corpus name)")
	cmd.MarkFlagsOneRequired("corpus", "ledger")
	return cmd
}

func newMissingCmd(opts *rootOptions) *cobra.Command {
	var corpus, reference, against, out string
	cmd := &cobra.Command{
		Use:   "missing",
		Short: "List reference keywords absent from the extracted keyphrases or the resolved concepts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app.Application) error {
				reports, err := a.MissingKeywords(cmd.Context(), corpus, reference, against)
				if err != nil {
					return err
				}
				if out != "" {
					return storage.WriteJSON(out, reports)
				}
				fmt.Fprint(cmd.OutOrStdout(), usecase.FormatMissingKeywords(reports))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&corpus, "corpus", "", "corpus whose ledgers are compared")
	cmd.Flags().StringVar(&reference, "reference", "", "reference keyphrase ledger")
	cmd.Flags().StringVar(&against, "against", "keyphrases", "compare with the keyphrase or the concept ledger (keyphrases, concepts)")
	cmd.Flags().StringVar(&out, "out", "", "write JSON here instead of printing")
	_ = cmd.MarkFlagRequired("corpus")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

func newSelectCmd(opts *rootOptions) *cobra.Command {
	var (
		corpus string
		ids    []string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Copy the concept entries of the given article IDs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app.Application) error {
				selected, err := a.Select(cmd.Context(), corpus, ids, out)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "selected %d of %d entries\n", len(selected), len(ids))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&corpus, "corpus", "", "corpus whose concept ledger is read")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "article IDs, comma separated")
	cmd.Flags().StringVar(&out, "out", "", "output file")
	_ = cmd.MarkFlagRequired("corpus")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

func newBackfillCmd(opts *rootOptions) *cobra.Command {
	var corpus string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay the concept ledger into the configured mirrors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app.Application) error {
				result, err := a.Backfill(cmd.Context(), corpus)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backfill: entries=%d published=%d already_mirrored=%d failed=%d\n",
					result.Entries, result.Published, result.AlreadyMirrored, result.Failed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&corpus, "corpus", "", "corpus whose concept ledger is replayed")
	_ = cmd.MarkFlagRequired("corpus")
	return cmd
}

func newCorporaCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "corpora",
		Short: "List configured corpora",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app.Application) error {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(a.Corpora(), "\n"))
				return nil
			})
		},
	}
}
