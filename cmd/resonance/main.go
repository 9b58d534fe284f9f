// Command resonance is the CLI front end for the ingestion and retrieval
// pipeline: box, audit, ingest, daemon, and harvest.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	resonance "github.com/pjsvis/resonance"
	"github.com/pjsvis/resonance/boxer"
	"github.com/pjsvis/resonance/embed"
	"github.com/pjsvis/resonance/locus"
	"github.com/pjsvis/resonance/validate"
)

// exit codes per §6.
const (
	exitOK                 = 0
	exitOperationalFailure = 1
	exitValidationFailure  = 2
)

var configPath string

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	root := &cobra.Command{
		Use:   "resonance",
		Short: "Markdown knowledge-graph ingestion and retrieval",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "polyvis.settings.json", "path to polyvis.settings.json")

	root.AddCommand(
		newBoxCmd(),
		newAuditCmd(),
		newIngestCmd(),
		newDaemonCmd(),
		newHarvestCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(exitOperationalFailure)
	}
}

func loadConfig() resonance.Config {
	cfg, err := resonance.LoadConfig(configPath)
	if err != nil {
		cfg = resonance.DefaultConfig()
	}
	return cfg
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "❌ "+format+"\n", args...)
	os.Exit(exitOperationalFailure)
}

func newBoxCmd() *cobra.Command {
	var file, output string
	var tag bool

	cmd := &cobra.Command{
		Use:   "box",
		Short: "Segment a Markdown file into bento boxes",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := loadConfig()

			content, err := os.ReadFile(file)
			if err != nil {
				fail("reading %s: %v", file, err)
			}

			ledger, err := locus.Open(resonance.LocusLedgerPath(cfg.ResolveDBPath()))
			if err != nil {
				fail("opening locus ledger: %v", err)
			}
			defer ledger.Close()

			b := boxer.New(boxer.Config{MaxTokens: cfg.MaxBoxTokens}, ledger)
			normalized := boxer.Normalize(file, string(content))
			boxes, err := b.Process(ctx, normalized)
			if err != nil {
				fail("boxing %s: %v", file, err)
			}

			if tag {
				providerCfg := cfg.ActiveProvider()
				chat, err := embed.NewProvider(embed.Config{
					Provider: cfg.LLM.ActiveProvider,
					Model:    providerCfg.Model,
					BaseURL:  providerCfg.BaseURL,
					APIKey:   providerCfg.APIKey,
				})
				if err != nil {
					fail("constructing tag oracle: %v", err)
				}
				for i, box := range boxes {
					pairs, err := resonance.TagBox(ctx, chat, providerCfg.Model, box.Content)
					if err != nil {
						slog.Warn("box --tag: oracle call failed, leaving box untagged", "locus_id", box.LocusID, "error", err)
						continue
					}
					boxes[i].Content = resonance.FormatTagsComment(pairs) + box.Content
				}
			}

			out := resonance.RenderBoxed(boxes)
			if output == "" {
				fmt.Print(out)
				return
			}
			if err := os.WriteFile(output, []byte(out), 0644); err != nil {
				fail("writing %s: %v", output, err)
			}
			fmt.Printf("✅ wrote %d box(es) to %s\n", len(boxes), output)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "input Markdown file")
	cmd.Flags().StringVar(&output, "output", "", "output path (stdout if omitted)")
	cmd.Flags().BoolVar(&tag, "tag", false, "invoke the LLM oracle to tag each box")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newAuditCmd() *cobra.Command {
	var src, boxed string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Verify a boxed file round-trips the original content",
		Run: func(cmd *cobra.Command, args []string) {
			srcContent, err := os.ReadFile(src)
			if err != nil {
				fail("reading %s: %v", src, err)
			}
			boxedContent, err := os.ReadFile(boxed)
			if err != nil {
				fail("reading %s: %v", boxed, err)
			}

			a := resonance.NormalizeWhitespace(string(srcContent))
			b := resonance.NormalizeWhitespace(resonance.StripMarkers(string(boxedContent)))

			if a != b {
				fmt.Fprintf(os.Stderr, "❌ %v: content diverges from %s after stripping markers\n", resonance.ErrAuditDivergence, src)
				os.Exit(exitOperationalFailure)
			}
			fmt.Println("✅ audit passed: content round-trips")
		},
	}

	cmd.Flags().StringVar(&src, "file", "", "original source Markdown file")
	cmd.Flags().StringVar(&boxed, "output", "", "boxed Markdown file to verify")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("output")
	return cmd
}

func newIngestCmd() *cobra.Command {
	var file, dir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run the full ingestion pipeline",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := loadConfig()

			if file != "" {
				cfg.Paths.Sources.Experience = []resonance.ExperienceSource{{Path: file, Type: "note"}}
			} else if dir != "" {
				cfg.Paths.Sources.Experience = []resonance.ExperienceSource{{Path: dir, Type: "note"}}
			}

			ig, err := resonance.New(cfg)
			if err != nil {
				fail("constructing ingestor: %v", err)
			}
			defer ig.Close()

			v := validate.New(ig.Store())
			baseline, err := v.CaptureBaseline(ctx)
			if err != nil {
				fail("capturing baseline: %v", err)
			}

			stats, err := ig.Run(ctx)
			if err != nil {
				fail("ingesting: %v", err)
			}
			fmt.Printf("✅ ingested: %d node(s) upserted, %d skipped, %d edge(s) inserted, %d rejected\n",
				stats.NodesUpserted, stats.NodesSkipped, stats.EdgesInserted, stats.EdgesRejected)

			report, err := v.Validate(ctx, baseline, validate.Expectations{
				MinNodesAdded:          cfg.Validation.MinNodesAdded,
				RequiredVectorCoverage: validate.VectorCoverage(cfg.Validation.RequiredVectorCoverage),
			})
			if err != nil {
				fail("validating: %v", err)
			}
			for _, w := range report.Warnings {
				fmt.Printf("⚠️  %s\n", w)
			}
			if !report.Passed {
				for _, e := range report.Errors {
					fmt.Printf("❌ %s\n", e)
				}
				os.Exit(exitValidationFailure)
			}
			fmt.Println("✅ " + report.Summary)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "ingest a single file")
	cmd.Flags().StringVar(&dir, "dir", "", "ingest a directory")
	return cmd
}

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon [start|stop|status]",
		Short: "Manage the embedding HTTP daemon (out of core scope)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "start", "stop", "status":
				fmt.Printf("⚠️  daemon %s: lifecycle management is out of core scope; run your own embedding daemon and point embedding_daemon_url at it\n", args[0])
			default:
				fail("unknown daemon subcommand %q", args[0])
			}
		},
	}
}

func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest [dir]",
		Short: "Report unknown tag-<slug> tokens found in a corpus",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			cfg := loadConfig()

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			ig, err := resonance.New(cfg)
			if err != nil {
				fail("opening store: %v", err)
			}
			defer ig.Close()

			unknown, err := resonance.Harvest(ctx, ig.Store(), dir)
			if err != nil {
				fail("harvesting %s: %v", dir, err)
			}
			fmt.Print(resonance.RenderHarvestReport(unknown))
		},
	}
	return cmd
}
