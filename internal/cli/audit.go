package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wikigap/internal/audit"
	"github.com/ppiankov/wikigap/internal/render"
)

var (
	auditType     string
	auditEntities string
	auditAliases  bool
	auditJSON     string
	auditMD       string
	auditWorkers  int
	auditTimeout  time.Duration
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit article coverage of the institution list",
	Long: `Audit checks, for every institution in the entity list, whether an
article exists and how complete it is, using the wiki API.

Missing articles are reported without a score. Existing articles are
scored on required sections, infobox presence and reference density.

Example:
  wikigap audit
  wikigap audit --type council --md councils.md
  wikigap audit --entities my-list.yaml --aliases --json audit.json`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditType, "type", "all", "entity type to audit (all, university, council)")
	auditCmd.Flags().StringVar(&auditEntities, "entities", "", "YAML entity list (default: built-in list)")
	auditCmd.Flags().BoolVar(&auditAliases, "aliases", false, "try aliases when the canonical title has no article")
	auditCmd.Flags().StringVar(&auditJSON, "json", "", "output JSON path")
	auditCmd.Flags().StringVar(&auditMD, "md", "", "output Markdown path (default: print to stdout)")
	auditCmd.Flags().IntVar(&auditWorkers, "workers", 0, "concurrent workers (default from config)")
	auditCmd.Flags().DurationVar(&auditTimeout, "timeout", 10*time.Minute, "overall timeout")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	entities := audit.DefaultEntities()
	if auditEntities != "" {
		entities, err = audit.LoadEntities(auditEntities)
		if err != nil {
			return err
		}
	}
	entities, err = filterEntities(entities, auditType)
	if err != nil {
		return err
	}

	c := newCache(cfg)
	ts, _, err := newTemplates(cfg, c)
	if err != nil {
		return err
	}

	workers := cfg.Audit.Workers
	if auditWorkers > 0 {
		workers = auditWorkers
	}

	var done int32
	total := len(entities)
	a := audit.New(audit.Options{
		Client:     newWikiClient(cfg, c),
		Templates:  ts,
		Workers:    workers,
		TryAliases: auditAliases,
		Progress: func(r audit.Result) {
			n := atomic.AddInt32(&done, 1)
			status := "missing"
			if r.Exists {
				status = "score " + r.Score.String()
			}
			if r.Error != "" {
				status = "error: " + r.Error
			}
			fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s\n", n, total, r.Entity.Name, status)
		},
		Logger: logger.Named("audit"),
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), auditTimeout)
	defer cancel()

	results := a.Run(ctx, entities)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("audit interrupted: %w", err)
	}

	renderer := render.NewRenderer(cfg.Output.IncludeFooter)
	md := renderer.AuditMarkdown(results)
	if auditMD != "" {
		if err := os.WriteFile(auditMD, []byte(md), 0644); err != nil {
			return fmt.Errorf("write markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown report: %s\n", auditMD)
	} else {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), md)
	}
	if auditJSON != "" {
		if err := render.WriteAuditJSON(results, auditJSON); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ JSON report: %s\n", auditJSON)
	}
	return nil
}

// filterEntities keeps the entities of the named type; "all" keeps every entity
func filterEntities(entities []audit.Entity, kind string) ([]audit.Entity, error) {
	switch strings.ToLower(kind) {
	case "", "all":
		return entities, nil
	case "university", "universities":
		return audit.FilterByType(entities, audit.TypeUniversity), nil
	case "council", "councils":
		return audit.FilterByType(entities, audit.TypeCouncil), nil
	default:
		return nil, fmt.Errorf("unknown entity type %q (use all, university or council)", kind)
	}
}
