package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/store"
)

var (
	asJSON       bool
	clearErrors  bool
	setThreshold int
	setMaxItems  int
	resetSetting bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the analysis history",
	Args:  cobra.NoArgs,
	RunE: withManager(func(cmd *cobra.Command, m *store.Manager) error {
		history, _, err := m.History(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), history)
		}
		printEntries(cmd.OutOrStdout(), history)
		return nil
	}),
}

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Show the most recent analyses that found gaps",
	Args:  cobra.NoArgs,
	RunE: withManager(func(cmd *cobra.Command, m *store.Manager) error {
		_, detected, err := m.History(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), detected)
		}
		w := cmd.OutOrStdout()
		for _, e := range detected {
			_, _ = fmt.Fprintf(w, "%s  %s  (score %s)\n", e.Timestamp.Local().Format("2006-01-02 15:04"), e.Page, e.Score)
			for _, g := range e.Gaps {
				_, _ = fmt.Fprintf(w, "    [%s] %s\n", g.Severity, g.Detail)
			}
		}
		return nil
	}),
}

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Show or clear the error log",
	Args:  cobra.NoArgs,
	RunE: withManager(func(cmd *cobra.Command, m *store.Manager) error {
		if clearErrors {
			if err := m.ClearErrors(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "✓ Error log cleared")
			return nil
		}
		logs, err := m.ErrorLogs(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), logs)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "TIME\tSEVERITY\tCONTEXT\tMESSAGE")
		for _, l := range logs {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.Timestamp.Local().Format(time.DateTime), l.Severity, l.Context, l.Message)
		}
		return tw.Flush()
	}),
}

var offlineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Toggle offline mode",
	Long:  `Toggle offline mode. Entries recorded while offline are flagged, and leaving offline mode stamps the last sync time.`,
	Args:  cobra.NoArgs,
	RunE: withManager(func(cmd *cobra.Command, m *store.Manager) error {
		offline, err := m.ToggleOffline(cmd.Context())
		if err != nil {
			return err
		}
		state := "off"
		if offline {
			state = "on"
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "offline mode: %s\n", state)
		return nil
	}),
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Stamp the last sync time",
	Args:  cobra.NoArgs,
	RunE: withManager(func(cmd *cobra.Command, m *store.Manager) error {
		at, err := m.Sync(cmd.Context())
		if errors.Is(err, store.ErrOfflineSync) {
			return fmt.Errorf("%w (run 'wikigap offline' to go back online)", err)
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "last sync: %s\n", at.Local().Format(time.DateTime))
		return nil
	}),
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the persisted settings",
	Long: `Show the persisted settings, or change them with flags.

--reset restores the settings section of the configuration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		m, err := openManager(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()

		flags := cmd.Flags()
		var s model.Settings
		if resetSetting || flags.Changed("threshold") || flags.Changed("max-history") {
			s, err = m.UpdateSettings(cmd.Context(), func(s *model.Settings) {
				if resetSetting {
					s.AnalysisThreshold = cfg.Settings.AnalysisThreshold
					s.MaxHistoryItems = cfg.Settings.MaxHistoryItems
				}
				if flags.Changed("threshold") {
					s.AnalysisThreshold = setThreshold
				}
				if flags.Changed("max-history") {
					s.MaxHistoryItems = setMaxItems
				}
			})
		} else {
			s, err = m.Settings(cmd.Context())
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), s)
	},
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, gapsCmd, errorsCmd} {
		c.Flags().BoolVar(&asJSON, "json", false, "print JSON")
		rootCmd.AddCommand(c)
	}
	errorsCmd.Flags().BoolVar(&clearErrors, "clear", false, "clear the error log")

	settingsCmd.Flags().IntVar(&setThreshold, "threshold", 0, "analysis threshold (0-100)")
	settingsCmd.Flags().IntVar(&setMaxItems, "max-history", 0, "maximum history entries")
	settingsCmd.Flags().BoolVar(&resetSetting, "reset", false, "restore configured settings")

	rootCmd.AddCommand(offlineCmd, syncCmd, settingsCmd)
}

// withManager opens the configured store around fn
func withManager(fn func(cmd *cobra.Command, m *store.Manager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		m, err := openManager(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
		return fn(cmd, m)
	}
}

func printEntries(w io.Writer, entries []model.HistoryEntry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tSCORE\tGAPS\tOFFLINE\tPAGE")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%v\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.Score, len(e.Gaps), e.OfflineCreated, e.Page)
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
