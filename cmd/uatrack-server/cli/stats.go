package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/uatrack/internal/db/models"
	"github.com/pandeptwidyaop/uatrack/internal/stats"
	"github.com/pandeptwidyaop/uatrack/internal/store"
	"github.com/pandeptwidyaop/uatrack/pkg/logger"
)

var (
	statsPage     int
	statsPageSize int
	statsWindow   time.Duration
	statsJSON     bool
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	emptyStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#888888"))
)

func init() {
	statsCmd.Flags().IntVar(&statsPage, "page", stats.DefaultPage, "page of recent requests")
	statsCmd.Flags().IntVar(&statsPageSize, "page-size", 10, "recent requests per page")
	statsCmd.Flags().DurationVar(&statsWindow, "window", 0, "aggregation window (default from config)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the raw dashboard JSON")
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print request statistics",
	Long:  `Print the dashboard aggregates (category distribution, top clients, top paths) from the configured database.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg.Database)
		if err != nil {
			return err
		}
		if sqlDB, err := database.DB(); err == nil {
			defer sqlDB.Close()
		}

		window := statsWindow
		if window <= 0 {
			window = cfg.Dashboard.Window
		}

		ctx := context.Background()
		st := store.NewGormStore(database)
		result := stats.NewAggregator(st).Aggregate(ctx, window, statsPage, statsPageSize)

		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		allTime, err := st.Count(ctx)
		if err != nil {
			logger.WarnEvent().Err(err).Msg("Failed to count stored request logs")
			allTime = unknownTotal
		}

		renderStats(cmd.OutOrStdout(), result, allTime)
		return nil
	},
}

// unknownTotal marks an all-time total that could not be counted.
const unknownTotal = -1

// renderStats writes a human-readable report of s to w. allTime is the number
// of stored logs regardless of window, or unknownTotal.
func renderStats(w io.Writer, s stats.DashboardStats, allTime int64) {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Request statistics"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Window since:"),
		valueStyle.Render(fmt.Sprintf("%s (%s)", s.WindowStart.Format(time.RFC3339), humanize.RelTime(s.WindowStart, s.GeneratedAt, "ago", "from now"))))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Total requests:"),
		valueStyle.Render(humanize.Comma(int64(s.TotalRequests))))
	stored := "unknown"
	if allTime != unknownTotal {
		stored = humanize.Comma(allTime)
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Stored requests (all time):"), valueStyle.Render(stored))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Average processing time:"),
		valueStyle.Render(humanize.FtoaWithDigits(s.AverageProcessingTime, 2)+" ms"))

	b.WriteString(sectionStyle.Render("User agent types"))
	b.WriteString("\n")
	var typeRows [][]string
	for _, t := range models.UserAgentTypes() {
		if n, ok := s.UserAgentStats[t]; ok {
			typeRows = append(typeRows, []string{t.String(), humanize.Comma(int64(n))})
		}
	}
	writeTable(&b, []string{"Type", "Requests"}, typeRows)

	b.WriteString(sectionStyle.Render("Top clients"))
	b.WriteString("\n")
	writeTable(&b, []string{"Client", "Requests"}, countRows(s.TopClients))

	b.WriteString(sectionStyle.Render("Top paths"))
	b.WriteString("\n")
	writeTable(&b, []string{"Path", "Requests"}, countRows(s.TopPaths))

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Recent requests (page %d, %d per page)", s.Page, s.PageSize)))
	b.WriteString("\n")
	var recentRows [][]string
	for _, log := range s.RecentRequests {
		client := ""
		if log.DetectedClient != nil {
			client = *log.DetectedClient
		}
		recentRows = append(recentRows, []string{
			humanize.RelTime(log.Timestamp, s.GeneratedAt, "ago", "from now"),
			log.Method,
			log.Path,
			strconv.Itoa(log.StatusCode),
			log.UserAgentType.String(),
			client,
			strconv.FormatInt(log.ProcessingTimeMs, 10) + " ms",
		})
	}
	writeTable(&b, []string{"When", "Method", "Path", "Status", "Type", "Client", "Time"}, recentRows)

	io.WriteString(w, b.String())
}

func countRows(counts []stats.Count) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Key, humanize.Comma(int64(c.Count))})
	}
	return rows
}

func writeTable(b *strings.Builder, headers []string, rows [][]string) {
	if len(rows) == 0 {
		b.WriteString(emptyStyle.Render("  (none)"))
		b.WriteString("\n")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	b.WriteString(t.Render())
	b.WriteString("\n")
}
