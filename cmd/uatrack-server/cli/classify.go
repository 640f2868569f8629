package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/uatrack/internal/classifier"
)

func init() {
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify [user-agent...]",
	Short: "Classify user-agent strings",
	Long: `Classify each user-agent argument and print its type and detected client.
With no arguments, user agents are read from standard input, one per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := classifier.New(nil)
		out := cmd.OutOrStdout()

		if len(args) > 0 {
			for _, ua := range args {
				printClassification(out, c, ua)
			}
			return nil
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			ua := strings.TrimSpace(scanner.Text())
			if ua == "" {
				continue
			}
			printClassification(out, c, ua)
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read user agents: %w", err)
		}
		return nil
	},
}

func printClassification(w io.Writer, c *classifier.Classifier, userAgent string) {
	uaType, client := c.Classify(userAgent)
	if client == "" {
		client = "-"
	}
	fmt.Fprintf(w, "%s\t%s\t%s\n", uaType, client, userAgent)
}
