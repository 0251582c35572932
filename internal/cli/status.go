package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache regions, outbox depth and origin reachability",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g := openGateway(ctx)
	defer func() {
		_ = g.Close()
	}()

	g.Probe(ctx)
	st, err := g.Status(ctx)
	if err != nil {
		slog.Error("Failed to read status", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "FIELD\tVALUE")
	_, _ = fmt.Fprintf(w, "system\t%s\n", st.System)
	_, _ = fmt.Fprintf(w, "online\t%t\n", st.Online)
	_, _ = fmt.Fprintf(w, "sync\t%s\n", st.SyncDetail)
	_, _ = fmt.Fprintf(w, "outbox\t%d\n", st.OutboxDepth)
	_, _ = fmt.Fprintf(w, "entries\t%d\n", st.Entries)
	_, _ = fmt.Fprintf(w, "current\t%s\n", strings.Join(st.Current.Names(), ", "))
	_, _ = fmt.Fprintf(w, "regions\t%s\n", strings.Join(st.Regions, ", "))
	_ = w.Flush()
}
