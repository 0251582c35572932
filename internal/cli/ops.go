package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Precache the static shell and delete stale cache regions",
	Run:   runInstall,
}

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Replay the outbox against the origin once",
	Run:   runDrain,
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [json]",
	Short: "Submit an entry; reads stdin when no argument is given",
	Args:  cobra.MaximumNArgs(1),
	Run:   runEnqueue,
}

var dropCmd = &cobra.Command{
	Use:   "drop [entry_id]",
	Short: "Remove an outbox entry that the origin keeps rejecting",
	Args:  cobra.ExactArgs(1),
	Run:   runDrop,
}

func init() {
	rootCmd.AddCommand(installCmd, drainCmd, enqueueCmd, dropCmd)
}

func runInstall(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	g := openGateway(ctx)
	defer func() {
		_ = g.Close()
	}()

	deleted, err := g.Install(ctx)
	if err != nil {
		slog.Error("Install failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Installed. Deleted %d stale region(s): %v\n", len(deleted), deleted)
}

func runDrain(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	g := openGateway(ctx)
	defer func() {
		_ = g.Close()
	}()

	res := g.Drain(ctx)
	fmt.Printf("Delivered %d, remaining %d\n", res.Delivered, res.Remaining)
	if !res.Complete {
		slog.Error("Drain incomplete", "error", res.Reason())
		os.Exit(1)
	}
}

func runEnqueue(cmd *cobra.Command, args []string) {
	var payload []byte
	if len(args) == 1 {
		payload = []byte(args[0])
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			slog.Error("Failed to read stdin", "error", err)
			os.Exit(1)
		}
		payload = data
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	g := openGateway(ctx)
	defer func() {
		_ = g.Close()
	}()

	g.Probe(ctx)
	out, err := g.Submit(ctx, payload)
	if err != nil {
		slog.Error("Failed to submit entry", "error", err)
		os.Exit(1)
	}
	if out.Delivered {
		fmt.Printf("Entry %d delivered\n", out.Entry.ID)
		return
	}
	fmt.Printf("Entry %d queued as outbox %d\n", out.Entry.ID, out.Queued.ID)
}

func runDrop(cmd *cobra.Command, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		slog.Error("Invalid entry id", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g := openGateway(ctx)
	defer func() {
		_ = g.Close()
	}()

	if err := g.DropOutbox(ctx, id); err != nil {
		slog.Error("Failed to drop entry", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Outbox entry %d dropped\n", id)
}
