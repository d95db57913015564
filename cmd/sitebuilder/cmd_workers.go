package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/developlogy/sitebuilder/internal/server"
)

var queueWorkersFlag int

// sitebuilder queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the queue worker (mail delivery)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := server.New(ctx, server.Options{})
		if err != nil {
			return err
		}
		defer app.Close(context.Background()) //nolint:errcheck

		workers := queueWorkersFlag
		if workers < 1 {
			workers = 5
		}

		fmt.Printf("🚀 Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		app.Queue.StartWorkers(ctx, workers)

		<-ctx.Done()
		fmt.Println("\n⚡ Queue worker stopped.")
		return nil
	},
}

var scheduleOnceFlag bool

// sitebuilder schedule:run
var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Start the task scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := server.New(ctx, server.Options{})
		if err != nil {
			return err
		}
		defer app.Close(context.Background()) //nolint:errcheck

		fmt.Println("Registered scheduled tasks:")
		for _, t := range app.Scheduler.List() {
			fmt.Println("  •", t)
		}

		if scheduleOnceFlag {
			return app.Scheduler.RunAll(ctx)
		}

		fmt.Println("🕐 Scheduler started. Press Ctrl+C to stop.")
		app.Scheduler.Start(ctx)

		<-ctx.Done()
		app.Scheduler.Wait()
		fmt.Println("\n⚡ Scheduler stopped.")
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 5, "Number of concurrent workers")
	scheduleRunCmd.Flags().BoolVar(&scheduleOnceFlag, "once", false, "Run every task once and exit")
}
