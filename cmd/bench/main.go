package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/notekeep"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	adapter := flag.String("adapter", notekeep.AdapterFS, "Storage adapter to benchmark")
	keep := flag.Bool("keep", false, "Keep the benchmark notebook after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "notekeep_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	opts := []notekeep.Option{notekeep.WithAdapter(*adapter), notekeep.WithLogger(logger)}

	nb, err := notekeep.Open(ctx, benchDir, opts...)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Adding %d notes to %s (%s)...\n", *count, benchDir, *adapter)
	startAdd := time.Now()
	for i := 0; i < *count; i++ {
		_, err := nb.AddNote(notekeep.NoteInput{
			Title:   fmt.Sprintf("Note %d", i),
			Content: "This is a benchmark note.",
			Tags:    []string{"benchmark", "test"},
		})
		if err != nil {
			panic(err)
		}
	}
	addDuration := time.Since(startAdd)
	stats := nb.Bridge().Stats()

	startFlush := time.Now()
	if err := nb.Close(ctx); err != nil {
		panic(err)
	}
	flushDuration := time.Since(startFlush)

	// Reopening simulates the next CLI invocation.
	startBoot := time.Now()
	nb2, err := notekeep.Open(ctx, benchDir, opts...)
	if err != nil {
		panic(err)
	}
	bootDuration := time.Since(startBoot)
	loaded := len(nb2.Notes())

	startView := time.Now()
	nb2.SetSort("title", "asc")
	view := nb2.View()
	viewDuration := time.Since(startView)
	if err := nb2.Close(ctx); err != nil {
		panic(err)
	}

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes, %s):\n", *count, *adapter)
	fmt.Printf("  Add:   %v (writes scheduled: %d)\n", addDuration, stats.Scheduled)
	fmt.Printf("  Flush: %v\n", flushDuration)
	fmt.Printf("  Boot:  %v (Items: %d)\n", bootDuration, loaded)
	fmt.Printf("  View:  %v (Items: %d)\n", viewDuration, len(view))
	fmt.Printf("--------------------------------------------------\n")
}
