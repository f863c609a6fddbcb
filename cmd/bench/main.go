package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/notebox"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	policy := flag.String("policy", "flat", "Id policy: flat or nested")
	keep := flag.Bool("keep", false, "Keep the benchmark workspace after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "notebox_bench_")
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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	service, err := notebox.New(notebox.WithPolicy(*policy), notebox.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	ctx := context.Background()

	id := func(i int) string {
		if *policy == "nested" {
			return fmt.Sprintf("notes/batch%02d/note_%d", i%16, i)
		}
		return fmt.Sprintf("note_%d", i)
	}

	// Writes go through the service so every file takes the atomic path.
	fmt.Printf("Saving %d notes in %s...\n", *count, benchDir)
	startSave := time.Now()
	for i := 0; i < *count; i++ {
		content := fmt.Sprintf("# Benchmark Note %d\n\nThis is a test note written at %s.", i, time.Now().Format(time.RFC3339))
		if _, err := service.SaveNote(ctx, benchDir, id(i), content); err != nil {
			panic(err)
		}
	}
	saveDuration := time.Since(startSave)

	fmt.Println("Running List...")
	startList := time.Now()
	list, err := service.ListNotes(ctx, benchDir)
	if err != nil {
		panic(err)
	}
	listDuration := time.Since(startList)

	fmt.Println("Running Get on every note...")
	startGet := time.Now()
	for i := 0; i < *count; i++ {
		if _, err := service.GetNote(ctx, benchDir, id(i)); err != nil {
			panic(err)
		}
	}
	getDuration := time.Since(startGet)

	entries, _ := filepath.Glob(filepath.Join(benchDir, "*"))

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes, policy %s):\n", *count, *policy)
	fmt.Printf("  Save: %v (%v/op)\n", saveDuration, saveDuration/time.Duration(*count))
	fmt.Printf("  List: %v (items: %d, top-level entries: %d)\n", listDuration, len(list), len(entries))
	fmt.Printf("  Get:  %v (%v/op)\n", getDuration, getDuration/time.Duration(*count))
	fmt.Printf("--------------------------------------------------\n")
}
