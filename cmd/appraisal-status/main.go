package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/zhada/appraisal-extractor/internal/entity"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		addr  = flag.String("addr", "http://localhost:8090", "base URL of a running batch's progress endpoint")
		watch = flag.Bool("watch", false, "poll until the batch finishes")
	)
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	for {
		snap, err := fetchProgress(client, *addr)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		printSnapshot(snap)
		if !*watch || snap.Finished() >= snap.Dispatched && snap.Dispatched > 0 {
			return
		}
		time.Sleep(2 * time.Second)
	}
}

func fetchProgress(client *http.Client, base string) (entity.ProgressSnapshot, error) {
	var snap entity.ProgressSnapshot
	resp, err := client.Get(base + "/progress")
	if err != nil {
		return snap, fmt.Errorf("failed to reach progress endpoint: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("progress endpoint returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snap, fmt.Errorf("failed to decode progress response: %w", err)
	}
	return snap, nil
}

func printSnapshot(snap entity.ProgressSnapshot) {
	fmt.Printf("[%s] discovered=%d dispatched=%d succeeded=%d partial=%d failed=%d rate=%.1f%%",
		snap.UpdatedAt.Format(time.TimeOnly),
		snap.Discovered, snap.Dispatched, snap.Succeeded, snap.Partial, snap.Failed,
		snap.SuccessRate*100)
	if snap.EstimatedDone != nil {
		fmt.Printf(" eta=%s", snap.EstimatedDone.Format(time.TimeOnly))
	}
	fmt.Println()
}
