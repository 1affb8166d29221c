package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/tileworld/internal/eventbus"
)

const (
	defaultNATSURL = "nats://127.0.0.1:4222"
	defaultStream  = "TILEWORLD"
)

// Известные типы событий мира
var knownTypes = []string{
	eventbus.EntityAdded,
	eventbus.EntityRemoved,
	eventbus.EntityCollision,
	eventbus.TileChanged,
	eventbus.ChunkLoaded,
	eventbus.WorldSaved,
}

func main() {
	var (
		natsURL    = flag.String("url", defaultNATSURL, "NATS server URL")
		stream     = flag.String("stream", defaultStream, "JetStream stream name")
		command    = flag.String("cmd", "tail", "Command: tail, stats, types")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		worldID    = flag.String("world", "", "World ID filter")
		limit      = flag.Int("limit", 100, "Maximum number of events for tail (0 - unlimited)")
		window     = flag.Duration("for", 30*time.Second, "Collection window for stats")
	)
	flag.Parse()

	if *command == "types" {
		showTypes(os.Stdout)
		return
	}

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := &TailOptions{
		EventTypes: parseStringList(*eventTypes),
		WorldID:    *worldID,
		Limit:      *limit,
	}

	switch *command {
	case "tail":
		if err := tailEvents(ctx, bus, opts, os.Stdout); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "stats":
		ctx, cancel := context.WithTimeout(ctx, *window)
		defer cancel()
		if err := showStats(ctx, bus, opts, os.Stdout); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats, types")
		os.Exit(1)
	}
}

type TailOptions struct {
	EventTypes []string
	WorldID    string
	Limit      int
}

// matches применяет фильтр мира; фильтр типов применяет шина
func (o *TailOptions) matches(ev *eventbus.Envelope) bool {
	return o.WorldID == "" || ev.WorldID == o.WorldID
}

// tailEvents выводит события в реальном времени до лимита или отмены ctx
func tailEvents(ctx context.Context, bus eventbus.EventBus, opts *TailOptions, out io.Writer) error {
	fmt.Fprintf(out, "🎬 Tailing events (limit: %d)\n", opts.Limit)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	eventCount := 0
	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: opts.EventTypes}, func(_ context.Context, ev *eventbus.Envelope) {
		if !opts.matches(ev) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if opts.Limit > 0 && eventCount >= opts.Limit {
			return
		}
		printEvent(out, ev)
		eventCount++
		if opts.Limit > 0 && eventCount >= opts.Limit {
			cancel()
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "\n📊 Total events: %d\n", eventCount)
	return nil
}

// showStats считает события по типам, пока не истечёт ctx
func showStats(ctx context.Context, bus eventbus.EventBus, opts *TailOptions, out io.Writer) error {
	fmt.Fprintln(out, "📊 Event statistics")

	var mu sync.Mutex
	counts := make(map[string]int)
	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: opts.EventTypes}, func(_ context.Context, ev *eventbus.Envelope) {
		if !opts.matches(ev) {
			return
		}
		mu.Lock()
		counts[ev.EventType]++
		mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	printStats(out, counts)
	return nil
}

func printStats(out io.Writer, counts map[string]int) {
	types := make([]string, 0, len(counts))
	total := 0
	for t, n := range counts {
		types = append(types, t)
		total += n
	}
	sort.Strings(types)

	fmt.Fprintf(out, "Total events: %d\n", total)
	fmt.Fprintln(out, "\nBy event type:")
	for _, t := range types {
		fmt.Fprintf(out, "  %s: %d events\n", t, counts[t])
	}
}

// showTypes выводит известные типы событий
func showTypes(out io.Writer) {
	fmt.Fprintln(out, "📋 Available event types")
	for _, t := range knownTypes {
		fmt.Fprintf(out, "  %s\n", t)
	}
}

// printEvent выводит событие в читаемом формате
func printEvent(out io.Writer, ev *eventbus.Envelope) {
	fmt.Fprintf(out, "[%s] %s/%s [%s] tick=%d %s\n",
		ev.Timestamp.Format("15:04:05"),
		ev.WorldID,
		ev.Source,
		ev.EventType,
		ev.Tick,
		ev.ID)
	if len(ev.Payload) > 0 {
		fmt.Fprintf(out, "  %s\n", ev.Payload)
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
