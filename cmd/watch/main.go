// watch tails a message thread from the terminal using the polling
// delivery protocol: same cutoff semantics as the web client, printed to
// stdout instead of rendered.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/you/campus-resource-hub/internal/domain"
	"github.com/you/campus-resource-hub/internal/poller"
)

func main() {
	_ = godotenv.Load()

	base := flag.String("base", "http://localhost:8080", "hub base URL")
	threadID := flag.String("thread", "", "thread id to tail")
	interval := flag.Duration("interval", poller.DefaultInterval, "poll interval")
	flag.Parse()

	if *threadID == "" {
		fmt.Fprintln(os.Stderr, "usage: watch -thread <id> [-base url] [-interval 6s]")
		os.Exit(2)
	}
	token := os.Getenv("HUB_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "HUB_TOKEN env var required")
		os.Exit(2)
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	fetcher := poller.NewHTTPFetcher(*base, token)
	p := poller.New(poller.Config{
		ThreadID: *threadID,
		Interval: *interval,
		OnMessage: func(m domain.Message) {
			fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format(time.Kitchen), m.SenderID, m.Content)
		},
	}, fetcher, log, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	// catch up once immediately, then settle into the tick loop
	if _, err := p.PollOnce(ctx); err != nil {
		log.Debug("initial poll failed", zap.Error(err))
	}
	p.Run(ctx)
}
