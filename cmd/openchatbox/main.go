// openchatbox is a gateway that gives chat, image-generation and agent
// upstreams a single uniform API with a per-IP daily free tier.
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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/FrankDu1/psychologist-chatbot/internal/config"
	"github.com/FrankDu1/psychologist-chatbot/internal/gateway"
)

func main() {
	var (
		configFlag = flag.String("config", "", "optional YAML config file overlaying the environment")
		portFlag   = flag.Int("port", 0, "listen port (overrides PORT)")
		debugFlag  = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	// Missing .env is fine; the environment may be set externally.
	_ = godotenv.Load()

	setupLogging(*debugFlag)

	cfg := config.Load()
	if *configFlag != "" {
		data, err := os.ReadFile(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config '%s': %v\n", *configFlag, err)
			os.Exit(1)
		}
		if err := cfg.ApplyYAML(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing config '%s': %v\n", *configFlag, err)
			os.Exit(1)
		}
	}
	if *portFlag != 0 {
		cfg.Server.Port = *portFlag
	}

	gw := gateway.New(cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("gateway stopped")
			os.Exit(1)
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := gw.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown incomplete")
			os.Exit(1)
		}
	}
}

// setupLogging configures zerolog: human-readable console output on a
// terminal, JSON lines otherwise.
func setupLogging(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
}
