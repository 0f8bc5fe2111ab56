// Command chatcli is a terminal messaging client. Each input line of the form
// "<receiver-id> <text>" is sent as a direct message; pushed messages are
// printed as they arrive. The connection is re-established automatically.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"daoob/internal/infrastructure/logging"
	messaging "daoob/internal/pkg/messaging/application/domain"
	"daoob/internal/pkg/messaging/client"
)

func main() {
	_ = godotenv.Load()

	url := flag.String("url", envOr("CHAT_URL", "ws://localhost:8080/api/v1/ws"), "websocket endpoint")
	userID := flag.Int64("user", 0, "user id to authenticate as")
	token := flag.String("token", os.Getenv("CHAT_TOKEN"), "credential for the auth envelope; defaults to the user id (trust mode)")
	delay := flag.Duration("delay", client.DefaultReconnectDelay, "wait between reconnect attempts")
	verbose := flag.Bool("v", false, "log connection events")
	flag.Parse()

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "chatcli: -user is required")
		os.Exit(2)
	}
	credential := *token
	if credential == "" {
		credential = strconv.FormatInt(*userID, 10)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.New(level, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := client.NewStaticSession(*userID, credential)
	r := client.NewReconnector(session, printEnvelope, client.Options{
		URL:   *url,
		Delay: *delay,
		OnState: func(s client.State) {
			logger.Info().Stringer("state", s).Msg("connection state")
		},
		Logger: logger,
	})

	go readInput(r, session, logger)

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("client stopped")
		os.Exit(1)
	}
}

func readInput(r *client.Reconnector, session *client.StaticSession, logger zerolog.Logger) {
	defer session.Logout()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}
		receiver, content, ok := strings.Cut(line, " ")
		id, err := strconv.ParseInt(receiver, 10, 64)
		if !ok || err != nil || id <= 0 {
			fmt.Fprintln(os.Stderr, "usage: <receiver-id> <message>  |  /quit")
			continue
		}
		if err := r.Send(id, content); err != nil {
			logger.Warn().Err(err).Msg("message not sent")
		}
	}
}

func printEnvelope(env messaging.Envelope) {
	switch env.Type {
	case messaging.EnvelopeAuth:
		fmt.Printf("* authenticated as %d\n", env.Receiver)
	case messaging.EnvelopeMessage:
		fmt.Printf("[%s] %d: %s\n", env.Timestamp.Local().Format("15:04"), env.Sender, env.Content)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
