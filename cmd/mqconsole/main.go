package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/qvcloud/console"
	"github.com/qvcloud/console/brokers/kafka"
	"github.com/qvcloud/console/brokers/nats"
	"github.com/qvcloud/console/brokers/rabbitmq"
	"github.com/qvcloud/console/brokers/redis"
	"github.com/qvcloud/console/brokers/rocketmq"
	"github.com/rs/zerolog"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newClient(kind string, cfg console.ConnectionConfig, opts ...console.Option) (console.Client, error) {
	switch kind {
	case "loopback":
		return console.NewLoopback(opts...), nil
	case "nats":
		return nats.NewClient(cfg, opts...), nil
	case "rabbitmq":
		return rabbitmq.NewClient(cfg, opts...), nil
	case "kafka":
		return kafka.NewClient(cfg, opts...), nil
	case "redis":
		return redis.NewClient(cfg, opts...), nil
	case "rocketmq":
		return rocketmq.NewClient(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("unknown broker %q", kind)
	}
}

func main() {
	var (
		brokerKind = flag.String("broker", envOr("CONSOLE_BROKER", "loopback"), "broker type: loopback, nats, rabbitmq, kafka, redis, rocketmq")
		host       = flag.String("server", envOr("CONSOLE_HOST", "localhost"), "broker host")
		port       = flag.Int("port", atoiOr(envOr("CONSOLE_PORT", "61613"), 61613), "broker port")
		login      = flag.String("login", envOr("CONSOLE_LOGIN", "guest"), "login")
		passcode   = flag.String("passcode", envOr("CONSOLE_PASSCODE", "guest"), "passcode")
		heartbeat  = flag.String("heartbeat", envOr("CONSOLE_HEARTBEAT", "0,0"), "heartbeat pair \"<ms>,<ms>\"")
		vhost      = flag.String("vhost", envOr("CONSOLE_VHOST", ""), "virtual host (defaults to host)")
		useTLS     = flag.Bool("tls", false, "use TLS")
		verbose    = flag.Bool("verbose", false, "start with the long display format")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	hb, err := console.ParseHeartbeat(*heartbeat)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad heartbeat")
	}

	cfg := console.ConnectionConfig{
		Host:      *host,
		Port:      *port,
		Login:     *login,
		Passcode:  *passcode,
		UseTLS:    *useTLS,
		Heartbeat: hb,
		Vhost:     *vhost,
	}

	opts := []console.Option{
		console.WithLogger(logger),
		console.WithOutput(os.Stdout),
	}

	client, err := newClient(*brokerKind, cfg, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad broker selection")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Connect(ctx); err != nil {
		logger.Fatal().Err(err).Msg("connect failed")
	}

	sess := console.NewSession(client, opts...)
	if *verbose {
		sess.SetVerbose(true)
	}

	cmds, err := sess.Commands()
	if err != nil {
		logger.Fatal().Err(err).Msg("command table invalid")
	}

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(ctx)
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Printf("%s console on %s, type help for commands\n", client.String(), client.Address())

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-done:
			if err != nil && !errors.Is(err, console.ErrClosed) && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("receive loop ended")
			}
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if !dispatch(ctx, sess, cmds, line) {
				break loop
			}
		}
	}

	if err := sess.Close(); err != nil {
		logger.Warn().Err(err).Msg("disconnect failed")
	}
}

// dispatch runs one command line; it returns false when the session should
// end.
func dispatch(ctx context.Context, sess *console.Session, cmds map[string]console.Command, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	name, args := fields[0], fields[1:]
	switch name {
	case "quit", "exit":
		return false
	case "help":
		names := make([]string, 0, len(cmds))
		for n := range cmds {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Println("  " + cmds[n].Usage)
		}
		fmt.Println("  help")
		fmt.Println("  quit")
		return true
	}

	cmd, ok := cmds[name]
	if !ok {
		fmt.Printf("unknown command %q, type help\n", name)
		return true
	}

	out, err := cmd.Handler(ctx, args)
	if err != nil {
		fmt.Println("error: " + err.Error())
		return true
	}
	fmt.Println(out)

	// Show the registry after every mutation for readability.
	if name == "subscribe" || name == "unsubscribe" {
		for _, d := range sess.Subscriptions() {
			fmt.Println("  " + d)
		}
	}
	return true
}

func atoiOr(s string, def int) int {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return def
	}
	return n
}
