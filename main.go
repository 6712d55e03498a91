package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielpaulus/go-rspstub/config"
	"github.com/danielpaulus/go-rspstub/rsp"
	"github.com/danielpaulus/go-rspstub/rsp/forward"
	"github.com/docopt/docopt-go"
	log "github.com/sirupsen/logrus"
)

func main() {
	Main()
}

const version = "local-build"

// Main Exports main for testing
func Main() {
	usage := fmt.Sprintf(`rspstub %s

Usage:
  rspstub serve [options] [--port=<port> | --service=<name>] [--host=<host>] [--config=<file>]
  rspstub send [options] <address> <payload>...
  rspstub proxy [options] <listen> <target>
  rspstub -h | --help
  rspstub --version | version [options]

Options:
  -v --verbose   Enable Debug Logging.
  -t --trace     Enable Trace Logging (dump every packet).
  --nojson       Disable JSON output (default).
  -h --help      Show this screen.

The commands work as following:
   rspstub serve        Waits for one debugger on --port (or the port of --service) and answers
                        its packets. Requests are acknowledged and answered with an empty packet,
                        which a debugger reads as "not supported". D detaches, k kills the session.
                        Settings come from --config, then RSP_* environment variables, then flags.
   rspstub send         Connects to the stub at <address>, sends every <payload> as one packet
                        and prints the replies.
   rspstub proxy        Listens on <listen>, forwards every debugger to the stub at <target> and
                        logs all packets in both directions.
  `, version)
	arguments, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatal(err)
	}

	cfgPath, _ := arguments.String("--config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	cfg, err = applyFlags(cfg, arguments)
	if err != nil {
		log.Fatal(err)
	}
	configureLogging(cfg, arguments)
	log.Debug(arguments)

	shouldPrintVersionNoDashes, _ := arguments.Bool("version")
	shouldPrintVersion, _ := arguments.Bool("--version")
	if shouldPrintVersionNoDashes || shouldPrintVersion {
		fmt.Println(version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, _ := arguments.Bool("serve")
	if b {
		if err := serve(ctx, cfg); err != nil {
			log.Fatal(err)
		}
		return
	}

	b, _ = arguments.Bool("send")
	if b {
		address, _ := arguments.String("<address>")
		payloads, _ := arguments["<payload>"].([]string)
		if err := send(ctx, address, payloads, cfg.PacketSize); err != nil {
			log.Fatal(err)
		}
		return
	}

	b, _ = arguments.Bool("proxy")
	if b {
		listen, _ := arguments.String("<listen>")
		target, _ := arguments.String("<target>")
		if err := startProxy(ctx, listen, target, cfg.PacketSize); err != nil {
			log.Fatal(err)
		}
		return
	}
}

// applyFlags lets command line switches win over file and environment settings.
func applyFlags(cfg config.Config, arguments docopt.Opts) (config.Config, error) {
	if p, _ := arguments.String("--port"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return cfg, fmt.Errorf("invalid --port %q: %w", p, err)
		}
		cfg.Port = port
	}
	if s, _ := arguments.String("--service"); s != "" {
		cfg.Service = s
		cfg.Port = 0
	}
	if h, _ := arguments.String("--host"); h != "" {
		cfg.Host = h
	}
	if disableJSON, _ := arguments.Bool("--nojson"); disableJSON {
		cfg.JSONLogs = false
	}
	return cfg, cfg.Validate()
}

func configureLogging(cfg config.Config, arguments docopt.Opts) {
	if cfg.JSONLogs {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetLevel(cfg.Level())

	traceLevelEnabled, _ := arguments.Bool("--trace")
	if traceLevelEnabled {
		log.Info("Set Trace mode")
		log.SetLevel(log.TraceLevel)
		return
	}
	verboseLoggingEnabledLong, _ := arguments.Bool("--verbose")
	if verboseLoggingEnabledLong {
		log.Info("Set Debug mode")
		log.SetLevel(log.DebugLevel)
	}
}

func newConnection(cfg config.Config) *rsp.Connection {
	if cfg.Port != 0 {
		return rsp.NewConnection(cfg.Port, rsp.WithListenHost(cfg.Host))
	}
	return rsp.NewServiceConnection(cfg.Service, rsp.WithListenHost(cfg.Host))
}

func serve(ctx context.Context, cfg config.Config) error {
	conn := newConnection(cfg)
	for {
		err := conn.Connect(ctx)
		if err == nil {
			break
		}
		if !rsp.IsRetriable(err) {
			return err
		}
		log.WithError(err).Warn("accepting debugger failed, listening again")
		time.Sleep(100 * time.Millisecond)
	}
	defer conn.Close()

	// Closing the socket is the only way to interrupt a blocked read.
	client := conn.Conn()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			client.Close()
		case <-done:
		}
	}()

	err := rsp.Serve(ctx, conn, &stubHandler{}, cfg.PacketSize)
	if err != nil && (rsp.IsChannelFailure(err) || errors.Is(err, context.Canceled)) {
		log.WithError(err).Info("debugger connection ended")
		return nil
	}
	return err
}

func send(ctx context.Context, address string, payloads []string, packetSize int) error {
	client, err := rsp.Dial(ctx, address, packetSize)
	if err != nil {
		return err
	}
	defer client.Close()
	for _, payload := range payloads {
		reply, err := client.Request(payload)
		if err != nil {
			return err
		}
		fmt.Println(reply)
	}
	return nil
}

func startProxy(ctx context.Context, listen string, target string, packetSize int) error {
	f, err := forward.Listen(ctx, listen, target, packetSize)
	if err != nil {
		return err
	}
	return f.Serve(ctx)
}
