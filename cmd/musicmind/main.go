package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ncecere/musicmind"
	"github.com/ncecere/musicmind/flamingo"
	"github.com/ncecere/musicmind/internal/config"
	"github.com/ncecere/musicmind/middleware"
	"github.com/ncecere/musicmind/provider"
	"github.com/ncecere/musicmind/registry"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// musicmind sends an audio file to the remote Audio Flamingo deployment
// and prints the result.
//
// Usage:
//
//	musicmind analyze song.mp3
//	musicmind party-vibe track.wav --json
//	musicmind transcribe vocals.mp3 --endpoint https://example.modal.run
//	musicmind caption beat.mp3 -p "Write a caption for a festival reel"
//	musicmind health
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// run executes one CLI invocation. httpClient is nil outside tests.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, httpClient provider.HTTPClient) int {
	reg := registry.NewDefault()

	fs := pflag.NewFlagSet("musicmind", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	fs.Usage = func() { usage(stderr, fs, reg) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	positional := fs.Args()
	if len(positional) == 0 {
		fmt.Fprintln(stderr, "musicmind: missing command")
		fs.Usage()
		return exitUsage
	}

	op, err := reg.Operation(positional[0])
	if err != nil {
		fmt.Fprintf(stderr, "musicmind: unknown command %q\n", positional[0])
		fs.Usage()
		return exitUsage
	}

	var filePath string
	if op.RequiresFile {
		if len(positional) < 2 {
			fmt.Fprintf(stderr, "musicmind: %s requires an audio file\n", op.Name)
			return exitUsage
		}
		filePath = positional[1]
	}

	cfg, err := config.Load(fs, config.Options{})
	if err != nil {
		fmt.Fprintf(stderr, "musicmind: %v\n", err)
		return exitUsage
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(cfg.Level())

	client, err := flamingo.NewClient(provider.ClientOptions{
		BaseURL:    cfg.Endpoint,
		HTTPClient: httpClient,
	})
	if err != nil {
		fmt.Fprintf(stderr, "musicmind: %v\n", err)
		return exitUsage
	}
	logger.WithField("endpoint", client.Endpoint()).Debug("client ready")

	model := middleware.WrapAudioModel(client, middleware.LoggingAudioModel(middleware.LoggingOptions{
		Logger:      logrusPrintf{logger},
		LogRequest:  true,
		LogResponse: true,
		LogErrors:   true,
		LogDuration: true,
	}))

	res, err := musicmind.RunWithRegistry(ctx, reg, op.Name, musicmind.Request{
		Model:    model,
		FilePath: filePath,
		Prompt:   cfg.Prompt,
	})
	if err != nil {
		fmt.Fprintln(stderr, describeError(op, err))
		return exitFailure
	}

	if cfg.JSON {
		err = musicmind.WriteJSON(stdout, res)
	} else {
		err = musicmind.WriteText(stdout, op, res)
	}
	if err != nil {
		fmt.Fprintf(stderr, "musicmind: write output: %v\n", err)
		return exitFailure
	}
	return exitOK
}

// logrusPrintf routes middleware output to logrus at debug level so the
// default warn level keeps stderr quiet.
type logrusPrintf struct {
	l *logrus.Logger
}

func (p logrusPrintf) Printf(format string, v ...any) {
	p.l.Debugf(format, v...)
}

// describeError renders err with a prefix naming the failure kind.
func describeError(op registry.Operation, err error) string {
	var (
		inputErr  *musicmind.InputError
		connErr   *musicmind.ConnectivityError
		remoteErr *musicmind.RemoteError
	)
	switch {
	case errors.As(err, &inputErr):
		return "❌ " + err.Error()
	case errors.As(err, &connErr):
		if connErr.Timeout() {
			return fmt.Sprintf("❌ %s failed: endpoint timed out: %v", op.Name, connErr.Err)
		}
		return fmt.Sprintf("❌ %s failed: endpoint unreachable: %v", op.Name, connErr.Err)
	case errors.As(err, &remoteErr):
		return fmt.Sprintf("❌ %s failed: %s", op.Name, strings.TrimPrefix(remoteErr.Error(), "musicmind: "))
	default:
		return fmt.Sprintf("❌ %s failed: %v", op.Name, err)
	}
}

func usage(w io.Writer, fs *pflag.FlagSet, reg registry.Registry) {
	fmt.Fprintln(w, "🎵 MusicMind - AI music understanding")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  musicmind <command> [file] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, op := range reg.Operations() {
		arg := "<file>"
		if !op.RequiresFile {
			arg = ""
		}
		fmt.Fprintf(w, "  %-11s %-7s %s\n", op.Name, arg, op.Description)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, fs.FlagUsages())
}
