package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/jroimartin/gocui"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"audiolab/internal/analyzer"
	"audiolab/internal/config"
	"audiolab/internal/synth"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch {
	case cfg.LogFile != "":
		zc.OutputPaths = []string{cfg.LogFile}
		zc.ErrorOutputPaths = []string{cfg.LogFile}
	case !cfg.NoUI && !cfg.List:
		// the terminal belongs to the UI
		return zap.NewNop(), nil
	}

	return zc.Build()
}

func listDevices() error {
	l, err := ListAudioDevices(AudioInOut)
	if err != nil {
		return err
	}

	fmt.Println("Available audio devices")
	for i, d := range l {
		fmt.Println("", i+1, d)
	}

	din, _ := portaudio.DefaultInputDevice()
	dout, _ := portaudio.DefaultOutputDevice()

	fmt.Println()
	if din != nil {
		fmt.Println("Default input device:", din.Name)
	}
	if dout != nil {
		fmt.Println("Default output device:", dout.Name)
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Usage: %v [options] [file.wav]\n", filepath.Base(os.Args[0]))
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Environment: AUDIOLAB_DEVICE, AUDIOLAB_PLAY, AUDIOLAB_RATE, AUDIOLAB_SQUELCH,")
	fmt.Fprintln(os.Stderr, "AUDIOLAB_FPS, AUDIOLAB_WAVE, AUDIOLAB_LISTEN, AUDIOLAB_LOG_LEVEL, AUDIOLAB_LOG_FILE")
}

func main() {
	cfg := config.Default()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Usage = usage
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if err := cfg.ApplyEnv(set); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.WavFile == "" && flag.NArg() >= 1 {
		cfg.WavFile = flag.Arg(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("exit", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	audioOK := true
	if err := portaudio.Initialize(); err != nil {
		// analysis of files and the loopback still work
		logger.Warn("audio disabled", zap.Error(err))
		audioOK = false
	} else {
		defer portaudio.Terminate()
	}

	if cfg.List {
		if !audioOK {
			return ErrDeviceUnavailable
		}
		return listDevices()
	}

	rate := float64(cfg.SampleRate)

	var wavSrc *WaveSource
	if cfg.WavFile != "" {
		var err error
		wavSrc, err = OpenWaveSource(cfg.WavFile, cfg.RecBlock, logger)
		if err != nil {
			return err
		}
		defer wavSrc.Close()

		wavSrc.Loop = !cfg.NoUI
		rate = float64(wavSrc.SampleRate())
	}

	engine, err := analyzer.New(analyzer.Options{
		SampleRate: rate,
		BlockSize:  cfg.RecBlock,
		Squelch:    cfg.Squelch,
	}, logger)
	if err != nil {
		return err
	}

	gen := synth.NewGenerator(rate)
	if w, err := synth.ParseWaveform(cfg.Wave); err == nil {
		gen.SetWaveform(w)
	}
	gen.SetOn(cfg.GenOn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	//
	// input
	//

	switch {
	case wavSrc != nil:
		go func() {
			if err := wavSrc.Run(ctx, engine.Ingest); err != nil {
				logger.Error("wav source", zap.Error(err))
			}
			if cfg.NoUI {
				cancel()
			}
		}()

	case cfg.Loopback:
		gen.SetOn(true)
		go NewLoopback(gen, cfg.RecBlock).Run(ctx, engine.Ingest)

	case audioOK:
		dev := cfg.Input
		if dev == "" && !cfg.NoUI {
			dev, err = guiSelectAudio()
			if err != nil {
				return err
			}
			if dev == "" {
				return errors.New("no audio selected")
			}
		}

		capture, err := OpenCapture(dev, rate, cfg.RecBlock, engine.Ingest, logger)
		if err != nil {
			logger.Warn("input disabled", zap.Error(err))
		} else {
			defer capture.Close()
		}

	default:
		logger.Warn("no input: analysis runs on silence")
	}

	//
	// output
	//

	var playback *Playback
	if audioOK && !cfg.Loopback {
		playback, err = OpenPlayback(cfg.Output, gen, cfg.PlayBlock, logger)
		if err != nil {
			logger.Warn("output disabled", zap.Error(err))
			playback = nil
		} else {
			defer playback.Close()
		}
	}

	controls := NewControls(engine, gen, playback, logger)
	interval := time.Second / time.Duration(cfg.FPS)

	//
	// http
	//

	if cfg.Listen != "" {
		srv := NewServer(engine, gen, controls, logger)
		httpSrv := &http.Server{
			Addr:         cfg.Listen,
			Handler:      srv.Handler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 20 * time.Second,
		}

		go func() {
			logger.Info("http listening", zap.String("addr", cfg.Listen))
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server", zap.Error(err))
			}
		}()
		go srv.Stream(ctx, interval)

		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			httpSrv.Shutdown(sctx)
		}()
	}

	//
	// analysis + presentation
	//

	if cfg.NoUI {
		go engine.Run(ctx, interval, nil)
		printReadout(ctx, engine, gen)
		return nil
	}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer g.Close()

	app := NewApp(g, engine, gen, controls, logger)
	g.SetManagerFunc(app.Layout)
	if err := app.SetKeyBinding(); err != nil {
		return err
	}

	go engine.Run(ctx, interval, app.Refresh)

	return app.MainLoop(ctx)
}

// printReadout writes the status line once a second until ctx is done.
func printReadout(ctx context.Context, engine *analyzer.Engine, gen *synth.Generator) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var snap *analyzer.Snapshot

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap = engine.Snapshot(snap)
			fmt.Println(StatusLine(snap, gen.State()))
		}
	}
}
