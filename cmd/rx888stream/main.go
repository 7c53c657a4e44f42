// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Command rx888stream captures the raw 16-bit ADC sample stream from an
// RX888 and writes it byte-exact to stdout. Diagnostics go to stderr.
package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/gotmc/rx888"
	"github.com/hashicorp/logutils"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupViper wires the option defaults and the optional rx888stream.yaml
// config file; command-line flags override both.
func setupViper() error {
	defaults := rx888.DefaultConfig()
	viper.SetDefault("verbose", 0)
	viper.SetDefault("firmware", "")
	viper.SetDefault("dither", false)
	viper.SetDefault("rand", false)
	viper.SetDefault("samplerate", defaults.SampleRate)
	viper.SetDefault("gainmode", "high")
	viper.SetDefault("gain", defaults.Gain)
	viper.SetDefault("att", defaults.Attenuation)
	viper.SetDefault("queuedepth", defaults.QueueDepth)
	viper.SetDefault("reqsize", defaults.RequestSize)
	viper.SetDefault("refclock-10m", false)
	viper.SetDefault("bias-hf", false)
	viper.SetDefault("bias-vhf", false)
	viper.SetDefault("logfile", "")

	viper.SetConfigName("rx888stream")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")
	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return err
	}
	return nil
}

// setupLogger routes diagnostics through a level filter on stderr and,
// when a log file is given, a rotating copy of everything.
func setupLogger(verbosity int, logfile string) {
	minLevel := logutils.LogLevel("INFO")
	if verbosity > 0 {
		minLevel = "DEBUG"
	}
	var w io.Writer = os.Stderr
	if logfile != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logfile,
			MaxSize:    10, // megabytes
			MaxBackups: 4,
		})
	}
	log.SetOutput(&logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "ERROR"},
		MinLevel: minLevel,
		Writer:   w,
	})
}

func main() {
	if err := setupViper(); err != nil {
		log.Printf("[ERROR] Error reading config file: %s", err)
		return
	}

	verbose := flag.Int("verbose", viper.GetInt("verbose"), "verbosity level")
	firmware := flag.String("firmware", viper.GetString("firmware"), "firmware image file")
	dither := flag.Bool("dither", viper.GetBool("dither"), "enable dithering")
	rand := flag.Bool("rand", viper.GetBool("rand"), "enable output randomization")
	samplerate := flag.Int("samplerate", viper.GetInt("samplerate"), "sample rate in Hz")
	gainmode := flag.String("gainmode", viper.GetString("gainmode"), "gain mode: low or high")
	gain := flag.Int("gain", viper.GetInt("gain"), "gain value, 0..127")
	att := flag.Int("att", viper.GetInt("att"), "attenuation, 0..63")
	queuedepth := flag.Int("queuedepth", viper.GetInt("queuedepth"), "transfer requests in flight, 1..64")
	reqsize := flag.Int("reqsize", viper.GetInt("reqsize"), "packets per transfer request, 1..64")
	refclock10M := flag.Bool("refclock-10M", viper.GetBool("refclock-10m"), "use 10 MHz refclock (27 MHz default)")
	biasHF := flag.Bool("bias-hf", viper.GetBool("bias-hf"), "enable the HF bias tee")
	biasVHF := flag.Bool("bias-vhf", viper.GetBool("bias-vhf"), "enable the VHF bias tee")
	logfile := flag.String("logfile", viper.GetString("logfile"), "also log to this rotating file")
	flag.Parse()

	setupLogger(*verbose, *logfile)

	cfg := rx888.DefaultConfig()
	cfg.Verbosity = *verbose
	cfg.FirmwareFile = *firmware
	cfg.Dither = *dither
	cfg.Randomizer = *rand
	cfg.BiasHF = *biasHF
	cfg.BiasVHF = *biasVHF
	cfg.SampleRate = *samplerate
	cfg.Gain = *gain
	cfg.Attenuation = *att
	cfg.QueueDepth = *queuedepth
	cfg.RequestSize = *reqsize
	if *refclock10M {
		cfg.ReferenceClock = rx888.RefClock10M
	}
	mode, ok := rx888.GainModes[*gainmode]
	if !ok {
		log.Printf("[ERROR] Invalid gain mode %q", *gainmode)
		flag.Usage()
		return
	}
	cfg.GainMode = mode
	// Configuration errors exit before any device I/O.
	if err := cfg.Validate(); err != nil {
		log.Printf("[ERROR] %s", err)
		flag.Usage()
		return
	}

	log.Printf("[INFO] Firmware: %s", cfg.FirmwareFile)
	log.Printf("[INFO] Ref. Clock: %d Hz", cfg.ReferenceClock)
	log.Printf("[INFO] Requested Sample Rate: %d Hz", cfg.SampleRate)
	plan := rx888.PlanClock(float64(cfg.SampleRate), cfg.ReferenceClock)
	log.Printf("[INFO] %s", plan)
	log.Printf("[INFO] Output Randomizer: %t, Dither: %t", cfg.Randomizer, cfg.Dither)
	log.Printf("[INFO] Gain Mode: %s, Gain: %d, Att: %d", cfg.GainMode, cfg.Gain, cfg.Attenuation)

	ctx, err := rx888.Init()
	if err != nil {
		log.Fatalf("[ERROR] Error initializing libusb: %s", err)
	}
	defer ctx.Close()

	dev, err := rx888.GetFirstDevice(ctx, cfg.FirmwareFile)
	if err != nil {
		log.Fatalf("[ERROR] Couldn't open an RX888: %s", err)
	}
	defer dev.Close()
	if sn, err := dev.SerialNumber(); err == nil {
		log.Printf("[INFO] Found RX888, S/N %s", sn)
	}
	log.Printf("[INFO] Queue depth: %d, Request size: %d bytes",
		cfg.QueueDepth, cfg.RequestSize*dev.PacketSize)

	stream, err := rx888.NewStream(dev, os.Stdout,
		cfg.QueueDepth, cfg.RequestSize*dev.PacketSize, cfg.Randomizer)
	if err != nil {
		log.Fatalf("[ERROR] %s", err)
	}

	// SIGPIPE is included so that a downstream tool closing the pipe winds
	// the capture down instead of killing the process.
	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, unix.SIGINT, unix.SIGTERM, unix.SIGPIPE)
	go func() {
		sig := <-sigC
		log.Printf("[INFO] %s: stopping transfers", sig)
		stream.RequestStop()
	}()

	stream.Start()
	if err := dev.Configure(&cfg); err != nil {
		log.Fatalf("[ERROR] Error configuring device: %s", err)
	}
	stream.Run()

	log.Printf("[INFO] Transfers completed")
	if err := dev.Stop(); err != nil {
		log.Printf("[ERROR] Error stopping streaming engine: %s", err)
	}
	log.Printf("[INFO] %d transfers ok, %d failed, %d write errors, %d bytes written",
		stream.SuccessCount(), stream.FailureCount(),
		stream.WriteErrorCount(), stream.BytesWritten())
}
