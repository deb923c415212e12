// Command minidsp-demo opens a unit (real or mock:// simulated), probes its
// descriptor, and runs a short scripted sequence against it - a wiring demo
// in the same spirit as the teacher's own trezord.go entry point: parse a
// couple of flags, build the logging stack, open the transport, then drive
// it. Not a CLI meant for end users (see SPEC_FULL.md's Non-goals).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/minidsp/minidsp-go/internal/obslog"
	"github.com/minidsp/minidsp-go/registry"
	"github.com/minidsp/minidsp-go/session"
	"github.com/minidsp/minidsp-go/transport"
)

const version = "0.1.0"

func main() {
	var url string
	var logfile string
	var verbose bool
	var forceGeneric bool

	flag.StringVar(&url, "url", "mock:", "Device URL (usb:<bus>:<dev>?vid=..&pid=.., tcp://<host>:<port>, mock:)")
	flag.StringVar(&logfile, "l", "", "Log into a file, rotating after 20MB")
	flag.BoolVar(&verbose, "v", false, "Verbose (debug-level) logging")
	flag.BoolVar(&forceGeneric, "force-generic", false, "Fall back to the generic descriptor on unrecognized firmware")
	flag.Parse()

	logger, ring := obslog.New(obslog.Options{App: "minidsp-demo", LogFile: logfile, Verbose: verbose, RingLines: 2000})
	logger.Info().Str("version", version).Str("url", url).Msg("minidsp-demo is starting")

	reg := registry.NewRegistry()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := transport.Open(ctx, url, reg)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening transport")
	}

	sess, err := session.Open(ctx, tr, reg, forceGeneric)
	if err != nil {
		logger.Fatal().Err(err).Msg("probing device")
	}
	defer sess.Close()

	desc := sess.Descriptor()
	logger.Info().
		Str("product", desc.Name).
		Int("inputs", desc.Inputs).
		Int("outputs", desc.Outputs).
		Bool("dirac", desc.SupportsDirac).
		Msg("device ready")

	if err := runDemo(ctx, sess, logger); err != nil {
		logger.Fatal().Err(err).Msg("demo sequence")
	}

	if ring != nil {
		fmt.Fprint(os.Stderr, ring.String())
	}
}

// runDemo drives a short, representative sequence against sess: read
// status, set master volume/source, touch one input and one output, select
// a preset, and read status back.
func runDemo(ctx context.Context, sess *session.Session, logger zerolog.Logger) error {
	status, err := sess.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	logger.Info().
		Uint8("preset", status.Preset).
		Str("source", status.Source.String()).
		Float64("volume_db", status.VolumeDB).
		Bool("mute", status.Mute).
		Msg("initial status")

	if err := sess.SetVolume(ctx, -20.0); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}

	desc := sess.Descriptor()
	if len(desc.Sources) > 0 {
		if err := sess.SetSource(ctx, desc.Sources[0]); err != nil {
			return fmt.Errorf("set source: %w", err)
		}
	}

	if desc.Inputs > 0 {
		if err := sess.Input(0).SetGain(ctx, -3.0); err != nil {
			return fmt.Errorf("input gain: %w", err)
		}
	}

	if desc.Outputs > 0 {
		out := sess.Output(0)
		if err := out.SetGain(ctx, -1.5); err != nil {
			return fmt.Errorf("output gain: %w", err)
		}
		if out.NumPEQ() > 0 {
			flat := [5]float64{1.0, 0.0, 0.0, 0.0, 0.0}
			if warning, err := session.ImportPEQ(ctx, out, [][5]float64{flat}); err != nil {
				return fmt.Errorf("import peq: %w", err)
			} else if warning != nil {
				logger.Warn().Err(warning).Msg("peq import truncated")
			}
		}
	}

	if desc.Presets > 0 {
		preset := byte(0)
		volume := -8.0
		mute := false
		delta := session.ConfigDelta{MasterStatus: &session.MasterDelta{Preset: &preset, VolumeDB: &volume, Mute: &mute}}
		if err := sess.ApplyConfig(ctx, delta); err != nil {
			return fmt.Errorf("apply config: %w", err)
		}
	}

	final, err := sess.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("get status after demo: %w", err)
	}
	logger.Info().
		Uint8("preset", final.Preset).
		Str("source", final.Source.String()).
		Float64("volume_db", final.VolumeDB).
		Msg("final status")
	return nil
}
