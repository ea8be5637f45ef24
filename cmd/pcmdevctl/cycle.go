package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gen2brain/pcmdev"
)

func cycleCommand(a *app) *cobra.Command {
	var (
		like     string
		channels uint32
		rate     uint32
		format   string
		callers  int
		hold     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "cycle <index|name>",
		Short: "Open, prepare, start, stop and close an endpoint from concurrent callers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if callers < 1 {
				return fmt.Errorf("callers must be at least 1, got %d", callers)
			}

			mc := pcmdev.MediaConfig{Channels: channels, Rate: rate}
			if like != "" {
				var err error
				if mc, err = mediaFromWAV(like); err != nil {
					return err
				}
			}

			if cmd.Flags().Changed("format") || like == "" {
				f, err := pcmdev.ParseMediaFormat(format)
				if err != nil {
					return err
				}
				mc.Format = f
			}

			m, err := a.manager(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer m.Deinit()

			e, err := resolve(m, args[0])
			if err != nil {
				return err
			}

			if err := e.SetMediaConfig(mc); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cycling %s with %d callers: %d ch, %d Hz, %s\n", e, callers, mc.Channels, mc.Rate, mc.Format)

			start := time.Now()

			g, ctx := errgroup.WithContext(cmd.Context())
			started := make(chan struct{}, callers)
			release := make(chan struct{})

			for range callers {
				g.Go(func() error {
					if err := e.Open(); err != nil {
						return err
					}
					defer e.Close()

					if err := e.Prepare(); err != nil {
						return err
					}

					if err := e.Start(); err != nil {
						return err
					}
					defer e.Stop()

					started <- struct{}{}

					select {
					case <-release:
					case <-ctx.Done():
					}

					return nil
				})
			}

		wait:
			for range callers {
				select {
				case <-started:
				case <-ctx.Done():
					break wait
				}
			}

			if ctx.Err() == nil {
				c := e.Counts()
				fmt.Fprintf(out, "All callers started: state %s, open %d, prepare %d, start %d\n", e.State(), c.Open, c.Prepare, c.Start)
				holdOrDone(ctx, hold)
			}

			close(release)
			if err := g.Wait(); err != nil {
				return err
			}

			fmt.Fprintf(out, "Cycle finished in %v, state %s\n", time.Since(start).Round(time.Millisecond), e.State())

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&like, "like", "", "Take channels, rate and format from a WAV file header")
	flags.Uint32VarP(&channels, "channels", "c", 2, "Number of channels")
	flags.Uint32VarP(&rate, "rate", "r", 48000, "Sample rate in Hz")
	flags.StringVarP(&format, "format", "f", "S16_LE", "Sample format: S8, S16_LE, S24_LE, S24_3LE, S32_LE")
	flags.IntVarP(&callers, "callers", "n", 1, "Number of concurrent callers sharing the endpoint")
	flags.DurationVar(&hold, "hold", 100*time.Millisecond, "How long each caller keeps the stream started")

	return cmd
}

// mediaFromWAV derives a media configuration from the header of a WAV file.
func mediaFromWAV(path string) (pcmdev.MediaConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return pcmdev.MediaConfig{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return pcmdev.MediaConfig{}, fmt.Errorf("%s: invalid WAV file", path)
	}

	var f *audio.Format = decoder.Format()

	mc := pcmdev.MediaConfig{
		Channels:   uint32(f.NumChannels),
		Rate:       uint32(f.SampleRate),
		DataFormat: pcmdev.DataFormatFixedPoint,
	}

	// Format 3 is IEEE Float, which the endpoints only carry as raw 32-bit words.
	if decoder.WavAudioFormat == 3 {
		if decoder.BitDepth != 32 {
			return pcmdev.MediaConfig{}, fmt.Errorf("unsupported float bit depth from WAV: %d", decoder.BitDepth)
		}
		mc.Format = pcmdev.FormatPCMS32LE
		mc.DataFormat = pcmdev.DataFormatFloatingPoint

		return mc, nil
	}

	switch decoder.BitDepth {
	case 8:
		mc.Format = pcmdev.FormatPCMS8
	case 16:
		mc.Format = pcmdev.FormatPCMS16LE
	case 24:
		mc.Format = pcmdev.FormatPCMS24_3LE
	case 32:
		mc.Format = pcmdev.FormatPCMS32LE
	default:
		return pcmdev.MediaConfig{}, fmt.Errorf("unsupported integer bit depth from WAV: %d", decoder.BitDepth)
	}

	return mc, nil
}
