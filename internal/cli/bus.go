package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/umicp/internal/bus"
)

// PublishResult is the output of bus publish.
type PublishResult struct {
	Hash      string `json:"hash"`
	Receivers int64  `json:"receivers"`
}

func (r PublishResult) String() string {
	return fmt.Sprintf("published %s to %d receiver(s)", shortHash(r.Hash), r.Receivers)
}

type busOptions struct {
	addr      string
	namespace string
}

// NewBusCommand creates the bus command group.
func NewBusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &busOptions{}
	cmd := &cobra.Command{
		Use:   "bus",
		Short: "Publish and receive envelopes over Redis pub/sub",
		Long: `Publish and receive envelopes over Redis pub/sub.

Each peer has an inbox channel; envelopes addressed to "*" go to every
subscriber in the namespace.`,
	}
	cmd.PersistentFlags().StringVar(&opts.addr, "addr", "", "Redis address (defaults to bus.addr from config)")
	cmd.PersistentFlags().StringVar(&opts.namespace, "namespace", "", "channel namespace (defaults to bus.namespace from config)")

	cmd.AddCommand(newBusPublishCommand(rootOpts, opts))
	cmd.AddCommand(newBusListenCommand(rootOpts, opts))

	return cmd
}

// client connects to the bus named by flags and config.
func (o *busOptions) client(rootOpts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*bus.Client, error) {
	cfg, err := rootOpts.settings()
	if err != nil {
		return nil, err
	}
	addr, ns := cfg.Bus.Addr, cfg.Bus.Namespace
	if o.addr != "" {
		addr = o.addr
	}
	if o.namespace != "" {
		ns = o.namespace
	}

	f.VerboseLog("Connecting to %s (namespace %s)", addr, ns)
	client, err := bus.NewClient(&redis.Options{Addr: addr}, ns,
		bus.WithMaxRetries(cfg.Bus.MaxRetries),
		bus.WithLogger(rootOpts.logger(cmd, cfg)),
	)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeBus, "cannot create bus client", err)
	}
	if err := client.Ping(cmd.Context()); err != nil {
		client.Close()
		return nil, f.Fail(ExitCommandError, ErrCodeBus, "cannot reach "+addr, err)
	}
	return client, nil
}

func newBusPublishCommand(rootOpts *RootOptions, opts *busOptions) *cobra.Command {
	in := &envelopeInput{}
	cmd := &cobra.Command{
		Use:           "publish",
		Short:         "Publish an envelope to its recipient's inbox",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			env, err := in.load(cmd)
			if err != nil {
				return envelopeFailure(f, err)
			}
			if err := env.Check(); err != nil {
				return envelopeFailure(f, err)
			}
			hash, err := env.Hash()
			if err != nil {
				return envelopeFailure(f, err)
			}

			client, err := opts.client(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := client.Publish(cmd.Context(), env)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeBus, "publish failed", err)
			}
			return f.Success(PublishResult{Hash: hash, Receivers: n})
		},
	}
	in.bind(cmd)
	return cmd
}

func newBusListenCommand(rootOpts *RootOptions, opts *busOptions) *cobra.Command {
	var (
		count   int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "listen <peer>",
		Short: "Print envelopes delivered to a peer",
		Long: `Subscribe to a peer's inbox and the broadcast channel and print each
envelope's canonical form as it arrives.

Stops after --count envelopes, after --timeout, or on interrupt.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			client, err := opts.client(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			sub, err := client.Subscribe(ctx, args[0])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeBus, "subscribe failed", err)
			}
			defer sub.Close()
			f.VerboseLog("Listening as %s", args[0])

			received := 0
			done := func() error {
				if count > 0 && received < count {
					return f.Fail(ExitFailure, ErrCodeBus,
						fmt.Sprintf("received %d of %d envelope(s)", received, count), ctx.Err())
				}
				return nil
			}
			errs := sub.Errors()
			for count <= 0 || received < count {
				select {
				case env, ok := <-sub.Envelopes():
					if !ok {
						return done()
					}
					data, err := env.Serialize()
					if err != nil {
						return envelopeFailure(f, err)
					}
					if err := f.Success(EnvelopeResult{Canonical: string(data)}); err != nil {
						return err
					}
					received++
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					f.VerboseLog("Skipped message: %v", err)
				case <-ctx.Done():
					return done()
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many envelopes (0 for no limit)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "stop after this long (0 for no limit)")
	return cmd
}
