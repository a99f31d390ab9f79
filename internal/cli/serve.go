package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/civitas/internal/handler"
	"github.com/josh-kwaku/civitas/internal/inbox"
	"github.com/josh-kwaku/civitas/internal/processor"
	"github.com/josh-kwaku/civitas/internal/server"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var noWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, and the inbox worker unless --no-worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd.Context(), func(a *app) error {
				if a.cfg.JWTSecret == "" || a.cfg.InboundSecret == "" {
					return fmt.Errorf("serve: JWT_SECRET and INBOUND_SECRET are required")
				}

				routes := server.Routes(server.Handlers{
					Health:   handler.NewHealthHandler(a.db.Conn()),
					Inbound:  handler.NewInboundHandler(inbox.New(a.messages), a.messages, a.cfg.InboundSecret),
					Commands: handler.NewCommandHandler(a.router),
					Accounts: handler.NewAccountHandler(a.ledger),
					Listings: handler.NewListingHandler(a.causae, a.commissiones),
				}, a.cfg.JWTSecret)

				if noWorker {
					return server.Serve(cmd.Context(), a.cfg.Port, routes)
				}

				ctx, cancel := context.WithCancel(cmd.Context())
				defer cancel()

				var wg sync.WaitGroup
				wg.Add(1)
				go func() {
					defer wg.Done()
					runWorker(ctx, a)
				}()

				err := server.Serve(ctx, a.cfg.Port, routes)
				cancel()
				wg.Wait()
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "serve HTTP only; run the worker as a separate process")
	return cmd
}

func newWorkerCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Drain the inbox, and consume the Kafka inbox topic when configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd.Context(), func(a *app) error {
				runWorker(cmd.Context(), a)
				return nil
			})
		},
	}
}

// runWorker blocks until ctx is cancelled.
func runWorker(ctx context.Context, a *app) {
	var publisher inbox.Publisher = inbox.LogPublisher{}
	var wg sync.WaitGroup

	if a.cfg.KafkaEnabled() {
		writer := inbox.NewWriter(a.cfg.KafkaBrokers, a.cfg.KafkaReplyTopic)
		defer writer.Close()
		publisher = inbox.NewKafkaReplies(writer)

		reader := inbox.NewReader(a.cfg.KafkaBrokers, a.cfg.KafkaInboxTopic, a.cfg.KafkaGroupID)
		defer reader.Close()
		ingester := inbox.NewKafkaIngester(reader, inbox.New(a.messages))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ingester.Run(ctx); err != nil {
				slog.Error("kafka ingester exited", "error", err)
			}
		}()
	}

	p := processor.New(a.messages, a.router, publisher, slog.Default(), a.cfg.PollInterval, a.cfg.ClaimTimeout, a.cfg.BatchSize)
	p.Start(ctx)
	wg.Wait()
}

func newProcessCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Handle one batch of pending inbox messages and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.withApp(cmd.Context(), func(a *app) error {
				p := processor.New(a.messages, a.router, nil, slog.Default(), a.cfg.PollInterval, a.cfg.ClaimTimeout, a.cfg.BatchSize)
				n, err := p.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "processed %d message(s)\n", n)
				return nil
			})
		},
	}
}

func newIngestCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Copy messages from the Kafka inbox topic into the inbox table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !rt.cfg.KafkaEnabled() {
				return fmt.Errorf("ingest: KAFKA_BROKERS is not set")
			}
			return rt.withApp(cmd.Context(), func(a *app) error {
				reader := inbox.NewReader(a.cfg.KafkaBrokers, a.cfg.KafkaInboxTopic, a.cfg.KafkaGroupID)
				defer reader.Close()
				return inbox.NewKafkaIngester(reader, inbox.New(a.messages)).Run(cmd.Context())
			})
		},
	}
}
