package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/civitas/internal/auth"
	"github.com/josh-kwaku/civitas/internal/repository"
)

func newSendCommand(rt *runtime) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "send --from EMAIL COMMAND...",
		Short: "Run one command synchronously and print the reply",
		Long: `Run one command as if it arrived from EMAIL. Arguments are joined
with newlines, so each field line can be passed as its own argument:

  civitas send --from ann@example.org TRANSFER "To: bob@example.org" "Amount: 5"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(a *app) error {
				out := a.router.Dispatch(cmd.Context(), from, strings.Join(args, "\n"))
				fmt.Fprintf(cmd.OutOrStdout(), "Subject: %s\n\n%s\n", out.Subject, out.Body)
				if !out.OK {
					return fmt.Errorf("command rejected: %s", out.Code)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender address")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newMigrateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(cmd.Context(), rt.cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := repository.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newGrantCommand(rt *runtime) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "grant EMAIL AMOUNT",
		Short: "Mint credits into an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("grant: amount %q: %w", args[1], err)
			}
			return rt.withApp(cmd.Context(), func(a *app) error {
				balance, err := a.ledger.Credit(cmd.Context(), args[0], amount, note)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", args[0], balance)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "grant", "ledger note")
	return cmd
}

func newBalanceCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "balance EMAIL",
		Short: "Print an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(a *app) error {
				balance, err := a.ledger.GetBalance(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", args[0], balance)
				return nil
			})
		},
	}
}

func newHistoryCommand(rt *runtime) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history EMAIL",
		Short: "Print recent ledger entries for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(a *app) error {
				entries, err := a.ledger.History(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tDELTA\tBALANCE\tNOTE")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%+d\t%d\t%s\n", e.Timestamp.Format(time.RFC3339), e.Delta, e.BalanceAfter(), e.Note)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries")
	return cmd
}

func newTokenCommand(rt *runtime) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token EMAIL",
		Short: "Issue an API bearer token for EMAIL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfg.JWTSecret == "" {
				return fmt.Errorf("token: JWT_SECRET is required")
			}
			token, err := auth.GenerateToken(args[0], rt.cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
