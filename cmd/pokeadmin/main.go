package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/susu3304/pokediabot/internal/audit"
	"github.com/susu3304/pokediabot/internal/config"
	"github.com/susu3304/pokediabot/internal/db"
	"github.com/susu3304/pokediabot/internal/models"
)

func main() {
	root := &cobra.Command{
		Use:          "pokeadmin",
		Short:        "Ledger maintenance for the trade bot",
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newGrantCmd(),
		newBalanceCmd(),
		newTradesCmd(),
		newAuditCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// withDB opens the database for the duration of fn.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, database *db.DB) error) error {
	databaseURL, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	database, err := db.New(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(ctx, database)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				if err := database.RunMigrations(ctx); err != nil {
					return err
				}
				fmt.Println("Migrations applied.")
				return nil
			})
		},
	}
}

func newGrantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant <user> <cash|redeem> <amount>",
		Short: "Credit (or with a negative amount, debit) a balance",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := models.ParseCurrency(args[1])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseInt(strings.ReplaceAll(args[2], ",", ""), 10, 64)
			if err != nil || amount == 0 {
				return fmt.Errorf("invalid amount %q", args[2])
			}
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				bal, err := database.Grant(ctx, args[0], c, amount)
				if err != nil {
					return err
				}
				printBalances(args[0], bal)
				return nil
			})
		},
	}
}

func newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <user>",
		Short: "Show a user's balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				bal, err := database.Balances(ctx, args[0])
				if err != nil {
					return err
				}
				printBalances(args[0], bal)
				return nil
			})
		},
	}
}

func newTradesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "trades <user>",
		Short: "List a user's finalized trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				records, err := database.ListTrades(ctx, args[0], limit)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Println("No trades.")
					return nil
				}
				for _, rec := range records {
					printRecord(rec)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of trades to show")
	return cmd
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <file.jsonl.zst>",
		Short: "Print the trades stored in an audit archive file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := audit.ReadTrades(args[0])
			for _, rec := range records {
				printRecord(rec)
			}
			return err
		},
	}
}

func printBalances(userID string, bal models.Balances) {
	fmt.Printf("%s: %s cash, %s redeem(s), %s shards\n",
		userID, humanize.Comma(bal.Cash), humanize.Comma(bal.Redeems), humanize.Comma(bal.Shards))
}

func printRecord(rec models.TradeRecord) {
	status := "completed"
	if rec.Aborted {
		status = "aborted"
	}
	fmt.Printf("%s  %s  %s <-> %s  %s (%s)  delivered=%d lost=%d\n",
		rec.FinalizedAt.Format(time.RFC3339), rec.ID, rec.UserA, rec.UserB,
		status, rec.Mode, len(rec.Delivered), len(rec.Lost))
	for _, e := range rec.Lost {
		fmt.Printf("    lost: %s -> %s %s\n", e.From, e.To, describeEntry(e))
	}
}

func describeEntry(e models.TradeEntry) string {
	if e.Currency != "" {
		return fmt.Sprintf("%s %s (%s)", humanize.Comma(e.Amount), e.Currency, e.Reason)
	}
	return fmt.Sprintf("#%d %s (%s)", e.PokemonID, e.Name, e.Reason)
}
