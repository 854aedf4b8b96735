package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/praxis-legal/praxis/internal/ledger"
	"github.com/praxis-legal/praxis/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	authToken string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "praxis",
	Short: "Praxis ledger audit CLI",
	Long: `praxis is the command-line auditor for the Praxis event ledger.

It lists chains, inspects chain heads and entries, verifies chain
integrity, and computes evidence digests for offline comparison.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.praxis")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if authToken == "" {
			authToken = viper.GetString("auth_token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.praxis/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Praxis server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token for authenticated servers")

	rootCmd.AddCommand(chainsCmd)
	rootCmd.AddCommand(headCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	opts := []client.Option{}
	if authToken != "" {
		opts = append(opts, client.WithBearerToken(authToken))
	}
	return client.New(serverURL, opts...)
}

// ── chains ───────────────────────────────────────────────────────────────────

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List every chain known to the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		chains, err := newClient().Chains(context.Background())
		if err != nil {
			return err
		}
		for _, id := range chains {
			fmt.Println(id)
		}
		return nil
	},
}

// ── head ─────────────────────────────────────────────────────────────────────

var headCmd = &cobra.Command{
	Use:   "head <chain-id>",
	Short: "Show a chain's length and current head hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		head, err := newClient().Head(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Chain:   %s\n", head.ChainID)
		fmt.Printf("Entries: %d\n", head.Entries)
		fmt.Printf("Head:    %s\n", head.Head)
		return nil
	},
}

// ── entries ──────────────────────────────────────────────────────────────────

var (
	entriesFrom   uint64
	entriesTo     uint64
	entriesFormat string
)

var entriesCmd = &cobra.Command{
	Use:   "entries <chain-id>",
	Short: "List a chain's entries within a sequence window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ctx := context.Background()

		to := entriesTo
		if !cmd.Flags().Changed("to") {
			head, err := c.Head(ctx, args[0])
			if err != nil {
				return err
			}
			if head.Entries == 0 {
				return nil
			}
			to = uint64(head.Entries) - 1
		}

		entries, err := c.Entries(ctx, args[0], entriesFrom, to)
		if err != nil {
			return err
		}

		if entriesFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tTIMESTAMP\tACTOR\tACTION\tHASH")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				e.Sequence, e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Actor, e.Action, e.Hash)
		}
		return w.Flush()
	},
}

func init() {
	entriesCmd.Flags().Uint64Var(&entriesFrom, "from", 0, "First sequence to include")
	entriesCmd.Flags().Uint64Var(&entriesTo, "to", 0, "Last sequence to include (default: chain tail)")
	entriesCmd.Flags().StringVar(&entriesFormat, "format", "text", "Output format: text or json")
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify [chain-id ...]",
	Short: "Audit chain hash links end to end (all chains when none given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ctx := context.Background()

		chains := args
		if len(chains) == 0 {
			var err error
			chains, err = c.Chains(ctx)
			if err != nil {
				return err
			}
		}

		broken := 0
		for _, chainID := range chains {
			report, err := c.Verify(ctx, chainID)
			if err != nil {
				return err
			}
			if report.Valid {
				fmt.Printf("%s: OK (%d entries, head %s)\n", report.ChainID, report.Length, report.HeadHash)
				continue
			}
			broken++
			fmt.Printf("%s: BROKEN at sequence %d (%s)\n", report.ChainID, report.BrokenAtSequence, report.Reason)
		}
		if broken > 0 {
			return fmt.Errorf("%d broken chain(s)", broken)
		}
		return nil
	},
}

// ── digest ───────────────────────────────────────────────────────────────────

var digestCmd = &cobra.Command{
	Use:   "digest [file.json]",
	Short: "Compute the evidence digest of a JSON document",
	Long: `Digest canonicalizes a JSON object and prints its evidence digest.

The digest is computed locally, so a captured evidence bundle can be
checked against a ledger entry without trusting the server:

  praxis digest evidence.json
  cat evidence.json | praxis digest`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("parse JSON object: %w", err)
		}

		ev, err := ledger.DigestEvidence(fields)
		if err != nil {
			return err
		}
		fmt.Printf("%s:%s\n", ev.Algorithm, ev.Digest)
		return nil
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the praxis CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("praxis", version)
	},
}
