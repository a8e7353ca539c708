package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"binance-pattern-trader/config"
	"binance-pattern-trader/internal/auth"
	"binance-pattern-trader/internal/ledger"
	"binance-pattern-trader/internal/vault"
)

func newSampleConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample-config [file]",
		Short: "Write a sample config file (.json or .yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := "config.sample.json"
			if len(args) == 1 {
				filename = args[0]
			}
			if err := config.GenerateSampleConfig(filename); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample config written to %s\n", filename)
			return nil
		},
	}
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		operator string
		scope    string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scope != auth.ScopeRead && scope != auth.ScopeAdmin {
				return fmt.Errorf("scope must be %q or %q", auth.ScopeRead, auth.ScopeAdmin)
			}

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if len(cfg.AuthConfig.JWTSecret) < 32 {
				return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
			}

			duration := cfg.AuthConfig.TokenDuration
			if ttl > 0 {
				duration = ttl
			}
			manager := auth.NewJWTManager(cfg.AuthConfig.JWTSecret, duration, cfg.AuthConfig.Issuer)
			token, err := manager.GenerateToken(auth.OperatorClaims{Operator: operator, Scope: scope})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(token)
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "operator", "name recorded in the token")
	cmd.Flags().StringVar(&scope, "scope", auth.ScopeRead, "read or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_duration)")
	return cmd
}

func newStoreKeysCmd(opts *rootOptions) *cobra.Command {
	var (
		apiKey    string
		secretKey string
		testnet   bool
	)

	cmd := &cobra.Command{
		Use:   "store-keys",
		Short: "Write Binance API credentials to Vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" || secretKey == "" {
				return fmt.Errorf("--api-key and --secret-key are required")
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if !cfg.VaultConfig.Enabled {
				return fmt.Errorf("vault is not enabled in configuration")
			}
			if !cmd.Flags().Changed("testnet") {
				testnet = cfg.BinanceConfig.TestNet
			}

			client, err := vault.NewClient(cfg.VaultConfig)
			if err != nil {
				return err
			}
			if err := client.StoreAPIKey(cmd.Context(), vault.APIKeyData{
				APIKey:    apiKey,
				SecretKey: secretKey,
				IsTestnet: testnet,
			}); err != nil {
				return err
			}

			network := "mainnet"
			if testnet {
				network = "testnet"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s credentials in Vault\n", network)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Binance API key")
	cmd.Flags().StringVar(&secretKey, "secret-key", "", "Binance secret key")
	cmd.Flags().BoolVar(&testnet, "testnet", false, "store testnet credentials (defaults to binance.testnet)")
	return cmd
}

func newTradesCmd(opts *rootOptions) *cobra.Command {
	var (
		symbol string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List ledger records from the SQLite ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}
				dbPath = cfg.LedgerConfig.SQLitePath
			}
			if dbPath == "" {
				return fmt.Errorf("no SQLite ledger configured (ledger.sqlite_path or --db)")
			}

			l, err := ledger.NewSQLite(dbPath)
			if err != nil {
				return err
			}
			defer l.Close()

			entries, err := l.Entries(cmd.Context(), symbol)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tACTION\tSYMBOL\tSIDE\tPRICE\tQTY\tPATTERN\tRESULT\tPOSITION")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\t%s\t%s\t%s\n",
					e.Timestamp.UTC().Format(time.RFC3339), e.Action, e.Symbol, e.Side,
					e.Price, e.Quantity, e.Pattern, e.Result, e.PositionID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "only this symbol")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite ledger path (defaults to ledger.sqlite_path)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "patternbot", version)
		},
	}
}
