package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jmerrifield20/minichain/internal/chain"
	"github.com/jmerrifield20/minichain/internal/demo"
	"github.com/jmerrifield20/minichain/internal/metrics"
	"github.com/jmerrifield20/minichain/internal/monitor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "minichain",
	Short: "Hash-linked append-only ledger",
	Long: `minichain builds a small hash-linked ledger in memory and shows how
chain validation detects tampering with past blocks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.SetConfigName("minichain")
			viper.SetConfigType("yaml")
			viper.AddConfigPath(".")
			if home, err := os.UserHomeDir(); err == nil {
				viper.AddConfigPath(home + "/.minichain")
			}
		}
		viper.SetEnvPrefix("minichain")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		viper.AutomaticEnv()

		if err := viper.ReadInConfig(); err != nil {
			var cfgNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &cfgNotFound) {
				return fmt.Errorf("read config: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./minichain.yaml or ~/.minichain/minichain.yaml)")
	rootCmd.PersistentFlags().String("hash", string(chain.DefaultAlgorithm), "digest algorithm: sha256, sha3-256 or blake2b-256")
	rootCmd.PersistentFlags().Bool("debug", false, "enable development logging at debug level")
	_ = viper.BindPFlag("hash", rootCmd.PersistentFlags().Lookup("hash"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.SetDefault("hash", string(chain.DefaultAlgorithm))

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger() (*zap.Logger, error) {
	if viper.GetBool("debug") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func algorithm() (chain.Algorithm, error) {
	return chain.ParseAlgorithm(viper.GetString("hash"))
}

// parsePayload decodes a JSON document, keeping numbers exactly as written.
func parsePayload(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid JSON payload: trailing data")
	}
	return v, nil
}

// ── demo ─────────────────────────────────────────────────────────────────────

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Build a sample ledger, tamper with a block and re-validate",
	Long: `demo appends three sample payments after the genesis block, prints the
ledger and its validity, then rewrites the payload of one block and prints the
validity again.

By default block 1 is rewritten and its digest recomputed. Because block 2
still references the old digest the chain is reported invalid:

  minichain demo

Tampering with the tail and resealing it is not detectable, since no later
block links to it:

  minichain demo --tamper-position 3`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	def := demo.DefaultConfig()
	defPayload, _ := json.Marshal(def.Payload)

	demoCmd.Flags().String("format", "text", "Output format: text or json")
	demoCmd.Flags().Int("tamper-position", def.Position, "Sequence position of the block to tamper with")
	demoCmd.Flags().String("tamper-payload", string(defPayload), "Replacement payload as JSON")
	demoCmd.Flags().Bool("reseal", def.Reseal, "Recompute the tampered block's digest")
	demoCmd.Flags().Bool("metrics", false, "Print collected metrics after the run")

	_ = viper.BindPFlag("format", demoCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("tamper.position", demoCmd.Flags().Lookup("tamper-position"))
	_ = viper.BindPFlag("tamper.payload", demoCmd.Flags().Lookup("tamper-payload"))
	_ = viper.BindPFlag("tamper.reseal", demoCmd.Flags().Lookup("reseal"))
	_ = viper.BindPFlag("metrics", demoCmd.Flags().Lookup("metrics"))
}

func runDemo(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	algo, err := algorithm()
	if err != nil {
		return err
	}
	payload, err := parsePayload(viper.GetString("tamper.payload"))
	if err != nil {
		return err
	}
	cfg := demo.Config{
		Position: viper.GetInt("tamper.position"),
		Payload:  payload,
		Reseal:   viper.GetBool("tamper.reseal"),
	}

	m := metrics.New()
	mon := monitor.New(chain.New(chain.WithAlgorithm(algo)), m, logger)

	report, err := demo.Run(mon, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch viper.GetString("format") {
	case "json":
		err = printReportJSON(out, report)
	default:
		err = printReportText(out, report)
	}
	if err != nil {
		return err
	}

	if viper.GetBool("metrics") {
		fmt.Fprintln(out)
		return m.WriteText(out)
	}
	return nil
}

func printReportJSON(w io.Writer, r *demo.Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(r)
}

func printReportText(w io.Writer, r *demo.Report) error {
	if err := printSnapshot(w, r.Before); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nIs blockchain valid? %t\n", r.ValidBefore.Valid)
	fmt.Fprintf(w, "\nTampered with block at position %d\n", r.Tampered)
	fmt.Fprintf(w, "New digest of block %d: %s\n\n", r.Tampered, r.NewDigest)
	if err := printSnapshot(w, r.After); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nIs blockchain valid? %t", r.ValidAfter.Valid)
	if !r.ValidAfter.Valid {
		fmt.Fprintf(w, " (%s at position %d)", r.ValidAfter.Reason, r.ValidAfter.Position)
	}
	fmt.Fprintln(w)
	return nil
}

func printSnapshot(w io.Writer, s chain.Snapshot) error {
	fmt.Fprintf(w, "Ledger (%s, %d blocks)\n", s.Algorithm, len(s.Chain))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tINDEX\tTIMESTAMP\tPAYLOAD\tPREVIOUS\tDIGEST")
	for i, b := range s.Chain {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n",
			i, b.Index, b.Timestamp, b.Payload, short(b.PreviousDigest), short(b.Digest))
	}
	return tw.Flush()
}

// short abbreviates a hex digest for tabular output.
func short(d string) string {
	if len(d) <= 16 {
		return d
	}
	return d[:16] + "…"
}

// ── digest ───────────────────────────────────────────────────────────────────

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Compute the digest of a single block from its fields",
	Long: `digest prints H(index ++ previous ++ timestamp ++ canonical(payload)) for
the given fields. Equal fields always produce the same digest:

  minichain digest --index 1 --prev 0 --timestamp 2025-02-10T00:00:00Z --payload '{"a":"x"}'`,
	Args: cobra.NoArgs,
	RunE: runDigest,
}

var (
	digestIndex     int
	digestPrev      string
	digestTimestamp string
	digestPayload   string
)

func init() {
	digestCmd.Flags().IntVar(&digestIndex, "index", 0, "Block index")
	digestCmd.Flags().StringVar(&digestPrev, "prev", chain.NoPredecessor, "Previous block digest")
	digestCmd.Flags().StringVar(&digestTimestamp, "timestamp", "", "Block timestamp, hashed verbatim")
	digestCmd.Flags().StringVar(&digestPayload, "payload", "null", "Block payload as JSON")
}

func runDigest(cmd *cobra.Command, _ []string) error {
	algo, err := algorithm()
	if err != nil {
		return err
	}
	payload, err := parsePayload(digestPayload)
	if err != nil {
		return err
	}

	d, err := chain.DigestOf(algo, digestIndex, digestPrev, digestTimestamp, payload)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), d)
	return nil
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the minichain version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "minichain %s\n", version)
	},
}
