package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"chainlink-consumer/logger"
	solana_chainlink "chainlink-consumer/solana"
	"chainlink-consumer/storage"

	"github.com/AlecAivazis/survey/v2"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "chainlink-consumer",
	Short: "Store the latest Chainlink price in a new Decimal account.",
	Long: `Invokes execute on the solana_chainlink program: the program reads a Chainlink
price feed and stores the answer in a freshly generated Decimal account. The new
account is then re-read from the ledger and decoded.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadDotEnv()
	},
	RunE: run,
}

func init() {
	addPersistentFlags(rootCmd.PersistentFlags())
	addExecuteFlags(rootCmd.Flags())
	rootCmd.AddCommand(decodeCmd, listCmd)
}

func addPersistentFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "YAML config file")
	flags.String("rpc", devnetRpcEndpoint, "RPC endpoint (env ANCHOR_PROVIDER_URL, HELIUS_API_KEY)")
	flags.String("idl", defaultIDLPath, "program IDL file; the embedded solana_chainlink IDL is used when it is missing")
	flags.String("program", "", "solana_chainlink program address")
	flags.String("commitment", "confirmed", "commitment level: processed, confirmed or finalized")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "console", "log format: console or json")
	flags.Int("space", solana_chainlink.DefaultAccountSpace, "allocated size of a Decimal account in bytes")
}

func addExecuteFlags(flags *pflag.FlagSet) {
	flags.String("wallet", defaultWallet(), "fee payer keypair file (env ANCHOR_WALLET)")
	flags.String("feed", solana_chainlink.DefaultFeed.String(), "Chainlink feed account (env CHAINLINK_FEED)")
	flags.String("chainlink-program", solana_chainlink.ChainlinkProgramID.String(), "Chainlink store program")
	flags.Duration("timeout", solana_chainlink.DefaultConfirmTimeout, "how long to wait for confirmation")
	flags.Bool("skip-preflight", false, "skip preflight simulation")
	flags.Bool("skip-feed-check", false, "do not check that the feed account exists before submitting")
	flags.BoolP("interactive", "i", false, "prompt for the program and feed")
}

// run is the main entry point: one execute invocation from build to decoded account.
func run(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, os.Getenv)
	if err != nil {
		return err
	}
	interactive, _ := cmd.Flags().GetBool("interactive")
	out := cmd.OutOrStdout()

	myFigure := figure.NewFigure("CHAINLINK", "small", true)
	fmt.Fprintln(out, titleStyle.Render(myFigure.String()))

	// 1. Load the program descriptor
	// ------------------------------
	idl, err := loadIDL(out, cfg.IDLPath)
	if err != nil {
		return err
	}

	if interactive {
		if err := promptRequest(&cfg, idl); err != nil {
			return err
		}
	} else if cfg.ProgramID == "" {
		return fmt.Errorf("--program is required (or use --interactive)")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	programID, err := solana_chainlink.ResolveProgramID(idl, cfg.ProgramID)
	if err != nil {
		return err
	}
	feed, err := parseAddress("feed", cfg.Feed)
	if err != nil {
		return err
	}
	chainlinkProgram, err := parseAddress("chainlink program", cfg.ChainlinkProgram)
	if err != nil {
		return err
	}

	// 2. Connect with the fee payer
	// -----------------------------
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	signer, err := storage.LoadKeypair(cfg.WalletPath)
	if err != nil {
		return fmt.Errorf("failed to load fee payer keypair: %w", err)
	}
	opts, err := cfg.ClientOptions()
	if err != nil {
		return err
	}
	client, err := solana_chainlink.NewClient(cfg.RpcEndpoint, signer, opts, log)
	if err != nil {
		return fmt.Errorf("failed to create Solana client: %w", err)
	}

	if interactive {
		confirmed, err := confirmSubmit(fmt.Sprintf("Submit execute to %s paid by %s?", programID, client.FeePayer()))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(out, promptStyle.Render("Aborted."))
			return nil
		}
	}

	// 3. Execute
	// ----------
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("📡 Reading %s through program %s...", feed, programID)))
	result, err := client.ExecuteFeed(ctx, solana_chainlink.FeedRequest{
		IDL:              idl,
		ProgramID:        programID,
		Feed:             feed,
		ChainlinkProgram: chainlinkProgram,
		Space:            cfg.Space,
		SkipFeedCheck:    cfg.SkipFeedCheck,
	})
	printResult(out, result)
	return err
}

func loadIDL(out io.Writer, path string) (*solana_chainlink.IDL, error) {
	idl, embedded, err := solana_chainlink.LoadIDL(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load IDL: %w", err)
	}
	if embedded {
		fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("Info: %s not found, using the embedded solana_chainlink IDL.", path)))
	}
	return idl, nil
}

func parseAddress(what, address string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: invalid %s address %q: %v", solana_chainlink.ErrSchemaMismatch, what, address, err)
	}
	return key, nil
}

// askOne is survey.AskOne, replaced in tests.
var askOne = survey.AskOne

// confirmSubmit asks before anything is sent. A declined prompt is not an error.
func confirmSubmit(message string) (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: promptStyle.Render(message),
		Default: true,
	}
	if err := askOne(prompt, &confirmed); err != nil {
		return false, fmt.Errorf("prompt cancelled: %w", err)
	}
	return confirmed, nil
}

// promptRequest asks for the program and feed, prefilled from cfg and the IDL.
func promptRequest(cfg *Config, idl *solana_chainlink.IDL) error {
	program := cfg.ProgramID
	if program == "" {
		program = idl.ProgramAddress()
	}
	questions := []*survey.Question{
		{
			Name: "program",
			Prompt: &survey.Input{
				Message: promptStyle.Render("Program address:"),
				Default: program,
			},
			Validate: survey.Required,
		},
		{
			Name: "feed",
			Prompt: &survey.Input{
				Message: promptStyle.Render("Chainlink feed address:"),
				Default: cfg.Feed,
				Help:    "Defaults to the SOL / USD devnet feed.",
			},
			Validate: survey.Required,
		},
	}
	answers := struct {
		Program string `survey:"program"`
		Feed    string `survey:"feed"`
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}
	cfg.ProgramID = answers.Program
	cfg.Feed = answers.Feed
	return nil
}

// printResult writes whatever the run established, including on failure.
func printResult(out io.Writer, result *solana_chainlink.FeedResult) {
	if result == nil {
		return
	}
	fmt.Fprintln(out)
	if !result.Account.IsZero() {
		fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("New account: %s", result.Account)))
	}
	fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("Fee payer:   %s", result.FeePayer)))
	if !result.Signature.IsZero() {
		fmt.Fprintln(out, promptStyle.Render(fmt.Sprintf("Signature:   %s", result.Signature)))
	}

	var logs []string
	if result.Record != nil {
		logs = result.Record.Logs
	}
	if len(logs) > 0 {
		fmt.Fprintln(out, promptStyle.Render("Transaction logs:"))
		for _, line := range logs {
			fmt.Fprintln(out, logStyle.Render(line))
		}
	}

	switch result.State {
	case solana_chainlink.StateFailed:
		if failed := result.Logs.FailedInvocations(); len(failed) > 0 {
			fmt.Fprintln(out, promptStyle.Render("Failed invocations:"))
			for _, inv := range failed {
				fmt.Fprintln(out, logStyle.Render(fmt.Sprintf("[%d] %s: %s", inv.Depth, inv.Program, inv.Failure)))
			}
		}
	case solana_chainlink.StateDecoded:
		description := "Price"
		if result.Logs.PriceDescription != "" {
			description = result.Logs.PriceDescription + " price"
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ %s is %s", description, result.Decimal)))
	case solana_chainlink.StateTimedOut:
		fmt.Fprintln(out, warningStyle.Render("⏳ Confirmation was not observed in time; the transaction may still land."))
	}
}

// Execute runs the root command and exits non-zero on any failure.
func Execute() {
	os.Exit(execute(rootCmd, os.Stderr))
}

// execute runs cmd, reports a failure on stderr and returns the exit code.
func execute(cmd *cobra.Command, stderr io.Writer) int {
	if err := cmd.Execute(); err != nil {
		reportError(stderr, err)
		return 1
	}
	return 0
}

// reportError prints the error kind with the remote detail the error carries.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("❌ %s: %v", solana_chainlink.ErrorKind(err), err)))
	var failed *solana_chainlink.ExecutionFailedError
	if errors.As(err, &failed) && len(failed.Logs) > 0 {
		fmt.Fprintln(w, promptStyle.Render("Program logs:"))
		for _, line := range failed.Logs {
			fmt.Fprintln(w, logStyle.Render(line))
		}
	}
}
