package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jchantrell/eblextract/internal/config"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgFile string

	gameName      string
	platformName  string
	assetsDir     string
	outputDir     string
	workers       int
	skipUnknown   bool
	lowercase     bool
	strictNames   bool
	decompressDCX bool
	manifestPath  string
	logLevel      string
	logFormat     string
	noProgress    bool
)

var rootCmd = &cobra.Command{
	Use:   "eblextract",
	Short: "Extract files from hash-indexed console game archives",
	Long: `eblextract unpacks BHD5/BDT archives from console releases into a plain
directory tree.

File names are resolved through the name lists and header keys in the assets
directory (Assets/BinderKeys/<title>/{Hash,Key}). Files whose name is not known
are written under _unknown/<hash>.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		flags := cmd.Flags()
		if flags.Changed("game") {
			cfg.Game = gameName
		}
		if flags.Changed("platform") {
			cfg.Platform = platformName
		}
		if flags.Changed("assets") {
			cfg.AssetsDir = assetsDir
		}
		if flags.Changed("output") {
			cfg.Output = outputDir
		}
		if flags.Changed("workers") {
			cfg.Workers = workers
		}
		if flags.Changed("skip-unknown") {
			cfg.SkipUnknownFiles = skipUnknown
		}
		if flags.Changed("lowercase") {
			cfg.LowercaseFileNames = lowercase
		}
		if flags.Changed("strict-names") {
			cfg.StrictNames = strictNames
		}
		if flags.Changed("decompress-dcx") {
			cfg.DecompressDCX = decompressDCX
		}
		if flags.Changed("manifest") {
			cfg.Manifest = manifestPath
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if flags.Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		var level slog.Level
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		var handler slog.Handler
		if cfg.LogFormat == "json" {
			handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})
		} else {
			handler = tint.NewHandler(os.Stderr, &tint.Options{
				Level: level,
			})
		}
		slog.SetDefault(slog.New(handler))

		slog.Debug("Configuration",
			"game", cfg.Game,
			"platform", cfg.Platform,
			"assets_dir", cfg.AssetsDir,
			"output", cfg.Output,
			"workers", cfg.Workers,
			"skip_unknown_files", cfg.SkipUnknownFiles,
			"lowercase_file_names", cfg.LowercaseFileNames,
			"strict_names", cfg.StrictNames,
			"decompress_dcx", cfg.DecompressDCX,
			"manifest", cfg.Manifest)

		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is eblextract.yaml in home or pwd)")
	pf.StringVarP(&gameName, "game", "g", "", "game (ArmoredCoreV/acv, ArmoredCoreVerdictDay/acvd)")
	pf.StringVarP(&platformName, "platform", "p", "", "platform (PlayStation3/ps3, Xbox360/x360)")
	pf.StringVar(&assetsDir, "assets", "", "assets directory holding BinderKeys (default is Assets next to the executable)")
	pf.StringVarP(&outputDir, "output", "o", "", "output directory")
	pf.IntVarP(&workers, "workers", "w", 0, "concurrent file writes (0 uses all CPUs)")
	pf.BoolVar(&skipUnknown, "skip-unknown", false, "skip files whose name is not in the name list")
	pf.BoolVar(&lowercase, "lowercase", false, "lower-case output file names")
	pf.BoolVar(&strictNames, "strict-names", false, "fail when the name list has duplicate or colliding names")
	pf.BoolVar(&decompressDCX, "decompress-dcx", false, "write the payload of DCX compressed files")
	pf.StringVarP(&manifestPath, "manifest", "m", "", "record extracted files in this SQLite database")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "log format (text, json)")
	pf.BoolVar(&noProgress, "no-progress", false, "disable progress bar")
}
