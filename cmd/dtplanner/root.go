package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dtplanner/pkg/config"
	"dtplanner/pkg/logx"
)

// PasswordEnv unlocks the secrets file without a prompt.
const PasswordEnv = "DTPLANNER_PASSWORD"

var (
	cfgFile    string
	envFiles   []string
	projectDir string
	debug      bool

	appCfg *config.Config

	// secretsPassword is kept for the process lifetime once entered.
	secretsPassword string
)

var rootCmd = &cobra.Command{
	Use:   "dtplanner",
	Short: "Digital transformation planner",
	Long: `dtplanner assesses a company's digital maturity, interviews a panel of
generated expert personas backed by web search, and compiles their advice into
a transformation plan with a technology stack and an organizational readiness
assessment.

Commands:
  run         Run the planning pipeline for a company profile
  sample      Print the built-in sample company profile
  runs        List, show and export persisted runs
  serve       Browse persisted runs over HTTP
  secrets     Manage the encrypted API key file
  usage       Summarize token usage from Prometheus
  version     Show version info`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./dtplanner.yaml or ~/.config/dtplanner/dtplanner.yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "env files to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&projectDir, "projectdir", ".", "project directory holding .dtplanner/")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(secretsCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(_ *cobra.Command, _ []string) error {
	if debug {
		logx.SetDebug(true, nil)
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	appCfg = cfg
	return nil
}

// unlockSecrets decrypts the project secrets file into memory when one exists.
func unlockSecrets() error {
	if !config.SecretsFileExists(projectDir) {
		return nil
	}
	password, err := secretsPasswordFor(false)
	if err != nil {
		return err
	}
	if err := config.LoadSecrets(projectDir, password); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", config.SecretsFilePath(projectDir), err)
	}
	return nil
}

// secretsPasswordFor returns the cached password, $DTPLANNER_PASSWORD, or
// prompts for it. confirm asks twice, for creating a new secrets file.
func secretsPasswordFor(confirm bool) (string, error) {
	if secretsPassword != "" {
		return secretsPassword, nil
	}
	if pw := os.Getenv(PasswordEnv); pw != "" {
		secretsPassword = pw
		return pw, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("secrets file is locked: set %s or run interactively", PasswordEnv)
	}

	pw, err := promptPassword("Secrets password: ")
	if err != nil {
		return "", err
	}
	if confirm {
		again, err := promptPassword("Confirm password: ")
		if err != nil {
			return "", err
		}
		if !bytes.Equal(pw, again) {
			return "", errors.New("passwords do not match")
		}
	}
	if len(pw) == 0 {
		return "", errors.New("empty password")
	}
	secretsPassword = string(pw)
	return secretsPassword, nil
}

func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // New line after password input
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return pw, nil
}
