package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dtplanner/pkg/config"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage the encrypted API key file",
	Long: `API keys are read from the environment or from an AES-GCM encrypted file at
.dtplanner/secrets.json.enc in the project directory. The file password is
prompted for, or read from DTPLANNER_PASSWORD.`,
}

var secretsSetCmd = &cobra.Command{
	Use:   "set NAME",
	Short: "Store a secret, e.g. OPENAI_API_KEY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := sanitizeSecretName(args[0])
		if err != nil {
			return err
		}
		creating := !config.SecretsFileExists(projectDir)
		if !creating {
			if err := unlockSecrets(); err != nil {
				return err
			}
		}
		password, err := secretsPasswordFor(creating)
		if err != nil {
			return err
		}

		value, err := readSecretValue(name)
		if err != nil {
			return err
		}
		config.SetSecret(name, value)
		if err := config.SaveSecretsToFile(projectDir, password); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s saved to %s\n", styleSuccess.Render("✓"), name, config.SecretsFilePath(projectDir))
		return nil
	},
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secret names",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !config.SecretsFileExists(projectDir) {
			fmt.Fprintln(cmd.OutOrStdout(), styleMuted.Render("No secrets file. Create one with 'dtplanner secrets set NAME'."))
			return nil
		}
		if err := unlockSecrets(); err != nil {
			return err
		}
		for _, name := range config.GetDecryptedSecretNames() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	secretsCmd.AddCommand(secretsSetCmd)
	secretsCmd.AddCommand(secretsListCmd)
}

// sanitizeSecretName accepts environment variable style names only.
func sanitizeSecretName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("secret name is required")
	}
	for _, r := range name {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return "", fmt.Errorf("invalid secret name %q: use upper case letters, digits and underscores", name)
		}
	}
	return name, nil
}

// readSecretValue prompts without echo on a terminal and reads one line otherwise.
func readSecretValue(name string) (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		value, err := promptPassword(fmt.Sprintf("Value for %s: ", name))
		if err != nil {
			return "", err
		}
		return string(value), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read value for %s: %w", name, err)
	}
	value := strings.TrimRight(line, "\r\n")
	if value == "" {
		return "", fmt.Errorf("empty value for %s", name)
	}
	return value, nil
}
