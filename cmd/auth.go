package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/witanlabs/sheetview/config"
)

var authToken string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the token sent when downloading workbooks",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a bearer token for workbook URLs",
	Long: `Store a bearer token that is sent with every workbook download and
watch connection. Without --token the token is read from stdin.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

func init() {
	authLoginCmd.Flags().StringVar(&authToken, "token", "", "Token to store")
	authCmd.AddCommand(authLoginCmd, authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	token := strings.TrimSpace(authToken)
	if token == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading token: %w", err)
		}
		token = strings.TrimSpace(line)
	}
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	cfg.Token = token
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Token saved.")
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if cfg.Token == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
		return nil
	}
	cfg.Token = ""
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}
