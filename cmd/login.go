package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"versekeep/internal/auth"
	"versekeep/internal/config"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save a session token",
	Long:  "Save the bearer session token used to talk to the sync server.\nPass it with --token or paste it when prompted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			fmt.Print("Session token: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read token: %w", err)
			}
			token = strings.TrimSpace(line)
		}
		if token == "" {
			return errors.New("no token provided")
		}

		provider := auth.NewProvider(cfg.TokenPath)
		if err := provider.Save(token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}

		if exp, ok := provider.Expiry(); ok {
			fmt.Printf("Signed in. Token expires %s.\n", exp.Format("2006-01-02 15:04"))
		} else {
			fmt.Println("Signed in.")
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := auth.NewProvider(cfg.TokenPath).Clear(); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		fmt.Println("Signed out.")
		return nil
	},
}

func init() {
	loginCmd.Flags().String("token", "", "Session token (prompted for if omitted)")
}
