package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vantage6/console/pkg/platform"
)

// credentials are persisted per user so a login survives between
// invocations.
type credentials struct {
	Server string `yaml:"server"`
	Token  string `yaml:"token"`
	UserID int64  `yaml:"user_id"`
}

func credentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".v6admin", "credentials.yaml"), nil
}

func loadCredentials() (*credentials, error) {
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &credentials{}, nil
	}
	if err != nil {
		return nil, err
	}
	var creds credentials
	if err := yaml.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &creds, nil
}

func saveCredentials(creds *credentials) error {
	path, err := credentialsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	raw, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0600)
}

func newLoginCommand() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against a platform server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == "" {
				server = creds.Server
			}
			if server == "" {
				return fmt.Errorf("pass the server address with --server")
			}

			reader := bufio.NewReader(os.Stdin)
			fmt.Print("Username: ")
			username, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			fmt.Print("Password: ")
			password, err := reader.ReadString('\n')
			if err != nil {
				return err
			}

			base, err := platform.NewClient(server)
			if err != nil {
				return err
			}
			grant, err := base.Login(ctx, strings.TrimSpace(username), strings.TrimSpace(password))
			if err != nil {
				return err
			}

			creds.Server = server
			creds.Token = grant.AccessToken
			creds.UserID = grant.UserID
			if err := saveCredentials(creds); err != nil {
				return err
			}

			if !quiet {
				fmt.Printf("Logged in to %s as %s\n",
					color.BlueString(server), color.GreenString(strings.TrimSpace(username)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Platform server address")
	return cmd
}
