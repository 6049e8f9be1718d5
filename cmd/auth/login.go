package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/travel_social/pkg/authclient"
)

func newLoginCommand() *cobra.Command {
	var (
		apiURL   string
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Obtain a token pair from a running instance and print it with the resolved authorities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			c := authclient.NewClient(apiURL)

			pair, err := c.Login(ctx, username, password)
			if err != nil {
				return err
			}
			id, err := c.WhoAmI(ctx, pair.AccessToken)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*authclient.TokenPair
				Authorities []string `json:"authorities"`
			}{pair, id.Authorities})
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "Base URL of the auth API")
	cmd.Flags().StringVar(&username, "username", "", "Account name")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
