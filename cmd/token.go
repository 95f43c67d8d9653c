package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/concierge/internal/session"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint and inspect session tokens",
	Long:  "Commands for working with the signed session tokens the chat endpoint requires.",
}

// -- token mint --

var tokenMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a signed session token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("token"); err != nil {
			return err
		}

		identity, _ := cmd.Flags().GetString("identity")
		grantName, _ := cmd.Flags().GetString("grant")

		var grant session.Grant
		switch grantName {
		case "bypass":
			grant = session.GrantBypass
		case "dev":
			grant = session.GrantDev
		case "verified":
			grant = session.GrantVerified
		default:
			return eris.Errorf("unknown grant %q", grantName)
		}

		svc := session.NewService(cfg.Session.Secret)
		token, err := svc.Issue(identity, grant)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

// -- token inspect --

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect <token>",
	Short: "Verify a session token and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("token"); err != nil {
			return err
		}

		svc := session.NewService(cfg.Session.Secret)
		claims, err := svc.Verify(args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "identity: %s\n", claims.Identity)
		fmt.Fprintf(w, "grant: %s\n", claims.Grant)
		if claims.ExpiresAt != nil {
			fmt.Fprintf(w, "expires: %s\n", claims.ExpiresAt.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	tokenMintCmd.Flags().String("identity", "local", "identity claim for the minted token")
	tokenMintCmd.Flags().String("grant", "dev", "grant type (bypass, dev, verified)")
	tokenCmd.AddCommand(tokenMintCmd, tokenInspectCmd)
	rootCmd.AddCommand(tokenCmd)
}
