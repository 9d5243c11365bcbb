package cmd

import (
	"fmt"

	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/identity"
	"github.com/killallgit/transcript-sync/pkg/config"
	"github.com/spf13/cobra"
)

// tokenCmd issues writer tokens for servers that have auth.jwt_secret set
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a writer token",
	Long: `Issue a signed writer token for a user.

Servers configured with auth.jwt_secret accept writes only with a bearer
token signed by the same secret. Pass the token to watch as sync.token.

Example:
  transcript-sync token --user alice --name "Alice"`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().String("user", "", "user id (required)")
	tokenCmd.Flags().String("name", "", "display name")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default auth.token_ttl)")
	_ = tokenCmd.MarkFlagRequired("user")
}

func runToken(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	name, _ := cmd.Flags().GetString("name")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		ttl = config.GetDuration("auth.token_ttl")
	}

	tokens, err := identity.NewTokens(config.GetString("auth.jwt_secret"), ttl)
	if err != nil {
		return fmt.Errorf("cannot issue tokens: %w", err)
	}
	token, err := tokens.Issue(models.User{ID: userID, DisplayName: name})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
