package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yigit/enrollplan/internal/config"
	"github.com/yigit/enrollplan/internal/pkg/auth"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token signed with the server secret",
		Example: `  catalogctl token --user 42
  catalogctl token --user ops --role admin --ttl 15m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != auth.RoleStudent && role != auth.RoleAdmin {
				return fmt.Errorf("role must be %s or %s", auth.RoleStudent, auth.RoleAdmin)
			}
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return errors.New("jwt secret is not configured (JWT_SECRET)")
			}
			if ttl <= 0 {
				ttl = cfg.JWT.AccessTokenExpiration
			}

			svc := auth.NewJWTService(auth.JWTConfig{
				SecretKey:      cfg.JWT.Secret,
				AccessTokenExp: ttl,
				TokenIssuer:    cfg.JWT.Issuer,
			})
			token, expiresAt, err := svc.GenerateToken(userID, role)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"accessToken": token,
				"expiresAt":   expiresAt.Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Token subject")
	cmd.Flags().StringVar(&role, "role", auth.RoleStudent, "student or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime; the configured expiration when zero")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
