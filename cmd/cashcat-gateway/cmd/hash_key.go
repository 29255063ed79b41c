package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cashcat/cashcat-gateway/internal/domain/auth"
)

var hashArgon2id bool

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [api-key]",
	Short: "Generate a hash for a local API key",
	Long: `Generate a hash of an API key for use in config.

The default output format is "sha256:<hex>", which can be used directly
in the auth.api_keys[].key_hash field. With --argon2id an Argon2id PHC
string is printed instead.

Example:
  cashcat-gateway hash-key "my-secret-api-key"
  # Output: sha256:7d5e8c...

Security note: The key will appear in shell history.
Consider clearing history after use or using environment variable:
  cashcat-gateway hash-key "$MY_API_KEY"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := hashKey(args[0], hashArgon2id)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	hashKeyCmd.Flags().BoolVar(&hashArgon2id, "argon2id", false, "print an Argon2id hash instead of SHA-256")
	rootCmd.AddCommand(hashKeyCmd)
}

func hashKey(key string, useArgon2id bool) (string, error) {
	if useArgon2id {
		hash, err := auth.HashKeyArgon2id(key)
		if err != nil {
			return "", fmt.Errorf("failed to hash key: %w", err)
		}
		return hash, nil
	}
	return "sha256:" + auth.HashKey(key), nil
}
