package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/growwiz/growwiz-core/internal/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash an operator password for security.auth.password_hash",
	Long: `Prompts for a password twice without echo and prints its argon2id
hash. Put the output in security.auth.password_hash or GROWWIZ_AUTH_PASSWORD_HASH.`,
	RunE: runHashPassword,
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}

// passwordReader reads one secret line.
type passwordReader func() ([]byte, error)

func runHashPassword(cmd *cobra.Command, _ []string) error {
	fd := int(os.Stdin.Fd()) //nolint:gosec // stdin descriptor fits in int
	if !term.IsTerminal(fd) {
		return errors.New("hash-password needs an interactive terminal")
	}
	read := func() ([]byte, error) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		return b, err
	}

	hash, err := promptHash(cmd.ErrOrStderr(), read)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

// promptHash asks for the password and its confirmation on prompts and
// returns the hash.
func promptHash(prompts io.Writer, read passwordReader) (string, error) {
	fmt.Fprint(prompts, "Enter password: ")
	password, err := read()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(password) == 0 {
		return "", errors.New("password cannot be empty")
	}

	fmt.Fprint(prompts, "Confirm password: ")
	confirm, err := read()
	if err != nil {
		return "", fmt.Errorf("reading password confirmation: %w", err)
	}
	if string(password) != string(confirm) {
		return "", errors.New("passwords do not match")
	}

	return auth.HashPassword(string(password))
}
