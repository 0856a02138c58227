package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/missioncontrol/internal/adapter/driven/aesgcm"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a random vault encryption key",
	Long: `Print a fresh 256-bit key as 64 hex characters, suitable for
MC_ENCRYPTION_KEY. Changing the key makes existing credentials unreadable.`,
	Example: `  export MC_ENCRYPTION_KEY=$(mcctl keygen)`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeygen(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}

func runKeygen(w io.Writer) error {
	key, err := aesgcm.GenerateKey()
	if err != nil {
		return err
	}
	if outputFormat == formatJSON {
		return writeJSON(w, map[string]string{"key": hex.EncodeToString(key)})
	}
	_, err = fmt.Fprintln(w, hex.EncodeToString(key))
	return err
}
