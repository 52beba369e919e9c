package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/trinity/internal/integrity"
)

var digestAlgorithm string

var digestCmd = &cobra.Command{
	Use:   "digest FILE...",
	Short: "Print the content digest of anchor files",
	Long: `Print the digest of each file using the same chunked reader the launch
gate uses, so the output can be compared with the supervisor log.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDigest,
}

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.Flags().StringVarP(&digestAlgorithm, "algorithm", "a", "sha256", "digest algorithm: sha256 or blake3")
}

func runDigest(cmd *cobra.Command, args []string) error {
	algo, err := integrity.ParseAlgorithm(digestAlgorithm)
	if err != nil {
		return err
	}
	d := integrity.NewDigester(algo)

	sums := make(map[string]string, len(args))
	for _, path := range args {
		sum, err := d.Digest(path)
		if err != nil {
			return err
		}
		sums[path] = sum
		if !IsJSONOutput() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, path)
		}
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(sums, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(output))
	}
	return nil
}
