package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/trinity/internal/pulse"
	"github.com/psantana5/trinity/internal/supervisor"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the launch gate for every target without starting anything",
	Long: `Load each target's config, authorize it, verify and digest its anchor files,
and evaluate the pulse, exactly as a launch would. Nothing is spawned.
Exits with status 1 if any target would be refused.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

type verifyResult struct {
	Target string                      `json:"target"`
	Passed bool                        `json:"passed"`
	Error  string                      `json:"error,omitempty"`
	Report *supervisor.PreflightReport `json:"report,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	table, err := loadTable()
	if err != nil {
		return err
	}
	targetList, err := table.SupervisorTargets()
	if err != nil {
		return err
	}
	digester, err := table.Digester()
	if err != nil {
		return err
	}
	layout := table.Layout()

	results := make([]verifyResult, 0, len(targetList))
	failed := 0
	for _, t := range targetList {
		rep, err := supervisor.Preflight(t, layout, digester)
		res := verifyResult{Target: t.Name, Passed: err == nil, Report: rep}
		if err != nil {
			res.Error = err.Error()
			failed++
		}
		results = append(results, res)
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(output))
	} else {
		tw := tablewriter.NewWriter(cmd.OutOrStdout())
		tw.Header("Target", "Gate", "Pulse", "Digests", "Error")
		for _, res := range results {
			gateStatus, pulseLabel, digests := "REFUSED", "-", "-"
			if res.Passed {
				gateStatus = "OK"
				pulseLabel = pulse.Label(res.Report.Pulse)
				digests = formatDigests(res.Report)
			}
			tw.Append(res.Target, gateStatus, pulseLabel, digests, res.Error)
		}
		tw.Render()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed verification", failed, len(results))
	}
	return nil
}

func formatDigests(rep *supervisor.PreflightReport) string {
	lines := make([]string, 0, len(rep.Digests))
	for _, d := range rep.Digests {
		sum := d.Sum
		if len(sum) > 16 {
			sum = sum[:16]
		}
		lines = append(lines, fmt.Sprintf("%s %s:%s", d.Label, rep.Algorithm, sum))
	}
	return strings.Join(lines, "\n")
}
