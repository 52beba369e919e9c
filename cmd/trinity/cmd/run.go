package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/trinity/internal/instance"
	"github.com/psantana5/trinity/internal/observe"
	"github.com/psantana5/trinity/internal/supervisor"
	"github.com/psantana5/trinity/pkg/shutdown"
)

var (
	pollInterval time.Duration
	lockTimeout  time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch every target and keep them running",
	Long: `Launch every target in declared order, then poll them once per interval and
relaunch any that exit. Each launch reloads the target's config, checks
truth_integrity against the threshold and verifies the anchor files.

A failed check at any launch stops the supervisor with exit status 1.
Targets already running at that point are left running. SIGINT or SIGTERM
asks every live target to terminate and exits with status 0.`,
	RunE: runSupervisor,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().DurationVar(&pollInterval, "poll-interval", supervisor.DefaultPollInterval, "how often targets are checked for exit")
	runCmd.Flags().DurationVar(&lockTimeout, "lock-timeout", 0, "wait this long for another supervisor to release the lock")
	runCmd.Flags().String("lock-file", "", "instance lock path (default $TMPDIR/trinity.lock)")
	viper.BindPFlag("lock_file", runCmd.Flags().Lookup("lock-file"))
}

func runSupervisor(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

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

	lock, err := instance.Acquire(viper.GetString("lock_file"), lockTimeout)
	if err != nil {
		return err
	}

	mgr := shutdown.New()
	mgr.Register(shutdown.CloseResource(lock, "instance lock"))
	defer mgr.Shutdown()

	sup, err := supervisor.New(targetList, supervisor.Options{
		Layout:       table.Layout(),
		Digester:     digester,
		Spawner:      supervisor.NewExecSpawner(),
		Logger:       logger,
		PollInterval: pollInterval,
	})
	if err != nil {
		return err
	}

	ctx, stop := mgr.Context(context.Background())
	defer stop()

	if err := sup.Start(); err != nil {
		logger.Fatal("[GRID-LOCK] " + err.Error())
		return err
	}

	if err := sup.Run(ctx); err != nil {
		logger.Fatal("[GRID-LOCK] " + err.Error())
		return err
	}

	printSummary(sup)
	return nil
}

// printSummary writes the per-target counters collected during the run.
func printSummary(sup *supervisor.Supervisor) {
	metrics := sup.Metrics()

	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Target", "PID", "Launches", "Crashes", "Normal exits", "Last exit", "Alive")
	for _, h := range sup.Handles() {
		tc := metrics.Target(h.Target.Name)

		lastExit := "-"
		if tc.Crashes+tc.NormalExits > 0 {
			lastExit = strconv.Itoa(tc.LastExit)
		}
		alive := "no"
		if observe.PidAlive(h.PID) {
			alive = "yes"
		}

		table.Append(
			h.Target.Name,
			strconv.Itoa(h.PID),
			strconv.FormatUint(tc.Launches, 10),
			strconv.FormatUint(tc.Crashes, 10),
			strconv.FormatUint(tc.NormalExits, 10),
			lastExit,
			alive,
		)
	}
	table.Render()

	snap := metrics.Snapshot()
	fmt.Printf("\nLaunches: %d  Restarts: %d  Crashes: %d  Normal exits: %d\n",
		snap["launches"], snap["restarts"], snap["crashes"], snap["normal_exits"])

	if recent := sup.Exits().Recent(5); len(recent) > 0 {
		fmt.Println("\nRecent exits:")
		for _, r := range recent {
			fmt.Printf("  %s  %s\n", r.EndTime.Format(time.RFC3339), r.Message())
		}
	}
}
