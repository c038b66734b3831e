package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var helpCmd = &cobra.Command{
	Use:   "help",
	Short: "Show comprehensive help for smgantt",
	Long:  `Display detailed help for all smgantt commands and flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		showCustomHelp()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("smgantt %s (commit %s, built %s)\n", version, commit, date)
	},
}

func showCustomHelp() {
	fmt.Print(`
███████╗███╗   ███╗ ██████╗  █████╗ ███╗   ██╗████████╗████████╗
██╔════╝████╗ ████║██╔════╝ ██╔══██╗████╗  ██║╚══██╔══╝╚══██╔══╝
███████╗██╔████╔██║██║  ███╗███████║██╔██╗ ██║   ██║      ██║
╚════██║██║╚██╔╝██║██║   ██║██╔══██║██║╚██╗██║   ██║      ██║
███████║██║ ╚═╝ ██║╚██████╔╝██║  ██║██║ ╚████║   ██║      ██║
╚══════╝╚═╝     ╚═╝ ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═══╝   ╚═╝      ╚═╝

smgantt - Construction schedule cascade engine

COMMANDS:

  serve                   Run the HTTP API and the daily rollover
    -a, --addr            Listen address (default :8080)
    --no-rollover         Do not run the daily rollover

  ls [construction]       List constructions, or the tasks of one

  add <construction> <description>
                          Add a task with smart parsing
    -s, --start           Start date or day offset from the job start
    -d, --dur             Duration in working days
    --after               Predecessors, e.g. "1FS+2, 3SS"
    -t, --trade           Trade doing the work
    --stage               Build stage
    --pass-fail           Inspection with a pass/fail result

    Smart syntax:
      @trade        Set trade
      dur:5         Duration in working days
      after:12FS+2  Predecessors by task number, type and lag
      start:+3      Start offset from the job start, or a date

    Example:
      smgantt add 3 "Frame walls @carpentry dur:5 after:1FS+1"

  move <task> [start]     Reschedule a task and cascade its dependents
    -d, --duration        New duration in working days
    --after               Replace predecessors ("" removes all)
    --override            Allow a start before the job start
    --manual              Mark manually positioned
    --confirm             Confirm the task dates
    --supplier-confirm    Record supplier confirmation

  hold <task>             Freeze a task and everything downstream
    -r, --reason          Hold reason name or id
    --until               Auto release after this date
  hold reasons            List hold reasons
  release <task>          Release a hold and cascade
    -r, --reason          Why the hold was released

  deps add <pred> <succ>  Link two tasks by id
    -t, --type            FS, SS, FF or SF (default FS)
    -l, --lag             Lag in working days
  deps rm <dependency>    Remove a dependency

  start <task>            Mark a task as started
  complete <task>         Mark a task as completed
    --passed / --failed   Inspection result

  critical-path <construction>
                          Early and late dates, float, critical tasks
  rollover                Advance overdue unstarted tasks to today
    -c, --construction    Only this construction
  seed <file>             Import a construction from YAML
    -e, --export          Export this construction instead
    -o, --output          Export destination

  view <construction>     Interactive Gantt viewer
    ↑/↓           Select task
    ←/→           Page
    </>           Pan a week
    [/]           Shift one working day earlier/later
    m             Move to a typed start
    a             Add a task
    s / d         Start / complete
    u             Release hold
    ?             Keys
    q             Quit

  version                 Print version information
  help                    Show this help

GLOBAL FLAGS:
  --config                Config file (default .smgantt.yaml)
  --db                    SQLite database path
  --user                  User id recorded on changes

Every config key can be set as SMGANTT_<SECTION>_<KEY>, e.g. SMGANTT_LOCK_BACKEND=redis.

`)
}
