package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/emrgen/canvas"
	"github.com/emrgen/canvas/internal/conflict"
	"github.com/emrgen/canvas/internal/graph"
	"github.com/emrgen/canvas/internal/service"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var conflictCmd = &cobra.Command{
	Use:   "conflict",
	Short: "conflict commands",
}

func init() {
	rootCmd.AddCommand(undoCmd())
	rootCmd.AddCommand(redoCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(governanceCmd())

	rootCmd.AddCommand(conflictCmd)
	conflictCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	conflictCmd.AddCommand(listConflictsCmd())
	conflictCmd.AddCommand(resolveConflictCmd())
}

func printHistory(h *canvas.History) {
	for i, entry := range h.Entries {
		fmt.Printf("%3d  %s\n", i, entry)
	}
	printField("Undo", fmt.Sprint(h.CanUndo))
	printField("Redo", fmt.Sprint(h.CanRedo))
}

func undoCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "undo",
		Short: "undo the last change",
		Run: func(cmd *cobra.Command, args []string) {
			client, ws, ok := clientContext()
			if !ok {
				return
			}

			h, err := client.Undo(context.Background(), ws)
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("undone: %s", h.Undone)
		},
	}

	bindContextFlags(command)

	return command
}

func redoCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "redo",
		Short: "redo the last undone change",
		Run: func(cmd *cobra.Command, args []string) {
			client, ws, ok := clientContext()
			if !ok {
				return
			}

			h, err := client.Redo(context.Background(), ws)
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("redone: %s", h.Redone)
		},
	}

	bindContextFlags(command)

	return command
}

func historyCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "history",
		Short: "show the undo history",
		Run: func(cmd *cobra.Command, args []string) {
			client, ws, ok := clientContext()
			if !ok {
				return
			}

			h, err := client.History(context.Background(), ws)
			if err != nil {
				logrus.Error(err)
				return
			}

			printHistory(h)
		},
	}

	bindContextFlags(command)

	return command
}

func governanceCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "governance",
		Short: "list content health recommendations",
		Run: func(cmd *cobra.Command, args []string) {
			client, ws, ok := clientContext()
			if !ok {
				return
			}

			recs, err := client.Governance(context.Background(), ws)
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Severity", "Kind", "Block", "Message"})
			for _, r := range recs {
				severity := string(r.Severity)
				switch r.Severity {
				case graph.SeverityCritical:
					severity = color.RedString(severity)
				case graph.SeverityWarning:
					severity = color.YellowString(severity)
				}
				table.Append([]string{severity, string(r.Kind), r.BlockID, r.Message})
			}
			table.Render()
		},
	}

	bindContextFlags(command)

	return command
}

func listConflictsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list unresolved conflicts",
		Run: func(cmd *cobra.Command, args []string) {
			client, ws, ok := clientContext()
			if !ok {
				return
			}

			conflicts, err := client.Conflicts(context.Background(), ws)
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Block", "Field", "Local", "Remote"})
			for _, c := range conflicts {
				table.Append([]string{
					c.ID, c.BlockID, c.Field,
					fmt.Sprintf("%s: %v", c.LocalUserID, c.LocalValue),
					fmt.Sprintf("%s: %v", c.RemoteUserID, c.RemoteValue),
				})
			}
			table.Render()
		},
	}

	bindContextFlags(command)

	return command
}

func resolveConflictCmd() *cobra.Command {
	var conflictID string
	var side string
	var strategy string

	var required = []string{"id"}

	command := &cobra.Command{
		Use:     "resolve",
		Short:   "resolve a conflict by side or strategy",
		Example: "canvas conflict resolve -i <conflict-id> --side remote\ncanvas conflict resolve -i <conflict-id> --strategy last-write-wins",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			c, err := client.ResolveConflict(context.Background(), ws, conflictID, &service.ResolveConflictRequest{
				Side:     conflict.Side(side),
				Strategy: conflict.Strategy(strategy),
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("conflict %s resolved with %s value %v", c.ID, c.Resolution, c.ResolvedValue)
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&conflictID, "id", "i", "", "conflict id (required)")
	command.Flags().StringVar(&side, "side", "", "local or remote")
	command.Flags().StringVar(&strategy, "strategy", "", "automatic resolution strategy")
	command.Flags().SortFlags = false

	return command
}
