package cmd

import (
	"context"
	"os"
	"strconv"

	"github.com/emrgen/canvas/internal/snapshot"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "snapshot commands",
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	snapshotCmd.AddCommand(createSnapshotCmd())
	snapshotCmd.AddCommand(listSnapshotsCmd())
	snapshotCmd.AddCommand(compareSnapshotsCmd())
	snapshotCmd.AddCommand(restoreSnapshotCmd())
}

func printComparison(cmp *snapshot.Comparison) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"", "Added", "Removed", "Modified"})
	table.Append([]string{"Blocks", strconv.Itoa(len(cmp.Added)), strconv.Itoa(len(cmp.Removed)), strconv.Itoa(len(cmp.Modified))})
	table.Append([]string{"Relationships", strconv.Itoa(len(cmp.RelationshipsAdded)), strconv.Itoa(len(cmp.RelationshipsRemoved)), strconv.Itoa(len(cmp.RelationshipsModified))})
	table.Render()

	for _, b := range cmp.Added {
		color.Green("+ %s %s", b.ID, b.Title)
	}
	for _, b := range cmp.Removed {
		color.Red("- %s %s", b.ID, b.Title)
	}
	printField("Node delta", strconv.Itoa(cmp.NodeDelta))
	printField("Days between", strconv.FormatFloat(cmp.DaysBetween, 'f', 1, 64))
}

func createSnapshotCmd() *cobra.Command {
	var label string

	command := &cobra.Command{
		Use:   "create",
		Short: "capture the workspace",
		Run: func(cmd *cobra.Command, args []string) {
			client, ws, ok := clientContext()
			if !ok {
				return
			}

			snap, err := client.CreateSnapshot(context.Background(), ws, label)
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("snapshot %q created with id: %s", snap.Label, snap.ID)
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&label, "label", "l", "", "snapshot label")

	return command
}

func listSnapshotsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list snapshots, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			client, ws, ok := clientContext()
			if !ok {
				return
			}

			snaps, err := client.ListSnapshots(context.Background(), ws)
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Label", "Blocks", "Relationships", "Created"})
			for _, s := range snaps {
				table.Append([]string{s.ID, s.Label, strconv.Itoa(len(s.Blocks)), strconv.Itoa(len(s.Relationships)), formatTime(s.CreatedAt)})
			}
			table.Render()
		},
	}

	bindContextFlags(command)

	return command
}

func compareSnapshotsCmd() *cobra.Command {
	var from string
	var to string

	var required = []string{"from", "to"}

	command := &cobra.Command{
		Use:   "compare",
		Short: "compare two snapshots",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			cmp, err := client.CompareSnapshots(context.Background(), ws, from, to)
			if err != nil {
				logrus.Error(err)
				return
			}

			printComparison(cmp)
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&from, "from", "f", "", "older snapshot id (required)")
	command.Flags().StringVarP(&to, "to", "t", "", "newer snapshot id (required)")
	command.Flags().SortFlags = false

	return command
}

func restoreSnapshotCmd() *cobra.Command {
	var snapshotID string
	var dryRun bool

	var required = []string{"id"}

	command := &cobra.Command{
		Use:   "restore",
		Short: "restore the workspace from a snapshot",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			ctx := context.Background()
			var cmp *snapshot.Comparison
			var err error
			if dryRun {
				cmp, err = client.PreviewSnapshotRestore(ctx, ws, snapshotID)
			} else {
				cmp, err = client.RestoreSnapshot(ctx, ws, snapshotID)
			}
			if err != nil {
				logrus.Error(err)
				return
			}

			printComparison(cmp)
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&snapshotID, "id", "i", "", "snapshot id (required)")
	command.Flags().BoolVar(&dryRun, "dry-run", false, "only show what the restore would change")

	return command
}
