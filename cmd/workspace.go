package cmd

import (
	"context"
	"os"

	"github.com/emrgen/canvas/internal/service"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "workspace commands",
}

func init() {
	rootCmd.AddCommand(workspaceCmd)
	workspaceCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	workspaceCmd.AddCommand(createWorkspaceCmd())
	workspaceCmd.AddCommand(listWorkspacesCmd())
	workspaceCmd.AddCommand(deleteWorkspaceCmd())
}

func createWorkspaceCmd() *cobra.Command {
	var workspaceID string
	var name string

	var required = []string{"name"}

	command := &cobra.Command{
		Use:     "create",
		Short:   "create a workspace",
		Example: "canvas workspace create -n <name> -i <workspace-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			ws, err := client().CreateWorkspace(context.Background(), &service.CreateWorkspaceRequest{
				ID:   workspaceID,
				Name: name,
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("workspace created with id: %s", ws.ID)
		},
	}

	command.Flags().StringVarP(&name, "name", "n", "", "workspace name (required)")
	command.Flags().StringVarP(&workspaceID, "id", "i", "", "workspace id")
	command.Flags().SortFlags = false

	return command
}

func listWorkspacesCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list workspaces",
		Run: func(cmd *cobra.Command, args []string) {
			workspaces, err := client().ListWorkspaces(context.Background())
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Created"})
			for _, ws := range workspaces {
				table.Append([]string{ws.ID, ws.Name, formatTime(ws.CreatedAt)})
			}
			table.Render()
		},
	}

	return command
}

func deleteWorkspaceCmd() *cobra.Command {
	var workspaceID string

	var required = []string{"id"}

	command := &cobra.Command{
		Use:   "delete",
		Short: "delete a workspace and everything in it",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			if err := client().DeleteWorkspace(context.Background(), workspaceID); err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("workspace %s deleted", workspaceID)
		},
	}

	command.Flags().StringVarP(&workspaceID, "id", "i", "", "workspace id (required)")

	return command
}
