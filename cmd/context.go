package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/emrgen/canvas"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configFileName = "canvas"
	configDir      = "./.tmp"
	defaultServer  = "localhost:4020"
)

// WorkspaceID overrides the workspace of the saved context for one command.
var WorkspaceID string

var contextCommand = &cobra.Command{
	Use:   "context",
	Short: "context commands",
}

func init() {
	contextCommand.AddCommand(setContextCommand())
	contextCommand.AddCommand(currentContextCommand())
	contextCommand.AddCommand(resetContextCommand())
}

type Context struct {
	Server    string `mapstructure:"server" json:"server"`
	ActorID   string `mapstructure:"actor_id" json:"actorId"`
	ActorName string `mapstructure:"actor_name" json:"actorName"`
	Workspace string `mapstructure:"workspace" json:"workspace"`
}

// saves the context info to the config file in ./.tmp
func setContextCommand() *cobra.Command {
	var server string
	var actorID string
	var actorName string
	var workspace string

	command := &cobra.Command{
		Use:     "set",
		Short:   "set context",
		Example: "canvas context set --actor alice --name Alice --workspace <workspace-id>",
		Run: func(cmd *cobra.Command, args []string) {
			current := readContext()
			if cmd.Flag("server").Changed {
				current.Server = server
			}
			if cmd.Flag("actor").Changed {
				current.ActorID = actorID
			}
			if cmd.Flag("name").Changed {
				current.ActorName = actorName
			}
			if cmd.Flag("workspace").Changed {
				current.Workspace = workspace
			}

			if current.ActorID == "" {
				color.Red(`missing: --actor`)
				return
			}

			if err := writeContext(current); err != nil {
				fmt.Println("error writing config file: ", err)
			} else {
				fmt.Println("context saved")
			}
		},
	}

	command.Flags().StringVarP(&server, "server", "s", defaultServer, "server address")
	command.Flags().StringVarP(&actorID, "actor", "a", "", "actor id")
	command.Flags().StringVarP(&actorName, "name", "n", "", "actor display name")
	command.Flags().StringVarP(&workspace, "workspace", "w", "", "default workspace id")
	command.Flags().SortFlags = false

	return command
}

func currentContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "current",
		Short: "current context",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := readContext()
			printField("Server", ctx.Server)
			printField("Actor", ctx.ActorID)
			printField("Name", ctx.ActorName)
			printField("Workspace", ctx.Workspace)
		},
	}

	return command
}

func resetContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "reset",
		Short: "reset context",
		Run: func(cmd *cobra.Command, args []string) {
			if err := writeContext(Context{Server: defaultServer}); err != nil {
				fmt.Println("error writing config file: ", err)
				return
			}
			fmt.Println("context reset")
		},
	}

	return command
}

func configPath() string {
	return filepath.Join(configDir, configFileName+".yml")
}

func writeContext(ctx Context) error {
	if err := os.MkdirAll(configDir, os.ModePerm); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yml")
	v.Set("context", map[string]string{
		"server":     ctx.Server,
		"actor_id":   ctx.ActorID,
		"actor_name": ctx.ActorName,
		"workspace":  ctx.Workspace,
	})

	return v.WriteConfigAs(configPath())
}

func readContext() Context {
	ctx := Context{Server: defaultServer}

	if _, err := os.Stat(configPath()); os.IsNotExist(err) {
		return ctx
	}

	v := viper.New()
	v.SetConfigFile(configPath())
	if err := v.ReadInConfig(); err != nil {
		fmt.Println("error reading config file: ", err)
		return ctx
	}

	if err := v.UnmarshalKey("context", &ctx); err != nil {
		fmt.Println("error unmarshalling config file: ", err)
	}
	if ctx.Server == "" {
		ctx.Server = defaultServer
	}

	return ctx
}

func bindContextFlags(command *cobra.Command) {
	command.Flags().StringVarP(&WorkspaceID, "workspace", "w", "", "workspace id, defaults to the context workspace")
}

// clientContext returns a client acting as the context actor and the
// workspace the command targets.
func clientContext() (*canvas.Client, string, bool) {
	ctx := readContext()

	workspace := WorkspaceID
	if workspace == "" {
		workspace = ctx.Workspace
	}
	if workspace == "" {
		color.Red("missing: --workspace (or canvas context set --workspace)")
		return nil, "", false
	}

	name := ctx.ActorName
	if name == "" {
		name = ctx.ActorID
	}

	return canvas.NewClient(ctx.Server, ctx.ActorID, name), workspace, true
}

func client() *canvas.Client {
	ctx := readContext()
	name := ctx.ActorName
	if name == "" {
		name = ctx.ActorID
	}
	return canvas.NewClient(ctx.Server, ctx.ActorID, name)
}
