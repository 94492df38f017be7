package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/emrgen/canvas"
	"github.com/emrgen/canvas/internal/model"
	"github.com/emrgen/canvas/internal/service"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "block commands",
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "relationship commands",
}

var revisionCmd = &cobra.Command{
	Use:   "revision",
	Short: "published revision commands",
}

func init() {
	rootCmd.AddCommand(blockCmd)
	blockCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	blockCmd.AddCommand(addBlockCmd())
	blockCmd.AddCommand(getBlockCmd())
	blockCmd.AddCommand(listBlocksCmd())
	blockCmd.AddCommand(updateBlockCmd())
	blockCmd.AddCommand(removeBlockCmd())
	blockCmd.AddCommand(setStatusCmd())
	blockCmd.AddCommand(publishBlockCmd())
	blockCmd.AddCommand(commentCmd())

	rootCmd.AddCommand(linkCmd)
	linkCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	linkCmd.AddCommand(addLinkCmd())
	linkCmd.AddCommand(listLinksCmd())
	linkCmd.AddCommand(removeLinkCmd())

	rootCmd.AddCommand(revisionCmd)
	revisionCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	revisionCmd.AddCommand(createRevisionCmd())
	revisionCmd.AddCommand(listRevisionsCmd())
	revisionCmd.AddCommand(restoreRevisionCmd())
}

func printBlocks(blocks []*model.Block) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Type", "Status", "Title", "Version", "Updated"})
	for _, b := range blocks {
		table.Append([]string{b.ID, string(b.Type), string(b.Status), truncate(b.Title, 40), b.PublishedVersion, formatTime(b.UpdatedAt)})
	}
	table.Render()
}

func addBlockCmd() *cobra.Command {
	var blockType string
	var title string
	var content string
	var status string
	var tags []string
	var parentID string
	var x, y float64

	var required = []string{"type", "title"}

	command := &cobra.Command{
		Use:     "add",
		Short:   "add a block",
		Example: "canvas block add -t pain-point --title <title> -c <content> --tag export",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			b, err := client.AddBlock(context.Background(), ws, &service.AddBlockRequest{
				Type:     model.BlockType(blockType),
				Status:   model.Status(status),
				Title:    title,
				Content:  content,
				Tags:     unique(tags),
				ParentID: parentID,
				Position: model.Position{X: x, Y: y},
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("block created with id: %s", b.ID)
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&blockType, "type", "t", "", "block type (required)")
	command.Flags().StringVar(&title, "title", "", "block title (required)")
	command.Flags().StringVarP(&content, "content", "c", "", "block content")
	command.Flags().StringVarP(&status, "status", "s", "", "initial status, draft or vision")
	command.Flags().StringSliceVar(&tags, "tag", nil, "tags")
	command.Flags().StringVar(&parentID, "parent", "", "parent block id")
	command.Flags().Float64Var(&x, "x", 0, "x position")
	command.Flags().Float64Var(&y, "y", 0, "y position")
	command.Flags().SortFlags = false

	return command
}

func getBlockCmd() *cobra.Command {
	var blockID string

	var required = []string{"block-id"}

	command := &cobra.Command{
		Use:   "get",
		Short: "get a block",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			ctx := context.Background()
			b, err := client.GetBlock(ctx, ws, blockID)
			if err != nil {
				logrus.Error(err)
				return
			}

			printBlocks([]*model.Block{b})
			printField("Content", b.Content)
			if len(b.Tags) > 0 {
				printField("Tags", strings.Join(b.Tags, ", "))
			}
			for _, c := range b.Comments {
				resolved := ""
				if c.Resolved {
					resolved = " (resolved)"
				}
				printField(c.AuthorName, c.Content+resolved)
			}

			transitions, err := client.Transitions(ctx, ws, blockID)
			if err != nil {
				logrus.Error(err)
				return
			}
			next := make([]string, 0, len(transitions))
			for _, s := range transitions {
				next = append(next, string(s))
			}
			printField("Next", strings.Join(next, ", "))

			usage, err := client.Usage(ctx, ws, blockID)
			if err != nil {
				logrus.Error(err)
				return
			}
			printField("Links", fmt.Sprintf("%d in, %d out", len(usage.Incoming), len(usage.Outgoing)))
			if usage.InUse() {
				color.Yellow("block is referenced by %d reviews and %d children", len(usage.ReviewRequests), len(usage.Children))
			}
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&blockID, "block-id", "b", "", "block id (required)")

	return command
}

func listBlocksCmd() *cobra.Command {
	var types []string
	var statuses []string
	var tags []string
	var query string

	command := &cobra.Command{
		Use:     "list",
		Short:   "list blocks",
		Example: "canvas block list -t feature -s draft,in-review --tag export -q slow",
		Run: func(cmd *cobra.Command, args []string) {
			client, ws, ok := clientContext()
			if !ok {
				return
			}

			blocks, err := client.ListBlocks(context.Background(), ws, canvas.BlockQuery{
				Types:    types,
				Statuses: statuses,
				Tags:     tags,
				Query:    query,
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			printBlocks(blocks)
		},
	}

	bindContextFlags(command)
	command.Flags().StringSliceVarP(&types, "type", "t", nil, "block types")
	command.Flags().StringSliceVarP(&statuses, "status", "s", nil, "statuses")
	command.Flags().StringSliceVar(&tags, "tag", nil, "tags")
	command.Flags().StringVarP(&query, "query", "q", "", "text search")
	command.Flags().SortFlags = false

	return command
}

func updateBlockCmd() *cobra.Command {
	var blockID string
	var title string
	var content string
	var tags []string

	var required = []string{"block-id"}

	command := &cobra.Command{
		Use:   "update",
		Short: "update a block",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			req := &service.UpdateBlockRequest{}
			if cmd.Flag("title").Changed {
				req.Title = &title
			}
			if cmd.Flag("content").Changed {
				req.Content = &content
			}
			if cmd.Flag("tag").Changed {
				tags = unique(tags)
				req.Tags = &tags
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			b, err := client.UpdateBlock(context.Background(), ws, blockID, req)
			if err != nil {
				logrus.Error(err)
				return
			}

			printBlocks([]*model.Block{b})
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&blockID, "block-id", "b", "", "block id (required)")
	command.Flags().StringVar(&title, "title", "", "block title")
	command.Flags().StringVarP(&content, "content", "c", "", "block content")
	command.Flags().StringSliceVar(&tags, "tag", nil, "tags, replaces the current tags")
	command.Flags().SortFlags = false

	return command
}

func removeBlockCmd() *cobra.Command {
	var blockID string

	var required = []string{"block-id"}

	command := &cobra.Command{
		Use:   "delete",
		Short: "delete a block and its relationships",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			if err := client.RemoveBlock(context.Background(), ws, blockID); err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("block %s deleted", blockID)
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&blockID, "block-id", "b", "", "block id (required)")

	return command
}

func setStatusCmd() *cobra.Command {
	var blockIDs []string
	var status string

	var required = []string{"block-id", "status"}

	command := &cobra.Command{
		Use:     "status",
		Short:   "move blocks to a status",
		Long:    "move blocks to a status. A single block is checked against the lifecycle, several blocks are moved as a batch",
		Example: "canvas block status -b <block-id> -b <block-id> -s approved",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			n, err := client.SetStatus(context.Background(), ws, &service.StatusRequest{
				BlockIDs: unique(blockIDs),
				Status:   model.Status(status),
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("%d blocks moved to %s", n, status)
		},
	}

	bindContextFlags(command)
	command.Flags().StringSliceVarP(&blockIDs, "block-id", "b", nil, "block ids (required)")
	command.Flags().StringVarP(&status, "status", "s", "", "target status (required)")
	command.Flags().SortFlags = false

	return command
}

func publishBlockCmd() *cobra.Command {
	var blockID string
	var revise bool

	var required = []string{"block-id"}

	command := &cobra.Command{
		Use:   "publish",
		Short: "publish an approved block",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			ctx := context.Background()
			b, err := client.Publish(ctx, ws, blockID)
			if err != nil {
				logrus.Error(err)
				return
			}

			if _, err := semver.NewVersion(b.PublishedVersion); err != nil {
				logrus.Warnf("block %s published with an unexpected version %q", b.ID, b.PublishedVersion)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Version", "Published"})
			publishedAt := "-"
			if b.PublishedAt != nil {
				publishedAt = formatTime(*b.PublishedAt)
			}
			table.Append([]string{b.ID, b.PublishedVersion, publishedAt})
			table.Render()

			if revise {
				rev, err := client.CreateRevision(ctx, ws, blockID, "published "+b.PublishedVersion)
				if err != nil {
					logrus.Error(err)
					return
				}
				logrus.Infof("revision %d recorded", rev.Version)
			}
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&blockID, "block-id", "b", "", "block id (required)")
	command.Flags().BoolVarP(&revise, "revision", "r", false, "record a revision after publishing")

	return command
}

func commentCmd() *cobra.Command {
	var blockID string
	var parentID string
	var content string

	var required = []string{"block-id", "content"}

	command := &cobra.Command{
		Use:   "comment",
		Short: "comment on a block",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			c, err := client.AddComment(context.Background(), ws, blockID, &service.CommentRequest{
				ParentID: parentID,
				Content:  content,
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("comment created with id: %s", c.ID)
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&blockID, "block-id", "b", "", "block id (required)")
	command.Flags().StringVarP(&content, "content", "c", "", "comment (required)")
	command.Flags().StringVarP(&parentID, "reply-to", "r", "", "comment to reply to")
	command.Flags().SortFlags = false

	return command
}

func addLinkCmd() *cobra.Command {
	var sourceID string
	var targetID string
	var relType string
	var label string

	var required = []string{"source", "target", "type"}

	command := &cobra.Command{
		Use:     "add",
		Short:   "connect two blocks",
		Example: "canvas link add -s <block-id> -t <block-id> -r solves",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			rel, err := client.AddRelationship(context.Background(), ws, &service.AddRelationshipRequest{
				SourceID: sourceID,
				TargetID: targetID,
				Type:     model.RelationshipType(relType),
				Label:    label,
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("relationship created with id: %s", rel.ID)
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&sourceID, "source", "s", "", "source block id (required)")
	command.Flags().StringVarP(&targetID, "target", "t", "", "target block id (required)")
	command.Flags().StringVarP(&relType, "type", "r", "", "relationship type (required)")
	command.Flags().StringVarP(&label, "label", "l", "", "label")
	command.Flags().SortFlags = false

	return command
}

func listLinksCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list relationships",
		Run: func(cmd *cobra.Command, args []string) {
			client, ws, ok := clientContext()
			if !ok {
				return
			}

			rels, err := client.ListRelationships(context.Background(), ws)
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Source", "Type", "Target", "Label"})
			for _, r := range rels {
				table.Append([]string{r.ID, r.SourceID, string(r.Type), r.TargetID, r.Label})
			}
			table.Render()
		},
	}

	bindContextFlags(command)

	return command
}

func removeLinkCmd() *cobra.Command {
	var relID string

	var required = []string{"id"}

	command := &cobra.Command{
		Use:   "remove",
		Short: "remove a relationship",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			if err := client.RemoveRelationship(context.Background(), ws, relID); err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("relationship %s removed", relID)
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&relID, "id", "i", "", "relationship id (required)")

	return command
}

func createRevisionCmd() *cobra.Command {
	var blockID string
	var comment string

	var required = []string{"block-id"}

	command := &cobra.Command{
		Use:   "create",
		Short: "record a revision of a published block",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			rev, err := client.CreateRevision(context.Background(), ws, blockID, comment)
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("revision %d created with id: %s", rev.Version, rev.ID)
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&blockID, "block-id", "b", "", "block id (required)")
	command.Flags().StringVarP(&comment, "comment", "c", "", "revision comment")

	return command
}

func listRevisionsCmd() *cobra.Command {
	var blockID string

	var required = []string{"block-id"}

	command := &cobra.Command{
		Use:   "list",
		Short: "list the revisions of a block",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			revs, err := client.ListRevisions(context.Background(), ws, blockID)
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Version", "Author", "Comment", "Created"})
			for _, rev := range revs {
				table.Append([]string{rev.ID, strconv.Itoa(rev.Version), rev.CreatedByName, rev.Comment, formatTime(rev.CreatedAt)})
			}
			table.Render()
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&blockID, "block-id", "b", "", "block id (required)")

	return command
}

func restoreRevisionCmd() *cobra.Command {
	var revisionID string

	var required = []string{"id"}

	command := &cobra.Command{
		Use:   "restore",
		Short: "restore a block from a revision",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			b, err := client.RestoreRevision(context.Background(), ws, revisionID)
			if err != nil {
				logrus.Error(err)
				return
			}

			printBlocks([]*model.Block{b})
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&revisionID, "id", "i", "", "revision id (required)")

	return command
}
