package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/emrgen/canvas/internal/review"
	"github.com/emrgen/canvas/internal/service"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "review commands",
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	reviewCmd.AddCommand(requestReviewCmd())
	reviewCmd.AddCommand(listReviewsCmd())
	reviewCmd.AddCommand(startReviewCmd())
	reviewCmd.AddCommand(completeReviewCmd())
	reviewCmd.AddCommand(cancelReviewCmd())
}

func printReviews(reqs []*review.Request) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Status", "Reviewer", "Requester", "Blocks", "Due"})
	now := time.Now()
	for _, r := range reqs {
		due := formatTime(r.DueBy)
		if r.Open() && r.DueBy.Before(now) {
			due = color.RedString(due)
		}
		table.Append([]string{r.ID, string(r.Status), r.ReviewerID, r.RequesterID, strings.Join(r.BlockIDs, ", "), due})
	}
	table.Render()
}

func requestReviewCmd() *cobra.Command {
	var blockIDs []string
	var reviewerID string
	var reviewerName string
	var due time.Duration
	var note string

	var required = []string{"block-id", "reviewer"}

	command := &cobra.Command{
		Use:     "request",
		Short:   "ask a reviewer to review blocks",
		Example: "canvas review request -b <block-id> -r <reviewer-id> --due 48h",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			req, err := client.RequestReview(context.Background(), ws, &service.RequestReviewRequest{
				BlockIDs:     unique(blockIDs),
				ReviewerID:   reviewerID,
				ReviewerName: reviewerName,
				DueBy:        time.Now().Add(due),
				Context:      note,
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("review requested with id: %s", req.ID)
		},
	}

	bindContextFlags(command)
	command.Flags().StringSliceVarP(&blockIDs, "block-id", "b", nil, "block ids (required)")
	command.Flags().StringVarP(&reviewerID, "reviewer", "r", "", "reviewer id (required)")
	command.Flags().StringVar(&reviewerName, "reviewer-name", "", "reviewer display name")
	command.Flags().DurationVar(&due, "due", 72*time.Hour, "time until the review is due")
	command.Flags().StringVarP(&note, "context", "c", "", "note for the reviewer")
	command.Flags().SortFlags = false

	return command
}

func listReviewsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "list review requests",
		Run: func(cmd *cobra.Command, args []string) {
			client, ws, ok := clientContext()
			if !ok {
				return
			}

			reqs, err := client.ListReviews(context.Background(), ws)
			if err != nil {
				logrus.Error(err)
				return
			}

			printReviews(reqs)
		},
	}

	bindContextFlags(command)

	return command
}

func startReviewCmd() *cobra.Command {
	var reviewID string

	var required = []string{"id"}

	command := &cobra.Command{
		Use:   "start",
		Short: "mark a review as in progress",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			req, err := client.StartReview(context.Background(), ws, reviewID)
			if err != nil {
				logrus.Error(err)
				return
			}

			printReviews([]*review.Request{req})
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&reviewID, "id", "i", "", "review id (required)")

	return command
}

func completeReviewCmd() *cobra.Command {
	var reviewID string
	var approve bool
	var comment string

	var required = []string{"id"}

	command := &cobra.Command{
		Use:     "complete",
		Short:   "approve a review or ask for changes",
		Example: "canvas review complete -i <review-id> --approve",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			resolution := review.ResolutionNeedsChanges
			if approve {
				resolution = review.ResolutionApproved
			}

			req, err := client.CompleteReview(context.Background(), ws, reviewID, &service.CompleteReviewRequest{
				Resolution: resolution,
				Comment:    comment,
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			printReviews([]*review.Request{req})
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&reviewID, "id", "i", "", "review id (required)")
	command.Flags().BoolVar(&approve, "approve", false, "approve the blocks, otherwise they need changes")
	command.Flags().StringVarP(&comment, "comment", "c", "", "review comment")
	command.Flags().SortFlags = false

	return command
}

func cancelReviewCmd() *cobra.Command {
	var reviewID string

	var required = []string{"id"}

	command := &cobra.Command{
		Use:   "cancel",
		Short: "cancel a review request",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			client, ws, ok := clientContext()
			if !ok {
				return
			}

			if _, err := client.CancelReview(context.Background(), ws, reviewID); err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("review %s cancelled", reviewID)
		},
	}

	bindContextFlags(command)
	command.Flags().StringVarP(&reviewID, "id", "i", "", "review id (required)")

	return command
}
