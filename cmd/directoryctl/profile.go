package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/build-directory/internal/models"
	"github.com/terra-clan/build-directory/pkg/client"
)

func newProfileCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <id>",
		Short: "Show a professional with reviews and projects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid professional id %q", args[0])
			}
			profile, err := loadProfile(cmd.Context(), root.client(), id)
			if err != nil {
				return err
			}
			printProfile(cmd.OutOrStdout(), profile)
			return nil
		},
	}
}

func loadProfile(ctx context.Context, c *client.Client, id int64) (*models.Profile, error) {
	profile := &models.Profile{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.GetProfessional(gctx, id)
		profile.Professional = p
		return err
	})
	g.Go(func() error {
		r, err := c.ListReviews(gctx, id)
		profile.Reviews = r
		return err
	})
	g.Go(func() error {
		p, err := c.ListProjects(gctx, id)
		profile.Projects = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load professional %d: %w", id, err)
	}
	return profile, nil
}

func printProfile(w io.Writer, profile *models.Profile) {
	p := profile.Professional
	fmt.Fprintf(w, "%s (#%d)\n", p.DisplayName(), p.ID)
	fmt.Fprintf(w, "%s in %s, %.1f from %d reviews\n", p.Profession, p.Location, p.Rating, p.ReviewCount)
	if p.Experience > 0 {
		fmt.Fprintf(w, "Experience: %d years\n", p.Experience)
	}
	if len(p.Specializations) > 0 {
		fmt.Fprintf(w, "Specializations: %v\n", p.Specializations)
	}
	if p.About != "" {
		fmt.Fprintf(w, "\n%s\n", p.About)
	}

	if len(profile.Projects) > 0 {
		fmt.Fprintf(w, "\nProjects (%d)\n", len(profile.Projects))
		for _, pr := range profile.Projects {
			fmt.Fprintf(w, "  %s, %s", pr.Title, pr.PropertyType)
			if pr.CompletionYear != "" {
				fmt.Fprintf(w, ", %s", pr.CompletionYear)
			}
			fmt.Fprintln(w)
		}
	}

	if len(profile.Reviews) > 0 {
		fmt.Fprintf(w, "\nReviews (%d)\n", len(profile.Reviews))
		for _, r := range profile.Reviews {
			fmt.Fprintf(w, "  %.1f  %s: %s\n", r.Rating, r.UserFullName, r.Content)
		}
	}
}
