package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terra-clan/build-directory/internal/controller"
	"github.com/terra-clan/build-directory/internal/listing"
	"github.com/terra-clan/build-directory/internal/models"
	"github.com/terra-clan/build-directory/internal/query"
	"github.com/terra-clan/build-directory/internal/render"
)

type searchOptions struct {
	rawQuery       string
	profession     string
	location       string
	specialization string
	search         string
	sortBy         string
	budget         string
	page           int
	asJSON         bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List professionals matching the given filters",
		Example: `  directoryctl search --type architect --location lonavla
  directoryctl search --query "type=contractor&budget=500000-1000000&page=2"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := opts.filters()
			if err != nil {
				return err
			}
			fetcher := listing.NewAPIFetcher(root.client(), root.log)
			return runSearch(cmd, fetcher, root.catalog(), filters, opts.asJSON)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.rawQuery, "query", "", "start from a listing query string")
	f.StringVar(&opts.profession, "type", "", "profession: contractor or architect")
	f.StringVar(&opts.location, "location", "", "location name")
	f.StringVar(&opts.specialization, "specialization", "", "comma separated specialization tags")
	f.StringVar(&opts.search, "search", "", "free text search")
	f.StringVar(&opts.sortBy, "sort", "", "relevance, rating or experience")
	f.StringVar(&opts.budget, "budget", "", "budget range as min-max")
	f.IntVar(&opts.page, "page", 0, "page number")
	f.BoolVar(&opts.asJSON, "json", false, "print the listing view as JSON")
	return cmd
}

// filters applies the flags on top of --query. Flag values go through the
// same validation as filter intents, so a bad value is an error here rather
// than being silently dropped.
func (o *searchOptions) filters() (models.FilterState, error) {
	state := query.Decode(strings.TrimPrefix(o.rawQuery, "?"))

	set := []struct {
		field models.FilterField
		value string
	}{
		{models.FieldProfession, o.profession},
		{models.FieldLocation, o.location},
		{models.FieldSpecialization, o.specialization},
		{models.FieldSearch, o.search},
		{models.FieldSortBy, o.sortBy},
		{models.FieldBudget, o.budget},
	}
	changed := false
	for _, s := range set {
		if s.value == "" {
			continue
		}
		next, ok := query.SetField(state, s.field, s.value)
		if !ok {
			return state, fmt.Errorf("invalid %s %q", s.field, s.value)
		}
		state = next
		changed = true
	}

	switch {
	case o.page > 0:
		state.Page = o.page
	case o.page < 0:
		return state, fmt.Errorf("invalid page %d", o.page)
	case changed:
		state.Page = 1
	}
	return state, nil
}

// runSearch mounts a controller on the encoded filters, waits for it to
// settle and prints the rendered listing.
func runSearch(cmd *cobra.Command, fetcher listing.Fetcher, cat *models.Catalog, filters models.FilterState, asJSON bool) error {
	ctl := controller.New(fetcher)
	defer ctl.Close()

	ctl.Mount(query.Encode(filters))
	ctl.Wait()

	v := ctl.View()
	view := render.Listing(v, cat)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			return err
		}
	} else {
		printListing(out, view)
	}

	if v.Status == controller.StatusError {
		if errors.Is(v.Err, listing.ErrFetchFailed) {
			return v.Err
		}
		return fmt.Errorf("listing failed: %w", v.Err)
	}
	return nil
}

func printListing(w io.Writer, view render.ListingView) {
	fmt.Fprintln(w, view.Heading)

	if len(view.Chips) > 0 {
		labels := make([]string, 0, len(view.Chips))
		for _, c := range view.Chips {
			labels = append(labels, c.Label)
		}
		fmt.Fprintf(w, "Filters: %s\n", strings.Join(labels, ", "))
	}

	if view.Error != nil {
		fmt.Fprintln(w, view.Error.Message)
	}
	if view.Empty != nil {
		fmt.Fprintln(w, view.Empty.Message)
		fmt.Fprintln(w, view.Empty.Hint)
	}

	fmt.Fprintln(w)
	for i, p := range view.Items {
		fmt.Fprintf(w, "%3d. %s", i+1, p.DisplayName())
		if p.Location != "" {
			fmt.Fprintf(w, ", %s", p.Location)
		}
		fmt.Fprintf(w, "  [%.1f, %d reviews", p.Rating, p.ReviewCount)
		if p.Experience > 0 {
			fmt.Fprintf(w, ", %d yrs", p.Experience)
		}
		fmt.Fprintf(w, "]  #%d\n", p.ID)
	}

	if view.Pagination.Visible {
		fmt.Fprintf(w, "\nPage %d of %d\n", view.Pagination.Current, view.Pagination.Total)
	}
	if view.Query != "" {
		fmt.Fprintf(w, "query: %s\n", view.Query)
	}
}
