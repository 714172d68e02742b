// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-recommender/internal/pipeline"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
	good    = color.New(color.FgGreen, color.Bold).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
	bad     = color.New(color.FgRed, color.Bold).SprintFunc()
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <project-id> <query>",
	Short: "Recommend papers for a project",
	Long: `Recommend runs a query against a project: scope check, quality control,
retrieval and filtering. Progress is printed as it happens. With --save the
listing is written to a session file that "more" continues from.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRecommend,
}

var moreCmd = &cobra.Command{
	Use:   "more <session-file>",
	Short: "Load the next page of a saved listing",
	Long: `More continues a listing saved by "recommend --save". It reuses the
session's keywords and filter criteria and skips the scope and quality
control steps. The session file is updated in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runMore,
}

func init() {
	recommendCmd.Flags().String("save", "", "write the listing to this session file")
	recommendCmd.Flags().Bool("abstracts", false, "print paper abstracts")
	moreCmd.Flags().Bool("abstracts", false, "print paper abstracts")

	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(moreCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	projectID := args[0]
	if _, err := requireProject(cmd.Context(), a.store, projectID); err != nil {
		return err
	}
	query := strings.Join(args[1:], " ")
	abstracts, _ := cmd.Flags().GetBool("abstracts")

	events := a.pipeline.Run(cmd.Context(), pipeline.Request{ProjectID: projectID, Query: query})
	payload, err := printEvents(events, abstracts)
	if err != nil || payload == nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		session := &pipeline.SessionFile{ProjectID: projectID}
		session.Append(*payload)
		if err := pipeline.WriteSessionFile(path, session); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved session to %s\n", path)
	}
	return nil
}

func runMore(cmd *cobra.Command, args []string) error {
	session, err := pipeline.ReadSessionFile(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := requireProject(cmd.Context(), a.store, session.ProjectID); err != nil {
		return err
	}
	abstracts, _ := cmd.Flags().GetBool("abstracts")

	payload, err := printEvents(a.pipeline.LoadMore(cmd.Context(), session.ProjectID, session.Cursor), abstracts)
	if err != nil || payload == nil {
		return err
	}
	session.Append(*payload)
	return pipeline.WriteSessionFile(args[0], session)
}

// printEvents renders a stream and returns the papers payload, if any. An
// error event becomes the returned error.
func printEvents(events iter.Seq[pipeline.Event], abstracts bool) (*pipeline.PapersPayload, error) {
	for ev := range events {
		switch ev.Kind {
		case pipeline.KindThought:
			fmt.Fprintf(os.Stderr, "%s %s\n", dim("…"), ev.Thought)
		case pipeline.KindPapers:
			printPapers(ev.Papers, abstracts)
			return ev.Papers, nil
		case pipeline.KindOutOfScope:
			o := ev.OutOfScope
			fmt.Printf("%s %s\n\n%s\n", warn("Out of scope:"), o.ShortExplanation, o.Explanation)
			if o.Suggestion != "" {
				fmt.Printf("\nTry: %s\n", o.Suggestion)
			}
			return nil, nil
		case pipeline.KindNoResults:
			x := ev.NoResults
			fmt.Printf("%s %s\n", warn("No results."), x.Message)
			for _, r := range x.Criteria {
				line := fmt.Sprintf("  %s %s %s: %d of %d match", r.Field, r.Operator, r.Threshold, r.Matched, x.Retrieved)
				if r.Closest != "" {
					line += fmt.Sprintf(", closest %s (relax %s)", r.Closest, r.Relax)
				}
				fmt.Println(line)
			}
			return nil, nil
		case pipeline.KindError:
			e := ev.Error
			fmt.Fprintf(os.Stderr, "%s %s failed (%s)\n", bad("Error:"), e.Stage, e.Kind)
			return nil, fmt.Errorf("%s: %s", e.Stage, e.Message)
		}
	}
	return nil, nil
}

func printPapers(p *pipeline.PapersPayload, abstracts bool) {
	if len(p.Papers) == 0 {
		fmt.Println(warn("No more papers."))
		return
	}
	for i, paper := range p.Papers {
		fmt.Printf("%s %s\n", good(fmt.Sprintf("%2d.", i+1)), heading(paper.Title))
		fmt.Printf("    %s\n", dim(paperLine(paper)))
		if paper.DOI != "" {
			fmt.Printf("    https://doi.org/%s\n", paper.DOI)
		}
		if abstracts && paper.Abstract != "" {
			fmt.Printf("    %s\n", paper.Excerpt(types.SummaryLength))
		}
		fmt.Printf("    %s\n", dim("hash "+paper.Hash))
	}
	if p.Exhausted {
		fmt.Println(warn("The index has no further candidates for this query."))
	}
}

func paperLine(p types.Paper) string {
	parts := make([]string, 0, 5)
	if len(p.Authors) > 0 {
		a := p.Authors[0]
		if len(p.Authors) > 1 {
			a += " et al."
		}
		parts = append(parts, a)
	}
	if y := p.Year(); y > 0 {
		parts = append(parts, fmt.Sprintf("%d", y))
	}
	if p.Venue != "" {
		parts = append(parts, p.Venue)
	}
	parts = append(parts, fmt.Sprintf("%d citations", p.CitedByCount), fmt.Sprintf("FWCI %.2f", p.FWCI))
	return strings.Join(parts, " · ")
}
