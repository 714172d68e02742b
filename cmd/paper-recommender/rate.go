// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-recommender/internal/feedback"
	"github.com/pdiddy/paper-recommender/internal/pipeline"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

var rateCmd = &cobra.Command{
	Use:   "rate <project-id> <paper-hash> <1-5>",
	Short: "Rate a recommended paper",
	Long: `Rate records a 1-5 rating for a paper shown to a project. A rating of 1
or 2 asks for one unseen replacement paper close to the project profile.`,
	Args: cobra.ExactArgs(3),
	RunE: runRate,
}

func init() {
	rootCmd.AddCommand(rateCmd)
}

func runRate(cmd *cobra.Command, args []string) error {
	value, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("rating %q is not a number", args[2])
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.feedback.Rate(cmd.Context(), feedback.Rating{
		ProjectID: args[0],
		PaperHash: args[1],
		Value:     value,
	})
	if err != nil && !errors.Is(err, feedback.ErrReplacementSearch) {
		return err
	}
	fmt.Printf("%s %s rated %d\n", good("Saved."), args[1], value)
	if err != nil {
		return err
	}

	switch res.Status {
	case feedback.StatusReplaced:
		fmt.Println("Replacement:")
		printPapers(&pipeline.PapersPayload{Papers: []types.Paper{*res.Replacement}}, false)
	case feedback.StatusNoReplacement:
		fmt.Println(warn("No similar unseen paper is available as a replacement."))
	case feedback.StatusUnchanged:
		fmt.Println(dim("Rating unchanged; no new replacement."))
	}
	return nil
}
