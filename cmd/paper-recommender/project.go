// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage research projects",
	Long: `Project creates, lists, shows and edits research projects. A project's
description is the source of its retrieval profile, so editing it changes
future recommendations.`,
}

// projectFile is the YAML form accepted by --file.
type projectFile struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags,omitempty"`
}

func readProjectFile(path string) (projectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return projectFile{}, fmt.Errorf("reading project file: %w", err)
	}
	var pf projectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return projectFile{}, fmt.Errorf("parsing project file %s: %w", path, err)
	}
	return pf, nil
}

// --- create subcommand ---

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	Long: `Create stores a new project. Give --title and --description, or a YAML
file with title, description and tags via --file.`,
	RunE: runProjectCreate,
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		pf, err := readProjectFile(path)
		if err != nil {
			return err
		}
		title, description, tags = pf.Title, pf.Description, pf.Tags
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return fmt.Errorf("a project needs a title and a description")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := st.CreateProject(cmd.Context(), title, description, tags)
	if err != nil {
		return err
	}
	fmt.Println(p.ID)
	return nil
}

// --- list subcommand ---

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE:  runProjectList,
}

func runProjectList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ps, err := st.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(ps)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.CreatedAt.Format("2006-01-02"), p.Title)
	}
	return tw.Flush()
}

// --- show subcommand ---

var projectShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a project and the papers it has been shown",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := requireProject(cmd.Context(), st, args[0])
	if err != nil {
		return err
	}
	papers, err := st.ProjectPapers(cmd.Context(), p.ID)
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(struct {
			Project types.Project        `json:"project"`
			Papers  []types.ProjectPaper `json:"papers"`
		}{p, papers})
	}

	fmt.Printf("%s\n%s\n\n%s\n", heading(p.Title), dim(p.ID), p.Description)
	if len(p.Tags) > 0 {
		fmt.Printf("\ntags: %s\n", strings.Join(p.Tags, ", "))
	}
	if len(papers) == 0 {
		return nil
	}
	fmt.Printf("\n%d paper(s) shown:\n", len(papers))
	for _, pp := range papers {
		rating := "-"
		if pp.Rating > 0 {
			rating = fmt.Sprintf("%d", pp.Rating)
		}
		fmt.Printf("  %s  rating %s  %s\n", pp.PaperHash, rating, pp.Summary)
	}
	return nil
}

// --- edit subcommand ---

var projectEditCmd = &cobra.Command{
	Use:   "edit <project-id>",
	Short: "Edit a project's title, description or tags",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectEdit,
}

func runProjectEdit(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := requireProject(cmd.Context(), st, args[0])
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		pf, err := readProjectFile(path)
		if err != nil {
			return err
		}
		if pf.Title != "" {
			p.Title = strings.TrimSpace(pf.Title)
		}
		if pf.Description != "" {
			p.Description = strings.TrimSpace(pf.Description)
		}
		if pf.Tags != nil {
			p.Tags = pf.Tags
		}
	}
	if cmd.Flags().Changed("title") {
		v, _ := cmd.Flags().GetString("title")
		p.Title = strings.TrimSpace(v)
	}
	if cmd.Flags().Changed("description") {
		v, _ := cmd.Flags().GetString("description")
		p.Description = strings.TrimSpace(v)
	}
	if cmd.Flags().Changed("tags") {
		p.Tags, _ = cmd.Flags().GetStringSlice("tags")
	}
	if p.Title == "" || p.Description == "" {
		return fmt.Errorf("a project needs a title and a description")
	}

	if err := st.UpdateProject(cmd.Context(), p); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Updated %s\n", p.ID)
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	projectCreateCmd.Flags().String("title", "", "project title")
	projectCreateCmd.Flags().String("description", "", "project description")
	projectCreateCmd.Flags().StringSlice("tags", nil, "topic tags (comma-separated)")
	projectCreateCmd.Flags().String("file", "", "YAML file with title, description and tags")

	projectListCmd.Flags().Bool("json", false, "output as JSON")
	projectShowCmd.Flags().Bool("json", false, "output as JSON")

	projectEditCmd.Flags().String("title", "", "new title")
	projectEditCmd.Flags().String("description", "", "new description")
	projectEditCmd.Flags().StringSlice("tags", nil, "replacement tags (comma-separated)")
	projectEditCmd.Flags().String("file", "", "YAML file with fields to change")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectEditCmd)
	rootCmd.AddCommand(projectCmd)
}
