package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/planforge/pkg/models"
)

var (
	projectsServer string
	projectsStatus string
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Inspect projects on a running orchestrator",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE:  runProjectsList,
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a project and its plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsShow,
}

func init() {
	projectsCmd.PersistentFlags().StringVar(&projectsServer, "server", "http://localhost:8000", "Orchestrator base URL")
	projectsListCmd.Flags().StringVar(&projectsStatus, "status", "", "Filter by status (planning, refining, ready, in_progress, completed, archived)")
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsShowCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	endpoint := projectsServer + "/projects"
	if projectsStatus != "" {
		endpoint += "?status=" + url.QueryEscape(projectsStatus)
	}

	var body struct {
		Projects []models.Project `json:"projects"`
	}
	if err := fetchJSON(endpoint, &body); err != nil {
		return err
	}

	if len(body.Projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	for _, p := range body.Projects {
		fmt.Printf("%s  %s  %s\n", p.ID, statusColor(string(p.Status)), p.Name)
	}
	return nil
}

func runProjectsShow(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	var project models.Project
	if err := fetchJSON(projectsServer+"/projects/"+url.PathEscape(projectID), &project); err != nil {
		return err
	}

	fmt.Printf("%s\n", color.New(color.Bold).Sprint(project.Name))
	fmt.Printf("  ID: %s\n", project.ID)
	fmt.Printf("  Status: %s\n", statusColor(string(project.Status)))
	if project.RepoURL != "" {
		fmt.Printf("  Repository: %s\n", project.RepoURL)
	}
	if project.Description != "" {
		fmt.Printf("  Description: %s\n", project.Description)
	}

	var plan struct {
		Epics []struct {
			models.Epic
			Stories []struct {
				models.Story
				Tasks []models.Task `json:"tasks"`
			} `json:"stories"`
		} `json:"epics"`
	}
	if err := fetchJSON(projectsServer+"/projects/"+url.PathEscape(projectID)+"/plan", &plan); err != nil {
		return err
	}

	if len(plan.Epics) == 0 {
		fmt.Println("\nNo plan yet. Finalize the project to generate one.")
		return nil
	}

	for _, e := range plan.Epics {
		fmt.Printf("\n%s (priority %d)\n", color.CyanString(e.Title), e.Priority)
		for _, s := range e.Stories {
			fmt.Printf("  %s\n", s.Title)
			for _, t := range s.Tasks {
				fmt.Printf("    [%s] %s\n", statusColor(string(t.Status)), t.Title)
			}
		}
	}
	return nil
}

// fetchJSON gets a URL and decodes the JSON response, surfacing the
// orchestrator's detail message on non-200s.
func fetchJSON(endpoint string, out any) error {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil && detail.Detail != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, detail.Detail)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusColor(status string) string {
	switch status {
	case "done", "completed", "ready":
		return color.GreenString(status)
	case "in_progress", "refining":
		return color.YellowString(status)
	case "blocked", "archived":
		return color.RedString(status)
	default:
		return status
	}
}
