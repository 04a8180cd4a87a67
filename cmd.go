package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"gitlab-mcp-server/internal/application"
	"gitlab-mcp-server/internal/review"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "gitlab-mcp-server",
		Short: "Expose the GitLab REST API as MCP tools",
		Long: `gitlab-mcp-server serves GitLab REST API v4 endpoints as MCP tools over
stdio or HTTP+SSE.

The access token is read from GITLAB_API_TOKEN (or gitlab.token in the
config file); GITLAB_API_URL selects a self-managed instance.`,
		SilenceUsage: true,
		Version:      application.ServerVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to an optional YAML configuration file")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newToolsCmd(),
		newPostCommentsCmd(&configPath),
	)

	return rootCmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*configPath)
		},
	}
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool descriptors as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := application.NewDefaultRegistry()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"tools": registry.Definitions(),
			})
		},
	}
}

func newPostCommentsCmd(configPath *string) *cobra.Command {
	var (
		projectID  string
		mrRef      string
		reviewPath string
		snap       bool
	)

	cmd := &cobra.Command{
		Use:   "post-comments",
		Short: "Post the line comments of a review as merge request threads",
		Long: `Reads a review text, extracts the last JSON array of line comments
({"new_path", "line", "comment", ...}) and posts each one as a diff thread
on the merge request. Use --review - to read from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readReview(reviewPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			mrIID, err := parseMRIID(mrRef)
			if err != nil {
				return fmt.Errorf("invalid --mr %q: %w", mrRef, err)
			}

			comments := review.ExtractComments(text)
			if len(comments) == 0 {
				return fmt.Errorf("no line comments found in %s", reviewPath)
			}

			rt, err := newRuntime(*configPath, nil)
			if err != nil {
				return err
			}

			poster := review.NewPoster(application.NewLocalCaller(rt.dispatcher, rt.hc), rt.logger.Slog())
			poster.SnapToVisible = snap

			results, err := poster.PostComments(context.Background(), projectID, mrIID, comments)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID or path")
	cmd.Flags().StringVar(&mrRef, "mr", "", "Merge request IID (12 or !12)")
	cmd.Flags().StringVar(&reviewPath, "review", "-", "Review text file, or - for stdin")
	cmd.Flags().BoolVar(&snap, "snap", false, "Move comments outside the diff to the nearest visible line above")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("mr")

	return cmd
}

func readReview(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read review from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read review: %w", err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseMRIID accepts "!12" as well as "12".
func parseMRIID(s string) (int, error) {
	if len(s) > 0 && s[0] == '!' {
		s = s[1:]
	}
	return strconv.Atoi(s)
}
