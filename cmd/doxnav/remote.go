package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgallion1/doxnav/internal/client"
	"github.com/dgallion1/doxnav/internal/pipeline"
	"github.com/spf13/cobra"
)

func newRemoteCmd() *cobra.Command {
	var server, apiKey string
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Query a running doxnav server",
	}
	cmd.PersistentFlags().StringVar(&server, "server", envOr("DOXNAV_SERVER", "http://localhost:8090"), "server base URL")
	cmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("DOXNAV_API_KEY"), "API key sent as a bearer token")

	connect := func() *client.Client { return client.NewClient(server, apiKey) }
	cmd.AddCommand(
		newRemoteSitesCmd(connect),
		newRemoteResolveCmd(connect),
		newRemoteSearchCmd(connect),
		newRemoteCheckCmd(connect),
	)
	return cmd
}

func newRemoteSitesCmd(connect func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the sites served and their load state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := connect()
			defer c.Close()
			sites, err := c.Sites(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range sites {
				switch {
				case s.Site != nil:
					fmt.Fprintf(out, "%s\t%s\t%d nodes\t%s\n", s.Name, s.Site.Title, s.Site.Nodes, s.Site.Fingerprint)
				default:
					fmt.Fprintf(out, "%s\tnot loaded\t%s\n", s.Name, s.Error)
				}
			}
			return nil
		},
	}
}

func newRemoteResolveCmd(connect func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve SITE URL",
		Short: "Print the breadcrumb trail of a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := connect()
			defer c.Close()
			bc, err := c.Resolve(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(bc.Titles, " > "))
			return nil
		},
	}
}

func newRemoteSearchCmd(connect func() *client.Client) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search SITE QUERY",
		Short: "Find navigation entries by title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := connect()
			defer c.Close()
			entries, err := c.Search(cmd.Context(), args[0], args[1], limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.Breadcrumb, e.URL)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results (server default when 0)")
	return cmd
}

func newRemoteCheckCmd(connect func() *client.Client) *cobra.Command {
	var wait bool
	var poll time.Duration
	cmd := &cobra.Command{
		Use:   "check SITE",
		Short: "Start a link check on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if poll <= 0 {
				return fmt.Errorf("--poll must be positive, got %s", poll)
			}
			c := connect()
			defer c.Close()
			ref, err := c.Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !wait {
				fmt.Fprintln(out, ref.JobID)
				return nil
			}

			snap, err := c.WaitCheck(cmd.Context(), ref.JobID, poll)
			if err != nil {
				return err
			}
			for _, r := range snap.Broken {
				fmt.Fprintf(out, "%s: %s: %s\n", r.Source, r.URL, r.Err)
			}
			for _, e := range snap.Progress.Errors {
				fmt.Fprintf(out, "error: %s\n", e)
			}
			fmt.Fprintf(out, "%s: %d links checked, %d broken\n", snap.Status, snap.Progress.LinksChecked, snap.Progress.Broken)
			if snap.Status != pipeline.StatusCompleted {
				return errProblems
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for the job and print broken links")
	cmd.Flags().DurationVar(&poll, "poll", client.DefaultPollInterval, "status poll interval")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
