package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/liamcoop/premium/premium"
	"github.com/liamcoop/premium/segmentengine"
)

func newPublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <dir>",
		Short: "Publish an artifact directory to PostgreSQL",
		Long: `Validate the release in an artifact directory and store it in PostgreSQL as
the active release. The previous release stays in the database, inactive.
A version can only be published once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			files := premium.NewFileArtifactStore(args[0])

			// refuse anything the server would refuse at startup
			set, err := segmentengine.LoadRelease(ctx, files)
			if err != nil {
				return err
			}
			manifest, docs, err := files.ReadAll(ctx)
			if err != nil {
				return err
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := premium.NewPostgresArtifactStore(db).Publish(ctx, *manifest, docs); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Published release %s\n", set.Version)
			return nil
		},
	}
}

func newReleasesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "releases",
		Short: "List releases stored in PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			releases, err := premium.NewPostgresArtifactStore(db).ListReleases(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.output == OutputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(releases)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tACTIVE\tID")
			for _, r := range releases {
				active := ""
				if r.Active {
					active = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Version, active, r.ID)
			}
			return w.Flush()
		},
	}
}
