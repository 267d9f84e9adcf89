package main

import (
	"fmt"

	"github.com/spf13/cobra"
	errs "weibocrawl/pkg/errors"
	"weibocrawl/pkg/models"
	"weibocrawl/pkg/normalize"
	"weibocrawl/pkg/snapshot"
	"weibocrawl/pkg/ui"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <glob>",
	Short: "Merge snapshot files into one",
	Long: `Merge every snapshot matching a glob pattern. Posts are deduplicated
across files and ordered by date; unreadable files are skipped. The merged
snapshot is written to the output directory and summarized.`,
	Example: `  weibocrawl merge 'output/weibo_1669879400_*.json'`,
	Args:    cobra.ExactArgs(1),
	RunE:    runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().String("output", "", "directory for the merged snapshot")
	mergeCmd.Flags().String("locale", "", "summary language (zh or en)")
	mergeCmd.Flags().BoolVar(&noSummary, "no-summary", false, "do not print the summary")
}

func runMerge(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{}
	for _, name := range []string{"output", "locale"} {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			flags[name] = v
		}
	}
	cfg, log, err := loadConfig(flags)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	store, err := snapshot.NewStore(cfg.Output.Directory, normalize.New(loc, log), loc, log)
	if err != nil {
		return err
	}

	posts, files, err := store.Merge(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errs.New(errs.ErrorTypeNotFound, "no readable snapshot matches %s", args[0])
	}

	author := authorOf(store, files)
	path, err := store.SaveMerged(author, posts)
	if err != nil {
		return err
	}
	ui.PrintInfo("Merged", fmt.Sprintf("%d posts from %d files", len(posts), len(files)))
	ui.PrintInfo("Snapshot", path)

	if noSummary {
		return nil
	}
	return printSummary(cfg, loc, author, posts)
}

// authorOf returns the author of the first file that names one.
func authorOf(store *snapshot.Store, files []string) models.Author {
	for _, f := range files {
		file, err := store.Load(f)
		if err == nil && !file.User.Empty() {
			return file.User
		}
	}
	return models.Author{}
}
