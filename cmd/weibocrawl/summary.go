package main

import (
	"github.com/spf13/cobra"
	"weibocrawl/pkg/filter"
	"weibocrawl/pkg/normalize"
	"weibocrawl/pkg/snapshot"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <snapshot.json>",
	Short: "Print the summary of a snapshot",
	Long: `Print the monthly distribution, top posts, topics, mentions and keywords
of a saved snapshot. --since, --until and --keywords narrow it first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().String("since", "", "lower date bound")
	summaryCmd.Flags().String("until", "", "upper date bound")
	summaryCmd.Flags().String("keywords", "", "comma-separated keywords")
	summaryCmd.Flags().String("locale", "", "summary language (zh or en)")
}

func runSummary(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{}
	for _, name := range []string{"since", "until", "keywords", "locale"} {
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
	since, until, err := cfg.Window()
	if err != nil {
		return err
	}
	store, err := snapshot.NewStore(cfg.Output.Directory, normalize.New(loc, log), loc, log)
	if err != nil {
		return err
	}
	file, err := store.Load(args[0])
	if err != nil {
		return err
	}

	posts := file.Items
	if cmd.Flags().Changed("since") || cmd.Flags().Changed("until") || cmd.Flags().Changed("keywords") {
		posts = filter.Apply(posts, filter.Criteria{
			Since:    since,
			Until:    until,
			Keywords: filter.ParseKeywords(cfg.Crawl.Keywords),
		})
	}
	return printSummary(cfg, loc, file.User, posts)
}
