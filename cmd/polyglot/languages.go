package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/polyglot-bot/polyglot/internal/dispatch"
	"github.com/polyglot-bot/polyglot/internal/languages"
)

func newLanguagesCmd(flags *rootFlags) *cobra.Command {
	var intro bool
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the supported target languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			registry, err := languages.New(cfg.Languages...)
			if err != nil {
				return fmt.Errorf("invalid languages: %w", err)
			}

			out := cmd.OutOrStdout()
			if intro {
				fmt.Fprintln(out, dispatch.IntroMessage(registry, cfg.Discord.Triggers[0]))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tDESCRIPTION")
			for _, lang := range registry.All() {
				fmt.Fprintf(w, "%s\t%s\t%s %s\n", lang.Code, lang.Name, lang.Description, lang.Emoji)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&intro, "intro", false, "print the introduction message instead")
	return cmd
}
