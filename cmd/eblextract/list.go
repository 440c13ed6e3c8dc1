package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listUnknownOnly bool

var listCmd = &cobra.Command{
	Use:   "list <game-root>",
	Short: "List the files in the title's archives",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archives, err := openArchives(args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "ARCHIVE\tHASH\tSIZE\tENCRYPTED\tPATH")
		for opened, err := range archives {
			if err != nil {
				return err
			}
			for f := range opened.reader.Files() {
				if listUnknownOnly && !f.PathUnknown() {
					continue
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%s\n", opened.archive.Name(), f.Hash(), f.Length(), f.Encrypted(), f.Path())
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listUnknownOnly, "unknown", false, "only list files whose name is not known")
	rootCmd.AddCommand(listCmd)
}
