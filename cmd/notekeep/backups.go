package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List the keys corrupt data was preserved under",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		nb := openNotebook(cmd)
		defer closeNotebook(nb)

		keys := nb.Backups(cmd.Context())
		if len(keys) == 0 {
			fmt.Println("No backups.")
			return
		}
		for _, k := range keys {
			fmt.Println(k)
		}
	},
}

func init() {
	rootCmd.AddCommand(backupsCmd)
}
