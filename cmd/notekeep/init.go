package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/notekeep/internal/platform"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a notebook and its notekeep.yaml",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := dir
		if path == "" {
			wd, err := os.Getwd()
			if err != nil {
				fatal("Failed to get CWD", err)
			}
			path = filepath.Join(wd, platform.MarkerDir)
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			fatal("Failed to create notebook directory", err)
		}

		cfgPath := filepath.Join(path, platform.ConfigFile)
		if _, err := os.Stat(cfgPath); err == nil {
			fmt.Println("Notebook already initialized in", path)
			return
		} else if !errors.Is(err, fs.ErrNotExist) {
			fatal("Failed to inspect config", err)
		}

		name := adapterName
		if name == "" {
			name = platform.AdapterFS
		}
		doc := fmt.Sprintf("adapter: %s\ndebounce: 250ms\nwatch: false\n", name)
		if _, err := platform.ParseConfig([]byte(doc)); err != nil {
			fatal("Invalid adapter", err)
		}
		if err := os.WriteFile(cfgPath, []byte(doc), 0644); err != nil {
			fatal("Failed to write config", err)
		}

		nb := openNotebook(cmd)
		closeNotebook(nb)
		fmt.Println("Initialized empty notebook in", path)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
