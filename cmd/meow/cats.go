package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"meow/internal/api"
	"meow/internal/config"
)

func newUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a cat pic and print its id",
		Args:  requireExactlyArgs(1, "path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.UploadCat(cmd.Context(), filepath.Base(args[0]), f)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("%s\n", resp.ID)
			})
		},
	}
}

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored cat pic ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				cats, err := client.ListCats(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(cats)
				}
				return writeCatList(cats)
			})
		},
	}
}

func newGetCmd(cfg *config.Config) *cobra.Command {
	var (
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Download a cat pic to stdout or a file",
		Args:  requireExactlyArgs(1, "id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath = strings.TrimSpace(outPath)
			if outPath != "" && !force {
				if _, err := os.Stat(outPath); err == nil {
					return fmt.Errorf("output file exists (use --force to overwrite)")
				}
			}

			return withClient(cfg, func(client *api.Client) error {
				if outPath == "" {
					_, err := client.DownloadCat(cmd.Context(), args[0], stdout)
					return err
				}
				return downloadToFile(cmd, client, args[0], outPath)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (default stdout)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite output path if it exists")
	return cmd
}

// downloadToFile writes next to path and renames on success so a failed
// download never leaves a truncated file behind.
func downloadToFile(cmd *cobra.Command, client *api.Client, id, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".meow-get-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := client.DownloadCat(cmd.Context(), id, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	return writePlain("%s\n", path)
}

func newReplaceCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "replace <id> <path>",
		Short: "Replace a cat pic and print the new id",
		Args:  requireExactlyArgs(2, "id and path are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, path := args[0], args[1]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ReplaceCat(cmd.Context(), id, filepath.Base(path), f)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("%s\n", resp.ID)
			})
		},
	}
}

func newDeleteCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a cat pic",
		Args:    requireExactlyArgs(1, "id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.DeleteCat(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("%s\n", args[0])
			})
		},
	}
}
