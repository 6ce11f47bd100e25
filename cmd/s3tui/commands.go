package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rescp17/s3tui/internal/util"
	"github.com/rescp17/s3tui/pkg/credentials"
	"github.com/rescp17/s3tui/pkg/model"
	"github.com/rescp17/s3tui/pkg/persistence"
	"github.com/rescp17/s3tui/pkg/resumable"
	"github.com/rescp17/s3tui/pkg/s3client"
)

func newUploadCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <bucket> <dest-prefix> <paths...>",
		Short: "Upload local files or directories",
		Long:  "Adds the paths to the selection and starts uploading them. Directories are uploaded recursively under <dest-prefix>/<dir name>/. Use / for the bucket root.",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, prefix, paths := args[0], args[1], args[2:]
			return runTUI(cmd.Context(), *f, func(s *session) error {
				cred, err := s.credential(f.credential)
				if err != nil {
					return err
				}
				if prefix != "/" && !strings.HasSuffix(prefix, "/") {
					prefix += "/"
				}
				for _, p := range paths {
					abs, err := filepath.Abs(p)
					if err != nil {
						return err
					}
					item, err := model.NewLocalSelection(abs, bucket, prefix, cred)
					if err != nil {
						return fmt.Errorf("cannot select %s: %w", p, err)
					}
					s.app.AddLocal(item)
				}
				return nil
			})
		},
	}
}

func newDownloadCmd(f *flags) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "download <bucket> [keys...]",
		Short: "Download objects, prefixes or a whole bucket",
		Long:  "Adds the keys to the selection and starts downloading them. A key ending in / selects everything under that prefix; no keys selects the bucket.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, keys := args[0], args[1:]
			dest, err := filepath.Abs(to)
			if err != nil {
				return err
			}
			return runTUI(cmd.Context(), *f, func(s *session) error {
				cred, err := s.credential(f.credential)
				if err != nil {
					return err
				}
				if len(keys) == 0 {
					s.app.AddS3(model.NewS3Prefix(bucket, "", dest, cred))
				}
				for _, key := range keys {
					if strings.HasSuffix(key, "/") {
						s.app.AddS3(model.NewS3Prefix(bucket, key, dest, cred))
					} else {
						s.app.AddS3(model.NewS3Object(bucket, key, dest, cred))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", ".", "local directory to download into")
	return cmd
}

func newStatusCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show unfinished transfers without starting the TUI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*f)
			if err != nil {
				return err
			}
			saved, err := persistence.New(cfg.DataDir).Load()
			if err != nil {
				return err
			}
			uploads, downloads, err := resumable.Peek(cfg.DataDir)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), saved, uploads, downloads, time.Now())
			return nil
		},
	}
}

func newBucketsCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "List the buckets visible to a credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*f)
			if err != nil {
				return err
			}
			creds, err := credentials.Load(cfg.CredsFile, cfg.CredsDir())
			if err != nil {
				return err
			}
			cred, err := pickCredential(creds, f.credential)
			if err != nil {
				return err
			}
			plane := s3client.NewTransferer(s3client.NewClientCache(nil), nil, cfg.TransferConfig(), nil)
			names, err := plane.ListBuckets(cmd.Context(), cred)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

const stateWidth = 22

func printStatus(w io.Writer, saved persistence.PersistedTransfers, uploads []resumable.ResumableUpload, downloads []resumable.ResumableDownload, now time.Time) {
	rows := model.TransferItems(saved.S3Items, saved.LocalItems)
	fmt.Fprintf(w, "Selected transfers: %d\n", len(rows))
	for _, row := range rows {
		fmt.Fprintf(w, "  %s %s %s/%s -> %s\n", row.Arrow(), util.PadRight(row.State.String(), stateWidth), row.Bucket, row.Path, row.Destination)
	}

	fmt.Fprintf(w, "Resumable uploads: %d\n", len(uploads))
	for _, u := range uploads {
		fmt.Fprintf(w, "  %s -> s3://%s/%s  %d/%d parts, %s of %s, updated %s\n",
			u.SourcePath, u.Bucket, u.Key,
			len(u.CompletedParts), u.TotalParts(),
			util.FormatSize(u.ConfirmedBytes()), util.FormatSize(u.FileSize),
			humanize.RelTime(time.Unix(u.LastUpdated, 0), now, "ago", "from now"))
	}

	fmt.Fprintf(w, "Resumable downloads: %d\n", len(downloads))
	for _, d := range downloads {
		fmt.Fprintf(w, "  s3://%s/%s -> %s  %s of %s (%.1f%%), updated %s\n",
			d.Bucket, d.Key, d.DestinationPath,
			util.FormatSize(d.BytesDownloaded), util.FormatSize(d.TotalSize), d.Percent(),
			humanize.RelTime(time.Unix(d.LastUpdated, 0), now, "ago", "from now"))
	}
}
