package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ftpfs-go/internal/ftpfs"
)

func newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <remote-path> [content]",
		Short: "Create or replace a remote file (content from argument or stdin)",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runWrite,
	}
}

func newAppendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "append <remote-path> [content]",
		Short: "Append to an existing remote file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runAppend,
	}
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <remote-path>",
		Short: "Print a remote file",
		Args:  cobra.ExactArgs(1),
		RunE:  runCat,
	}
}

func newCpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <src> <dst>",
		Short: "Copy a remote file",
		Args:  cobra.ExactArgs(2),
		RunE:  runCp,
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <src> <dst>",
		Short: "Move or rename a remote file",
		Args:  cobra.ExactArgs(2),
		RunE:  runMv,
	}
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-path> [remote-path]",
		Short: "Upload a local file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runPut,
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a remote file or empty directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a remote directory (recursive)",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a remote directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Display remote file or directory metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  runStat,
	}
}

func newURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url <path>",
		Short: "Print the public URL of a remote file",
		Args:  cobra.ExactArgs(1),
		RunE:  runURL,
	}

	cmd.Flags().Duration("expires", 0, "link lifetime (e.g. 1h); 0 means no expiry parameter")

	return cmd
}

// withStorage opens a FileSystem for one command and closes it afterwards.
func withStorage(fn func(fsys *ftpfs.FileSystem, logger *slog.Logger) error) error {
	logger := buildLogger()

	fsys, err := openStorage(logger, nil)
	if err != nil {
		return err
	}
	defer fsys.Close()

	return fn(fsys, logger)
}

// contentArg returns args[1] when given, otherwise all of stdin.
func contentArg(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 1 {
		return []byte(args[1]), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}

	return data, nil
}

// reportRef prints the outcome of a mutating command.
func reportRef(cmd *cobra.Command, verb string, ref ftpfs.Ref) error {
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), ref)
	}

	statusf(cmd.ErrOrStderr(), "%s %s (%s)\n", verb, ref.Path, formatSize(ref.Bytes))

	return nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	content, err := contentArg(cmd, args)
	if err != nil {
		return err
	}

	return withStorage(func(fsys *ftpfs.FileSystem, logger *slog.Logger) error {
		logger.Debug("write", slog.String("path", args[0]), slog.Int("bytes", len(content)))

		ref, err := fsys.Write(cmd.Context(), args[0], content)
		if err != nil {
			return err
		}

		return reportRef(cmd, "Wrote", ref)
	})
}

func runAppend(cmd *cobra.Command, args []string) error {
	content, err := contentArg(cmd, args)
	if err != nil {
		return err
	}

	return withStorage(func(fsys *ftpfs.FileSystem, logger *slog.Logger) error {
		logger.Debug("append", slog.String("path", args[0]), slog.Int("bytes", len(content)))

		ref, err := fsys.Append(cmd.Context(), args[0], content)
		if err != nil {
			return err
		}

		return reportRef(cmd, "Appended to", ref)
	})
}

func runCat(cmd *cobra.Command, args []string) error {
	return withStorage(func(fsys *ftpfs.FileSystem, _ *slog.Logger) error {
		data, err := fsys.Read(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		_, err = cmd.OutOrStdout().Write(data)

		return err
	})
}

func runCp(cmd *cobra.Command, args []string) error {
	return withStorage(func(fsys *ftpfs.FileSystem, _ *slog.Logger) error {
		ref, err := fsys.Copy(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		return reportRef(cmd, "Copied "+args[0]+" to", ref)
	})
}

func runMv(cmd *cobra.Command, args []string) error {
	return withStorage(func(fsys *ftpfs.FileSystem, _ *slog.Logger) error {
		ref, err := fsys.Move(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		return reportRef(cmd, "Moved "+args[0]+" to", ref)
	})
}

func runPut(cmd *cobra.Command, args []string) error {
	localPath := args[0]

	fi, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stating local file: %w", err)
	}

	if fi.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", localPath)
	}

	remotePath := filepath.Base(localPath)
	if len(args) > 1 {
		remotePath = args[1]
	}

	return withStorage(func(fsys *ftpfs.FileSystem, logger *slog.Logger) error {
		logger.Debug("put",
			slog.String("local_path", localPath),
			slog.String("remote_path", remotePath),
			slog.Int64("size", fi.Size()),
		)

		ref, err := fsys.Upload(cmd.Context(), localPath, remotePath)
		if err != nil {
			return err
		}

		return reportRef(cmd, "Uploaded", ref)
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	return withStorage(func(fsys *ftpfs.FileSystem, _ *slog.Logger) error {
		if err := fsys.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}

		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
		}

		statusf(cmd.ErrOrStderr(), "Deleted %s\n", args[0])

		return nil
	})
}

func runMkdir(cmd *cobra.Command, args []string) error {
	return withStorage(func(fsys *ftpfs.FileSystem, _ *slog.Logger) error {
		if err := fsys.MkDir(cmd.Context(), args[0]); err != nil {
			return err
		}

		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]string{"created": args[0]})
		}

		statusf(cmd.ErrOrStderr(), "Created %s\n", args[0])

		return nil
	})
}

// lsJSONItem is the JSON output schema for a single entry in ls output.
type lsJSONItem struct {
	Name       string `json:"name"`
	IsDir      bool   `json:"is_dir"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

func runLs(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	return withStorage(func(fsys *ftpfs.FileSystem, logger *slog.Logger) error {
		ctx := cmd.Context()

		names, err := fsys.ReadDir(ctx, dir)
		if err != nil {
			return err
		}

		items := make([]lsJSONItem, 0, len(names))

		for _, name := range names {
			p := path.Join(dir, name)
			item := lsJSONItem{Name: name}

			isDir, err := fsys.IsDir(ctx, p)
			if err != nil {
				return err
			}

			item.IsDir = isDir

			if !isDir {
				if size, err := fsys.FileSize(ctx, p); err == nil {
					item.Size = size
				} else {
					logger.Debug("size unavailable", slog.String("path", p), slog.String("error", err.Error()))
				}

				if mod, err := fsys.LastModified(ctx, p); err == nil {
					item.ModifiedAt = mod.UTC().Format(time.RFC3339)
				}
			}

			items = append(items, item)
		}

		// Directories first, then alphabetical.
		sort.Slice(items, func(i, j int) bool {
			if items[i].IsDir != items[j].IsDir {
				return items[i].IsDir
			}

			return items[i].Name < items[j].Name
		})

		if flagJSON {
			return printJSON(cmd.OutOrStdout(), items)
		}

		return printItemsTable(cmd.OutOrStdout(), items)
	})
}

func printItemsTable(w io.Writer, items []lsJSONItem) error {
	rows := make([][]string, 0, len(items))

	for _, it := range items {
		name, size, modified := it.Name, formatSize(it.Size), "-"

		if it.IsDir {
			name += "/"
			size = "-"
		}

		if t, err := time.Parse(time.RFC3339, it.ModifiedAt); err == nil {
			modified = formatTime(t)
		}

		rows = append(rows, []string{name, size, modified})
	}

	return printTable(w, []string{"NAME", "SIZE", "MODIFIED"}, rows)
}

// statJSON is the JSON output schema for stat.
type statJSON struct {
	Path       string `json:"path"`
	IsDir      bool   `json:"is_dir"`
	IsFile     bool   `json:"is_file"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

func runStat(cmd *cobra.Command, args []string) error {
	p := args[0]

	return withStorage(func(fsys *ftpfs.FileSystem, _ *slog.Logger) error {
		ctx := cmd.Context()

		exists, err := fsys.Exists(ctx, p)
		if err != nil {
			return err
		}

		if !exists {
			return fmt.Errorf("%s: %w", p, ftpfs.ErrNotFound)
		}

		out := statJSON{Path: p}

		if out.IsFile, err = fsys.IsFile(ctx, p); err != nil {
			return err
		}

		out.IsDir = !out.IsFile

		if out.IsFile {
			if out.Size, err = fsys.FileSize(ctx, p); err != nil {
				return err
			}

			if mod, err := fsys.LastModified(ctx, p); err == nil {
				out.ModifiedAt = mod.UTC().Format(time.RFC3339)
			}
		}

		if flagJSON {
			return printJSON(cmd.OutOrStdout(), out)
		}

		w := cmd.OutOrStdout()
		kind := "file"

		if out.IsDir {
			kind = "directory"
		}

		fmt.Fprintf(w, "Path:     %s\n", out.Path)
		fmt.Fprintf(w, "Type:     %s\n", kind)

		if out.IsFile {
			fmt.Fprintf(w, "Size:     %s (%d bytes)\n", formatSize(out.Size), out.Size)
		}

		if out.ModifiedAt != "" {
			fmt.Fprintf(w, "Modified: %s\n", out.ModifiedAt)
		}

		return nil
	})
}

func runURL(cmd *cobra.Command, args []string) error {
	expires, err := cmd.Flags().GetDuration("expires")
	if err != nil {
		return err
	}

	return withStorage(func(fsys *ftpfs.FileSystem, _ *slog.Logger) error {
		u, err := fsys.BuildPreSignedURL(args[0], expires)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]string{"url": u})
		}

		fmt.Fprintln(cmd.OutOrStdout(), u)

		return nil
	})
}
