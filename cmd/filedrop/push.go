package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"file-drop/internal/client"
)

var errUploadsFailed = errors.New("some uploads failed")

func runPush(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errors.New("push: at least one file is required")
	}

	sel := client.NewSelection()
	if _, err := sel.Add(paths...); err != nil {
		fmt.Fprintln(os.Stderr, styles.Warn(err.Error()))
	}
	if sel.Len() == 0 {
		return errors.New("push: nothing to upload")
	}

	c := client.New(cmd.String("server"), cmd.Duration("timeout"))
	return push(ctx, os.Stdout, sel, c)
}

// push uploads the selection and prints one line per file.
func push(ctx context.Context, w io.Writer, sel *client.Selection, up client.Uploader) error {
	fmt.Fprintln(w, styles.Title(fmt.Sprintf("Uploading %d file(s), %s", sel.Len(), humanize.IBytes(uint64(sel.TotalSize())))))

	sum, err := sel.Upload(ctx, up, func(done, total int, it client.Item) {
		switch it.Status {
		case client.StatusSuccess:
			line := fmt.Sprintf("[%d/%d] %s (%s)", done, total, it.Name, humanize.IBytes(uint64(it.Result.Size)))
			if it.Result.Filename != it.Name {
				line += " saved as " + it.Result.Filename
			}
			fmt.Fprintln(w, styles.OK(line))
		case client.StatusFailed:
			fmt.Fprintln(w, styles.Err(fmt.Sprintf("[%d/%d] %s: %v", done, total, it.Name, it.Err)))
		}
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, styles.Help(fmt.Sprintf("%d uploaded, %d failed, %d skipped", sum.Uploaded, sum.Failed, sum.Skipped)))
	if sum.Failed > 0 {
		return errUploadsFailed
	}
	return nil
}

func runList(ctx context.Context, cmd *cli.Command) error {
	c := client.New(cmd.String("server"), cmd.Duration("timeout"))
	files, err := c.List(ctx)
	if err != nil {
		return err
	}
	return printFiles(os.Stdout, files)
}

func printFiles(w io.Writer, files []client.RemoteFile) error {
	if len(files) == 0 {
		fmt.Fprintln(w, styles.Help("no files stored"))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, styles.Title("NAME")+"\t"+styles.Title("SIZE")+"\t"+styles.Title("MODIFIED"))
	var total int64
	for _, f := range files {
		total += f.Size
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, humanize.IBytes(uint64(f.Size)), humanize.Time(f.ModTime()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, styles.Help(fmt.Sprintf("%d file(s), %s", len(files), humanize.IBytes(uint64(total)))))
	return nil
}
