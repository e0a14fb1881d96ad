package util

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/olekukonko/tablewriter"
)

// StdoutRedirected returns true if stdout is redirected to a file or pipe.
func StdoutRedirected() bool {
	if fi, err := os.Stdout.Stat(); err == nil {
		return (fi.Mode() & os.ModeCharDevice) == 0
	}
	return false
}

// PrintTable writes rows under an upper-cased header, aligned in
// borderless columns.
func PrintTable(w io.Writer, header []string, rows [][]string) error {
	buf := &bytes.Buffer{}
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(true)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
	_, err := buf.WriteTo(w)
	return err
}

// MaybePager returns $PAGER, falling back to less if it is installed. It
// returns an empty string when output is redirected.
func MaybePager() string {
	if StdoutRedirected() {
		return ""
	}
	if pager := os.Getenv("PAGER"); pager != "" {
		return pager
	}
	if path, err := exec.LookPath("less"); err == nil {
		return path
	}
	return ""
}

// WithPaging runs f with a writer piped through pager, or with w if pager
// is empty.
func WithPaging(w io.Writer, pager string, f func(io.Writer) error) error {
	if pager == "" {
		return f(w)
	}
	cmd := exec.Command(pager)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to make a pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start pager: %w", err)
	}
	ferr := f(stdin)
	stdin.Close()
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("error running pager: %w", err)
	}
	return ferr
}
