/*
Package cli provides helpers shared by the ganymede command tree: typed
command errors with exit-code mapping, output formatting, boot step
reporting, and shutdown signal handling.

Exit Codes:

Command failures map to process exit codes so scripts can branch on the
failure class:

	err := run()
	os.Exit(cli.ExitCode(err))

Configuration rejections exit 2, an unreachable admin endpoint exits 3, a
failed process lifecycle command propagates the command's own status, and
anything else exits 1.

Output Formatting:

Commands that print structured results (drift reports, status) support
text and JSON output:

	f := cli.NewFormatter(cli.FormatJSON)
	if err := f.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// ctx is cancelled on the first shutdown signal
*/
package cli
