package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func logsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Read or clear the daemon's log file",
	}
	cmd.AddCommand(logsReadCmd(), logsClearCmd())
	return cmd
}

func logsReadCmd() *cobra.Command {
	var tailN int
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print the daemon's configured log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx, err := newCLIContext(cmd.Context(), false)
			if err != nil {
				return err
			}
			path, ok := cctx.values.Get("logFile")
			if !ok || path == "" {
				return validationErrorf("no logFile configured; run `novafnctl config set logFile <path>`")
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()

			lines := readLines(f)
			start := 0
			if tailN > 0 && len(lines) > tailN {
				start = len(lines) - tailN
			}
			for _, line := range lines[start:] {
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&tailN, "tail", "n", 0, "print only the last N lines (0 = all)")
	return cmd
}

func readLines(f *os.File) []string {
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func logsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Truncate the daemon's configured log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx, err := newCLIContext(cmd.Context(), false)
			if err != nil {
				return err
			}
			path, ok := cctx.values.Get("logFile")
			if !ok || path == "" {
				return validationErrorf("no logFile configured; run `novafnctl config set logFile <path>`")
			}
			return os.Truncate(path, 0)
		},
	}
}
