package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"igstories/pkg/scraper"
)

// ASCIILogo is printed on interactive commands
const ASCIILogo = `
  _             _             _
 (_) __ _   ___| |_ ___  _ __(_) ___  ___
 | |/ _' | / __| __/ _ \| '__| |/ _ \/ __|
 | | (_| | \__ \ || (_) | |  | |  __/\__ \
 |_|\__, | |___/\__\___/|_|  |_|\___||___/
    |___/   story and live replay archiver
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// Output receives everything the Print helpers write
var Output io.Writer = os.Stdout

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

// PrintSummary renders a run summary as label/value lines
func PrintSummary(s scraper.Summary) {
	PrintInfo("Downloaded", fmt.Sprintf("%d (%s)", s.Downloaded, FormatBytes(s.Bytes)))
	PrintInfo("Already present", fmt.Sprintf("%d", s.AlreadyPresent))
	PrintInfo("Skipped", fmt.Sprintf("%d malformed, %d without media", s.SkippedMalformed, s.SkippedNoMedia))
	PrintInfo("Users", fmt.Sprintf("%d fetched, %d failed", s.UsersFetched, s.UsersFailed))
	if s.Archive != "" {
		PrintInfo("Archive", s.Archive)
	}
	PrintInfo("Duration", s.Duration().Round(time.Millisecond).String())

	if s.Failed > 0 {
		PrintWarning(fmt.Sprintf("%d downloads failed", s.Failed))
		for _, msg := range s.Failures {
			fmt.Fprintln(Output, Dim("  "+msg))
		}
	}
}

// FormatBytes renders n with a binary unit
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
