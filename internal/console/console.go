// Package console prints short outcome lines for the CLI.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/alucardeht/specsync/internal/syncer"
	"github.com/alucardeht/specsync/pkg/protocol"
)

type Printer struct {
	w io.Writer

	ok   func(string, ...any) string
	fail func(string, ...any) string
	dim  func(string, ...any) string
	add  func(string, ...any) string
	del  func(string, ...any) string
}

// New colors output only when w is a terminal and NO_COLOR is unset.
func New(w io.Writer) *Printer {
	enabled := false
	if f, ok := w.(*os.File); ok && os.Getenv("NO_COLOR") == "" {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return newPrinter(w, enabled)
}

func newPrinter(w io.Writer, enabled bool) *Printer {
	mk := func(attrs ...color.Attribute) func(string, ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintfFunc()
	}

	return &Printer{
		w:    w,
		ok:   mk(color.FgGreen, color.Bold),
		fail: mk(color.FgRed, color.Bold),
		dim:  mk(color.Faint),
		add:  mk(color.FgGreen),
		del:  mk(color.FgRed),
	}
}

func (p *Printer) Result(r syncer.Result) {
	switch {
	case r.Err != nil:
		fmt.Fprintf(p.w, "%s %s %s\n", p.fail("✗"), p.fail("[%s]", r.Kind), r.Err)
	case r.Changed:
		fmt.Fprintf(p.w, "%s host document updated %s\n", p.ok("✓"), p.dim("(%d bytes, %s)", r.BytesWritten, round(r.Duration)))
	default:
		fmt.Fprintf(p.w, "%s host document already up to date %s\n", p.ok("✓"), p.dim("(%s)", round(r.Duration)))
	}
}

func (p *Printer) Error(err error) {
	fmt.Fprintf(p.w, "%s %s\n", p.fail("✗"), err)
}

func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, "%s\n", fmt.Sprintf(format, args...))
}

// Diff colors the lines of a unified diff.
func (p *Printer) Diff(diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "@@"):
			fmt.Fprint(p.w, p.dim("%s", line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprint(p.w, p.add("%s", line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprint(p.w, p.del("%s", line))
		default:
			fmt.Fprint(p.w, line)
		}
	}
}

func (p *Printer) Status(st protocol.StatusResult) {
	state := p.ok("idle")
	if st.InFlight {
		state = p.ok("syncing")
	}

	fmt.Fprintf(p.w, "watcher pid %d, %s, up %s\n", st.PID, state, round(time.Duration(st.Uptime)*time.Second))
	fmt.Fprintf(p.w, "  url:       %s\n", st.URL)
	fmt.Fprintf(p.w, "  host:      %s\n", st.HostFile)
	fmt.Fprintf(p.w, "  syncs:     %d (%d failed, %d coalesced)\n", st.Syncs, st.Failures, st.Coalesced)
	if st.Pending {
		fmt.Fprintf(p.w, "  pending:   yes\n")
	}
	if st.LastRun != nil {
		fmt.Fprintf(p.w, "  last run:  %s\n", p.run(*st.LastRun))
	}
}

// Runs prints one line per run, newest first.
func (p *Printer) Runs(runs []protocol.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(p.w, p.dim("no recorded runs"))
		return
	}
	for _, r := range runs {
		fmt.Fprintln(p.w, p.run(r))
	}
}

func (p *Printer) run(r protocol.RunSummary) string {
	ts := r.StartedAt.Local().Format("2006-01-02 15:04:05")
	dur := round(time.Duration(r.DurationMs) * time.Millisecond)

	if r.Kind != "" {
		return fmt.Sprintf("%s %s %-11s %s %s", ts, p.fail("✗"), r.Trigger, p.fail("[%s]", r.Kind), r.Error)
	}
	outcome := "unchanged"
	if r.Changed {
		outcome = fmt.Sprintf("updated %d bytes", r.BytesWritten)
	}
	return fmt.Sprintf("%s %s %-11s %s %s", ts, p.ok("✓"), r.Trigger, outcome, p.dim("(%s)", dur))
}

func round(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(100 * time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(time.Millisecond)
	default:
		return d
	}
}
