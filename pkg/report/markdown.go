package report

import (
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"dev/bravebird/ui-verify/pkg/models"
)

// MarkdownWriter renders a finished run as a Markdown document
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write outputs the run result in Markdown format.
func (w *MarkdownWriter) Write(result *models.RunResult) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeAlert(md, result)
	w.writePages(md, result)
	w.writeWarnings(md, result)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *models.RunResult) {
	md.H1("UI Verification: " + result.Scenario)
	md.PlainText("")

	login := "yes"
	if result.LoginAssumed {
		login = "assumed (redirect timed out)"
	} else if !result.LoggedIn {
		login = "no"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + result.RunID + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", strconv.FormatInt(result.TotalDuration, 10) + " ms"},
			{"Logged in", login},
			{"Pages", strconv.Itoa(len(result.Pages))},
			{"Status", statusText(result.Status)},
		},
	})
	md.PlainText("")
}

func statusText(s models.RunStatus) string {
	switch s {
	case models.StatusSuccess:
		return "✅ Success"
	case models.StatusWarning:
		return "⚠️ Completed with warnings"
	case models.StatusFailed:
		return "❌ Failed"
	case models.StatusCanceled:
		return "Canceled"
	default:
		return string(s)
	}
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *models.RunResult) {
	switch {
	case result.Status == models.StatusFailed:
		md.Cautionf("Verification failed: %s", result.ErrorMessage)
	case len(result.Warnings) > 0:
		md.Warningf("%d expected value(s) did not match.", len(result.Warnings))
	default:
		md.Tip("Every page rendered as expected.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, result *models.RunResult) {
	md.H2("Pages")
	md.PlainText("")

	if len(result.Pages) == 0 {
		md.PlainText("No pages were visited.")
		md.PlainText("")
		return
	}

	for _, page := range result.Pages {
		md.H3(page.Name)
		md.PlainText("")

		screenshot := "-"
		if page.ScreenshotPath != "" {
			screenshot = "`" + filepath.Base(page.ScreenshotPath) + "`"
		}
		md.BulletList(
			"URL: "+page.URL,
			"Screenshot: "+screenshot,
			"Duration: "+strconv.FormatInt(page.Duration, 10)+" ms",
		)
		md.PlainText("")

		if len(page.Observations) == 0 {
			continue
		}

		rows := make([][]string, len(page.Observations))
		for i, obs := range page.Observations {
			check := "ok"
			if obs.Warning != "" {
				check = "mismatch"
			}
			rows[i] = []string{obs.Label, string(obs.Kind), truncateString(observedValue(obs), 60), check}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Probe", "Kind", "Value", "Check"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeWarnings(md *markdown.Markdown, result *models.RunResult) {
	if len(result.Warnings) == 0 {
		return
	}
	md.H2("Warnings")
	md.PlainText("")
	md.BulletList(result.Warnings...)
	md.PlainText("")
}

func observedValue(obs models.Observation) string {
	switch obs.Kind {
	case models.ProbeTexts:
		return strings.Join(obs.Values, ", ")
	case models.ProbeCount:
		return strconv.Itoa(obs.Count)
	}
	if obs.Value == "" {
		return "-"
	}
	// Table cells cannot span lines
	return strings.ReplaceAll(obs.Value, "\n", " ")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
