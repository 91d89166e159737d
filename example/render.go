package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/expki/beam"
	"github.com/expki/beam/ngram"
)

var (
	colorAccent  = lipgloss.Color("#2CD7C7")
	colorPrimary = lipgloss.Color("#20B9B4")
	colorBorder  = lipgloss.Color("#16858E")
	colorMuted   = lipgloss.Color("#5C7A84")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Score   lipgloss.Style
	Prompt  lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Label:   lipgloss.NewStyle().Foreground(colorPrimary),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Score:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Width(8).Align(lipgloss.Right),
	Prompt:  lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Bold(true).Foreground(colorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1),
}

func printHeader(info ngram.ModelInfo, cfg beam.Config, prompt string) {
	fmt.Println(styles.Title.Render("beam search"))
	fmt.Println(styles.Muted.Render(fmt.Sprintf(
		"vocabulary %s, bigrams %s, state %s",
		humanize.Comma(int64(info.VocabSize)),
		humanize.Comma(int64(info.Bigrams)),
		humanize.IBytes(uint64(info.StateSize)),
	)))
	fmt.Println(styles.Muted.Render(fmt.Sprintf(
		"%s, beam width %d, max depth %d",
		cfg.SearchStrategy(), cfg.BeamWidth, cfg.MaxDepth,
	)))
	fmt.Println(styles.Label.Render("prompt: ") + styles.Prompt.Render(prompt))
	fmt.Println()
}

// printResults renders the best sequence in a box followed by the n
// highest-ranked results.
func printResults(session *beam.Session, n int) {
	best, err := session.Best()
	if err != nil {
		fmt.Println(styles.Warning.Render("no results"))
		return
	}

	fmt.Println(styles.Box.Render(
		styles.Label.Render(fmt.Sprintf("best (%.2f, %s)", best.ProbSum, best.Reason)) + "\n" + best.Text,
	))
	fmt.Println()

	results := session.Results()
	if n > 0 && len(results) > n {
		results = results[:n]
	}
	var sb strings.Builder
	for _, res := range results {
		sb.WriteString(styles.Score.Render(fmt.Sprintf("(%.2f)", res.ProbSum)))
		sb.WriteString("  ")
		sb.WriteString(res.Text)
		sb.WriteString(styles.Muted.Render(fmt.Sprintf("  [%s, depth %d]", res.Reason, res.Depth)))
		sb.WriteString("\n")
	}
	fmt.Print(sb.String())
	fmt.Println()
}

func printStats(stats beam.Stats) {
	fmt.Println(styles.Muted.Render(fmt.Sprintf(
		"%s results, %s frames expanded, %s pruned, %s snapshots, peak snapshot memory %s",
		humanize.Comma(int64(stats.Results)),
		humanize.Comma(stats.FramesExpanded),
		humanize.Comma(stats.FramesPruned),
		humanize.Comma(stats.SnapshotsCaptured),
		humanize.IBytes(stats.BytesPeak),
	)))
	if stats.EvalFailures > 0 {
		fmt.Println(styles.Warning.Render(fmt.Sprintf("%d branches abandoned", stats.EvalFailures)))
	}
}
