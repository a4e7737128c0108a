package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/spice-ingest/internal/keypool"
	"github.com/Veraticus/spice-ingest/internal/model"
	"github.com/Veraticus/spice-ingest/internal/pipeline"
)

// table lays out rows under headers with aligned columns.
func table(headers []string, rows [][]string, styleRow func(i int) lipgloss.Style) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = cellStyle.Width(widths[i] + 2).Render(cell)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	lines := []string{headerStyle.Render(line(headers, plainStyle))}
	for i, row := range rows {
		lines = append(lines, line(row, styleRow(i)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderResponse renders parsed transactions as a table followed by review
// notes and parse details.
func RenderResponse(resp pipeline.Response) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(moneyIcon + " " + resp.AnalysisSummary))
	b.WriteString("\n")

	if len(resp.Transactions) > 0 {
		rows := make([][]string, len(resp.Transactions))
		for i, t := range resp.Transactions {
			date := "-"
			if t.Date != nil {
				date = t.Date.Format("2006-01-02")
			}
			status := okIcon
			if t.IsUnusual {
				status = reviewIcon
			}
			rows[i] = []string{
				fmt.Sprintf("%d", i+1),
				status,
				string(t.Type),
				t.Description,
				typeStyle(t.Type).Render(model.FormatVND(t.Amount) + "đ"),
				orDash(t.CategoryID),
				date,
				fmt.Sprintf("%.0f%%", t.Confidence*100),
			}
		}
		b.WriteString(table(
			[]string{"#", "", "Type", "Description", "Amount", "Category", "Date", "Conf."},
			rows,
			func(i int) lipgloss.Style {
				if resp.Transactions[i].IsUnusual {
					return reviewStyle
				}
				return plainStyle
			}))
		b.WriteString("\n")
	}

	for i, t := range resp.Transactions {
		for _, reason := range t.UnusualReasons {
			b.WriteString("\n")
			b.WriteString(FormatWarning(fmt.Sprintf("#%d %s", i+1, reason)))
		}
	}

	meta := resp.Metadata
	details := fmt.Sprintf("strategy=%s quality=%s model=%s/%s cache_hit=%t took=%s",
		meta.Parse.Strategy, meta.Parse.ParsingQuality, meta.Provider, meta.Model,
		meta.CacheHit, meta.ProcessingTime.Round(time.Millisecond))
	if meta.Recorded > 0 {
		details += fmt.Sprintf(" recorded=%d", meta.Recorded)
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(details))

	if len(meta.Parse.Issues) > 0 {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("issues: " + strings.Join(meta.Parse.Issues, "; ")))
	}
	return b.String()
}

// RenderStats renders a reason breakdown, most frequent first.
func RenderStats(total, unusual int, breakdown map[string]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d transactions, %d need review", total, unusual)

	keys := make([]string, 0, len(breakdown))
	for k := range breakdown {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if breakdown[keys[i]] != breakdown[keys[j]] {
			return breakdown[keys[i]] > breakdown[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %-18s %d", k, breakdown[k])
	}
	return renderBox("Summary", b.String())
}

// RenderKeyStatus renders the pool snapshot.
func RenderKeyStatus(st keypool.Status) string {
	rows := make([][]string, len(st.Keys))
	for i, k := range st.Keys {
		state := "ready"
		switch {
		case !k.Active:
			state = "disabled"
		case k.CooldownRemaining > 0:
			state = "cooldown " + k.CooldownRemaining.Round(time.Second).String()
		case !k.Available:
			state = "window full"
		}
		rows[i] = []string{
			k.ID,
			k.MaskedSecret,
			fmt.Sprintf("%d/%d", k.Requests, k.Limit),
			fmt.Sprintf("%d", k.ConsecutiveFailures),
			state,
		}
	}

	body := table([]string{"Key", "Secret", "Window", "Failures", "State"}, rows, func(i int) lipgloss.Style {
		k := st.Keys[i]
		switch {
		case !k.Active:
			return errorStyle
		case !k.Available:
			return reviewStyle
		default:
			return okStyle
		}
	})

	summary := fmt.Sprintf("%d keys: %d available, %d cooling down, %d disabled, %d queued",
		st.Total, st.Available, st.CoolingDown, st.Disabled, st.QueueLength)
	return renderBox(keyIcon+" Credential pool", lipgloss.JoinVertical(lipgloss.Left, body, "", mutedStyle.Render(summary)))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
