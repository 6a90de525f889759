package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/jkindrix/draftwise/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	colorGreen  = lipgloss.Color("#8ec07c")
	colorYellow = lipgloss.Color("#fabd2f")
	colorRed    = lipgloss.Color("#fb4934")
	colorBlue   = lipgloss.Color("#83a598")
	colorPurple = lipgloss.Color("#d3869b")
	colorDim    = lipgloss.Color("#928374")
	colorFg     = lipgloss.Color("#ebdbb2")
	colorHeader = lipgloss.Color("#fe8019")
)

var (
	styleGreen  = lipgloss.NewStyle().Foreground(colorGreen)
	styleYellow = lipgloss.NewStyle().Foreground(colorYellow)
	styleRed    = lipgloss.NewStyle().Foreground(colorRed)
	styleBlue   = lipgloss.NewStyle().Foreground(colorBlue)
	stylePurple = lipgloss.NewStyle().Foreground(colorPurple)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleFg     = lipgloss.NewStyle().Foreground(colorFg)
	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
)

// draftwiseHuhTheme returns a huh theme using the client palette.
func draftwiseHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	// Focused state: orange accent
	t.Focused.Title = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(colorDim)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(colorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(colorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(colorFg)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(colorFg).Background(colorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(colorRed)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(colorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(colorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(colorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(colorDim)

	// Blurred state: dimmed
	t.Blurred.Title = lipgloss.NewStyle().Foreground(colorDim)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(colorDim)
	t.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(colorDim)
	t.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(colorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(colorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(colorDim)

	return t
}

// printer writes either styled or plain text.
type printer struct {
	styled bool
}

func (p printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

// entry formats one transcript entry.
func (p printer) entry(e domain.TranscriptEntry) string {
	if e.Speaker == domain.SpeakerUser {
		return p.render(styleDim, "You: ") + e.Text
	}
	label := p.render(stylePurple, "draftwise: ")
	switch e.Kind {
	case domain.EntryFeedback:
		return label + p.render(styleYellow, e.Text)
	case domain.EntryNotice:
		return label + p.render(styleDim, e.Text)
	case domain.EntryConfirmation:
		return label + p.render(styleFg, e.Text)
	default:
		return label + e.Text
	}
}

// generation formats a stored generation with its metadata header.
func (p printer) generation(g *domain.Generation) string {
	var b strings.Builder
	b.WriteString(p.render(styleHeader, g.ContentType.Label()))
	b.WriteString("\n")
	b.WriteString(p.render(styleDim, fmt.Sprintf("id %s  tone %s  words %d  created %s",
		g.ID, g.Tone, g.WordLimit, g.CreatedAt.Format("2006-01-02 15:04"))))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(g.GeneratedContent))
	b.WriteString("\n")
	return b.String()
}

// affordanceHint lists the commands available while confirming.
func (p printer) affordanceHint(keys []string) string {
	var b strings.Builder
	b.WriteString(p.render(styleGreen, "/done"))
	b.WriteString(" to generate")
	if len(keys) > 0 {
		b.WriteString(", ")
		b.WriteString(p.render(styleBlue, "/edit <key>"))
		b.WriteString(" to revise (")
		b.WriteString(strings.Join(keys, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (p printer) errorLine(err error) string {
	return p.render(styleRed, "Error: "+err.Error())
}

// table renders an aligned table with a header separator line. Widths are
// measured with lipgloss so styled cells line up.
func (p printer) table(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	const colGap = 2
	cols := len(headers)
	widths := make([]int, cols)
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < cols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style *lipgloss.Style) {
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := widths[i] - lipgloss.Width(cell)
			if style != nil {
				cell = p.render(*style, cell)
			}
			b.WriteString(cell)
			if i < cols-1 {
				b.WriteString(strings.Repeat(" ", max(pad, 0)+colGap))
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers, &styleHeader)
	sep := make([]string, cols)
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep, &styleDim)
	for _, row := range rows {
		writeRow(row, nil)
	}
	return b.String()
}
