package calendar

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/dsfg/calendar/internal/model"
)

const (
	typeColumnWidth    = 15
	companyColumnWidth = 28
	titleColumnWidth   = 64
	tbdLabel           = "TBD"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

// RenderText はカレンダーを端末向けのテキストで書き出す。
// 列幅は全角文字を考慮して揃え、イベント種別は種別ごとの色で表示する。
func RenderText(w io.Writer, cal *Calendar) error {
	var b strings.Builder

	title := fmt.Sprintf("Corporate events (%s", cal.View)
	if cal.Month != "" {
		title += " " + cal.Month
	}
	title += fmt.Sprintf(", today %s)", cal.Date)
	b.WriteString(headingStyle.Render(title))
	b.WriteString("\n")

	if cal.Len() == 0 {
		b.WriteString(mutedStyle.Render("No events."))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	writeSection(&b, "Today", cal.Today)
	writeSection(&b, "Upcoming", cal.Upcoming)
	if cal.View == ViewMonth {
		writeSection(&b, "Past", cal.Past)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSection(b *strings.Builder, name string, events []PresentedEvent) {
	b.WriteString("\n")
	b.WriteString(headingStyle.Render(fmt.Sprintf("%s (%d)", name, len(events))))
	b.WriteString("\n")

	if len(events) == 0 {
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render("none"))
		b.WriteString("\n")
		return
	}

	for _, ev := range events {
		date := tbdLabel
		if ev.EventDate != nil {
			date = ev.EventDate.String()
		}

		// 色付けの前に幅を揃える
		typeCell := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ev.Color)).
			Render(fitColumn(string(ev.EventType), typeColumnWidth))

		fmt.Fprintf(b, "  %s  %s  %s  %s\n",
			runewidth.FillRight(date, len(model.DateFormat)),
			typeCell,
			fitColumn(ev.Company, companyColumnWidth),
			runewidth.Truncate(ev.Title, titleColumnWidth, "…"),
		)
	}
}

// fitColumn は表示幅widthに切り詰めたうえで右側を空白で埋める。
func fitColumn(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
