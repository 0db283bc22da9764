package historical

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var previewHeaders = append([]string{IndexColumn}, CanonicalColumns...)

// PreviewTable renders bars as a bordered text table
func PreviewTable(bars []Bar) string {
	return newPreview().Rows(previewRows(bars)...).String()
}

// PreviewSeries renders the first and last n bars of a series, eliding the
// middle, followed by its dimensions.
func PreviewSeries(s Series, n int) string {
	rows := previewRows(s.Head(n))
	if s.Len() > 2*n {
		ellipsis := make([]string, len(previewHeaders))
		for i := range ellipsis {
			ellipsis[i] = "..."
		}
		rows = append(rows, ellipsis)
		rows = append(rows, previewRows(s.Tail(n).Bars)...)
	} else if s.Len() > n {
		rows = append(rows, previewRows(s.Bars[n:])...)
	}

	return fmt.Sprintf("%s\n[%d rows x %d columns]",
		newPreview().Rows(rows...).String(), s.Len(), len(CanonicalColumns))
}

func newPreview() *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Faint(true)).
		Headers(previewHeaders...)
}

func previewRows(bars []Bar) [][]string {
	rows := make([][]string, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, []string{
			bar.Timestamp.Format(TimeLayout),
			formatPrice(bar.Open),
			formatPrice(bar.High),
			formatPrice(bar.Low),
			formatPrice(bar.Close),
			strconv.FormatFloat(bar.Volume, 'f', 0, 64),
		})
	}
	return rows
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
