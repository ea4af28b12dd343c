package output

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/vburojevic/pricewatch/internal/domain"
)

// WriteSummaryTable renders the end-of-session summary.
func WriteSummaryTable(w io.Writer, snap domain.Snapshot, now time.Time) error {
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")

	rows := [][]string{
		{"Session", orDash(snap.SessionID)},
		{"Status", string(snap.Status)},
		{"Target", orDash(snap.Target)},
		{"Start price", priceOrDash(snap.StartValue)},
		{"Last price", priceOrDash(snap.LastValue)},
		{"Change", changeOf(snap)},
		{"Checks", strconv.Itoa(snap.CheckCount)},
		{"Drops", strconv.Itoa(snap.Drops)},
		{"Rises", strconv.Itoa(snap.Rises)},
		{"Failed fetches", strconv.Itoa(snap.Failures)},
		{"Duration", snap.Duration(now).Round(time.Second).String()},
	}
	if snap.Error != "" {
		rows = append(rows, []string{"Error", snap.Error})
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func priceOrDash(p *domain.Price) string {
	if p == nil {
		return "-"
	}
	return p.String()
}

func changeOf(snap domain.Snapshot) string {
	if snap.StartValue == nil || snap.LastValue == nil {
		return "-"
	}
	d := *snap.LastValue - *snap.StartValue
	if d > 0 {
		return "+" + d.String()
	}
	return d.String()
}
