package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/screenscout/screenscout/internal/device"
)

var (
	scanTableHeaders     = []string{"Name", "Address", "Brand", "Kind", "Model", "Method"}
	registryTableHeaders = []string{"Name", "Address", "Brand", "Model", "First Seen"}
)

// renderTable renders headers and rows as a rounded terminal table.
func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// scanTableRows maps discovered devices to scan summary rows.
func scanTableRows(devices []*device.Device) [][]string {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{
			d.DisplayName(),
			d.Addr,
			d.Brand.Title(),
			device.KindOf(d.DisplayName(), d.ServiceType).String(),
			d.Model,
			d.Method.String(),
		})
	}
	return rows
}

// registryTableRows maps saved devices to registry listing rows.
func registryTableRows(devices []*device.Device) [][]string {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		firstSeen := ""
		if !d.FirstSeen.IsZero() {
			firstSeen = d.FirstSeen.Format("2006-01-02")
		}
		rows = append(rows, []string{
			d.DisplayName(),
			d.Addr,
			d.Brand.Title(),
			d.Model,
			firstSeen,
		})
	}
	return rows
}
