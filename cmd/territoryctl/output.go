package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"territory_backend/internal/territory/domain"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.FgHiBlack)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderAudit(w io.Writer, report domain.AuditReport) error {
	table := tablewriter.NewWriter(w)
	table.Header("Check", "Violations", "Sample")

	for _, c := range report.Checks {
		count := okColor.Sprint("0")
		if c.Count > 0 {
			count = failColor.Sprint(strconv.Itoa(c.Count))
		}
		if err := table.Append([]string{c.Name, count, strings.Join(c.Sample, ", ")}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	status := okColor.Sprint("clean")
	if !report.Clean() {
		status = failColor.Sprint("violations found")
	}
	_, err := fmt.Fprintf(w, "%s %s\n", dimColor.Sprintf("audit at %s:", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")), status)
	return err
}

func renderTargets(w io.Writer, targets []domain.Target) error {
	if len(targets) == 0 {
		_, err := fmt.Fprintln(w, dimColor.Sprint("no visible targets"))
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Status", "Specialization")
	for _, t := range targets {
		if err := table.Append([]string{t.ID.String(), t.Name, string(t.Status), t.Specialization}); err != nil {
			return err
		}
	}
	return table.Render()
}
