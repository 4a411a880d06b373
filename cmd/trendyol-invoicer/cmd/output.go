package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rezonia/trendyol-invoicer/internal/processor"
)

func checkFormat() error {
	switch outputFormat {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// ReportOutput is the JSON shape of a run or check report
type ReportOutput struct {
	RunID   string          `json:"run_id"`
	DryRun  bool            `json:"dry_run"`
	Results []ResultOutput  `json:"results"`
	Stats   processor.Stats `json:"stats"`
}

// ResultOutput is one order in a report
type ResultOutput struct {
	OrderID       int64  `json:"order_id"`
	OrderNumber   string `json:"order_number,omitempty"`
	Outcome       string `json:"outcome"`
	Reason        string `json:"reason,omitempty"`
	Total         string `json:"total,omitempty"`
	Declared      string `json:"declared,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	InvoiceLink   string `json:"invoice_link,omitempty"`
	Error         string `json:"error,omitempty"`
	DurationMS    int64  `json:"duration_ms"`
}

func toResultOutput(r *processor.Result) ResultOutput {
	out := ResultOutput{
		OrderID:     r.OrderID,
		OrderNumber: r.OrderNumber,
		Outcome:     string(r.Outcome),
		Reason:      r.Reason,
		DurationMS:  r.Duration.Milliseconds(),
	}
	if r.Reconciliation != nil {
		out.Total = r.Reconciliation.Computed.StringFixed(2)
		out.Declared = r.Reconciliation.Declared.StringFixed(2)
	} else if r.Payload != nil {
		out.Total = r.Payload.Total().StringFixed(2)
	}
	if r.Invoice != nil {
		out.InvoiceNumber = r.Invoice.SeriesName + r.Invoice.Number.String()
		out.InvoiceLink = r.Invoice.Link
	}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return out
}

func outputReport(report *processor.Report) error {
	if outputFormat == "json" {
		out := ReportOutput{
			RunID:   report.RunID,
			DryRun:  report.DryRun,
			Results: make([]ResultOutput, 0, len(report.Results)),
			Stats:   report.Stats,
		}
		for _, r := range report.Results {
			out.Results = append(out.Results, toResultOutput(r))
		}
		return outputJSON(os.Stdout, out)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tNUMBER\tOUTCOME\tTOTAL\tDECLARED\tINVOICE\tDETAIL")
	fmt.Fprintln(tw, "-----\t------\t-------\t-----\t--------\t-------\t------")
	for _, r := range report.Results {
		out := toResultOutput(r)
		detail := out.Reason
		if out.Error != "" {
			detail = "ERROR: " + out.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			out.OrderID, out.OrderNumber, out.Outcome, out.Total, out.Declared, out.InvoiceNumber, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	printStats(os.Stdout, report)
	return nil
}

func printStats(w io.Writer, report *processor.Report) {
	s := report.Stats
	fmt.Fprintln(w)
	if report.DryRun {
		fmt.Fprintln(w, "Dry run: nothing was issued or recorded")
	}
	fmt.Fprintf(w, "Run:              %s\n", report.RunID)
	fmt.Fprintf(w, "Orders:           %d\n", s.Total)
	fmt.Fprintf(w, "Processable:      %d\n", s.Ready+s.Submitted)
	fmt.Fprintf(w, "Submitted:        %d\n", s.Submitted)
	fmt.Fprintf(w, "Relinked:         %d\n", s.Relinked)
	fmt.Fprintf(w, "Already invoiced: %d\n", s.AlreadyInvoiced())

	outcomes := make([]string, 0, len(s.Skipped))
	for o := range s.Skipped {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-22s %d\n", o, s.Skipped[processor.Outcome(o)])
	}

	fmt.Fprintf(w, "Errors:           %d\n", s.Failed)
	fmt.Fprintf(w, "Price mismatches: %d\n", s.Mismatches)
}
