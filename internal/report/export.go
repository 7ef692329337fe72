package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gatebench/internal/runner"
)

// ExportCSV writes one row per upload attempt across all runs.
// Schema: run,worker,kind,success,elapsedMs,responseCode,failureMessage,responseBody
func ExportCSV(results []runner.RunResult, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"run", "worker", "kind", "success", "elapsedMs",
		"responseCode", "failureMessage", "responseBody",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		for _, o := range res.Outcomes {
			errMsg := ""
			if o.Err != nil {
				errMsg = o.Err.Error()
			}

			record := []string{
				strconv.Itoa(res.Run),
				fmt.Sprintf("%03d", o.Worker),
				o.Kind.String(),
				strconv.FormatBool(o.OK()),
				strconv.FormatInt(o.Elapsed.Milliseconds(), 10),
				strconv.Itoa(o.Status),
				errMsg,
				o.Body,
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
