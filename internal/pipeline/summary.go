package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/JakeFAU/iconsync/internal/model"
)

// Summary is the outcome of one run.
type Summary struct {
	RunID    string
	Results  []model.ProcessResult
	Started  time.Time
	Finished time.Time
}

// Failures counts the failed collections.
func (s Summary) Failures() int {
	n := 0
	for _, r := range s.Results {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Icons sums the exported icons across collections.
func (s Summary) Icons() int {
	n := 0
	for _, r := range s.Results {
		n += r.IconCount
	}
	return n
}

// Print writes one line per collection.
func (s Summary) Print(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "\nProcessing Summary:"); err != nil {
		return err
	}
	for _, r := range s.Results {
		var err error
		if r.Failed() {
			_, err = fmt.Fprintf(w, "- %s: Failed - %s\n", r.Collection, r.Error)
		} else {
			_, err = fmt.Fprintf(w, "- %s: Processed %d icons\n", r.Collection, r.IconCount)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
