package report

import (
	"fmt"
	"time"

	"github.com/gingfrederik/docx"
)

// WriteDOCX saves r as a Word document for sharing with the API provider.
func WriteDOCX(path string, r Report) error {
	f := docx.NewFile()

	title := f.AddParagraph().AddText("Property Discovery Reconciliation")
	title.Size(20)
	f.AddParagraph()

	f.AddParagraph().AddText(fmt.Sprintf("Distinct entities discovered: %d", r.Total))
	if r.Expected != nil {
		p := f.AddParagraph()
		if r.Reached {
			run := p.AddText(fmt.Sprintf("Expected: %d (reached)", *r.Expected))
			run.Color("008000")
		} else {
			run := p.AddText(fmt.Sprintf("Expected: %d, shortfall: %d", *r.Expected, r.Shortfall))
			run.Color("C00000")
		}
	}
	meta := f.AddParagraph().AddText(fmt.Sprintf("Strategies executed: %d | Dropped without id: %d | Duration: %s",
		r.Executed, r.Dropped, r.Duration.Round(time.Second)))
	meta.Size(10)
	meta.Color("808080")

	f.AddParagraph()
	f.AddParagraph().AddText("Unique yield by strategy").Size(16)
	for _, y := range r.Ranked {
		run := f.AddParagraph().AddText(fmt.Sprintf("%s: %d new of %d returned", y.Label, y.Yield, y.Fetched))
		if y.Failed {
			run.Color("C00000")
		} else if y.Yield == 0 {
			run.Color("808080")
		}
	}

	if len(r.Failures) > 0 {
		f.AddParagraph()
		f.AddParagraph().AddText("Failed strategies").Size(16)
		for _, fl := range r.Failures {
			status := "no status"
			if fl.Status != 0 {
				status = fmt.Sprintf("HTTP %d", fl.Status)
			}
			f.AddParagraph().AddText(fmt.Sprintf("%s: %s, %d attempt(s): %s", fl.Label, status, fl.Attempts, fl.Message))
		}
	}

	return f.Save(path)
}
