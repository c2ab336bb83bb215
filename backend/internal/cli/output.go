package cli

import (
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"smart-led-controller/backend/pkg/utils"
)

// output writes either JSON or locale-formatted text.
type output struct {
	json bool
	w    io.Writer
	p    *message.Printer
}

func (o *RootOptions) output(cmd *cobra.Command) *output {
	return &output{
		json: o.Format == "json",
		w:    cmd.OutOrStdout(),
		p:    message.NewPrinter(language.English),
	}
}

// emit writes v as JSON, or calls text when the format is text.
func (o *output) emit(v any, text func()) error {
	if o.json {
		return utils.ToJSONStream(o.w, v)
	}
	text()
	return nil
}

func (o *output) printf(format string, args ...any) {
	o.p.Fprintf(o.w, format, args...)
}
