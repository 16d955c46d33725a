package tracefile

import (
	"bufio"
	"fmt"
	"io"
)

// Dump writes every remaining window of r as text, one record per line,
// each window introduced by a comment line.
func Dump(out io.Writer, r *Reader) error {
	w := bufio.NewWriter(out)
	h := r.Header()
	fmt.Fprintf(w, "# core %d codec %s version %d\n", h.Core, h.Codec, h.Version)
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = w.Flush()
			return err
		}
		fmt.Fprintf(w, "# window %d first %d records %d digest %s\n",
			e.Window.Index, e.Window.FirstInstruction, len(e.Window.Records), e.Digest.Short())
		for _, rec := range e.Window.Records {
			fmt.Fprintln(w, rec.String())
		}
	}
	return w.Flush()
}
