package mock

import "github.com/fwojciec/calregs"

var _ calregs.Converter = (*Converter)(nil)

// Converter is a mock implementation of calregs.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
