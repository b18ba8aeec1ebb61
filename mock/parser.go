package mock

import "github.com/fwojciec/optsearch"

var _ optsearch.Parser = (*Parser)(nil)

// Parser is a mock implementation of optsearch.Parser.
type Parser struct {
	ParseFn func(raw string) ([]*optsearch.Option, error)
}

func (p *Parser) Parse(raw string) ([]*optsearch.Option, error) {
	return p.ParseFn(raw)
}
