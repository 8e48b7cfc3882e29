package main

import (
	"fmt"

	"github.com/kotolang/koto/bytecode"
)

// Compile turns script source into a bytecode.Chunk. The lexer/parser/
// compiler front end is an external collaborator outside this runtime
// core's scope: this CLI only drives the core (VM, disassembler, host
// API), so Compile is left unset by default and reports that plainly
// rather than faking a parser. An embedder that pairs this runtime with
// a real front end sets Compile at build time.
var Compile func(filename, source string) (*bytecode.Chunk, error)

func compile(filename, source string) (*bytecode.Chunk, error) {
	if Compile == nil {
		return nil, fmt.Errorf("no compiler registered: koto's runtime core does not include a lexer/parser/compiler; pair this CLI with a front end that sets main.Compile")
	}
	return Compile(filename, source)
}
