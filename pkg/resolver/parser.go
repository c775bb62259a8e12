package resolver

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/murphy-project/murphyd/pkg/merr"
)

// ruleFile is the top-level grammar node: zero or more target blocks.
//
//	target network {
//	    depends zone, audio
//	    script lua "return 0"
//	}
//
// A target with no script block is a pure grouping node: UpdateTarget
// treats it as trivially successful, useful for naming a dependency set
// without attaching behaviour to it. Script bodies are quoted string
// literals rather than a raw balanced-brace block — the original rule
// file format embeds source between braces directly, but a simple
// token lexer cannot balance nested braces reliably, so this grammar
// asks for the source pre-quoted instead.
type ruleFile struct {
	Targets []*targetDecl `@@*`
}

type targetDecl struct {
	Name    string      `"target" @Ident "{"`
	Depends []string    `("depends" @Ident ("," @Ident)*)?`
	Script  *scriptDecl `@@? "}"`
}

type scriptDecl struct {
	Tag    string `"script" @Ident`
	Source string `@String`
}

var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "String", Pattern: `"(\\.|[^"])*"`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.\-]*`},
	{Name: "Punct", Pattern: `[{}[\],]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var ruleParser = participle.MustBuild[ruleFile](
	participle.Lexer(ruleLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
)

// ParseRules parses a rule file's source text into ParsedTarget values
// ready for Link. ErrSchemaInvalid wraps any grammar or lex error.
func ParseRules(source string) ([]ParsedTarget, error) {
	file, err := ruleParser.ParseString("", source)
	if err != nil {
		return nil, fmt.Errorf("resolver: %w: %v", merr.ErrSchemaInvalid, err)
	}

	out := make([]ParsedTarget, 0, len(file.Targets))
	for _, td := range file.Targets {
		pt := ParsedTarget{Name: td.Name, Depends: td.Depends}
		if td.Script != nil {
			pt.Script = &ScriptRef{Tag: td.Script.Tag, Source: td.Script.Source}
		}
		out = append(out, pt)
	}
	return out, nil
}
