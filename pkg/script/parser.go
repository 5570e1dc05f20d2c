// SPDX-License-Identifier: MPL-2.0

package script

import (
	"fmt"
	"slices"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/addon"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/loader"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgdesc"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/platform"
)

type (
	condSpec struct {
		kind  CondKind
		nargs int
		// word means the operand is a bare word (or string) checked by
		// validate at parse time rather than a substitutable value.
		word     bool
		validate func(string) error
	}

	parser struct {
		toks   []Token
		pos    int
		parsed *Parsed
	}
)

var condTable = map[string]condSpec{
	"version":       {kind: CondVersion, nargs: 1},
	"feature":       {kind: CondFeature, nargs: 1},
	"value":         {kind: CondValue, nargs: 2},
	"language":      {kind: CondLanguage, nargs: 1},
	"defined":       {kind: CondDefined, nargs: 1, word: true},
	"modloader":     {kind: CondModloader, nargs: 1, word: true},
	"plugin_loader": {kind: CondPluginLoader, nargs: 1, word: true},
	"side": {kind: CondSide, nargs: 1, word: true, validate: func(s string) error {
		_, err := loader.ParseSide(s)
		return err
	}},
	"os": {kind: CondOS, nargs: 1, word: true, validate: func(s string) error {
		_, err := platform.ParseOSCondition(s)
		return err
	}},
	"arch": {kind: CondArch, nargs: 1, word: true, validate: func(s string) error {
		_, err := platform.ParseArchCondition(s)
		return err
	}},
	"stability": {kind: CondStability, nargs: 1, word: true, validate: func(s string) error {
		_, err := pkgdesc.ParseStability(s)
		return err
	}},
}

// LexAndParse lexes and parses a package script.
func LexAndParse(src string) (*Parsed, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	return Parse(toks)
}

// Parse builds the routine table from tokens. Comment tokens are ignored.
func Parse(tokens []Token) (*Parsed, error) {
	p := &parser{parsed: newParsed()}
	for _, t := range tokens {
		if t.Kind != TokComment {
			p.toks = append(p.toks, t)
		}
	}

	if err := p.parseTop(); err != nil {
		return nil, err
	}
	if err := p.checkCalls(); err != nil {
		return nil, err
	}
	if err := p.checkRecursion(); err != nil {
		return nil, err
	}
	return p.parsed, nil
}

func (p *parser) peek() Token {
	return p.peekAt(0)
}

func (p *parser) peekAt(n int) Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	eof := Token{Kind: TokEOF, Pos: Pos{Line: 1, Col: 1}}
	if len(p.toks) > 0 {
		eof.Pos = p.toks[len(p.toks)-1].Pos
	}
	return eof
}

func (p *parser) advance() Token {
	t := p.peek()
	if t.Kind != TokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isWord(word string) bool {
	t := p.peek()
	return t.Kind == TokIdent && t.Text == word
}

func (p *parser) errorf(t Token, format string, args ...any) error {
	return &ParseError{Pos: t.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected(t Token) error {
	return p.errorf(t, "unexpected %s", t)
}

func (p *parser) expect(kind TokenKind, what string) (Token, error) {
	t := p.advance()
	if t.Kind != kind {
		return t, p.errorf(t, "expected %s, found %s", what, t)
	}
	return t, nil
}

func (p *parser) parseTop() error {
	def := p.parsed.Routines[RoutineDefault]
	for {
		t := p.peek()
		switch {
		case t.Kind == TokEOF:
			return nil
		case t.Kind == TokAt:
			p.advance()
			name, err := p.expect(TokIdent, "routine name")
			if err != nil {
				return err
			}
			if err := p.parseRoutine(name); err != nil {
				return err
			}
		case t.Kind == TokIdent && p.peekAt(1).Kind == TokLCurly && specsByName[t.Text] == nil && t.Text != "else":
			p.advance()
			if err := p.parseRoutine(t); err != nil {
				return err
			}
		case t.Kind == TokRCurly:
			return p.unexpected(t)
		default:
			instr, err := p.parseInstruction()
			if err != nil {
				return err
			}
			p.parsed.Blocks[def].Instructions = append(p.parsed.Blocks[def].Instructions, instr)
		}
	}
}

func (p *parser) parseRoutine(name Token) error {
	if _, exists := p.parsed.Routines[name.Text]; exists {
		return p.errorf(name, "redefinition of routine %q", name.Text)
	}
	if _, err := p.expect(TokLCurly, "'{'"); err != nil {
		return err
	}
	id := p.parsed.newBlock()
	p.parsed.Routines[name.Text] = id
	return p.parseBlockBody(id)
}

// parseBlockBody parses instructions up to and including the closing '}'.
func (p *parser) parseBlockBody(id BlockID) error {
	for {
		t := p.peek()
		switch t.Kind {
		case TokRCurly:
			p.advance()
			return nil
		case TokEOF:
			return p.errorf(t, "unterminated block")
		case TokAt:
			return p.errorf(t, "routines cannot be declared inside a block")
		}
		instr, err := p.parseInstruction()
		if err != nil {
			return err
		}
		block := p.parsed.Blocks[id]
		block.Instructions = append(block.Instructions, instr)
	}
}

// endInstruction consumes a ';'. The ';' may be left out right before '}'.
func (p *parser) endInstruction(name string) error {
	t := p.peek()
	switch t.Kind {
	case TokSemicolon:
		p.advance()
		return nil
	case TokRCurly:
		return nil
	default:
		return p.errorf(t, "expected ';' after %s, found %s", name, t)
	}
}

func (p *parser) atInstructionEnd() bool {
	k := p.peek().Kind
	return k == TokSemicolon || k == TokRCurly || k == TokEOF
}

func (p *parser) parseInstruction() (Instruction, error) {
	t := p.advance()
	if t.Kind != TokIdent {
		return Instruction{}, p.unexpected(t)
	}

	switch t.Text {
	case "if":
		return p.parseIf(t)
	case "else":
		return Instruction{}, p.errorf(t, "'else' used without if block")
	case "require":
		return p.parseRequire(t)
	case "addon":
		return p.parseAddon(t)
	case "set":
		return p.parseSet(t)
	case "call":
		return p.parseCall(t)
	case "fail":
		return p.parseFail(t)
	case "finish":
		return Instruction{Kind: InstrFinish, Pos: t.Pos}, p.endInstruction(t.Text)
	case "recommend":
		return p.parseRecommend(t)
	}

	spec, ok := specsByName[t.Text]
	if !ok {
		return Instruction{}, p.errorf(t, "unknown instruction %q", t.Text)
	}

	instr := Instruction{Kind: spec.kind, Pos: t.Pos}
	for !p.atInstructionEnd() {
		arg := p.advance()
		switch {
		case arg.Kind == TokStr || arg.Kind == TokNum:
			instr.Args = append(instr.Args, Const(arg.Text))
		case arg.Kind == TokVariable:
			instr.Args = append(instr.Args, Var(arg.Text))
		case arg.Kind == TokIdent && spec.words:
			instr.Args = append(instr.Args, Const(arg.Text))
		default:
			return Instruction{}, p.unexpected(arg)
		}
	}
	if len(instr.Args) < spec.minArgs || (spec.maxArgs != unbounded && len(instr.Args) > spec.maxArgs) {
		return Instruction{}, p.errorf(t, "wrong number of arguments for %s: %d", t.Text, len(instr.Args))
	}
	return instr, p.endInstruction(t.Text)
}

// parseValue parses a substitutable operand: a string, number or variable.
func (p *parser) parseValue() (Value, error) {
	t := p.advance()
	switch t.Kind {
	case TokStr, TokNum:
		return Const(t.Text), nil
	case TokVariable:
		return Var(t.Text), nil
	default:
		return Value{}, p.unexpected(t)
	}
}

// parseWord parses a bare identifier or a string.
func (p *parser) parseWord() (Token, error) {
	t := p.advance()
	if t.Kind != TokIdent && t.Kind != TokStr {
		return t, p.unexpected(t)
	}
	return t, nil
}

func (p *parser) parseSet(t Token) (Instruction, error) {
	name, err := p.expect(TokIdent, "variable name")
	if err != nil {
		return Instruction{}, err
	}
	v, err := p.parseValue()
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{Kind: InstrSet, Pos: t.Pos, Name: name.Text, Args: []Value{v}}, p.endInstruction(t.Text)
}

func (p *parser) parseCall(t Token) (Instruction, error) {
	name, err := p.expect(TokIdent, "routine name")
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{Kind: InstrCall, Pos: t.Pos, Name: name.Text}, p.endInstruction(t.Text)
}

func (p *parser) parseFail(t Token) (Instruction, error) {
	instr := Instruction{Kind: InstrFail, Pos: t.Pos}
	if !p.atInstructionEnd() {
		word, err := p.expect(TokIdent, "fail reason")
		if err != nil {
			return Instruction{}, err
		}
		reason, ok := ParseFailReason(word.Text)
		if !ok {
			return Instruction{}, p.errorf(word, "unknown fail reason %q", word.Text)
		}
		instr.Reason = reason
	}
	return instr, p.endInstruction(t.Text)
}

func (p *parser) parseRecommend(t Token) (Instruction, error) {
	instr := Instruction{Kind: InstrRecommend, Pos: t.Pos}
	if p.peek().Kind == TokBang || p.isWord("not") {
		p.advance()
		instr.Invert = true
	}
	v, err := p.parseValue()
	if err != nil {
		return Instruction{}, err
	}
	instr.Args = []Value{v}
	return instr, p.endInstruction(t.Text)
}

func (p *parser) parseIf(t Token) (Instruction, error) {
	cond, err := p.parseCondition()
	if err != nil {
		return Instruction{}, err
	}
	block, err := p.parseNestedBlock()
	if err != nil {
		return Instruction{}, err
	}
	instr := Instruction{Kind: InstrIf, Pos: t.Pos, Cond: cond, Block: block}

	for p.isWord("else") {
		p.advance()
		var elseCond *Condition
		if p.isWord("if") {
			p.advance()
			if elseCond, err = p.parseCondition(); err != nil {
				return Instruction{}, err
			}
		}
		id, err := p.parseNestedBlock()
		if err != nil {
			return Instruction{}, err
		}
		instr.Else = append(instr.Else, ElseBlock{Cond: elseCond, Block: id})
		if elseCond == nil {
			break
		}
	}
	return instr, nil
}

func (p *parser) parseNestedBlock() (BlockID, error) {
	if _, err := p.expect(TokLCurly, "'{'"); err != nil {
		return 0, err
	}
	id := p.parsed.newBlock()
	return id, p.parseBlockBody(id)
}

// parseCondition parses "or" chains of "and" chains of unary conditions,
// all left-associative.
func (p *parser) parseCondition() (*Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isWord("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Condition{Kind: CondOr, Operands: []*Condition{left, right}}
	}
	return left, nil
}

func (p *parser) parseAnd() (*Condition, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isWord("and") {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Condition{Kind: CondAnd, Operands: []*Condition{left, right}}
	}
	return left, nil
}

func (p *parser) parseUnary() (*Condition, error) {
	if p.isWord("not") || p.peek().Kind == TokBang {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Condition{Kind: CondNot, Operands: []*Condition{operand}}, nil
	}

	t := p.advance()
	if t.Kind != TokIdent {
		return nil, p.errorf(t, "expected condition, found %s", t)
	}
	spec, ok := condTable[t.Text]
	if !ok {
		return nil, p.errorf(t, "unknown condition %q", t.Text)
	}

	cond := &Condition{Kind: spec.kind}
	for range spec.nargs {
		if !spec.word {
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			cond.Args = append(cond.Args, v)
			continue
		}
		w, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		if spec.validate != nil {
			if err := spec.validate(w.Text); err != nil {
				return nil, p.errorf(w, "invalid argument for %s condition: %v", t.Text, err)
			}
		}
		cond.Args = append(cond.Args, Const(w.Text))
	}
	return cond, nil
}

// parseRequire parses groups of packages. A bare package forms its own
// group, "( ... )" is an OR-group and "<pkg>" marks an explicit dependency.
func (p *parser) parseRequire(t Token) (Instruction, error) {
	instr := Instruction{Kind: InstrRequire, Pos: t.Pos}
	var group []RequiredValue
	inGroup := false

	add := func(m RequiredValue) {
		if inGroup {
			group = append(group, m)
		} else {
			instr.Groups = append(instr.Groups, []RequiredValue{m})
		}
	}

	for !p.atInstructionEnd() {
		tok := p.peek()
		switch tok.Kind {
		case TokLParen:
			if inGroup {
				return Instruction{}, p.errorf(tok, "require groups cannot be nested")
			}
			p.advance()
			inGroup, group = true, nil
		case TokRParen:
			if !inGroup {
				return Instruction{}, p.unexpected(tok)
			}
			p.advance()
			if len(group) == 0 {
				return Instruction{}, p.errorf(tok, "empty require group")
			}
			instr.Groups = append(instr.Groups, group)
			inGroup = false
		case TokLAngle:
			p.advance()
			v, err := p.parseValue()
			if err != nil {
				return Instruction{}, err
			}
			if _, err := p.expect(TokRAngle, "'>'"); err != nil {
				return Instruction{}, err
			}
			add(RequiredValue{Value: v, Explicit: true})
		default:
			v, err := p.parseValue()
			if err != nil {
				return Instruction{}, err
			}
			add(RequiredValue{Value: v})
		}
	}

	if inGroup {
		return Instruction{}, p.errorf(p.peek(), "unclosed require group")
	}
	if len(instr.Groups) == 0 {
		return Instruction{}, p.errorf(t, "require needs at least one package")
	}
	return instr, p.endInstruction(t.Text)
}

// parseAddon parses: addon ID [FILE] (key: value, ...);
func (p *parser) parseAddon(t Token) (Instruction, error) {
	spec := &AddonSpec{}
	var err error
	if spec.ID, err = p.parseValue(); err != nil {
		return Instruction{}, err
	}
	if p.peek().Kind != TokLParen {
		if spec.FileName, err = p.parseValue(); err != nil {
			return Instruction{}, err
		}
	}
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return Instruction{}, err
	}

	seen := make(map[string]bool)
	for p.peek().Kind != TokRParen {
		key, err := p.expect(TokIdent, "addon key")
		if err != nil {
			return Instruction{}, err
		}
		if seen[key.Text] {
			return Instruction{}, p.errorf(key, "duplicate addon key %q", key.Text)
		}
		seen[key.Text] = true
		if _, err := p.expect(TokColon, "':'"); err != nil {
			return Instruction{}, err
		}

		if key.Text == "kind" {
			w, err := p.parseWord()
			if err != nil {
				return Instruction{}, err
			}
			if _, err := addon.ParseKind(w.Text); err != nil {
				return Instruction{}, p.errorf(w, "%v", err)
			}
			spec.Kind = w.Text
		} else {
			target, ok := addonKeyTarget(spec, key.Text)
			if !ok {
				return Instruction{}, p.errorf(key, "unknown key %q for addon instruction", key.Text)
			}
			if *target, err = p.parseValue(); err != nil {
				return Instruction{}, err
			}
		}

		if p.peek().Kind == TokComma {
			p.advance()
		} else if p.peek().Kind != TokRParen {
			return Instruction{}, p.unexpected(p.peek())
		}
	}
	p.advance()

	if spec.Kind == "" {
		return Instruction{}, p.errorf(t, "addon instruction requires a kind")
	}
	return Instruction{Kind: InstrAddon, Pos: t.Pos, Addon: spec}, p.endInstruction(t.Text)
}

func addonKeyTarget(spec *AddonSpec, key string) (*Value, bool) {
	switch key {
	case "url":
		return &spec.URL, true
	case "path":
		return &spec.Path, true
	case "version":
		return &spec.Version, true
	case "hash_sha256":
		return &spec.HashSHA256, true
	case "hash_sha512":
		return &spec.HashSHA512, true
	default:
		return nil, false
	}
}

// walkBlock visits every instruction in the block and its nested if/else
// blocks.
func (p *parser) walkBlock(id BlockID, visit func(Instruction) error) error {
	for _, instr := range p.parsed.Block(id).Instructions {
		if err := visit(instr); err != nil {
			return err
		}
		if instr.Kind == InstrIf {
			if err := p.walkBlock(instr.Block, visit); err != nil {
				return err
			}
			for _, e := range instr.Else {
				if err := p.walkBlock(e.Block, visit); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *parser) checkCalls() error {
	for _, id := range p.parsed.Routines {
		err := p.walkBlock(id, func(instr Instruction) error {
			if instr.Kind != InstrCall {
				return nil
			}
			if _, ok := p.parsed.Routines[instr.Name]; !ok {
				return &ParseError{Pos: instr.Pos, Msg: fmt.Sprintf("routine %q does not exist", instr.Name)}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// checkRecursion rejects call cycles reachable from the reserved routines
// that may call others.
func (p *parser) checkRecursion() error {
	var check func(name string, stack []string) error
	check = func(name string, stack []string) error {
		stack = append(stack, name)
		return p.walkBlock(p.parsed.Routines[name], func(instr Instruction) error {
			if instr.Kind != InstrCall {
				return nil
			}
			if slices.Contains(stack, instr.Name) {
				return &ParseError{Pos: instr.Pos, Msg: fmt.Sprintf("recursion detected calling routine %q from %q", instr.Name, name)}
			}
			return check(instr.Name, stack)
		})
	}

	for _, name := range []string{RoutineInstall, RoutineUninstall} {
		if _, ok := p.parsed.Routines[name]; !ok {
			continue
		}
		if err := check(name, nil); err != nil {
			return err
		}
	}
	return nil
}
