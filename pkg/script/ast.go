// SPDX-License-Identifier: MPL-2.0

package script

import (
	"errors"
	"fmt"
)

// Reserved routine names.
const (
	RoutineMeta       = "meta"
	RoutineProperties = "properties"
	RoutineInstall    = "install"
	RoutineUninstall  = "uninstall"
	// RoutineDefault holds instructions written outside any routine.
	RoutineDefault = "__default__"
)

const (
	// ValueNone is an absent value.
	ValueNone ValueKind = iota
	// ValueConstant is literal text that may contain ${name} substitutions.
	ValueConstant
	// ValueVar reads a variable; reading an undefined one is an error.
	ValueVar
)

const (
	CondNot CondKind = iota
	CondAnd
	CondOr
	CondVersion
	CondSide
	CondModloader
	CondPluginLoader
	CondFeature
	CondValue
	CondDefined
	CondOS
	CondArch
	CondStability
	CondLanguage
)

const (
	FailNone                       FailReason = ""
	FailUnsupportedVersion         FailReason = "unsupported_version"
	FailUnsupportedModloader       FailReason = "unsupported_modloader"
	FailUnsupportedPluginLoader    FailReason = "unsupported_plugin_loader"
	FailUnsupportedFeatures        FailReason = "unsupported_features"
	FailUnsupportedOperatingSystem FailReason = "unsupported_operating_system"
	FailUnsupportedArchitecture    FailReason = "unsupported_architecture"
)

// ErrParse is matched by every *ParseError via errors.Is.
var ErrParse = errors.New("parse error")

type (
	// ValueKind tags a Value.
	ValueKind int

	// Value is an instruction operand.
	Value struct {
		Kind ValueKind
		Text string
	}

	// CondKind tags a Condition.
	CondKind int

	// Condition is a boolean expression used by if instructions. Not uses
	// Operands[0]; And and Or use Operands[0] and Operands[1]; leaf
	// conditions keep their arguments in Args.
	Condition struct {
		Kind     CondKind
		Operands []*Condition
		Args     []Value
	}

	// FailReason is the user-visible reason attached to a fail instruction.
	FailReason string

	// BlockID identifies a block within a Parsed script.
	BlockID int

	// Block is an ordered list of instructions.
	Block struct {
		Instructions []Instruction
	}

	// ElseBlock is one else or else-if branch. Cond is nil for a plain else.
	ElseBlock struct {
		Cond  *Condition
		Block BlockID
	}

	// RequiredValue is one member of a require group.
	RequiredValue struct {
		Value    Value
		Explicit bool
	}

	// AddonSpec holds the operands of an addon instruction.
	AddonSpec struct {
		ID         Value
		FileName   Value
		Kind       string
		URL        Value
		Path       Value
		Version    Value
		HashSHA256 Value
		HashSHA512 Value
	}

	// Instruction is one parsed statement. Which fields are set depends on
	// Kind: Args for simple operands, Name for set and call targets, Cond
	// with Block and Else for if, Groups for require, Addon for addon,
	// Invert for recommend and Reason for fail.
	Instruction struct {
		Kind   InstrKind
		Pos    Pos
		Args   []Value
		Name   string
		Cond   *Condition
		Block  BlockID
		Else   []ElseBlock
		Groups [][]RequiredValue
		Addon  *AddonSpec
		Invert bool
		Reason FailReason
	}

	// Parsed is a whole package script: named routines pointing into a
	// table of blocks.
	Parsed struct {
		Routines map[string]BlockID
		Blocks   map[BlockID]*Block
		nextID   BlockID
	}
)

// Const returns a constant value.
func Const(text string) Value {
	return Value{Kind: ValueConstant, Text: text}
}

// Var returns a variable reference.
func Var(name string) Value {
	return Value{Kind: ValueVar, Text: name}
}

// IsNone reports whether the value is absent.
func (v Value) IsNone() bool {
	return v.Kind == ValueNone
}

// String renders the value as it would appear in source.
func (v Value) String() string {
	switch v.Kind {
	case ValueConstant:
		return fmt.Sprintf("%q", v.Text)
	case ValueVar:
		return "$" + v.Text
	default:
		return "<none>"
	}
}

// ParseFailReason parses a fail reason name.
func ParseFailReason(s string) (FailReason, bool) {
	switch r := FailReason(s); r {
	case FailUnsupportedVersion, FailUnsupportedModloader, FailUnsupportedPluginLoader,
		FailUnsupportedFeatures, FailUnsupportedOperatingSystem, FailUnsupportedArchitecture:
		return r, true
	default:
		return FailNone, false
	}
}

// Description returns a human readable form of the reason.
func (r FailReason) Description() string {
	switch r {
	case FailUnsupportedVersion:
		return "unsupported game version"
	case FailUnsupportedModloader:
		return "unsupported modloader"
	case FailUnsupportedPluginLoader:
		return "unsupported plugin loader"
	case FailUnsupportedFeatures:
		return "unsupported feature set"
	case FailUnsupportedOperatingSystem:
		return "unsupported operating system"
	case FailUnsupportedArchitecture:
		return "unsupported system architecture"
	default:
		return ""
	}
}

func newParsed() *Parsed {
	p := &Parsed{
		Routines: make(map[string]BlockID),
		Blocks:   make(map[BlockID]*Block),
	}
	p.Routines[RoutineDefault] = p.newBlock()
	return p
}

func (p *Parsed) newBlock() BlockID {
	p.nextID++
	p.Blocks[p.nextID] = &Block{}
	return p.nextID
}

// Routine returns the block of the named routine.
func (p *Parsed) Routine(name string) (*Block, bool) {
	id, ok := p.Routines[name]
	if !ok {
		return nil, false
	}
	return p.Blocks[id], true
}

// Block returns the block with the given id, or an empty block.
func (p *Parsed) Block(id BlockID) *Block {
	if b, ok := p.Blocks[id]; ok {
		return b
	}
	return &Block{}
}

// IsReservedRoutine reports whether name has built-in meaning.
func IsReservedRoutine(name string) bool {
	switch name {
	case RoutineMeta, RoutineProperties, RoutineInstall, RoutineUninstall:
		return true
	default:
		return false
	}
}

// CanCallRoutines reports whether the routine may contain call instructions.
func CanCallRoutines(name string) bool {
	return name != RoutineMeta && name != RoutineProperties
}
