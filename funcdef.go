package jsfe

import "fmt"

// FunctionDefKind classifies what kind of callable or top-level unit a
// FunctionDef represents.
type FunctionDefKind uint8

const (
	FuncKindNormal FunctionDefKind = iota
	FuncKindArrow
	FuncKindMethod
	FuncKindGetter
	FuncKindSetter
	FuncKindGenerator
	FuncKindAsync
	FuncKindAsyncGenerator
	FuncKindAsyncArrow
	FuncKindClassConstructor
	FuncKindClassFieldInit // synthetic initializer for instance/static fields
	FuncKindTopLevel       // the Program itself, or an indirect eval's Function body
	FuncKindModule
)

// ParseGoal selects which top-level grammar production a source buffer
// is parsed as.
type ParseGoal uint8

const (
	GoalScript ParseGoal = iota
	GoalModule
	GoalFunctionBody // direct/indirect eval or new Function(...) body
)

// VarKind classifies one entry of FunctionDef.vars / FunctionDef.args.
type VarKind uint8

const (
	VarKindVar VarKind = iota
	VarKindLet
	VarKindConst
	VarKindCatchParam
	VarKindFunctionParam
	VarKindHoistedFunction
)

// VarDef is one declared binding: a local variable, a function argument,
// or a pseudo-var (arguments/this/new.target/home_object) synthesized by
// the function prologue.
type VarDef struct {
	Name        Atom
	Kind        VarKind
	ScopeLevel  int  // index into FunctionDef.Scopes of the declaring scope
	IsCaptured  bool // referenced by some nested closure; forces a var ref cell
	IsConst     bool
	IsRest      bool // true for a function's trailing "...name" parameter
	FuncPoolIdx int  // set to -1 by DeclareVar; no other value is assigned, even when IsCaptured
}

// ClosureVarDef records one free variable a nested function captures from
// an enclosing FunctionDef: the (function_id, kind, slot) triple.
type ClosureVarDef struct {
	Name       Atom
	IsLocal    bool    // true: slot indexes the immediate parent's vars/args;
	                    // false: slot indexes the immediate parent's own closures
	IsArg      bool    // when IsLocal, slot indexes args rather than vars
	IsConst    bool
	ParentSlot int
}

// Scope is one lexical block within a FunctionDef: the function body
// itself (level 0), and one per nested block/for-header/catch-clause.
type Scope struct {
	Parent    int // index into FunctionDef.scopes, -1 for the function body
	FirstVar  int // index into FunctionDef.vars of the first var at this level
	IsWith    bool
	IsCatch   bool
}

// LabelSlot is one fixup-pending jump target: emitted as a placeholder
// offset at emission time, patched to a concrete bytecode position once
// the label's target is reached.
type LabelSlot struct {
	Name      Atom // 0 for unlabelled break/continue targets
	Pos       int  // bytecode offset of the label definition, -1 if forward-only
	RefList   []int
	resolved  bool
}

// ModuleRequest is one import/export-from specifier this FunctionDef's
// module record names.
type ModuleRequest struct {
	ModuleName string
	IsExport   bool
}

// ImportEntry/ExportEntry mirror a module's import/export binding tables.
type ImportEntry struct {
	LocalName  Atom
	ImportName Atom // 0 for a namespace import ("* as ns")
	ModuleIdx  int
}

type ExportEntry struct {
	ExportName Atom
	LocalName  Atom // 0 for a re-export ("export { x } from ...")
	ModuleIdx  int  // -1 when not a re-export
}

// FunctionDef holds all per-function compile state: one instance per
// function/method/arrow/class-field-initializer/generator/module, linked
// into a tree by Parent/Children. This is the structure the scope
// resolver walks in its second pass.
type FunctionDef struct {
	Parent   *FunctionDef
	Children []*FunctionDef

	Kind    FunctionDefKind
	Name    Atom
	IsStrict bool

	Args []VarDef
	Vars []VarDef

	// HoistedGlobals holds function/var declarations that hoist all the
	// way to the top-level global scope: only non-empty for a
	// FuncKindTopLevel FunctionDef in Script goal.
	HoistedGlobals []VarDef

	Closures []ClosureVarDef

	Scopes       []Scope
	CurrentScope int

	// Modules side-tables: only populated for FuncKindModule.
	ModuleRequests []ModuleRequest
	Imports        []ImportEntry
	Exports        []ExportEntry
	HasStarExport  bool
	DefaultBound   bool // true once a default export binding has been seen

	// Bytecode is the append-only instruction buffer for this function,
	// written by the emitter in the parser's single forward pass.
	Bytecode []byte

	// ConstPool holds literal operands (numbers, strings, regexps,
	// nested FunctionDefs for function expressions) referenced from
	// Bytecode by index.
	ConstPool []any

	Labels []LabelSlot

	// PC2Line is the encoded line-number debug stream, populated by
	// the emitter's line-tracking hook and finalized after resolution.
	PC2Line []byte

	// lineMarks accumulates raw (bytecode position, source line) pairs
	// during emission; encodePC2Line compresses them into PC2Line once
	// the function is fully parsed.
	lineMarks []lineMark

	// BlockEnvs is this function's control-flow stack, live only during
	// parsing/emission (cleared once the function body closes).
	BlockEnvs []*BlockEnv

	// HasBrand is set by the class-body parser on the constructor of a
	// class that has both private members and an extends clause. The
	// resolver does not read it; the add_brand instruction is emitted
	// directly by the class-body parser.
	HasBrand bool

	// HasDirectEval marks that this function's body (or a function
	// nested in it without its own binding of eval) contains a direct
	// call to eval, forcing the resolver's closure-synthesis step to
	// treat every otherwise-unresolved local as a potential indirect
	// target instead of promoting it to a global reference.
	HasDirectEval  bool
	HasWithScope   bool
	HasArgumentsRef bool

	// NonSimpleParams is true once the parameter list has parsed a
	// destructuring pattern, a default value, or a rest parameter, per
	// the "simple parameter list" definition duplicate-parameter-name
	// and strict-mode checks key off of.
	NonSimpleParams bool

	// SourceStart/SourceEnd bound this function's text in the original
	// buffer, used for Function.prototype.toString and stack traces.
	SourceStart int
	SourceEnd   int
	Line        int
}

// NewFunctionDef creates a child of parent (nil for the top-level
// Program) with the given kind and appends it to parent.Children.
// Strictness is copied from parent at construction rather than looked
// up through the pointer on every access; nothing else is inherited.
func NewFunctionDef(parent *FunctionDef, kind FunctionDefKind) *FunctionDef {
	fd := &FunctionDef{
		Parent:       parent,
		Kind:         kind,
		CurrentScope: 0,
	}
	fd.Scopes = append(fd.Scopes, Scope{Parent: -1})
	if parent != nil {
		fd.IsStrict = parent.IsStrict
		parent.Children = append(parent.Children, fd)
	}
	return fd
}

// PushScope opens a new lexical block nested in the current one,
// returning its index.
func (fd *FunctionDef) PushScope(isWith, isCatch bool) int {
	idx := len(fd.Scopes)
	fd.Scopes = append(fd.Scopes, Scope{
		Parent:   fd.CurrentScope,
		FirstVar: len(fd.Vars),
		IsWith:   isWith,
		IsCatch:  isCatch,
	})
	fd.CurrentScope = idx
	return idx
}

// PopScope closes the current lexical block, returning to its parent.
func (fd *FunctionDef) PopScope() {
	fd.CurrentScope = fd.Scopes[fd.CurrentScope].Parent
}

// DeclareVar adds a new binding at the current scope level and returns
// its slot index into Vars. Redeclaring a let/const name already bound
// by a let/const at the same scope level is rejected: var/function
// hoisting and catch-parameter bindings never collide with each other or
// with themselves, only a lexical binding can shadow another lexical
// binding in the same block.
func (fd *FunctionDef) DeclareVar(name Atom, kind VarKind) (int, error) {
	if kind == VarKindLet || kind == VarKindConst {
		for _, v := range fd.Vars {
			if v.ScopeLevel == fd.CurrentScope && v.Name == name && (v.Kind == VarKindLet || v.Kind == VarKindConst) {
				return -1, fmt.Errorf("redefinition of lexical identifier")
			}
		}
	}
	fd.Vars = append(fd.Vars, VarDef{
		Name:        name,
		Kind:        kind,
		ScopeLevel:  fd.CurrentScope,
		IsConst:     kind == VarKindConst,
		FuncPoolIdx: -1,
	})
	return len(fd.Vars) - 1, nil
}

// DeclareArg adds a parameter binding and returns its slot index into
// Args. isRest marks a trailing "...name" parameter.
func (fd *FunctionDef) DeclareArg(name Atom, isRest bool) int {
	fd.Args = append(fd.Args, VarDef{Name: name, Kind: VarKindFunctionParam, IsRest: isRest, FuncPoolIdx: -1})
	return len(fd.Args) - 1
}

// FindLocal searches Vars then Args, from the current scope outward to
// scope 0, for the nearest binding visible at fd.CurrentScope. Returns
// -1 (not isArg) if not found at this function level.
func (fd *FunctionDef) FindLocal(name Atom) (slot int, isArg bool) {
	for level := fd.CurrentScope; level != -1; level = fd.Scopes[level].Parent {
		for i := len(fd.Vars) - 1; i >= 0; i-- {
			v := fd.Vars[i]
			if v.Name == name && v.ScopeLevel == level {
				return i, false
			}
		}
		if level == 0 {
			break
		}
	}
	for i, a := range fd.Args {
		if a.Name == name {
			return i, true
		}
	}
	return -1, false
}

// AddClosureVar records (or reuses) a closure-variable slot capturing
// name from the parent function, returning its index into Closures.
func (fd *FunctionDef) AddClosureVar(name Atom, isLocal, isArg, isConst bool, parentSlot int) int {
	for i, c := range fd.Closures {
		if c.Name == name {
			return i
		}
	}
	fd.Closures = append(fd.Closures, ClosureVarDef{
		Name: name, IsLocal: isLocal, IsArg: isArg, IsConst: isConst, ParentSlot: parentSlot,
	})
	return len(fd.Closures) - 1
}

// AddConst appends v to the constant pool and returns its index.
func (fd *FunctionDef) AddConst(v any) int {
	fd.ConstPool = append(fd.ConstPool, v)
	return len(fd.ConstPool) - 1
}

// NewLabel allocates an unresolved label and returns its index.
func (fd *FunctionDef) NewLabel() int {
	fd.Labels = append(fd.Labels, LabelSlot{Pos: -1})
	return len(fd.Labels) - 1
}

// DefineLabel marks label as resolved at the current bytecode position.
func (fd *FunctionDef) DefineLabel(label int) {
	fd.Labels[label].Pos = len(fd.Bytecode)
	fd.Labels[label].resolved = true
}
