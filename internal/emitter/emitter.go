// Package emitter turns the typed AST (internal/ast), as shaped by the
// optimizer's affinity (C7) and residency (C8) passes, into the register
// bytecode internal/interp executes: a scope chain with parent pointers, a
// freelist register allocator, and a one-statement/one-expression
// recursive descent over already-resolved nodes instead of a raw parse
// tree.
//
// The typed AST carries no source positions (the surface lexer is out of
// scope), so every emitted instruction is tagged with a constant location;
// a real front end would thread real line/column information through here
// instead.
package emitter

import (
	"fmt"

	"github.com/jordyorel/orus-lang-sub009/internal/ast"
	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/optimizer"
	"github.com/jordyorel/orus-lang-sub009/internal/regfile"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

const (
	emitLine = 1
	emitCol  = 1
)

// registerAllocator is a freelist allocator over one tier's within-tier
// index space: Alloc reuses a freed slot before growing, Free returns a
// slot to the pool unless it is locked, and Lock/Unlock protect a register
// that is live across a sub-expression's evaluation, keeping intermediate
// values from being clobbered by a sibling subexpression.
type registerAllocator struct {
	next     int
	maxSeen  int
	free     []int
	locked   map[int]bool
}

func newRegisterAllocator() *registerAllocator {
	return &registerAllocator{locked: make(map[int]bool)}
}

func (a *registerAllocator) Alloc() int {
	if n := len(a.free); n > 0 {
		r := a.free[n-1]
		a.free = a.free[:n-1]
		return r
	}
	r := a.next
	a.next++
	if a.next > a.maxSeen {
		a.maxSeen = a.next
	}
	return r
}

func (a *registerAllocator) Free(r int) {
	if !a.locked[r] {
		a.free = append(a.free, r)
	}
}

func (a *registerAllocator) Lock(r int)   { a.locked[r] = true }
func (a *registerAllocator) Unlock(r int) { delete(a.locked, r) }

// scope is one lexical block's name bindings, chained to its parent.
type scope struct {
	parent *scope
	locals map[string]int // name -> frame/temp-tier index
}

// Emitter compiles one function body (or the top-level program) into a
// single bytecode.Chunk. Top-level variable declarations (scope depth 0)
// become true globals, addressed by GET_GLOBAL/SET_GLOBAL; every nested
// scope's declarations become frame-tier locals addressed directly,
// mirroring compregister's "scopeDepth == 0 ⇒ global, else local" split.
type Emitter struct {
	chunk *bytecode.Chunk
	file  string

	alloc      *registerAllocator
	scopeDepth int
	scope      *scope

	globals     map[string]uint16
	nextGlobal  *uint16 // shared across an Emitter tree (top-level + its functions)

	ctx *optimizer.Context

	errs []error
}

// NewProgramEmitter builds the emitter for the top-level program, owning
// the shared global-name table that function emitters spawned from it
// (newFunctionEmitter) also consult, so a function body referencing a
// program-level global resolves to the same id.
func NewProgramEmitter(file string, ctx *optimizer.Context) *Emitter {
	next := uint16(0)
	return &Emitter{
		chunk:      bytecode.NewChunk(),
		file:       file,
		alloc:      newRegisterAllocator(),
		scope:      &scope{locals: make(map[string]int)},
		globals:    make(map[string]uint16),
		nextGlobal: &next,
		ctx:        ctx,
	}
}

// newFunctionEmitter builds a child emitter for one function body, sharing
// the parent's global table (so references to outer globals still resolve)
// but starting scope depth at 1 so every declaration inside the function
// binds to a fresh frame-tier local, never a global.
func newFunctionEmitter(parent *Emitter) *Emitter {
	return &Emitter{
		chunk:      bytecode.NewChunk(),
		file:       parent.file,
		alloc:      newRegisterAllocator(),
		scopeDepth: 1,
		scope:      &scope{locals: make(map[string]int)},
		globals:    parent.globals,
		nextGlobal: parent.nextGlobal,
		ctx:        parent.ctx,
	}
}

func (e *Emitter) errorf(format string, args ...interface{}) {
	e.errs = append(e.errs, fmt.Errorf(format, args...))
}

// Errors reports every compile-time error accumulated during emission.
func (e *Emitter) Errors() []error { return e.errs }

func (e *Emitter) op(o bytecode.OpCode)        { e.chunk.AppendOp(o, emitLine, emitCol, e.file) }
func (e *Emitter) reg(r uint16)                { e.chunk.AppendShort(r, emitLine, emitCol, e.file) }
func (e *Emitter) short(v uint16)              { e.chunk.AppendShort(v, emitLine, emitCol, e.file) }
func (e *Emitter) byte(b byte)                 { e.chunk.AppendByte(b, emitLine, emitCol, e.file) }

func (e *Emitter) frameReg(idx int) uint16 { return regfile.RegID(regfile.TierFrame, idx) }
func (e *Emitter) tempReg(idx int) uint16  { return regfile.RegID(regfile.TierTemp, idx) }

// pushScope/popScope implement lexical block entry/exit: popping frees
// every register the scope defined back to the allocator.
func (e *Emitter) pushScope() {
	e.scope = &scope{parent: e.scope}
	e.scopeDepth++
}

func (e *Emitter) popScope() {
	if e.scope.locals != nil {
		for _, r := range e.scope.locals {
			e.alloc.Unlock(r)
			e.alloc.Free(r)
		}
	}
	e.scope = e.scope.parent
	e.scopeDepth--
}

func (e *Emitter) defineLocal(name string) int {
	if e.scope.locals == nil {
		e.scope.locals = make(map[string]int)
	}
	r := e.alloc.Alloc()
	e.scope.locals[name] = r
	e.alloc.Lock(r)
	return r
}

// resolveLocal walks the scope chain; ok is false when name is unbound in
// any enclosing scope of this emitter (the top-level program acts as the
// outermost scope, so an unresolved name at any depth falls through to the
// shared global table).
func (e *Emitter) resolveLocal(name string) (int, bool) {
	for s := e.scope; s != nil; s = s.parent {
		if r, ok := s.locals[name]; ok {
			return r, true
		}
	}
	return 0, false
}

func (e *Emitter) globalID(name string) uint16 {
	if id, ok := e.globals[name]; ok {
		return id
	}
	id := *e.nextGlobal
	e.globals[name] = id
	*e.nextGlobal++
	return id
}

// EmitProgram compiles a top-level Program node into a runnable chunk,
// appending an implicit halt so Run reaches a RETURN/HALT rather than
// falling off the end of the instruction stream.
func (e *Emitter) EmitProgram(program *ast.Node) (*bytecode.Chunk, error) {
	if program.Kind != ast.KindProgram {
		return nil, fmt.Errorf("emitter: EmitProgram requires a KindProgram root, got %v", program.Kind)
	}
	for _, stmt := range program.Statements {
		e.emitStmt(stmt)
	}
	nilReg := e.alloc.Alloc()
	e.op(bytecode.OP_LOAD_NIL)
	e.reg(e.frameReg(nilReg))
	e.op(bytecode.OP_RETURN)
	e.reg(e.frameReg(nilReg))
	e.alloc.Free(nilReg)

	e.chunk.MaxRegisters = e.alloc.maxSeen
	if len(e.errs) > 0 {
		return nil, e.errs[0]
	}
	if e.chunk.OpenPatches() != 0 {
		return nil, fmt.Errorf("emitter: %d unpatched forward jump(s) remain", e.chunk.OpenPatches())
	}
	return e.chunk, nil
}

// isStatementOnlyKind reports whether a node's Kind never yields a usable
// result register on its own (control-flow and declaration forms), as
// opposed to an expression Kind that EmitFunction's trailing-expression
// return convention can hand straight to RETURN.
func isStatementOnlyKind(k ast.Kind) bool {
	switch k {
	case ast.KindVarDecl, ast.KindForRange, ast.KindForIter, ast.KindWhile,
		ast.KindBlock, ast.KindProgram:
		return true
	default:
		return false
	}
}

// EmitFunction compiles body into its own FunctionObj, with params bound
// to frame registers [0, len(params)) the way handleCall expects to find
// them (spec §10 "register-window sizing per call"). Since the AST has no
// explicit return node, the last statement of body is the function's
// result: if it is an expression Kind, its value is returned; otherwise
// (a control-flow or declaration form) the function falls off the end and
// returns nil, the same convention compregister's implicit-nil-return
// functions followed when their body ended in a statement.
func (e *Emitter) EmitFunction(name string, params []string, body []*ast.Node) (*value.Obj, error) {
	fe := newFunctionEmitter(e)
	fe.pushScope()
	for _, p := range params {
		fe.defineLocal(p)
	}

	tailExpr := len(body) > 0 && !isStatementOnlyKind(body[len(body)-1].Kind)
	stmts := body
	if tailExpr {
		stmts = body[:len(body)-1]
	}
	for _, stmt := range stmts {
		fe.emitStmt(stmt)
	}

	if tailExpr {
		result := fe.emitExpr(body[len(body)-1])
		fe.op(bytecode.OP_RETURN)
		fe.reg(fe.frameReg(result))
		fe.alloc.Free(result)
	} else {
		nilReg := fe.alloc.Alloc()
		fe.op(bytecode.OP_LOAD_NIL)
		fe.reg(fe.frameReg(nilReg))
		fe.op(bytecode.OP_RETURN)
		fe.reg(fe.frameReg(nilReg))
		fe.alloc.Free(nilReg)
	}
	fe.popScope()

	if len(fe.errs) > 0 {
		e.errs = append(e.errs, fe.errs...)
		return nil, fe.errs[0]
	}
	if fe.chunk.OpenPatches() != 0 {
		return nil, fmt.Errorf("emitter: function %s has %d unpatched forward jump(s)", name, fe.chunk.OpenPatches())
	}
	fe.chunk.MaxRegisters = fe.alloc.maxSeen
	if fe.chunk.MaxRegisters < len(params) {
		fe.chunk.MaxRegisters = len(params)
	}
	return value.NewFunction(name, len(params), fe.chunk.MaxRegisters, fe.chunk), nil
}
