// Package compiler implements the single-pass Pratt compiler described in
// spec §4.2: scanning, parsing, scope/upvalue resolution, and bytecode
// emission are fused into one pass over the source text, with no
// intermediate AST. Locals and upvalues are resolved against per-function
// compiler state while code is emitted directly into the Function's Chunk;
// class compilation tracks a small stack of class states to validate
// this/super usage.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emberlang/ember/lang/bytecode"
	"github.com/emberlang/ember/lang/gc"
	"github.com/emberlang/ember/lang/object"
	"github.com/emberlang/ember/lang/token"
)

// functionKind distinguishes the four contexts the compiler can be
// compiling a function body for; it governs whether slot 0 is reserved for
// `this` and what `return` is allowed to do (spec §4.2 "Function kinds").
type functionKind int

const (
	kindFunction functionKind = iota
	kindScript
	kindMethod
	kindInitializer
)

type localVar struct {
	name       string
	depth      int
	isCaptured bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// fnState is the per-function compiler state described in spec §4.2: the
// enclosing compiler (for nesting), the Function being built, a
// fixed-capacity array of 256 locals, and a fixed-capacity array of upvalue
// descriptors.
type fnState struct {
	enclosing *fnState
	function  *object.Function
	kind      functionKind

	locals     [256]localVar
	localCount int
	scopeDepth int

	upvalues [256]upvalueRef
}

// classState is the per-class compiler state: a stack frame tracking
// whether the class being compiled has a superclass, so `super` usage can
// be validated.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// parser holds every piece of state threaded through a single compile: the
// token stream, error bookkeeping, and the current function/class compiler
// chains. It registers itself as a gc.RootProvider so every in-progress
// Function along the enclosing chain stays reachable across allocations
// triggered mid-compile (spec §3: "Function only created while its
// compiler is active"; spec §4.5 root list: "every in-progress
// Function/Compiler").
type parser struct {
	heap    *gc.Heap
	scanner *scanner

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errs      []string

	fn    *fnState
	class *classState
}

var _ gc.RootProvider = (*parser)(nil)

func (p *parser) MarkRoots(mark bytecode.MarkFunc) {
	for f := p.fn; f != nil; f = f.enclosing {
		mark(bytecode.FromObj(f.function))
	}
}

// synthetic tokens used where the compiler needs to resolve "this" or
// "super" as ordinary variable references outside of their own lexeme
// occurrence (spec §4.2: `this`/`super` resolve through the normal
// local/upvalue machinery via a synthetic local named "this"/"super").
var (
	thisToken  = token.Token{Kind: token.THIS, Lexeme: "this"}
	superToken = token.Token{Kind: token.SUPER, Lexeme: "super"}
)

// Compile compiles source to a top-level Function. On success it returns a
// Function ready for the VM to wrap in a Closure and run; on failure it
// returns a *CompileError collecting every error panic-mode synchronization
// allowed it to gather (spec §7: "compile errors don't abort compilation").
func Compile(heap *gc.Heap, source string) (*object.Function, error) {
	p := &parser{heap: heap, scanner: newScanner(source)}
	heap.AddRootProvider(p)
	defer heap.RemoveRootProvider(p)

	p.beginFunction(kindScript, "")
	p.advance()
	for !p.check(token.EOF) {
		p.declaration()
	}
	fn := p.endFunction()

	if p.hadError {
		return nil, &CompileError{Messages: p.errs}
	}
	return fn, nil
}

func (p *parser) beginFunction(kind functionKind, name string) {
	fn := p.heap.NewFunction()
	if name != "" {
		fn.Name = p.heap.Intern(name)
	}
	fs := &fnState{enclosing: p.fn, function: fn, kind: kind}
	p.fn = fs

	// Slot 0 is reserved: "this" for methods/initializers, the empty
	// string for plain functions and the top-level script (spec §4.2).
	loc := &fs.locals[0]
	fs.localCount = 1
	loc.depth = 0
	if kind != kindFunction && kind != kindScript {
		loc.name = "this"
	}
}

func (p *parser) endFunction() *object.Function {
	p.emitReturn()
	fn := p.fn.function
	p.fn = p.fn.enclosing
	return fn
}

// ----------------------------------------------------------------------
// Emission helpers
// ----------------------------------------------------------------------

func (p *parser) chunk() *bytecode.Chunk { return &p.fn.function.Chunk }

func (p *parser) emitByte(b byte) { p.chunk().Write(b, p.previous.Line) }

func (p *parser) emitBytes(b1, b2 byte) {
	p.emitByte(b1)
	p.emitByte(b2)
}

func (p *parser) emitOp(op bytecode.Opcode) { p.emitByte(byte(op)) }

func (p *parser) emitReturn() {
	if p.fn.kind == kindInitializer {
		// Bare `return;` in an initializer yields the instance sitting in
		// slot 0, not nil (spec §4.2).
		p.emitBytes(byte(bytecode.OP_GET_LOCAL), 0)
	} else {
		p.emitOp(bytecode.OP_NIL)
	}
	p.emitOp(bytecode.OP_RETURN)
}

func (p *parser) makeConstant(v bytecode.Value) int {
	return p.chunk().AddConstant(v)
}

func (p *parser) emitConstant(v bytecode.Value) {
	p.emitConstantOp(bytecode.OP_CONSTANT, bytecode.OP_CONSTANT_LONG, p.makeConstant(v))
}

// emitConstantOp picks the short (1-byte operand) or long (3-byte
// big-endian operand) form of a constant-indexed opcode, per spec §4.2
// "Operand widths".
func (p *parser) emitConstantOp(short, long bytecode.Opcode, idx int) {
	if idx < 256 {
		p.emitBytes(byte(short), byte(idx))
		return
	}
	p.emitByte(byte(long))
	p.emitByte(byte(idx >> 16))
	p.emitByte(byte(idx >> 8))
	p.emitByte(byte(idx))
}

func (p *parser) emitJump(op bytecode.Opcode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

func (p *parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > 0xffff {
		p.error("Too much code to jump over.")
		return
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(bytecode.OP_LOOP)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.error("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

// ----------------------------------------------------------------------
// Token stream
// ----------------------------------------------------------------------

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.next()
		if p.current.Kind != token.ILLEGAL {
			return
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(kind token.Kind) bool { return p.current.Kind == kind }

func (p *parser) match(kind token.Kind) bool {
	if !p.check(kind) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(kind token.Kind, msg string) {
	if p.current.Kind == kind {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// ----------------------------------------------------------------------
// Error reporting and recovery
// ----------------------------------------------------------------------

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

// errorAt formats a compile error as "[line L] Error [at <lexeme>|at
// end]: <message>" (spec §7) and silences further errors until the next
// synchronization point.
func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	var where string
	switch tok.Kind {
	case token.EOF:
		where = " at end"
	case token.ILLEGAL:
		// the lexeme already IS the scanner's error message; don't quote it
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	p.errs = append(p.errs, fmt.Sprintf("[line %d] Error%s: %s", tok.Line, where, msg))
	p.hadError = true
}

// synchronize discards tokens until it finds a statement boundary,
// matching spec §4.2: a semicolon just consumed, a declaration-starting
// keyword, or EOF.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMICOLON {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// CompileError collects every error panic-mode synchronization allowed the
// compiler to gather in one pass.
type CompileError struct {
	Messages []string
}

func (e *CompileError) Error() string { return strings.Join(e.Messages, "\n") }

// ----------------------------------------------------------------------
// Declarations and statements
// ----------------------------------------------------------------------

func (p *parser) declaration() {
	switch {
	case p.match(token.CLASS):
		p.classDeclaration()
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.LEFT_BRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after value.")
	p.emitOp(bytecode.OP_PRINT)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after expression.")
	p.emitOp(bytecode.OP_POP)
}

func (p *parser) block() {
	for !p.check(token.RIGHT_BRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (p *parser) beginScope() { p.fn.scopeDepth++ }

// endScope pops every local declared since the matching beginScope,
// emitting OP_CLOSE_UPVALUE for locals that were captured and OP_POP
// otherwise (spec §4.2 "end_scope").
func (p *parser) endScope() {
	p.fn.scopeDepth--
	for p.fn.localCount > 0 && p.fn.locals[p.fn.localCount-1].depth > p.fn.scopeDepth {
		if p.fn.locals[p.fn.localCount-1].isCaptured {
			p.emitOp(bytecode.OP_CLOSE_UPVALUE)
		} else {
			p.emitOp(bytecode.OP_POP)
		}
		p.fn.localCount--
	}
}

func (p *parser) ifStatement() {
	p.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(bytecode.OP_JUMP_IF_FALSE)
	p.emitOp(bytecode.OP_POP)
	p.statement()

	elseJump := p.emitJump(bytecode.OP_JUMP)
	p.patchJump(thenJump)
	p.emitOp(bytecode.OP_POP)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.chunk().Code)
	p.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(bytecode.OP_JUMP_IF_FALSE)
	p.emitOp(bytecode.OP_POP)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(bytecode.OP_POP)
}

// forStatement desugars to begin_scope; init; loop_head:; cond?; body;
// increment?; jump loop_head; end_scope, per spec §4.2.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")
	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.match(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = p.emitJump(bytecode.OP_JUMP_IF_FALSE)
		p.emitOp(bytecode.OP_POP)
	}

	if !p.check(token.RIGHT_PAREN) {
		bodyJump := p.emitJump(bytecode.OP_JUMP)
		incrementStart := len(p.chunk().Code)
		p.expression()
		p.emitOp(bytecode.OP_POP)
		p.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(bytecode.OP_POP)
	}
	p.endScope()
}

func (p *parser) returnStatement() {
	if p.fn.kind == kindScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(token.SEMICOLON) {
		p.emitReturn()
		return
	}
	if p.fn.kind == kindInitializer {
		p.error("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after return value.")
	p.emitOp(bytecode.OP_RETURN)
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(token.EQUAL) {
		p.expression()
	} else {
		p.emitOp(bytecode.OP_NIL)
	}
	p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(kindFunction)
	p.defineVariable(global)
}

// function compiles a nested function body with a fresh fnState, then
// emits OP_CLOSURE (or its long form) plus the (is_local, index) byte pair
// per captured upvalue (spec §4.2 "fun name(params){body}").
func (p *parser) function(kind functionKind) {
	name := p.previous.Lexeme
	p.beginFunction(kind, name)
	child := p.fn
	p.beginScope()

	p.consume(token.LEFT_PAREN, "Expect '(' after function name.")
	if !p.check(token.RIGHT_PAREN) {
		for {
			p.fn.function.Arity++
			if p.fn.function.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	p.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	p.block()

	fn := p.endFunction()
	idx := p.makeConstant(bytecode.FromObj(fn))
	p.emitConstantOp(bytecode.OP_CLOSURE, bytecode.OP_CLOSURE_LONG, idx)

	for i := 0; i < fn.UpvalueCount; i++ {
		ref := child.upvalues[i]
		isLocal := byte(0)
		if ref.isLocal {
			isLocal = 1
		}
		p.emitByte(isLocal)
		p.emitByte(ref.index)
	}
}

// classDeclaration implements spec §4.2 "Class compilation": emit OP_CLASS,
// define the name, push a class compiler, optionally wire up a superclass
// (validating it isn't the class itself, opening a scope for the synthetic
// `super` local, and emitting OP_INHERIT), then compile every method.
func (p *parser) classDeclaration() {
	p.consume(token.IDENTIFIER, "Expect class name.")
	nameTok := p.previous
	nameConstant := p.identifierConstant(nameTok)
	p.declareVariable(nameTok)

	p.emitConstantOp(bytecode.OP_CLASS, bytecode.OP_CLASS_LONG, nameConstant)
	p.defineVariable(nameConstant)

	cs := &classState{enclosing: p.class}
	p.class = cs

	if p.match(token.LESS) {
		p.consume(token.IDENTIFIER, "Expect superclass name.")
		p.variable(false)
		if p.previous.Lexeme == nameTok.Lexeme {
			p.error("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal(token.Token{Lexeme: "super"})
		p.defineVariable(-1)

		p.namedVariable(nameTok, false)
		p.emitOp(bytecode.OP_INHERIT)
		cs.hasSuperclass = true
	}

	p.namedVariable(nameTok, false)
	p.consume(token.LEFT_BRACE, "Expect '{' before class body.")
	for !p.check(token.RIGHT_BRACE) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RIGHT_BRACE, "Expect '}' after class body.")
	p.emitOp(bytecode.OP_POP)

	if cs.hasSuperclass {
		p.endScope()
	}
	p.class = cs.enclosing
}

func (p *parser) method() {
	p.consume(token.IDENTIFIER, "Expect method name.")
	nameTok := p.previous
	constant := p.identifierConstant(nameTok)

	kind := kindMethod
	if nameTok.Lexeme == "init" {
		kind = kindInitializer
	}
	p.function(kind)
	p.emitConstantOp(bytecode.OP_METHOD, bytecode.OP_METHOD_LONG, constant)
}

// ----------------------------------------------------------------------
// Variable resolution
// ----------------------------------------------------------------------

func (p *parser) parseVariable(msg string) int {
	p.consume(token.IDENTIFIER, msg)
	name := p.previous
	p.declareVariable(name)
	if p.fn.scopeDepth > 0 {
		return -1
	}
	return p.identifierConstant(name)
}

func (p *parser) identifierConstant(name token.Token) int {
	return p.makeConstant(bytecode.FromObj(p.heap.Intern(name.Lexeme)))
}

// declareVariable rejects same-scope-depth shadowing but allows shadowing
// across scopes (spec §8: "Same-scope-depth shadowing = compile error;
// cross-scope shadowing doesn't").
func (p *parser) declareVariable(name token.Token) {
	if p.fn.scopeDepth == 0 {
		return
	}
	for i := p.fn.localCount - 1; i >= 0; i-- {
		local := &p.fn.locals[i]
		if local.depth != -1 && local.depth < p.fn.scopeDepth {
			break
		}
		if local.name == name.Lexeme {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *parser) addLocal(name token.Token) {
	if p.fn.localCount == 256 {
		p.error("Too many local variables in function.")
		return
	}
	local := &p.fn.locals[p.fn.localCount]
	p.fn.localCount++
	local.name = name.Lexeme
	local.depth = -1
	local.isCaptured = false
}

func (p *parser) defineVariable(global int) {
	if p.fn.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitConstantOp(bytecode.OP_DEFINE_GLOBAL, bytecode.OP_DEFINE_GLOBAL_LONG, global)
}

func (p *parser) markInitialized() {
	if p.fn.scopeDepth == 0 {
		return
	}
	p.fn.locals[p.fn.localCount-1].depth = p.fn.scopeDepth
}

// resolveLocal scans fs's locals back-to-front; a depth of -1 means the
// local's own initializer is still being compiled (spec §4.2
// "resolve_local").
func (p *parser) resolveLocal(fs *fnState, name string) int {
	for i := fs.localCount - 1; i >= 0; i-- {
		local := &fs.locals[i]
		if local.name == name {
			if local.depth == -1 {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue recurses into the enclosing compiler: a local found there
// is marked captured and added as an upvalue descriptor; otherwise it
// recurses further up the chain (spec §4.2 "resolve_upvalue").
func (p *parser) resolveUpvalue(fs *fnState, name string) int {
	if fs.enclosing == nil {
		return -1
	}
	if local := p.resolveLocal(fs.enclosing, name); local != -1 {
		fs.enclosing.locals[local].isCaptured = true
		return p.addUpvalue(fs, uint8(local), true)
	}
	if upvalue := p.resolveUpvalue(fs.enclosing, name); upvalue != -1 {
		return p.addUpvalue(fs, uint8(upvalue), false)
	}
	return -1
}

func (p *parser) addUpvalue(fs *fnState, index uint8, isLocal bool) int {
	count := fs.function.UpvalueCount
	for i := 0; i < count; i++ {
		uv := &fs.upvalues[i]
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if count == 256 {
		p.error("Too many closure variables in function.")
		return 0
	}
	fs.upvalues[count] = upvalueRef{index: index, isLocal: isLocal}
	fs.function.UpvalueCount++
	return count
}

// namedVariable resolves name to a local, an upvalue, or a global, in that
// order, emitting the matching GET/SET opcode; an assignment is only
// honored when canAssign is true and a trailing '=' follows (spec §4.2
// "Assignment discipline").
func (p *parser) namedVariable(name token.Token, canAssign bool) {
	var arg int
	var getOp, setOp, getOpLong, setOpLong bytecode.Opcode
	fixedWidth := true

	if arg = p.resolveLocal(p.fn, name.Lexeme); arg != -1 {
		getOp, setOp = bytecode.OP_GET_LOCAL, bytecode.OP_SET_LOCAL
	} else if arg = p.resolveUpvalue(p.fn, name.Lexeme); arg != -1 {
		getOp, setOp = bytecode.OP_GET_UPVALUE, bytecode.OP_SET_UPVALUE
	} else {
		arg = p.identifierConstant(name)
		getOp, getOpLong = bytecode.OP_GET_GLOBAL, bytecode.OP_GET_GLOBAL_LONG
		setOp, setOpLong = bytecode.OP_SET_GLOBAL, bytecode.OP_SET_GLOBAL_LONG
		fixedWidth = false
	}

	if canAssign && p.match(token.EQUAL) {
		p.expression()
		if fixedWidth {
			p.emitBytes(byte(setOp), byte(arg))
		} else {
			p.emitConstantOp(setOp, setOpLong, arg)
		}
		return
	}

	if fixedWidth {
		p.emitBytes(byte(getOp), byte(arg))
	} else {
		p.emitConstantOp(getOp, getOpLong, arg)
	}
}

// ----------------------------------------------------------------------
// Pratt parsing
// ----------------------------------------------------------------------

type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules = map[token.Kind]parseRule{
	token.LEFT_PAREN:    {prefix: (*parser).grouping, infix: (*parser).call, precedence: precCall},
	token.DOT:           {infix: (*parser).dot, precedence: precCall},
	token.MINUS:         {prefix: (*parser).unary, infix: (*parser).binary, precedence: precTerm},
	token.PLUS:          {infix: (*parser).binary, precedence: precTerm},
	token.SLASH:         {infix: (*parser).binary, precedence: precFactor},
	token.STAR:          {infix: (*parser).binary, precedence: precFactor},
	token.BANG:          {prefix: (*parser).unary},
	token.BANG_EQUAL:    {infix: (*parser).binary, precedence: precEquality},
	token.EQUAL_EQUAL:   {infix: (*parser).binary, precedence: precEquality},
	token.GREATER:       {infix: (*parser).binary, precedence: precComparison},
	token.GREATER_EQUAL: {infix: (*parser).binary, precedence: precComparison},
	token.LESS:          {infix: (*parser).binary, precedence: precComparison},
	token.LESS_EQUAL:    {infix: (*parser).binary, precedence: precComparison},
	token.IDENTIFIER:    {prefix: (*parser).variable},
	token.STRING:        {prefix: (*parser).string},
	token.NUMBER:        {prefix: (*parser).number},
	token.AND:           {infix: (*parser).and_, precedence: precAnd},
	token.OR:            {infix: (*parser).or_, precedence: precOr},
	token.FALSE:         {prefix: (*parser).literal},
	token.NIL:           {prefix: (*parser).literal},
	token.TRUE:          {prefix: (*parser).literal},
	token.THIS:          {prefix: (*parser).this},
	token.SUPER:         {prefix: (*parser).super},
}

func (p *parser) getRule(kind token.Kind) parseRule { return rules[kind] }

func (p *parser) expression() { p.parsePrecedence(precAssignment) }

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	rule := p.getRule(p.previous.Kind)
	if rule.prefix == nil {
		p.error("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	rule.prefix(p, canAssign)

	for prec <= p.getRule(p.current.Kind).precedence {
		p.advance()
		infix := p.getRule(p.previous.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQUAL) {
		p.error("Invalid assignment target.")
	}
}

func (p *parser) grouping(canAssign bool) {
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func (p *parser) unary(canAssign bool) {
	opKind := p.previous.Kind
	p.parsePrecedence(precUnary)
	switch opKind {
	case token.BANG:
		p.emitOp(bytecode.OP_NOT)
	case token.MINUS:
		p.emitOp(bytecode.OP_NEGATE)
	}
}

func (p *parser) binary(canAssign bool) {
	opKind := p.previous.Kind
	rule := p.getRule(opKind)
	p.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case token.BANG_EQUAL:
		p.emitOp(bytecode.OP_NOT_EQUAL)
	case token.EQUAL_EQUAL:
		p.emitOp(bytecode.OP_EQUAL)
	case token.GREATER:
		p.emitOp(bytecode.OP_GREATER)
	case token.GREATER_EQUAL:
		p.emitOp(bytecode.OP_GREATER_EQUAL)
	case token.LESS:
		p.emitOp(bytecode.OP_LESS)
	case token.LESS_EQUAL:
		p.emitOp(bytecode.OP_LESS_EQUAL)
	case token.PLUS:
		p.emitOp(bytecode.OP_ADD)
	case token.MINUS:
		p.emitOp(bytecode.OP_SUBTRACT)
	case token.STAR:
		p.emitOp(bytecode.OP_MULTIPLY)
	case token.SLASH:
		p.emitOp(bytecode.OP_DIVIDE)
	}
}

func (p *parser) literal(canAssign bool) {
	switch p.previous.Kind {
	case token.FALSE:
		p.emitOp(bytecode.OP_FALSE)
	case token.TRUE:
		p.emitOp(bytecode.OP_TRUE)
	case token.NIL:
		p.emitOp(bytecode.OP_NIL)
	}
}

func (p *parser) number(canAssign bool) {
	f, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(bytecode.Number(f))
}

func (p *parser) string(canAssign bool) {
	lexeme := p.previous.Lexeme
	chars := lexeme[1 : len(lexeme)-1] // strip the surrounding quotes
	p.emitConstant(bytecode.FromObj(p.heap.Intern(chars)))
}

func (p *parser) variable(canAssign bool) { p.namedVariable(p.previous, canAssign) }

func (p *parser) this(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'this' outside of a class.")
		return
	}
	p.variable(false)
}

func (p *parser) super(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'super' outside of a class.")
	} else if !p.class.hasSuperclass {
		p.error("Can't use 'super' in a class with no superclass.")
	}

	p.consume(token.DOT, "Expect '.' after 'super'.")
	p.consume(token.IDENTIFIER, "Expect superclass method name.")
	name := p.identifierConstant(p.previous)

	p.namedVariable(thisToken, false)
	if p.match(token.LEFT_PAREN) {
		argCount := p.argumentList()
		p.namedVariable(superToken, false)
		p.emitConstantOp(bytecode.OP_SUPER_INVOKE, bytecode.OP_SUPER_INVOKE_LONG, name)
		p.emitByte(byte(argCount))
	} else {
		p.namedVariable(superToken, false)
		p.emitConstantOp(bytecode.OP_GET_SUPER, bytecode.OP_GET_SUPER_LONG, name)
	}
}

func (p *parser) and_(canAssign bool) {
	endJump := p.emitJump(bytecode.OP_JUMP_IF_FALSE)
	p.emitOp(bytecode.OP_POP)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func (p *parser) or_(canAssign bool) {
	elseJump := p.emitJump(bytecode.OP_JUMP_IF_FALSE)
	endJump := p.emitJump(bytecode.OP_JUMP)

	p.patchJump(elseJump)
	p.emitOp(bytecode.OP_POP)

	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func (p *parser) call(canAssign bool) {
	argCount := p.argumentList()
	p.emitBytes(byte(bytecode.OP_CALL), byte(argCount))
}

func (p *parser) argumentList() int {
	argCount := 0
	if !p.check(token.RIGHT_PAREN) {
		for {
			p.expression()
			if argCount == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return argCount
}

func (p *parser) dot(canAssign bool) {
	p.consume(token.IDENTIFIER, "Expect property name after '.'.")
	name := p.identifierConstant(p.previous)

	switch {
	case canAssign && p.match(token.EQUAL):
		p.expression()
		p.emitConstantOp(bytecode.OP_SET_PROPERTY, bytecode.OP_SET_PROPERTY_LONG, name)
	case p.match(token.LEFT_PAREN):
		argCount := p.argumentList()
		p.emitConstantOp(bytecode.OP_INVOKE, bytecode.OP_INVOKE_LONG, name)
		p.emitByte(byte(argCount))
	default:
		p.emitConstantOp(bytecode.OP_GET_PROPERTY, bytecode.OP_GET_PROPERTY_LONG, name)
	}
}
