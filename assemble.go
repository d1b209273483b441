package stchunk

import (
	"fmt"
	"strings"

	"github.com/e91d82c73/stchunk/container"
	"github.com/e91d82c73/stchunk/parser"
	tok "github.com/e91d82c73/stchunk/tokenizer"
)

// assembler folds container metadata and parsed objects into the final
// chunk sequence. It owns duplicate FQN detection; a collision fails the
// whole file.
type assembler struct {
	opts     Options
	chunks   []Chunk
	warnings []Warning
	seen     map[string]SourceSpan
}

func newAssembler(opts Options) *assembler {
	return &assembler{opts: opts, seen: map[string]SourceSpan{}}
}

func (a *assembler) add(c Chunk) error {
	if first, ok := a.seen[c.FQN]; ok {
		return &DuplicateFqnError{FQN: c.FQN, First: first, Second: c.Span}
	}
	a.seen[c.FQN] = c.Span
	a.chunks = append(a.chunks, c)
	return nil
}

func (a *assembler) warnf(span SourceSpan, format string, args ...any) {
	a.warnings = append(a.warnings, Warning{
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	})
}

func (a *assembler) result() *ParseResult {
	return &ParseResult{Chunks: a.chunks, Warnings: a.warnings}
}

// sec binds extracted text to its absolute base position so that spans
// computed inside the text can be reported in file coordinates.
type sec struct {
	text string
	base tok.Position
}

func newSec(s *container.Section) sec {
	if s == nil {
		return sec{base: tok.Position{Line: 1, Column: 1}}
	}
	return sec{text: s.Text, base: s.Location}
}

func (s sec) abs(local tok.Position) tok.Position {
	return tok.Rebase(s.base, local)
}

func (s sec) spanOf(sp parser.Span) SourceSpan {
	return spanOf(s.abs(sp.Start), s.abs(sp.End))
}

// all spans the whole section.
func (s sec) all() SourceSpan {
	end := tok.Position{
		Line:   s.base.Line,
		Column: s.base.Column,
		Offset: s.base.Offset + len(s.text),
	}
	return spanOf(s.base, end)
}

func (s sec) slice(sp parser.Span) string {
	start, end := sp.Start.Offset, sp.End.Offset
	if start < 0 || start > len(s.text) || end < start {
		return ""
	}
	if end > len(s.text) {
		end = len(s.text)
	}
	return s.text[start:end]
}

// convert turns parser warnings into file-coordinate warnings.
func (a *assembler) convert(ws []parser.Warning, s sec) {
	for _, w := range ws {
		p := s.abs(w.Pos)
		a.warnf(spanOf(p, p), "%s", w.Message)
	}
}

func chunkTypeForObject(kind parser.ObjectKind) (ChunkType, bool) {
	switch kind {
	case parser.KindProgram:
		return ChunkProgram, true
	case parser.KindFunctionBlock:
		return ChunkFunctionBlock, true
	case parser.KindFunction:
		return ChunkFunction, true
	case parser.KindInterface:
		return ChunkInterface, true
	default:
		return ChunkBlock, false
	}
}

func chunkTypeForType(kind parser.TypeKind) ChunkType {
	switch kind {
	case parser.TypeEnum:
		return ChunkEnum
	case parser.TypeAlias:
		return ChunkTypeAlias
	case parser.TypeInterface:
		return ChunkInterface
	default:
		return ChunkStruct
	}
}

// classify applies the variable mapping rule: globals and externals stand
// alone as variables, everything else is a member field.
func classify(class string) (ChunkType, string) {
	if class == "global" || class == "external" {
		return ChunkVariable, "variable"
	}
	return ChunkField, "field"
}

func assembleContainer(doc *container.Document, opts Options) (*ParseResult, error) {
	a := newAssembler(opts)

	var err error
	switch doc.Kind {
	case container.KindGVL:
		err = a.gvl(doc)
	case container.KindDUT:
		err = a.dut(doc)
	case container.KindInterface:
		err = a.itf(doc)
	default:
		err = a.pou(doc)
	}
	if err != nil {
		return nil, err
	}
	return a.result(), nil
}

// pou assembles a .TcPOU document: the POU chunk, its variables, methods,
// properties, actions and control-flow blocks.
func (a *assembler) pou(doc *container.Document) error {
	declSec := newSec(doc.Declaration)

	obj, pwarns, err := parser.ParseDeclaration(declSec.text)
	if err != nil {
		return err
	}
	a.convert(pwarns, declSec)

	pouType := string(obj.Kind)
	chunkType, known := chunkTypeForObject(obj.Kind)
	if !known {
		a.warnf(declSec.all(), "POU %s has no recognizable header, emitting a block chunk", doc.Name)
	}

	scope := NewScope(a.opts.Namespace, doc.Name)

	meta := Metadata{
		"kind":     strings.ToLower(string(chunkType)),
		"pou_type": pouType,
		"pou_name": doc.Name,
	}
	a.putCommon(meta, doc.ID, obj)

	code := declSec.text
	span := declSec.all()
	implSec, implOK := a.implementation(doc.Implementation, scope, meta, declSec.all())
	if implOK {
		if strings.TrimSpace(implSec.text) != "" {
			code = code + "\n\n" + implSec.text
		}
		span.EndOffset = implSec.all().EndOffset
	}

	if err := a.add(Chunk{Type: chunkType, FQN: scope.FQN(), Span: span, Code: code, Metadata: meta}); err != nil {
		return err
	}

	if err := a.variables(obj.Decls, scope, declSec, pouType, doc.Name, nil); err != nil {
		return err
	}
	if err := a.types(obj.Types, declSec); err != nil {
		return err
	}
	if a.opts.CommentChunks {
		if err := a.comments(declSec, scope); err != nil {
			return err
		}
	}

	if implOK {
		if err := a.body(implSec, scope, Metadata{"pou_type": pouType, "pou_name": doc.Name}); err != nil {
			return err
		}
		if a.opts.CommentChunks {
			if err := a.comments(implSec, scope); err != nil {
				return err
			}
		}
	}

	for _, m := range doc.Methods {
		if err := a.method(m, scope, pouType, doc.Name); err != nil {
			return err
		}
	}
	for _, p := range doc.Properties {
		if err := a.property(p, scope, pouType, doc.Name); err != nil {
			return err
		}
	}
	for _, act := range doc.Actions {
		if err := a.action(act, scope, pouType, doc.Name, declSec.all()); err != nil {
			return err
		}
	}

	return nil
}

// implementation resolves the body element. Graphical bodies produce no
// statement chunks, only a warning and an implementation_kind tag on the
// enclosing structural chunk.
func (a *assembler) implementation(impl *container.Implementation, scope Scope, meta Metadata, at SourceSpan) (sec, bool) {
	if impl == nil {
		return sec{}, false
	}
	if impl.Kind == container.ImplGraphical {
		meta["implementation_kind"] = impl.Language
		a.warnf(at, "%s: %s implementation is not parseable, structural chunk only",
			scope.FQN(), impl.Language)
		return sec{}, false
	}
	meta["implementation_kind"] = "ST"
	return newSec(&impl.Section), true
}

// putCommon copies header attributes shared by every structural chunk.
func (a *assembler) putCommon(meta Metadata, id string, obj *parser.Object) {
	if id != "" {
		meta["pou_id"] = id
	}
	if a.opts.Namespace != "" {
		meta["namespace"] = a.opts.Namespace
	}
	if obj.Visibility != "" {
		meta["visibility"] = strings.ToLower(obj.Visibility)
	}
	if obj.Abstract {
		meta["abstract"] = true
	}
	if obj.Final {
		meta["final"] = true
	}
	if len(obj.Extends) > 0 {
		meta["extends"] = strings.Join(obj.Extends, ", ")
	}
	if len(obj.Implements) > 0 {
		meta["implements"] = strings.Join(obj.Implements, ", ")
	}
	if obj.ReturnType != "" {
		meta["data_type"] = obj.ReturnType
	}
}

// variables emits one field or variable chunk per declared name.
func (a *assembler) variables(decls []*parser.Declaration, scope Scope, s sec, pouType, pouName string, extra Metadata) error {
	for _, d := range decls {
		chunkType, kind := classify(d.Class)

		meta := Metadata{
			"kind":        kind,
			"pou_name":    pouName,
			"var_section": d.Section,
			"var_class":   d.Class,
			"data_type":   d.DataType,
		}
		if pouType != "" {
			meta["pou_type"] = pouType
		}
		if d.Address != "" {
			meta["hw_address"] = d.Address
		}
		if d.Initial != "" {
			meta["initial_value"] = d.Initial
		}
		if d.Retain {
			meta["retain"] = true
		}
		if d.Persistent {
			meta["persistent"] = true
		}
		if d.Constant {
			meta["constant"] = true
		}
		for k, v := range extra {
			meta[k] = v
		}

		code := s.slice(d.Span())
		if code == "" {
			code = declCode(d)
		}

		err := a.add(Chunk{
			Type:     chunkType,
			FQN:      scope.Child(d.Name).FQN(),
			Span:     s.spanOf(d.Span()),
			Code:     code,
			Metadata: meta,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// declCode reconstructs a declaration line when the source slice is not
// available.
func declCode(d *parser.Declaration) string {
	var b strings.Builder
	b.WriteString(d.Name)
	if d.Address != "" {
		b.WriteString(" AT ")
		b.WriteString(d.Address)
	}
	b.WriteString(" : ")
	if d.DataType != "" {
		b.WriteString(d.DataType)
	} else {
		b.WriteString("UNKNOWN")
	}
	if d.Initial != "" {
		b.WriteString(" := ")
		b.WriteString(d.Initial)
	}
	b.WriteString(";")
	return b.String()
}

// types emits struct/enum/alias/interface chunks with their members.
func (a *assembler) types(defs []*parser.TypeDef, s sec) error {
	for _, def := range defs {
		if err := a.typeDef(def, s); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembler) typeDef(def *parser.TypeDef, s sec) error {
	chunkType := chunkTypeForType(def.Kind)
	scope := NewScope(a.opts.Namespace, def.Name)

	meta := Metadata{"kind": string(def.Kind)}
	if a.opts.Namespace != "" {
		meta["namespace"] = a.opts.Namespace
	}
	if def.BaseType != "" {
		meta["data_type"] = def.BaseType
	}
	if len(def.Extends) > 0 {
		meta["extends"] = strings.Join(def.Extends, ", ")
	}

	err := a.add(Chunk{
		Type:     chunkType,
		FQN:      scope.FQN(),
		Span:     s.spanOf(def.Span()),
		Code:     s.slice(def.Span()),
		Metadata: meta,
	})
	if err != nil {
		return err
	}

	for _, f := range def.Fields {
		fieldMeta := Metadata{
			"kind":        "field",
			"parent_name": def.Name,
			"var_class":   f.Class,
			"data_type":   f.DataType,
		}
		if f.Initial != "" {
			fieldMeta["initial_value"] = f.Initial
		}
		err := a.add(Chunk{
			Type:     ChunkField,
			FQN:      scope.Child(f.Name).FQN(),
			Span:     s.spanOf(f.Span()),
			Code:     s.slice(f.Span()),
			Metadata: fieldMeta,
		})
		if err != nil {
			return err
		}
	}

	for _, v := range def.Values {
		valueMeta := Metadata{"kind": "enum_value", "parent_name": def.Name}
		if v.Value != "" {
			valueMeta["initial_value"] = v.Value
		}
		err := a.add(Chunk{
			Type:     ChunkField,
			FQN:      scope.Child(v.Name).FQN(),
			Span:     s.spanOf(v.Span()),
			Code:     s.slice(v.Span()),
			Metadata: valueMeta,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// body parses an ST implementation and emits control-flow block chunks.
// A nesting mismatch keeps the blocks found so far and downgrades the
// failure to a warning on the enclosing scope.
func (a *assembler) body(s sec, scope Scope, baseMeta Metadata) error {
	stmts, pwarns, err := parser.ParseBody(s.text)
	a.convert(pwarns, s)
	if err != nil {
		a.warnf(s.all(), "%s: body aborted: %s", scope.FQN(), err)
	}

	if !a.opts.EmitBlocks() {
		return nil
	}
	return a.blocks(stmts, scope, s, baseMeta, 1)
}

func (a *assembler) blocks(stmts []parser.Statement, scope Scope, s sec, baseMeta Metadata, depth int) error {
	if a.opts.MaxBlockDepth > 0 && depth > a.opts.MaxBlockDepth {
		return nil
	}

	for _, stmt := range stmts {
		kind, bodies, ok := blockOf(stmt)
		if !ok {
			continue
		}

		span := stmt.Span()
		startLine := s.abs(span.Start).Line
		blockScope := scope.Block(string(kind), startLine)

		meta := Metadata{"kind": string(kind)}
		for k, v := range baseMeta {
			meta[k] = v
		}

		err := a.add(Chunk{
			Type:     ChunkBlock,
			FQN:      blockScope.FQN(),
			Span:     s.spanOf(span),
			Code:     s.slice(span),
			Metadata: meta,
		})
		if err != nil {
			return err
		}

		for _, body := range bodies {
			if err := a.blocks(body, blockScope, s, baseMeta, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// blockOf maps a statement to its chunkable block kind and nested bodies.
func blockOf(stmt parser.Statement) (parser.BlockKind, [][]parser.Statement, bool) {
	switch st := stmt.(type) {
	case *parser.If:
		var bodies [][]parser.Statement
		for _, br := range st.Branches {
			bodies = append(bodies, br.Body)
		}
		return parser.BlockIf, bodies, true
	case *parser.Case:
		var bodies [][]parser.Statement
		for _, e := range st.Entries {
			bodies = append(bodies, e.Body)
		}
		if st.Else != nil {
			bodies = append(bodies, st.Else)
		}
		return parser.BlockCase, bodies, true
	case *parser.For:
		return parser.BlockFor, [][]parser.Statement{st.Body}, true
	case *parser.While:
		return parser.BlockWhile, [][]parser.Statement{st.Body}, true
	case *parser.Repeat:
		return parser.BlockRepeat, [][]parser.Statement{st.Body}, true
	default:
		return "", nil, false
	}
}

// comments tokenizes a section keeping comments and emits one comment
// chunk per comment token.
func (a *assembler) comments(s sec, scope Scope) error {
	t := tok.NewStTokenizer(s.text, tok.TokenizerOptions{
		SkipWhitespace: true,
		SkipPragmas:    true,
	})
	tokens, err := t.AllTokens()
	if err != nil {
		return nil
	}

	for _, token := range tokens {
		if token.Type != tok.LINE_COMMENT && token.Type != tok.BLOCK_COMMENT {
			continue
		}
		start := s.abs(token.Position)
		end := tok.Position{Line: start.Line, Column: start.Column, Offset: start.Offset + len(token.Value)}

		// The start line alone is not unique: several comments can share a
		// line, so the column joins the segment.
		err := a.add(Chunk{
			Type:     ChunkComment,
			FQN:      scope.Child(fmt.Sprintf("comment_%d_%d", start.Line, start.Column)).FQN(),
			Span:     spanOf(start, end),
			Code:     token.Value,
			Metadata: Metadata{"kind": "comment"},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// method assembles one Method child: its chunk, local variables and body
// blocks, all under the POU's scope.
func (a *assembler) method(m container.Member, pouScope Scope, pouType, pouName string) error {
	declSec := newSec(m.Declaration)

	obj, pwarns, err := parser.ParseDeclaration(declSec.text)
	if err != nil {
		return err
	}
	a.convert(pwarns, declSec)

	scope := pouScope.Child(m.Name)

	meta := Metadata{
		"kind":        "method",
		"pou_type":    pouType,
		"pou_name":    pouName,
		"method_name": m.Name,
	}
	if m.ID != "" {
		meta["method_id"] = m.ID
	}
	if obj.Visibility != "" {
		meta["visibility"] = strings.ToLower(obj.Visibility)
	}
	if obj.Abstract {
		meta["abstract"] = true
	}
	if obj.ReturnType != "" {
		meta["data_type"] = obj.ReturnType
	}

	code := declSec.text
	span := declSec.all()
	implSec, implOK := a.implementation(m.Implementation, scope, meta, declSec.all())
	if implOK {
		if strings.TrimSpace(implSec.text) != "" {
			code = code + "\n\n" + implSec.text
		}
		span.EndOffset = implSec.all().EndOffset
	}

	if err := a.add(Chunk{Type: ChunkMethod, FQN: scope.FQN(), Span: span, Code: code, Metadata: meta}); err != nil {
		return err
	}

	extra := Metadata{"method_name": m.Name}
	if err := a.variables(obj.Decls, scope, declSec, pouType, pouName, extra); err != nil {
		return err
	}
	if implOK {
		return a.body(implSec, scope, Metadata{
			"pou_type": pouType, "pou_name": pouName, "method_name": m.Name,
		})
	}
	return nil
}

// property assembles one Property child and its Get/Set accessors.
func (a *assembler) property(p container.Property, pouScope Scope, pouType, pouName string) error {
	declSec := newSec(p.Declaration)

	obj, pwarns, err := parser.ParseDeclaration(declSec.text)
	if err != nil {
		return err
	}
	a.convert(pwarns, declSec)

	scope := pouScope.Child(p.Name)

	meta := Metadata{
		"kind":     "property",
		"pou_type": pouType,
		"pou_name": pouName,
		"has_get":  p.Get != nil,
		"has_set":  p.Set != nil,
	}
	if p.ID != "" {
		meta["property_id"] = p.ID
	}
	if obj.ReturnType != "" {
		meta["data_type"] = obj.ReturnType
	}
	if obj.Visibility != "" {
		meta["visibility"] = strings.ToLower(obj.Visibility)
	}

	err = a.add(Chunk{
		Type:     ChunkProperty,
		FQN:      scope.FQN(),
		Span:     declSec.all(),
		Code:     declSec.text,
		Metadata: meta,
	})
	if err != nil {
		return err
	}

	if p.Get != nil {
		if err := a.accessor(*p.Get, scope.Child("GET"), "get_accessor", pouType, pouName); err != nil {
			return err
		}
	}
	if p.Set != nil {
		if err := a.accessor(*p.Set, scope.Child("SET"), "set_accessor", pouType, pouName); err != nil {
			return err
		}
	}
	return nil
}

// accessor emits a chunk for a Get or Set body when it carries code.
func (a *assembler) accessor(acc container.Accessor, scope Scope, kind, pouType, pouName string) error {
	declSec := newSec(acc.Declaration)

	obj, pwarns, err := parser.ParseDeclaration(declSec.text)
	if err != nil {
		return err
	}
	a.convert(pwarns, declSec)

	meta := Metadata{"kind": kind, "pou_type": pouType, "pou_name": pouName}

	code := declSec.text
	span := declSec.all()
	implSec, implOK := a.implementation(acc.Implementation, scope, meta, declSec.all())
	if implOK {
		if strings.TrimSpace(implSec.text) != "" {
			code = code + "\n\n" + implSec.text
		}
		span.EndOffset = implSec.all().EndOffset
	}

	if strings.TrimSpace(code) == "" {
		return nil
	}

	err = a.add(Chunk{Type: ChunkProperty, FQN: scope.FQN(), Span: span, Code: code, Metadata: meta})
	if err != nil {
		return err
	}

	if err := a.variables(obj.Decls, scope, declSec, pouType, pouName, nil); err != nil {
		return err
	}
	if implOK {
		return a.body(implSec, scope, Metadata{"pou_type": pouType, "pou_name": pouName})
	}
	return nil
}

// action assembles one Action child. Actions have no declaration header of
// their own; local VAR blocks may still precede the statements.
func (a *assembler) action(act container.Member, pouScope Scope, pouType, pouName string, at SourceSpan) error {
	scope := pouScope.Child(act.Name)

	meta := Metadata{
		"kind":        "action",
		"pou_type":    pouType,
		"pou_name":    pouName,
		"action_name": act.Name,
	}
	if act.ID != "" {
		meta["action_id"] = act.ID
	}

	implSec, implOK := a.implementation(act.Implementation, scope, meta, at)
	if !implOK && act.Implementation == nil {
		a.warnf(at, "action %s has no implementation", scope.FQN())
	}

	code := ""
	span := SourceSpan{}
	if implOK {
		code = implSec.text
		span = implSec.all()
	}

	if strings.TrimSpace(code) == "" && act.Implementation != nil && act.Implementation.Kind != container.ImplGraphical {
		return nil
	}

	if err := a.add(Chunk{Type: ChunkAction, FQN: scope.FQN(), Span: span, Code: code, Metadata: meta}); err != nil {
		return err
	}

	if !implOK {
		return nil
	}

	// An action body may open with VAR blocks before its statements
	obj, pwarns, err := parser.ParseObject(implSec.text)
	if err != nil {
		a.convert(pwarns, implSec)
		a.warnf(implSec.all(), "%s: body aborted: %s", scope.FQN(), err)
		obj = &parser.Object{}
	} else {
		a.convert(pwarns, implSec)
	}

	extra := Metadata{"action_name": act.Name}
	if err := a.variables(obj.Decls, scope, implSec, pouType, pouName, extra); err != nil {
		return err
	}

	if a.opts.EmitBlocks() {
		baseMeta := Metadata{
			"pou_type": pouType, "pou_name": pouName, "action_name": act.Name,
		}
		return a.blocks(obj.Body, scope, implSec, baseMeta, 1)
	}
	return nil
}

// gvl assembles a .TcGVL document: one gvl chunk plus a variable chunk per
// declared global.
func (a *assembler) gvl(doc *container.Document) error {
	declSec := newSec(doc.Declaration)

	obj, pwarns, err := parser.ParseDeclaration(declSec.text)
	if err != nil {
		return err
	}
	a.convert(pwarns, declSec)

	scope := NewScope(a.opts.Namespace, doc.Name)

	meta := Metadata{"kind": "gvl", "pou_name": doc.Name}
	if doc.ID != "" {
		meta["pou_id"] = doc.ID
	}
	if a.opts.Namespace != "" {
		meta["namespace"] = a.opts.Namespace
	}

	err = a.add(Chunk{
		Type:     ChunkGvl,
		FQN:      scope.FQN(),
		Span:     declSec.all(),
		Code:     declSec.text,
		Metadata: meta,
	})
	if err != nil {
		return err
	}

	return a.variables(obj.Decls, scope, declSec, "", doc.Name, nil)
}

// dut assembles a .TcDUT document: struct/enum/alias chunks with members.
func (a *assembler) dut(doc *container.Document) error {
	declSec := newSec(doc.Declaration)

	obj, pwarns, err := parser.ParseDeclaration(declSec.text)
	if err != nil {
		return err
	}
	a.convert(pwarns, declSec)

	if len(obj.Types) == 0 {
		a.warnf(declSec.all(), "DUT %s has no TYPE definition", doc.Name)
		return nil
	}
	return a.types(obj.Types, declSec)
}

// itf assembles a .TcPOU interface object: the interface chunk plus one
// method chunk per Method child.
func (a *assembler) itf(doc *container.Document) error {
	declSec := newSec(doc.Declaration)

	obj, pwarns, err := parser.ParseDeclaration(declSec.text)
	if err != nil {
		return err
	}
	a.convert(pwarns, declSec)

	scope := NewScope(a.opts.Namespace, doc.Name)

	meta := Metadata{"kind": "interface", "pou_name": doc.Name}
	a.putCommon(meta, doc.ID, obj)

	err = a.add(Chunk{
		Type:     ChunkInterface,
		FQN:      scope.FQN(),
		Span:     declSec.all(),
		Code:     declSec.text,
		Metadata: meta,
	})
	if err != nil {
		return err
	}

	for _, m := range doc.Methods {
		if err := a.method(m, scope, "INTERFACE", doc.Name); err != nil {
			return err
		}
	}
	return nil
}
