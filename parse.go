package stchunk

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/e91d82c73/stchunk/container"
	"github.com/e91d82c73/stchunk/parser"
	tok "github.com/e91d82c73/stchunk/tokenizer"
)

// Parse dispatches raw file bytes on the filename extension: container
// formats go through the XML extractor, .st files are parsed directly.
func Parse(filename string, data []byte, opts Options) (*ParseResult, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tcpou", ".tcgvl", ".tcdut", ".tcio":
		return ParseContainer(data, opts)
	case ".st":
		src, err := container.Decode(data)
		if err != nil {
			return nil, err
		}
		return ParseSource(src, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}
}

// ParseContainer parses the bytes of one .TcPOU, .TcGVL or .TcDUT file
// into chunks. A structurally broken container fails as a whole; parse
// problems inside code sections degrade to warnings.
func ParseContainer(data []byte, opts Options) (*ParseResult, error) {
	doc, err := container.Extract(data)
	if err != nil {
		return nil, err
	}
	if doc.Declaration == nil && doc.Implementation == nil {
		return nil, fmt.Errorf("%s: %w", doc.Name, ErrNoContent)
	}
	return assembleContainer(doc, opts)
}

// ParseSource parses plain Structured Text: a full POU, a TYPE-only file
// or a bare list of global declarations.
func ParseSource(src string, opts Options) (*ParseResult, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrNoContent
	}

	obj, pwarns, err := parser.ParseObject(src)
	if obj == nil {
		return nil, err
	}

	a := newAssembler(opts)
	s := sec{text: src, base: tok.Position{Line: 1, Column: 1}}
	a.convert(pwarns, s)
	if err != nil {
		a.warnf(s.spanOf(obj.Span()), "body aborted: %s", err)
	}

	if aerr := a.sourceObject(obj, s); aerr != nil {
		return nil, aerr
	}
	return a.result(), nil
}

// sourceObject assembles chunks for a POU parsed from raw text, where
// declaration and body share one coordinate space.
func (a *assembler) sourceObject(obj *parser.Object, s sec) error {
	// TYPE-only files carry no POU of their own
	if obj.Kind == parser.KindUnknown && obj.Name == "" {
		if err := a.types(obj.Types, s); err != nil {
			return err
		}
		return a.looseVariables(obj, s)
	}

	pouType := string(obj.Kind)
	chunkType, known := chunkTypeForObject(obj.Kind)
	if !known {
		a.warnf(s.spanOf(obj.Span()), "%s has no recognizable header, emitting a block chunk", obj.Name)
	}

	scope := NewScope(a.opts.Namespace, obj.Name)

	meta := Metadata{
		"kind":     strings.ToLower(string(chunkType)),
		"pou_type": pouType,
		"pou_name": obj.Name,
	}
	a.putCommon(meta, "", obj)

	err := a.add(Chunk{
		Type:     chunkType,
		FQN:      scope.FQN(),
		Span:     s.spanOf(obj.Span()),
		Code:     s.slice(obj.Span()),
		Metadata: meta,
	})
	if err != nil {
		return err
	}

	if err := a.variables(obj.Decls, scope, s, pouType, obj.Name, nil); err != nil {
		return err
	}
	if err := a.types(obj.Types, s); err != nil {
		return err
	}
	if a.opts.CommentChunks {
		if err := a.comments(s, scope); err != nil {
			return err
		}
	}

	if a.opts.EmitBlocks() {
		baseMeta := Metadata{"pou_type": pouType, "pou_name": obj.Name}
		return a.blocks(obj.Body, scope, s, baseMeta, 1)
	}
	return nil
}

// looseVariables emits chunks for headerless global declarations, the GVL
// export style sometimes found in plain .st files.
func (a *assembler) looseVariables(obj *parser.Object, s sec) error {
	for _, d := range obj.Decls {
		chunkType, kind := classify(d.Class)

		meta := Metadata{
			"kind":        kind,
			"var_section": d.Section,
			"var_class":   d.Class,
			"data_type":   d.DataType,
		}
		if a.opts.Namespace != "" {
			meta["namespace"] = a.opts.Namespace
		}
		if d.Address != "" {
			meta["hw_address"] = d.Address
		}
		if d.Initial != "" {
			meta["initial_value"] = d.Initial
		}

		err := a.add(Chunk{
			Type:     chunkType,
			FQN:      NewScope(a.opts.Namespace, d.Name).FQN(),
			Span:     s.spanOf(d.Span()),
			Code:     s.slice(d.Span()),
			Metadata: meta,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
