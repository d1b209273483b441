// Package container extracts declaration and implementation sections from
// TwinCAT XML project files (.TcPOU, .TcGVL, .TcDUT, .TcIO). The XML is a
// thin envelope around CDATA payloads of Structured Text; extraction keeps
// the absolute position of every payload so that downstream spans can be
// reported in file coordinates.
package container

import (
	tok "github.com/e91d82c73/stchunk/tokenizer"
)

// ObjectKind identifies the top-level element of a TwinCAT project file.
type ObjectKind string

const (
	KindPOU       ObjectKind = "POU"
	KindGVL       ObjectKind = "GVL"
	KindDUT       ObjectKind = "DUT"
	KindInterface ObjectKind = "Itf"
)

// Section is one CDATA payload together with the absolute position of its
// first content byte in the decoded file.
type Section struct {
	Text     string
	Location tok.Position
}

// ImplKind tells whether an implementation body is Structured Text or one
// of the graphical languages.
type ImplKind string

const (
	ImplST        ImplKind = "ST"
	ImplGraphical ImplKind = "graphical"
)

// Implementation is the body of a POU, method, action or accessor. For
// graphical bodies Language holds the element tag (LD, FBD, SFC, CFC or
// NWL) and Section is empty.
type Implementation struct {
	Kind     ImplKind
	Language string
	Section  Section
}

// Member is a Method or Action child element. Actions carry no declaration
// section of their own.
type Member struct {
	Name           string
	ID             string
	Declaration    *Section
	Implementation *Implementation
}

// Accessor is a property Get or Set element.
type Accessor struct {
	Declaration    *Section
	Implementation *Implementation
}

// Property is a Property child element with its optional accessors.
type Property struct {
	Name        string
	ID          string
	Declaration *Section
	Get         *Accessor
	Set         *Accessor
}

// Document is the extracted content of one TwinCAT project file. Source is
// the full decoded text, used for absolute offset slicing.
type Document struct {
	Kind           ObjectKind
	Name           string
	ID             string
	Source         string
	Declaration    *Section
	Implementation *Implementation
	Methods        []Member
	Actions        []Member
	Properties     []Property
}
