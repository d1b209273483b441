package parser

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseFunctionBlockHeader(t *testing.T) {
	src := `FUNCTION_BLOCK FB_Motor EXTENDS FB_Base IMPLEMENTS I_Device, I_Diag
VAR_INPUT
    bEnable : BOOL;
END_VAR`

	obj, warnings, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))

	assert.Equal(t, KindFunctionBlock, obj.Kind)
	assert.Equal(t, "FB_Motor", obj.Name)
	assert.Equal(t, []string{"FB_Base"}, obj.Extends)
	assert.Equal(t, []string{"I_Device", "I_Diag"}, obj.Implements)
}

func TestParseFunctionReturnType(t *testing.T) {
	src := `FUNCTION F_Clamp : LREAL
VAR_INPUT
    fValue : LREAL;
END_VAR`

	obj, _, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, KindFunction, obj.Kind)
	assert.Equal(t, "LREAL", obj.ReturnType)
}

func TestParseMethodModifiers(t *testing.T) {
	src := `METHOD PUBLIC Initialize : BOOL
VAR_INPUT
    nRetries : INT;
END_VAR`

	obj, _, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, KindMethod, obj.Kind)
	assert.Equal(t, "Initialize", obj.Name)
	assert.Equal(t, "PUBLIC", obj.Visibility)
	assert.Equal(t, "BOOL", obj.ReturnType)
}

func TestVarSections(t *testing.T) {
	tests := []struct {
		section string
		class   string
	}{
		{"VAR", "local"},
		{"VAR_INPUT", "input"},
		{"VAR_OUTPUT", "output"},
		{"VAR_IN_OUT", "in_out"},
		{"VAR_TEMP", "temp"},
		{"VAR_STAT", "static"},
		{"VAR_GLOBAL", "global"},
		{"VAR_EXTERNAL", "external"},
	}

	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			src := tt.section + "\n    x : INT;\nEND_VAR"
			obj, _, err := ParseDeclaration(src)
			assert.NoError(t, err)
			assert.Equal(t, 1, len(obj.Decls))
			assert.Equal(t, tt.section, obj.Decls[0].Section)
			assert.Equal(t, tt.class, obj.Decls[0].Class)
		})
	}
}

func TestMultiNameDeclaration(t *testing.T) {
	src := "VAR\n    a, b, c : BOOL;\nEND_VAR"

	obj, _, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(obj.Decls))
	assert.Equal(t, "a", obj.Decls[0].Name)
	assert.Equal(t, "c", obj.Decls[2].Name)
	// All three share the declared type
	for _, d := range obj.Decls {
		assert.Equal(t, "BOOL", d.DataType)
	}
}

func TestQualifiersAndAddresses(t *testing.T) {
	src := `VAR RETAIN PERSISTENT
    nCycles : UDINT;
END_VAR
VAR CONSTANT
    MAX_AXES : INT := 8;
END_VAR
VAR
    bInput AT %IX0.0 : BOOL;
    wOutput AT %QW2 : WORD;
END_VAR`

	obj, _, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, 4, len(obj.Decls))

	assert.True(t, obj.Decls[0].Retain)
	assert.True(t, obj.Decls[0].Persistent)

	assert.True(t, obj.Decls[1].Constant)
	assert.Equal(t, "8", obj.Decls[1].Initial)

	assert.Equal(t, "%IX0.0", obj.Decls[2].Address)
	assert.Equal(t, "%QW2", obj.Decls[3].Address)
}

func TestTypeSpecs(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		expected string
	}{
		{"array", "ARRAY[0..9] OF INT", "ARRAY[0..9] OF INT"},
		{"two dimensional array", "ARRAY[1..3, 1..4] OF LREAL", "ARRAY[1..3, 1..4] OF LREAL"},
		{"array of array", "ARRAY[0..1] OF ARRAY[0..2] OF BYTE", "ARRAY[0..1] OF ARRAY[0..2] OF BYTE"},
		{"pointer", "POINTER TO ST_Point", "POINTER TO ST_Point"},
		{"reference", "REFERENCE TO FB_Axis", "REFERENCE TO FB_Axis"},
		{"sized string", "STRING(80)", "STRING(80)"},
		{"bracket sized string", "WSTRING[100]", "WSTRING[100]"},
		{"dotted name", "Tc2_Standard.TON", "Tc2_Standard.TON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "VAR\n    x : " + tt.declared + ";\nEND_VAR"
			obj, _, err := ParseDeclaration(src)
			assert.NoError(t, err)
			assert.Equal(t, 1, len(obj.Decls))
			assert.Equal(t, tt.expected, obj.Decls[0].DataType)
		})
	}
}

func TestInitializerKeptRawOnParseFailure(t *testing.T) {
	src := "VAR\n    aValues : ARRAY[0..2] OF INT := [1, 2, 3];\nEND_VAR"

	obj, warnings, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(obj.Decls))
	// The aggregate initializer is not an expression; raw text survives
	assert.Equal(t, "[1, 2, 3]", obj.Decls[0].Initial)
	assert.Zero(t, obj.Decls[0].InitExpr)
	assert.True(t, len(warnings) >= 1)
}

func TestParsedInitializer(t *testing.T) {
	src := "VAR\n    nLimit : INT := 10 * 2;\nEND_VAR"

	obj, warnings, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))
	assert.Equal(t, "10 * 2", obj.Decls[0].Initial)
	assert.NotZero(t, obj.Decls[0].InitExpr)
	assert.Equal(t, "(10 * 2)", obj.Decls[0].InitExpr.String())
}

func TestBadLineDoesNotDiscardBlock(t *testing.T) {
	src := `VAR
    good1 : INT;
    : : nonsense : : ;
    good2 : BOOL;
END_VAR`

	obj, warnings, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(obj.Decls))
	assert.Equal(t, "good1", obj.Decls[0].Name)
	assert.Equal(t, "good2", obj.Decls[1].Name)
	assert.True(t, len(warnings) >= 1)
}

func TestStructType(t *testing.T) {
	src := `TYPE ST_Point :
STRUCT
    x : LREAL;
    y : LREAL;
    label : STRING(32);
END_STRUCT
END_TYPE`

	obj, _, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(obj.Types))

	def := obj.Types[0]
	assert.Equal(t, TypeStruct, def.Kind)
	assert.Equal(t, "ST_Point", def.Name)
	assert.Equal(t, 3, len(def.Fields))
	assert.Equal(t, "x", def.Fields[0].Name)
	assert.Equal(t, "STRING(32)", def.Fields[2].DataType)
}

func TestEnumType(t *testing.T) {
	src := `TYPE E_State :
(
    Idle := 0,
    Running := 10,
    Faulted
) UDINT;
END_TYPE`

	obj, _, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(obj.Types))

	def := obj.Types[0]
	assert.Equal(t, TypeEnum, def.Kind)
	assert.Equal(t, "E_State", def.Name)
	assert.Equal(t, "UDINT", def.BaseType)
	assert.Equal(t, 3, len(def.Values))
	assert.Equal(t, "Idle", def.Values[0].Name)
	assert.Equal(t, "0", def.Values[0].Value)
	assert.Equal(t, "10", def.Values[1].Value)
	assert.Equal(t, "", def.Values[2].Value)
}

func TestAliasType(t *testing.T) {
	src := "TYPE T_Velocity : LREAL;\nEND_TYPE"

	obj, _, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(obj.Types))
	assert.Equal(t, TypeAlias, obj.Types[0].Kind)
	assert.Equal(t, "LREAL", obj.Types[0].BaseType)
}

func TestInterfaceHeader(t *testing.T) {
	src := "INTERFACE I_Device EXTENDS I_Base"

	obj, _, err := ParseDeclaration(src)
	assert.NoError(t, err)
	assert.Equal(t, KindInterface, obj.Kind)
	assert.Equal(t, "I_Device", obj.Name)
	assert.Equal(t, []string{"I_Base"}, obj.Extends)
}
