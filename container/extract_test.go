package container

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	tok "github.com/e91d82c73/stchunk/tokenizer"
)

const pouXML = `<?xml version="1.0" encoding="utf-8"?>
<TcPlcObject Version="1.1.0.1" ProductVersion="3.1.4024.12">
  <POU Name="FB_Motor" Id="{ad2d3c08-be7e-4d02-a11b-5b6b7ad29dd3}">
    <Declaration><![CDATA[FUNCTION_BLOCK FB_Motor
VAR_INPUT
    bEnable : BOOL;
END_VAR]]></Declaration>
    <Implementation>
      <ST><![CDATA[IF bEnable THEN
    nCycles := nCycles + 1;
END_IF]]></ST>
    </Implementation>
    <Method Name="Start" Id="{11111111-0000-0000-0000-000000000001}">
      <Declaration><![CDATA[METHOD Start : BOOL]]></Declaration>
      <Implementation>
        <ST><![CDATA[Start := TRUE;]]></ST>
      </Implementation>
    </Method>
    <Action Name="Reset" Id="{11111111-0000-0000-0000-000000000002}">
      <Implementation>
        <ST><![CDATA[nCycles := 0;]]></ST>
      </Implementation>
    </Action>
    <Property Name="Speed" Id="{11111111-0000-0000-0000-000000000003}">
      <Declaration><![CDATA[PROPERTY Speed : LREAL]]></Declaration>
      <Get Name="Get" Id="{11111111-0000-0000-0000-000000000004}">
        <Declaration><![CDATA[VAR
END_VAR]]></Declaration>
        <Implementation>
          <ST><![CDATA[Speed := fSpeed;]]></ST>
        </Implementation>
      </Get>
    </Property>
  </POU>
</TcPlcObject>`

func TestExtractPOU(t *testing.T) {
	doc, err := ExtractString(pouXML)
	assert.NoError(t, err)

	assert.Equal(t, KindPOU, doc.Kind)
	assert.Equal(t, "FB_Motor", doc.Name)
	assert.Equal(t, "{ad2d3c08-be7e-4d02-a11b-5b6b7ad29dd3}", doc.ID)

	assert.NotZero(t, doc.Declaration)
	assert.True(t, strings.HasPrefix(doc.Declaration.Text, "FUNCTION_BLOCK FB_Motor"))

	assert.NotZero(t, doc.Implementation)
	assert.Equal(t, ImplST, doc.Implementation.Kind)
	assert.True(t, strings.HasPrefix(doc.Implementation.Section.Text, "IF bEnable THEN"))
}

func TestExtractSectionLocations(t *testing.T) {
	doc, err := ExtractString(pouXML)
	assert.NoError(t, err)

	index := tok.NewLineIndex(pouXML)

	// Each CDATA payload's location is its absolute position in the file
	declStart := strings.Index(pouXML, "FUNCTION_BLOCK FB_Motor")
	assert.Equal(t, index.Position(declStart), doc.Declaration.Location)

	implStart := strings.Index(pouXML, "IF bEnable THEN")
	assert.Equal(t, index.Position(implStart), doc.Implementation.Section.Location)

	methodDecl := strings.Index(pouXML, "METHOD Start : BOOL")
	assert.Equal(t, index.Position(methodDecl), doc.Methods[0].Declaration.Location)
}

func TestExtractMembers(t *testing.T) {
	doc, err := ExtractString(pouXML)
	assert.NoError(t, err)

	assert.Equal(t, 1, len(doc.Methods))
	m := doc.Methods[0]
	assert.Equal(t, "Start", m.Name)
	assert.Equal(t, "{11111111-0000-0000-0000-000000000001}", m.ID)
	assert.Equal(t, "METHOD Start : BOOL", m.Declaration.Text)
	assert.Equal(t, "Start := TRUE;", m.Implementation.Section.Text)

	assert.Equal(t, 1, len(doc.Actions))
	act := doc.Actions[0]
	assert.Equal(t, "Reset", act.Name)
	assert.Zero(t, act.Declaration)
	assert.Equal(t, "nCycles := 0;", act.Implementation.Section.Text)

	assert.Equal(t, 1, len(doc.Properties))
	prop := doc.Properties[0]
	assert.Equal(t, "Speed", prop.Name)
	assert.Equal(t, "PROPERTY Speed : LREAL", prop.Declaration.Text)
	assert.NotZero(t, prop.Get)
	assert.Zero(t, prop.Set)
	assert.Equal(t, "Speed := fSpeed;", prop.Get.Implementation.Section.Text)
}

func TestExtractGraphicalImplementation(t *testing.T) {
	src := `<?xml version="1.0" encoding="utf-8"?>
<TcPlcObject Version="1.1.0.1">
  <POU Name="P_Ladder" Id="{2}">
    <Declaration><![CDATA[PROGRAM P_Ladder]]></Declaration>
    <Implementation>
      <NWL>
        <XmlArchive>
          <Data>opaque network list payload</Data>
        </XmlArchive>
      </NWL>
    </Implementation>
  </POU>
</TcPlcObject>`

	doc, err := ExtractString(src)
	assert.NoError(t, err)

	assert.Equal(t, ImplGraphical, doc.Implementation.Kind)
	assert.Equal(t, "NWL", doc.Implementation.Language)
	assert.Equal(t, "", doc.Implementation.Section.Text)
}

func TestExtractGVL(t *testing.T) {
	src := `<?xml version="1.0" encoding="utf-8"?>
<TcPlcObject Version="1.1.0.1">
  <GVL Name="GVL_IO" Id="{3}">
    <Declaration><![CDATA[VAR_GLOBAL
    bEstop AT %IX0.0 : BOOL;
END_VAR]]></Declaration>
  </GVL>
</TcPlcObject>`

	doc, err := ExtractString(src)
	assert.NoError(t, err)
	assert.Equal(t, KindGVL, doc.Kind)
	assert.Equal(t, "GVL_IO", doc.Name)
	assert.True(t, strings.HasPrefix(doc.Declaration.Text, "VAR_GLOBAL"))
	assert.Zero(t, doc.Implementation)
}

func TestExtractDUT(t *testing.T) {
	src := `<?xml version="1.0" encoding="utf-8"?>
<TcPlcObject Version="1.1.0.1">
  <DUT Name="ST_Point" Id="{4}">
    <Declaration><![CDATA[TYPE ST_Point :
STRUCT
    x : LREAL;
END_STRUCT
END_TYPE]]></Declaration>
  </DUT>
</TcPlcObject>`

	doc, err := ExtractString(src)
	assert.NoError(t, err)
	assert.Equal(t, KindDUT, doc.Kind)
	assert.Equal(t, "ST_Point", doc.Name)
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"invalid xml", `<TcPlcObject><POU Name="X">`},
		{"wrong root", `<Project><POU Name="X"/></Project>`},
		{"no object element", `<TcPlcObject Version="1.1.0.1"></TcPlcObject>`},
		{"missing name", `<TcPlcObject><POU Id="{1}"><Declaration/></POU></TcPlcObject>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractString(tt.src)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedContainer))
		})
	}
}

func TestDecodeStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("<TcPlcObject/>")...)

	src, err := Decode(data)
	assert.NoError(t, err)
	assert.Equal(t, "<TcPlcObject/>", src)
}

func TestDecodeUTF16(t *testing.T) {
	// UTF-16LE with BOM
	text := "<a/>"
	data := []byte{0xFF, 0xFE}
	for _, r := range text {
		data = append(data, byte(r), 0)
	}

	src, err := Decode(data)
	assert.NoError(t, err)
	assert.Equal(t, text, src)
}
