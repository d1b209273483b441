package parser

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseIfElsifElse(t *testing.T) {
	src := `IF nState = 0 THEN
    bIdle := TRUE;
ELSIF nState < 10 THEN
    bIdle := FALSE;
ELSE
    LogError();
END_IF`

	stmts, warnings, err := ParseBody(src)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))
	assert.Equal(t, 1, len(stmts))

	ifStmt, ok := stmts[0].(*If)
	assert.True(t, ok)
	assert.Equal(t, 3, len(ifStmt.Branches))
	assert.Equal(t, "(nState = 0)", ifStmt.Branches[0].Condition.String())
	assert.Equal(t, "(nState < 10)", ifStmt.Branches[1].Condition.String())
	// The ELSE branch has no condition
	assert.Zero(t, ifStmt.Branches[2].Condition)
	assert.Equal(t, 1, len(ifStmt.Branches[2].Body))
}

func TestParseNestedBlocks(t *testing.T) {
	src := `FOR i := 0 TO 9 DO
    WHILE bBusy DO
        IF bAbort THEN
            EXIT;
        END_IF;
    END_WHILE;
END_FOR;`

	stmts, warnings, err := ParseBody(src)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))
	assert.Equal(t, 1, len(stmts))

	forStmt, ok := stmts[0].(*For)
	assert.True(t, ok)
	assert.Equal(t, 1, len(forStmt.Body))

	whileStmt, ok := forStmt.Body[0].(*While)
	assert.True(t, ok)
	assert.Equal(t, 1, len(whileStmt.Body))

	_, ok = whileStmt.Body[0].(*If)
	assert.True(t, ok)
}

func TestForStepDefaultsToOne(t *testing.T) {
	src := "FOR i := 1 TO 10 DO ; END_FOR"

	stmts, _, err := ParseBody(src)
	assert.NoError(t, err)
	forStmt := stmts[0].(*For)
	assert.Equal(t, "1", forStmt.Step.String())
}

func TestForWithExplicitStep(t *testing.T) {
	src := "FOR i := 10 TO 0 BY -2 DO ; END_FOR"

	stmts, _, err := ParseBody(src)
	assert.NoError(t, err)
	forStmt := stmts[0].(*For)
	assert.Equal(t, "(-2)", forStmt.Step.String())
}

func TestParseCaseWithRangesAndElse(t *testing.T) {
	src := `CASE nCode OF
    0:
        Reset();
    1, 2:
        Warn();
    10..19, 30:
        Handle(nCode);
ELSE
    Reject();
END_CASE`

	stmts, warnings, err := ParseBody(src)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))

	caseStmt, ok := stmts[0].(*Case)
	assert.True(t, ok)
	assert.Equal(t, "nCode", caseStmt.Selector.String())
	assert.Equal(t, 3, len(caseStmt.Entries))

	assert.Equal(t, 1, len(caseStmt.Entries[0].Labels))
	assert.Equal(t, 2, len(caseStmt.Entries[1].Labels))

	ranged := caseStmt.Entries[2]
	assert.Equal(t, 2, len(ranged.Labels))
	assert.Equal(t, "10", ranged.Labels[0].Low.String())
	assert.Equal(t, "19", ranged.Labels[0].High.String())
	assert.Zero(t, ranged.Labels[1].High)

	assert.Equal(t, 1, len(caseStmt.Else))
}

func TestCaseEnumLabels(t *testing.T) {
	src := `CASE eState OF
    E_State.Idle:
        Start();
    E_State.Running:
        bLamp := TRUE;
        Monitor();
END_CASE`

	stmts, warnings, err := ParseBody(src)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))

	caseStmt := stmts[0].(*Case)
	assert.Equal(t, 2, len(caseStmt.Entries))
	assert.Equal(t, "E_State.Idle", caseStmt.Entries[0].Labels[0].Low.String())
	assert.Equal(t, 2, len(caseStmt.Entries[1].Body))
}

func TestParseRepeatUntil(t *testing.T) {
	src := `REPEAT
    nTries := nTries + 1;
UNTIL nTries >= 3
END_REPEAT;`

	stmts, _, err := ParseBody(src)
	assert.NoError(t, err)
	repeatStmt, ok := stmts[0].(*Repeat)
	assert.True(t, ok)
	assert.Equal(t, 1, len(repeatStmt.Body))
	assert.Equal(t, "(nTries >= 3)", repeatStmt.Condition.String())
}

func TestAssignmentAndCallStatements(t *testing.T) {
	src := `nCount := nCount + 1;
fbTimer(IN := bStart, PT := T#2s);
RETURN;`

	stmts, warnings, err := ParseBody(src)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))
	assert.Equal(t, 3, len(stmts))

	_, ok := stmts[0].(*Assignment)
	assert.True(t, ok)
	_, ok = stmts[1].(*CallStatement)
	assert.True(t, ok)
	_, ok = stmts[2].(*Return)
	assert.True(t, ok)
}

func TestMismatchedBlockClose(t *testing.T) {
	src := `FOR i := 0 TO 9 DO
    nSum := nSum + i;
END_WHILE`

	stmts, _, err := ParseBody(src)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnbalancedBlock))

	var ube *UnbalancedBlockError
	assert.True(t, errors.As(err, &ube))
	assert.Equal(t, BlockFor, ube.Expected)
	assert.Equal(t, "END_WHILE", ube.Found)
	assert.Equal(t, 1, ube.OpenPos.Line)
	assert.Equal(t, 3, ube.ClosePos.Line)

	// Nothing completed before the mismatch
	assert.Equal(t, 0, len(stmts))
}

func TestUnclosedBlockAtEOF(t *testing.T) {
	src := "IF bReady THEN\n    Run();\n"

	_, _, err := ParseBody(src)
	assert.Error(t, err)

	var ube *UnbalancedBlockError
	assert.True(t, errors.As(err, &ube))
	assert.Equal(t, BlockIf, ube.Expected)
	assert.Equal(t, "EOF", ube.Found)
}

func TestStrayEndKeyword(t *testing.T) {
	src := "Run();\nEND_IF"

	stmts, _, err := ParseBody(src)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnbalancedBlock))
	// The statement before the stray close survives
	assert.Equal(t, 1, len(stmts))
}

func TestStatementRecovery(t *testing.T) {
	src := `nGood1 := 1;
nBad := ;
nGood2 := 2;`

	stmts, warnings, err := ParseBody(src)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(stmts))
	assert.Equal(t, 1, len(warnings))
	assert.Contains(t, warnings[0].Message, "skipping statement")
}

func TestSfcMarkers(t *testing.T) {
	src := `INITIAL_STEP Init:
END_STEP
STEP Fill:
END_STEP
TRANSITION FROM Init TO Fill
END_TRANSITION`

	stmts, warnings, err := ParseBody(src)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))
	assert.Equal(t, 3, len(stmts))

	init, ok := stmts[0].(*SfcStep)
	assert.True(t, ok)
	assert.Equal(t, "Init", init.Name)
	assert.True(t, init.Initial)

	fill := stmts[1].(*SfcStep)
	assert.False(t, fill.Initial)

	trans, ok := stmts[2].(*SfcTransition)
	assert.True(t, ok)
	assert.Equal(t, "Init", trans.From)
	assert.Equal(t, "Fill", trans.To)
}

func TestStatementSpans(t *testing.T) {
	src := "a := 1;\nIF b THEN\n    c := 2;\nEND_IF;"

	stmts, _, err := ParseBody(src)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(stmts))

	assert.Equal(t, 1, stmts[0].Span().Start.Line)
	assert.Equal(t, 0, stmts[0].Span().Start.Offset)
	assert.Equal(t, 7, stmts[0].Span().End.Offset)

	ifSpan := stmts[1].Span()
	assert.Equal(t, 2, ifSpan.Start.Line)
	assert.Equal(t, 4, ifSpan.End.Line)
	assert.Equal(t, len(src), ifSpan.End.Offset)
}

func TestParseObjectFullSource(t *testing.T) {
	src := `FUNCTION_BLOCK FB_Counter
VAR_INPUT
    bCountUp : BOOL;
END_VAR
VAR
    nValue : INT;
END_VAR

IF bCountUp THEN
    nValue := nValue + 1;
END_IF`

	obj, warnings, err := ParseObject(src)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))

	assert.Equal(t, KindFunctionBlock, obj.Kind)
	assert.Equal(t, "FB_Counter", obj.Name)
	assert.Equal(t, 2, len(obj.Decls))
	assert.Equal(t, 1, len(obj.Body))
}

func TestParseObjectConsumesTerminator(t *testing.T) {
	src := `PROGRAM MAIN
VAR
    n : INT;
END_VAR

n := n + 1;
END_PROGRAM`

	obj, warnings, err := ParseObject(src)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(warnings))
	assert.Equal(t, KindProgram, obj.Kind)
	assert.Equal(t, 1, len(obj.Body))
}
