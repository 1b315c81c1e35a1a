package diff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineType_JSON(t *testing.T) {
	for _, lt := range []LineType{LineContext, LineAdded, LineDeleted} {
		data, err := json.Marshal(lt)
		require.NoError(t, err)
		assert.Equal(t, `"`+lt.String()+`"`, string(data))

		var back LineType
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, lt, back)
	}

	var lt LineType
	assert.Error(t, json.Unmarshal([]byte(`"moved"`), &lt))
	assert.Equal(t, "LineType(9)", LineType(9).String())
}

func TestLine_OmitsAbsentNumbers(t *testing.T) {
	data, err := json.Marshal(Line{Type: LineAdded, Content: "x", NewLineNum: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"addition","content":"x","newLine":4}`, string(data))
}

func TestHunk_Counts(t *testing.T) {
	h := Hunk{
		OldLines: 2,
		NewLines: 2,
		Lines: []Line{
			{Type: LineContext, OldLineNum: 1, NewLineNum: 1},
			{Type: LineDeleted, OldLineNum: 2},
			{Type: LineAdded, NewLineNum: 2},
		},
	}
	assert.Equal(t, 2, h.OldCount())
	assert.Equal(t, 2, h.NewCount())
	assert.True(t, h.Consistent())

	h.NewLines = 3
	assert.False(t, h.Consistent())
}

func TestFileRef_Path(t *testing.T) {
	assert.Equal(t, "b.go", FileRef{OldPath: "a.go", NewPath: "b.go"}.Path())
	assert.Equal(t, "gone.go", FileRef{OldPath: "gone.go"}.Path())
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Kind: OrphanLine, Message: "marker outside hunk", Line: 7}
	assert.Equal(t, "line 7: orphan-line: marker outside hunk", d.String())
}
