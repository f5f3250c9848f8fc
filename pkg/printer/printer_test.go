package printer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	AgentID string `json:"agentId"`
	HasLogs bool   `json:"hasLogs"`
}

func TestPrintStructured(t *testing.T) {
	var buf bytes.Buffer
	p := New(OutputTypeYAML)
	p.SetOutput(&buf)
	require.NoError(t, p.PrintStructured([]sample{{AgentID: "abc123", HasLogs: true}}))
	assert.Equal(t, "- agentId: abc123\n  hasLogs: true\n", buf.String())

	buf.Reset()
	p = New(OutputTypeJSON)
	p.SetOutput(&buf)
	require.NoError(t, p.PrintStructured(sample{AgentID: "abc123"}))
	assert.JSONEq(t, `{"agentId":"abc123","hasLogs":false}`, buf.String())
}

func TestTable(t *testing.T) {
	columns := []Column{{Header: "Agent"}, {Header: "Logs"}, {Header: "Group", Wide: true}}

	tests := []struct {
		name       string
		outputType OutputType
		noHeaders  bool
		want       string
	}{
		{
			name:       "default hides wide columns",
			outputType: OutputTypeTable,
			want:       "AGENT    LOGS\nabc123   true\n",
		},
		{
			name:       "wide",
			outputType: OutputTypeWide,
			want:       "AGENT    LOGS   GROUP\nabc123   true   /aws/apprunner/agent-abc123\n",
		},
		{
			name:       "no headers",
			outputType: OutputTypeTable,
			noHeaders:  true,
			want:       "abc123   true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := New(tt.outputType)
			p.SetOutput(&buf)
			p.SetNoHeaders(tt.noHeaders)

			tbl := p.Table(columns...)
			tbl.AddRow("abc123", true, "/aws/apprunner/agent-abc123")
			require.NoError(t, tbl.Render())
			assert.Equal(t, tt.want, buf.String())
			assert.Equal(t, 1, tbl.Len())
		})
	}
}

func TestTable_ShortRow(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, false, false, Column{Header: "a"}, Column{Header: "b"})
	tbl.AddRow("x")
	require.NoError(t, tbl.Render())
	assert.Equal(t, "A   B\nx   \n", buf.String())
}

func TestParseOutputType(t *testing.T) {
	got, err := ParseOutputType("")
	require.NoError(t, err)
	assert.Equal(t, OutputTypeTable, got)

	got, err = ParseOutputType("YAML")
	require.NoError(t, err)
	assert.Equal(t, OutputTypeYAML, got)

	_, err = ParseOutputType("xml")
	assert.Error(t, err)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "<none>", FormatMillis(0))
	assert.Equal(t, "2023-11-14T22:13:20.000Z", FormatMillis(1700000000000))
	assert.Equal(t, "ab...", TruncateString("abcdef", 5))
	assert.Equal(t, "abc", TruncateString("abc", 5))
	assert.Equal(t, "-", EmptyValueOrDefault("", "-"))
}
