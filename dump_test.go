package quarry

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteModels_DeterministicOrder(t *testing.T) {
	mm := ModelMap{
		{Kind: TargetFunction, Name: "mod.b"}:    NewModel(sourceEntry(ReturnPort(), "S")),
		{Kind: TargetFunction, Name: "mod.a"}:    NewModel(sourceEntry(ReturnPort(), "S")),
		{Kind: TargetAttribute, Name: "mod.C.x"}: NewModel(sinkEntry(SelfPort(), "Logging")),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteModels(&buf, mm))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var names []string
	for _, line := range lines {
		var rec struct {
			Callable string `json:"callable"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		names = append(names, rec.Callable)
	}
	assert.Equal(t, []string{"mod.a", "mod.b", "mod.C.x"}, names)
}

func TestWriteModels_RecordShape(t *testing.T) {
	mm := ModelMap{
		{Kind: TargetFunction, Name: "mod.f"}: NewModel(ModelEntry{
			Port:       ReturnPort(),
			Annotation: TaintAnnotation{Direction: FlowSource, Kind: "UserControlled", Subkind: "web"},
		}, ModelEntry{
			Port:       Port{Kind: PortParameter, Index: 0, Name: "x"},
			Annotation: TaintAnnotation{Direction: FlowSink, Kind: "Logging"},
		}),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteModels(&buf, mm))

	var rec struct {
		Callable string `json:"callable"`
		Model    []map[string]string `json:"model"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "mod.f", rec.Callable)
	require.Len(t, rec.Model, 2)
	assert.Equal(t, map[string]string{
		"port": "return", "direction": "source", "kind": "UserControlled", "subkind": "web",
	}, rec.Model[0])
	// The subkind field is omitted when empty.
	assert.Equal(t, map[string]string{
		"port": "formal(x)", "direction": "sink", "kind": "Logging",
	}, rec.Model[1])
}

func TestDumpModels_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.jsonl")
	mm := ModelMap{
		{Kind: TargetFunction, Name: "mod.f"}: NewModel(sourceEntry(ReturnPort(), "S")),
	}

	require.NoError(t, DumpModels(path, mm))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"callable":"mod.f"`)
}
