// Package main tests for the flowdesigner CLI
package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/flowdesigner/internal/adapters/engine"
	"github.com/flowgraph/flowdesigner/pkg/bpmn"
)

const sampleGraph = `{
  "id": "leave",
  "name": "请假",
  "nodes": [
    {"id": "s", "type": "start", "x": 100, "y": 100, "text": "开始"},
    {"id": "t", "type": "task", "x": 250, "y": 100, "text": "审批"},
    {"id": "e", "type": "end", "x": 400, "y": 100, "text": "结束"}
  ],
  "edges": [
    {"id": "f1", "sourceNodeId": "s", "targetNodeId": "t"},
    {"id": "f2", "sourceNodeId": "t", "targetNodeId": "e"}
  ]
}`

// run executes the CLI in an isolated directory with a clean environment.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func workdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("FLOWDESIGNER_LOG_LEVEL", "error")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		commit    string
		buildTime string
		want      string
	}{
		{
			name:      "version with dev defaults",
			version:   "dev",
			commit:    "unknown",
			buildTime: "unknown",
			want:      "FlowDesigner dev (commit: unknown, built: unknown)\n",
		},
		{
			name:      "version with custom values",
			version:   "v1.0.0",
			commit:    "abc123",
			buildTime: "2024-01-01",
			want:      "FlowDesigner v1.0.0 (commit: abc123, built: 2024-01-01)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldVersion, oldCommit, oldBuildTime := Version, Commit, BuildTime
			defer func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldBuildTime }()
			Version, Commit, BuildTime = tt.version, tt.commit, tt.buildTime

			out, err := run(t, "version")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestPalette(t *testing.T) {
	out, err := run(t, "palette")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "TYPE"))
	for _, typ := range []string{"start-node", "end-node", "task-node", "diamond", "polygon"} {
		assert.Contains(t, out, typ)
	}

	out, err = run(t, "palette", "--json")
	require.NoError(t, err)
	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Len(t, items, 5)
}

func TestExportAndImport(t *testing.T) {
	dir := workdir(t)
	graph := writeFile(t, dir, "leave.json", sampleGraph)

	out, err := run(t, "export", graph)
	require.NoError(t, err)
	assert.Contains(t, out, `<bpmn:userTask id="t" name="审批"/>`)

	xmlPath := filepath.Join(dir, "leave.bpmn")
	_, err = run(t, "export", graph, "-o", xmlPath)
	require.NoError(t, err)

	out, err = run(t, "import", xmlPath)
	require.NoError(t, err)
	var gd struct {
		Nodes []map[string]interface{} `json:"nodes"`
		Edges []map[string]interface{} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &gd))
	assert.Len(t, gd.Nodes, 3)
	assert.Len(t, gd.Edges, 2)

	exportDir := t.TempDir()
	out, err = run(t, "export", graph, "--dir", exportDir)
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, exportDir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "diagram_"))
	assert.Equal(t, ".bpmn", filepath.Ext(path))
}

func TestImport_Malformed(t *testing.T) {
	dir := workdir(t)
	bad := writeFile(t, dir, "bad.bpmn", "<bpmn:definitions><bpmn:process")

	_, err := run(t, "import", bad)
	assert.ErrorIs(t, err, bpmn.ErrMalformedXML)
}

func TestValidate(t *testing.T) {
	dir := workdir(t)
	graph := writeFile(t, dir, "leave.json", sampleGraph)

	out, err := run(t, "validate", "--strict", graph)
	require.NoError(t, err)
	assert.Equal(t, "ok: 3 nodes, 2 edges\n", out)

	noEnd := writeFile(t, dir, "noend.json",
		`{"nodes":[{"id":"s","type":"start","x":0,"y":0}],"edges":[]}`)
	_, err = run(t, "validate", noEnd)
	assert.NoError(t, err)
	_, err = run(t, "validate", "--strict", noEnd)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	dir := workdir(t)
	graph := writeFile(t, dir, "leave.json", sampleGraph)
	png := filepath.Join(dir, "out.png")

	_, err := run(t, "render", graph, "-o", png)
	require.NoError(t, err)
	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestSaveAndLoad_SQLite(t *testing.T) {
	dir := workdir(t)
	graph := writeFile(t, dir, "leave.json", sampleGraph)
	t.Setenv("FLOWDESIGNER_STORAGE_DRIVER", "sqlite")
	t.Setenv("FLOWDESIGNER_STORAGE_DSN", filepath.Join(dir, "snapshots.db"))
	t.Setenv("FLOWDESIGNER_STORAGE_COMPRESSION", "gzip")

	out, err := run(t, "save", graph, "--key", "leave")
	require.NoError(t, err)
	assert.Contains(t, out, `saved "leave": 3 nodes, 2 edges`)
	assert.Contains(t, out, "(json/gzip)")

	out, err = run(t, "load", "--key", "leave")
	require.NoError(t, err)
	assert.Contains(t, out, `"sourceNodeId": "s"`)

	_, err = run(t, "load", "--key", "missing")
	assert.Error(t, err)
}

type engineStub struct {
	mu       sync.Mutex
	deployed []string
	started  []string
}

func (s *engineStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+engine.DeployPath, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.deployed = append(s.deployed, r.FormValue("processName")+"|"+r.FormValue("bpmnXml"))
		s.mu.Unlock()
		_, _ = w.Write([]byte(`{"deploymentId":"1"}`))
	})
	mux.HandleFunc("POST "+engine.StartPath, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.started = append(s.started, r.URL.Query().Get("processDefinitionKey"))
		s.mu.Unlock()
		_, _ = w.Write([]byte(`{"instanceId":"9"}`))
	})
	return mux
}

func (s *engineStub) snapshot() (deployed, started []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deployed...), append([]string(nil), s.started...)
}

func TestDeployAndStart(t *testing.T) {
	dir := workdir(t)
	stub := &engineStub{}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()
	t.Setenv("FLOWDESIGNER_ENGINE_BASE_URL", srv.URL)

	out, err := run(t, "deploy")
	require.NoError(t, err)
	assert.Equal(t, "200 {\"deploymentId\":\"1\"}\n", out)
	deployed, _ := stub.snapshot()
	require.Len(t, deployed, 1)
	assert.Equal(t, "请假流程|"+bpmn.DefaultLeaveProcess(), deployed[0])

	graph := writeFile(t, dir, "leave.json", sampleGraph)
	_, err = run(t, "deploy", graph, "--name", "审批")
	require.NoError(t, err)
	deployed, _ = stub.snapshot()
	require.Len(t, deployed, 2)
	assert.True(t, strings.HasPrefix(deployed[1], "审批|<?xml"))

	out, err = run(t, "start", "-k", "leave_request", "-b", "b-1", "--var", "days=3")
	require.NoError(t, err)
	assert.Contains(t, out, "instanceId")
	_, started := stub.snapshot()
	assert.Equal(t, []string{"leave_request"}, started)

	_, err = run(t, "start")
	assert.Error(t, err, "--key is required")
}
