package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatplan/seatplan/internal/auth"
	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/layout"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sectionsJSON = `{"sections":[{"name":"Main","tables":[{"id":"t1","shape":"ROUND","capacity":6}],"rows":[{"label":"A","seats":[{},{},{}]}]}]}`

func TestChairsCommand(t *testing.T) {
	out, err := execute(t, "chairs", "--shape", "square", "--capacity", "4", "--width", "100", "--height", "100")
	require.NoError(t, err)

	var chairs []layout.Chair
	require.NoError(t, json.Unmarshal([]byte(out), &chairs))
	assert.Len(t, chairs, 4)
}

func TestChairsCommandRejectsInput(t *testing.T) {
	_, err := execute(t, "chairs", "--capacity", "41")
	assert.ErrorContains(t, err, "capacity")

	_, err = execute(t, "chairs", "--shape", "oval")
	assert.ErrorContains(t, err, "unknown shape")
}

func TestConvertThenValidateAndExport(t *testing.T) {
	in := writeFile(t, "sections.json", sectionsJSON)
	layoutPath := filepath.Join(filepath.Dir(in), "layout.json")

	_, err := execute(t, "convert", in, "--name", "Gala", "-o", layoutPath)
	require.NoError(t, err)

	data, err := os.ReadFile(layoutPath)
	require.NoError(t, err)
	var l document.Layout
	require.NoError(t, json.Unmarshal(data, &l))
	assert.Equal(t, "Gala", l.Name)
	assert.Equal(t, 9, l.TotalSeats())

	out, err := execute(t, "validate", layoutPath)
	require.NoError(t, err)
	assert.Contains(t, out, "9 seats")

	svg, err := execute(t, "export", layoutPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(svg, "<svg") || strings.HasPrefix(svg, "<?xml"))
	assert.Contains(t, svg, `data-item="t1"`)
}

func TestValidateReportsProblems(t *testing.T) {
	path := writeFile(t, "bad.json", `{"id":"c1","name":"Bad","items":[{"type":"TABLE","id":"t1","capacity":0,"size":{"width":0,"height":10}}]}`)

	out, err := execute(t, "validate", path)
	assert.ErrorIs(t, err, errInvalidLayout)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestConvertRequiresFile(t *testing.T) {
	_, err := execute(t, "convert")
	assert.Error(t, err)

	_, err = execute(t, "convert", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read sections")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := execute(t, "token", "--user", "u1", "--name", "Ann")
	require.NoError(t, err)

	id, err := auth.NewService("cli-secret").ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "Ann", id.DisplayName)

	_, err = execute(t, "token")
	assert.Error(t, err)
}
