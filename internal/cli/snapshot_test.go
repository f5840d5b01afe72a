package cli

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

func executeSnapshot(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewSnapshotCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// saveJSON saves a scenario instance and returns the stored snapshot.
func saveJSON(t *testing.T, db, scenario string, extra ...string) SnapshotInfo {
	t.Helper()
	args := append([]string{"save", scenario, "--db", db}, extra...)
	out, err := executeSnapshot(t, &RootOptions{Format: "json"}, args...)
	require.NoError(t, err, out)

	var resp struct {
		Status string       `json:"status"`
		Data   SnapshotInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

// contactsVariant writes a copy of contacts_filter.yaml with condim set.
func contactsVariant(t *testing.T, condim string) string {
	t.Helper()
	dir := copyScenarios(t, "contacts.cue", "contacts_filter.yaml")
	path := filepath.Join(dir, "contacts_filter.yaml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	src := strings.Replace(string(data), "condim: 3", "condim: "+condim, 1)
	src = strings.Replace(src, "dist: [0.5, -1.0, 2.0, 0.0, 3.5]", "dist: [1, 1, 1, 1, 1]", 1)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestSnapshotSaveAndShow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snaps.db")
	scenario := filepath.Join(scenariosDir(), "contacts_filter.yaml")

	saved := saveJSON(t, db, scenario, "--label", "initial")
	assert.Equal(t, int64(1), saved.Seq)
	assert.Equal(t, "Contacts", saved.Record)
	assert.Equal(t, "initial", saved.Label)
	assert.Len(t, saved.ID, 36)
	assert.NotEmpty(t, saved.MetadataKey)
	assert.NotEmpty(t, saved.ContentHash)

	out, err := executeSnapshot(t, &RootOptions{Format: "json"},
		"show", filepath.Join(scenariosDir(), "contacts.cue"), saved.ID, "--db", db)
	require.NoError(t, err, out)

	var resp struct {
		Data SnapshotInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, saved.ID, resp.Data.ID)
	assert.Equal(t, saved.ContentHash, resp.Data.ContentHash)
	assert.True(t, strings.HasPrefix(resp.Data.Value, "Contacts{dist:"), resp.Data.Value)
	assert.Contains(t, resp.Data.Value, "condim:3")
}

func TestSnapshotSaveText(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snaps.db")
	out, err := executeSnapshot(t, &RootOptions{Format: "text"},
		"save", filepath.Join(scenariosDir(), "contacts_filter.yaml"), "--db", db)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "✓ saved Contacts snapshot "), out)
	assert.Contains(t, out, "(seq 1)")
}

func TestSnapshotListAndSiblings(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snaps.db")
	schema := filepath.Join(scenariosDir(), "contacts.cue")

	first := saveJSON(t, db, filepath.Join(scenariosDir(), "contacts_filter.yaml"))
	same := saveJSON(t, db, contactsVariant(t, "3"), "--label", "same-meta")
	other := saveJSON(t, db, contactsVariant(t, "6"))

	assert.Equal(t, first.MetadataKey, same.MetadataKey)
	assert.NotEqual(t, first.ContentHash, same.ContentHash)
	assert.NotEqual(t, first.MetadataKey, other.MetadataKey)

	out, err := executeSnapshot(t, &RootOptions{Format: "json"}, "list", "--db", db)
	require.NoError(t, err)
	var list struct {
		Data []SnapshotInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Data, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{list.Data[0].Seq, list.Data[1].Seq, list.Data[2].Seq})

	out, err = executeSnapshot(t, &RootOptions{Format: "json"}, "siblings", schema, first.ID, "--db", db)
	require.NoError(t, err)
	var siblings struct {
		Data []SnapshotInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &siblings))
	require.Len(t, siblings.Data, 2)
	assert.Equal(t, first.ID, siblings.Data[0].ID)
	assert.Equal(t, same.ID, siblings.Data[1].ID)

	out, err = executeSnapshot(t, &RootOptions{Format: "text"}, "list", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"ID", "SEQ", "RECORD", "LABEL"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{same.ID, "2", "Contacts", "same-meta"}, strings.Fields(lines[2]))
}

func TestSnapshotListFilter(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snaps.db")
	saveJSON(t, db, filepath.Join(scenariosDir(), "contacts_filter.yaml"))

	out, err := executeSnapshot(t, &RootOptions{Format: "text"}, "list", "--db", db, "--record", "Scene")
	require.NoError(t, err)
	assert.Equal(t, "No snapshots found.\n", out)

	out, err = executeSnapshot(t, &RootOptions{Format: "json"}, "list", "--db", db, "--record", "Scene")
	require.NoError(t, err)
	assert.Contains(t, out, `"data": []`)
}

func TestSnapshotShowNotFound(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snaps.db")
	out, err := executeSnapshot(t, &RootOptions{Format: "text"},
		"show", filepath.Join(scenariosDir(), "contacts.cue"), "missing", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "snapshot missing not found")
}

func TestSnapshotShowWrongSchema(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snaps.db")
	saved := saveJSON(t, db, filepath.Join(scenariosDir(), "contacts_filter.yaml"))

	_, err := executeSnapshot(t, &RootOptions{Format: "text"}, "show", schemaDir(), saved.ID, "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeStoreFailed)
}

func TestSnapshotStorePathFromConfig(t *testing.T) {
	opts := &RootOptions{Format: "text"}
	_, err := executeSnapshot(t, opts, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no snapshot database configured")

	opts.Config.Store.Path = filepath.Join(t.TempDir(), "configured.db")
	out, err := executeSnapshot(t, opts, "list")
	require.NoError(t, err)
	assert.Equal(t, "No snapshots found.\n", out)
	assert.FileExists(t, opts.Config.Store.Path)
}

func TestSnapshotSaveBadScenario(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snaps.db")
	_, err := executeSnapshot(t, &RootOptions{Format: "text"}, "save", "/nonexistent/scenario.yaml", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeLoadFailed)
}

func TestSnapshotListLabelAndSince(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snaps.db")
	scenario := filepath.Join(scenariosDir(), "contacts_filter.yaml")
	saveJSON(t, db, scenario, "--label", "a")
	second := saveJSON(t, db, scenario, "--label", "b")
	third := saveJSON(t, db, scenario, "--label", "b")

	list := func(args ...string) []SnapshotInfo {
		t.Helper()
		out, err := executeSnapshot(t, &RootOptions{Format: "json"}, append([]string{"list", "--db", db}, args...)...)
		require.NoError(t, err)
		var resp struct {
			Data []SnapshotInfo `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Data
	}

	byLabel := list("--label", "b")
	require.Len(t, byLabel, 2)
	assert.Equal(t, second.ID, byLabel[0].ID)
	assert.Equal(t, third.ID, byLabel[1].ID)

	late := list("--since", "3", "--record", "Contacts")
	require.Len(t, late, 1)
	assert.Equal(t, third.ID, late[0].ID)
}
