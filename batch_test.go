package sfmesh

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Cube", "Cube"},
		{"Cube.001", "Cube.001"},
		{"my-mesh_2", "my-mesh_2"},
		{"Würfel", "Wurfel"},
		{"Crème brûlée", "Creme_brulee"},
		{"a/b\\c:d", "a_b_c_d"},
		{"立方体", "___"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanName(tt.in), tt.in)
	}
}

func TestEnsureExt(t *testing.T) {
	assert.Equal(t, "out/crate.txt", EnsureExt("out/crate", ".txt"))
	assert.Equal(t, "out/crate.TXT", EnsureExt("out/crate.TXT", ".txt"))
	assert.Equal(t, "crate.sfmesh", EnsureExt("crate", SFMESH_EXT))
}

func TestParseBatchMode(t *testing.T) {
	for _, m := range []BatchMode{BatchOff, BatchObject} {
		got, err := ParseBatchMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseBatchMode("OBJECT")
	require.NoError(t, err)
	assert.Equal(t, BatchObject, got)

	_, err = ParseBatchMode("collection")
	assert.Error(t, err)
}

func TestSelectNodes(t *testing.T) {
	nodes := []SceneNode{meshNode("A", 1), meshNode("B", 1), meshNode("C", 1)}
	assert.Equal(t, nodes, SelectNodes(nodes, nil))

	sel := SelectNodes(nodes, []string{"C", "A", "missing"})
	require.Len(t, sel, 2)
	assert.Equal(t, "A", sel[0].Name())
	assert.Equal(t, "C", sel[1].Name())
}

func TestObjectPaths(t *testing.T) {
	nodes := []SceneNode{
		meshNode("Cube", 1),
		&staticNode{name: "Camera", kind: KindCamera},
		meshNode("Cube", 1),
		meshNode("Cube?", 1),
		meshNode("Cône", 1),
	}
	paths := ObjectPaths(nodes, "out/level_.txt", ".txt")
	assert.Equal(t, []string{
		"out/level_Cube.txt",
		"out/level_Cube_2.txt",
		"out/level_Cube_.txt",
		"out/level_Cone.txt",
	}, paths)
}

func TestObjectPathsSuffixTaken(t *testing.T) {
	nodes := []SceneNode{meshNode("a", 1), meshNode("a", 1), meshNode("a_2", 1), meshNode("a", 1)}
	paths := ObjectPaths(nodes, "out/p_", SFMESH_EXT)
	assert.Equal(t, []string{
		"out/p_a.sfmesh",
		"out/p_a_2.sfmesh",
		"out/p_a_2_2.sfmesh",
		"out/p_a_3.sfmesh",
	}, paths)
}

func TestObjectPathsDottedPrefix(t *testing.T) {
	nodes := []SceneNode{meshNode("Cube", 1)}
	assert.Equal(t, []string{"out/level.v2Cube.txt"}, ObjectPaths(nodes, "out/level.v2", ".txt"))
	assert.Equal(t, []string{"out/level.v2Cube.txt"}, ObjectPaths(nodes, "out/level.v2.txt", ".txt"))
}

func TestExportBatchNoOverwrite(t *testing.T) {
	dir := t.TempDir()
	opts := BatchOptions{ExportOptions: DefaultExportOptions(), Mode: BatchObject, Workers: 3}
	opts.Raw = true

	nodes := []SceneNode{meshNode("a", 1), meshNode("a", 2), meshNode("a_2", 3)}
	results, err := ExportBatch(context.Background(), nodes, filepath.Join(dir, "p_"), opts)
	require.NoError(t, err)
	require.Len(t, results, 3)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	for i, res := range results {
		scene, err := SceneReadFrom(res.Path)
		require.NoError(t, err)
		assert.Equal(t, i+1, scene.TriangleCount())
	}
}

func TestExportBatchOff(t *testing.T) {
	dir := t.TempDir()
	opts := BatchOptions{ExportOptions: DefaultExportOptions()}

	results, err := ExportBatch(context.Background(), mixedNodes()[:2], filepath.Join(dir, "scene"), opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(dir, "scene.txt"), results[0].Path)
	assert.Equal(t, 1, results[0].Objects)
	assert.FileExists(t, results[0].Path)
}

func TestExportBatchObject(t *testing.T) {
	for _, workers := range []int{0, 1, 4} {
		dir := t.TempDir()
		opts := BatchOptions{ExportOptions: DefaultExportOptions(), Mode: BatchObject, Workers: workers}
		opts.Raw = true

		nodes := []SceneNode{
			meshNode("Cube", 12),
			&staticNode{name: "Lamp", kind: KindLight},
			meshNode("Cone", 3),
			meshNode("Cube", 1),
		}
		results, err := ExportBatch(context.Background(), nodes, filepath.Join(dir, "prop_"), opts)
		require.NoError(t, err)
		require.Len(t, results, 3)

		want := []struct {
			file      string
			triangles int
		}{
			{"prop_Cube.sfmesh", 12},
			{"prop_Cone.sfmesh", 3},
			{"prop_Cube_2.sfmesh", 1},
		}
		for i, w := range want {
			assert.Equal(t, filepath.Join(dir, w.file), results[i].Path)
			assert.Equal(t, 1, results[i].Objects)

			scene, err := SceneReadFrom(results[i].Path)
			require.NoError(t, err)
			require.Len(t, scene.Objects, 1)
			assert.Equal(t, w.triangles, scene.Objects[0].TriangleCount())
		}

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 3, "workers=%d", workers)
	}
}

func TestExportBatchObjectFailure(t *testing.T) {
	dir := t.TempDir()
	opts := BatchOptions{ExportOptions: DefaultExportOptions(), Mode: BatchObject, Workers: 2}
	opts.Policy = PolicyAbort

	results, err := ExportBatch(context.Background(), mixedNodes(), filepath.Join(dir, "x_"), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 exports failed")
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.FileExists(t, filepath.Join(dir, "x_C.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "x_Bad.txt"))
}

func TestExportBatchSelection(t *testing.T) {
	dir := t.TempDir()
	opts := BatchOptions{ExportOptions: DefaultExportOptions(), Mode: BatchObject, Selection: []string{"C"}}

	results, err := ExportBatch(context.Background(), mixedNodes(), filepath.Join(dir, "sel_"), opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(dir, "sel_C.txt"), results[0].Path)
}

func TestExportBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := BatchOptions{ExportOptions: DefaultExportOptions(), Mode: BatchObject}
	nodes := []SceneNode{meshNode("A", 1), meshNode("B", 1)}
	_, err := ExportBatch(ctx, nodes, filepath.Join(t.TempDir(), "c_"), opts)
	assert.Error(t, err)
}
