package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run(context.Background(), append([]string{"spinload"}, args...)))
	return out.String()
}

func TestGenerateInspect(t *testing.T) {
	dir := t.TempDir()
	out := run(t, "generate", "--out", dir, "--chunks", "3", "--samples", "5", "--spins", "12", "--seed", "1")
	paths := strings.Fields(out)
	require.Len(t, paths, 3)

	var summary datasetSummary
	require.NoError(t, json.Unmarshal([]byte(run(t, append([]string{"inspect", "--json"}, paths...)...)), &summary))
	assert.Equal(t, "64-bit", summary.Container)
	assert.Equal(t, 12, summary.NumberSpins)
	assert.Equal(t, 15, summary.Size)
	assert.Equal(t, []int{5, 10, 15}, summary.CumulativeSizes)
	assert.GreaterOrEqual(t, summary.TotalCount, int64(15))
}

func TestIterateWritesArrow(t *testing.T) {
	dir := t.TempDir()
	paths := strings.Fields(run(t, "generate", "--out", dir, "--chunks", "2", "--samples", "7", "--spins", "100", "--wide", "--seed", "2"))
	require.Len(t, paths, 2)

	arrowPath := filepath.Join(dir, "batches.arrow")
	args := []string{"iterate", "--env-file", "", "--batch-size", "4", "--epochs", "2", "--transform", "sign", "--wide", "--arrow", arrowPath}
	run(t, append(args, paths...)...)

	info, err := os.Stat(arrowPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestIterateZeroSpinsArrow(t *testing.T) {
	dir := t.TempDir()
	paths := strings.Fields(run(t, "generate", "--out", dir, "--chunks", "1", "--samples", "5", "--spins", "0", "--seed", "4"))
	require.Len(t, paths, 1)

	arrowPath := filepath.Join(dir, "zero.arrow")
	run(t, append([]string{"iterate", "--env-file", "", "--batch-size", "2", "--arrow", arrowPath}, paths...)...)

	info, err := os.Stat(arrowPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestIterateRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	paths := strings.Fields(run(t, "generate", "--out", dir, "--chunks", "1", "--samples", "3", "--spins", "4", "--seed", "3"))

	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run(context.Background(), append([]string{"spinload", "iterate", "--env-file", "", "--transform", "phase"}, paths...))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out := run(t, "version")
	assert.Contains(t, out, version)
	assert.Contains(t, out, "features:")
}
