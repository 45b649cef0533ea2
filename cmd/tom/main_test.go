package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tom-ml/tom/internal/model"
	"github.com/tom-ml/tom/internal/serialization"
)

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"version"}, &stdout, &stderr))
	assert.Equal(t, "tom "+version+"\n", stdout.String())
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Commands:")

	stdout.Reset()
	err := run([]string{"frobnicate"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frobnicate")
	assert.Contains(t, stderr.String(), "Commands:")
}

func TestParseSizes(t *testing.T) {
	sizes, err := parseSizes("16, 8,4")
	require.NoError(t, err)
	assert.Equal(t, []int{16, 8, 4}, sizes)

	sizes, err = parseSizes("")
	require.NoError(t, err)
	assert.Empty(t, sizes)

	_, err = parseSizes("16,x")
	assert.Error(t, err)
}

func TestTrainConfig_Validate(t *testing.T) {
	valid := func() trainConfig {
		return trainConfig{
			csv:        "data.csv",
			hidden:     []int{8},
			activation: "relu",
			epochs:     10,
			batch:      4,
			optimizer:  "adam",
			holdout:    0.2,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*trainConfig)
		wantErr string
	}{
		{"valid", func(*trainConfig) {}, ""},
		{"no hidden layers", func(c *trainConfig) { c.hidden = nil }, ""},
		{"missing csv", func(c *trainConfig) { c.csv = "" }, "-csv is required"},
		{"zero hidden", func(c *trainConfig) { c.hidden = []int{8, 0} }, "hidden size 0"},
		{"bad activation", func(c *trainConfig) { c.activation = "softplus" }, "unknown activation"},
		{"zero epochs", func(c *trainConfig) { c.epochs = 0 }, "epochs 0"},
		{"negative batch", func(c *trainConfig) { c.batch = -1 }, "batch -1"},
		{"holdout one", func(c *trainConfig) { c.holdout = 1 }, "holdout 1"},
		{"bad optimizer", func(c *trainConfig) { c.optimizer = "lion" }, "unknown optimizer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseTrainFlags(t *testing.T) {
	var stderr bytes.Buffer
	cfg, err := parseTrainFlags([]string{
		"-csv", "iris.csv", "-hidden", "8,4", "-optimizer", "sgd",
		"-lr", "0.1", "-momentum", "0.9", "-epochs", "5", "-v",
	}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "iris.csv", cfg.csv)
	assert.Equal(t, []int{8, 4}, cfg.hidden)
	assert.Equal(t, 5, cfg.epochs)
	assert.Equal(t, -1, cfg.label)
	assert.True(t, cfg.verbose)
	assert.True(t, cfg.scale)

	opt, err := cfg.optimizerConfig()
	require.NoError(t, err)
	assert.Equal(t, "optim.SGDConfig", fmt.Sprintf("%T", opt))

	_, err = parseTrainFlags([]string{"-epochs", "many"}, &stderr)
	assert.Error(t, err)
}

// writeBlobs writes two well separated classes, alternating by row.
func writeBlobs(t *testing.T, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("x1,x2,class\n")
	for i := range rows {
		jitter := float64(i%5) * 0.1
		if i%2 == 0 {
			fmt.Fprintf(&b, "%g,%g,low\n", 1+jitter, 1.5-jitter)
		} else {
			fmt.Fprintf(&b, "%g,%g,high\n", 8+jitter, 7.5-jitter)
		}
	}
	path := filepath.Join(t.TempDir(), "blobs.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestTrain_EndToEnd(t *testing.T) {
	csvPath := writeBlobs(t, 40)
	savePath := filepath.Join(t.TempDir(), "blobs.tom")

	var stdout, stderr bytes.Buffer
	err := run([]string{
		"train",
		"-csv", csvPath,
		"-header",
		"-hidden", "6",
		"-activation", "tanh",
		"-epochs", "60",
		"-batch", "4",
		"-holdout", "0.2",
		"-optimizer", "adam",
		"-lr", "0.05",
		"-seed", "3",
		"-save", savePath,
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "train accuracy: 1.0000 (32 samples)")
	assert.Contains(t, out, "holdout accuracy: 1.0000 (8 samples)")
	assert.Contains(t, out, "saved model to "+savePath)
	assert.Contains(t, stderr.String(), "epoch complete")

	m, err := serialization.LoadFile(savePath, 1)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, model.Finalized, m.State())
	assert.Equal(t, 2, m.InputSize())
	assert.Equal(t, 2, m.OutputSize())
	assert.True(t, m.Fused())
}

func TestTrain_MissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"train", "-csv", filepath.Join(t.TempDir(), "nope.csv")}, &stdout, &stderr)
	assert.Error(t, err)
}
