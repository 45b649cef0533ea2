// Copyright 2025 The Tom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package model_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tom-ml/tom/model"
	"github.com/tom-ml/tom/nn"
	"github.com/tom-ml/tom/optim"
	"github.com/tom-ml/tom/tensor"
)

func TestTrainSaveLoad(t *testing.T) {
	m, err := model.New(4, model.WithSeed(2))
	require.NoError(t, err)
	defer m.Close()

	_, err = m.AddLayer(nn.KindDense, 2, 4)
	require.NoError(t, err)
	_, err = m.AddLayer(nn.KindSigmoid, 4, 4)
	require.NoError(t, err)
	_, err = m.AddLayer(nn.KindDense, 4, 1)
	require.NoError(t, err)
	_, err = m.AddLayer(nn.KindSigmoid, 1, 1)
	require.NoError(t, err)
	require.NoError(t, m.SetLoss(nn.LossBinaryCrossEntropy))
	require.NoError(t, m.Finalize())
	require.NoError(t, m.InitOptimizers(optim.RMSPropConfig{LearningRate: 0.01}))
	assert.Equal(t, model.Ready, m.State())

	// OR gate.
	x, _ := tensor.FromSlice(4, 2, []float64{0, 0, 0, 1, 1, 0, 1, 1})
	y, _ := tensor.FromSlice(4, 1, []float64{0, 1, 1, 1})
	before, err := m.CalcLoss(x, y)
	require.NoError(t, err)
	require.NoError(t, m.Train(x, y, 300, false))
	after, err := m.CalcLoss(x, y)
	require.NoError(t, err)
	assert.Less(t, after, before)

	path := filepath.Join(t.TempDir(), "or.tom")
	require.NoError(t, model.Save(path, m))

	loaded, err := model.Load(path, 1)
	require.NoError(t, err)
	defer loaded.Close()
	assert.Equal(t, model.Finalized, loaded.State())

	want := tensor.MustNew(4, 1)
	got := tensor.MustNew(4, 1)
	require.NoError(t, m.Predict(x, want))
	require.NoError(t, loaded.Predict(x, got))
	assert.True(t, want.Equal(got, 1e-12))
}

func TestPublicSourcesCarryProjectHeader(t *testing.T) {
	const header = "// Copyright 2025 The Tom Authors. All rights reserved.\n" +
		"// Use of this source code is governed by an Apache 2.0\n" +
		"// license that can be found in the LICENSE file.\n"

	var files []string
	for _, pkg := range []string{"model", "nn", "optim", "tensor"} {
		matches, err := filepath.Glob(filepath.Join("..", pkg, "*.go"))
		require.NoError(t, err)
		files = append(files, matches...)
	}
	require.NotEmpty(t, files)

	for _, f := range files {
		src, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(src), header), "%s", f)
	}
}
