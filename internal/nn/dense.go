package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/tom-ml/tom/internal/tensor"
)

// DenseConfig configures a Dense layer.
type DenseConfig struct {
	WeightInit Initializer // default: GlorotUniform
	BiasInit   Initializer // default: Zeros

	// Regularization coefficients. A zero coefficient disables the term.
	WeightL1 float64
	WeightL2 float64
	BiasL1   float64
	BiasL2   float64
}

// Dense is a fully connected layer.
//
// Performs: output = input · W + b
// where:
//   - input has shape (batch, in)
//   - W has shape (in, out)
//   - b has shape (1, out) and is broadcast over rows
//
// Backward computes dW = inputᵀ · dOutput, db = colsum(dOutput) and
// dInput = dOutput · Wᵀ, then adds λ₁·sign(p) and 2λ₂·p to dW and db.
//
// Example:
//
//	d := nn.NewDense(784, 128, nn.DenseConfig{WeightInit: nn.HeNormal})
type Dense struct {
	base
	config DenseConfig

	weights  *tensor.Tensor
	biases   *tensor.Tensor
	dWeights *tensor.Tensor
	dBiases  *tensor.Tensor
}

// NewDense declares a Dense layer mapping in features to out features.
func NewDense(in, out int, config DenseConfig) *Dense {
	return &Dense{
		base:   base{shape: Shape{InputSize: in, OutputSize: out}},
		config: config,
	}
}

// Kind implements Layer.
func (d *Dense) Kind() Kind { return KindDense }

// Config returns the layer configuration.
func (d *Dense) Config() DenseConfig { return d.config }

// SetInitializers overrides the weight and bias initializers.
// Has no effect after Materialize.
func (d *Dense) SetInitializers(weights, biases Initializer) {
	d.config.WeightInit = weights
	d.config.BiasInit = biases
}

// SetRegularization sets the L1/L2 coefficients for weights and biases.
func (d *Dense) SetRegularization(weightL1, weightL2, biasL1, biasL2 float64) {
	d.config.WeightL1 = weightL1
	d.config.WeightL2 = weightL2
	d.config.BiasL1 = biasL1
	d.config.BiasL2 = biasL2
}

// Materialize implements Layer.
func (d *Dense) Materialize(io Buffers, rng RNG) error {
	if err := d.bind(io); err != nil {
		return err
	}
	in, out := d.shape.InputSize, d.shape.OutputSize
	ts, err := allocate([2]int{in, out}, [2]int{1, out}, [2]int{in, out}, [2]int{1, out})
	if err != nil {
		return err
	}
	d.weights, d.biases, d.dWeights, d.dBiases = ts[0], ts[1], ts[2], ts[3]

	if err := Fill(d.weights, d.config.WeightInit.or(GlorotUniform), in, out, rng); err != nil {
		d.Release()
		return err
	}
	if err := Fill(d.biases, d.config.BiasInit.or(Zeros), in, out, rng); err != nil {
		d.Release()
		return err
	}
	return nil
}

// Forward implements Layer.
func (d *Dense) Forward(bool) {
	out := d.io.Output
	out.Dense().Mul(d.io.Input.Dense(), d.weights.Dense())
	for i := 0; i < out.Rows; i++ {
		floats.Add(out.Row(i), d.biases.Data)
	}
}

// Backward implements Layer.
func (d *Dense) Backward() {
	input, dOut := d.io.Input.Dense(), d.io.DOutput.Dense()

	d.dWeights.Dense().Mul(input.T(), dOut)
	d.io.DInput.Dense().Mul(dOut, d.weights.Dense().T())

	d.dBiases.Zero()
	for i := 0; i < d.io.DOutput.Rows; i++ {
		floats.Add(d.dBiases.Data, d.io.DOutput.Row(i))
	}

	regularize(d.dWeights.Data, d.weights.Data, d.config.WeightL1, d.config.WeightL2)
	regularize(d.dBiases.Data, d.biases.Data, d.config.BiasL1, d.config.BiasL2)
}

func regularize(grad, param []float64, l1, l2 float64) {
	if l1 != 0 {
		for i, p := range param {
			grad[i] += l1 * math.Copysign(1, p)
		}
	}
	if l2 != 0 {
		for i, p := range param {
			grad[i] += 2 * l2 * p
		}
	}
}

// Regularization returns Σ|p|·λ₁ + Σp²·λ₂ over weights and biases.
func (d *Dense) Regularization() float64 {
	var r float64
	if d.config.WeightL1 != 0 {
		r += d.config.WeightL1 * floats.Norm(d.weights.Data, 1)
	}
	if d.config.WeightL2 != 0 {
		r += d.config.WeightL2 * floats.Dot(d.weights.Data, d.weights.Data)
	}
	if d.config.BiasL1 != 0 {
		r += d.config.BiasL1 * floats.Norm(d.biases.Data, 1)
	}
	if d.config.BiasL2 != 0 {
		r += d.config.BiasL2 * floats.Dot(d.biases.Data, d.biases.Data)
	}
	return r
}

// Params implements Trainable.
func (d *Dense) Params() []Param {
	return []Param{
		{Name: "weights", Value: d.weights, Grad: d.dWeights},
		{Name: "biases", Value: d.biases, Grad: d.dBiases},
	}
}

// Weights returns the (in, out) weight tensor.
func (d *Dense) Weights() *tensor.Tensor { return d.weights }

// Biases returns the (1, out) bias tensor.
func (d *Dense) Biases() *tensor.Tensor { return d.biases }

// Release implements Layer.
func (d *Dense) Release() {
	release(d.weights, d.biases, d.dWeights, d.dBiases)
	d.weights, d.biases, d.dWeights, d.dBiases = nil, nil, nil, nil
}
