package model

import (
	"fmt"
	"time"

	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/tensor"
)

// Forward runs every layer in order on Input, then the loss against Target,
// and returns the mean batch loss.
func (m *Model) Forward(training bool) (float64, error) {
	if err := m.requireWired("forward"); err != nil {
		return 0, err
	}
	m.forward(training)
	m.batchLoss = m.loss.Forward()
	return m.batchLoss, nil
}

func (m *Model) forward(training bool) {
	for _, l := range m.layers {
		l.Forward(training)
	}
}

// Backward seeds the output gradient from the loss and runs every layer's
// backward pass in reverse order. Forward must have run on the same batch.
func (m *Model) Backward() error {
	if err := m.requireWired("backward"); err != nil {
		return err
	}
	last := len(m.layers) - 1
	if m.fused {
		m.loss.BackwardSoftmax()
		last--
	} else {
		m.loss.Backward()
	}
	for i := last; i >= 0; i-- {
		m.layers[i].Backward()
	}
	return nil
}

// Update steps every bound optimizer once.
func (m *Model) Update() error {
	if m.broken || m.state != Ready {
		return fmt.Errorf("%w: update in state %s", nn.ErrState, m.describeState())
	}
	for _, opt := range m.optimizers {
		if opt != nil {
			opt.Step()
		}
	}
	return nil
}

// checkData validates a dataset pair against the chain's input and output sizes.
func (m *Model) checkData(x, y *tensor.Tensor) error {
	if x == nil || y == nil {
		return fmt.Errorf("%w: nil dataset", nn.ErrShapeMismatch)
	}
	if x.Cols != m.InputSize() {
		return fmt.Errorf("%w: samples have %d features, model expects %d", nn.ErrShapeMismatch, x.Cols, m.InputSize())
	}
	if y.Cols != m.OutputSize() {
		return fmt.Errorf("%w: targets have %d columns, model produces %d", nn.ErrShapeMismatch, y.Cols, m.OutputSize())
	}
	if x.Rows != y.Rows {
		return fmt.Errorf("%w: %d samples, %d targets", nn.ErrSampleCountMismatch, x.Rows, y.Rows)
	}
	return nil
}

// load copies rows [start, start+count) of x and y into the input and target
// buffers. Rows past count are zeroed.
func (m *Model) load(x, y *tensor.Tensor, start, count int) {
	in, target := m.acts[0], m.y
	copy(in.Data, x.Data[start*x.Cols:(start+count)*x.Cols])
	clear(in.Data[count*x.Cols:])
	if y != nil {
		copy(target.Data, y.Data[start*y.Cols:(start+count)*y.Cols])
		clear(target.Data[count*y.Cols:])
	}
}

// Train runs epochs passes of mini-batch gradient descent over (x, y) in
// row order. The sample count must be a multiple of the batch size.
//
// When report is set the dataset loss is logged after every epoch.
func (m *Model) Train(x, y *tensor.Tensor, epochs int, report bool) error {
	if m.broken || m.state != Ready {
		return fmt.Errorf("%w: train in state %s", nn.ErrState, m.describeState())
	}
	if err := m.checkData(x, y); err != nil {
		return err
	}
	if x.Rows%m.batch != 0 {
		return fmt.Errorf("%w: %d samples, batch size %d", nn.ErrUnevenBatchDivision, x.Rows, m.batch)
	}
	if epochs < 0 {
		return fmt.Errorf("%w: %d epochs", nn.ErrInvalidConfig, epochs)
	}

	batches := x.Rows / m.batch
	for epoch := range epochs {
		start := time.Now()
		for b := range batches {
			m.load(x, y, b*m.batch, m.batch)
			m.forward(true)
			m.batchLoss = m.loss.Forward()
			if err := m.Backward(); err != nil {
				return err
			}
			if err := m.Update(); err != nil {
				return err
			}
		}
		if !report {
			continue
		}
		loss, err := m.CalcLoss(x, y)
		if err != nil {
			return err
		}
		m.logger.Info("epoch complete",
			"epoch", epoch+1,
			"epochs", epochs,
			"loss", loss,
			"regularization", m.Regularization(),
			"elapsed", time.Since(start),
		)
	}
	return nil
}

// Predict runs inference over x in batches and writes the outputs into y.
// A final partial batch is padded with zeros and only its valid rows are
// copied out.
func (m *Model) Predict(x, y *tensor.Tensor) error {
	if err := m.requireWired("predict"); err != nil {
		return err
	}
	if err := m.checkData(x, y); err != nil {
		return err
	}

	out := m.acts[len(m.layers)]
	for start := 0; start < x.Rows; start += m.batch {
		count := min(m.batch, x.Rows-start)
		m.load(x, nil, start, count)
		m.forward(false)
		copy(y.Data[start*y.Cols:(start+count)*y.Cols], out.Data[:count*out.Cols])
	}
	return nil
}

// CalcLoss returns the mean inference-mode loss over the full batches of
// (x, y). A trailing partial batch is ignored.
func (m *Model) CalcLoss(x, y *tensor.Tensor) (float64, error) {
	if err := m.requireWired("calc loss"); err != nil {
		return 0, err
	}
	if err := m.checkData(x, y); err != nil {
		return 0, err
	}
	batches := x.Rows / m.batch
	if batches == 0 {
		return 0, fmt.Errorf("%w: %d samples, batch size %d", nn.ErrUnevenBatchDivision, x.Rows, m.batch)
	}

	var total float64
	for b := range batches {
		m.load(x, y, b*m.batch, m.batch)
		m.forward(false)
		total += m.loss.Forward()
	}
	return total / float64(batches), nil
}
