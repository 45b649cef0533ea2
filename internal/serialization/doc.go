// Package serialization provides the native .tom format for saving and loading models.
//
// The .tom format is a little-endian binary stream:
//
//	Format Structure:
//	  [4 bytes: Magic "TOMN"]
//	  [4 bytes: Version (uint32)]
//	  [4 bytes: Layer count (uint32)]
//	  [4 bytes: Loss kind (uint32)]
//	  [Layer records: kind (uint32), ten shape ints (int32), hyperparameters]
//	  [Parameters: raw float64 values, sizes derived from the shapes]
//	  [32 bytes: SHA-256 of everything above]
//
// Hyperparameters per record:
//   - Dense: weight L1, weight L2, bias L1, bias L2 (float64)
//   - Dropout, LeakyReLU: rate (float64)
//   - Normalization: epsilon, momentum (float64)
//   - Padding2D: mode (uint32)
//
// Parameters per layer:
//   - Dense, Conv2D: weights, biases
//   - Quadratic: weights, biases, quad
//   - Normalization: gamma, beta, running mean, running variance
//
// Optimizer state is not stored; a loaded model is Finalized and needs
// InitOptimizers before further training.
//
// Example usage:
//
//	// Save a model
//	if err := serialization.SaveFile("model.tom", m); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load it with a different batch size
//	loaded, err := serialization.LoadFile("model.tom", 32)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loaded.Close()
package serialization
