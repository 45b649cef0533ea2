// Package nn implements the layer kernels, loss kernels and parameter
// initializers of the library.
//
// Every kernel operates in place on row-major float64 tensors wired by the
// model: a layer reads its borrowed Input and DOutput buffers and writes its
// borrowed Output and DInput buffers, owning only its parameters, their
// gradients and private caches.
package nn
