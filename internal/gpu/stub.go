//go:build !cuda

package gpu

// Detect returns the unknown summary in builds without the cuda tag.
func Detect() *Summary {
	return Unknown()
}
