//go:build !opencv

package opencv

import "video-trimmer/domain/media"

// Factory is a stub when GoCV/OpenCV is not available
type Factory struct{}

// NewFactory returns an error indicating OpenCV is not available
func NewFactory() (*Factory, error) {
	return nil, capabilityError()
}

// NewSurface returns an error indicating OpenCV is not available
func (f *Factory) NewSurface(width, height int) (media.Surface, error) {
	return nil, capabilityError()
}

func capabilityError() error {
	return &media.CapabilityError{
		Name: "opencv",
		Hint: "build with '-tags=opencv' and install OpenCV/GoCV",
	}
}

// Ensure Factory implements media.SurfaceFactory
var _ media.SurfaceFactory = (*Factory)(nil)
