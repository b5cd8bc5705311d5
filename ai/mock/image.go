package mock

import "context"

// MockImageReader is a test double for ai.ImageReader.
type MockImageReader struct {
	// ReadImageFunc is called by ReadImage if set.
	ReadImageFunc func(ctx context.Context, mimeType string, data []byte) ([]string, error)

	// Lines is returned when ReadImageFunc is nil.
	Lines []string
}

// ReadImage returns the injected lines.
func (m *MockImageReader) ReadImage(ctx context.Context, mimeType string, data []byte) ([]string, error) {
	if m.ReadImageFunc != nil {
		return m.ReadImageFunc(ctx, mimeType, data)
	}
	return m.Lines, nil
}
