package logging

import (
	"io"
	"os"
	"strings"
)

// Open builds the logger a binary runs with: JSON lines on stdout and, when
// dir is set, a rotating file named after the component. The returned close
// flushes the file writer.
func Open(component, level, dir string) (*Logger, func() error, error) {
	writers := []io.Writer{os.Stdout}
	closeFn := func() error { return nil }

	if dir = strings.TrimSpace(dir); dir != "" {
		fw, err := NewFileWriter(dir, component+".log", RotateOptions{})
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, fw)
		closeFn = fw.Close
	}
	return New(component, ParseLevel(level), writers...), closeFn, nil
}
