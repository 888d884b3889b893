package export

// FakeSink records writes for test assertions.
type FakeSink struct {
	// Names contains the file names written, in order.
	Names []string

	// Files maps file names to their contents.
	Files map[string][]byte

	// WriteError, if set, will be returned by Write.
	WriteError error
}

// NewFakeSink creates an empty FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{Files: map[string][]byte{}}
}

// Write records the file and returns its name.
func (f *FakeSink) Write(name string, data []byte) (string, error) {
	if f.WriteError != nil {
		return "", f.WriteError
	}
	f.Names = append(f.Names, name)
	f.Files[name] = append([]byte(nil), data...)
	return name, nil
}
