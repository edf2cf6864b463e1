package access

// Dump is an Accessor over a captured configuration space image. Reads past
// the end of the image are truncated and writes are accepted but dropped, a
// dump is read-only captured state.
type Dump struct {
	data []byte
}

var _ Accessor = &Dump{}

// NewDump copies b into a new Dump.
func NewDump(b []byte) *Dump {
	data := make([]byte, len(b))
	copy(data, b)
	return &Dump{data: data}
}

func (d *Dump) Read(offset uint64, length int) ([]byte, error) {
	if length <= 0 || offset >= uint64(len(d.data)) {
		return []byte{}, nil
	}
	end := offset + uint64(length)
	if end > uint64(len(d.data)) {
		end = uint64(len(d.data))
	}
	ret := make([]byte, end-offset)
	copy(ret, d.data[offset:end])
	return ret, nil
}

func (d *Dump) Write(offset uint64, b []byte) (int, error) {
	return len(b), nil
}
