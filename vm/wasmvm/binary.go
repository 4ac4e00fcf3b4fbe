package wasmvm

import (
	"bytes"
	"io"

	"github.com/wippyai/vmbridge/errors"
)

const (
	sectionExport = 7
	exportGlobal  = 0x03
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// exportedGlobals lists the export names of globals in a wasm binary, in
// section order. wazero only enumerates function and memory exports before
// instantiation.
func exportedGlobals(bin []byte) ([]string, error) {
	r := bytes.NewReader(bin)
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil || !bytes.Equal(hdr[:4], wasmMagic) {
		return nil, errors.Load("not a wasm binary", err)
	}
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, errors.Load("truncated section header", err)
		}
		size, err := readU32(r)
		if err != nil {
			return nil, errors.Load("truncated section size", err)
		}
		if int64(size) > int64(r.Len()) {
			return nil, errors.Load("section overruns binary", nil)
		}
		if id != sectionExport {
			_, _ = r.Seek(int64(size), io.SeekCurrent)
			continue
		}
		return readGlobalExports(r)
	}
	return nil, nil
}

func readGlobalExports(r *bytes.Reader) ([]string, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, errors.Load("export count", err)
	}
	var names []string
	for i := uint32(0); i < count; i++ {
		n, err := readU32(r)
		if err != nil || int64(n) > int64(r.Len()) {
			return nil, errors.Load("export name", err)
		}
		name := make([]byte, n)
		_, _ = io.ReadFull(r, name)
		kind, err := r.ReadByte()
		if err != nil {
			return nil, errors.Load("export kind", err)
		}
		if _, err := readU32(r); err != nil {
			return nil, errors.Load("export index", err)
		}
		if kind == exportGlobal {
			names = append(names, string(name))
		}
	}
	return names, nil
}

// readU32 reads an unsigned LEB128 value.
func readU32(r io.ByteReader) (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, errors.Load("leb128 overflow", nil)
		}
	}
}
