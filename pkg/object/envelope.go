package object

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// An envelope is the byte form an object is hashed and stored as:
//
//	<type> SP <decimal length> NUL <content>

func writeEnvelopeHeader(w io.Writer, objType ObjectType, n int) {
	fmt.Fprintf(w, "%s %d\x00", objType, n)
}

func encodeEnvelope(objType ObjectType, data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(objType) + 21 + len(data))
	writeEnvelopeHeader(&buf, objType, len(data))
	buf.Write(data)
	return buf.Bytes()
}

func decodeEnvelope(raw []byte) (ObjectType, []byte, error) {
	header, content, ok := bytes.Cut(raw, []byte{0})
	if !ok {
		return "", nil, fmt.Errorf("%w: envelope has no NUL", ErrMalformedObject)
	}
	name, size, ok := bytes.Cut(header, []byte{' '})
	if !ok {
		return "", nil, fmt.Errorf("%w: envelope header %q", ErrMalformedObject, header)
	}
	n, err := strconv.Atoi(string(size))
	if err != nil || n < 0 {
		return "", nil, fmt.Errorf("%w: envelope length %q", ErrMalformedObject, size)
	}
	if n != len(content) {
		return "", nil, fmt.Errorf("%w: envelope says %d bytes, has %d", ErrMalformedObject, n, len(content))
	}
	switch t := ObjectType(name); t {
	case TypeBlob, TypeTree, TypeCommit:
		return t, content, nil
	}
	return "", nil, fmt.Errorf("%w: unknown object type %q", ErrMalformedObject, name)
}
