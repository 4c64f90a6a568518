package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"formulang/internal/rational"
)

// magic identifies an encoded Chunk; version allows the framing to
// evolve without breaking the compile/run round trip ("the
// exact framing is opaque... must round-trip with run").
var magic = [4]byte{'F', 'M', 'L', 'B'}

const version = 1

const (
	constTagRational byte = iota
	constTagString
)

// Encode serializes a Chunk to the opaque byte buffer compile() returns.
func Encode(c *Chunk) []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(version)

	writeUint32(&buf, uint32(len(c.Constants)))
	for _, constVal := range c.Constants {
		switch v := constVal.(type) {
		case rational.Rational:
			buf.WriteByte(constTagRational)
			writeInt64(&buf, v.Num)
			writeInt64(&buf, v.Denom)
		case string:
			buf.WriteByte(constTagString)
			b := []byte(v)
			writeUint32(&buf, uint32(len(b)))
			buf.Write(b)
		default:
			panic(fmt.Sprintf("bytecode: unsupported constant type %T", constVal))
		}
	}

	writeUint32(&buf, uint32(len(c.Code)))
	buf.Write(c.Code)
	return buf.Bytes()
}

// Decode parses a byte buffer produced by Encode back into a Chunk.
func Decode(data []byte) (*Chunk, error) {
	r := bytes.NewReader(data)
	var gotMagic [4]byte
	if _, err := r.Read(gotMagic[:]); err != nil {
		return nil, fmt.Errorf("bytecode: truncated header: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("bytecode: bad magic %q", gotMagic)
	}
	v, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("bytecode: truncated version: %w", err)
	}
	if v != version {
		return nil, fmt.Errorf("bytecode: unsupported version %d", v)
	}

	constCount, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading constant count: %w", err)
	}
	chunk := &Chunk{Constants: make([]interface{}, 0, constCount)}
	for i := uint32(0); i < constCount; i++ {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("bytecode: reading constant tag %d: %w", i, err)
		}
		switch tag {
		case constTagRational:
			num, err := readInt64(r)
			if err != nil {
				return nil, err
			}
			denom, err := readInt64(r)
			if err != nil {
				return nil, err
			}
			chunk.Constants = append(chunk.Constants, rational.Rational{Num: num, Denom: denom})
		case constTagString:
			n, err := readUint32(r)
			if err != nil {
				return nil, err
			}
			buf := make([]byte, n)
			if _, err := readFull(r, buf); err != nil {
				return nil, err
			}
			chunk.Constants = append(chunk.Constants, string(buf))
		default:
			return nil, fmt.Errorf("bytecode: unknown constant tag %d", tag)
		}
	}

	codeLen, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading code length: %w", err)
	}
	chunk.Code = make([]byte, codeLen)
	if _, err := readFull(r, chunk.Code); err != nil {
		return nil, err
	}
	return chunk, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

type byteReader interface {
	Read([]byte) (int, error)
	ReadByte() (byte, error)
}

func readUint32(r byteReader) (uint32, error) {
	var b [4]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readInt64(r byteReader) (int64, error) {
	var b [8]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

func readFull(r byteReader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("bytecode: unexpected EOF")
		}
	}
	return total, nil
}
