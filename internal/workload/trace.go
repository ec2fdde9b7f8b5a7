package workload

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	"google.golang.org/protobuf/encoding/protowire"
)

// A trace file is a zstd stream holding length-delimited protobuf records (a
// header, then one record per op) followed by the little-endian xxhash64 of
// the record bytes.
//
//	header: 1 magic (bytes), 2 version (varint), 3 op count (varint)
//	op:     1 kind (varint), 2 tag (bytes), 3 size (varint)

const (
	traceMagic   = "memsim-trace"
	traceVersion = 1

	fieldHeaderMagic   protowire.Number = 1
	fieldHeaderVersion protowire.Number = 2
	fieldHeaderCount   protowire.Number = 3

	fieldOpKind protowire.Number = 1
	fieldOpTag  protowire.Number = 2
	fieldOpSize protowire.Number = 3

	checksumSize = 8
)

var ErrCorruptTrace = errors.New("corrupt trace")

var recordBufPool = newBufferPool(16, 64, 64*1024)

func appendHeader(b []byte, count int) []byte {
	b = protowire.AppendTag(b, fieldHeaderMagic, protowire.BytesType)
	b = protowire.AppendString(b, traceMagic)
	b = protowire.AppendTag(b, fieldHeaderVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, traceVersion)
	b = protowire.AppendTag(b, fieldHeaderCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(count))
	return b
}

func appendOp(b []byte, op Op) []byte {
	b = protowire.AppendTag(b, fieldOpKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(op.Kind))
	if op.Tag != "" {
		b = protowire.AppendTag(b, fieldOpTag, protowire.BytesType)
		b = protowire.AppendString(b, op.Tag)
	}
	if op.Size != 0 {
		b = protowire.AppendTag(b, fieldOpSize, protowire.VarintType)
		b = protowire.AppendVarint(b, op.Size)
	}
	return b
}

// writeRecords writes the header and op records, each prefixed by its length.
func writeRecords(w io.Writer, ops []Op) error {
	msg := recordBufPool.Get()
	rec := recordBufPool.Get()
	defer func() {
		recordBufPool.Put(msg)
		recordBufPool.Put(rec)
	}()

	writeRecord := func(msg []byte) error {
		rec = protowire.AppendBytes(rec[:0], msg)
		_, err := w.Write(rec)
		return err
	}

	msg = appendHeader(msg[:0], len(ops))
	if err := writeRecord(msg); err != nil {
		return fmt.Errorf("write trace header: %w", err)
	}
	for i, op := range ops {
		msg = appendOp(msg[:0], op)
		if err := writeRecord(msg); err != nil {
			return fmt.Errorf("write trace op %d: %w", i, err)
		}
	}
	return nil
}

// WriteTrace encodes ops as a compressed trace.
func WriteTrace(w io.Writer, ops []Op) error {
	bufw := bufio.NewWriterSize(w, 64*1024)
	enc, err := zstd.NewWriter(bufw,
		zstd.WithEncoderCRC(true),
		zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	hasher := xxhash.New()
	if err := writeRecords(io.MultiWriter(enc, hasher), ops); err != nil {
		enc.Close()
		return err
	}
	if _, err := enc.Write(binary.LittleEndian.AppendUint64(nil, hasher.Sum64())); err != nil {
		enc.Close()
		return fmt.Errorf("write trace checksum: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close trace encoder: %w", err)
	}
	return bufw.Flush()
}

// ReadTrace decodes a trace written by WriteTrace. Truncated, tampered or
// otherwise malformed traces return an error matching ErrCorruptTrace.
func ReadTrace(r io.Reader) ([]Op, error) {
	dec, err := zstd.NewReader(bufio.NewReaderSize(r, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptTrace, err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %w", ErrCorruptTrace, err)
	}
	if len(data) < checksumSize {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrCorruptTrace, len(data))
	}
	body, trailer := data[:len(data)-checksumSize], data[len(data)-checksumSize:]
	if got, want := xxhash.Sum64(body), binary.LittleEndian.Uint64(trailer); got != want {
		return nil, fmt.Errorf("%w: checksum %016x, want %016x", ErrCorruptTrace, got, want)
	}

	msg, n := protowire.ConsumeBytes(body)
	if n < 0 {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptTrace, protowire.ParseError(n))
	}
	body = body[n:]
	count, err := parseHeader(msg)
	if err != nil {
		return nil, err
	}

	ops := make([]Op, 0, min(count, uint64(len(body))))
	for len(body) > 0 {
		msg, n := protowire.ConsumeBytes(body)
		if n < 0 {
			return nil, fmt.Errorf("%w: op %d: %w", ErrCorruptTrace, len(ops), protowire.ParseError(n))
		}
		body = body[n:]
		op, err := parseOpRecord(msg)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", len(ops), err)
		}
		ops = append(ops, op)
	}
	if uint64(len(ops)) != count {
		return nil, fmt.Errorf("%w: header declares %d ops, found %d", ErrCorruptTrace, count, len(ops))
	}
	return ops, nil
}

// forEachField calls fn for each field of a protobuf message. fn returns the
// number of bytes it consumed from the value, or a negative protowire code.
func forEachField(msg []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return protowire.ParseError(n)
		}
		msg = msg[n:]
		n = fn(num, typ, msg)
		if n < 0 {
			return protowire.ParseError(n)
		}
		msg = msg[n:]
	}
	return nil
}

func parseHeader(msg []byte) (uint64, error) {
	var (
		magic   string
		version uint64
		count   uint64
	)
	err := forEachField(msg, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == fieldHeaderMagic && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			magic = string(v)
			return n
		case num == fieldHeaderVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			version = v
			return n
		case num == fieldHeaderCount && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			count = v
			return n
		default:
			return protowire.ConsumeFieldValue(num, typ, b)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("%w: header: %w", ErrCorruptTrace, err)
	}
	if magic != traceMagic {
		return 0, fmt.Errorf("%w: not a memsim trace", ErrCorruptTrace)
	}
	if version != traceVersion {
		return 0, fmt.Errorf("%w: unsupported trace version %d", ErrCorruptTrace, version)
	}
	return count, nil
}

func parseOpRecord(msg []byte) (Op, error) {
	var op Op
	err := forEachField(msg, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == fieldOpKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			op.Kind = OpKind(v)
			return n
		case num == fieldOpTag && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			op.Tag = string(v)
			return n
		case num == fieldOpSize && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			op.Size = v
			return n
		default:
			return protowire.ConsumeFieldValue(num, typ, b)
		}
	})
	if err != nil {
		return Op{}, fmt.Errorf("%w: %w", ErrCorruptTrace, err)
	}
	if _, ok := opKindNames[op.Kind]; !ok {
		return Op{}, fmt.Errorf("%w: unknown op kind %d", ErrCorruptTrace, op.Kind)
	}
	return op, nil
}

// Digest identifies a workload by the blake3 hash of its encoded records.
// Equal op sequences always share a digest.
func Digest(ops []Op) string {
	h := blake3.New()
	if err := writeRecords(h, ops); err != nil {
		panic("hash write failed: " + err.Error())
	}
	return hex.EncodeToString(h.Sum(nil))
}

func WriteTraceFile(path string, ops []Op) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteTrace(f, ops)
}

func ReadTraceFile(path string) ([]Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ops, err := ReadTrace(f)
	if err != nil {
		return nil, fmt.Errorf("read trace %s: %w", path, err)
	}
	return ops, nil
}
