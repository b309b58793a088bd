package redis

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/pierrec/lz4/v4"
)

// CompressionType selects the codec applied to an event payload before
// it is written to Redis. LZ4 favors speed, gzip favors ratio — both are
// offered so the caller can choose per deployment.
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
	CompressionLZ4  CompressionType = "lz4"
)

// compressionMinSize is the payload size below which compression adds
// more overhead than it saves.
const compressionMinSize = 256

func shouldCompress(payload []byte) bool {
	return len(payload) >= compressionMinSize
}

func compress(data []byte, t CompressionType) ([]byte, error) {
	switch t {
	case CompressionGzip:
		return compressGzip(data)
	case CompressionLZ4:
		return compressLZ4(data)
	default:
		return data, nil
	}
}

func decompress(data []byte, t CompressionType) ([]byte, error) {
	switch t {
	case CompressionGzip:
		return decompressGzip(data)
	case CompressionLZ4:
		return decompressLZ4(data)
	default:
		return data, nil
	}
}

func compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(reader)
}
