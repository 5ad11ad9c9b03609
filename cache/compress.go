package cache

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"io"
)

// compressString gzips the input at best compression and base64-encodes it
// for safe storage inside JSON values in BoltDB.
func compressString(input string) (string, error) {
	var buf bytes.Buffer
	gzipWriter, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err = gzipWriter.Write([]byte(input)); err != nil {
		return "", err
	}
	if err := gzipWriter.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decompressString reverses compressString
func decompressString(input string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return "", err
	}
	gzipReader, err := gzip.NewReader(bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	defer gzipReader.Close()
	result, err := io.ReadAll(gzipReader)
	if err != nil {
		return "", err
	}
	return string(result), nil
}
