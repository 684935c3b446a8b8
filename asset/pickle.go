package asset

import (
	"bufio"
	"fmt"
	"os"

	pickle "github.com/kisielk/og-rek"
	"github.com/klauspost/compress/gzip"

	"github.com/teranos/assetstage/errors"
)

// pickleProtocol matches the protocol the asset preparation tooling writes with.
const pickleProtocol = 4

func loadPickleGz(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open asset file %s", path)
	}
	defer f.Close()

	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open gzip stream in %s", path)
	}
	defer zr.Close()

	decoded, err := pickle.NewDecoder(zr).Decode()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode pickle asset file %s", path)
	}

	record, ok := normalizePickle(decoded).(map[string]any)
	if !ok {
		return nil, errors.NewInvalidRequestError("asset file %s does not contain a dict (got %T)", path, decoded)
	}
	return Record(record), nil
}

func savePickleGz(record Record, path string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return errors.Wrapf(err, "failed to create asset file %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close asset file %s", path)
		}
	}()

	zw := gzip.NewWriter(f)
	enc := pickle.NewEncoderWithConfig(zw, &pickle.EncoderConfig{Protocol: pickleProtocol})
	if err := enc.Encode(map[string]any(record)); err != nil {
		zw.Close()
		return errors.Wrapf(err, "failed to encode pickle asset file %s", path)
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "failed to flush gzip stream for %s", path)
	}
	return nil
}

// normalizePickle converts decoder container types into the shapes encoding/json
// produces, so both encodings yield the same logical Record.
func normalizePickle(v any) any {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]any, len(t))
		for k, val := range t {
			key, ok := k.(string)
			if !ok {
				key = fmt.Sprint(k)
			}
			out[key] = normalizePickle(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizePickle(val)
		}
		return out
	case []interface{}:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizePickle(val)
		}
		return out
	case pickle.Tuple:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizePickle(val)
		}
		return out
	case pickle.None:
		return nil
	default:
		return v
	}
}
