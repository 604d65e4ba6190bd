package distribution

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/distributor/pkg/atomicfile"
	"github.com/screwyprof/distributor/pkg/units"
)

const filePerm = 0o644

// Decode strictly parses a distribution file, preserving the order of amounts.
//
// The expected shape is:
//
//	{
//	  "id": 12,
//	  "token": "0x...",
//	  "amounts": {"0xRecipient": "1000000000000000000"},
//	  "distributionTypeId": 1001
//	}
func Decode(r io.Reader) (File, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return File{}, err
	}

	var f File
	seen := make(map[string]bool, 4)
	for dec.More() {
		key, err := readString(dec, "file")
		if err != nil {
			return File{}, err
		}
		if seen[key] {
			return File{}, invalid(key, "duplicate field")
		}
		seen[key] = true

		switch key {
		case FieldID:
			f.ID, err = readInt(dec, key)
		case FieldToken:
			f.Token, err = readAddress(dec, key)
		case FieldAmounts:
			f.Amounts, err = readAmounts(dec)
		case FieldTypeID:
			f.TypeID, err = readInt(dec, key)
		default:
			err = invalid(key, "unknown field")
		}
		if err != nil {
			return File{}, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return File{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return File{}, invalid("file", "unexpected data after the distribution object")
	}

	for _, field := range []string{FieldID, FieldToken, FieldAmounts, FieldTypeID} {
		if !seen[field] {
			return File{}, invalid(field, "missing")
		}
	}

	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Load reads and decodes the distribution file at path
func Load(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open distribution file: %w", err)
	}
	defer fh.Close()

	f, err := Decode(fh)
	if err != nil {
		return File{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return f, nil
}

// Encode writes f as indented JSON, amounts in slice order
func Encode(w io.Writer, f File) error {
	var buf bytes.Buffer

	buf.WriteString("{\n")
	fmt.Fprintf(&buf, "  %q: %d,\n", FieldID, f.ID)
	fmt.Fprintf(&buf, "  %q: %q,\n", FieldToken, f.Token.Hex())
	fmt.Fprintf(&buf, "  %q: {", FieldAmounts)
	for i, a := range f.Amounts {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "\n    %q: %q", a.Recipient.Hex(), a.Value.String())
	}
	if len(f.Amounts) > 0 {
		buf.WriteString("\n  ")
	}
	buf.WriteString("},\n")
	fmt.Fprintf(&buf, "  %q: %d\n", FieldTypeID, f.TypeID)
	buf.WriteString("}\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// Write validates f and atomically creates it at path. Existing files are never replaced.
func Write(path string, f File) error {
	if err := f.Validate(); err != nil {
		return err
	}

	err := atomicfile.CreateFile(path, filePerm, func(w io.Writer) error {
		return Encode(w, f)
	})
	if errors.Is(err, atomicfile.ErrExists) {
		return fmt.Errorf("%w: %s", ErrFileExists, path)
	}
	return err
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return invalid("file", "expected %q, got %v", want, tok)
	}
	return nil
}

func readString(dec *json.Decoder, field string) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidFile, field, err)
	}
	s, ok := tok.(string)
	if !ok {
		return "", invalid(field, "expected a string, got %v", tok)
	}
	return s, nil
}

func readInt(dec *json.Decoder, field string) (int64, error) {
	tok, err := dec.Token()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidFile, field, err)
	}
	n, ok := tok.(json.Number)
	if !ok {
		return 0, invalid(field, "expected an integer, got %v", tok)
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, invalid(field, "expected an integer, got %s", n)
	}
	return v, nil
}

func readAddress(dec *json.Decoder, field string) (common.Address, error) {
	s, err := readString(dec, field)
	if err != nil {
		return common.Address{}, err
	}
	return parseAddress(field, s)
}

func readAmounts(dec *json.Decoder) ([]Amount, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var amounts []Amount
	for dec.More() {
		key, err := readString(dec, FieldAmounts)
		if err != nil {
			return nil, err
		}
		recipient, err := parseAddress(FieldAmounts, key)
		if err != nil {
			return nil, err
		}
		raw, err := readString(dec, FieldAmounts+"."+recipient.Hex())
		if err != nil {
			return nil, err
		}
		value, err := units.ParseBase(raw)
		if err != nil {
			return nil, invalid(FieldAmounts, "%s: %v", recipient.Hex(), err)
		}
		amounts = append(amounts, Amount{Recipient: recipient, Value: value})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return amounts, nil
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, invalid(field, "%q is not a hex address", s)
	}
	return common.HexToAddress(s), nil
}
