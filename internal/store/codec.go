package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	formatName    = "mobench-store"
	formatVersion = 1
)

// document is the on-disk envelope of a store file.
type document struct {
	Format  string          `json:"format"`
	Version int             `json:"version"`
	Tree    json.RawMessage `json:"tree"`
}

// compressed reports whether path selects the zstd codec.
func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// encode writes t to w, zstd-compressed when zst is set.
func encode(w io.Writer, t *Tree, zst bool) error {
	body, err := t.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize tree: %w", err)
	}
	data, err := json.Marshal(document{Format: formatName, Version: formatVersion, Tree: body})
	if err != nil {
		return fmt.Errorf("failed to serialize store document: %w", err)
	}

	if !zst {
		_, err = w.Write(data)
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("failed to compress store: %w", err)
	}
	return enc.Close()
}

// decode reads a store document from r.
func decode(r io.Reader, zst bool) (*Tree, error) {
	if zst {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var doc document
	if err := json.NewDecoder(bufio.NewReader(r)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to deserialize store: %w", err)
	}
	if doc.Format != formatName {
		return nil, fmt.Errorf("unexpected store format %q", doc.Format)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("unsupported store version %d", doc.Version)
	}
	if len(doc.Tree) == 0 || string(doc.Tree) == "null" {
		return NewTree(), nil
	}
	return decodeTree(doc.Tree, Depth)
}
