// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chain is an ordered stack of archives probed as a single logical
// namespace: the most recently added archive shadows earlier ones for any
// name they both contain. This is the patch-overlay pattern MPQ-based games
// use to layer content updates over a base archive, grounded on
// original_source/chain.rs's Chain type.
type Chain struct {
	archives []*Archive // archives[0] is the most recently added
}

// NewChain returns an empty Chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add opens the archive at path and inserts it at the front of the chain,
// so it shadows every archive already present.
func (c *Chain) Add(path string) error {
	a, err := Open(path)
	if err != nil {
		return fmt.Errorf("add %s to chain: %w", path, err)
	}
	c.archives = append([]*Archive{a}, c.archives...)
	return nil
}

// Read returns the decoded contents of name from the first archive (in
// most-recently-added order) that contains it.
func (c *Chain) Read(name string) ([]byte, error) {
	for _, a := range c.archives {
		f, err := a.OpenFile(name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}

		buf := make([]byte, f.Size())
		n, err := f.Read(a, buf)
		if err != nil {
			return nil, err
		}
		return buf[:n], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// ReadToString reads name and validates it as UTF-8, surfacing invalid
// encodings as ErrInvalidData. Supplemented from original_source/chain.rs,
// which exposes the same convenience method alongside Read.
func (c *Chain) ReadToString(name string) (string, error) {
	data, err := c.Read(name)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidData, name)
	}
	return string(data), nil
}

// Extract decodes name and writes it to path, failing if path already
// exists.
func (c *Chain) Extract(name, path string) (int, error) {
	for _, a := range c.archives {
		f, err := a.OpenFile(name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return 0, err
		}
		return f.Extract(a, path)
	}
	return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// List returns the deduplicated union of "(listfile)" entries across every
// archive in the chain, one path per line as stored in the archive (treated
// as ordinary file content, not parsed further). Supplemented from
// original_source/chain.rs's list(), which spec.md's component table folds
// into the Chain Overlay row as "as above" shorthand.
func (c *Chain) List() ([]string, error) {
	seen := make(map[string]struct{})
	var names []string

	for _, a := range c.archives {
		f, err := a.OpenFile("(listfile)")
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}

		buf := make([]byte, f.Size())
		n, err := f.Read(a, buf)
		if err != nil {
			return nil, err
		}

		scanner := bufio.NewScanner(bytes.NewReader(buf[:n]))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			key := strings.ToUpper(strings.ReplaceAll(line, "/", `\`))
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			names = append(names, line)
		}
	}

	return names, nil
}

// Close releases every archive held by the chain, in most-recently-added
// order, returning the first error encountered (if any) after attempting to
// close all of them.
func (c *Chain) Close() error {
	var firstErr error
	for _, a := range c.archives {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.archives = nil
	return firstErr
}
