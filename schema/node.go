// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	j "github.com/goccy/go-json"
)

// NodeKind identifies the JSON value held by a Node.
type NodeKind uint8

const (
	NodeNull NodeKind = iota
	NodeBool
	NodeNumber
	NodeString
	NodeArray
	NodeObject
)

var nodeKindNames = [...]string{
	NodeNull:   "null",
	NodeBool:   "bool",
	NodeNumber: "number",
	NodeString: "string",
	NodeArray:  "array",
	NodeObject: "object",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "unknown"
}

// Member is one key/value pair of an object node.
type Member struct {
	Key   string
	Value *Node
}

// Node is a JSON value that keeps object members in document order.
type Node struct {
	Kind    NodeKind
	Bool    bool
	Number  string
	String  string
	Items   []*Node
	Members []Member
}

// Get returns the value of the object member key, or nil.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != NodeObject {
		return nil
	}
	for _, m := range n.Members {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// Has reports whether the object node has a member called key.
func (n *Node) Has(key string) bool {
	return n.Get(key) != nil
}

var errTrailingData = errors.New("unexpected data after top-level value")

// ParseNode decodes one JSON document.
func ParseNode(data []byte) (*Node, error) {
	dec := j.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	node, err := readNode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errTrailingData
		}
		return nil, err
	}
	return node, nil
}

func readNode(dec *j.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			node := &Node{Kind: NodeObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				value, err := readNode(dec)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				node.Members = append(node.Members, Member{Key: key, Value: value})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		case '[':
			node := &Node{Kind: NodeArray}
			for dec.More() {
				item, err := readNode(dec)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", len(node.Items), err)
				}
				node.Items = append(node.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case string:
		return &Node{Kind: NodeString, String: v}, nil
	case bool:
		return &Node{Kind: NodeBool, Bool: v}, nil
	case j.Number:
		return &Node{Kind: NodeNumber, Number: string(v)}, nil
	case float64:
		return &Node{Kind: NodeNumber, Number: strconv.FormatFloat(v, 'g', -1, 64)}, nil
	case nil:
		return &Node{Kind: NodeNull}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}
