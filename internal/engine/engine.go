package engine

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token represents a streaming token with approximate input offset.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
	Offset int64
}

// TokenSource is a minimal interface required by the engine.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64 // byte offset; -1 if unknown
}

// DuplicateStrictness controls duplicate key handling.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// SimpleIssue is a minimal issue representation used by internal helpers.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }

// Limits controls enforcement applied while decoding.
type Limits struct {
	OnDuplicate DuplicateStrictness
	MaxDepth    int
	MaxBytes    int64
	// IssueSink receives non-fatal issues (duplicate keys under DupWarn).
	IssueSink func(SimpleIssue)
}

// Decode builds an "any" tree from src while enforcing lim. Numbers are kept
// as json.Number. It returns io.EOF when src yields no value at all.
func Decode(src TokenSource, lim Limits) (any, error) {
	d := &decoder{src: src, lim: lim}
	tok, err := d.next()
	if err != nil {
		return nil, err
	}
	v, err := d.value(tok, "", 0)
	if err != nil {
		return nil, err
	}
	switch _, err := src.NextToken(); {
	case err == io.EOF:
		return v, nil
	case err != nil:
		return nil, err
	default:
		return nil, IssueError{SimpleIssue{Code: "parse_error", Path: "/", Message: "unexpected data after top-level value"}}
	}
}

type decoder struct {
	src TokenSource
	lim Limits
}

func (d *decoder) next() (Token, error) {
	tok, err := d.src.NextToken()
	if err != nil {
		return Token{}, err
	}
	if d.lim.MaxBytes > 0 {
		if off := d.src.Location(); off > d.lim.MaxBytes {
			return Token{}, IssueError{SimpleIssue{Code: "truncated", Path: "/", Message: "max bytes exceeded"}}
		}
	}
	return tok, nil
}

// nextIn reads a token inside a container, where EOF means truncated input.
func (d *decoder) nextIn() (Token, error) {
	tok, err := d.next()
	if err == io.EOF {
		return Token{}, io.ErrUnexpectedEOF
	}
	return tok, err
}

func (d *decoder) value(tok Token, path string, depth int) (any, error) {
	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		depth++
		if d.lim.MaxDepth > 0 && depth > d.lim.MaxDepth {
			return nil, IssueError{SimpleIssue{Code: "parse_error", Path: pointerOrRoot(path), Message: "max depth exceeded"}}
		}
		if tok.Kind == KindBeginObject {
			return d.object(path, depth)
		}
		return d.array(path, depth)
	case KindString:
		return tok.String, nil
	case KindNumber:
		return json.Number(tok.Number), nil
	case KindBool:
		return tok.Bool, nil
	case KindNull:
		return nil, nil
	default:
		return nil, io.ErrUnexpectedEOF
	}
}

func (d *decoder) object(path string, depth int) (any, error) {
	m := make(map[string]any)
	for {
		tok, err := d.nextIn()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndObject {
			return m, nil
		}
		if tok.Kind != KindKey {
			return nil, io.ErrUnexpectedEOF
		}
		kpath := JoinPointer(path, tok.String)
		if _, dup := m[tok.String]; dup && d.lim.OnDuplicate != DupIgnore {
			si := SimpleIssue{Code: "duplicate_key", Path: kpath, Message: "key '" + tok.String + "' duplicated"}
			if d.lim.OnDuplicate == DupError {
				return nil, IssueError{si}
			}
			if d.lim.IssueSink != nil {
				d.lim.IssueSink(si)
			}
		}
		vt, err := d.nextIn()
		if err != nil {
			return nil, err
		}
		v, err := d.value(vt, kpath, depth)
		if err != nil {
			return nil, err
		}
		// last value wins
		m[tok.String] = v
	}
}

func (d *decoder) array(path string, depth int) (any, error) {
	arr := []any{}
	for i := 0; ; i++ {
		tok, err := d.nextIn()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndArray {
			return arr, nil
		}
		v, err := d.value(tok, JoinPointer(path, strconv.Itoa(i)), depth)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}

func pointerOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

var jsonPointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// JoinPointer appends an escaped reference token to a JSON Pointer.
func JoinPointer(base, token string) string {
	return base + "/" + jsonPointerEscaper.Replace(token)
}
