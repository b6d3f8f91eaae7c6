// Package gojson provides an engine.TokenSource backed by goccy/go-json.
package gojson

import (
	"bytes"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	eng "github.com/reoring/loadgate/internal/engine"
)

type frame struct {
	object       bool
	expectingKey bool
}

type source struct {
	dec   *j.Decoder
	stack []frame
	last  int64
}

// NewReader wraps an io.Reader into an engine.TokenSource for JSON.
// Numbers are reported verbatim so callers can keep exact status values.
func NewReader(r io.Reader) eng.TokenSource {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	return &source{dec: dec, last: -1}
}

// NewBytes wraps a byte slice into an engine.TokenSource for JSON.
func NewBytes(b []byte) eng.TokenSource { return NewReader(bytes.NewReader(b)) }

func (s *source) NextToken() (eng.Token, error) {
	tok, err := s.dec.Token()
	if err != nil {
		return eng.Token{}, err
	}
	s.last = s.dec.InputOffset()

	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			s.push(true)
			return s.token(eng.KindBeginObject), nil
		case '}':
			s.pop()
			return s.token(eng.KindEndObject), nil
		case '[':
			s.push(false)
			return s.token(eng.KindBeginArray), nil
		case ']':
			s.pop()
			return s.token(eng.KindEndArray), nil
		}
	case string:
		if top := s.top(); top != nil && top.object && top.expectingKey {
			top.expectingKey = false
			t := s.token(eng.KindKey)
			t.String = v
			return t, nil
		}
		s.valueDone()
		t := s.token(eng.KindString)
		t.String = v
		return t, nil
	case bool:
		s.valueDone()
		t := s.token(eng.KindBool)
		t.Bool = v
		return t, nil
	case j.Number:
		s.valueDone()
		t := s.token(eng.KindNumber)
		t.Number = string(v)
		return t, nil
	case float64:
		s.valueDone()
		t := s.token(eng.KindNumber)
		t.Number = strconv.FormatFloat(v, 'g', -1, 64)
		return t, nil
	}
	s.valueDone()
	return s.token(eng.KindNull), nil
}

func (s *source) Location() int64 { return s.last }

func (s *source) token(k eng.Kind) eng.Token { return eng.Token{Kind: k, Offset: s.last} }

func (s *source) top() *frame {
	if n := len(s.stack); n > 0 {
		return &s.stack[n-1]
	}
	return nil
}

func (s *source) push(object bool) {
	s.stack = append(s.stack, frame{object: object, expectingKey: object})
}

// pop closes a container, which counts as a completed value for the parent.
func (s *source) pop() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
	s.valueDone()
}

func (s *source) valueDone() {
	if top := s.top(); top != nil && top.object && !top.expectingKey {
		top.expectingKey = true
	}
}
