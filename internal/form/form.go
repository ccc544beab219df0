// Package form decodes request bodies at the API boundary.  Multipart
// parts become a tagged Field that is either text or an uploaded file, so
// nothing past the handler ever inspects raw multipart structures.
package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Kind tags a decoded form field.
type Kind int

const (
	Text Kind = iota
	File
)

// Upload is an uploaded file read fully into memory.  Size is the number of
// bytes received, which is what quota accounting charges.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Field is one form value: Value is set for Text, Upload for File.
type Field struct {
	Kind   Kind
	Value  string
	Upload *Upload
}

// Values holds every decoded field by name in submission order.
type Values struct {
	fields map[string][]Field
}

// ErrInvalidForm wraps any failure to read a multipart or urlencoded body.
var ErrInvalidForm = errors.New("invalid form data")

// ErrInvalidJSON is returned by DecodeJSON for malformed bodies.
var ErrInvalidJSON = errors.New("invalid JSON body")

// Parse decodes a multipart or urlencoded request body.  maxMemory bounds
// what ParseMultipartForm keeps in memory before spilling to disk.
func Parse(r *http.Request, maxMemory int64) (*Values, error) {
	v := &Values{fields: map[string][]Field{}}
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}
		for name, vals := range r.MultipartForm.Value {
			for _, s := range vals {
				v.add(name, Field{Kind: Text, Value: s})
			}
		}
		for name, headers := range r.MultipartForm.File {
			for _, fh := range headers {
				f, err := fh.Open()
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
				}
				data, err := io.ReadAll(f)
				_ = f.Close()
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
				}
				v.add(name, Field{Kind: File, Upload: &Upload{
					Filename:    fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Size:        int64(len(data)),
					Data:        data,
				}})
			}
		}
		return v, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	for name, vals := range r.PostForm {
		for _, s := range vals {
			v.add(name, Field{Kind: Text, Value: s})
		}
	}
	return v, nil
}

func (v *Values) add(name string, f Field) {
	v.fields[name] = append(v.fields[name], f)
}

// Text returns the first text value for name, or "" when absent.  File
// fields under the same name are ignored.
func (v *Values) Text(name string) string {
	for _, f := range v.fields[name] {
		if f.Kind == Text {
			return f.Value
		}
	}
	return ""
}

// Files returns every non-empty file uploaded under name.
func (v *Values) Files(name string) []Upload {
	var out []Upload
	for _, f := range v.fields[name] {
		if f.Kind == File && f.Upload != nil && f.Upload.Size > 0 {
			out = append(out, *f.Upload)
		}
	}
	return out
}

// StringList decodes a JSON encoded array carried in a text field.
func (v *Values) StringList(name string) []string {
	return DecodeList(v.Text(name))
}

// DecodeList parses raw as a JSON array and keeps its string elements.  Any
// malformed input yields an empty list, matching how clients submit blank
// multi-selects.
func DecodeList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprint(it))
		}
	}
	return out
}

// DecodeJSON reads a JSON object body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return ErrInvalidJSON
	}
	return nil
}
